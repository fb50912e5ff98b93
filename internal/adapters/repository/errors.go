package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrClosed       = errors.New("store closed")
	ErrInvalidEvent = errors.New("invalid posture event")
)

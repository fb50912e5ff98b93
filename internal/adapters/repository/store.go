// Package repository provides durable backends for the posture event log and
// the consent flag.
package repository

import (
	"context"
	"fmt"

	"github.com/okian/posture/internal/domain/model"
)

// Store is an append-only, time-ordered event log plus the consent setting.
// There is no update or delete.
type Store interface {
	// Append records an event. Events are ordered by timestamp, insertion
	// order breaking ties.
	Append(ctx context.Context, e model.PostureEvent) error
	// Query returns events with timestamps inside w, bounds included, in order.
	Query(ctx context.Context, w model.Window) ([]model.PostureEvent, error)
	// Count returns the total number of stored events.
	Count(ctx context.Context) (int, error)

	LoadConsent(ctx context.Context) (bool, error)
	SaveConsent(ctx context.Context, enabled bool) error

	Close() error
}

func validate(e model.PostureEvent) error {
	switch {
	case e.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	case !e.Label.Persistable():
		return fmt.Errorf("%w: label %q", ErrInvalidEvent, e.Label)
	case e.Confidence < 0 || e.Confidence > 1 || e.Confidence != e.Confidence:
		return fmt.Errorf("%w: confidence %v", ErrInvalidEvent, e.Confidence)
	case e.Timestamp.IsZero():
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEvent)
	}
	return nil
}

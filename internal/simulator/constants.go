package simulator

import "time"

// Defaults for the command line.
const (
	DefaultBaseURL  = "http://localhost:8000/api"
	DefaultDuration = 30 * time.Second
	DefaultFPS      = 10
	DefaultTimeout  = 5 * time.Second
)

// Runner configuration constants.
const (
	drainTimeout         = 10 * time.Second
	PercentageMultiplier = 100
)

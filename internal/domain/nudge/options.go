// Package nudge decides, frame by frame, whether to alert the user and
// whether a classification is eligible for persistence.
package nudge

import "time"

// Default thresholds.
const (
	DefaultStoreMinConfidence = 0.6
	DefaultNudgeMinConfidence = 0.6
)

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithStoreMinConfidence sets the confidence floor for eligible events.
func WithStoreMinConfidence(v float64) Option {
	return func(t *Tracker) {
		if v >= 0 && v <= 1 {
			t.storeMin = v
		}
	}
}

// WithNudgeMinConfidence sets the confidence floor for a slouch nudge.
func WithNudgeMinConfidence(v float64) Option {
	return func(t *Tracker) {
		if v >= 0 && v <= 1 {
			t.nudgeMin = v
		}
	}
}

// WithCooldown sets the minimum interval between two nudges. Zero disables
// suppression so every qualifying frame nudges.
func WithCooldown(d time.Duration) Option {
	return func(t *Tracker) {
		if d >= 0 {
			t.cooldown = d
		}
	}
}

// WithClock overrides the time source used for the cooldown.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

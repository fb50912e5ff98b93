package session

import (
	"time"

	"github.com/okian/posture/internal/domain/classifier"
	"github.com/okian/posture/internal/domain/nudge"
	"github.com/okian/posture/pkg/logger"
)

// Default loop timing.
const (
	DefaultFrameInterval   = 100 * time.Millisecond
	DefaultEstimateTimeout = 500 * time.Millisecond
	DefaultTrackInterval   = 3 * time.Second
)

// Option applies a configuration option to a session.
type Option func(*config)

type config struct {
	interval      time.Duration
	timeout       time.Duration
	trackInterval time.Duration
	classifier    *classifier.Classifier
	tracker       *nudge.Tracker
	submitter     Submitter
	onResult      func(Result)
	onNudge       func(Result)
	logger        logger.Logger
	now           func() time.Time
}

// WithFrameInterval sets the tick between frames.
func WithFrameInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithEstimateTimeout bounds a single Estimate call. A frame that exceeds it
// classifies as uncertain.
func WithEstimateTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTrackInterval sets the minimum gap between two submitted track
// requests. Zero submits every eligible frame.
func WithTrackInterval(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.trackInterval = d
		}
	}
}

// WithClassifier overrides the default classifier.
func WithClassifier(cl *classifier.Classifier) Option {
	return func(c *config) {
		if cl != nil {
			c.classifier = cl
		}
	}
}

// WithTracker overrides the default nudge tracker.
func WithTracker(t *nudge.Tracker) Option {
	return func(c *config) {
		if t != nil {
			c.tracker = t
		}
	}
}

// WithSubmitter sets where eligible classifications are sent.
func WithSubmitter(s Submitter) Option {
	return func(c *config) { c.submitter = s }
}

// WithOnResult registers a per-frame callback for display code.
func WithOnResult(fn func(Result)) Option {
	return func(c *config) { c.onResult = fn }
}

// WithOnNudge registers the alert callback.
func WithOnNudge(fn func(Result)) Option {
	return func(c *config) { c.onNudge = fn }
}

// WithLogger sets the session logger.
func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the time source used for result stamps and throttling.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

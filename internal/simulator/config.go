package simulator

import (
	"time"

	"github.com/okian/posture/internal/domain/classifier"
	"github.com/okian/posture/internal/domain/model"
	"github.com/okian/posture/internal/domain/nudge"
)

// Config holds configuration for a simulated session.
type Config struct {
	BaseURL       string        // Base URL of the API, including its prefix
	Duration      time.Duration // How long the session runs
	FPS           int           // Frames per second
	Workers       int           // Number of track writers
	QueueSize     int           // Pending track requests before dropping
	Timeout       time.Duration // HTTP request timeout
	FrameTimeout  time.Duration // Per-frame estimate bound
	TrackInterval time.Duration // Minimum gap between submitted events
	NudgeCooldown time.Duration // Minimum gap between nudges
	NudgeMinConf  float64       // Nudge confidence floor
	Consent       bool          // Opt in before the session starts
	SlouchRatio   float64       // Share of slouched runs in the synthetic source
	Seed          int64         // Synthetic source seed; zero means time based
	Policy        classifier.Policy
	LogFile       string // Optional rotated log file
	Verbose       bool   // Log every nudge
}

// NewConfig returns a Config with defaults.
func NewConfig() *Config {
	return &Config{
		BaseURL:       DefaultBaseURL,
		Duration:      DefaultDuration,
		FPS:           DefaultFPS,
		Workers:       2,
		QueueSize:     64,
		Timeout:       DefaultTimeout,
		FrameTimeout:  500 * time.Millisecond,
		TrackInterval: 3 * time.Second,
		NudgeMinConf:  nudge.DefaultNudgeMinConfidence,
		SlouchRatio:   0.3,
		Policy:        classifier.DefaultPolicy(),
	}
}

// FrameInterval converts FPS to a tick.
func (c *Config) FrameInterval() time.Duration {
	if c.FPS <= 0 {
		return time.Second / DefaultFPS
	}
	return time.Second / time.Duration(c.FPS)
}

// Stats holds the outcome of a run.
type Stats struct {
	RunID      string
	Frames     int64
	Nudges     int64
	Labels     map[model.Label]int64
	Submitted  int64
	Dropped    uint64
	Processed  int64
	Stored     int64
	Failed     int64
	FinalState string
	Summary    model.SummaryResult
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}

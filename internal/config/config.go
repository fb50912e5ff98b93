// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Durations are expressed in milliseconds so they read the same in YAML and env.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/okian/posture/internal/domain/classifier"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFile, when set, also writes JSON logs to a rotated file.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// APIPrefix is the mount point of the JSON API.
	APIPrefix string `koanf:"api_prefix"`

	// Store selects the event backend: sqlite or memory.
	Store string `koanf:"store"`

	// DB is the SQLite database path.
	DB string `koanf:"db"`

	// QueueSize bounds the pending track requests of an in-process session.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of track writers.
	WorkerCount int `koanf:"worker_count"`

	EligibilityMinConfidence float64 `koanf:"eligibility_min_confidence"`
	NudgeMinConfidence       float64 `koanf:"nudge_min_confidence"`

	// NudgeCooldownMS suppresses repeat nudges; 0 nudges on every qualifying frame.
	NudgeCooldownMS int `koanf:"nudge_cooldown_ms"`

	FrameIntervalMS int `koanf:"frame_interval_ms"`
	FrameTimeoutMS  int `koanf:"frame_timeout_ms"`
	TrackIntervalMS int `koanf:"track_interval_ms"`

	// ShutdownTimeoutMS bounds graceful HTTP shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`

	// Classifier thresholds.
	UprightMinVerticalSpan float64 `koanf:"upright_min_vertical_span"`
	UprightMaxTorsoDrift   float64 `koanf:"upright_max_torso_drift"`
	UprightMaxHeadForward  float64 `koanf:"upright_max_head_forward"`
	SlouchMaxVerticalSpan  float64 `koanf:"slouch_max_vertical_span"`
	SlouchMinTorsoDrift    float64 `koanf:"slouch_min_torso_drift"`
	SlouchMinHeadForward   float64 `koanf:"slouch_min_head_forward"`
	DecisionScore          float64 `koanf:"decision_score"`
	ConfidenceCap          float64 `koanf:"confidence_cap"`
	MinKeypointScore       float64 `koanf:"min_keypoint_score"`
}

// New creates a Config with defaults.
func New() *Config {
	p := classifier.DefaultPolicy()
	return &Config{
		LogLevel:                 "info",
		Addr:                     ":8000",
		APIPrefix:                "/api",
		Store:                    StoreSQLite,
		DB:                       "posture.db",
		QueueSize:                64,
		WorkerCount:              2,
		EligibilityMinConfidence: 0.6,
		NudgeMinConfidence:       0.6,
		NudgeCooldownMS:          0,
		FrameIntervalMS:          100,
		FrameTimeoutMS:           500,
		TrackIntervalMS:          3000,
		ShutdownTimeoutMS:        10_000,
		UprightMinVerticalSpan:   p.UprightMinVerticalSpan,
		UprightMaxTorsoDrift:     p.UprightMaxTorsoDrift,
		UprightMaxHeadForward:    p.UprightMaxHeadForward,
		SlouchMaxVerticalSpan:    p.SlouchMaxVerticalSpan,
		SlouchMinTorsoDrift:      p.SlouchMinTorsoDrift,
		SlouchMinHeadForward:     p.SlouchMinHeadForward,
		DecisionScore:            p.DecisionScore,
		ConfidenceCap:            p.ConfidenceCap,
		MinKeypointScore:         p.MinKeypointScore,
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.APIPrefix, "/") {
		return fmt.Errorf("%w: api_prefix must start with /", ErrInvalidConfig)
	}
	switch c.Store {
	case StoreSQLite:
		if strings.TrimSpace(c.DB) == "" {
			return fmt.Errorf("%w: db must not be empty for the sqlite store", ErrInvalidConfig)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	for name, v := range map[string]float64{
		"eligibility_min_confidence": c.EligibilityMinConfidence,
		"nudge_min_confidence":       c.NudgeMinConfidence,
	} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be within [0,1], got %v", ErrInvalidConfig, name, v)
		}
	}
	for name, v := range map[string]int{
		"nudge_cooldown_ms":   c.NudgeCooldownMS,
		"frame_interval_ms":   c.FrameIntervalMS,
		"frame_timeout_ms":    c.FrameTimeoutMS,
		"track_interval_ms":   c.TrackIntervalMS,
		"shutdown_timeout_ms": c.ShutdownTimeoutMS,
	} {
		if v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, name)
		}
	}
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Policy assembles the classifier thresholds. Weights and the uncertain
// confidence keep their defaults.
func (c *Config) Policy() classifier.Policy {
	p := classifier.DefaultPolicy()
	p.UprightMinVerticalSpan = c.UprightMinVerticalSpan
	p.UprightMaxTorsoDrift = c.UprightMaxTorsoDrift
	p.UprightMaxHeadForward = c.UprightMaxHeadForward
	p.SlouchMaxVerticalSpan = c.SlouchMaxVerticalSpan
	p.SlouchMinTorsoDrift = c.SlouchMinTorsoDrift
	p.SlouchMinHeadForward = c.SlouchMinHeadForward
	p.DecisionScore = c.DecisionScore
	p.ConfidenceCap = c.ConfidenceCap
	p.MinKeypointScore = c.MinKeypointScore
	return p
}

// NudgeCooldown returns the cooldown as a duration.
func (c *Config) NudgeCooldown() time.Duration { return ms(c.NudgeCooldownMS) }

// FrameInterval returns the frame tick.
func (c *Config) FrameInterval() time.Duration { return ms(c.FrameIntervalMS) }

// FrameTimeout returns the per-frame estimate bound.
func (c *Config) FrameTimeout() time.Duration { return ms(c.FrameTimeoutMS) }

// TrackInterval returns the minimum gap between submitted track requests.
func (c *Config) TrackInterval() time.Duration { return ms(c.TrackIntervalMS) }

// ShutdownTimeout returns the graceful shutdown bound.
func (c *Config) ShutdownTimeout() time.Duration { return ms(c.ShutdownTimeoutMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

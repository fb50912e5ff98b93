package simulator

import (
	"fmt"
	"os"

	"github.com/okian/posture/pkg/logger"
)

// SetupLogging configures console logging and, when logFile is set, a
// rotated JSON log file.
func SetupLogging(logFile string, verbose bool) error {
	level := "info"
	if verbose {
		level = "debug"
	}
	if err := logger.Init(logger.WithLevel(level), logger.WithFile(logFile)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Posture Session Simulator
=========================

Runs a synthetic camera session through the classifier and nudge tracker and
sends eligible classifications to a running posture API.

Usage:
  go run ./cmd/posture-sim [options]

Options:
  -url string
        Base URL of the API including its prefix (default "http://localhost:8000/api")
  -duration duration
        How long the session runs (default 30s)
  -fps int
        Frames per second (default 10)
  -workers int
        Number of track writers (default from config)
  -queue int
        Pending track requests before new ones are dropped (default from config)
  -timeout duration
        HTTP request timeout (default 5s)
  -consent
        Opt in before the session starts
  -slouch-ratio float
        Share of slouched runs in the synthetic source (default 0.3)
  -seed int
        Fix the synthetic source (default: time based)
  -track-interval duration
        Minimum gap between submitted events (default from config)
  -log string
        Also write JSON logs to this rotated file
  -verbose
        Log every nudge and enable debug logging
  -help
        Show this help message

Thresholds, nudge cooldown and frame timeout come from the same configuration
as the server ($POSTURE_CONFIG and POSTURE_* variables).

Examples:
  # Ten second session that opts in first
  go run ./cmd/posture-sim -duration 10s -consent

  # Heavy slouching at 30 fps against another host
  go run ./cmd/posture-sim -url http://10.0.0.5:8000/api -fps 30 -slouch-ratio 0.7
`)
}

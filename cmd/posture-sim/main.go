package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/posture/internal/config"
	"github.com/okian/posture/internal/simulator"
)

// Head room on top of the session for health checks and draining.
const runSlack = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Thresholds and loop timing are shared with the server configuration.
	base, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	cfg := fromConfig(base)

	var (
		help    = flag.Bool("help", false, "Show help")
		logFile = flag.String("log", base.LogFile, "Also write JSON logs to this rotated file")
	)
	flag.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "Base URL of the API including its prefix")
	flag.DurationVar(&cfg.Duration, "duration", cfg.Duration, "How long the session runs")
	flag.IntVar(&cfg.FPS, "fps", cfg.FPS, "Frames per second")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "Number of track writers")
	flag.IntVar(&cfg.QueueSize, "queue", cfg.QueueSize, "Pending track requests before new ones are dropped")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	flag.BoolVar(&cfg.Consent, "consent", cfg.Consent, "Opt in before the session starts")
	flag.Float64Var(&cfg.SlouchRatio, "slouch-ratio", cfg.SlouchRatio, "Share of slouched runs in the synthetic source")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Fix the synthetic source (0 means time based)")
	flag.DurationVar(&cfg.TrackInterval, "track-interval", cfg.TrackInterval, "Minimum gap between submitted events")
	flag.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Log every nudge and enable debug logging")
	flag.Parse()

	if *help {
		simulator.ShowHelp()
		return
	}
	cfg.LogFile = *logFile

	if err := simulator.SetupLogging(cfg.LogFile, cfg.Verbose); err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration+runSlack)
	defer cancel()

	if _, err := simulator.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// fromConfig seeds simulator settings from the shared configuration.
func fromConfig(c *config.Config) *simulator.Config {
	cfg := simulator.NewConfig()
	cfg.BaseURL = "http://localhost" + c.Addr + c.APIPrefix
	cfg.Workers = c.WorkerCount
	cfg.QueueSize = c.QueueSize
	cfg.FrameTimeout = c.FrameTimeout()
	cfg.TrackInterval = c.TrackInterval()
	cfg.NudgeCooldown = c.NudgeCooldown()
	cfg.NudgeMinConf = c.NudgeMinConfidence
	cfg.Policy = c.Policy()
	if c.FrameIntervalMS > 0 {
		cfg.FPS = int(time.Second / c.FrameInterval())
	}
	return cfg
}

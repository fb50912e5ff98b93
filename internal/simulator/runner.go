// Package simulator drives a synthetic posture session against a running
// API and reports what the server stored.
package simulator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/posture/internal/adapters/mq/queue"
	"github.com/okian/posture/internal/adapters/mq/worker"
	"github.com/okian/posture/internal/adapters/pose"
	"github.com/okian/posture/internal/domain/classifier"
	"github.com/okian/posture/internal/domain/model"
	"github.com/okian/posture/internal/domain/nudge"
	"github.com/okian/posture/internal/session"
	"github.com/okian/posture/pkg/logger"
)

// Run executes a complete simulated session.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{
		RunID:     uuid.NewString(),
		Labels:    make(map[model.Label]int64),
		StartTime: time.Now(),
	}
	log := logger.Named("simulator")

	log.Info(ctx, "starting posture simulation",
		logger.String("run", stats.RunID),
		logger.String("baseURL", cfg.BaseURL),
		logger.Duration("duration", cfg.Duration),
		logger.Int("fps", cfg.FPS),
		logger.Int("workers", cfg.Workers),
		logger.Int("queue", cfg.QueueSize),
		logger.Float64("slouchRatio", cfg.SlouchRatio),
		logger.Bool("consent", cfg.Consent))

	client := NewClient(cfg.BaseURL, cfg.Timeout, stats.RunID)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Opt in when asked; otherwise report the server's flag
	consent, err := client.Consent(ctx)
	if err != nil {
		return stats, fmt.Errorf("read consent: %w", err)
	}
	if cfg.Consent && !consent {
		if consent, err = client.SetConsent(ctx, true); err != nil {
			return stats, fmt.Errorf("grant consent: %w", err)
		}
	}
	log.Info(ctx, "consent state", logger.Bool("consent", consent))

	// Step 3: Writers drain the queue into the API. They outlive ctx so
	// pending requests can still be delivered after an interrupt.
	q := queue.NewInMemoryQueue(queue.WithCapacity(cfg.QueueSize))
	pool := worker.NewPool(cfg.Workers, q, client,
		worker.WithLogger(log.Named("worker")),
		worker.WithRecordTimeout(cfg.Timeout),
	)
	pool.Start(context.WithoutCancel(ctx))

	// Step 4: Run the frame loop
	sub := &countingSubmitter{q: q}
	h := session.Start(ctx, newSource(cfg),
		session.WithFrameInterval(cfg.FrameInterval()),
		session.WithEstimateTimeout(cfg.FrameTimeout),
		session.WithTrackInterval(cfg.TrackInterval),
		session.WithClassifier(classifier.New(classifier.WithPolicy(cfg.Policy))),
		session.WithTracker(nudge.NewTracker(
			nudge.WithNudgeMinConfidence(cfg.NudgeMinConf),
			nudge.WithCooldown(cfg.NudgeCooldown),
		)),
		session.WithSubmitter(sub),
		session.WithLogger(log.Named("session")),
		session.WithOnResult(func(r session.Result) {
			stats.Labels[r.Classification.Label]++
		}),
		session.WithOnNudge(func(r session.Result) {
			stats.Nudges++
			if cfg.Verbose {
				log.Info(ctx, "nudge: sit up straight",
					logger.Int("frame", int(r.Frame)),
					logger.Float64("confidence", r.Classification.Confidence),
					logger.Int("streak", r.Decision.Streak))
			}
		}),
	)

	timer := time.NewTimer(cfg.Duration)
	select {
	case <-ctx.Done():
	case <-timer.C:
	case <-h.Done():
	}
	timer.Stop()
	h.Stop()
	stats.Frames = h.Frames()
	stats.Submitted = sub.accepted.Load()
	stats.FinalState = h.State().String()

	// Step 5: Deliver what is still queued
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()
	if err := pool.Shutdown(dctx); err != nil {
		log.Warn(dctx, "worker pool shutdown", logger.Error(err))
	}
	ps := pool.Stats()
	stats.Processed, stats.Stored, stats.Failed = ps.Processed, ps.Stored, ps.Failed
	stats.Dropped = q.Dropped()

	// Step 6: Ask the server what it kept
	if stats.Summary, err = client.Summary(dctx, model.PeriodDaily); err != nil {
		log.Warn(dctx, "summary unavailable", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(dctx, log, stats)

	if h.State() == session.StateUnavailable {
		return stats, fmt.Errorf("session stopped: %w", h.Err())
	}
	return stats, nil
}

// countingSubmitter counts requests the queue accepted, including one from
// a frame whose callbacks were skipped by Stop.
type countingSubmitter struct {
	q        *queue.InMemoryQueue
	accepted atomic.Int64
}

func (c *countingSubmitter) Enqueue(ctx context.Context, r model.TrackRequest) error {
	if err := c.q.Enqueue(ctx, r); err != nil {
		return err
	}
	c.accepted.Add(1)
	return nil
}

func newSource(cfg *Config) *pose.Synthetic {
	opts := []pose.Option{pose.WithSlouchRatio(cfg.SlouchRatio)}
	if cfg.Seed != 0 {
		opts = append(opts, pose.WithSeed(cfg.Seed))
	}
	return pose.NewSynthetic(opts...)
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var storeRate float64
	if stats.Submitted > 0 {
		storeRate = float64(stats.Stored) / float64(stats.Submitted) * PercentageMultiplier
	}

	log.Info(ctx, "final statistics",
		logger.String("run", stats.RunID),
		logger.String("state", stats.FinalState),
		logger.Int("frames", int(stats.Frames)),
		logger.Int("good", int(stats.Labels[model.LabelGood])),
		logger.Int("slouched", int(stats.Labels[model.LabelSlouched])),
		logger.Int("noPerson", int(stats.Labels[model.LabelNoPerson])),
		logger.Int("uncertain", int(stats.Labels[model.LabelUncertain])),
		logger.Int("nudges", int(stats.Nudges)),
		logger.Int("submitted", int(stats.Submitted)),
		logger.Int("dropped", int(stats.Dropped)),
		logger.Int("stored", int(stats.Stored)),
		logger.Int("failed", int(stats.Failed)),
		logger.Float64("storeRate", storeRate),
		logger.Float64("dailyUprightRatio", stats.Summary.UprightRatio),
		logger.Int("dailyTotalEvents", stats.Summary.TotalEvents),
		logger.Duration("duration", stats.Duration))
}

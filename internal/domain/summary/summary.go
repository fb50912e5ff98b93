// Package summary derives upright ratios from the event log.
package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/posture/internal/domain/model"
	"github.com/okian/posture/pkg/metrics"
)

// Source is the read side of the event store.
type Source interface {
	Query(ctx context.Context, w model.Window) ([]model.PostureEvent, error)
}

// Aggregator computes SummaryResults. Nothing is cached: every call rereads
// the window from the source.
type Aggregator struct {
	src Source
	now func() time.Time
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithClock overrides the time source that anchors windows.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// New creates an Aggregator reading from src.
func New(src Source, opts ...Option) *Aggregator {
	a := &Aggregator{src: src, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Summarize resolves period against the current time and aggregates it.
func (a *Aggregator) Summarize(ctx context.Context, period model.Period) (model.SummaryResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecordSummaryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if _, err := model.ParsePeriod(string(period)); err != nil {
		return model.SummaryResult{}, err
	}
	w := period.Resolve(a.now().UTC())
	events, err := a.src.Query(ctx, w)
	if err != nil {
		return model.SummaryResult{}, fmt.Errorf("summarize %s: %w", period, err)
	}
	return Aggregate(events), nil
}

// Aggregate counts events. An empty slice yields a zero ratio.
func Aggregate(events []model.PostureEvent) model.SummaryResult {
	if len(events) == 0 {
		return model.SummaryResult{}
	}
	good := 0
	for _, e := range events {
		if e.Label == model.LabelGood {
			good++
		}
	}
	return model.SummaryResult{
		UprightRatio: float64(good) / float64(len(events)),
		TotalEvents:  len(events),
	}
}

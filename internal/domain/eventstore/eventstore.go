// Package eventstore is the append-only, consent-gated log of accepted
// posture events.
package eventstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/posture/internal/domain/consent"
	"github.com/okian/posture/internal/domain/model"
	"github.com/okian/posture/internal/domain/nudge"
	"github.com/okian/posture/pkg/metrics"
)

// Log is the durable backend. Implementations keep events ordered by
// timestamp with insertion order breaking ties.
type Log interface {
	Append(ctx context.Context, e model.PostureEvent) error
	Query(ctx context.Context, w model.Window) ([]model.PostureEvent, error)
}

// Rejection reasons reported to metrics.
const (
	reasonConsent    = "consent_disabled"
	reasonIneligible = "ineligible"
	reasonError      = "write_error"
)

// Store applies the consent and eligibility rules in front of a Log.
type Store struct {
	log     Log
	gate    *consent.Gate
	minConf float64
	now     func() time.Time
	newID   func() string
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithMinConfidence sets the eligibility floor.
func WithMinConfidence(v float64) Option {
	return func(s *Store) {
		if v >= 0 && v <= 1 {
			s.minConf = v
		}
	}
}

// WithClock overrides the time source used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides event ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// New creates a Store over log guarded by gate.
func New(log Log, gate *consent.Gate, opts ...Option) *Store {
	s := &Store{
		log:     log,
		gate:    gate,
		minConf: nudge.DefaultStoreMinConfidence,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append stores c if consent is enabled at the moment of the call and c is
// eligible. A disabled gate or an ineligible classification is a no-op that
// returns false without error; only a backend failure returns an error.
func (s *Store) Append(ctx context.Context, c model.Classification) (bool, error) {
	if !nudge.Eligible(c, s.minConf) {
		metrics.RecordEventRejected(reasonIneligible)
		return false, nil
	}

	var event model.PostureEvent
	stored, err := s.gate.WhileEnabled(func() error {
		event = model.PostureEvent{
			ID:         s.newID(),
			Timestamp:  s.now().UTC(),
			Label:      c.Label,
			Confidence: c.Confidence,
		}
		return s.log.Append(ctx, event)
	})
	switch {
	case err != nil:
		metrics.RecordEventRejected(reasonError)
		return false, fmt.Errorf("append %s event: %w", c.Label, err)
	case !stored:
		metrics.RecordEventRejected(reasonConsent)
		return false, nil
	}
	metrics.RecordEventStored(string(event.Label))
	return true, nil
}

// Query returns the events inside w in log order.
func (s *Store) Query(ctx context.Context, w model.Window) ([]model.PostureEvent, error) {
	events, err := s.log.Query(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return events, nil
}

// MinConfidence returns the eligibility floor in effect.
func (s *Store) MinConfidence() float64 { return s.minConf }

// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	repository "github.com/okian/posture/internal/adapters/repository"
	"github.com/okian/posture/internal/domain/consent"
	"github.com/okian/posture/internal/domain/eventstore"
	"github.com/okian/posture/internal/domain/model"
	"github.com/okian/posture/internal/domain/nudge"
	"github.com/okian/posture/internal/domain/summary"
	"github.com/okian/posture/internal/domain/types"
	"github.com/okian/posture/pkg/logger"
	"github.com/okian/posture/pkg/metrics"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// ErrNotStarted is returned by operations called before Start or after Stop.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for the posture tracker.
type Service struct {
	mu sync.RWMutex

	// Core components
	repo   repository.Store
	gate   *consent.Gate
	events *eventstore.Store
	agg    *summary.Aggregator

	// Configuration
	storeKind   string
	dbPath      string
	minConf     float64
	busyTimeout time.Duration
	now         func() time.Time

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSQLite persists events and consent in the SQLite file at path.
func WithSQLite(path string) Option {
	return func(s *Service) {
		s.storeKind = StoreSQLite
		s.dbPath = path
	}
}

// WithMemoryStore keeps events in process memory only.
func WithMemoryStore() Option {
	return func(s *Service) {
		s.storeKind = StoreMemory
	}
}

// WithRepository injects an already opened backend. The service takes
// ownership and closes it on Stop.
func WithRepository(repo repository.Store, kind string) Option {
	return func(s *Service) {
		if repo != nil {
			s.repo = repo
			s.storeKind = kind
		}
	}
}

// WithBusyTimeout sets the SQLite busy timeout.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}

// WithMinConfidence sets the eligibility floor for stored events.
func WithMinConfidence(v float64) Option {
	return func(s *Service) {
		if v >= 0 && v <= 1 {
			s.minConf = v
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for event timestamps and
// summary windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storeKind:   StoreMemory,
		minConf:     nudge.DefaultStoreMinConfidence,
		busyTimeout: 5 * time.Second,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the backend and assembles the consent gate, event store and
// summary aggregator.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting posture service...", logger.String("store", s.storeKind))

	if s.repo == nil {
		repo, err := s.open(ctx)
		if err != nil {
			return err
		}
		s.repo = repo
	}

	gate, err := consent.NewGate(ctx, s.repo)
	if err != nil {
		return multierr.Append(fmt.Errorf("start service: %w", err), s.closeRepo())
	}
	s.gate = gate
	s.events = eventstore.New(s.repo, gate,
		eventstore.WithMinConfidence(s.minConf),
		eventstore.WithClock(s.now),
	)
	s.agg = summary.New(s.events, summary.WithClock(s.now))
	s.started = true
	s.startedAt = s.now()

	metrics.UpdateConsentEnabled(gate.Get())
	if n, err := s.repo.Count(ctx); err == nil {
		metrics.UpdateStoredEvents(n)
	}

	s.logger.Info(ctx, "posture service started",
		logger.String("store", s.storeKind),
		logger.Bool("consent", gate.Get()),
		logger.Float64("minConfidence", s.minConf),
	)
	return nil
}

func (s *Service) open(ctx context.Context) (repository.Store, error) {
	switch s.storeKind {
	case StoreSQLite:
		repo, err := repository.OpenSQLite(ctx, s.dbPath, repository.WithBusyTimeout(s.busyTimeout))
		if err != nil {
			return nil, fmt.Errorf("start service: %w", err)
		}
		s.logger.Info(ctx, "using sqlite store", logger.String("path", repo.Path()))
		return repo, nil
	case StoreMemory:
		s.logger.Info(ctx, "using memory store")
		return repository.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("start service: unknown store %q", s.storeKind)
	}
}

// Stop closes the backend. Calling Stop on a stopped service is a no-op.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(context.Background(), "stopping posture service...")

	err := s.closeRepo()
	s.started = false
	if err != nil {
		s.logger.Warn(context.Background(), "posture service stopped with errors", logger.Error(err))
		return err
	}
	s.logger.Info(context.Background(), "posture service stopped")
	return nil
}

func (s *Service) closeRepo() error {
	if s.repo == nil {
		return nil
	}
	err := s.repo.Close()
	s.repo = nil
	if err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}

// Track applies the eligibility and consent rules to c and reports
// whether an event was persisted.
func (s *Service) Track(ctx context.Context, c model.Classification) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return false, ErrNotStarted
	}

	stored, err := s.events.Append(ctx, c)
	if err != nil {
		s.logger.Error(ctx, "track failed", logger.String("label", c.Label.String()), logger.Error(err))
		return false, err
	}
	s.logger.Debug(ctx, "tracked",
		logger.String("label", c.Label.String()),
		logger.Float64("confidence", c.Confidence),
		logger.Bool("stored", stored),
	)
	return stored, nil
}

// Record implements the worker Recorder for in-process sessions.
func (s *Service) Record(ctx context.Context, r model.TrackRequest) (bool, error) {
	return s.Track(ctx, model.Classification{Label: r.Label, Confidence: r.Confidence})
}

// Summary recomputes the aggregate over the trailing window of period.
func (s *Service) Summary(ctx context.Context, period model.Period) (model.SummaryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.SummaryResult{}, ErrNotStarted
	}
	return s.agg.Summarize(ctx, period)
}

// Consent returns the flag in effect. A stopped service reports false.
func (s *Service) Consent(_ context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return false
	}
	return s.gate.Get()
}

// SetConsent persists and applies the flag and returns the state in effect.
func (s *Service) SetConsent(ctx context.Context, enabled bool) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return false, ErrNotStarted
	}

	applied, err := s.gate.Set(ctx, enabled)
	metrics.UpdateConsentEnabled(applied)
	if err != nil {
		s.logger.Error(ctx, "consent update failed", logger.Bool("requested", enabled), logger.Error(err))
		return applied, err
	}
	s.logger.Info(ctx, "consent updated", logger.Bool("consent", applied))
	return applied, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) (types.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := types.Stats{
		Started:                  s.started,
		Store:                    s.storeKind,
		EligibilityMinConfidence: s.minConf,
	}
	if !s.started {
		return stats, nil
	}

	n, err := s.repo.Count(ctx)
	if err != nil {
		return stats, fmt.Errorf("count events: %w", err)
	}
	stats.Consent = s.gate.Get()
	stats.StoredEvents = n
	stats.StartedAt = s.startedAt.UTC()
	stats.UptimeSeconds = s.now().Sub(s.startedAt).Seconds()

	metrics.UpdateStoredEvents(n)
	metrics.UpdateConsentEnabled(stats.Consent)
	return stats, nil
}

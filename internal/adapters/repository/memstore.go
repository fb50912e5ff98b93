package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/posture/internal/domain/model"
	"github.com/okian/posture/pkg/metrics"
)

// MemoryStore keeps the log in a timestamp-sorted slice. Used for tests and
// for deployments that accept losing history on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	events  []model.PostureEvent
	consent bool
	closed  bool
}

// NewMemoryStore creates an empty store with consent disabled.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append inserts e after every event with the same or an earlier timestamp.
func (s *MemoryStore) Append(_ context.Context, e model.PostureEvent) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryAppendLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := validate(e); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	i := sort.Search(len(s.events), func(i int) bool {
		return s.events[i].Timestamp.After(e.Timestamp)
	})
	s.events = append(s.events, model.PostureEvent{})
	copy(s.events[i+1:], s.events[i:])
	s.events[i] = e
	return nil
}

// Query returns a copy of the events inside w.
func (s *MemoryStore) Query(_ context.Context, w model.Window) ([]model.PostureEvent, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	lo := sort.Search(len(s.events), func(i int) bool {
		return !s.events[i].Timestamp.Before(w.From)
	})
	hi := sort.Search(len(s.events), func(i int) bool {
		return s.events[i].Timestamp.After(w.To)
	})
	if lo >= hi {
		return []model.PostureEvent{}, nil
	}
	out := make([]model.PostureEvent, hi-lo)
	copy(out, s.events[lo:hi])
	return out, nil
}

// Count returns the number of stored events.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	return len(s.events), nil
}

// LoadConsent returns the stored flag.
func (s *MemoryStore) LoadConsent(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrClosed
	}
	return s.consent, nil
}

// SaveConsent stores the flag.
func (s *MemoryStore) SaveConsent(_ context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.consent = enabled
	return nil
}

// Close marks the store closed. Subsequent calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Package consent holds the user's opt-in flag that gates event persistence.
//
// The Gate is the single point of truth for the flag. Readers on the write
// path observe either the old or the new value, never a partial update, and
// a write that is admitted under an enabled flag completes before the flag
// can be switched off.
package consent

import (
	"context"
	"fmt"
	"sync"
)

// Persister stores the flag durably.
type Persister interface {
	LoadConsent(ctx context.Context) (bool, error)
	SaveConsent(ctx context.Context, enabled bool) error
}

// Gate is an injectable state cell for the consent flag.
type Gate struct {
	mu      sync.RWMutex
	enabled bool
	store   Persister
}

// NewGate loads the persisted flag. A nil persister yields a memory-only gate
// starting disabled.
func NewGate(ctx context.Context, store Persister) (*Gate, error) {
	g := &Gate{store: store}
	if store == nil {
		return g, nil
	}
	enabled, err := store.LoadConsent(ctx)
	if err != nil {
		return nil, fmt.Errorf("load consent: %w", err)
	}
	g.enabled = enabled
	return g, nil
}

// Get returns the current flag.
func (g *Gate) Get() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.enabled
}

// Set persists and applies a new flag and returns the state now in effect.
// When persistence fails the previous value stays in effect.
func (g *Gate) Set(ctx context.Context, enabled bool) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.store != nil {
		if err := g.store.SaveConsent(ctx, enabled); err != nil {
			return g.enabled, fmt.Errorf("save consent: %w", err)
		}
	}
	g.enabled = enabled
	return g.enabled, nil
}

// WhileEnabled runs fn only if consent is enabled, holding the flag steady
// until fn returns. It reports whether fn ran and succeeded.
func (g *Gate) WhileEnabled(fn func() error) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.enabled {
		return false, nil
	}
	if err := fn(); err != nil {
		return false, err
	}
	return true, nil
}

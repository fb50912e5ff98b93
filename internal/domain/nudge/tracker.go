package nudge

import (
	"sync"
	"time"

	"github.com/okian/posture/internal/domain/model"
)

// Decision is the per-frame outcome of Observe.
type Decision struct {
	ShouldNudge bool
	ShouldStore bool
	// Suppressed is set when a qualifying frame fell inside the cooldown.
	Suppressed bool
	// Streak counts consecutive qualifying slouched frames, this one included.
	Streak int
}

// Tracker consumes the classification stream. Observe is called from the
// frame loop; Last may be read concurrently by display code.
type Tracker struct {
	storeMin float64
	nudgeMin float64
	cooldown time.Duration
	now      func() time.Time

	mu        sync.Mutex
	last      model.Classification
	hasLast   bool
	streak    int
	lastNudge time.Time
}

// NewTracker creates a tracker that nudges on every qualifying frame unless a
// cooldown is configured.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		storeMin: DefaultStoreMinConfidence,
		nudgeMin: DefaultNudgeMinConfidence,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Eligible reports whether a classification may be persisted: a good or
// slouched label at or above the floor.
func Eligible(c model.Classification, floor float64) bool {
	return c.Label.Persistable() && c.Confidence >= floor
}

// Observe records a classification and returns the decision for it.
func (t *Tracker) Observe(c model.Classification) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = c
	t.hasLast = true

	d := Decision{ShouldStore: Eligible(c, t.storeMin)}

	if c.Label != model.LabelSlouched || c.Confidence < t.nudgeMin {
		t.streak = 0
		return d
	}
	t.streak++
	d.Streak = t.streak

	now := t.now()
	if t.cooldown > 0 && !t.lastNudge.IsZero() && now.Sub(t.lastNudge) < t.cooldown {
		d.Suppressed = true
		return d
	}
	t.lastNudge = now
	d.ShouldNudge = true
	return d
}

// Last returns the most recent classification, for display.
func (t *Tracker) Last() (model.Classification, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.hasLast
}

// Reset clears streak and cooldown state, e.g. when a session restarts.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = model.Classification{}
	t.hasLast = false
	t.streak = 0
	t.lastNudge = time.Time{}
}

// Package pose provides keypoint sources for the frame loop: a synthetic
// generator that replays upright and slouched postures, and fixed sources
// that model a missing camera or a flaky model.
package pose

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/posture/internal/domain/model"
	"github.com/okian/posture/internal/session"
)

// Default frame geometry.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// ErrClosed is returned by Estimate after Close.
var ErrClosed = errors.New("pose source closed")

// Scene is what the synthetic source renders for a frame.
type Scene int

const (
	SceneUpright Scene = iota
	SceneSlouched
	SceneAbsent
	ScenePartial
)

// Synthetic generates poses from a seeded random walk over scenes. A scene
// persists for a run of frames before a new one is drawn.
type Synthetic struct {
	mu          sync.Mutex
	rng         *rand.Rand
	width       float64
	height      float64
	slouchRatio float64
	absentRatio float64
	runLength   int
	jitter      float64
	delay       time.Duration
	script      []Scene

	current Scene
	left    int
	frame   int
	closed  bool
}

// Option configures a Synthetic source.
type Option func(*Synthetic)

// WithSeed fixes the random sequence.
func WithSeed(seed int64) Option {
	return func(s *Synthetic) { s.rng = rand.New(rand.NewSource(seed)) } //nolint:gosec // simulation only
}

// WithSlouchRatio sets the share of runs rendered slouched.
func WithSlouchRatio(r float64) Option {
	return func(s *Synthetic) {
		if r >= 0 && r <= 1 {
			s.slouchRatio = r
		}
	}
}

// WithAbsentRatio sets the share of runs with nobody in frame.
func WithAbsentRatio(r float64) Option {
	return func(s *Synthetic) {
		if r >= 0 && r <= 1 {
			s.absentRatio = r
		}
	}
}

// WithRunLength sets how many frames a drawn scene lasts.
func WithRunLength(n int) Option {
	return func(s *Synthetic) {
		if n > 0 {
			s.runLength = n
		}
	}
}

// WithJitter sets the maximum per-keypoint noise in pixels.
func WithJitter(px float64) Option {
	return func(s *Synthetic) {
		if px >= 0 {
			s.jitter = px
		}
	}
}

// WithDelay makes every Estimate call take at least d, honouring ctx.
func WithDelay(d time.Duration) Option {
	return func(s *Synthetic) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithScript replaces random scenes with a fixed cycle, one scene per frame.
func WithScript(scenes ...Scene) Option {
	return func(s *Synthetic) { s.script = append([]Scene(nil), scenes...) }
}

// NewSynthetic creates a generator with a time-based seed unless overridden.
func NewSynthetic(opts ...Option) *Synthetic {
	s := &Synthetic{
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // simulation only
		width:       DefaultWidth,
		height:      DefaultHeight,
		slouchRatio: 0.3,
		absentRatio: 0.05,
		runLength:   10,
		jitter:      2,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Estimate renders the next frame.
func (s *Synthetic) Estimate(ctx context.Context) (model.Pose, error) {
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return model.Pose{}, ctx.Err()
		case <-t.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Pose{}, ErrClosed
	}
	return s.render(s.next()), nil
}

// Close releases the source.
func (s *Synthetic) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Synthetic) next() Scene {
	defer func() { s.frame++ }()
	if len(s.script) > 0 {
		return s.script[s.frame%len(s.script)]
	}
	if s.left == 0 {
		s.left = s.runLength
		switch r := s.rng.Float64(); {
		case r < s.absentRatio:
			s.current = SceneAbsent
		case r < s.absentRatio+s.slouchRatio*(1-s.absentRatio):
			s.current = SceneSlouched
		default:
			s.current = SceneUpright
		}
	}
	s.left--
	return s.current
}

// render lays out keypoints for the scene. Upright places the hips well below
// the shoulders with the nose above them; slouched compresses the torso and
// pushes the nose and shoulders forward.
func (s *Synthetic) render(scene Scene) model.Pose {
	p := model.Pose{Width: s.width, Height: s.height}
	cx := s.width / 2

	var shoulder, hip, nose model.Point
	switch scene {
	case SceneAbsent:
		return p
	case SceneSlouched:
		shoulder = model.Point{X: cx - 20, Y: s.height * 0.42}
		hip = model.Point{X: cx + 40, Y: s.height * 0.5}
		nose = model.Point{X: cx + 50, Y: s.height * 0.41}
	default:
		shoulder = model.Point{X: cx, Y: s.height * 0.31}
		hip = model.Point{X: cx, Y: s.height * 0.69}
		nose = model.Point{X: cx + 2, Y: s.height * 0.29}
	}

	kp := func(name model.KeypointName, at model.Point, dx float64) model.Keypoint {
		return model.Keypoint{
			Name:  name,
			X:     at.X + dx + s.noise(),
			Y:     at.Y + s.noise(),
			Score: 0.85 + 0.1*s.rng.Float64(),
		}
	}
	p.Keypoints = []model.Keypoint{
		kp(model.Nose, nose, 0),
		kp(model.LeftShoulder, shoulder, -60),
		kp(model.RightShoulder, shoulder, 60),
		kp(model.LeftHip, hip, -45),
		kp(model.RightHip, hip, 45),
	}
	if scene == ScenePartial {
		// Hips out of frame.
		p.Keypoints = p.Keypoints[:3]
	}
	return p
}

func (s *Synthetic) noise() float64 {
	if s.jitter == 0 {
		return 0
	}
	return (s.rng.Float64()*2 - 1) * s.jitter
}

// Unavailable models a denied or missing camera.
type Unavailable struct{}

// Estimate always fails with session.ErrUnavailable.
func (Unavailable) Estimate(context.Context) (model.Pose, error) {
	return model.Pose{}, session.ErrUnavailable
}

// Close is a no-op.
func (Unavailable) Close() error { return nil }

// Failing returns Err from every Estimate call.
type Failing struct {
	Err error
}

// Estimate returns f.Err.
func (f Failing) Estimate(context.Context) (model.Pose, error) {
	return model.Pose{}, f.Err
}

// Close is a no-op.
func (Failing) Close() error { return nil }

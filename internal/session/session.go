// Package session runs the per-frame classification loop.
//
// A session owns its keypoint source from Start until Stop. Each tick pulls
// one pose, classifies it, feeds the nudge tracker and, for eligible frames,
// offers a track request to a non-blocking submitter. Estimation is
// synchronous inside the loop, so a slow frame delays the next tick instead
// of queueing frames.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/posture/internal/domain/classifier"
	"github.com/okian/posture/internal/domain/model"
	"github.com/okian/posture/internal/domain/nudge"
	"github.com/okian/posture/pkg/logger"
	"github.com/okian/posture/pkg/metrics"
)

// ErrUnavailable is returned by a source that cannot produce frames, for
// example when camera access is denied. The loop stops and does not retry.
var ErrUnavailable = errors.New("keypoint source unavailable")

// Source produces one pose per call. An empty pose means nobody was found.
type Source interface {
	Estimate(ctx context.Context) (model.Pose, error)
	Close() error
}

// Submitter accepts track requests without blocking.
type Submitter interface {
	Enqueue(ctx context.Context, r model.TrackRequest) error
}

// State is the lifecycle of a session.
type State int32

const (
	StateRunning State = iota
	StateStopped
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Result is the outcome of one frame. It carries no keypoints.
type Result struct {
	Frame          int64
	At             time.Time
	Classification model.Classification
	Decision       nudge.Decision
	// Submitted is set when a track request was accepted by the submitter.
	Submitted bool
}

// Handle controls a running session.
type Handle struct {
	cfg    config
	src    Source
	cancel context.CancelFunc
	done   chan struct{}

	state  atomic.Int32
	frames atomic.Int64

	mu         sync.Mutex
	err        error
	last       Result
	hasLast    bool
	lastSubmit time.Time
}

// Start launches the loop over src and returns immediately.
func Start(ctx context.Context, src Source, opts ...Option) *Handle {
	cfg := config{
		interval:      DefaultFrameInterval,
		timeout:       DefaultEstimateTimeout,
		trackInterval: DefaultTrackInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.classifier == nil {
		cfg.classifier = classifier.New()
	}
	if cfg.tracker == nil {
		cfg.tracker = nudge.NewTracker()
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("session")
	}

	lctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		cfg:    cfg,
		src:    src,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	h.state.Store(int32(StateRunning))
	go h.run(lctx)
	return h
}

// Stop cancels the loop, waits for it to exit and releases the source. No
// callback fires after Stop returns. It is safe to call more than once.
func (h *Handle) Stop() {
	h.cancel()
	<-h.done
}

// Done is closed when the loop has exited for any reason.
func (h *Handle) Done() <-chan struct{} { return h.done }

// State returns the current lifecycle state.
func (h *Handle) State() State { return State(h.state.Load()) }

// Err returns the error that ended the loop, if any.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Last returns the most recent frame result.
func (h *Handle) Last() (Result, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last, h.hasLast
}

// Frames returns how many frames were classified.
func (h *Handle) Frames() int64 { return h.frames.Load() }

func (h *Handle) run(ctx context.Context) {
	defer close(h.done)
	defer func() {
		if err := h.src.Close(); err != nil {
			h.cfg.logger.Warn(ctx, "closing keypoint source", logger.Error(err))
		}
	}()
	defer h.state.CompareAndSwap(int32(StateRunning), int32(StateStopped))

	ticker := time.NewTicker(h.cfg.interval)
	defer ticker.Stop()

	for {
		if !h.frame(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// frame processes one tick. It returns false when the loop must stop.
func (h *Handle) frame(ctx context.Context) bool {
	ectx, cancel := context.WithTimeout(ctx, h.cfg.timeout)
	pose, err := h.src.Estimate(ectx)
	cancel()

	var c model.Classification
	switch {
	case ctx.Err() != nil:
		return false
	case err == nil:
		c = h.cfg.classifier.Classify(pose)
	case errors.Is(err, ErrUnavailable):
		h.mu.Lock()
		h.err = err
		h.mu.Unlock()
		h.state.Store(int32(StateUnavailable))
		h.cfg.logger.Warn(ctx, "keypoint source unavailable, stopping", logger.Error(err))
		return false
	case errors.Is(err, context.DeadlineExceeded):
		metrics.RecordFrameFailure("timeout")
		c = model.Classification{
			Label:      model.LabelUncertain,
			Confidence: h.cfg.classifier.Policy().UncertainConfidence,
		}
	default:
		metrics.RecordFrameFailure("error")
		h.cfg.logger.Debug(ctx, "estimate failed", logger.Error(err))
		c = h.cfg.classifier.Classify(model.Pose{})
	}

	d := h.cfg.tracker.Observe(c)
	now := h.cfg.now()
	res := Result{
		Frame:          h.frames.Add(1),
		At:             now,
		Classification: c,
		Decision:       d,
	}
	metrics.RecordFrameProcessed()
	metrics.RecordClassification(string(c.Label))
	if d.Suppressed {
		metrics.RecordNudgeSuppressed()
	}

	if d.ShouldStore && h.cfg.submitter != nil && h.dueForSubmit(now) {
		err := h.cfg.submitter.Enqueue(ctx, model.TrackRequest{
			Label:      c.Label,
			Confidence: c.Confidence,
			ObservedAt: now,
		})
		if err != nil {
			metrics.RecordTrackSubmitted("dropped")
			h.cfg.logger.Debug(ctx, "track request dropped", logger.Error(err))
		} else {
			metrics.RecordTrackSubmitted("queued")
			res.Submitted = true
			h.mu.Lock()
			h.lastSubmit = now
			h.mu.Unlock()
		}
	}

	h.mu.Lock()
	h.last, h.hasLast = res, true
	h.mu.Unlock()

	// Stop may have been requested while this frame was in flight.
	if ctx.Err() != nil {
		return false
	}
	if h.cfg.onResult != nil {
		h.cfg.onResult(res)
	}
	if d.ShouldNudge {
		metrics.RecordNudge()
		h.cfg.logger.Debug(ctx, "nudge",
			logger.Float64("confidence", c.Confidence),
			logger.Int("streak", d.Streak),
		)
		if h.cfg.onNudge != nil {
			h.cfg.onNudge(res)
		}
	}
	return true
}

func (h *Handle) dueForSubmit(now time.Time) bool {
	if h.cfg.trackInterval == 0 {
		return true
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastSubmit.IsZero() || now.Sub(h.lastSubmit) >= h.cfg.trackInterval
}

// Package worker drains track requests off the queue into a Recorder.
//
// Writes are best effort: a failed Record is logged and counted, never
// retried and never reported back to the frame loop.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/posture/internal/domain/model"
	"github.com/okian/posture/pkg/logger"
	"github.com/okian/posture/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount    = 2
	defaultRecordTimeout  = 5 * time.Second
	workerShutdownTimeout = 5 * time.Second
)

// Recorder persists a track request. It reports whether an event was stored.
type Recorder interface {
	Record(ctx context.Context, r model.TrackRequest) (bool, error)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, r model.TrackRequest) (bool, error)

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, r model.TrackRequest) (bool, error) {
	return f(ctx, r)
}

// Queue defines how workers receive requests.
type Queue interface {
	Dequeue() <-chan model.TrackRequest
}

// dequeueMarker is implemented by queues that track consumption.
type dequeueMarker interface {
	MarkDequeued()
}

// Stats counts outcomes across a pool.
type Stats struct {
	Processed int64
	Stored    int64
	Failed    int64
}

type counters struct {
	processed atomic.Int64
	stored    atomic.Int64
	failed    atomic.Int64
}

// Worker processes requests until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current request.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue         Queue
	recorder      Recorder
	name          string
	recordTimeout time.Duration
	stats         *counters

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:         queue,
		recorder:      recorder,
		name:          "worker",
		recordTimeout: defaultRecordTimeout,
		stats:         &counters{},
		shutdown:      make(chan struct{}),
		done:          make(chan struct{}),
		logger:        logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop. It returns when ctx is cancelled, Shutdown is
// called, or the queue channel is closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	requests := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case r, ok := <-requests:
			if !ok {
				return
			}
			if m, ok := w.queue.(dequeueMarker); ok {
				m.MarkDequeued()
			}
			w.process(ctx, r)
		}
	}
}

// Shutdown signals the worker and waits for it to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process records r and swallows any error after logging it.
func (w *InMemoryWorker) process(ctx context.Context, r model.TrackRequest) {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	w.stats.processed.Add(1)
	rctx, cancel := context.WithTimeout(ctx, w.recordTimeout)
	defer cancel()

	stored, err := w.recorder.Record(rctx, r)
	if err != nil {
		w.stats.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "record_error")
		w.logger.Warn(ctx, "track write failed",
			logger.String("label", string(r.Label)),
			logger.Float64("confidence", r.Confidence),
			logger.Error(err),
		)
		return
	}
	if stored {
		w.stats.stored.Add(1)
	}
	w.logger.Debug(ctx, "track recorded",
		logger.String("label", string(r.Label)),
		logger.Bool("stored", stored),
		logger.Duration("lag", time.Since(r.ObservedAt)),
	)
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	stats   *counters
	logger  logger.Logger
}

// NewPool creates a new worker pool. A count below one uses the default.
func NewPool(workerCount int, queue Queue, recorder Recorder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		stats:   &counters{},
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(queue, recorder, wopts...)
		w.stats = pool.stats
		pool.workers[i] = w
	}
	metrics.UpdateWorkerActiveCount(0)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Processed: p.stats.processed.Load(),
		Stored:    p.stats.stored.Load(),
		Failed:    p.stats.failed.Load(),
	}
}

// Stop signals every worker and waits briefly for each to exit. Pending
// requests are abandoned.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		w.shutdownOnce.Do(func() { close(w.shutdown) })
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
	metrics.UpdateWorkerActiveCount(0)
}

// Shutdown closes the queue and lets workers drain what is already pending
// until ctx expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	if timedOut {
		// Stop stragglers that are still draining.
		for _, w := range p.workers {
			w.shutdownOnce.Do(func() { close(w.shutdown) })
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	return nil
}

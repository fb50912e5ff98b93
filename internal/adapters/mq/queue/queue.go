// Package queue is the bounded hand-off between the frame loop and the
// track writers.
//
// Enqueue never blocks. When the queue is saturated the newest request is
// dropped and the caller is told so; requests already waiting are kept.
package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/posture/internal/domain/model"
	"github.com/okian/posture/pkg/metrics"
)

const defaultQueueCapacity = 64

// Request is the payload type flowing through the queue.
type Request = model.TrackRequest

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue offers a request without blocking.
	Enqueue(ctx context.Context, r Request) error

	// Dequeue returns the channel requests are delivered on. The channel is
	// closed once the queue is closed and drained.
	Dequeue() <-chan Request

	// Len returns the current number of pending requests.
	Len() int

	// Close stops accepting requests.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	requests chan Request
	capacity int
	dropped  atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.requests = make(chan Request, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue adds r without blocking. It returns ErrFull when the queue is
// saturated and ErrClosed after Close.
func (q *InMemoryQueue) Enqueue(ctx context.Context, r Request) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	select {
	case q.requests <- r:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	default:
		q.dropped.Add(1)
		metrics.RecordQueueDropped()
		return ErrFull
	}
}

// Dequeue returns the receive side of the buffer.
func (q *InMemoryQueue) Dequeue() <-chan Request {
	return q.requests
}

// Len returns the current number of pending requests.
func (q *InMemoryQueue) Len() int {
	return len(q.requests)
}

// Dropped returns how many requests were rejected because the queue was full.
func (q *InMemoryQueue) Dropped() uint64 {
	return q.dropped.Load()
}

// Capacity returns the configured bound.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Close stops accepting requests. Pending requests remain readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.requests)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// MarkDequeued updates size gauges after a consumer took a request.
func (q *InMemoryQueue) MarkDequeued() {
	metrics.RecordQueueDequeue()
	q.observe()
}

func (q *InMemoryQueue) observe() {
	size := len(q.requests)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/posture/internal/domain/model"
)

func request(label model.Label) Request {
	return Request{Label: label, Confidence: 0.9, ObservedAt: time.Now()}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if err := q.Enqueue(ctx, request(model.LabelGood)); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	r := <-q.Dequeue()
	q.MarkDequeued()
	if r.Label != model.LabelGood {
		t.Errorf("expected good, got %v", r.Label)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_DropsNewestWhenFull(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	first := request(model.LabelGood)
	second := request(model.LabelSlouched)
	if err := q.Enqueue(ctx, first); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, second); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, request(model.LabelGood)); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if q.Dropped() != 1 {
		t.Errorf("expected 1 dropped, got %d", q.Dropped())
	}
	if q.Capacity() != 2 {
		t.Errorf("expected capacity 2, got %d", q.Capacity())
	}

	// The waiting requests survive in order.
	if r := <-q.Dequeue(); r.Label != first.Label {
		t.Errorf("expected %v first, got %v", first.Label, r.Label)
	}
	if r := <-q.Dequeue(); r.Label != second.Label {
		t.Errorf("expected %v second, got %v", second.Label, r.Label)
	}
}

func TestInMemoryQueue_EnqueueNeverBlocks(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			_ = q.Enqueue(ctx, request(model.LabelGood))
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a saturated queue")
	}
	if q.Dropped() != 999 {
		t.Errorf("expected 999 dropped, got %d", q.Dropped())
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Enqueue(ctx, request(model.LabelGood)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()
	const producers, perProducer = 10, 100

	var consumed sync.WaitGroup
	var mu sync.Mutex
	received := 0
	for i := 0; i < 4; i++ {
		consumed.Add(1)
		go func() {
			defer consumed.Done()
			for range q.Dequeue() {
				q.MarkDequeued()
				mu.Lock()
				received++
				mu.Unlock()
			}
		}()
	}

	var produced sync.WaitGroup
	for i := 0; i < producers; i++ {
		produced.Add(1)
		go func() {
			defer produced.Done()
			for j := 0; j < perProducer; j++ {
				for q.Enqueue(ctx, request(model.LabelGood)) != nil {
					time.Sleep(time.Millisecond)
				}
			}
		}()
	}
	produced.Wait()
	_ = q.Close()
	consumed.Wait()

	if received != producers*perProducer {
		t.Errorf("expected %d received, got %d", producers*perProducer, received)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if err := q.Enqueue(ctx, request(model.LabelGood)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if err := q.Enqueue(ctx, request(model.LabelGood)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// Pending requests drain before the channel reports closed.
	if _, ok := <-q.Dequeue(); !ok {
		t.Error("expected pending request after close")
	}
	if _, ok := <-q.Dequeue(); ok {
		t.Error("expected channel closed after drain")
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got error: %v", err)
	}
}

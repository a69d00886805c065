// Package queue carries unlock notices from the progression controller to
// the dispatch workers.
//
// The queue is in-memory and bounded: a notice that does not fit is dropped
// rather than blocking the caller, and queued notices are lost on restart.
package queue

import (
	"context"
	"sync"

	"github.com/okian/ascend/internal/domain/model"
	"github.com/okian/ascend/pkg/metrics"
)

const defaultCapacity = 1_024

// Notice is the payload flowing through the queue.
type Notice = model.UnlockNotice

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a notice to the queue.
	// Returns false if the queue is full or closed and the notice was dropped.
	Enqueue(ctx context.Context, n Notice) bool

	// Dequeue returns a channel that receives notices as they become available.
	// The channel is closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Notice

	// Len returns the current number of queued notices.
	Len(ctx context.Context) int

	// Close stops accepting notices. Already queued notices stay readable.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	notices  chan Notice
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.notices = make(chan Notice, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a notice to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, n Notice) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return false
	}
	if ctx.Err() != nil {
		metrics.RecordQueueEnqueueError("context_cancelled")
		return false
	}

	select {
	case q.notices <- n:
		metrics.UpdateQueueSize(len(q.notices))
		return true
	default:
		metrics.RecordQueueEnqueueError("queue_full")
		return false
	}
}

// Dequeue returns a channel that receives notices until the queue is closed
// and drained or ctx is cancelled.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Notice {
	out := make(chan Notice)
	go func() {
		defer close(out)
		for n := range q.notices {
			select {
			case out <- n:
				metrics.UpdateQueueSize(len(q.notices))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued notices.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.notices)
}

// Close stops accepting notices.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.notices)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

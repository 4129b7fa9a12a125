// Package queue provides the bounded in-memory buffer between batch intake
// and the processing workers. Enqueue never blocks: a full queue reports
// backpressure to the caller instead of stalling the batch.
package queue

import (
	"context"
	"sync"

	"github.com/newslens/hypetrack/internal/domain/model"
	"github.com/newslens/hypetrack/pkg/metrics"
)

const defaultCapacity = 50000

// Item is the payload flowing through the queue.
type Item = *model.Article

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an article. Returns false when the queue is full or
	// closed and the article was not accepted.
	Enqueue(ctx context.Context, a Item) bool

	// Dequeue returns a channel receiving articles as they become
	// available; it is closed when the queue closes.
	Dequeue(ctx context.Context) <-chan Item

	// Len returns the current number of buffered articles.
	Len() int

	// Close stops intake; buffered articles still drain to consumers.
	Close() error

	// IsClosed reports whether Close has been called.
	IsClosed() bool
}

// InMemory implements Queue on a buffered channel.
type InMemory struct {
	items    chan Item
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemory creates a queue with the configured capacity.
func NewInMemory(opts ...Option) *InMemory {
	q := &InMemory{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan Item, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue adds an article to the queue.
func (q *InMemory) Enqueue(ctx context.Context, a Item) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueError("closed")
		return false
	}

	select {
	case q.items <- a:
		metrics.RecordQueueEnqueue()
		q.publishGauges()
		return true
	case <-ctx.Done():
		metrics.RecordQueueError("context_cancelled")
		return false
	default:
		metrics.RecordQueueError("full")
		return false
	}
}

// Dequeue returns a channel receiving queued articles.
func (q *InMemory) Dequeue(ctx context.Context) <-chan Item {
	out := make(chan Item)
	go func() {
		defer close(out)
		for a := range q.items {
			select {
			case out <- a:
				metrics.RecordQueueDequeue()
				q.publishGauges()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the number of buffered articles.
func (q *InMemory) Len() int {
	return len(q.items)
}

// Close stops intake. Safe to call more than once.
func (q *InMemory) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed reports whether the queue has been closed.
func (q *InMemory) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemory) publishGauges() {
	size := len(q.items)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

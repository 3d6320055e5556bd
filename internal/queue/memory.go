package queue

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/tesserae/tess-jobs/pkg/metrics"
)

// BoundedQueue is an in-process queue of fixed capacity. Workers read from Items.
// It is safe for concurrent use.
type BoundedQueue struct {
	items   chan WorkItem
	limiter *rate.Limiter
}

var _ Queue = (*BoundedQueue)(nil)

type BoundedQueueOption func(*BoundedQueue)

// WithRateLimit admits at most limit items per second with the given burst. Items over the
// rate are rejected as if the queue were full.
func WithRateLimit(limit float64, burst int) BoundedQueueOption {
	return func(q *BoundedQueue) {
		if limit <= 0 {
			return
		}
		if burst <= 0 {
			burst = 1
		}
		q.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}
}

func NewBoundedQueue(capacity int, opts ...BoundedQueueOption) *BoundedQueue {
	if capacity < 0 {
		capacity = 0
	}
	q := &BoundedQueue{items: make(chan WorkItem, capacity)}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *BoundedQueue) Enqueue(ctx context.Context, item WorkItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if q.limiter != nil && !q.limiter.Allow() {
		return ErrQueueSaturated
	}

	select {
	case q.items <- item:
		metrics.UpdateQueueDepthMetric(len(q.items))
		return nil
	default:
		return ErrQueueSaturated
	}
}

// Items is the receive side drained by the worker pool.
func (q *BoundedQueue) Items() <-chan WorkItem {
	return q.items
}

func (q *BoundedQueue) Depth() int {
	return len(q.items)
}

func (q *BoundedQueue) Capacity() int {
	return cap(q.items)
}

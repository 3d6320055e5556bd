package queue

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/tesserae/tess-jobs/internal/store/model"
)

// ErrQueueSaturated is returned by Enqueue when the queue has no room left.
var ErrQueueSaturated = errors.New("work queue is at capacity")

// WorkItem asks a worker to run the job JobID.
type WorkItem struct {
	JobID      string          `json:"job_id"`
	JobType    model.JobType   `json:"job_type"`
	Parameters json.RawMessage `json:"parameters"`
}

// Queue carries work items to the worker pool. Enqueue never waits for capacity: it
// returns nil or ErrQueueSaturated right away.
type Queue interface {
	Enqueue(ctx context.Context, item WorkItem) error
}

// DepthFunc reports how many work items are waiting for or held by a worker.
type DepthFunc func(ctx context.Context) (int, error)

// DepthOf returns the depth function of q, or nil when q cannot report its depth.
func DepthOf(q Queue) DepthFunc {
	switch t := q.(type) {
	case *BoundedQueue:
		return func(context.Context) (int, error) { return t.Depth(), nil }
	case *RiverQueue:
		return t.Pending
	default:
		return nil
	}
}

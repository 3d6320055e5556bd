package queue

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"

	"github.com/tesserae/tess-jobs/internal/store"
	"github.com/tesserae/tess-jobs/pkg/metrics"
)

const (
	DefaultQueue  = "searches"
	MaxJobRetries = 1
	JobKind       = "tess_search"
)

// SearchArgs is the river payload of a work item. It is stored in river_job.args as JSON.
type SearchArgs struct {
	WorkItem
}

// Kind returns the job kind for River registration.
func (SearchArgs) Kind() string {
	return JobKind
}

// InsertOpts returns the default insert options for this job type.
func (SearchArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       DefaultQueue,
		MaxAttempts: MaxJobRetries,
	}
}

type inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// RiverQueue hands work items to an external river worker pool. Capacity is enforced by
// counting the jobs of the queue that are not finished yet; concurrent submitters may
// overshoot it by the number of inserts racing the count.
type RiverQueue struct {
	client      inserter
	pending     store.RiverJob
	name        string
	capacity    int64
	maxAttempts int
}

var _ Queue = (*RiverQueue)(nil)

func NewRiverQueue(client inserter, pending store.RiverJob, name string, capacity, maxAttempts int) *RiverQueue {
	if name == "" {
		name = DefaultQueue
	}
	if maxAttempts <= 0 {
		maxAttempts = MaxJobRetries
	}
	return &RiverQueue{
		client:      client,
		pending:     pending,
		name:        name,
		capacity:    int64(capacity),
		maxAttempts: maxAttempts,
	}
}

func (q *RiverQueue) Enqueue(ctx context.Context, item WorkItem) error {
	count, err := q.pending.CountPending(ctx, q.name)
	if err != nil {
		return err
	}
	metrics.UpdateQueueDepthMetric(int(count))
	if count >= q.capacity {
		return ErrQueueSaturated
	}

	_, err = q.client.Insert(ctx, SearchArgs{WorkItem: item}, &river.InsertOpts{
		Queue:       q.name,
		MaxAttempts: q.maxAttempts,
	})
	if err != nil {
		return fmt.Errorf("inserting river job: %w", err)
	}
	return nil
}

// Pending counts the jobs of the queue which are not finished yet.
func (q *RiverQueue) Pending(ctx context.Context) (int, error) {
	count, err := q.pending.CountPending(ctx, q.name)
	return int(count), err
}

// NewRiverClient builds an insert-only river client: no queues are worked in this process.
func NewRiverClient(pool *pgxpool.Pool) (*river.Client[pgx.Tx], error) {
	return river.NewClient(riverpgxv5.New(pool), &river.Config{})
}

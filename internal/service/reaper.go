package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tesserae/tess-jobs/internal/store"
	"github.com/tesserae/tess-jobs/internal/store/model"
)

const (
	neverScheduled = "job was never scheduled"
	workLost       = "work item was lost before a worker started the job"
)

// PendingWork tells whether a job still has a work item waiting for or held by a worker.
type PendingWork interface {
	HasPending(ctx context.Context, jobID string) (bool, error)
}

// Reaper fails jobs left CREATED for longer than maxAge, which frees their cache key for
// a new submission. A job is failed when its work item never reached the queue or, when
// the queue can be inspected, when the queue no longer holds it. A scheduled job is kept
// as long as the queue cannot tell.
type Reaper struct {
	jobs      store.Job
	pending   PendingWork
	maxAge    time.Duration
	batchSize int
	now       func() time.Time
}

func NewReaper(jobs store.Job, maxAge time.Duration, batchSize int) *Reaper {
	return &Reaper{
		jobs:      jobs,
		maxAge:    maxAge,
		batchSize: batchSize,
		now:       time.Now,
	}
}

func (r *Reaper) WithClock(now func() time.Time) *Reaper {
	r.now = now
	return r
}

// WithPendingWork lets the reaper fail scheduled jobs whose work item left the queue
// without a worker starting them.
func (r *Reaper) WithPendingWork(p PendingWork) *Reaper {
	r.pending = p
	return r
}

// Sweep fails every stale CREATED job which cannot be started anymore and returns how many
// were failed.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	logger := zap.S().Named("reaper")
	before := r.now().Add(-r.maxAge)
	reaped, kept := 0, 0

	for {
		jobs, err := r.jobs.ListStale(ctx, model.JobStatusCreated, before, kept, r.batchSize)
		if err != nil {
			return reaped, err
		}

		for _, job := range jobs {
			reason, err := r.reason(ctx, job)
			if err != nil {
				return reaped, err
			}
			if reason == "" {
				// stays in the listing, skip past it next time
				kept++
				logger.Debugw("stale job still queued", "job_id", job.ID)
				continue
			}

			err = r.jobs.UpdateStatus(ctx, job.ID, model.JobStatusFailed, &store.StatusExtras{Error: &reason})
			switch {
			case err == nil:
				reaped++
				logger.Infow("failed stale job", "job_id", job.ID, "job_type", job.JobType, "created_at", job.CreatedAt, "reason", reason)
			case errors.Is(err, store.ErrInvalidTransition), errors.Is(err, store.ErrRecordNotFound):
				// picked up by a worker meanwhile
				logger.Debugw("stale job moved on", "job_id", job.ID)
			default:
				return reaped, err
			}
		}

		if r.batchSize <= 0 || len(jobs) < r.batchSize {
			return reaped, nil
		}
	}
}

// reason returns why job has to be failed, or "" when it may still be started.
func (r *Reaper) reason(ctx context.Context, job model.Job) (string, error) {
	if job.Unscheduled() {
		return neverScheduled, nil
	}
	if r.pending == nil {
		return "", nil
	}
	queued, err := r.pending.HasPending(ctx, job.ID)
	if err != nil || queued {
		return "", err
	}
	return workLost, nil
}

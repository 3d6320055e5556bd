package store

import (
	"context"

	"github.com/riverqueue/river/rivertype"
	"gorm.io/gorm"
)

// pendingStates are the river job states which still occupy a slot of the queue.
var pendingStates = []rivertype.JobState{
	rivertype.JobStateAvailable,
	rivertype.JobStateScheduled,
	rivertype.JobStateRetryable,
	rivertype.JobStateRunning,
}

// RiverJob reads river's job table. The river queue uses it to enforce its capacity and the
// reaper to tell a queued job from one whose work item is gone.
type RiverJob interface {
	CountPending(ctx context.Context, queue string) (int64, error)
	HasPending(ctx context.Context, jobID string) (bool, error)
}

type RiverJobStore struct {
	db *gorm.DB
}

var _ RiverJob = (*RiverJobStore)(nil)

func NewRiverJobStore(db *gorm.DB) RiverJob {
	return &RiverJobStore{db: db}
}

func (r *RiverJobStore) CountPending(ctx context.Context, queue string) (int64, error) {
	var count int64
	if err := r.pending(ctx).Where("queue = ?", queue).Count(&count).Error; err != nil {
		return 0, Unavailable("count pending river jobs", err)
	}
	return count, nil
}

// HasPending reports whether a work item of the job is still waiting for or held by a
// worker. The job id is read from the json args of the river job.
func (r *RiverJobStore) HasPending(ctx context.Context, jobID string) (bool, error) {
	var count int64
	if err := r.pending(ctx).Where("args->>'job_id' = ?", jobID).Count(&count).Error; err != nil {
		return false, Unavailable("find pending river job", err)
	}
	return count > 0, nil
}

func (r *RiverJobStore) pending(ctx context.Context) *gorm.DB {
	states := make([]string, 0, len(pendingStates))
	for _, state := range pendingStates {
		states = append(states, string(state))
	}

	db := FromContext(ctx)
	if db == nil {
		db = r.db.WithContext(ctx)
	}
	return db.Table("river_job").Where("state IN ?", states)
}

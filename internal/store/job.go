package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tesserae/tess-jobs/internal/store/model"
)

// StatusExtras carries the values written together with a status transition. Results and
// summary are only kept on DONE, the error message only on FAILED.
type StatusExtras struct {
	ResultsRef *string
	Summary    *model.JobSummary
	Error      *string
}

// Job interface for job-related database operations
type Job interface {
	// FindByCacheKey returns the live job for jobType and key, preferring a DONE job.
	// FAILED jobs are never returned.
	FindByCacheKey(ctx context.Context, jobType model.JobType, key string) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	Create(ctx context.Context, job model.Job) (*model.Job, error)
	UpdateStatus(ctx context.Context, id string, status model.JobStatus, extras *StatusExtras) error
	TouchLastQueried(ctx context.Context, id string) error
	// MarkScheduled records that the work item of the job was accepted by the queue. Only the
	// first call has an effect.
	MarkScheduled(ctx context.Context, id string) error
	SetSummary(ctx context.Context, id string, summary model.JobSummary) error
	// ListStale returns the jobs in status created before the given time, oldest first,
	// skipping the first offset of them.
	ListStale(ctx context.Context, status model.JobStatus, before time.Time, offset, limit int) (model.JobList, error)
}

// JobStore implements the Job interface
type JobStore struct {
	db *gorm.DB
}

// Make sure we conform to Job interface
var _ Job = (*JobStore)(nil)

func NewJobStore(db *gorm.DB) Job {
	return &JobStore{db: db}
}

func (s *JobStore) FindByCacheKey(ctx context.Context, jobType model.JobType, key string) (*model.Job, error) {
	var jobs model.JobList
	result := s.getDB(ctx).
		Where("job_type = ? AND cache_key = ? AND status <> ?", jobType, key, model.JobStatusFailed).
		Order(fmt.Sprintf("CASE WHEN status = '%s' THEN 0 ELSE 1 END", model.JobStatusDone)).
		Order("created_at DESC").
		Limit(1).
		Find(&jobs)
	if result.Error != nil {
		return nil, Unavailable("find job by cache key", result.Error)
	}
	if len(jobs) == 0 {
		return nil, ErrRecordNotFound
	}
	return &jobs[0], nil
}

func (s *JobStore) Get(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	result := s.getDB(ctx).First(&job, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, Unavailable("get job", result.Error)
	}
	return &job, nil
}

func (s *JobStore) Create(ctx context.Context, job model.Job) (*model.Job, error) {
	result := s.getDB(ctx).Create(&job)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, Unavailable("create job", result.Error)
		}
		// Two unique constraints may fire: the primary key and the live cache key index.
		if _, err := s.Get(ctx, job.ID); err == nil {
			return nil, ErrDuplicateID
		}
		return nil, ErrCacheKeyConflict
	}
	return &job, nil
}

func (s *JobStore) UpdateStatus(ctx context.Context, id string, status model.JobStatus, extras *StatusExtras) error {
	updates := map[string]any{"status": status}
	if extras != nil {
		switch status {
		case model.JobStatusDone:
			if extras.ResultsRef != nil {
				updates["results_ref"] = *extras.ResultsRef
			}
			if extras.Summary != nil {
				updates["max_score"] = extras.Summary.MaxScore
				updates["total_count"] = extras.Summary.TotalCount
			}
		case model.JobStatusFailed:
			if extras.Error != nil {
				updates["error"] = *extras.Error
			}
		}
	}

	from := model.Predecessors(status)
	if len(from) > 0 {
		result := s.getDB(ctx).Model(&model.Job{}).Where("id = ? AND status IN ?", id, from).Updates(updates)
		if result.Error != nil {
			return Unavailable("update job status", result.Error)
		}
		if result.RowsAffected > 0 {
			return nil
		}
	}

	// nothing matched: either the job does not exist or the move is not allowed
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ErrInvalidTransition
}

func (s *JobStore) TouchLastQueried(ctx context.Context, id string) error {
	result := s.getDB(ctx).Model(&model.Job{}).Where("id = ?", id).UpdateColumn("last_queried_at", time.Now())
	if result.Error != nil {
		return Unavailable("touch job", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *JobStore) MarkScheduled(ctx context.Context, id string) error {
	result := s.getDB(ctx).Model(&model.Job{}).
		Where("id = ? AND scheduled_at IS NULL", id).
		UpdateColumn("scheduled_at", time.Now())
	if result.Error != nil {
		return Unavailable("mark job scheduled", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// SetSummary stores the summary of a DONE job unless one is already present.
func (s *JobStore) SetSummary(ctx context.Context, id string, summary model.JobSummary) error {
	result := s.getDB(ctx).Model(&model.Job{}).
		Where("id = ? AND status = ? AND max_score IS NULL AND total_count IS NULL", id, model.JobStatusDone).
		UpdateColumns(map[string]any{"max_score": summary.MaxScore, "total_count": summary.TotalCount})
	if result.Error != nil {
		return Unavailable("set job summary", result.Error)
	}
	return nil
}

func (s *JobStore) ListStale(ctx context.Context, status model.JobStatus, before time.Time, offset, limit int) (model.JobList, error) {
	filter := NewJobQueryFilter().ByStatus(status).CreatedBefore(before)
	if offset > 0 {
		filter = filter.WithOffset(offset)
	}
	if limit > 0 {
		filter = filter.WithLimit(limit)
	}

	tx := s.getDB(ctx).Model(&model.Job{}).Order("created_at ASC").Order("id ASC")
	for _, fn := range filter.QueryFn {
		tx = fn(tx)
	}

	var jobs model.JobList
	if err := tx.Find(&jobs).Error; err != nil {
		return nil, Unavailable("list stale jobs", err)
	}
	return jobs, nil
}

func (s *JobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}

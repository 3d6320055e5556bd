package store

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tesserae/tess-jobs/internal/store/model"
)

// CachedJobStore is a wrapper around a Job store which caches DONE jobs. A DONE job is
// terminal and its parameters, results and summary never change, so a cached copy stays
// valid. LastQueriedAt of a cached copy may lag behind the database.
type CachedJobStore struct {
	delegate Job
	byID     *lru.Cache[string, model.Job]
	byKey    *lru.Cache[string, string]
}

var _ Job = (*CachedJobStore)(nil)

func NewCachedJobStore(delegate Job, size int) (*CachedJobStore, error) {
	byID, err := lru.New[string, model.Job](size)
	if err != nil {
		return nil, err
	}
	byKey, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &CachedJobStore{delegate: delegate, byID: byID, byKey: byKey}, nil
}

func (c *CachedJobStore) FindByCacheKey(ctx context.Context, jobType model.JobType, key string) (*model.Job, error) {
	// try cache first
	if id, found := c.byKey.Get(cacheKeyOf(jobType, key)); found {
		if job, found := c.byID.Get(id); found {
			return &job, nil
		}
	}

	job, err := c.delegate.FindByCacheKey(ctx, jobType, key)
	if err != nil {
		return nil, err
	}
	c.remember(job)
	return job, nil
}

func (c *CachedJobStore) Get(ctx context.Context, id string) (*model.Job, error) {
	if job, found := c.byID.Get(id); found {
		return &job, nil
	}

	job, err := c.delegate.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.remember(job)
	return job, nil
}

func (c *CachedJobStore) Create(ctx context.Context, job model.Job) (*model.Job, error) {
	return c.delegate.Create(ctx, job)
}

func (c *CachedJobStore) UpdateStatus(ctx context.Context, id string, status model.JobStatus, extras *StatusExtras) error {
	return c.delegate.UpdateStatus(ctx, id, status, extras)
}

func (c *CachedJobStore) TouchLastQueried(ctx context.Context, id string) error {
	return c.delegate.TouchLastQueried(ctx, id)
}

func (c *CachedJobStore) MarkScheduled(ctx context.Context, id string) error {
	return c.delegate.MarkScheduled(ctx, id)
}

func (c *CachedJobStore) SetSummary(ctx context.Context, id string, summary model.JobSummary) error {
	// the cached copy lacks the summary; drop it so the next read sees the stored one
	c.byID.Remove(id)
	return c.delegate.SetSummary(ctx, id, summary)
}

func (c *CachedJobStore) ListStale(ctx context.Context, status model.JobStatus, before time.Time, offset, limit int) (model.JobList, error) {
	return c.delegate.ListStale(ctx, status, before, offset, limit)
}

func (c *CachedJobStore) remember(job *model.Job) {
	if job.Status != model.JobStatusDone {
		return
	}
	c.byID.Add(job.ID, *job)
	c.byKey.Add(cacheKeyOf(job.JobType, job.CacheKey), job.ID)
}

func cacheKeyOf(jobType model.JobType, key string) string {
	return string(jobType) + "/" + key
}

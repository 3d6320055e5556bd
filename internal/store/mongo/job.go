package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/tesserae/tess-jobs/internal/store"
	"github.com/tesserae/tess-jobs/internal/store/model"
)

type JobStore struct {
	col *mongod.Collection
}

var _ store.Job = (*JobStore)(nil)

func (s *JobStore) FindByCacheKey(ctx context.Context, jobType model.JobType, key string) (*model.Job, error) {
	// a DONE job wins over any in-flight one
	filters := []bson.M{
		{"job_type": string(jobType), "cache_key": key, "status": string(model.JobStatusDone)},
		{"job_type": string(jobType), "cache_key": key, "status": bson.M{"$ne": string(model.JobStatusFailed)}},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	for _, filter := range filters {
		var m jobModel
		err := s.col.FindOne(ctx, filter, opts).Decode(&m)
		if err == nil {
			return fromJobModel(&m)
		}
		if !isNoDocuments(err) {
			return nil, store.Unavailable("find job by cache key", err)
		}
	}
	return nil, store.ErrRecordNotFound
}

func (s *JobStore) Get(ctx context.Context, id string) (*model.Job, error) {
	var m jobModel
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, store.ErrRecordNotFound
		}
		return nil, store.Unavailable("get job", err)
	}
	return fromJobModel(&m)
}

func (s *JobStore) Create(ctx context.Context, job model.Job) (*model.Job, error) {
	t := now()
	job.CreatedAt = t
	job.UpdatedAt = t

	m, err := toJobModel(job)
	if err != nil {
		return nil, err
	}

	if _, err := s.col.InsertOne(ctx, m); err != nil {
		if !mongod.IsDuplicateKeyError(err) {
			return nil, store.Unavailable("create job", err)
		}
		if _, err := s.Get(ctx, job.ID); err == nil {
			return nil, store.ErrDuplicateID
		}
		return nil, store.ErrCacheKeyConflict
	}
	return &job, nil
}

func (s *JobStore) UpdateStatus(ctx context.Context, id string, status model.JobStatus, extras *store.StatusExtras) error {
	set := bson.M{"status": string(status), "updated_at": now()}
	if extras != nil {
		switch status {
		case model.JobStatusDone:
			if extras.ResultsRef != nil {
				set["results_ref"] = *extras.ResultsRef
			}
			if extras.Summary != nil {
				set["max_score"] = extras.Summary.MaxScore
				set["total_count"] = extras.Summary.TotalCount
			}
		case model.JobStatusFailed:
			if extras.Error != nil {
				set["error"] = *extras.Error
			}
		}
	}

	from := model.Predecessors(status)
	if len(from) > 0 {
		statuses := make([]string, 0, len(from))
		for _, f := range from {
			statuses = append(statuses, string(f))
		}
		res, err := s.col.UpdateOne(ctx,
			bson.M{"_id": id, "status": bson.M{"$in": statuses}},
			bson.M{"$set": set},
		)
		if err != nil {
			return store.Unavailable("update job status", err)
		}
		if res.MatchedCount > 0 {
			return nil
		}
	}

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return store.ErrInvalidTransition
}

func (s *JobStore) TouchLastQueried(ctx context.Context, id string) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_queried_at": now()}})
	if err != nil {
		return store.Unavailable("touch job", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrRecordNotFound
	}
	return nil
}

func (s *JobStore) MarkScheduled(ctx context.Context, id string) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, "scheduled_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"scheduled_at": now()}},
	)
	if err != nil {
		return store.Unavailable("mark job scheduled", err)
	}
	if res.MatchedCount == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *JobStore) SetSummary(ctx context.Context, id string, summary model.JobSummary) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{
			"_id":         id,
			"status":      string(model.JobStatusDone),
			"max_score":   bson.M{"$exists": false},
			"total_count": bson.M{"$exists": false},
		},
		bson.M{"$set": bson.M{"max_score": summary.MaxScore, "total_count": summary.TotalCount}},
	)
	if err != nil {
		return store.Unavailable("set job summary", err)
	}
	return nil
}

func (s *JobStore) ListStale(ctx context.Context, status model.JobStatus, before time.Time, offset, limit int) (model.JobList, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.col.Find(ctx, bson.M{"status": string(status), "created_at": bson.M{"$lt": before}}, opts)
	if err != nil {
		return nil, store.Unavailable("list stale jobs", err)
	}
	defer cursor.Close(ctx)

	var models []jobModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, store.Unavailable("list stale jobs", err)
	}

	jobs := make(model.JobList, 0, len(models))
	for i := range models {
		j, err := fromJobModel(&models[i])
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, nil
}

package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/tesserae/tess-jobs/internal/store/model"
)

type jobModel struct {
	ID            string     `bson:"_id"`
	JobType       string     `bson:"job_type"`
	Status        string     `bson:"status"`
	Parameters    bson.D     `bson:"parameters"`
	CacheKey      string     `bson:"cache_key"`
	CreatedAt     time.Time  `bson:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at"`
	LastQueriedAt *time.Time `bson:"last_queried_at,omitempty"`
	ScheduledAt   *time.Time `bson:"scheduled_at,omitempty"`
	ResultsRef    *string    `bson:"results_ref,omitempty"`
	MaxScore      *float64   `bson:"max_score,omitempty"`
	TotalCount    *int64     `bson:"total_count,omitempty"`
	Error         *string    `bson:"error,omitempty"`
}

type resultModel struct {
	ID              bson.ObjectID `bson:"_id,omitempty"`
	JobID           string        `bson:"job_id"`
	Score           float64       `bson:"score"`
	SourceTag       string        `bson:"source_tag"`
	TargetTag       string        `bson:"target_tag"`
	MatchedFeatures string        `bson:"matched_features"`
	SourceSnippet   string        `bson:"source_snippet"`
	TargetSnippet   string        `bson:"target_snippet"`
	Extra           bson.D        `bson:"extra,omitempty"`
}

// Parameters are kept as an embedded document so they stay queryable.
func toJobModel(j model.Job) (*jobModel, error) {
	params, err := toDocument(j.Parameters)
	if err != nil {
		return nil, err
	}
	return &jobModel{
		ID:            j.ID,
		JobType:       string(j.JobType),
		Status:        string(j.Status),
		Parameters:    params,
		CacheKey:      j.CacheKey,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
		LastQueriedAt: j.LastQueriedAt,
		ScheduledAt:   j.ScheduledAt,
		ResultsRef:    j.ResultsRef,
		MaxScore:      j.MaxScore,
		TotalCount:    j.TotalCount,
		Error:         j.Error,
	}, nil
}

func fromJobModel(m *jobModel) (*model.Job, error) {
	params, err := fromDocument(m.Parameters)
	if err != nil {
		return nil, err
	}
	return &model.Job{
		ID:            m.ID,
		JobType:       model.JobType(m.JobType),
		Status:        model.JobStatus(m.Status),
		Parameters:    params,
		CacheKey:      m.CacheKey,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
		LastQueriedAt: m.LastQueriedAt,
		ScheduledAt:   m.ScheduledAt,
		ResultsRef:    m.ResultsRef,
		MaxScore:      m.MaxScore,
		TotalCount:    m.TotalCount,
		Error:         m.Error,
	}, nil
}

func toResultModel(r model.Result) (*resultModel, error) {
	extra, err := toDocument(r.Extra)
	if err != nil {
		return nil, err
	}
	return &resultModel{
		JobID:           r.JobID,
		Score:           r.Score,
		SourceTag:       r.SourceTag,
		TargetTag:       r.TargetTag,
		MatchedFeatures: r.MatchedFeatures,
		SourceSnippet:   r.SourceSnippet,
		TargetSnippet:   r.TargetSnippet,
		Extra:           extra,
	}, nil
}

func fromResultModel(m *resultModel) (model.Result, error) {
	extra, err := fromDocument(m.Extra)
	if err != nil {
		return model.Result{}, err
	}
	return model.Result{
		JobID:           m.JobID,
		Score:           m.Score,
		SourceTag:       m.SourceTag,
		TargetTag:       m.TargetTag,
		MatchedFeatures: m.MatchedFeatures,
		SourceSnippet:   m.SourceSnippet,
		TargetSnippet:   m.TargetSnippet,
		Extra:           extra,
	}, nil
}

func toDocument(data []byte) (bson.D, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func fromDocument(doc bson.D) ([]byte, error) {
	if doc == nil {
		return nil, nil
	}
	return bson.MarshalExtJSON(doc, false, false)
}

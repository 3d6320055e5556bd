package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/tesserae/tess-jobs/internal/store"
	"github.com/tesserae/tess-jobs/internal/store/model"
)

var sortFields = map[string]string{
	"score":            "score",
	"source_tag":       "source_tag",
	"target_tag":       "target_tag",
	"matched_features": "matched_features",
}

type ResultStore struct {
	col *mongod.Collection
}

var _ store.Result = (*ResultStore)(nil)

func (r *ResultStore) List(ctx context.Context, jobID string, window store.Window) (model.ResultList, error) {
	opts := options.Find().SetSort(sortOf(window))
	if window.Offset > 0 {
		opts.SetSkip(int64(window.Offset))
	}
	if window.Limit > 0 {
		opts.SetLimit(int64(window.Limit))
	}

	cursor, err := r.col.Find(ctx, bson.M{"job_id": jobID}, opts)
	if err != nil {
		return nil, store.Unavailable("list results", err)
	}
	defer cursor.Close(ctx)

	var models []resultModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, store.Unavailable("list results", err)
	}

	rows := make(model.ResultList, 0, len(models))
	for i := range models {
		row, err := fromResultModel(&models[i])
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (r *ResultStore) Summary(ctx context.Context, jobID string) (model.JobSummary, error) {
	pipeline := mongod.Pipeline{
		{{Key: "$match", Value: bson.M{"job_id": jobID}}},
		{{Key: "$group", Value: bson.M{
			"_id":         nil,
			"max_score":   bson.M{"$max": "$score"},
			"total_count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return model.JobSummary{}, store.Unavailable("summarize results", err)
	}
	defer cursor.Close(ctx)

	var summary struct {
		MaxScore   float64 `bson:"max_score"`
		TotalCount int64   `bson:"total_count"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&summary); err != nil {
			return model.JobSummary{}, store.Unavailable("summarize results", err)
		}
	}
	if err := cursor.Err(); err != nil {
		return model.JobSummary{}, store.Unavailable("summarize results", err)
	}
	return model.JobSummary{MaxScore: summary.MaxScore, TotalCount: summary.TotalCount}, nil
}

func (r *ResultStore) CreateBatch(ctx context.Context, rows model.ResultList) error {
	if len(rows) == 0 {
		return nil
	}
	docs := make([]any, 0, len(rows))
	for _, row := range rows {
		m, err := toResultModel(row)
		if err != nil {
			return err
		}
		docs = append(docs, m)
	}
	if _, err := r.col.InsertMany(ctx, docs); err != nil {
		return store.Unavailable("create results", err)
	}
	return nil
}

// sortOf orders by the requested field, then by insertion order.
func sortOf(window store.Window) bson.D {
	field, ok := sortFields[window.SortBy]
	if !ok {
		return bson.D{{Key: "_id", Value: 1}}
	}
	direction := 1
	if window.Order == store.SortDescending {
		direction = -1
	}
	return bson.D{{Key: field, Value: direction}, {Key: "_id", Value: 1}}
}

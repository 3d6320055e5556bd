package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/tesserae/tess-jobs/internal/store/model"
)

// Window selects an ordered slice of a job's result rows.
type Window struct {
	SortBy string
	Order  SortOrder
	Offset int
	Limit  int
}

type Result interface {
	List(ctx context.Context, jobID string, window Window) (model.ResultList, error)
	Summary(ctx context.Context, jobID string) (model.JobSummary, error)
	CreateBatch(ctx context.Context, rows model.ResultList) error
}

type ResultStore struct {
	db *gorm.DB
}

var _ Result = (*ResultStore)(nil)

func NewResultStore(db *gorm.DB) Result {
	return &ResultStore{db: db}
}

func (r *ResultStore) List(ctx context.Context, jobID string, window Window) (model.ResultList, error) {
	opts := NewResultQueryOptions().WithSort(window.SortBy, window.Order).WithOffset(window.Offset)
	if window.Limit > 0 {
		opts = opts.WithLimit(window.Limit)
	}

	tx := r.getDB(ctx).Model(&model.Result{}).Where("job_id = ?", jobID)
	for _, fn := range opts.QueryFn {
		tx = fn(tx)
	}

	var rows model.ResultList
	if err := tx.Find(&rows).Error; err != nil {
		return nil, Unavailable("list results", err)
	}
	return rows, nil
}

func (r *ResultStore) Summary(ctx context.Context, jobID string) (model.JobSummary, error) {
	var summary struct {
		MaxScore   *float64
		TotalCount int64
	}
	err := r.getDB(ctx).Model(&model.Result{}).
		Select("MAX(score) AS max_score, COUNT(*) AS total_count").
		Where("job_id = ?", jobID).
		Scan(&summary).Error
	if err != nil {
		return model.JobSummary{}, Unavailable("summarize results", err)
	}

	out := model.JobSummary{TotalCount: summary.TotalCount}
	if summary.MaxScore != nil {
		out.MaxScore = *summary.MaxScore
	}
	return out, nil
}

// CreateBatch writes the rows produced by a worker.
func (r *ResultStore) CreateBatch(ctx context.Context, rows model.ResultList) error {
	if len(rows) == 0 {
		return nil
	}
	if err := r.getDB(ctx).CreateInBatches(&rows, 500).Error; err != nil {
		return Unavailable("create results", err)
	}
	return nil
}

func (r *ResultStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}

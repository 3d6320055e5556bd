package store

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tesserae/tess-jobs/internal/store/model"
)

type BaseQuerier struct {
	QueryFn []func(tx *gorm.DB) *gorm.DB
}

type SortOrder string

const (
	SortAscending  SortOrder = "ascending"
	SortDescending SortOrder = "descending"
)

// resultSortColumns maps the sortable result fields to their columns.
var resultSortColumns = map[string]string{
	"score":            "score",
	"source_tag":       "source_tag",
	"target_tag":       "target_tag",
	"matched_features": "matched_features",
}

type ResultQueryOptions BaseQuerier

func NewResultQueryOptions() *ResultQueryOptions {
	return &ResultQueryOptions{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

// WithSort orders by field, breaking ties by insertion order so that windows over the same
// job never overlap. Unknown fields are ignored.
func (o *ResultQueryOptions) WithSort(field string, order SortOrder) *ResultQueryOptions {
	column, ok := resultSortColumns[field]
	if !ok {
		return o
	}
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		direction := "ASC"
		if order == SortDescending {
			direction = "DESC"
		}
		return tx.Order(fmt.Sprintf("%s %s", column, direction)).Order("id ASC")
	})
	return o
}

func (o *ResultQueryOptions) WithLimit(limit int) *ResultQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Limit(limit)
	})
	return o
}

func (o *ResultQueryOptions) WithOffset(offset int) *ResultQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Offset(offset)
	})
	return o
}

type JobQueryFilter BaseQuerier

func NewJobQueryFilter() *JobQueryFilter {
	return &JobQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (f *JobQueryFilter) ByStatus(status model.JobStatus) *JobQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status = ?", status)
	})
	return f
}

func (f *JobQueryFilter) CreatedBefore(t time.Time) *JobQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("created_at < ?", t)
	})
	return f
}

func (f *JobQueryFilter) WithOffset(offset int) *JobQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Offset(offset)
	})
	return f
}

func (f *JobQueryFilter) WithLimit(limit int) *JobQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Limit(limit)
	})
	return f
}

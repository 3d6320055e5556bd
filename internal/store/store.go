package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tesserae/tess-jobs/internal/store/model"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Job() Job
	Result() Result
	RiverJob() RiverJob
	InitialMigration() error
	Close() error
}

type DataStore struct {
	db       *gorm.DB
	job      Job
	result   Result
	riverJob RiverJob
}

type StoreOption func(*DataStore)

// WithJobCache puts an LRU of DONE jobs in front of the job store.
func WithJobCache(size int) StoreOption {
	return func(s *DataStore) {
		if size <= 0 {
			return
		}
		cached, err := NewCachedJobStore(s.job, size)
		if err != nil {
			zap.S().Named("store").Warnw("job cache disabled", "error", err)
			return
		}
		s.job = cached
	}
}

func NewStore(db *gorm.DB, opts ...StoreOption) Store {
	s := &DataStore{
		db:       db,
		job:      NewJobStore(db),
		result:   NewResultStore(db),
		riverJob: NewRiverJobStore(db),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Job() Job {
	return s.job
}

func (s *DataStore) Result() Result {
	return s.result
}

func (s *DataStore) RiverJob() RiverJob {
	return s.riverJob
}

// InitialMigration creates the schema without goose. It is used for sqlite and in tests;
// postgres deployments run the SQL migrations instead.
func (s *DataStore) InitialMigration() error {
	if err := s.db.AutoMigrate(&model.Job{}, &model.Result{}); err != nil {
		return err
	}
	// At most one live (not FAILED) job per job type and cache key.
	stm := fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS jobs_live_cache_key ON jobs (job_type, cache_key) WHERE status <> '%s'",
		model.JobStatusFailed,
	)
	return s.db.Exec(stm).Error
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/tesserae/tess-jobs/internal/store"
	"github.com/tesserae/tess-jobs/internal/store/model"
)

const (
	colJobs    = "jobs"
	colResults = "results"
)

var _ store.Store = (*Store)(nil)

// Store keeps jobs and results in MongoDB. It has no river tables, so it can only be paired
// with the in-process queue.
type Store struct {
	client *mongod.Client
	db     *mongod.Database
	job    store.Job
	result store.Result
}

// Open connects to uri and uses the database dbName.
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongod.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	zap.S().Named("mongo").Infow("connected", "database", dbName)
	return New(client, dbName), nil
}

func New(client *mongod.Client, dbName string) *Store {
	db := client.Database(dbName)
	return &Store{
		client: client,
		db:     db,
		job:    &JobStore{col: db.Collection(colJobs)},
		result: &ResultStore{col: db.Collection(colResults)},
	}
}

// NewTransactionContext returns ctx unchanged. Every single-document write is atomic, and
// the job lifecycle never needs more than one.
func (s *Store) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return ctx, nil
}

func (s *Store) Job() store.Job {
	return s.job
}

func (s *Store) Result() store.Result {
	return s.result
}

func (s *Store) RiverJob() store.RiverJob {
	return nil
}

// InitialMigration creates the indexes of both collections.
func (s *Store) InitialMigration() error {
	ctx := context.Background()
	for col, models := range indexes() {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", col, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func indexes() map[string][]mongod.IndexModel {
	live := []string{
		string(model.JobStatusCreated),
		string(model.JobStatusRunning),
		string(model.JobStatusDone),
	}
	return map[string][]mongod.IndexModel{
		colJobs: {
			// At most one live (not FAILED) job per job type and cache key.
			{
				Keys: bson.D{{Key: "job_type", Value: 1}, {Key: "cache_key", Value: 1}},
				Options: options.Index().
					SetName("jobs_live_cache_key").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": bson.M{"$in": live}}),
			},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colResults: {
			{Keys: bson.D{{Key: "job_id", Value: 1}, {Key: "score", Value: -1}}},
		},
	}
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

func now() time.Time {
	return time.Now().UTC()
}

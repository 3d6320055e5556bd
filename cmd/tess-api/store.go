package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tesserae/tess-jobs/internal/config"
	"github.com/tesserae/tess-jobs/internal/queue"
	"github.com/tesserae/tess-jobs/internal/store"
	"github.com/tesserae/tess-jobs/internal/store/mongo"
)

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Database.Type == "mongo" {
		return mongo.Open(ctx, cfg.Database.MongoURI, cfg.Database.Name)
	}

	db, err := store.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	return store.NewStore(db, store.WithJobCache(cfg.Results.JobCacheSize)), nil
}

func newPgxPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(store.PostgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx config: %w", err)
	}
	poolCfg.MaxConns = 10
	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// newQueue builds the configured work queue. The returned func releases its resources.
func newQueue(ctx context.Context, cfg *config.Config, s store.Store) (queue.Queue, func(), error) {
	switch cfg.Queue.Backend {
	case "memory":
		// items stay in this process: an embedded worker pool must drain Items()
		zap.S().Named("queue").Warnw("using in-process queue", "capacity", cfg.Queue.Capacity)
		q := queue.NewBoundedQueue(cfg.Queue.Capacity, queue.WithRateLimit(cfg.Queue.RateLimit, cfg.Queue.RateBurst))
		return q, func() {}, nil
	case "river":
		if cfg.Database.Type != "pgsql" || s.RiverJob() == nil {
			return nil, nil, fmt.Errorf("river queue requires a pgsql database, got %q", cfg.Database.Type)
		}
		pool, err := newPgxPool(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		client, err := queue.NewRiverClient(pool)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to create river client: %w", err)
		}
		zap.S().Named("queue").Infow("using river queue", "queue", cfg.Queue.Name, "capacity", cfg.Queue.Capacity)
		q := queue.NewRiverQueue(client, s.RiverJob(), cfg.Queue.Name, cfg.Queue.Capacity, cfg.Queue.MaxAttempts)
		return q, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown queue backend %q", cfg.Queue.Backend)
	}
}

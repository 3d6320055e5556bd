package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tesserae/tess-jobs/internal/store"
	"github.com/tesserae/tess-jobs/pkg/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the db",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, done := setup()
		defer done()

		zap.S().Info("Starting migration...")
		defer zap.S().Info("Db migrated")

		ctx := context.Background()

		if cfg.Database.Type != "pgsql" {
			s, err := openStore(ctx, cfg)
			if err != nil {
				zap.S().Fatalw("initializing data store", "error", err)
			}
			defer s.Close()
			return s.InitialMigration()
		}

		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}
		s := store.NewStore(db)
		defer s.Close()

		pool, err := newPgxPool(ctx, cfg)
		if err != nil {
			zap.S().Fatalw("failed to create pgx pool", "error", err)
		}
		defer pool.Close()

		if err := migrations.MigrateStore(ctx, db, cfg.Service.MigrationFolder, pool); err != nil {
			zap.S().Fatalw("running migration", "error", err)
		}

		return nil
	},
}

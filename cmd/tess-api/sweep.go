package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tesserae/tess-jobs/internal/service"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Fail stale jobs which were created but can no longer start",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, done := setup()
		defer done()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		s, err := openStore(ctx, cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}
		defer s.Close()

		reaper := service.NewReaper(s.Job(), cfg.Reaper.MaxAge, cfg.Reaper.BatchSize)
		if cfg.Queue.Backend == "river" && s.RiverJob() != nil {
			reaper = reaper.WithPendingWork(s.RiverJob())
		}

		reaped, err := reaper.Sweep(ctx)
		if err != nil {
			zap.S().Errorw("sweep failed", "reaped", reaped, "error", err)
			return err
		}

		zap.S().Infow("sweep completed", "reaped", reaped, "max_age", cfg.Reaper.MaxAge)
		return nil
	},
}

package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apiserver "github.com/tesserae/tess-jobs/internal/api_server"
	"github.com/tesserae/tess-jobs/internal/queue"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tess api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, done := setup()
		defer done()

		zap.S().Info("Starting API service...")
		defer zap.S().Info("API service stopped")
		zap.S().Infow("Using config", "config", cfg.String())

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		zap.S().Info("Initializing data store")
		s, err := openStore(ctx, cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}
		defer s.Close()

		// postgres schemas are owned by the migrate command
		if cfg.Database.Type != "pgsql" {
			if err := s.InitialMigration(); err != nil {
				zap.S().Fatalw("running initial migration", "error", err)
			}
		}

		q, release, err := newQueue(ctx, cfg, s)
		if err != nil {
			zap.S().Fatalw("initializing work queue", "error", err)
		}
		defer release()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			server := apiserver.New(cfg, s, q, listener)
			if err := server.Run(ctx); err != nil {
				zap.S().Fatalw("Error running server", "error", err)
			}
		}()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.MetricsAddress)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			metricsServer := apiserver.NewMetricServer(
				cfg.Service.MetricsAddress,
				listener,
				apiserver.WithQueueDepth(queue.DepthOf(q), cfg.Queue.DepthInterval),
			)
			if err := metricsServer.Run(ctx); err != nil {
				zap.S().Fatalw("failed to run metrics server", "error", err)
			}
		}()

		<-ctx.Done()
		return nil
	},
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}

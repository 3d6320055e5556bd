package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tesserae/tess-jobs/internal/config"
	handlers "github.com/tesserae/tess-jobs/internal/handlers/v1alpha1"
	"github.com/tesserae/tess-jobs/internal/queue"
	"github.com/tesserae/tess-jobs/internal/service"
	"github.com/tesserae/tess-jobs/internal/store"
	"github.com/tesserae/tess-jobs/pkg/metrics"
	"github.com/tesserae/tess-jobs/pkg/middleware"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
	compressionLevel        = 5
)

type Server struct {
	cfg         *config.Config
	store       store.Store
	queue       queue.Queue
	listener    net.Listener
	httpMetrics *metrics.Middleware
}

type ServerOption func(*serverOptions)

type serverOptions struct {
	registerer prometheus.Registerer
}

// WithRegisterer registers the http metrics with reg instead of the default registerer.
func WithRegisterer(reg prometheus.Registerer) ServerOption {
	return func(o *serverOptions) {
		o.registerer = reg
	}
}

// New returns a new instance of the tess api server.
func New(
	cfg *config.Config,
	store store.Store,
	queue queue.Queue,
	listener net.Listener,
	opts ...ServerOption,
) *Server {
	options := serverOptions{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(&options)
	}

	httpMetrics := metrics.NewMiddleware("api_server", metrics.WithLatencyBuckets(cfg.Service.LatencyBuckets))
	if err := httpMetrics.Register(options.registerer); err != nil {
		zap.S().Named("api_server").Warnw("failed to register http metrics", "error", err)
	}

	return &Server{
		cfg:         cfg,
		store:       store,
		queue:       queue,
		listener:    listener,
		httpMetrics: httpMetrics,
	}
}

// Router builds the handler serving the job endpoints. Every router reports into the
// http metrics registered by New.
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()

	router.Use(
		s.httpMetrics.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.Service.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "HEAD", "OPTIONS"},
			AllowedHeaders: []string{"*"},
			ExposedHeaders: []string{"Location"},
			MaxAge:         300,
		}),
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
		chiMiddleware.Compress(compressionLevel, "application/json"),
	)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusOK)
		render.JSON(w, r, map[string]string{"status": "ok"})
	})

	jobService := service.NewJobService(
		s.store.Job(),
		s.store.Result(),
		s.queue,
		s.cfg.Service.BaseUrl,
		s.cfg.Results.MaxPerPage,
	)
	handlers.NewServiceHandler(jobService).Register(router)

	return router
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	srv := http.Server{Addr: s.cfg.Service.Address, Handler: s.Router()}

	go func() {
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

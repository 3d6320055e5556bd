package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tesserae/tess-jobs/internal/queue"
	"github.com/tesserae/tess-jobs/pkg/metrics"
)

const defaultDepthInterval = 15 * time.Second

type MetricServer struct {
	bindAddress   string
	httpServer    *http.Server
	listener      net.Listener
	depth         queue.DepthFunc
	depthInterval time.Duration
}

type MetricServerOption func(*MetricServer)

// WithQueueDepth samples the queue depth gauge every interval. Enqueue only updates it on
// submission, so without sampling the gauge never sees the workers draining the queue.
func WithQueueDepth(depth queue.DepthFunc, interval time.Duration) MetricServerOption {
	return func(m *MetricServer) {
		m.depth = depth
		if interval > 0 {
			m.depthInterval = interval
		}
	}
}

func NewMetricServer(bindAddress string, listener net.Listener, opts ...MetricServerOption) *MetricServer {
	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())

	s := &MetricServer{
		bindAddress:   bindAddress,
		listener:      listener,
		depthInterval: defaultDepthInterval,
		httpServer: &http.Server{
			Addr:    bindAddress,
			Handler: router,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (m *MetricServer) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		m.httpServer.SetKeepAlivesEnabled(false)
		_ = m.httpServer.Shutdown(ctxTimeout)
		zap.S().Named("metrics_server").Info("metrics server terminated")
	}()

	if m.depth != nil {
		go m.sampleDepth(ctx)
	}

	zap.S().Named("metrics_server").Infof("serving metrics: %s", m.bindAddress)
	if err := m.httpServer.Serve(m.listener); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (m *MetricServer) sampleDepth(ctx context.Context) {
	ticker := time.NewTicker(m.depthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			depth, err := m.depth(ctx)
			if err != nil {
				zap.S().Named("metrics_server").Warnw("failed to sample queue depth", "error", err)
				continue
			}
			metrics.UpdateQueueDepthMetric(depth)
		case <-ctx.Done():
			return
		}
	}
}

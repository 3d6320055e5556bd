package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	requestsCollectorName = "http_requests_total"
	latencyCollectorName  = "http_request_duration_milliseconds"
)

// results pages are bounded, so the buckets stop well below the default http timeouts
var defaultLatencyBuckets = []float64{25, 100, 300, 1000, 5000}

// Middleware counts requests and observes their latency partitioned by status code,
// method and route pattern. The route pattern keeps job ids out of the label values.
type Middleware struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

type MiddlewareOption func(*prometheus.HistogramOpts)

func WithLatencyBuckets(buckets []float64) MiddlewareOption {
	return func(o *prometheus.HistogramOpts) {
		if len(buckets) > 0 {
			o.Buckets = buckets
		}
	}
}

func NewMiddleware(name string, opts ...MiddlewareOption) *Middleware {
	histogramOpts := prometheus.HistogramOpts{
		Subsystem:   tessJobs,
		Name:        latencyCollectorName,
		Help:        "Time spent serving a request partitioned by status code, method and route.",
		ConstLabels: prometheus.Labels{"service": name},
		Buckets:     defaultLatencyBuckets,
	}
	for _, opt := range opts {
		opt(&histogramOpts)
	}

	return &Middleware{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem:   tessJobs,
			Name:        requestsCollectorName,
			Help:        "Number of requests partitioned by status code, method and route.",
			ConstLabels: prometheus.Labels{"service": name},
		}, []string{"code", "method", "route"}),
		latency: prometheus.NewHistogramVec(histogramOpts, []string{"code", "method", "route"}),
	}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		rctx := chi.RouteContext(r.Context())
		if rctx == nil {
			return
		}
		route := rctx.RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		code := strconv.Itoa(ww.Status())
		m.requests.WithLabelValues(code, r.Method, route).Inc()
		m.latency.WithLabelValues(code, r.Method, route).Observe(float64(time.Since(start).Milliseconds()))
	}
	return http.HandlerFunc(fn)
}

// Register adds the collectors to reg. When collectors with the same description are
// already registered the middleware reports into those instead.
func (m *Middleware) Register(reg prometheus.Registerer) error {
	requests, err := registerOrReuse(reg, m.requests)
	if err != nil {
		return err
	}
	latency, err := registerOrReuse(reg, m.latency)
	if err != nil {
		return err
	}
	m.requests, m.latency = requests, latency
	return nil
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}

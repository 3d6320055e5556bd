package apiserver_test

import (
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	apiserver "github.com/tesserae/tess-jobs/internal/api_server"
	"github.com/tesserae/tess-jobs/internal/config"
	"github.com/tesserae/tess-jobs/internal/queue"
	"github.com/tesserae/tess-jobs/internal/store"
)

var _ = Describe("api server", Ordered, func() {
	var s store.Store

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())
		s = store.NewStore(db)
		Expect(s.InitialMigration()).To(Succeed())
	})

	AfterAll(func() {
		s.Close()
	})

	requests := func(reg *prometheus.Registry) (float64, int) {
		families, err := reg.Gather()
		Expect(err).To(BeNil())

		total, series := 0.0, 0
		for _, family := range families {
			if family.GetName() != "tess_jobs_http_requests_total" {
				continue
			}
			for _, m := range family.GetMetric() {
				total += m.GetCounter().GetValue()
				series++
			}
		}
		return total, series
	}

	It("serves every router through the http metrics registered once", func() {
		reg := prometheus.NewRegistry()
		server := apiserver.New(config.NewDefault(), s, queue.NewBoundedQueue(10), nil, apiserver.WithRegisterer(reg))

		for _, router := range []http.Handler{server.Router(), server.Router()} {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
		}

		total, series := requests(reg)
		Expect(total).To(Equal(2.0))
		Expect(series).To(Equal(1))
	})

	It("reuses the collectors of an earlier server", func() {
		reg := prometheus.NewRegistry()
		first := apiserver.New(config.NewDefault(), s, queue.NewBoundedQueue(10), nil, apiserver.WithRegisterer(reg))
		second := apiserver.New(config.NewDefault(), s, queue.NewBoundedQueue(10), nil, apiserver.WithRegisterer(reg))

		for _, server := range []*apiserver.Server{first, second} {
			rec := httptest.NewRecorder()
			server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
		}

		total, _ := requests(reg)
		Expect(total).To(Equal(2.0))
	})
})

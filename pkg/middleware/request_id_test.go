package middleware_test

import (
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tesserae/tess-jobs/pkg/middleware"
	"github.com/tesserae/tess-jobs/pkg/requestid"
)

var _ = Describe("request id middleware", func() {
	var seen string

	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestid.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	BeforeEach(func() {
		seen = ""
	})

	It("keeps the id sent by the client", func() {
		req := httptest.NewRequest(http.MethodGet, "/searches/abc/status/", nil)
		req.Header.Set(requestid.Header, "client-id")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		Expect(seen).To(Equal("client-id"))
		Expect(rec.Header().Get(requestid.Header)).To(Equal("client-id"))
	})

	It("generates an id when none is sent", func() {
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		Expect(seen).NotTo(BeEmpty())
		Expect(rec.Header().Get(requestid.Header)).To(Equal(seen))
	})

	It("logs completed requests without altering the response", func() {
		logged := middleware.Logger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Location", "/searches/abc/")
			w.WriteHeader(http.StatusSeeOther)
		}))
		rec := httptest.NewRecorder()

		logged.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/searches/", nil))

		Expect(rec.Code).To(Equal(http.StatusSeeOther))
		Expect(rec.Header().Get("Location")).To(Equal("/searches/abc/"))
	})
})

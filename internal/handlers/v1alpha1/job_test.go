package v1alpha1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	api "github.com/tesserae/tess-jobs/api/v1alpha1"
	"github.com/tesserae/tess-jobs/internal/config"
	handlers "github.com/tesserae/tess-jobs/internal/handlers/v1alpha1"
	"github.com/tesserae/tess-jobs/internal/queue"
	"github.com/tesserae/tess-jobs/internal/service"
	"github.com/tesserae/tess-jobs/internal/store"
	"github.com/tesserae/tess-jobs/internal/store/model"
	"github.com/tesserae/tess-jobs/pkg/middleware"
)

const (
	textA = "5c6c69b9cf6b8b0b5e0a5c01"
	textB = "5c6c69b9cf6b8b0b5e0a5c02"
)

var _ = Describe("job handler", Ordered, func() {
	var (
		s          store.Store
		gormdb     *gorm.DB
		q          *queue.BoundedQueue
		testServer *httptest.Server
		client     *http.Client
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())
		s = store.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration()).To(Succeed())

		client = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	})

	AfterAll(func() {
		s.Close()
	})

	BeforeEach(func() {
		q = queue.NewBoundedQueue(2)
		srv := service.NewJobService(s.Job(), s.Result(), q, "", 1000)

		router := chi.NewRouter()
		router.Use(middleware.RequestID)
		handlers.NewServiceHandler(srv).Register(router)
		testServer = httptest.NewServer(router)
	})

	AfterEach(func() {
		testServer.Close()
		gormdb.Exec("DELETE from results;")
		gormdb.Exec("DELETE from jobs;")
	})

	post := func(path, body string) *http.Response {
		resp, err := client.Post(testServer.URL+path, "application/json", bytes.NewBufferString(body))
		Expect(err).To(BeNil())
		return resp
	}

	get := func(path string) *http.Response {
		resp, err := client.Get(testServer.URL + path)
		Expect(err).To(BeNil())
		return resp
	}

	decode := func(resp *http.Response, v any) {
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		Expect(err).To(BeNil())
		Expect(json.Unmarshal(data, v)).To(Succeed())
	}

	search := fmt.Sprintf(`{"source":"%s","target":"%s","unit_type":"line","feature":"lemmata"}`, textA, textB)

	Context("SubmitJob", func() {
		It("returns 201 with the location of a new search", func() {
			resp := post("/searches/", search)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var submission api.Submission
			decode(resp, &submission)
			Expect(submission.ResultsId).To(HaveLen(32))
			Expect(resp.Header.Get("Location")).To(Equal(fmt.Sprintf("/searches/%s/", submission.ResultsId)))
			Expect(q.Depth()).To(Equal(1))
		})

		It("returns 303 for an identical search", func() {
			first := post("/searches/", search)
			Expect(first.StatusCode).To(Equal(http.StatusCreated))
			var created api.Submission
			decode(first, &created)

			second := post("/searches/", search)
			Expect(second.StatusCode).To(Equal(http.StatusSeeOther))
			var redirected api.Submission
			decode(second, &redirected)
			Expect(redirected.ResultsId).To(Equal(created.ResultsId))
			Expect(q.Depth()).To(Equal(1))
		})

		It("returns 400 listing every problem of a multitext search", func() {
			resp := post("/multitexts/", `{"parallels_uuid":"nope","text_ids":[],"unit_type":"line"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			var apiErr api.Error
			decode(resp, &apiErr)
			Expect(apiErr.Message).To(ContainSubstring("text_ids"))
			Expect(apiErr.Message).To(ContainSubstring("parallels_uuid"))
			Expect(apiErr.RequestId).NotTo(BeNil())
			Expect(apiErr.Data).NotTo(BeNil())
		})

		It("returns 400 for a body which is not json", func() {
			resp := post("/searches/", `source=a`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("returns 503 when the queue is saturated", func() {
			for i := 0; i < 2; i++ {
				body := fmt.Sprintf(`{"source":"%s","target":"%s","unit_type":"line","max_distance":%d}`, textA, textB, i+1)
				Expect(post("/searches/", body).StatusCode).To(Equal(http.StatusCreated))
			}

			resp := post("/searches/", search)
			Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
			Expect(resp.Header.Get("Retry-After")).NotTo(BeEmpty())
		})
	})

	Context("GetJobStatus", func() {
		It("returns the status of a search", func() {
			var submission api.Submission
			decode(post("/searches/", search), &submission)

			resp := get(fmt.Sprintf("/searches/%s/status/", submission.ResultsId))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var status api.Status
			decode(resp, &status)
			Expect(status.ResultsId).To(Equal(submission.ResultsId))
			Expect(status.Status).To(Equal(api.JobStatusCreated))
		})

		It("returns 404 for an unknown job", func() {
			resp := get(fmt.Sprintf("/searches/%s/status/", service.NewJobID()))
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("returns 404 for a search asked as a multitext search", func() {
			var submission api.Submission
			decode(post("/searches/", search), &submission)

			resp := get(fmt.Sprintf("/multitexts/%s/status/", submission.ResultsId))
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Context("GetJobResults", func() {
		var jobID string

		BeforeEach(func() {
			var submission api.Submission
			decode(post("/searches/", search), &submission)
			jobID = submission.ResultsId

			rows := make(model.ResultList, 0, 250)
			for i := 1; i <= 250; i++ {
				rows = append(rows, model.Result{JobID: jobID, Score: float64(i), MatchedFeatures: "arma; virum"})
			}
			Expect(s.Result().CreateBatch(context.TODO(), rows)).To(Succeed())
		})

		complete := func() {
			Expect(s.Job().UpdateStatus(context.TODO(), jobID, model.JobStatusRunning, nil)).To(Succeed())
			Expect(s.Job().UpdateStatus(context.TODO(), jobID, model.JobStatusDone, nil)).To(Succeed())
		}

		It("returns 409 while the search runs", func() {
			resp := get(fmt.Sprintf("/searches/%s/", jobID))
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
			Expect(resp.Header.Get("Cache-Control")).To(Equal("no-store"))

			var apiErr api.Error
			decode(resp, &apiErr)
			Expect(apiErr.Message).To(ContainSubstring(fmt.Sprintf("/searches/%s/status/", jobID)))
		})

		It("returns 404 for an unknown job", func() {
			resp := get(fmt.Sprintf("/searches/%s/", service.NewJobID()))
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("returns 400 naming the invalid page options", func() {
			complete()
			resp := get(fmt.Sprintf("/searches/%s/?sort_by=length&per_page=0", jobID))
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			var apiErr struct {
				Data map[string]string `json:"data"`
			}
			decode(resp, &apiErr)
			Expect(apiErr.Data).To(HaveKey("sort_by"))
			Expect(apiErr.Data).To(HaveKey("per_page"))
		})

		It("returns a page of results", func() {
			complete()
			resp := get(fmt.Sprintf("/searches/%s/?sort_by=score&sort_order=descending&per_page=100&page_number=2", jobID))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var page api.SearchResults
			decode(resp, &page)
			Expect(page.Results).To(HaveLen(50))
			Expect(page.Results[0].Score).To(Equal(float64(50)))
			Expect(page.MaxScore).To(Equal(float64(250)))
			Expect(page.TotalCount).To(Equal(int64(250)))
			Expect(string(page.Data)).To(ContainSubstring(textA))
		})

		It("follows the redirect of a repeated search to the first page", func() {
			complete()
			resp := post("/searches/", search)
			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
			location := resp.Header.Get("Location")
			Expect(location).To(HaveSuffix("?sort_by=score&sort_order=descending&per_page=100&page_number=0"))
			Expect(strings.HasPrefix(location, fmt.Sprintf("/searches/%s/", jobID))).To(BeTrue())

			page := get(location)
			Expect(page.StatusCode).To(Equal(http.StatusOK))
			var results api.SearchResults
			decode(page, &results)
			Expect(results.Results).To(HaveLen(100))
			Expect(results.Results[0].Score).To(Equal(float64(250)))
		})
	})
})

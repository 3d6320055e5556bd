package v1alpha1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	api "github.com/tesserae/tess-jobs/api/v1alpha1"
	"github.com/tesserae/tess-jobs/internal/cachekey"
	"github.com/tesserae/tess-jobs/internal/handlers/v1alpha1/mappers"
	"github.com/tesserae/tess-jobs/internal/paginator"
	"github.com/tesserae/tess-jobs/internal/service"
	"github.com/tesserae/tess-jobs/internal/store"
	"github.com/tesserae/tess-jobs/internal/store/model"
	"github.com/tesserae/tess-jobs/pkg/log"
	"github.com/tesserae/tess-jobs/pkg/requestid"
)

const (
	maxBodySize = 1 << 20
	retryAfter  = "60"
)

func (h *ServiceHandler) SubmitJob(jobType model.JobType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := log.NewDebugLogger("job_handler").WithContext(ctx).Operation("submit_job").WithParam("job_type", jobType).Build()

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			renderError(w, r, http.StatusBadRequest, fmt.Sprintf("failed to read body: %v", err), nil)
			return
		}

		params, err := mappers.ParametersFromApi(jobType, body)
		if err != nil {
			renderError(w, r, http.StatusBadRequest, err.Error(), receivedData(body))
			return
		}

		outcome, err := h.jobSrv.Submit(ctx, params)
		if err != nil {
			logger.Error(err).Log()
			var (
				validationErr *cachekey.ValidationError
				baseErr       *service.ErrBaseJobNotFound
				saturatedErr  *service.ErrQueueSaturated
			)
			switch {
			case errors.As(err, &validationErr), errors.As(err, &baseErr):
				renderError(w, r, http.StatusBadRequest, err.Error(), receivedData(body))
			case errors.As(err, &saturatedErr):
				w.Header().Set("Retry-After", retryAfter)
				renderError(w, r, http.StatusServiceUnavailable, err.Error(), receivedData(body))
			case errors.Is(err, store.ErrStoreUnavailable):
				w.Header().Set("Retry-After", retryAfter)
				renderError(w, r, http.StatusServiceUnavailable, err.Error(), nil)
			default:
				renderError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to submit job: %v", err), nil)
			}
			return
		}

		w.Header().Set("Location", outcome.Location)
		if outcome.Kind == service.OutcomeRedirect {
			render.Status(r, http.StatusSeeOther)
		} else {
			render.Status(r, http.StatusCreated)
		}

		logger.Success().WithString("job_id", outcome.JobID).WithParam("redirect", outcome.Kind == service.OutcomeRedirect).Log()
		_ = render.Render(w, r, mappers.SubmissionToApi(outcome))
	}
}

func (h *ServiceHandler) GetJobStatus(jobType model.JobType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := chi.URLParam(r, "id")
		logger := log.NewDebugLogger("job_handler").WithContext(ctx).Operation("get_job_status").WithParam("job_id", id).Build()

		info, err := h.jobSrv.Status(ctx, jobType, id)
		if err != nil {
			logger.Error(err).Log()
			renderServiceError(w, r, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		logger.Success().Log()
		_ = render.Render(w, r, mappers.StatusToApi(info))
	}
}

func (h *ServiceHandler) GetJobResults(jobType model.JobType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := chi.URLParam(r, "id")
		logger := log.NewDebugLogger("job_handler").WithContext(ctx).Operation("get_job_results").WithParam("job_id", id).Build()

		page, err := h.jobSrv.Results(ctx, jobType, id, paginator.FromQuery(r.URL.Query()))
		if err != nil {
			logger.Error(err).Log()

			var (
				notReadyErr *service.ErrResultsNotReady
				pageErr     *paginator.ErrInvalidPageOptions
			)
			switch {
			case errors.As(err, &notReadyErr):
				w.Header().Set("Cache-Control", "no-store")
				statusURL := h.jobSrv.Location(jobType, id, nil) + "status/"
				renderError(w, r, http.StatusConflict,
					fmt.Sprintf("Unable to retrieve results; check %s endpoint.", statusURL),
					map[string]string{"status": string(notReadyErr.Status), "status_url": statusURL})
			case errors.As(err, &pageErr):
				renderError(w, r, http.StatusBadRequest, err.Error(), pageErr.Fields)
			default:
				renderServiceError(w, r, err)
			}
			return
		}

		logger.Success().WithInt("rows", len(page.Rows)).Log()
		_ = render.Render(w, r, mappers.ResultsPageToApi(page))
	}
}

func renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var notFoundErr *service.ErrJobNotFound
	switch {
	case errors.As(err, &notFoundErr):
		renderError(w, r, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, store.ErrStoreUnavailable):
		w.Header().Set("Retry-After", retryAfter)
		renderError(w, r, http.StatusServiceUnavailable, err.Error(), nil)
	default:
		renderError(w, r, http.StatusInternalServerError, err.Error(), nil)
	}
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	render.Status(r, status)
	_ = render.Render(w, r, api.Error{
		Message:   message,
		RequestId: requestid.FromContextPtr(r.Context()),
		Data:      data,
	})
}

// receivedData echoes the submitted body back when it is valid json.
func receivedData(body []byte) any {
	if !json.Valid(body) {
		return nil
	}
	return json.RawMessage(body)
}

package v1alpha1

import (
	"github.com/go-chi/chi/v5"

	"github.com/tesserae/tess-jobs/internal/service"
	"github.com/tesserae/tess-jobs/internal/store/model"
)

type ServiceHandler struct {
	jobSrv *service.JobService
}

func NewServiceHandler(jobService *service.JobService) *ServiceHandler {
	return &ServiceHandler{
		jobSrv: jobService,
	}
}

// Register mounts the job endpoints of every job type on router.
func (h *ServiceHandler) Register(router chi.Router) {
	for _, jobType := range []model.JobType{model.JobTypeNormal, model.JobTypeMulti} {
		jobType := jobType
		router.Route(service.ResourcePath(jobType), func(r chi.Router) {
			r.Post("/", h.SubmitJob(jobType))
			r.Get("/{id}/status/", h.GetJobStatus(jobType))
			r.Get("/{id}/", h.GetJobResults(jobType))
		})
	}
}

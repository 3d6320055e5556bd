package service

import (
	"fmt"

	"github.com/tesserae/tess-jobs/internal/store/model"
)

type ErrJobNotFound struct {
	error
}

func NewErrJobNotFound(jobType model.JobType, id string) *ErrJobNotFound {
	return &ErrJobNotFound{fmt.Errorf("%s job %s not found", jobType, id)}
}

// ErrResultsNotReady is returned for a known job whose results cannot be read yet.
type ErrResultsNotReady struct {
	error
	Status model.JobStatus
}

func NewErrResultsNotReady(id string, status model.JobStatus) *ErrResultsNotReady {
	return &ErrResultsNotReady{
		error:  fmt.Errorf("results of job %s are not ready: job is %s", id, status),
		Status: status,
	}
}

type ErrQueueSaturated struct {
	error
	JobID string
}

func NewErrQueueSaturated(id string) *ErrQueueSaturated {
	return &ErrQueueSaturated{
		error: fmt.Errorf("job %s could not be added to the queue, please try again in a few minutes", id),
		JobID: id,
	}
}

type ErrBaseJobNotFound struct {
	error
}

func NewErrBaseJobNotFound(id string) *ErrBaseJobNotFound {
	return &ErrBaseJobNotFound{fmt.Errorf("no completed %s job with id %s", model.JobTypeNormal, id)}
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tesserae/tess-jobs/internal/cachekey"
	"github.com/tesserae/tess-jobs/internal/paginator"
	"github.com/tesserae/tess-jobs/internal/queue"
	"github.com/tesserae/tess-jobs/internal/store"
	"github.com/tesserae/tess-jobs/internal/store/model"
	"github.com/tesserae/tess-jobs/pkg/log"
	"github.com/tesserae/tess-jobs/pkg/metrics"
)

type OutcomeKind int

const (
	// OutcomeCreated: a new job was persisted and scheduled.
	OutcomeCreated OutcomeKind = iota
	// OutcomeRedirect: an equivalent job already exists.
	OutcomeRedirect
)

type SubmitOutcome struct {
	Kind     OutcomeKind
	JobID    string
	Location string
	// InFlight is set on a redirect to a job which is not DONE yet.
	InFlight bool
}

type StatusInfo struct {
	JobID   string
	JobType model.JobType
	Status  model.JobStatus
	Message string
}

type ResultsPage struct {
	JobID      string
	JobType    model.JobType
	Parameters json.RawMessage
	Summary    model.JobSummary
	Rows       model.ResultList
	Options    paginator.Options
}

type JobService struct {
	jobs       store.Job
	results    store.Result
	queue      queue.Queue
	baseURL    string
	maxPerPage int
	logger     *log.StructuredLogger
}

func NewJobService(jobs store.Job, results store.Result, q queue.Queue, baseURL string, maxPerPage int) *JobService {
	return &JobService{
		jobs:       jobs,
		results:    results,
		queue:      q,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		maxPerPage: maxPerPage,
		logger:     log.NewDebugLogger("job_service"),
	}
}

// ResourcePath is the path under which jobs of the given type are exposed.
func ResourcePath(jobType model.JobType) string {
	switch jobType {
	case model.JobTypeMulti:
		return "/multitexts/"
	default:
		return "/searches/"
	}
}

// Location returns the handle of a job. With opts it points at a page of its results.
func (s *JobService) Location(jobType model.JobType, id string, opts *paginator.Options) string {
	location := fmt.Sprintf("%s%s%s/", s.baseURL, ResourcePath(jobType), id)
	if opts != nil {
		location += "?" + opts.Query()
	}
	return location
}

// Submit schedules the job described by params unless an equivalent job already exists.
// Nothing is written when params are invalid.
func (s *JobService) Submit(ctx context.Context, params cachekey.Parameters) (*SubmitOutcome, error) {
	tracer := s.logger.WithContext(ctx).Operation("submit_job").Build()

	key, canonical, err := cachekey.Resolve(params)
	if err != nil {
		metrics.IncreaseSubmissionsMetric(jobTypeLabel(params), metrics.OutcomeInvalid)
		return nil, err
	}
	jobType := canonical.JobType()

	if multi, ok := canonical.(cachekey.MultiParameters); ok {
		if err := s.checkBaseJob(ctx, multi.BaseJobID); err != nil {
			metrics.IncreaseSubmissionsMetric(string(jobType), metrics.OutcomeInvalid)
			return nil, err
		}
	}

	existing, err := s.jobs.FindByCacheKey(ctx, jobType, key.String())
	switch {
	case err == nil && existing.Unscheduled():
		// an earlier submission was turned away by a saturated queue
		tracer.Step("rescheduling job").WithString("job_id", existing.ID).Log()
		return s.schedule(ctx, tracer, existing, key.String())
	case err == nil:
		tracer.Step("cache hit").WithString("job_id", existing.ID).WithString("status", string(existing.Status)).Log()
		return s.redirect(existing), nil
	case !errors.Is(err, store.ErrRecordNotFound):
		tracer.Error(err).Log()
		metrics.IncreaseSubmissionsMetric(string(jobType), metrics.OutcomeError)
		return nil, err
	}

	data, err := json.Marshal(canonical)
	if err != nil {
		return nil, err
	}

	job, err := s.jobs.Create(ctx, model.Job{
		ID:         NewJobID(),
		JobType:    jobType,
		Status:     model.JobStatusCreated,
		Parameters: data,
		CacheKey:   key.String(),
	})
	if err != nil {
		if errors.Is(err, store.ErrCacheKeyConflict) {
			// lost the race against an identical submission
			existing, ferr := s.jobs.FindByCacheKey(ctx, jobType, key.String())
			if ferr == nil {
				return s.redirect(existing), nil
			}
		}
		tracer.Error(err).Log()
		metrics.IncreaseSubmissionsMetric(string(jobType), metrics.OutcomeError)
		return nil, err
	}

	return s.schedule(ctx, tracer, job, key.String())
}

// schedule hands a CREATED job to the queue and marks it scheduled. A saturated queue leaves
// the job unscheduled so that the next identical submission schedules it again.
func (s *JobService) schedule(ctx context.Context, tracer *log.OperationTracer, job *model.Job, cacheKey string) (*SubmitOutcome, error) {
	err := s.queue.Enqueue(ctx, queue.WorkItem{JobID: job.ID, JobType: job.JobType, Parameters: job.Parameters})
	if err != nil {
		tracer.Error(err).WithString("job_id", job.ID).Log()
		if errors.Is(err, queue.ErrQueueSaturated) {
			metrics.IncreaseSubmissionsMetric(string(job.JobType), metrics.OutcomeSaturated)
			return nil, NewErrQueueSaturated(job.ID)
		}
		metrics.IncreaseSubmissionsMetric(string(job.JobType), metrics.OutcomeError)
		return nil, err
	}

	if err := s.jobs.MarkScheduled(ctx, job.ID); err != nil {
		// the work item is queued, a missing marker only exposes the job to the reaper
		metrics.IncreaseReadPathFailuresMetric("mark_scheduled")
		tracer.Step("mark scheduled failed").WithString("job_id", job.ID).WithParam("error", err).Log()
	}

	metrics.IncreaseSubmissionsMetric(string(job.JobType), metrics.OutcomeCreated)
	tracer.Success().WithString("job_id", job.ID).WithString("cache_key", cacheKey).Log()

	return &SubmitOutcome{
		Kind:     OutcomeCreated,
		JobID:    job.ID,
		Location: s.Location(job.JobType, job.ID, nil),
	}, nil
}

func (s *JobService) Status(ctx context.Context, jobType model.JobType, id string) (*StatusInfo, error) {
	tracer := s.logger.WithContext(ctx).Operation("get_job_status").WithParam("job_id", id).Build()

	job, err := s.getJob(ctx, jobType, id)
	if err != nil {
		return nil, err
	}

	info := &StatusInfo{JobID: job.ID, JobType: job.JobType, Status: job.Status}
	if job.Status == model.JobStatusFailed && job.Error != nil {
		info.Message = *job.Error
	}

	tracer.Success().WithString("status", string(job.Status)).Log()
	return info, nil
}

// Results reads one page of the results of a DONE job.
func (s *JobService) Results(ctx context.Context, jobType model.JobType, id string, raw paginator.RawOptions) (*ResultsPage, error) {
	tracer := s.logger.WithContext(ctx).Operation("get_job_results").WithParam("job_id", id).Build()

	job, err := s.getJob(ctx, jobType, id)
	if err != nil {
		return nil, err
	}

	if job.Status != model.JobStatusDone {
		return nil, NewErrResultsNotReady(job.ID, job.Status)
	}

	opts, err := paginator.Parse(raw, s.maxPerPage)
	if err != nil {
		return nil, err
	}

	rows, err := s.results.List(ctx, job.ID, opts.Window())
	if err != nil {
		tracer.Error(err).Log()
		return nil, err
	}

	summary, err := s.summary(ctx, job)
	if err != nil {
		tracer.Error(err).Log()
		return nil, err
	}

	if err := s.jobs.TouchLastQueried(ctx, job.ID); err != nil {
		metrics.IncreaseReadPathFailuresMetric("touch_last_queried")
		tracer.Step("touch last queried failed").WithParam("error", err).Log()
	}

	metrics.IncreaseResultsServedMetric(string(job.JobType))
	tracer.Success().WithInt("rows", len(rows)).Log()

	return &ResultsPage{
		JobID:      job.ID,
		JobType:    job.JobType,
		Parameters: json.RawMessage(job.Parameters),
		Summary:    summary,
		Rows:       rows,
		Options:    opts,
	}, nil
}

// summary returns the summary kept on the job, computing and storing it on first use.
func (s *JobService) summary(ctx context.Context, job *model.Job) (model.JobSummary, error) {
	if summary, ok := job.Summary(); ok {
		return summary, nil
	}

	summary, err := s.results.Summary(ctx, job.ID)
	if err != nil {
		return model.JobSummary{}, err
	}

	if err := s.jobs.SetSummary(ctx, job.ID, summary); err != nil {
		metrics.IncreaseReadPathFailuresMetric("set_summary")
		s.logger.WithContext(ctx).Operation("set_summary").WithParam("job_id", job.ID).Build().Error(err).Log()
	}
	return summary, nil
}

func (s *JobService) getJob(ctx context.Context, jobType model.JobType, id string) (*model.Job, error) {
	normalized, ok := cachekey.NormalizeJobID(id)
	if !ok {
		return nil, NewErrJobNotFound(jobType, id)
	}

	job, err := s.jobs.Get(ctx, normalized)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(jobType, id)
		}
		return nil, err
	}
	if job.JobType != jobType {
		return nil, NewErrJobNotFound(jobType, id)
	}
	return job, nil
}

func (s *JobService) checkBaseJob(ctx context.Context, id string) error {
	base, err := s.jobs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return NewErrBaseJobNotFound(id)
		}
		return err
	}
	if base.JobType != model.JobTypeNormal || base.Status != model.JobStatusDone {
		return NewErrBaseJobNotFound(id)
	}
	return nil
}

func (s *JobService) redirect(job *model.Job) *SubmitOutcome {
	outcome := &SubmitOutcome{Kind: OutcomeRedirect, JobID: job.ID}
	if job.Status == model.JobStatusDone {
		opts := paginator.Default()
		outcome.Location = s.Location(job.JobType, job.ID, &opts)
		metrics.IncreaseSubmissionsMetric(string(job.JobType), metrics.OutcomeRedirect)
		return outcome
	}
	outcome.InFlight = true
	outcome.Location = s.Location(job.JobType, job.ID, nil)
	metrics.IncreaseSubmissionsMetric(string(job.JobType), metrics.OutcomeInFlight)
	return outcome
}

// NewJobID returns a random 32 character lowercase hex id.
func NewJobID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func jobTypeLabel(p cachekey.Parameters) string {
	if p == nil {
		return "unknown"
	}
	return string(p.JobType())
}

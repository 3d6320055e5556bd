package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tesserae/tess-jobs/internal/store"
	"github.com/tesserae/tess-jobs/internal/store/model"
	"github.com/tesserae/tess-jobs/pkg/log"
)

// ResultsWriter is the write side of a job used by the comparison workers. It moves a job
// through RUNNING to DONE or FAILED and stores the result rows of a DONE job.
type ResultsWriter struct {
	store  store.Store
	logger *log.StructuredLogger
}

func NewResultsWriter(s store.Store) *ResultsWriter {
	return &ResultsWriter{store: s, logger: log.NewDebugLogger("results_writer")}
}

func (w *ResultsWriter) Start(ctx context.Context, id string) error {
	return w.transition(ctx, id, model.JobStatusRunning, nil)
}

func (w *ResultsWriter) Fail(ctx context.Context, id string, reason string) error {
	return w.transition(ctx, id, model.JobStatusFailed, &store.StatusExtras{Error: &reason})
}

// Complete stores rows and marks the job DONE with their summary. Either both happen or
// neither does.
func (w *ResultsWriter) Complete(ctx context.Context, id string, rows model.ResultList) error {
	tracer := w.logger.WithContext(ctx).
		Operation("complete_job").
		WithParam("job_id", id).
		WithParam("rows", len(rows)).
		Build()

	ctx, err := w.store.NewTransactionContext(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = store.Rollback(ctx)
	}()

	for i := range rows {
		rows[i].JobID = id
	}
	if err := w.store.Result().CreateBatch(ctx, rows); err != nil {
		tracer.Error(err).Log()
		return err
	}

	ref := id
	summary := summarize(rows)
	if err := w.transition(ctx, id, model.JobStatusDone, &store.StatusExtras{ResultsRef: &ref, Summary: &summary}); err != nil {
		tracer.Error(err).Log()
		return err
	}

	if _, err := store.Commit(ctx); err != nil {
		tracer.Error(err).Log()
		return err
	}

	tracer.Success().WithParam("max_score", summary.MaxScore).Log()
	return nil
}

func (w *ResultsWriter) transition(ctx context.Context, id string, status model.JobStatus, extras *store.StatusExtras) error {
	err := w.store.Job().UpdateStatus(ctx, id, status, extras)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrRecordNotFound):
		return &ErrJobNotFound{fmt.Errorf("job %s not found", id)}
	case errors.Is(err, store.ErrInvalidTransition):
		return fmt.Errorf("job %s cannot move to %s: %w", id, status, err)
	default:
		return err
	}
}

func summarize(rows model.ResultList) model.JobSummary {
	summary := model.JobSummary{TotalCount: int64(len(rows))}
	for i, row := range rows {
		if i == 0 || row.Score > summary.MaxScore {
			summary.MaxScore = row.Score
		}
	}
	return summary
}

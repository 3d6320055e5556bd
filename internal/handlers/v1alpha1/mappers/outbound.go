package mappers

import (
	"encoding/json"

	"github.com/go-chi/render"

	api "github.com/tesserae/tess-jobs/api/v1alpha1"
	"github.com/tesserae/tess-jobs/internal/service"
	"github.com/tesserae/tess-jobs/internal/store/model"
)

func SubmissionToApi(outcome *service.SubmitOutcome) api.Submission {
	return api.Submission{
		ResultsId: outcome.JobID,
		Location:  outcome.Location,
	}
}

func StatusToApi(info *service.StatusInfo) api.Status {
	return api.Status{
		ResultsId: info.JobID,
		Status:    api.JobStatus(info.Status),
		Message:   info.Message,
	}
}

func ResultsToApi(rows model.ResultList) []api.Result {
	results := make([]api.Result, 0, len(rows))
	for _, row := range rows {
		r := api.Result{
			Score:           row.Score,
			SourceTag:       row.SourceTag,
			TargetTag:       row.TargetTag,
			MatchedFeatures: row.MatchedFeatures,
			SourceSnippet:   row.SourceSnippet,
			TargetSnippet:   row.TargetSnippet,
		}
		if len(row.Extra) > 0 {
			r.Extra = json.RawMessage(row.Extra)
		}
		results = append(results, r)
	}
	return results
}

// ResultsPageToApi renders a page in the shape clients of the job type expect.
func ResultsPageToApi(page *service.ResultsPage) render.Renderer {
	if page.JobType == model.JobTypeMulti {
		return api.MultitextResults{
			Data:         page.Parameters,
			MaxScore:     page.Summary.MaxScore,
			TotalCount:   page.Summary.TotalCount,
			MultiResults: ResultsToApi(page.Rows),
		}
	}
	return api.SearchResults{
		Data:       page.Parameters,
		MaxScore:   page.Summary.MaxScore,
		TotalCount: page.Summary.TotalCount,
		Results:    ResultsToApi(page.Rows),
	}
}

package v1alpha1

import (
	"encoding/json"
	"net/http"
)

// JobStatus is the lifecycle state of a comparison job.
type JobStatus string

const (
	JobStatusCreated JobStatus = "CREATED"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusDone    JobStatus = "DONE"
	JobStatusFailed  JobStatus = "FAILED"
)

// Submission is returned when a job is created or an equivalent one already exists.
type Submission struct {
	ResultsId string `json:"results_id"`
	Location  string `json:"location"`
}

type Status struct {
	ResultsId string    `json:"results_id"`
	Status    JobStatus `json:"status"`
	Message   string    `json:"message"`
}

type Result struct {
	Score           float64         `json:"score"`
	SourceTag       string          `json:"source_tag"`
	TargetTag       string          `json:"target_tag"`
	MatchedFeatures string          `json:"matched_features"`
	SourceSnippet   string          `json:"source_snippet"`
	TargetSnippet   string          `json:"target_snippet"`
	Extra           json.RawMessage `json:"extra,omitempty"`
}

// SearchResults is one page of the results of a normal search.
type SearchResults struct {
	Data       json.RawMessage `json:"data"`
	MaxScore   float64         `json:"max_score"`
	TotalCount int64           `json:"total_count"`
	Results    []Result        `json:"results"`
}

// MultitextResults is one page of the results of a multitext search.
type MultitextResults struct {
	Data         json.RawMessage `json:"data"`
	MaxScore     float64         `json:"max_score"`
	TotalCount   int64           `json:"total_count"`
	MultiResults []Result        `json:"multiresults"`
}

type Error struct {
	Message   string  `json:"message"`
	RequestId *string `json:"request_id,omitempty"`
	Data      any     `json:"data,omitempty"`
}

func (s Submission) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (s Status) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (s SearchResults) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (m MultitextResults) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (e Error) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

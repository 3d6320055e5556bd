package model

// Result is one materialized output row of a DONE job. Rows are written by the worker that
// ran the job and are never modified afterwards.
type Result struct {
	ID              int64   `gorm:"primaryKey;autoIncrement" json:"-"`
	JobID           string  `gorm:"column:job_id;type:VARCHAR(32);not null;index" json:"-"`
	Score           float64 `gorm:"column:score;not null;index" json:"score"`
	SourceTag       string  `gorm:"column:source_tag" json:"source_tag"`
	TargetTag       string  `gorm:"column:target_tag" json:"target_tag"`
	MatchedFeatures string  `gorm:"column:matched_features" json:"matched_features"`
	SourceSnippet   string  `gorm:"column:source_snippet" json:"source_snippet"`
	TargetSnippet   string  `gorm:"column:target_snippet" json:"target_snippet"`
	Extra           []byte  `gorm:"column:extra;type:jsonb" json:"-"`
}

func (Result) TableName() string {
	return "results"
}

type ResultList []Result

package model

import (
	"encoding/json"
	"time"
)

type JobType string

const (
	JobTypeNormal JobType = "normal"
	JobTypeMulti  JobType = "multitext"
)

func (t JobType) Valid() bool {
	return t == JobTypeNormal || t == JobTypeMulti
}

type JobStatus string

// Job status constants
const (
	JobStatusCreated JobStatus = "CREATED"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusDone    JobStatus = "DONE"
	JobStatusFailed  JobStatus = "FAILED"
)

// transitions lists, for every status, the statuses it may move to.
// CREATED->FAILED is only taken by the reaper for jobs that were never scheduled.
var transitions = map[JobStatus][]JobStatus{
	JobStatusCreated: {JobStatusRunning, JobStatusFailed},
	JobStatusRunning: {JobStatusDone, JobStatusFailed},
}

func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}

// CanTransition reports whether a job in status from may be moved to status to.
func CanTransition(from, to JobStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Predecessors returns the statuses from which to can be reached.
func Predecessors(to JobStatus) []JobStatus {
	var out []JobStatus
	for from, nexts := range transitions {
		for _, next := range nexts {
			if next == to {
				out = append(out, from)
			}
		}
	}
	return out
}

// Job is a unit of deferred comparison work. Parameters and CacheKey never change after
// creation; ResultsRef, MaxScore and TotalCount are written once when the job is DONE.
// ScheduledAt is set once its work item was accepted by the queue.
type Job struct {
	ID            string    `gorm:"primaryKey;type:VARCHAR(32)"`
	JobType       JobType   `gorm:"column:job_type;type:VARCHAR(16);not null;index:jobs_type_cache_key"`
	Status        JobStatus `gorm:"column:status;type:VARCHAR(16);not null;index"`
	Parameters    []byte    `gorm:"column:parameters;type:jsonb;not null"`
	CacheKey      string    `gorm:"column:cache_key;type:VARCHAR(64);not null;index:jobs_type_cache_key"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastQueriedAt *time.Time
	ScheduledAt   *time.Time
	ResultsRef    *string
	MaxScore      *float64
	TotalCount    *int64
	Error         *string
}

func (Job) TableName() string {
	return "jobs"
}

// Summary returns the cached summary scalars, if the job has them.
func (j Job) Summary() (JobSummary, bool) {
	if j.MaxScore == nil || j.TotalCount == nil {
		return JobSummary{}, false
	}
	return JobSummary{MaxScore: *j.MaxScore, TotalCount: *j.TotalCount}, true
}

// Unscheduled reports a CREATED job whose work item never reached the queue.
func (j Job) Unscheduled() bool {
	return j.Status == JobStatusCreated && j.ScheduledAt == nil
}

func (j Job) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}

type JobList []Job

type JobSummary struct {
	MaxScore   float64 `json:"max_score"`
	TotalCount int64   `json:"total_count"`
}

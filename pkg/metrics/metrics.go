package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	tessJobs = "tess_jobs"

	// Submission metrics
	submissionsTotal = "submissions_total"

	// Queue metrics
	queueDepth = "queue_depth"

	// Result metrics
	resultsServedTotal = "results_served_total"
	readPathFailures   = "read_path_failures_total"

	// Labels
	jobTypeLabel   = "job_type"
	outcomeLabel   = "outcome"
	operationLabel = "operation"
)

// Submission outcomes
const (
	OutcomeCreated   = "created"
	OutcomeRedirect  = "redirect"
	OutcomeInFlight  = "in_flight"
	OutcomeSaturated = "saturated"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

/**
* Metrics definition
**/
var submissionsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: tessJobs,
		Name:      submissionsTotal,
		Help:      "number of job submissions partitioned by job type and outcome",
	},
	[]string{jobTypeLabel, outcomeLabel},
)

var queueDepthMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: tessJobs,
		Name:      queueDepth,
		Help:      "number of work items waiting in the work queue when last observed",
	},
)

var resultsServedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: tessJobs,
		Name:      resultsServedTotal,
		Help:      "number of result pages served",
	},
	[]string{jobTypeLabel},
)

var readPathFailuresMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: tessJobs,
		Name:      readPathFailures,
		Help:      "number of best-effort writes on the read path that failed",
	},
	[]string{operationLabel},
)

func IncreaseSubmissionsMetric(jobType, outcome string) {
	labels := prometheus.Labels{
		jobTypeLabel: jobType,
		outcomeLabel: outcome,
	}
	submissionsTotalMetric.With(labels).Inc()
}

func UpdateQueueDepthMetric(depth int) {
	queueDepthMetric.Set(float64(depth))
}

func IncreaseResultsServedMetric(jobType string) {
	resultsServedTotalMetric.With(prometheus.Labels{jobTypeLabel: jobType}).Inc()
}

func IncreaseReadPathFailuresMetric(operation string) {
	readPathFailuresMetric.With(prometheus.Labels{operationLabel: operation}).Inc()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(submissionsTotalMetric)
	prometheus.MustRegister(queueDepthMetric)
	prometheus.MustRegister(resultsServedTotalMetric)
	prometheus.MustRegister(readPathFailuresMetric)
}

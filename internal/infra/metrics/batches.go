package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(batchJobsSubmittedTotal, branchRunsTotal, branchDurationSeconds, batchPollsTotal)
}

var batchJobsSubmittedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "digest_batch_jobs_submitted_total",
		Help: "Total provider batch jobs submitted, labeled by workflow.",
	},
	[]string{"workflow"},
)

var branchRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "digest_branch_runs_total",
		Help: "Branch invocations, labeled by workflow and outcome.",
	},
	[]string{"workflow", "outcome"}, // 'dispatched', 'failed', 'empty', 'locked'
)

var branchDurationSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "digest_branch_duration_seconds",
		Help:    "End-to-end branch duration from submit to dispatch.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	},
	[]string{"workflow"},
)

var batchPollsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "digest_batch_polls_total",
		Help: "Status poll round-trips against the batch provider.",
	},
	[]string{"workflow"},
)

func IncBatchJobsSubmitted(workflow string, n int) {
	batchJobsSubmittedTotal.WithLabelValues(norm(workflow)).Add(float64(n))
}

func IncBranchRun(workflow, outcome string) {
	branchRunsTotal.WithLabelValues(norm(workflow), norm(outcome)).Inc()
}

func ObserveBranchDuration(workflow string, seconds float64) {
	branchDurationSeconds.WithLabelValues(norm(workflow)).Observe(seconds)
}

func IncBatchPoll(workflow string) {
	batchPollsTotal.WithLabelValues(norm(workflow)).Inc()
}

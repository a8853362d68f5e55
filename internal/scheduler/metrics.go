package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "krodit"

var (
	jobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job executions by outcome",
		},
		[]string{"job", "status"},
	)

	billingAdvancements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "billing_advancements_total",
			Help:      "Billing dates rolled forward or cleared",
		},
		[]string{"outcome"},
	)
)

// recordJobRun records one scheduled job execution.
func recordJobRun(job, status string) {
	jobRuns.WithLabelValues(job, status).Inc()
}

// recordAdvancement records one billing date change.
func recordAdvancement(outcome string) {
	billingAdvancements.WithLabelValues(outcome).Inc()
}

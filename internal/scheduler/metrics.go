package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_agent_scheduler_job_runs_total",
		Help: "Total number of successful scheduled job runs, by job.",
	}, []string{"job"})

	JobErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_agent_scheduler_job_errors_total",
		Help: "Total number of failed scheduled job runs, by job.",
	}, []string{"job"})

	JobDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "prediction_agent_scheduler_job_duration_seconds",
		Help:    "Duration of scheduled job runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
)

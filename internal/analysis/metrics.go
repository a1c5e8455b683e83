package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReportsGeneratedTotal tracks overall report builds.
	ReportsGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_agent_analysis_reports_total",
		Help: "Total number of overall analysis reports generated",
	})

	// ReportDurationSeconds tracks report build latency.
	ReportDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prediction_agent_analysis_report_duration_seconds",
		Help:    "Duration of overall report generation",
		Buckets: prometheus.DefBuckets,
	})
)

package resolver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TradesResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_agent_trades_resolved_total",
		Help: "Total number of trades settled by the resolution sweep, by final status.",
	}, []string{"status"})

	SweepErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_agent_resolution_sweep_errors_total",
		Help: "Total number of per-trade errors during resolution sweeps.",
	})

	SweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prediction_agent_resolution_sweep_duration_seconds",
		Help:    "Duration of resolution sweeps in seconds.",
		Buckets: prometheus.DefBuckets,
	})
)

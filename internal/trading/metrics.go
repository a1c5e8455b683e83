package trading

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TradesExecutedTotal tracks recorded trades.
	TradesExecutedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_agent_trades_executed_total",
			Help: "Total number of trades recorded in the ledger",
		},
		[]string{"mode", "side"},
	)

	// RiskDenialsTotal tracks trades rejected by risk limits.
	RiskDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_agent_risk_denials_total",
			Help: "Total number of opportunities denied by a risk limit",
		},
		[]string{"limit"},
	)

	// ExecutionDurationSeconds tracks end-to-end execution latency,
	// risk checks included.
	ExecutionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prediction_agent_execution_duration_seconds",
		Help:    "Duration of opportunity execution including risk checks",
		Buckets: prometheus.DefBuckets,
	})

	// ExecutionErrorsTotal tracks execution failures other than risk denials.
	ExecutionErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_agent_execution_errors_total",
		Help: "Total number of execution errors",
	})

	// OpenExposureUSD reports the current total open exposure.
	OpenExposureUSD = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prediction_agent_open_exposure_usd",
		Help: "Sum of amounts across open trades",
	})
)

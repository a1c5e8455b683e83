package marketdata

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchesTotal tracks successful platform API fetches.
	FetchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_agent_marketdata_fetches_total",
		Help: "Total number of successful market data fetches",
	})

	// FetchErrorsTotal tracks failed platform API fetches.
	FetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_agent_marketdata_fetch_errors_total",
		Help: "Total number of failed market data fetches",
	})
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powdercast_provider_calls_total",
			Help: "Total outbound provider API calls",
		},
		[]string{"provider", "status"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "powdercast_provider_latency_seconds",
			Help:    "Provider API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	AdapterFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powdercast_adapter_failures_total",
			Help: "Adapter fetches that returned a failure, by error kind",
		},
		[]string{"provider", "kind"},
	)

	ForecastRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "powdercast_forecast_runs_total",
			Help: "Completed full-catalog orchestration runs",
		},
	)

	ForecastRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "powdercast_forecast_run_duration_seconds",
			Help:    "Wall time of a full-catalog orchestration run",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	LocationsForecasted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "powdercast_locations_forecasted_total",
			Help: "Locations that produced a forecast in a run",
		},
	)

	LocationsUnavailable = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "powdercast_locations_unavailable_total",
			Help: "Locations omitted from a run because every adapter failed",
		},
	)
)

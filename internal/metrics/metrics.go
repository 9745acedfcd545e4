// Package metrics provides Prometheus metrics for the vonatradar server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Registry is the Prometheus registry for this metrics instance
	Registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Pipeline metrics
	RefreshCyclesTotal   *prometheus.CounterVec
	RefreshCycleDuration prometheus.Histogram
	VehiclesPublished    prometheus.Gauge
	VehiclesFiltered     prometheus.Counter
	RefreshTriggersTotal *prometheus.CounterVec

	// Serving metrics
	SnapshotReadsTotal *prometheus.CounterVec
}

// New creates and registers all application metrics with a new registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vonatradar_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vonatradar_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	refreshCyclesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vonatradar_refresh_cycles_total",
			Help: "Total refresh pipeline cycles by outcome",
		},
		[]string{"outcome"},
	)

	refreshCycleDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vonatradar_refresh_cycle_duration_seconds",
		Help:    "Duration of full refresh pipeline cycles",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	vehiclesPublished := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vonatradar_vehicles_published",
		Help: "Number of vehicles in the most recently published snapshot",
	})

	vehiclesFiltered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vonatradar_vehicles_filtered_total",
		Help: "Total vehicles dropped for exceeding the removal threshold",
	})

	refreshTriggersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vonatradar_refresh_triggers_total",
			Help: "Total refresh requests by source (scheduler, reader, api)",
		},
		[]string{"source"},
	)

	snapshotReadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vonatradar_snapshot_reads_total",
			Help: "Total snapshot reads by freshness result",
		},
		[]string{"freshness"},
	)

	registry.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		refreshCyclesTotal,
		refreshCycleDuration,
		vehiclesPublished,
		vehiclesFiltered,
		refreshTriggersTotal,
		snapshotReadsTotal,
	)

	return &Metrics{
		Registry:             registry,
		HTTPRequestsTotal:    httpRequestsTotal,
		HTTPRequestDuration:  httpRequestDuration,
		RefreshCyclesTotal:   refreshCyclesTotal,
		RefreshCycleDuration: refreshCycleDuration,
		VehiclesPublished:    vehiclesPublished,
		VehiclesFiltered:     vehiclesFiltered,
		RefreshTriggersTotal: refreshTriggersTotal,
		SnapshotReadsTotal:   snapshotReadsTotal,
	}
}

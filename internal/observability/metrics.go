package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "calfire_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for one ETL run.
// They live on a dedicated registry that is dumped to a textfile when the
// run ends.
type Metrics struct {
	registry *prometheus.Registry

	IncidentsRead      prometheus.Counter
	IncidentsInvalid   prometheus.Counter
	IncidentsJoined    *prometheus.CounterVec // labels: method={polygon,county_name}
	IncidentsUnmatched prometheus.Counter

	// Rainfall metrics.
	RainfallObservations prometheus.Counter
	RainfallUnmapped     prometheus.Counter
	FetchRequests        *prometheus.CounterVec // labels: outcome={success,error}
	FetchCache           *prometheus.CounterVec // labels: result={hit,miss}
	FetchDuration        prometheus.Histogram

	RowsWritten   *prometheus.CounterVec   // labels: table
	StageDuration *prometheus.HistogramVec // labels: stage

	LastRunSuccess   prometheus.Gauge
	LastRunTimestamp prometheus.Gauge
}

// NewMetrics creates all job metrics on a fresh registry.
func NewMetrics() *Metrics {
	return newMetrics(prometheus.NewRegistry())
}

// NewMetricsForTesting creates Metrics on a pedantic registry so tests catch
// inconsistent metric definitions.
func NewMetricsForTesting() *Metrics {
	return newMetrics(prometheus.NewPedanticRegistry())
}

func newMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		IncidentsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_read_total",
			Help:      "Valid incident rows read from the CAL FIRE export.",
		}),
		IncidentsInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_invalid_total",
			Help:      "Incident rows dropped for an unparseable date or acreage.",
		}),
		IncidentsJoined: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_joined_total",
			Help:      "Incident records attributed to a county, by join method.",
		}, []string{"method"}),
		IncidentsUnmatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_unmatched_total",
			Help:      "Incidents excluded because no county could be determined.",
		}),
		RainfallObservations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rainfall_observations_total",
			Help:      "Station-month precipitation observations kept for aggregation.",
		}),
		RainfallUnmapped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rainfall_unmapped_total",
			Help:      "Observations dropped because the station has no known county.",
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cdec_requests_total",
			Help:      "CDEC report requests by outcome.",
		}, []string{"outcome"}),
		FetchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cdec_cache_total",
			Help:      "Raw rainfall cache lookups by result.",
		}, []string{"result"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cdec_request_duration_seconds",
			Help:      "CDEC report request duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows written per output table.",
		}, []string{"table"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"stage"}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last run completed, 0 if it failed.",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time at which the last run finished.",
		}),
	}

	reg.MustRegister(
		m.IncidentsRead,
		m.IncidentsInvalid,
		m.IncidentsJoined,
		m.IncidentsUnmatched,
		m.RainfallObservations,
		m.RainfallUnmapped,
		m.FetchRequests,
		m.FetchCache,
		m.FetchDuration,
		m.RowsWritten,
		m.StageDuration,
		m.LastRunSuccess,
		m.LastRunTimestamp,
	)
	return m
}

// Gatherer exposes the registry to the status server and tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes the current metric values in the text exposition
// format, for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

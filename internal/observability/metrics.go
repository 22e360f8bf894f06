package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// observation prior pipeline.
type Metrics struct {
	ObservationsConsumed prometheus.Counter
	ObservationsProduced prometheus.Counter
	TransformErrors      prometheus.Counter
	CoordinateMisses     prometheus.Counter
	PipelineRunning      prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Loaded ensemble state.
	EnsembleMembers prometheus.Gauge
	StateSize       prometheus.Gauge
}

const namespace = "ensemble_da"

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ObservationsConsumed,
		m.ObservationsProduced,
		m.TransformErrors,
		m.CoordinateMisses,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.EnsembleMembers,
		m.StateSize,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ObservationsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_consumed_total",
			Help:      "Total observations read from the source topic.",
		}),
		ObservationsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_produced_total",
			Help:      "Total observations with priors written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total observations that could not be parsed or matched.",
		}),
		CoordinateMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coordinate_misses_total",
			Help:      "Observations whose (location, time, var) is not in the ensemble state.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of observations per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		EnsembleMembers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ensemble_members",
			Help:      "Number of members in the loaded ensemble state.",
		}),
		StateSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state_size",
			Help:      "Length of the flattened non-member state vector.",
		}),
	}
}

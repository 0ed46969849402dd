package etl

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for pipeline runs. All methods are
// nil-safe so a pipeline without metrics attached costs nothing.
type Metrics struct {
	Registry      *prometheus.Registry
	RecordsTotal  *prometheus.CounterVec
	BatchesTotal  *prometheus.CounterVec
	BatchFailures *prometheus.CounterVec
	LoadErrors    *prometheus.CounterVec
	BatchDuration prometheus.Histogram
	SyncsTotal    *prometheus.CounterVec
}

// NewMetrics constructs and registers all collectors on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_records_total",
			Help: "Raw records drawn from extractors.",
		},
		[]string{"supplier"},
	)
	batches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_batches_total",
			Help: "Batches handed to transform+load.",
		},
		[]string{"supplier"},
	)
	batchFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_batch_failures_total",
			Help: "Batches that failed as a whole during transform or load.",
		},
		[]string{"supplier"},
	)
	loadErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_load_errors_total",
			Help: "Per-record errors reported by loaders.",
		},
		[]string{"supplier"},
	)
	batchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "etl_batch_duration_seconds",
			Help:    "Latency of one transform+load batch.",
			Buckets: prometheus.DefBuckets,
		},
	)
	syncs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_syncs_total",
			Help: "Completed sync runs by final status.",
		},
		[]string{"supplier", "status"},
	)

	registry.MustRegister(records, batches, batchFailures, loadErrors, batchDuration, syncs)

	return &Metrics{
		Registry:      registry,
		RecordsTotal:  records,
		BatchesTotal:  batches,
		BatchFailures: batchFailures,
		LoadErrors:    loadErrors,
		BatchDuration: batchDuration,
		SyncsTotal:    syncs,
	}
}

func (m *Metrics) AddRecords(supplier string, n int) {
	if m == nil {
		return
	}
	m.RecordsTotal.WithLabelValues(supplier).Add(float64(n))
}

func (m *Metrics) IncBatch(supplier string) {
	if m == nil {
		return
	}
	m.BatchesTotal.WithLabelValues(supplier).Inc()
}

func (m *Metrics) IncBatchFailure(supplier string) {
	if m == nil {
		return
	}
	m.BatchFailures.WithLabelValues(supplier).Inc()
}

func (m *Metrics) AddLoadErrors(supplier string, n int) {
	if m == nil {
		return
	}
	m.LoadErrors.WithLabelValues(supplier).Add(float64(n))
}

func (m *Metrics) ObserveBatch(d time.Duration) {
	if m == nil {
		return
	}
	m.BatchDuration.Observe(d.Seconds())
}

func (m *Metrics) IncSync(supplier string, status Status) {
	if m == nil {
		return
	}
	m.SyncsTotal.WithLabelValues(supplier, string(status)).Inc()
}

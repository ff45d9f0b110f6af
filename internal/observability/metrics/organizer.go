package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// OrganizerMetrics contains Prometheus metrics for storage, migration, template and store operations.
type OrganizerMetrics struct {
	storageOperationsTotal   *prometheus.CounterVec
	storageOperationDuration *prometheus.HistogramVec

	migrationRunsTotal    *prometheus.CounterVec
	migrationRecordsTotal *prometheus.CounterVec
	migrationDuration     prometheus.Histogram

	templateApplicationsTotal *prometheus.CounterVec

	storeOperationsTotal   *prometheus.CounterVec
	storeOperationDuration *prometheus.HistogramVec

	errorsTotal *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewOrganizerMetrics creates the metrics and registers them with registry.
func NewOrganizerMetrics(registry prometheus.Registerer) (*OrganizerMetrics, error) {
	m := &OrganizerMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *OrganizerMetrics) initMetrics() {
	m.storageOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visitprep_storage_operations_total",
			Help: "Total number of key-value storage operations",
		},
		[]string{"operation", "status"},
	)

	m.storageOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visitprep_storage_operation_duration_seconds",
			Help:    "Time taken for key-value storage operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart100us, BucketFactor2, BucketCount12),
		},
		[]string{"operation"},
	)

	m.migrationRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visitprep_migration_runs_total",
			Help: "Legacy list conversion runs by result",
		},
		[]string{"result"}, // success, noop, error
	)

	m.migrationRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visitprep_migration_records_total",
			Help: "Legacy records handled during conversion",
		},
		[]string{"outcome"}, // converted, skipped
	)

	m.migrationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "visitprep_migration_duration_seconds",
		Help:    "Time taken for one legacy list conversion run",
		Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
	})

	m.templateApplicationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visitprep_template_applications_total",
			Help: "Template applications by result",
		},
		[]string{"result"},
	)

	m.storeOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visitprep_store_operations_total",
			Help: "State store mutations by operation and status",
		},
		[]string{"operation", "status"},
	)

	m.storeOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visitprep_store_operation_duration_seconds",
			Help:    "Time taken for state store mutations including persistence",
			Buckets: prometheus.ExponentialBuckets(BucketStart100us, BucketFactor2, BucketCount12),
		},
		[]string{"operation"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visitprep_errors_total",
			Help: "Errors by operation and error category",
		},
		[]string{"operation", "error_type"},
	)

	m.collectors = []prometheus.Collector{
		m.storageOperationsTotal,
		m.storageOperationDuration,
		m.migrationRunsTotal,
		m.migrationRecordsTotal,
		m.migrationDuration,
		m.templateApplicationsTotal,
		m.storeOperationsTotal,
		m.storeOperationDuration,
		m.errorsTotal,
	}
}

// Describe implements the Collector interface
func (m *OrganizerMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *OrganizerMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordOperation implements Recorder. Unknown operations are dropped.
func (m *OrganizerMetrics) RecordOperation(operation, status string) {
	switch {
	case isStorageOp(operation):
		m.storageOperationsTotal.WithLabelValues(operation, status).Inc()
	case operation == OpMigration:
		m.migrationRunsTotal.WithLabelValues(status).Inc()
	case operation == OpMigrationRecord:
		m.migrationRecordsTotal.WithLabelValues(status).Inc()
	case operation == OpTemplateApply:
		m.templateApplicationsTotal.WithLabelValues(status).Inc()
	case strings.HasPrefix(operation, storeOpPrefix):
		m.storeOperationsTotal.WithLabelValues(operation, status).Inc()
	}
}

// RecordDuration implements Recorder.
func (m *OrganizerMetrics) RecordDuration(operation string, seconds float64) {
	switch {
	case isStorageOp(operation):
		m.storageOperationDuration.WithLabelValues(operation).Observe(seconds)
	case operation == OpMigration:
		m.migrationDuration.Observe(seconds)
	case strings.HasPrefix(operation, storeOpPrefix):
		m.storeOperationDuration.WithLabelValues(operation).Observe(seconds)
	}
}

// RecordError implements Recorder.
func (m *OrganizerMetrics) RecordError(operation, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

func isStorageOp(operation string) bool {
	switch operation {
	case OpStorageGet, OpStorageSet, OpStorageDelete:
		return true
	default:
		return false
	}
}

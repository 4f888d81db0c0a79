package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Attempt outcomes used as the "outcome" label of AttemptsTotal.
const (
	OutcomeUnique    = "unique"
	OutcomeRedundant = "redundant"
	OutcomeNotFound  = "not_found"
	OutcomeRejected  = "rejected"
	OutcomeInvalid   = "invalid"
)

// Registry holds all metrics for the application
type Registry struct {
	// Sampling Metrics
	AttemptsTotal        *prometheus.CounterVec
	PathsFoundTotal      prometheus.Counter
	UniquePathsTotal     prometheus.Counter
	ReviewFlagsTotal     prometheus.Counter
	ToolsetsRemovedTotal prometheus.Counter
	PathSearchDuration   *prometheus.HistogramVec
	PathHops             prometheus.Histogram

	// Coverage Metrics
	CoverageRatio *prometheus.GaugeVec
	ScopeSize     *prometheus.GaugeVec

	// Validation Metrics
	FindingsTotal       *prometheus.CounterVec
	PathsValidatedTotal *prometheus.CounterVec

	// Run Metrics
	RunStatusTransitions *prometheus.CounterVec
	RunDuration          prometheus.Histogram

	// Storage Metrics
	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
}

// NewRegistry creates a new metrics registry with all metrics initialized.
// Each process builds one and hands it to the components that report.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	// Initialize all metrics
	r.initSamplingMetrics()
	r.initCoverageMetrics()
	r.initValidationMetrics()
	r.initRunMetrics()
	r.initStorageMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

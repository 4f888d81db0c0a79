package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initCoverageMetrics() {
	r.CoverageRatio = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "netprobe_coverage_ratio",
			Help: "Fraction of the in-scope graph covered by the current run",
		},
		[]string{"kind"},
	)

	r.ScopeSize = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "netprobe_scope_size",
			Help: "Number of in-scope nodes and links of the current run",
		},
		[]string{"kind"},
	)
}

func (r *Registry) initValidationMetrics() {
	r.FindingsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "netprobe_validation_findings_total",
			Help: "Total number of validation findings",
		},
		[]string{"kind", "severity"},
	)

	r.PathsValidatedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "netprobe_paths_validated_total",
			Help: "Total number of validated paths by result",
		},
		[]string{"result"},
	)
}

func (r *Registry) initRunMetrics() {
	r.RunStatusTransitions = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "netprobe_run_status_transitions_total",
			Help: "Run status transitions by target status",
		},
		[]string{"status"},
	)

	r.RunDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netprobe_run_duration_seconds",
			Help:    "Wall time of finished runs in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600, 4 * 3600},
		},
	)
}

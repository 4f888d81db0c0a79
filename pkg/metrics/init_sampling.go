package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSamplingMetrics() {
	r.AttemptsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "netprobe_sampling_attempts_total",
			Help: "Total number of sampling attempts by outcome",
		},
		[]string{"outcome"},
	)

	r.PathsFoundTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "netprobe_paths_found_total",
			Help: "Total number of paths found, redundant ones included",
		},
	)

	r.UniquePathsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "netprobe_unique_paths_total",
			Help: "Total number of paths that gained coverage",
		},
	)

	r.ReviewFlagsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "netprobe_review_flags_total",
			Help: "Total number of manual review flags raised",
		},
	)

	r.ToolsetsRemovedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "netprobe_toolsets_removed_total",
			Help: "Toolsets dropped from the sampling universe after repeated rejections",
		},
	)

	r.PathSearchDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "netprobe_path_search_duration_seconds",
			Help:    "Path search duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
		[]string{"result"},
	)

	r.PathHops = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netprobe_path_hops",
			Help:    "Number of links in found paths",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200},
		},
	)
}

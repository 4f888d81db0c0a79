package metrics

import (
	"runtime"
	"time"
)

// RecordStorageOperation records a storage operation
func (r *Registry) RecordStorageOperation(operation, status string, duration time.Duration) {
	r.StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	r.StorageOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAttempt counts one sampling attempt. outcome is one of the
// Outcome constants.
func (r *Registry) RecordAttempt(outcome string) {
	r.AttemptsTotal.WithLabelValues(outcome).Inc()
	switch outcome {
	case OutcomeUnique:
		r.PathsFoundTotal.Inc()
		r.UniquePathsTotal.Inc()
	case OutcomeRedundant, OutcomeInvalid:
		r.PathsFoundTotal.Inc()
	}
}

// RecordPathSearch records one path search and, when found, its hop count.
func (r *Registry) RecordPathSearch(duration time.Duration, found bool, hops int) {
	result := "not_found"
	if found {
		result = "found"
		r.PathHops.Observe(float64(hops))
	}
	r.PathSearchDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordReviewFlag counts a raised review flag.
func (r *Registry) RecordReviewFlag() {
	r.ReviewFlagsTotal.Inc()
}

// RecordToolsetRemoved counts a toolset dropped from the universe.
func (r *Registry) RecordToolsetRemoved() {
	r.ToolsetsRemovedTotal.Inc()
}

// SetScope publishes the size of the run's coverage universe.
func (r *Registry) SetScope(nodes, links int) {
	r.ScopeSize.WithLabelValues("node").Set(float64(nodes))
	r.ScopeSize.WithLabelValues("link").Set(float64(links))
}

// SetCoverage publishes coverage percentages (0-100) as ratios.
func (r *Registry) SetCoverage(nodePct, linkPct, overallPct float64) {
	r.CoverageRatio.WithLabelValues("node").Set(nodePct / 100)
	r.CoverageRatio.WithLabelValues("link").Set(linkPct / 100)
	r.CoverageRatio.WithLabelValues("overall").Set(overallPct / 100)
}

// RecordFinding counts a validation finding.
func (r *Registry) RecordFinding(kind, severity string) {
	r.FindingsTotal.WithLabelValues(kind, severity).Inc()
}

// RecordPathValidated counts a validated path by result.
func (r *Registry) RecordPathValidated(passed bool) {
	result := "failed"
	if passed {
		result = "passed"
	}
	r.PathsValidatedTotal.WithLabelValues(result).Inc()
}

// RecordStatusTransition counts a run entering status.
func (r *Registry) RecordStatusTransition(status string) {
	r.RunStatusTransitions.WithLabelValues(status).Inc()
}

// RecordRunDuration observes the wall time of a finished run.
func (r *Registry) RecordRunDuration(d time.Duration) {
	r.RunDuration.Observe(d.Seconds())
}

// UpdateSystemMetrics refreshes uptime, goroutine and memory gauges.
func (r *Registry) UpdateSystemMetrics(started time.Time) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	r.UptimeSeconds.Set(time.Since(started).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(ms.Alloc))
	r.MemorySysBytes.Set(float64(ms.Sys))
}

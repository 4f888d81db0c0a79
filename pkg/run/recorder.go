package run

import (
	"time"

	"github.com/dd0wney/cluso-netprobe/pkg/metrics"
)

var _ Recorder = (*metrics.Registry)(nil)

// Recorder receives run telemetry. *metrics.Registry implements it.
type Recorder interface {
	RecordAttempt(outcome string)
	RecordPathSearch(duration time.Duration, found bool, hops int)
	RecordReviewFlag()
	RecordToolsetRemoved()
	SetScope(nodes, links int)
	SetCoverage(nodePct, linkPct, overallPct float64)
	RecordFinding(kind, severity string)
	RecordPathValidated(passed bool)
	RecordStatusTransition(status string)
	RecordRunDuration(d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordAttempt(string)                      {}
func (nopRecorder) RecordPathSearch(time.Duration, bool, int) {}
func (nopRecorder) RecordReviewFlag()                         {}
func (nopRecorder) RecordToolsetRemoved()                     {}
func (nopRecorder) SetScope(int, int)                         {}
func (nopRecorder) SetCoverage(float64, float64, float64)     {}
func (nopRecorder) RecordFinding(string, string)              {}
func (nopRecorder) RecordPathValidated(bool)                  {}
func (nopRecorder) RecordStatusTransition(string)             {}
func (nopRecorder) RecordRunDuration(time.Duration)           {}

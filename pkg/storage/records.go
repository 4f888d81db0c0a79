package storage

import (
	"time"

	"github.com/dd0wney/cluso-netprobe/pkg/network"
	"github.com/dd0wney/cluso-netprobe/pkg/paths"
)

// RunStatus is the lifecycle state of a sampling run.
type RunStatus string

const (
	StatusInitialized       RunStatus = "INITIALIZED"
	StatusSamplingCompleted RunStatus = "SAMPLING_COMPLETED"
	StatusCompleted         RunStatus = "COMPLETED"
	StatusPartial           RunStatus = "PARTIAL"
	StatusFailed            RunStatus = "FAILED"
)

// Terminal reports whether no further transition is possible.
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusPartial || s == StatusFailed
}

// RunRecord is the persisted header of a run. Coverage values are
// percentages in [0, 100]; the target is a fraction in [0, 1].
type RunRecord struct {
	RunID            string
	Filter           network.ScopeFilter
	Tag              string
	Status           RunStatus
	CoverageTarget   float64
	AchievedCoverage float64
	TotalNodes       int
	TotalLinks       int

	Attempts    int
	PathsFound  int
	UniquePaths int
	Errors      int
	ReviewFlags int

	StartedAt time.Time
	UpdatedAt time.Time
	EndedAt   time.Time // zero while the run is in progress
}

// PathDefinition is a deduplicated path, shared by every attempt that
// discovered the same sequence.
type PathDefinition struct {
	ID        int64
	Hash      string
	Path      paths.Record
	Context   []byte // paths.EncodeContext output
	CreatedAt time.Time
}

// Attempt links a run to a discovered path definition.
type Attempt struct {
	RunID            string
	PathDefinitionID int64
	StartNodeID      int64
	EndNodeID        int64
	Cost             float64
	AttemptedAt      time.Time
}

// ReviewFlag asks for manual attention, e.g. two used connection points
// that no discovered path connects.
type ReviewFlag struct {
	RunID       string
	Reason      string
	ObjectType  string
	Toolset     string
	StartPOCID  int64
	EndPOCID    int64
	StartNodeID int64
	EndNodeID   int64
	CreatedAt   time.Time
}

// CoverageSummary is a snapshot of a run's coverage counters.
type CoverageSummary struct {
	RunID           string
	Filter          network.ScopeFilter
	TotalNodes      int
	TotalLinks      int
	CoveredNodes    int
	CoveredLinks    int
	NodeCoverage    float64
	LinkCoverage    float64
	OverallCoverage float64
	RecordedAt      time.Time
}

// RunSummary holds the final metrics of a run.
type RunSummary struct {
	RunID  string
	Tag    string
	Status RunStatus

	Attempts         int
	PathsFound       int
	UniquePaths      int
	Errors           int
	ReviewFlags      int
	PathsValidated   int
	PathsFailed      int
	Findings         int
	CriticalFindings int

	TargetCoverage   float64 // fraction
	AchievedCoverage float64 // percent
	Efficiency       float64
	SuccessRate      float64 // paths found per attempt, percent

	AvgPathNodes  float64
	AvgPathLinks  float64
	AvgPathLength float64

	StartedAt time.Time
	EndedAt   time.Time
}

// Duration is the wall time between start and end.
func (s RunSummary) Duration() time.Duration {
	if s.EndedAt.IsZero() || s.StartedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

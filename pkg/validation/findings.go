package validation

import (
	"fmt"

	"github.com/dd0wney/cluso-netprobe/pkg/paths"
)

// Severity grades a finding. CRITICAL findings fail a path.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
)

// Kind is the closed set of defects the path rules can report.
type Kind string

const (
	KindMissingUtility          Kind = "MISSING_UTILITY"
	KindDirectUtilityConnection Kind = "DIRECT_UTILITY_CONNECTION"
	KindOrphanedUtility         Kind = "ORPHANED_UTILITY"
	KindDataIntegrity           Kind = "DATA_INTEGRITY"
	KindBrokenLink              Kind = "BROKEN_LINK"
)

var kindInfo = map[Kind]struct {
	code     string
	severity Severity
}{
	KindMissingUtility:          {"PATH_UTY_001", SeverityCritical},
	KindDirectUtilityConnection: {"PATH_UTY_002", SeverityCritical},
	KindOrphanedUtility:         {"PATH_UTY_003", SeverityWarning},
	KindDataIntegrity:           {"PATH_INT_001", SeverityCritical},
	KindBrokenLink:              {"PATH_INT_002", SeverityCritical},
}

// Kinds returns every defined kind in a fixed order.
func Kinds() []Kind {
	return []Kind{
		KindMissingUtility,
		KindDirectUtilityConnection,
		KindOrphanedUtility,
		KindDataIntegrity,
		KindBrokenLink,
	}
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	_, ok := kindInfo[k]
	return ok
}

// Severity returns the fixed severity for the kind.
func (k Kind) Severity() Severity {
	return kindInfo[k].severity
}

// Code returns the stable error code for the kind.
func (k Kind) Code() string {
	return kindInfo[k].code
}

// ObjectType names what a finding points at.
type ObjectType string

const (
	ObjectNode ObjectType = "NODE"
	ObjectLink ObjectType = "LINK"
	ObjectPath ObjectType = "PATH"
)

// Finding is a single defect reported against a path.
type Finding struct {
	RunID      string
	PathID     int64
	Kind       Kind
	Severity   Severity
	Code       string
	ObjectType ObjectType
	ObjectID   int64
	Message    string
	Context    FindingContext
}

// FindingContext is the structured triage payload of a finding.
type FindingContext struct {
	PathID             int64  `json:"path_id"`
	PathHash           string `json:"path_hash,omitempty"`
	NodeID             int64  `json:"node_id,omitempty"`
	LinkID             int64  `json:"link_id,omitempty"`
	StartNodeID        int64  `json:"s_node_id,omitempty"`
	EndNodeID          int64  `json:"e_node_id,omitempty"`
	Position           int    `json:"position"`
	UtilityNo          *int   `json:"utility_no,omitempty"`
	StartUtility       *int   `json:"s_utility,omitempty"`
	EndUtility         *int   `json:"e_utility,omitempty"`
	SurroundingUtility *int   `json:"surrounding_utility,omitempty"`
	Issue              string `json:"issue"`
}

func newFinding(kind Kind, object ObjectType, id int64, msg string, ctx FindingContext) Finding {
	return Finding{
		Kind:       kind,
		Severity:   kind.Severity(),
		Code:       kind.Code(),
		ObjectType: object,
		ObjectID:   id,
		Message:    msg,
		Context:    ctx,
	}
}

// Result aggregates the findings for one path.
type Result struct {
	PathID   int64
	Findings []Finding
	ByKind   map[Kind]int
	Critical int
	Warnings int
}

// Passed reports whether the path has no CRITICAL findings.
func (r Result) Passed() bool {
	return r.Critical == 0
}

func newResult(pathID int64, findings []Finding) Result {
	r := Result{
		PathID:   pathID,
		Findings: findings,
		ByKind:   make(map[Kind]int),
	}
	for _, f := range findings {
		r.ByKind[f.Kind]++
		switch f.Severity {
		case SeverityCritical:
			r.Critical++
		case SeverityWarning:
			r.Warnings++
		}
	}
	return r
}

// IntegrityFinding reports a stored path that cannot be read back, such as
// an undecodable context blob. The path is not checked further.
func IntegrityFinding(runID string, pathID int64, hash string, cause error) Finding {
	f := newFinding(KindDataIntegrity, ObjectPath, pathID,
		fmt.Sprintf("Path %d could not be read back: %v", pathID, cause),
		FindingContext{PathID: pathID, PathHash: hash, Issue: "unreadable path context"})
	f.RunID = runID
	f.PathID = pathID
	return f
}

// MalformedPathFinding reports a discovered path that failed its record
// checks and was never stored.
func MalformedPathFinding(runID string, rec *paths.Record, cause error) Finding {
	f := newFinding(KindDataIntegrity, ObjectPath, 0,
		fmt.Sprintf("Discovered path from node %d to node %d is malformed: %v", rec.StartNode(), rec.EndNode(), cause),
		FindingContext{
			PathHash:    rec.Hash(),
			StartNodeID: rec.StartNode(),
			EndNodeID:   rec.EndNode(),
			Issue:       "malformed discovered path",
		})
	f.RunID = runID
	return f
}

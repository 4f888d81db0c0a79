package network

import "strings"

// Phase is a construction phase code.
type Phase string

const (
	PhaseBIMP1 Phase = "P1"
	PhaseBIMP2 Phase = "P2"
	PhaseC5DA  Phase = "A"
	PhaseC5DB  Phase = "B"
)

// DataModel identifies the source data model a phase belongs to.
type DataModel string

const (
	DataModelBIM DataModel = "BIM"
	DataModelC5D DataModel = "5D"
)

// phaseAliases maps every accepted spelling (upper case) to its phase.
// Read-only after package init.
var phaseAliases = map[string]Phase{
	"PHASE_1": PhaseBIMP1,
	"BIM_P1":  PhaseBIMP1,
	"PHASE1":  PhaseBIMP1,
	"P1":      PhaseBIMP1,
	"1":       PhaseBIMP1,
	"PHASE_2": PhaseBIMP2,
	"BIM_P2":  PhaseBIMP2,
	"PHASE2":  PhaseBIMP2,
	"P2":      PhaseBIMP2,
	"2":       PhaseBIMP2,
	"C5D_A":   PhaseC5DA,
	"5D_A":    PhaseC5DA,
	"C5DA":    PhaseC5DA,
	"5DA":     PhaseC5DA,
	"A":       PhaseC5DA,
	"C5D_B":   PhaseC5DB,
	"5D_B":    PhaseC5DB,
	"C5DB":    PhaseC5DB,
	"5DB":     PhaseC5DB,
	"B":       PhaseC5DB,
}

// NormalizePhase resolves an alias to its canonical phase.
// The second return value is false for blank or unknown input.
func NormalizePhase(s string) (Phase, bool) {
	key := strings.ToUpper(strings.TrimSpace(s))
	if key == "" {
		return "", false
	}
	p, ok := phaseAliases[key]
	return p, ok
}

// Phases returns all known phases in declaration order.
func Phases() []Phase {
	return []Phase{PhaseBIMP1, PhaseBIMP2, PhaseC5DA, PhaseC5DB}
}

// Model returns the data model of the phase.
func (p Phase) Model() DataModel {
	switch p {
	case PhaseBIMP1, PhaseBIMP2:
		return DataModelBIM
	case PhaseC5DA, PhaseC5DB:
		return DataModelC5D
	default:
		return ""
	}
}

// Cardinal returns the phase number (1 or 2), or 0 if unknown.
func (p Phase) Cardinal() int {
	switch p {
	case PhaseBIMP1, PhaseC5DA:
		return 1
	case PhaseBIMP2, PhaseC5DB:
		return 2
	default:
		return 0
	}
}

func (p Phase) String() string {
	return string(p)
}

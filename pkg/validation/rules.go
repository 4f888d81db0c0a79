package validation

import (
	"fmt"

	"github.com/dd0wney/cluso-netprobe/pkg/logging"
	"github.com/dd0wney/cluso-netprobe/pkg/network"
	"github.com/dd0wney/cluso-netprobe/pkg/paths"
)

// AnnotatedPath is a path with the attributes of its members resolved.
// Nodes and Links are index-aligned with Record.Nodes and Record.Links; an
// entry with a zero ID means the store returned no attributes for it.
type AnnotatedPath struct {
	RunID  string
	PathID int64
	Record paths.Record
	Nodes  []network.Node
	Links  []network.Link
}

// Annotate aligns node and link attributes with the record's sequences.
func Annotate(runID string, pathID int64, rec paths.Record, nodes []network.Node, links []network.Link) AnnotatedPath {
	nodeByID := make(map[int64]network.Node, len(nodes))
	for _, n := range nodes {
		nodeByID[n.ID] = n
	}
	linkByID := make(map[int64]network.Link, len(links))
	for _, l := range links {
		linkByID[l.ID] = l
	}

	ap := AnnotatedPath{
		RunID:  runID,
		PathID: pathID,
		Record: rec,
		Nodes:  make([]network.Node, len(rec.Nodes)),
		Links:  make([]network.Link, len(rec.Links)),
	}
	for i, id := range rec.Nodes {
		ap.Nodes[i] = nodeByID[id]
	}
	for i, id := range rec.Links {
		ap.Links[i] = linkByID[id]
	}
	return ap
}

// Validator runs the path rules. It holds no per-path state and is safe for
// concurrent use.
type Validator struct {
	logger logging.Logger
}

// NewValidator creates a Validator. A nil logger discards output.
func NewValidator(logger logging.Logger) *Validator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Validator{logger: logger.With(logging.Component("validator"))}
}

// Validate runs every rule over p. Rules never short-circuit each other.
func (v *Validator) Validate(p AnnotatedPath) Result {
	var findings []Finding
	findings = append(findings, checkIntegrity(p)...)
	findings = append(findings, checkBrokenLinks(p)...)
	findings = append(findings, checkMissingUtility(p)...)
	findings = append(findings, checkDirectConnections(p)...)
	findings = append(findings, checkOrphanedUtility(p)...)

	for i := range findings {
		findings[i].RunID = p.RunID
		findings[i].PathID = p.PathID
		findings[i].Context.PathID = p.PathID
	}

	res := newResult(p.PathID, findings)
	if len(findings) > 0 {
		v.logger.Debug("path findings",
			logging.RunID(p.RunID),
			logging.Int64("path_id", p.PathID),
			logging.Int("critical", res.Critical),
			logging.Int("warnings", res.Warnings))
	}
	for _, f := range findings {
		if f.Severity != SeverityCritical {
			continue
		}
		v.logger.Debug("critical finding",
			logging.String("code", f.Code),
			logging.NodeID(f.Context.NodeID),
			logging.LinkID(f.Context.LinkID))
	}
	return res
}

func checkIntegrity(p AnnotatedPath) []Finding {
	var out []Finding
	rec := p.Record

	if len(rec.Nodes) == 0 || len(rec.Links) != len(rec.Nodes)-1 {
		out = append(out, newFinding(KindDataIntegrity, ObjectPath, p.PathID,
			fmt.Sprintf("Path has %d links for %d nodes", len(rec.Links), len(rec.Nodes)),
			FindingContext{Issue: "node and link sequences are misaligned"}))
	}

	for i, id := range rec.Nodes {
		switch {
		case id <= 0:
			out = append(out, newFinding(KindDataIntegrity, ObjectNode, id,
				fmt.Sprintf("Path references invalid node id %d at position %d", id, i),
				FindingContext{Position: i, Issue: "null or zero node id"}))
		case i < len(p.Nodes) && p.Nodes[i].ID == 0:
			out = append(out, newFinding(KindDataIntegrity, ObjectNode, id,
				fmt.Sprintf("Node %d has no stored attributes", id),
				FindingContext{NodeID: id, Position: i, Issue: "node missing from graph store"}))
		}
	}
	for i, id := range rec.Links {
		switch {
		case id <= 0:
			out = append(out, newFinding(KindDataIntegrity, ObjectLink, id,
				fmt.Sprintf("Path references invalid link id %d at position %d", id, i),
				FindingContext{Position: i, Issue: "null or zero link id"}))
		case i < len(p.Links) && p.Links[i].ID == 0:
			out = append(out, newFinding(KindDataIntegrity, ObjectLink, id,
				fmt.Sprintf("Link %d has no stored attributes", id),
				FindingContext{LinkID: id, Position: i, Issue: "link missing from graph store"}))
		}
	}
	return out
}

// checkBrokenLinks flags link i when it does not join node i and node i+1.
func checkBrokenLinks(p AnnotatedPath) []Finding {
	var out []Finding
	for i, l := range p.Links {
		if l.ID == 0 || i+1 >= len(p.Record.Nodes) {
			continue
		}
		a, b := p.Record.Nodes[i], p.Record.Nodes[i+1]
		if l.Joins(a, b) {
			continue
		}
		out = append(out, newFinding(KindBrokenLink, ObjectLink, l.ID,
			fmt.Sprintf("Link %d does not connect nodes %d and %d", l.ID, a, b),
			FindingContext{
				LinkID:      l.ID,
				StartNodeID: a,
				EndNodeID:   b,
				Position:    i,
				Issue:       "link endpoints do not match path sequence",
			}))
	}
	return out
}

func checkMissingUtility(p AnnotatedPath) []Finding {
	var out []Finding
	for i, n := range p.Nodes {
		if n.ID == 0 || !n.IsEquipmentPOC || !n.IsUsed || n.HasUtility() {
			continue
		}
		out = append(out, newFinding(KindMissingUtility, ObjectNode, n.ID,
			fmt.Sprintf("Used equipment PoC node %d missing utility assignment", n.ID),
			FindingContext{
				NodeID:   n.ID,
				Position: i,
				Issue:    "equipment PoC node is connected to piping but has no utility assigned",
			}))
	}
	return out
}

// checkDirectConnections flags links joining two different utilities
// without an equipment-logical node on either end.
func checkDirectConnections(p AnnotatedPath) []Finding {
	var out []Finding
	for i, l := range p.Record.Links {
		if i+1 >= len(p.Nodes) {
			break
		}
		s, e := p.Nodes[i], p.Nodes[i+1]
		su, sok := s.Utility()
		eu, eok := e.Utility()
		if !sok || !eok || su == eu {
			continue
		}
		if s.IsEquipmentLogical || e.IsEquipmentLogical {
			continue
		}
		out = append(out, newFinding(KindDirectUtilityConnection, ObjectLink, l,
			fmt.Sprintf("Direct connection between utilities %d and %d", su, eu),
			FindingContext{
				LinkID:       l,
				StartNodeID:  s.ID,
				EndNodeID:    e.ID,
				Position:     i,
				StartUtility: network.IntPtr(su),
				EndUtility:   network.IntPtr(eu),
				Issue:        "different utilities connected directly without equipment separation",
			}))
	}
	return out
}

// checkOrphanedUtility flags an interior node whose utility differs from
// both neighbours while the neighbours agree with each other. Two unset
// neighbours count as agreeing.
func checkOrphanedUtility(p AnnotatedPath) []Finding {
	var out []Finding
	if len(p.Nodes) < 3 {
		return out
	}

	for i := 1; i < len(p.Nodes)-1; i++ {
		cur := p.Nodes[i]
		u, ok := cur.Utility()
		if !ok || cur.IsEquipmentLogical {
			continue
		}
		prev, next := p.Nodes[i-1].UtilityNo, p.Nodes[i+1].UtilityNo
		if sameUtility(&u, prev) || sameUtility(&u, next) || !sameUtility(prev, next) {
			continue
		}
		out = append(out, newFinding(KindOrphanedUtility, ObjectNode, cur.ID,
			fmt.Sprintf("Node %d has isolated utility %d", cur.ID, u),
			FindingContext{
				NodeID:             cur.ID,
				Position:           i,
				UtilityNo:          network.IntPtr(u),
				SurroundingUtility: prev,
				Issue:              "single node with different utility may indicate data entry error",
			}))
	}
	return out
}

func sameUtility(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

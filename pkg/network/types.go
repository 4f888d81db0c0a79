// Package network holds the facility piping model: nodes, links, equipment
// and the connection points (POCs) where equipment attaches to the graph.
//
// All values are loaded once per run and treated as immutable afterwards.
package network

// Node is a connection point in the utility network graph.
type Node struct {
	ID         int64
	FabNo      int
	ModelNo    int
	PhaseNo    int
	E2EGroupNo int
	DataCode   int
	UtilityNo  *int   // nil when no utility is assigned
	Markers    string // free text, see ExtractMarkers

	IsEquipmentLogical bool
	IsEquipmentPOC     bool
	IsUsed             bool
}

// HasUtility reports whether a utility number is assigned.
func (n Node) HasUtility() bool {
	return n.UtilityNo != nil
}

// Utility returns the utility number and whether it is set.
func (n Node) Utility() (int, bool) {
	if n.UtilityNo == nil {
		return 0, false
	}
	return *n.UtilityNo, true
}

// Link is a directed pipe segment from StartNodeID to EndNodeID.
type Link struct {
	ID          int64
	StartNodeID int64
	EndNodeID   int64
	Length      float64
	Cost        float64
}

// Joins reports whether the link connects a and b in either direction.
func (l Link) Joins(a, b int64) bool {
	return (l.StartNodeID == a && l.EndNodeID == b) || (l.StartNodeID == b && l.EndNodeID == a)
}

// Equipment is a tool attached to the network, grouped by toolset.
type Equipment struct {
	ID         int64
	Toolset    string
	NodeID     int64
	CategoryNo int
	PhaseNo    int
	IsActive   bool
}

// ConnectionPoint (POC) is a named interface on a piece of equipment.
type ConnectionPoint struct {
	ID          int64
	EquipmentID int64
	NodeID      int64
	UtilityNo   *int
	Markers     string
	IsUsed      bool
	IsLoopback  bool
}

// IntPtr returns a pointer to v. Handy for optional utility and scope fields.
func IntPtr(v int) *int {
	return &v
}

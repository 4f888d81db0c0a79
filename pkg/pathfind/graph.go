// Package pathfind builds per-toolset adjacency indexes and finds
// shortest-hop paths between connection points.
package pathfind

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/dd0wney/cluso-netprobe/pkg/network"
)

// Direction selects how links are traversed.
type Direction int

const (
	// Directed traverses links from start node to end node only.
	Directed Direction = iota
	// Undirected also traverses links from end node to start node.
	Undirected
)

func (d Direction) String() string {
	if d == Undirected {
		return "undirected"
	}
	return "directed"
}

// ParseDirection accepts "directed" or "undirected"; empty means directed.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "directed":
		return Directed, nil
	case "undirected":
		return Undirected, nil
	}
	return Directed, fmt.Errorf("unknown direction %q", s)
}

// Edge is one traversable step out of a node.
type Edge struct {
	To     int64
	LinkID int64
	Cost   float64
	Length float64
}

// AdjacencyIndex maps a node to its outgoing edges. It is immutable after
// construction and safe for concurrent reads.
type AdjacencyIndex struct {
	adj   map[int64][]Edge
	links int
}

// NewAdjacencyIndex builds an index from links. Without sorting, edges keep
// the order of links. With sorting, each list is ordered by neighbour id and
// then link id, which makes tie-breaks independent of store order.
func NewAdjacencyIndex(links []network.Link, dir Direction, sorted bool) *AdjacencyIndex {
	g := &AdjacencyIndex{adj: make(map[int64][]Edge)}
	seen := make(map[int64]bool, len(links))

	for _, l := range links {
		if seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		g.links++

		g.adj[l.StartNodeID] = append(g.adj[l.StartNodeID], Edge{To: l.EndNodeID, LinkID: l.ID, Cost: l.Cost, Length: l.Length})
		if dir == Undirected && l.StartNodeID != l.EndNodeID {
			g.adj[l.EndNodeID] = append(g.adj[l.EndNodeID], Edge{To: l.StartNodeID, LinkID: l.ID, Cost: l.Cost, Length: l.Length})
		}
	}

	if sorted {
		for _, edges := range g.adj {
			slices.SortStableFunc(edges, func(a, b Edge) int {
				if c := cmp.Compare(a.To, b.To); c != 0 {
					return c
				}
				return cmp.Compare(a.LinkID, b.LinkID)
			})
		}
	}
	return g
}

// Neighbors returns the outgoing edges of id. The slice must not be modified.
func (g *AdjacencyIndex) Neighbors(id int64) []Edge {
	return g.adj[id]
}

// LinkCount is the number of distinct links indexed.
func (g *AdjacencyIndex) LinkCount() int {
	return g.links
}

// SourceCount is the number of nodes with at least one outgoing edge.
func (g *AdjacencyIndex) SourceCount() int {
	return len(g.adj)
}

package pathfind

import (
	"container/list"
	"errors"
	"slices"

	"github.com/dd0wney/cluso-netprobe/pkg/paths"
)

// ErrPathNotFound is the expected outcome when end is unreachable. It is
// not a failure of the search.
var ErrPathNotFound = errors.New("no path between nodes")

// NodeSet is a set of node ids.
type NodeSet map[int64]struct{}

// NewNodeSet builds a set from ids.
func NewNodeSet(ids ...int64) NodeSet {
	s := make(NodeSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership; a nil set contains nothing.
func (s NodeSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

type step struct {
	parent int64
	edge   Edge
}

// Tree is a BFS tree rooted at a start node.
type Tree struct {
	start  int64
	parent map[int64]step
	order  []int64 // discovery order, start excluded
}

// search runs BFS from start. Forbidden nodes are never entered; terminal
// nodes are reached but not expanded. When stop is non-zero the search ends
// as soon as stop is discovered.
func (g *AdjacencyIndex) search(start, stop int64, forbidden, terminal NodeSet) *Tree {
	t := &Tree{start: start, parent: make(map[int64]step)}
	visited := map[int64]bool{start: true}

	queue := list.New()
	queue.PushBack(start)
	for queue.Len() > 0 {
		current := queue.Remove(queue.Front()).(int64)

		for _, e := range g.adj[current] {
			if visited[e.To] || forbidden.Has(e.To) {
				continue
			}
			visited[e.To] = true
			t.parent[e.To] = step{parent: current, edge: e}
			t.order = append(t.order, e.To)
			if e.To == stop {
				return t
			}
			if !terminal.Has(e.To) {
				queue.PushBack(e.To)
			}
		}
	}
	return t
}

// Reachable returns the BFS tree of every node reachable from start without
// entering a forbidden node.
func (g *AdjacencyIndex) Reachable(start int64, forbidden NodeSet) *Tree {
	if forbidden.Has(start) {
		return &Tree{start: start, parent: map[int64]step{}}
	}
	return g.search(start, 0, forbidden, nil)
}

// ReachableUntil is Reachable with terminal nodes that end a branch: they
// appear in the tree but their own edges are not followed.
func (g *AdjacencyIndex) ReachableUntil(start int64, forbidden, terminal NodeSet) *Tree {
	if forbidden.Has(start) {
		return &Tree{start: start, parent: map[int64]step{}}
	}
	return g.search(start, 0, forbidden, terminal)
}

// FindPath returns the shortest-hop path from start to end. Among equally
// short paths the first one in BFS order over the adjacency lists wins.
// A path from a node to itself is never returned.
func (g *AdjacencyIndex) FindPath(start, end int64, forbidden NodeSet) (*paths.Record, error) {
	if start == end || forbidden.Has(start) || forbidden.Has(end) {
		return nil, ErrPathNotFound
	}
	t := g.search(start, end, forbidden, nil)
	rec, ok := t.PathTo(end)
	if !ok {
		return nil, ErrPathNotFound
	}
	return rec, nil
}

// Nodes returns the reached nodes in discovery order, start excluded.
func (t *Tree) Nodes() []int64 {
	return slices.Clone(t.order)
}

// PathTo reconstructs the tree path from the root to end.
func (t *Tree) PathTo(end int64) (*paths.Record, bool) {
	if end == t.start {
		return nil, false
	}
	if _, ok := t.parent[end]; !ok {
		return nil, false
	}

	rec := &paths.Record{}
	node := end
	for node != t.start {
		s := t.parent[node]
		rec.Nodes = append(rec.Nodes, node)
		rec.Links = append(rec.Links, s.edge.LinkID)
		rec.TotalCost += s.edge.Cost
		rec.TotalLength += s.edge.Length
		node = s.parent
	}
	rec.Nodes = append(rec.Nodes, t.start)

	slices.Reverse(rec.Nodes)
	slices.Reverse(rec.Links)
	return rec, true
}

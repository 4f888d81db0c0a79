package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dd0wney/cluso-netprobe/pkg/network"
	"github.com/dd0wney/cluso-netprobe/pkg/validation"
)

// MemoryStore keeps the graph and every sink record in memory. It backs
// fixture runs and tests.
type MemoryStore struct {
	mu sync.RWMutex

	nodes     map[int64]network.Node
	links     map[int64]network.Link
	equipment map[int64]network.Equipment
	pocs      map[int64]network.ConnectionPoint

	runs        map[string]RunRecord
	pathDefs    []PathDefinition // id is index+1
	pathByHash  map[string]int64
	attempts    []Attempt
	findings    []validation.Finding
	reviewFlags []ReviewFlag
	coverage    []CoverageSummary
	summaries   []RunSummary

	writeErr error
	closed   bool
	now      func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:      make(map[int64]network.Node),
		links:      make(map[int64]network.Link),
		equipment:  make(map[int64]network.Equipment),
		pocs:       make(map[int64]network.ConnectionPoint),
		runs:       make(map[string]RunRecord),
		pathByHash: make(map[string]int64),
		now:        time.Now,
	}
}

// AddNodes loads nodes, replacing any with the same id.
func (m *MemoryStore) AddNodes(nodes ...network.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range nodes {
		m.nodes[n.ID] = n
	}
}

// AddLinks loads links, replacing any with the same id.
func (m *MemoryStore) AddLinks(links ...network.Link) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range links {
		m.links[l.ID] = l
	}
}

// AddEquipment loads equipment, replacing any with the same id.
func (m *MemoryStore) AddEquipment(eqs ...network.Equipment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range eqs {
		m.equipment[e.ID] = e
	}
}

// AddConnectionPoints loads POCs, replacing any with the same id.
func (m *MemoryStore) AddConnectionPoints(pocs ...network.ConnectionPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range pocs {
		m.pocs[p.ID] = p
	}
}

// FailWrites makes every subsequent sink call fail with err wrapped as
// ErrStorageUnavailable. Pass nil to recover.
func (m *MemoryStore) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Ping reports whether the store is open.
func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.readable("Ping")
}

// Close marks the store closed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryStore) readable(op string) error {
	if m.closed {
		return NewError(op).Entity("store", 0).Cause(ErrStoreClosed).Err()
	}
	return nil
}

func (m *MemoryStore) writable(op string) error {
	if err := m.readable(op); err != nil {
		return err
	}
	if m.writeErr != nil {
		return UnavailableError(op, m.writeErr)
	}
	return nil
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sortedByID[T any](items []T, id func(T) int64) []T {
	slices.SortFunc(items, func(a, b T) int { return cmp.Compare(id(a), id(b)) })
	return items
}

func linkID(l network.Link) int64 { return l.ID }

// NodesInScope implements GraphStore.
func (m *MemoryStore) NodesInScope(ctx context.Context, filter network.ScopeFilter) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.readable("NodesInScope"); err != nil {
		return nil, err
	}

	var ids []int64
	for id, n := range m.nodes {
		if filter.MatchesNode(n) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *MemoryStore) filterLinks(op string, keep func(network.Link) bool) ([]network.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.readable(op); err != nil {
		return nil, err
	}

	var out []network.Link
	for _, l := range m.links {
		if keep(l) {
			out = append(out, l)
		}
	}
	return sortedByID(out, linkID), nil
}

// LinksBetween implements GraphStore.
func (m *MemoryStore) LinksBetween(ctx context.Context, nodeIDs []int64) ([]network.Link, error) {
	set := idSet(nodeIDs)
	return m.filterLinks("LinksBetween", func(l network.Link) bool {
		_, s := set[l.StartNodeID]
		_, e := set[l.EndNodeID]
		return s && e
	})
}

// LinksFrom implements GraphStore.
func (m *MemoryStore) LinksFrom(ctx context.Context, nodeIDs []int64) ([]network.Link, error) {
	set := idSet(nodeIDs)
	return m.filterLinks("LinksFrom", func(l network.Link) bool {
		_, ok := set[l.StartNodeID]
		return ok
	})
}

// LinksInto implements GraphStore.
func (m *MemoryStore) LinksInto(ctx context.Context, nodeIDs []int64) ([]network.Link, error) {
	set := idSet(nodeIDs)
	return m.filterLinks("LinksInto", func(l network.Link) bool {
		_, ok := set[l.EndNodeID]
		return ok
	})
}

// ToolsetsInScope implements GraphStore.
func (m *MemoryStore) ToolsetsInScope(ctx context.Context, filter network.ScopeFilter) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.readable("ToolsetsInScope"); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []string
	for _, e := range m.equipment {
		if !e.IsActive || e.Toolset == "" || seen[e.Toolset] || !filter.MatchesToolset(e.Toolset) {
			continue
		}
		n, ok := m.nodes[e.NodeID]
		if !ok || !filter.MatchesNode(n) {
			continue
		}
		seen[e.Toolset] = true
		out = append(out, e.Toolset)
	}
	slices.Sort(out)
	return out, nil
}

// EquipmentForToolset implements GraphStore.
func (m *MemoryStore) EquipmentForToolset(ctx context.Context, toolset string) ([]network.Equipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.readable("EquipmentForToolset"); err != nil {
		return nil, err
	}

	var out []network.Equipment
	for _, e := range m.equipment {
		if e.IsActive && e.Toolset == toolset {
			out = append(out, e)
		}
	}
	return sortedByID(out, func(e network.Equipment) int64 { return e.ID }), nil
}

// PocsForEquipment implements GraphStore.
func (m *MemoryStore) PocsForEquipment(ctx context.Context, equipmentID int64) ([]network.ConnectionPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.readable("PocsForEquipment"); err != nil {
		return nil, err
	}

	if e, ok := m.equipment[equipmentID]; !ok || !e.IsActive {
		return nil, nil
	}
	var out []network.ConnectionPoint
	for _, p := range m.pocs {
		if p.EquipmentID == equipmentID {
			out = append(out, p)
		}
	}
	return sortedByID(out, func(p network.ConnectionPoint) int64 { return p.ID }), nil
}

// NodeAttributes implements GraphStore.
func (m *MemoryStore) NodeAttributes(ctx context.Context, nodeIDs []int64) ([]network.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.readable("NodeAttributes"); err != nil {
		return nil, err
	}

	out := make([]network.Node, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		if n, ok := m.nodes[id]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// LinkAttributes implements GraphStore.
func (m *MemoryStore) LinkAttributes(ctx context.Context, linkIDs []int64) ([]network.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.readable("LinkAttributes"); err != nil {
		return nil, err
	}

	out := make([]network.Link, 0, len(linkIDs))
	for _, id := range linkIDs {
		if l, ok := m.links[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

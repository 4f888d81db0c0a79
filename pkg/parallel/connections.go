package parallel

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/dd0wney/cluso-netprobe/pkg/logging"
	"github.com/dd0wney/cluso-netprobe/pkg/network"
	"github.com/dd0wney/cluso-netprobe/pkg/pathfind"
)

// Endpoint is a connection point together with its owning equipment.
type Endpoint struct {
	Toolset   string
	Equipment network.Equipment
	Poc       network.ConnectionPoint
}

// Connection is a downstream path from one connection point to another.
type Connection struct {
	FromEquipmentID int64  `yaml:"from_equipment_id"`
	ToEquipmentID   int64  `yaml:"to_equipment_id"`
	FromPocID       int64  `yaml:"from_poc_id"`
	ToPocID         int64  `yaml:"to_poc_id"`
	PathHash        string `yaml:"path_hash"`
	Hops            int    `yaml:"hops"`
	// Active is true when both connection points are marked used.
	Active bool `yaml:"active"`
}

// Graph is the traversal the analysis needs.
type Graph interface {
	ReachableUntil(start int64, forbidden, terminal pathfind.NodeSet) *pathfind.Tree
}

// EndpointSource lists equipment and connection points.
type EndpointSource interface {
	EquipmentForToolset(ctx context.Context, toolset string) ([]network.Equipment, error)
	PocsForEquipment(ctx context.Context, equipmentID int64) ([]network.ConnectionPoint, error)
}

// CollectEndpoints loads every connection point of the toolsets' active
// equipment.
func CollectEndpoints(ctx context.Context, src EndpointSource, toolsets []string) ([]Endpoint, error) {
	var out []Endpoint
	for _, ts := range toolsets {
		eqs, err := src.EquipmentForToolset(ctx, ts)
		if err != nil {
			return nil, fmt.Errorf("failed to load equipment for toolset %s: %w", ts, err)
		}
		for _, eq := range eqs {
			pocs, err := src.PocsForEquipment(ctx, eq.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load connection points for equipment %d: %w", eq.ID, err)
			}
			for _, p := range pocs {
				out = append(out, Endpoint{Toolset: ts, Equipment: eq, Poc: p})
			}
		}
	}
	return out, nil
}

// analysis holds the read-only lookups shared by all tasks.
type analysis struct {
	graph     Graph
	byNode    map[int64][]Endpoint
	terminals pathfind.NodeSet
	ownNodes  map[int64][]int64 // equipment id -> non-loopback POC nodes
}

func newAnalysis(graph Graph, endpoints []Endpoint) *analysis {
	a := &analysis{
		graph:     graph,
		byNode:    make(map[int64][]Endpoint),
		terminals: make(pathfind.NodeSet),
		ownNodes:  make(map[int64][]int64),
	}
	for _, ep := range endpoints {
		a.byNode[ep.Poc.NodeID] = append(a.byNode[ep.Poc.NodeID], ep)
		a.terminals[ep.Poc.NodeID] = struct{}{}
		if !ep.Poc.IsLoopback {
			a.ownNodes[ep.Equipment.ID] = append(a.ownNodes[ep.Equipment.ID], ep.Poc.NodeID)
		}
	}
	return a
}

// connectionsFrom walks downstream of one connection point. The other
// connection points of the same equipment and the equipment node itself
// are forbidden so the walk leaves through this POC only.
func (a *analysis) connectionsFrom(ep Endpoint) []Connection {
	forbidden := pathfind.NewNodeSet(a.ownNodes[ep.Equipment.ID]...)
	forbidden[ep.Equipment.NodeID] = struct{}{}
	delete(forbidden, ep.Poc.NodeID)

	tree := a.graph.ReachableUntil(ep.Poc.NodeID, forbidden, a.terminals)

	var out []Connection
	for _, node := range tree.Nodes() {
		targets, ok := a.byNode[node]
		if !ok {
			continue
		}
		rec, ok := tree.PathTo(node)
		if !ok {
			continue
		}
		for _, target := range targets {
			if target.Poc.ID == ep.Poc.ID {
				continue
			}
			if target.Equipment.ID == ep.Equipment.ID && !ep.Poc.IsLoopback {
				continue
			}
			out = append(out, Connection{
				FromEquipmentID: ep.Equipment.ID,
				ToEquipmentID:   target.Equipment.ID,
				FromPocID:       ep.Poc.ID,
				ToPocID:         target.Poc.ID,
				PathHash:        rec.Hash(),
				Hops:            rec.HopCount(),
				Active:          ep.Poc.IsUsed && target.Poc.IsUsed,
			})
		}
	}
	return out
}

// AnalyzeConnections finds the downstream connections of every endpoint on
// a pool of workers. Each task writes only its own result slot; the slots
// are merged after the pool drains and sorted by (from POC, to POC).
func AnalyzeConnections(ctx context.Context, graph Graph, endpoints []Endpoint, workers int, logger logging.Logger) ([]Connection, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	timer := logging.StartTimer(logger, "connection analysis finished", logging.Count(len(endpoints)))

	pool, err := NewWorkerPool(workers, logger)
	if err != nil {
		return nil, err
	}

	a := newAnalysis(graph, endpoints)
	results := make([][]Connection, len(endpoints))

	for i, ep := range endpoints {
		if ctx.Err() != nil {
			break
		}
		pool.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			results[i] = a.connectionsFrom(ep)
		})
	}
	pool.Close()

	if err := ctx.Err(); err != nil {
		timer.EndError(err)
		return nil, err
	}
	if n := pool.Panics(); n > 0 {
		err := fmt.Errorf("%d connection point analyses panicked", n)
		timer.EndError(err)
		return nil, err
	}

	var merged []Connection
	for _, r := range results {
		merged = append(merged, r...)
	}
	slices.SortFunc(merged, func(x, y Connection) int {
		if c := cmp.Compare(x.FromPocID, y.FromPocID); c != 0 {
			return c
		}
		return cmp.Compare(x.ToPocID, y.ToPocID)
	})

	timer.AddFields(logging.Int("connections", len(merged)))
	timer.End()
	return merged, nil
}

package pathfind

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/dd0wney/cluso-netprobe/pkg/logging"
	"github.com/dd0wney/cluso-netprobe/pkg/network"
	"github.com/dd0wney/cluso-netprobe/pkg/paths"
)

// GraphSource is the part of the graph store the finder reads.
type GraphSource interface {
	EquipmentForToolset(ctx context.Context, toolset string) ([]network.Equipment, error)
	PocsForEquipment(ctx context.Context, equipmentID int64) ([]network.ConnectionPoint, error)
	LinksFrom(ctx context.Context, nodeIDs []int64) ([]network.Link, error)
	LinksInto(ctx context.Context, nodeIDs []int64) ([]network.Link, error)
}

// Options controls graph construction.
type Options struct {
	Direction     Direction
	SortAdjacency bool
}

// DefaultOptions returns directed traversal with canonical adjacency order.
func DefaultOptions() Options {
	return Options{Direction: Directed, SortAdjacency: true}
}

// Finder builds and caches one adjacency index per toolset (or toolset
// pair). Cached indexes are immutable and may be shared across goroutines.
type Finder struct {
	source GraphSource
	opts   Options
	logger logging.Logger

	mu    sync.Mutex
	cache map[string]*AdjacencyIndex
}

// NewFinder creates a Finder over source.
func NewFinder(source GraphSource, opts Options, logger logging.Logger) *Finder {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Finder{
		source: source,
		opts:   opts,
		logger: logger.With(logging.Component("pathfinder")),
		cache:  make(map[string]*AdjacencyIndex),
	}
}

func cacheKey(toolsets []string) string {
	keys := slices.Clone(toolsets)
	slices.Sort(keys)
	return strings.Join(slices.Compact(keys), "+")
}

// Graph returns the adjacency index for the union of the given toolsets,
// building it on first use.
func (f *Finder) Graph(ctx context.Context, toolsets ...string) (*AdjacencyIndex, error) {
	key := cacheKey(toolsets)

	f.mu.Lock()
	g, ok := f.cache[key]
	f.mu.Unlock()
	if ok {
		return g, nil
	}

	g, err := f.BuildGraph(ctx, toolsets...)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	if cached, ok := f.cache[key]; ok {
		g = cached
	} else {
		f.cache[key] = g
	}
	f.mu.Unlock()
	return g, nil
}

// seedNodes collects the equipment and connection-point nodes of toolsets.
func (f *Finder) seedNodes(ctx context.Context, toolsets []string) ([]int64, error) {
	seen := make(map[int64]bool)
	var seeds []int64
	add := func(id int64) {
		if id > 0 && !seen[id] {
			seen[id] = true
			seeds = append(seeds, id)
		}
	}

	for _, ts := range toolsets {
		eqs, err := f.source.EquipmentForToolset(ctx, ts)
		if err != nil {
			return nil, fmt.Errorf("failed to load equipment for toolset %s: %w", ts, err)
		}
		for _, eq := range eqs {
			add(eq.NodeID)
			pocs, err := f.source.PocsForEquipment(ctx, eq.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load connection points for equipment %d: %w", eq.ID, err)
			}
			for _, p := range pocs {
				add(p.NodeID)
			}
		}
	}
	return seeds, nil
}

// BuildGraph loads the links reachable from the toolsets' equipment and
// connection-point nodes, expanding the frontier until no new node appears.
// Undirected graphs also follow links into the frontier.
func (f *Finder) BuildGraph(ctx context.Context, toolsets ...string) (*AdjacencyIndex, error) {
	timer := logging.StartTimer(f.logger, "adjacency index built", logging.String("toolsets", cacheKey(toolsets)))

	seeds, err := f.seedNodes(ctx, toolsets)
	if err != nil {
		timer.EndError(err)
		return nil, err
	}

	visited := make(map[int64]bool, len(seeds))
	for _, id := range seeds {
		visited[id] = true
	}
	linkSeen := make(map[int64]bool)
	var links []network.Link

	frontier := seeds
	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			timer.EndError(err)
			return nil, err
		}

		batch, err := f.source.LinksFrom(ctx, frontier)
		if err != nil {
			timer.EndError(err)
			return nil, fmt.Errorf("failed to load links: %w", err)
		}
		if f.opts.Direction == Undirected {
			in, err := f.source.LinksInto(ctx, frontier)
			if err != nil {
				timer.EndError(err)
				return nil, fmt.Errorf("failed to load links: %w", err)
			}
			batch = append(batch, in...)
		}

		var next []int64
		for _, l := range batch {
			if linkSeen[l.ID] {
				continue
			}
			linkSeen[l.ID] = true
			links = append(links, l)
			for _, id := range []int64{l.StartNodeID, l.EndNodeID} {
				if !visited[id] {
					visited[id] = true
					next = append(next, id)
				}
			}
		}
		frontier = next
	}

	g := NewAdjacencyIndex(links, f.opts.Direction, f.opts.SortAdjacency)
	timer.AddFields(logging.Int("links", g.LinkCount()))
	timer.End()
	return g, nil
}

// FindPath finds a path within the toolsets' graph.
func (f *Finder) FindPath(ctx context.Context, start, end int64, forbidden NodeSet, toolsets ...string) (*paths.Record, error) {
	g, err := f.Graph(ctx, toolsets...)
	if err != nil {
		return nil, err
	}
	return g.FindPath(start, end, forbidden)
}

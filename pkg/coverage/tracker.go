// Package coverage tracks which in-scope nodes and links a run has
// exercised, using fixed-size bitsets indexed once at scope initialization.
package coverage

import (
	"context"
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/dd0wney/cluso-netprobe/pkg/logging"
	"github.com/dd0wney/cluso-netprobe/pkg/network"
	"github.com/dd0wney/cluso-netprobe/pkg/paths"
	"github.com/dd0wney/cluso-netprobe/pkg/storage"
)

var (
	// ErrEmptyScope means the filters matched no nodes; such a run can
	// never reach a target and must abort.
	ErrEmptyScope = errors.New("scope contains no nodes")
	// ErrAlreadyInitialized is returned by a second InitScope call.
	ErrAlreadyInitialized = errors.New("coverage scope already initialized")
	// ErrNotInitialized is returned when persisting before InitScope.
	ErrNotInitialized = errors.New("coverage scope not initialized")
)

// ScopeSource provides the in-scope graph.
type ScopeSource interface {
	NodesInScope(ctx context.Context, filter network.ScopeFilter) ([]int64, error)
	LinksBetween(ctx context.Context, nodeIDs []int64) ([]network.Link, error)
}

// SummarySink receives coverage snapshots.
type SummarySink interface {
	AppendCoverageSummary(ctx context.Context, s storage.CoverageSummary) error
}

// ScopeSize is the fixed size of a run's coverage universe.
type ScopeSize struct {
	TotalNodes int
	TotalLinks int
}

// Tracker owns the coverage bitsets of one run. It is not safe for
// concurrent use; the run loop is its only caller.
type Tracker struct {
	source ScopeSource
	logger logging.Logger

	filter      network.ScopeFilter
	initialized bool

	nodeIndex map[int64]uint
	linkIndex map[int64]uint
	nodeIDs   []int64 // bit index -> node id
	linkIDs   []int64 // bit index -> link id
	nodes     *bitset.BitSet
	links     *bitset.BitSet

	coveredNodes int
	coveredLinks int
	marks        int
	sinceGain    int
}

// NewTracker creates a tracker reading its scope from source.
func NewTracker(source ScopeSource, logger logging.Logger) *Tracker {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Tracker{
		source: source,
		logger: logger.With(logging.Component("coverage")),
	}
}

// InitScope loads the in-scope nodes and the links joining them, and builds
// the bit index maps. It may be called once per tracker.
func (t *Tracker) InitScope(ctx context.Context, filter network.ScopeFilter) (ScopeSize, error) {
	if t.initialized {
		return t.Size(), ErrAlreadyInitialized
	}

	nodeIDs, err := t.source.NodesInScope(ctx, filter)
	if err != nil {
		return ScopeSize{}, fmt.Errorf("failed to load scope nodes: %w", err)
	}
	if len(nodeIDs) == 0 {
		return ScopeSize{}, fmt.Errorf("%w (filter %s)", ErrEmptyScope, filter.Key())
	}

	links, err := t.source.LinksBetween(ctx, nodeIDs)
	if err != nil {
		return ScopeSize{}, fmt.Errorf("failed to load scope links: %w", err)
	}

	t.nodeIndex = make(map[int64]uint, len(nodeIDs))
	for _, id := range nodeIDs {
		if _, dup := t.nodeIndex[id]; dup {
			continue
		}
		t.nodeIndex[id] = uint(len(t.nodeIDs))
		t.nodeIDs = append(t.nodeIDs, id)
	}
	t.linkIndex = make(map[int64]uint, len(links))
	for _, l := range links {
		if _, dup := t.linkIndex[l.ID]; dup {
			continue
		}
		t.linkIndex[l.ID] = uint(len(t.linkIDs))
		t.linkIDs = append(t.linkIDs, l.ID)
	}

	t.nodes = bitset.New(uint(len(t.nodeIDs)))
	t.links = bitset.New(uint(len(t.linkIDs)))
	t.filter = filter
	t.initialized = true

	size := t.Size()
	t.logger.Info("coverage scope initialized",
		logging.Int("total_nodes", size.TotalNodes),
		logging.Int("total_links", size.TotalLinks),
		logging.String("filter", filter.Key()))
	return size, nil
}

// Size returns the number of indexed nodes and links.
func (t *Tracker) Size() ScopeSize {
	return ScopeSize{TotalNodes: len(t.nodeIDs), TotalLinks: len(t.linkIDs)}
}

// MarkPath sets the bits of every in-scope node and link of p. Ids outside
// the scope are ignored. It reports whether any bit flipped.
func (t *Tracker) MarkPath(p *paths.Record) bool {
	if !t.initialized {
		return false
	}

	gained := false
	for _, id := range p.Nodes {
		if idx, ok := t.nodeIndex[id]; ok && !t.nodes.Test(idx) {
			t.nodes.Set(idx)
			t.coveredNodes++
			gained = true
		}
	}
	for _, id := range p.Links {
		if idx, ok := t.linkIndex[id]; ok && !t.links.Test(idx) {
			t.links.Set(idx)
			t.coveredLinks++
			gained = true
		}
	}

	t.marks++
	if gained {
		t.sinceGain = 0
	} else {
		t.sinceGain++
	}
	return gained
}

// PercentCovered returns combined node+link coverage in [0, 100].
func (t *Tracker) PercentCovered() float64 {
	total := len(t.nodeIDs) + len(t.linkIDs)
	return float64(t.coveredNodes+t.coveredLinks) / float64(max(1, total)) * 100
}

// MetTarget reports whether coverage reached target, a fraction in [0, 1].
// A non-positive target is always met.
func (t *Tracker) MetTarget(target float64) bool {
	if target <= 0 {
		return true
	}
	return t.PercentCovered()/100 >= target
}

// Efficiency is achieved coverage relative to target, or 0 when target is
// non-positive.
func (t *Tracker) Efficiency(target float64) float64 {
	if target <= 0 {
		return 0
	}
	return t.PercentCovered() / 100 / target
}

// Stalled reports whether the last threshold marks gained nothing.
func (t *Tracker) Stalled(threshold int) bool {
	return threshold > 0 && t.sinceGain >= threshold
}

// Uncovered lists the node and link ids not yet covered, in index order.
func (t *Tracker) Uncovered() (nodes, links []int64) {
	if !t.initialized {
		return nil, nil
	}
	for i, id := range t.nodeIDs {
		if !t.nodes.Test(uint(i)) {
			nodes = append(nodes, id)
		}
	}
	for i, id := range t.linkIDs {
		if !t.links.Test(uint(i)) {
			links = append(links, id)
		}
	}
	return nodes, links
}

// Snapshot is a point-in-time view of the tracker's counters.
type Snapshot struct {
	TotalNodes      int
	TotalLinks      int
	CoveredNodes    int
	CoveredLinks    int
	NodeCoverage    float64
	LinkCoverage    float64
	OverallCoverage float64
	Marks           int
	MarksSinceGain  int
}

// Metrics returns the current counters and per-kind percentages.
func (t *Tracker) Metrics() Snapshot {
	pct := func(covered, total int) float64 {
		if total == 0 {
			return 0
		}
		return float64(covered) / float64(total) * 100
	}
	return Snapshot{
		TotalNodes:      len(t.nodeIDs),
		TotalLinks:      len(t.linkIDs),
		CoveredNodes:    t.coveredNodes,
		CoveredLinks:    t.coveredLinks,
		NodeCoverage:    pct(t.coveredNodes, len(t.nodeIDs)),
		LinkCoverage:    pct(t.coveredLinks, len(t.linkIDs)),
		OverallCoverage: t.PercentCovered(),
		Marks:           t.marks,
		MarksSinceGain:  t.sinceGain,
	}
}

// PersistSummary writes one coverage summary row for runID.
func (t *Tracker) PersistSummary(ctx context.Context, sink SummarySink, runID string) error {
	if !t.initialized {
		return ErrNotInitialized
	}
	m := t.Metrics()
	err := sink.AppendCoverageSummary(ctx, storage.CoverageSummary{
		RunID:           runID,
		Filter:          t.filter,
		TotalNodes:      m.TotalNodes,
		TotalLinks:      m.TotalLinks,
		CoveredNodes:    m.CoveredNodes,
		CoveredLinks:    m.CoveredLinks,
		NodeCoverage:    m.NodeCoverage,
		LinkCoverage:    m.LinkCoverage,
		OverallCoverage: m.OverallCoverage,
	})
	if err != nil {
		return fmt.Errorf("failed to persist coverage summary: %w", err)
	}
	return nil
}

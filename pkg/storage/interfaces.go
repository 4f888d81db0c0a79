package storage

import (
	"context"

	"github.com/dd0wney/cluso-netprobe/pkg/network"
	"github.com/dd0wney/cluso-netprobe/pkg/paths"
	"github.com/dd0wney/cluso-netprobe/pkg/validation"
)

// GraphStore is the read-only view of the utility network. Results are
// returned in ascending id order so that downstream traversal is stable.
type GraphStore interface {
	// NodesInScope returns the ids of nodes matching the filter.
	NodesInScope(ctx context.Context, filter network.ScopeFilter) ([]int64, error)
	// LinksBetween returns links with both endpoints in nodeIDs.
	LinksBetween(ctx context.Context, nodeIDs []int64) ([]network.Link, error)
	// LinksFrom returns links whose start node is in nodeIDs.
	LinksFrom(ctx context.Context, nodeIDs []int64) ([]network.Link, error)
	// LinksInto returns links whose end node is in nodeIDs.
	LinksInto(ctx context.Context, nodeIDs []int64) ([]network.Link, error)
	// ToolsetsInScope returns distinct toolset codes of active equipment
	// attached to in-scope nodes.
	ToolsetsInScope(ctx context.Context, filter network.ScopeFilter) ([]string, error)
	// EquipmentForToolset returns the active equipment of a toolset.
	EquipmentForToolset(ctx context.Context, toolset string) ([]network.Equipment, error)
	// PocsForEquipment returns the connection points of active equipment.
	PocsForEquipment(ctx context.Context, equipmentID int64) ([]network.ConnectionPoint, error)
	// NodeAttributes returns the stored nodes for the given ids; unknown ids
	// are skipped.
	NodeAttributes(ctx context.Context, nodeIDs []int64) ([]network.Node, error)
	// LinkAttributes returns the stored links for the given ids; unknown ids
	// are skipped.
	LinkAttributes(ctx context.Context, linkIDs []int64) ([]network.Link, error)
}

// Sink receives everything a run produces. It is write-only from the
// engine's point of view.
type Sink interface {
	// AppendRunRecord inserts or updates the run header keyed by run id.
	AppendRunRecord(ctx context.Context, rec RunRecord) error
	// AppendPathDefinition stores a path once per hash and returns its id.
	AppendPathDefinition(ctx context.Context, path *paths.Record, pathContext []byte) (int64, error)
	AppendAttempt(ctx context.Context, a Attempt) error
	AppendValidationFinding(ctx context.Context, f validation.Finding) error
	AppendReviewFlag(ctx context.Context, flag ReviewFlag) error
	AppendCoverageSummary(ctx context.Context, s CoverageSummary) error
	AppendRunSummary(ctx context.Context, s RunSummary) error
}

// PathReader reads back the paths a run persisted.
type PathReader interface {
	// PathsForRun returns the distinct path definitions attempted in a run,
	// in order of first attempt.
	PathsForRun(ctx context.Context, runID string) ([]PathDefinition, error)
}

// Store is a complete backend.
type Store interface {
	GraphStore
	Sink
	PathReader
	Close() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PGStore)(nil)
	_ Store = (*Instrumented)(nil)
)

package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-netprobe/pkg/network"
	"github.com/dd0wney/cluso-netprobe/pkg/paths"
	"github.com/dd0wney/cluso-netprobe/pkg/validation"
)

func seededStore() *MemoryStore {
	m := NewMemoryStore()
	m.AddNodes(
		network.Node{ID: 1, FabNo: 1, PhaseNo: 1},
		network.Node{ID: 2, FabNo: 1, PhaseNo: 1},
		network.Node{ID: 3, FabNo: 1, PhaseNo: 2},
		network.Node{ID: 4, FabNo: 2, PhaseNo: 1},
	)
	m.AddLinks(
		network.Link{ID: 12, StartNodeID: 1, EndNodeID: 2},
		network.Link{ID: 10, StartNodeID: 2, EndNodeID: 3},
		network.Link{ID: 11, StartNodeID: 3, EndNodeID: 4},
	)
	m.AddEquipment(
		network.Equipment{ID: 1, Toolset: "TS-B", NodeID: 1, IsActive: true},
		network.Equipment{ID: 2, Toolset: "TS-A", NodeID: 2, IsActive: true},
		network.Equipment{ID: 3, Toolset: "TS-A", NodeID: 4, IsActive: true},
		network.Equipment{ID: 4, Toolset: "TS-C", NodeID: 3, IsActive: false},
	)
	m.AddConnectionPoints(
		network.ConnectionPoint{ID: 20, EquipmentID: 2, NodeID: 2},
		network.ConnectionPoint{ID: 21, EquipmentID: 3, NodeID: 4},
		network.ConnectionPoint{ID: 22, EquipmentID: 4, NodeID: 3},
	)
	return m
}

func TestMemoryStore_Scope(t *testing.T) {
	ctx := context.Background()
	m := seededStore()

	ids, err := m.NodesInScope(ctx, network.ScopeFilter{FabNo: network.IntPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	ids, err = m.NodesInScope(ctx, network.ScopeFilter{FabNo: network.IntPtr(1), PhaseNo: network.IntPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)

	codes, err := m.ToolsetsInScope(ctx, network.ScopeFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"TS-A", "TS-B"}, codes, "inactive equipment must not contribute toolsets")

	codes, err = m.ToolsetsInScope(ctx, network.ScopeFilter{FabNo: network.IntPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, []string{"TS-A"}, codes)
}

func TestMemoryStore_Links(t *testing.T) {
	ctx := context.Background()
	m := seededStore()

	between, err := m.LinksBetween(ctx, []int64{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, between, 2)
	assert.Equal(t, int64(10), between[0].ID, "links come back in id order")

	from, err := m.LinksFrom(ctx, []int64{2})
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, int64(10), from[0].ID)

	into, err := m.LinksInto(ctx, []int64{2})
	require.NoError(t, err)
	require.Len(t, into, 1)
	assert.Equal(t, int64(12), into[0].ID)

	attrs, err := m.LinkAttributes(ctx, []int64{11, 99})
	require.NoError(t, err)
	require.Len(t, attrs, 1)
}

func TestMemoryStore_EquipmentAndPocs(t *testing.T) {
	ctx := context.Background()
	m := seededStore()

	eqs, err := m.EquipmentForToolset(ctx, "TS-A")
	require.NoError(t, err)
	require.Len(t, eqs, 2)
	assert.Equal(t, int64(2), eqs[0].ID)

	pocs, err := m.PocsForEquipment(ctx, 3)
	require.NoError(t, err)
	require.Len(t, pocs, 1)
	assert.Equal(t, int64(21), pocs[0].ID)

	pocs, err = m.PocsForEquipment(ctx, 4)
	require.NoError(t, err)
	assert.Empty(t, pocs, "inactive equipment exposes no POCs")

	nodes, err := m.NodeAttributes(ctx, []int64{3, 1, 42})
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, int64(3), nodes[0].ID, "attributes follow request order")
}

func TestMemoryStore_PathDefinitionsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	m := seededStore()

	rec := &paths.Record{Nodes: []int64{1, 2, 3}, Links: []int64{12, 10}}
	id1, err := m.AppendPathDefinition(ctx, rec, []byte("ctx"))
	require.NoError(t, err)
	id2, err := m.AppendPathDefinition(ctx, rec, nil)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, m.PathDefinitionCount())

	rev := rec.Reversed()
	id3, err := m.AppendPathDefinition(ctx, &rev, nil)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3, "direction is part of identity")

	for i := 0; i < 3; i++ {
		require.NoError(t, m.AppendAttempt(ctx, Attempt{RunID: "r1", PathDefinitionID: id1}))
	}
	require.NoError(t, m.AppendAttempt(ctx, Attempt{RunID: "r1", PathDefinitionID: id3}))
	require.NoError(t, m.AppendAttempt(ctx, Attempt{RunID: "r2", PathDefinitionID: id3}))

	assert.Len(t, m.Attempts("r1"), 4)

	defs, err := m.PathsForRun(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, id1, defs[0].ID)
	assert.Equal(t, rec.Hash(), defs[0].Hash)

	_, err = m.AppendPathDefinition(ctx, &paths.Record{Nodes: []int64{1, 0}, Links: []int64{5}}, nil)
	assert.ErrorIs(t, err, paths.ErrDataIntegrity)

	err = m.AppendAttempt(ctx, Attempt{RunID: "r1", PathDefinitionID: 99})
	assert.True(t, IsNotFound(err))
}

func TestMemoryStore_RunUpsert(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	require.NoError(t, m.AppendRunRecord(ctx, RunRecord{RunID: "r1", Status: StatusInitialized}))
	first, ok := m.Run("r1")
	require.True(t, ok)

	require.NoError(t, m.AppendRunRecord(ctx, RunRecord{RunID: "r1", Status: StatusCompleted, AchievedCoverage: 100}))
	got, _ := m.Run("r1")
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 100.0, got.AchievedCoverage)
	assert.Equal(t, first.StartedAt, got.StartedAt)

	assert.ErrorIs(t, m.AppendRunRecord(ctx, RunRecord{}), ErrInvalidID)
}

func TestMemoryStore_FailuresAndClose(t *testing.T) {
	ctx := context.Background()
	m := seededStore()

	m.FailWrites(errors.New("disk full"))
	err := m.AppendValidationFinding(ctx, validation.Finding{RunID: "r1"})
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Empty(t, m.Findings("r1"))

	// Reads keep working while writes fail.
	_, err = m.NodesInScope(ctx, network.ScopeFilter{})
	assert.NoError(t, err)

	m.FailWrites(nil)
	require.NoError(t, m.AppendReviewFlag(ctx, ReviewFlag{RunID: "r1", Reason: "x"}))
	require.NoError(t, m.AppendCoverageSummary(ctx, CoverageSummary{RunID: "r1"}))
	require.NoError(t, m.AppendRunSummary(ctx, RunSummary{RunID: "r1"}))
	assert.Len(t, m.ReviewFlags("r1"), 1)
	assert.Len(t, m.CoverageSummaries("r1"), 1)
	assert.Len(t, m.RunSummaries("r1"), 1)

	assert.NoError(t, m.Ping(ctx))
	require.NoError(t, m.Close())
	_, err = m.NodesInScope(ctx, network.ScopeFilter{})
	assert.True(t, IsClosed(err))
	assert.True(t, IsClosed(m.Ping(ctx)))
}

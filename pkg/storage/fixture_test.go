package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-netprobe/pkg/network"
)

func TestLoadFixture(t *testing.T) {
	ctx := context.Background()
	m, err := LoadFixture("testdata/chain.yaml")
	require.NoError(t, err)

	ids, err := m.NodesInScope(ctx, network.ScopeFilter{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4}, ids)

	codes, err := m.ToolsetsInScope(ctx, network.ScopeFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"TS-A", "TS-B"}, codes)

	nodes, err := m.NodeAttributes(ctx, []int64{1})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	u, ok := nodes[0].Utility()
	assert.True(t, ok)
	assert.Equal(t, 5, u)
	assert.True(t, nodes[0].IsEquipmentPOC)
	assert.Equal(t, "X1(1)", nodes[0].Markers)

	links, err := m.LinkAttributes(ctx, []int64{10})
	require.NoError(t, err)
	assert.Equal(t, 1.5, links[0].Length)
}

func TestParseFixtureRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown key", "nodes:\n  - {id: 1, colour: red}\n"},
		{"duplicate node", "nodes:\n  - {id: 1}\n  - {id: 1}\n"},
		{"zero link id", "links:\n  - {id: 0, start: 1, end: 2}\n"},
		{"not yaml", "nodes: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFixture([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParseFixtureEmpty(t *testing.T) {
	m, err := ParseFixture(nil)
	require.NoError(t, err)

	ids, err := m.NodesInScope(context.Background(), network.ScopeFilter{})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-netprobe/pkg/health"
	"github.com/dd0wney/cluso-netprobe/pkg/logging"
	"github.com/dd0wney/cluso-netprobe/pkg/parallel"
	"github.com/dd0wney/cluso-netprobe/pkg/storage"
)

const chainFixture = "../../pkg/storage/testdata/chain.yaml"

func parse(t *testing.T, args ...string) (cliFlags, error) {
	t.Helper()
	var f cliFlags
	fs := newFlagSet("test", &f)
	require.NoError(t, fs.Parse(args))
	_, err := loadConfig(fs, &f)
	return f, err
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netprobe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
coverage_target: 0.4
seed: 3
max_attempts: 10
fixture_path: from-file.yaml
`), 0o600))

	var f cliFlags
	fs := newFlagSet("test", &f)
	require.NoError(t, fs.Parse([]string{
		"--config", path,
		"--coverage-target", "0.9",
		"--fab", "2",
		"--phase", "5DA",
		"--e2e-groups", "1, 3",
	}))
	cfg, err := loadConfig(fs, &f)
	require.NoError(t, err)

	assert.Equal(t, 0.9, cfg.CoverageTarget)
	assert.Equal(t, uint64(3), cfg.Seed, "unset flags keep file values")
	assert.Equal(t, 10, cfg.MaxAttempts)
	assert.Equal(t, "from-file.yaml", cfg.FixturePath)
	require.NotNil(t, cfg.Scope.FabNo)
	assert.Equal(t, 2, *cfg.Scope.FabNo)
	assert.Equal(t, []int{1, 3}, cfg.Scope.E2EGroupNos)

	filter, err := cfg.Filter()
	require.NoError(t, err)
	require.NotNil(t, filter.PhaseNo)
	assert.Equal(t, 1, *filter.PhaseNo)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no source", nil},
		{"target out of range", []string{"--fixture", "x.yaml", "--coverage-target", "2"}},
		{"bad groups", []string{"--fixture", "x.yaml", "--e2e-groups", "1,x"}},
		{"bad phase", []string{"--fixture", "x.yaml", "--phase", "Q"}},
		{"bad direction", []string{"--fixture", "x.yaml", "--direction", "up"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NETPROBE_DATABASE_URL", "")
			_, err := parse(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestAnalyzeFixture(t *testing.T) {
	var f cliFlags
	fs := newFlagSet("test", &f)
	require.NoError(t, fs.Parse([]string{"--fixture", chainFixture, "--direction", "undirected", "--workers", "2"}))
	cfg, err := loadConfig(fs, &f)
	require.NoError(t, err)

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	require.NoError(t, err)
	defer store.Close()

	conns, err := analyze(ctx, store, cfg, logging.NewNopLogger())
	require.NoError(t, err)
	require.NotEmpty(t, conns)
	for _, c := range conns {
		assert.NotEqual(t, c.FromPocID, c.ToPocID)
		assert.Equal(t, 3, c.Hops)
	}

	out := renderConnections(conns)
	assert.Contains(t, out, "downstream connections")
}

func TestHealthCheckerUsesStorePing(t *testing.T) {
	store, err := storage.LoadFixture(chainFixture)
	require.NoError(t, err)

	hc := newHealthChecker(store)
	ctx := context.Background()
	assert.Equal(t, health.StatusHealthy, hc.CheckReadiness(ctx).Status)

	require.NoError(t, store.Close())
	resp := hc.CheckReadiness(ctx)
	assert.Equal(t, health.StatusUnhealthy, resp.Status)
	assert.Contains(t, resp.Checks["store"].Message, "closed")
}

func TestRenderSummary(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sum := storage.RunSummary{
		RunID:            "run-1",
		Tag:              "20260102_RANDOM_BFS",
		Status:           storage.StatusPartial,
		Attempts:         12,
		PathsFound:       6,
		UniquePaths:      4,
		ReviewFlags:      2,
		Findings:         3,
		CriticalFindings: 1,
		TargetCoverage:   0.9,
		AchievedCoverage: 75,
		SuccessRate:      50,
		AvgPathNodes:     5,
		StartedAt:        started,
		EndedAt:          started.Add(1500 * time.Millisecond),
	}

	out := renderSummary(sum)
	for _, want := range []string{"run-1", "PARTIAL", "75.00%", "target 90.00%", "3 (1 critical)", "1.5s"} {
		assert.True(t, strings.Contains(out, want), "summary missing %q:\n%s", want, out)
	}
}

func TestRenderConnections_Empty(t *testing.T) {
	assert.Contains(t, renderConnections([]parallel.Connection(nil)), "No downstream connections")
}

func TestParseInts(t *testing.T) {
	got, err := parseInts(" 4,,5 ")
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, got)

	_, err = parseInts("1,two")
	assert.Error(t, err)
}

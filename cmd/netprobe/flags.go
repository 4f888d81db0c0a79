package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-netprobe/pkg/config"
	"github.com/dd0wney/cluso-netprobe/pkg/logging"
	"github.com/dd0wney/cluso-netprobe/pkg/storage"
)

// cliFlags holds the raw flag values. Only flags the user set override
// the configuration file.
type cliFlags struct {
	configPath     string
	fixture        string
	databaseURL    string
	fab            int
	model          int
	phase          string
	toolset        string
	e2eGroups      string
	coverageTarget float64
	tag            string
	verbose        bool
	direction      string
	maxAttempts    int
	plateau        int
	seed           uint64
	interToolset   bool
	workers        int
	metricsAddr    string
	logLevel       string
}

func newFlagSet(name string, f *cliFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&f.fixture, "fixture", "", "YAML graph fixture (no database)")
	fs.StringVar(&f.databaseURL, "database-url", "", "PostgreSQL connection URL")
	fs.IntVar(&f.fab, "fab", 0, "Fab number filter")
	fs.IntVar(&f.model, "model", 0, "Model number filter")
	fs.StringVar(&f.phase, "phase", "", "Phase filter (P1, P2, A, B or any alias)")
	fs.StringVar(&f.toolset, "toolset", "", "Restrict to one toolset")
	fs.StringVar(&f.e2eGroups, "e2e-groups", "", "Comma-separated E2E group numbers")
	fs.Float64Var(&f.coverageTarget, "coverage-target", 0, "Coverage target in [0, 1]")
	fs.StringVar(&f.tag, "tag", "", "Free label appended to the run tag")
	fs.BoolVar(&f.verbose, "verbose", false, "Log sampling progress")
	fs.StringVar(&f.direction, "direction", "", "Traversal direction: directed or undirected")
	fs.IntVar(&f.maxAttempts, "max-attempts", 0, "Attempt limit (0 = unbounded)")
	fs.IntVar(&f.plateau, "plateau", 0, "Stop after this many paths without new coverage")
	fs.Uint64Var(&f.seed, "seed", 0, "Random seed (0 = random)")
	fs.BoolVar(&f.interToolset, "inter-toolset", false, "Pair connection points across toolsets")
	fs.IntVar(&f.workers, "workers", 0, "Worker count for connection analysis")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level")
	return fs
}

// loadConfig builds the effective configuration: defaults, then the file,
// then the environment, then explicitly set flags.
func loadConfig(fs *flag.FlagSet, f *cliFlags) (config.Config, error) {
	cfg := config.DefaultConfig()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	var visitErr error
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "fixture":
			cfg.FixturePath = f.fixture
		case "database-url":
			cfg.DatabaseURL = f.databaseURL
		case "fab":
			cfg.Scope.FabNo = &f.fab
		case "model":
			cfg.Scope.ModelNo = &f.model
		case "phase":
			cfg.Scope.Phase = f.phase
		case "toolset":
			cfg.Scope.Toolset = f.toolset
		case "e2e-groups":
			groups, err := parseInts(f.e2eGroups)
			if err != nil {
				visitErr = fmt.Errorf("invalid --e2e-groups: %w", err)
			}
			cfg.Scope.E2EGroupNos = groups
		case "coverage-target":
			cfg.CoverageTarget = f.coverageTarget
		case "tag":
			cfg.Tag = f.tag
		case "verbose":
			cfg.Verbose = f.verbose
		case "direction":
			cfg.Direction = f.direction
		case "max-attempts":
			cfg.MaxAttempts = f.maxAttempts
		case "plateau":
			cfg.PlateauThreshold = f.plateau
		case "seed":
			cfg.Seed = f.seed
		case "inter-toolset":
			cfg.InterToolset = f.interToolset
		case "workers":
			cfg.Workers = f.workers
		case "metrics-addr":
			cfg.MetricsAddr = f.metricsAddr
		case "log-level":
			cfg.LogLevel = f.logLevel
		}
	})
	if visitErr != nil {
		return cfg, visitErr
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func newLogger(cfg config.Config) logging.Logger {
	return logging.NewStderrLogger(logging.ParseLevel(cfg.LogLevel))
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if cfg.FixturePath != "" {
		m, err := storage.LoadFixture(cfg.FixturePath)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	pg, err := storage.NewPGStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return pg, nil
}

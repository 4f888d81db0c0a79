package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-netprobe/pkg/config"
	"github.com/dd0wney/cluso-netprobe/pkg/logging"
	"github.com/dd0wney/cluso-netprobe/pkg/parallel"
	"github.com/dd0wney/cluso-netprobe/pkg/pathfind"
	"github.com/dd0wney/cluso-netprobe/pkg/storage"
)

func connectionsCommand(args []string) int {
	var f cliFlags
	fs := newFlagSet("connections", &f)
	asYAML := fs.Bool("yaml", false, "Print connections as YAML")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := loadConfig(fs, &f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg)
	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", logging.Error(err))
		return 1
	}
	defer store.Close()

	conns, err := analyze(ctx, store, cfg, logger)
	if err != nil {
		logger.Error("connection analysis failed", logging.Error(err))
		return 1
	}

	if *asYAML {
		out, err := yaml.Marshal(conns)
		if err != nil {
			logger.Error("failed to encode connections", logging.Error(err))
			return 1
		}
		os.Stdout.Write(out)
		return 0
	}
	fmt.Println(renderConnections(conns))
	return 0
}

// analyze finds the downstream connections of every connection point in
// the scope's toolsets over one combined graph.
func analyze(ctx context.Context, store storage.Store, cfg config.Config, logger logging.Logger) ([]parallel.Connection, error) {
	filter, err := cfg.Filter()
	if err != nil {
		return nil, err
	}
	pathOpts, err := cfg.PathOptions()
	if err != nil {
		return nil, err
	}

	toolsets, err := store.ToolsetsInScope(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load toolsets: %w", err)
	}
	if len(toolsets) == 0 {
		return nil, nil
	}

	graph, err := pathfind.NewFinder(store, pathOpts, logger).Graph(ctx, toolsets...)
	if err != nil {
		return nil, err
	}
	endpoints, err := parallel.CollectEndpoints(ctx, store, toolsets)
	if err != nil {
		return nil, err
	}
	return parallel.AnalyzeConnections(ctx, graph, endpoints, cfg.Workers, logger)
}

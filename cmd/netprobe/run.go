package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dd0wney/cluso-netprobe/pkg/config"
	"github.com/dd0wney/cluso-netprobe/pkg/health"
	"github.com/dd0wney/cluso-netprobe/pkg/logging"
	"github.com/dd0wney/cluso-netprobe/pkg/metrics"
	"github.com/dd0wney/cluso-netprobe/pkg/run"
	"github.com/dd0wney/cluso-netprobe/pkg/storage"
)

func runCommand(args []string) int {
	var f cliFlags
	fs := newFlagSet("run", &f)
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

	reg := metrics.NewRegistry()
	serveMetrics(ctx, cfg, reg, newHealthChecker(store), logger)

	opts, err := cfg.RunOptions()
	if err != nil {
		logger.Error("invalid run options", logging.Error(err))
		return 2
	}

	orch := run.New(storage.NewInstrumented(store, reg, logger), logger, reg)
	sum, err := orch.Run(ctx, opts)
	fmt.Println(renderSummary(sum))
	if err != nil {
		return 1
	}
	return 0
}

// pinger is implemented by stores that can probe their backend.
type pinger interface {
	Ping(ctx context.Context) error
}

func newHealthChecker(store storage.Store) *health.HealthChecker {
	hc := health.NewHealthChecker()
	hc.RegisterCheck("memory", health.MemoryCheck(nil))
	if p, ok := store.(pinger); ok {
		hc.RegisterCheck("store", health.StoreCheck(p.Ping))
		hc.RegisterReadinessCheck("store", health.StoreCheck(p.Ping))
	}
	return hc
}

func serveMetrics(ctx context.Context, cfg config.Config, reg *metrics.Registry, hc *health.HealthChecker, logger logging.Logger) {
	if cfg.MetricsAddr == "" {
		return
	}
	routes := []metrics.Route{
		{Pattern: "/health", Handler: hc.HTTPHandler()},
		{Pattern: "/ready", Handler: hc.ReadinessHandler()},
	}
	go func() {
		if err := reg.Serve(ctx, cfg.MetricsAddr, logger, routes...); err != nil {
			logger.Error("metrics server stopped", logging.Error(err))
		}
	}()
}

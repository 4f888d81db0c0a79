// Package config loads run configuration from YAML, environment and flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-netprobe/pkg/network"
	"github.com/dd0wney/cluso-netprobe/pkg/pathfind"
	"github.com/dd0wney/cluso-netprobe/pkg/run"
	"github.com/dd0wney/cluso-netprobe/pkg/sampling"
	"github.com/dd0wney/cluso-netprobe/pkg/validation"
)

// Environment variables read by ApplyEnv.
const (
	EnvDatabaseURL = "NETPROBE_DATABASE_URL"
	EnvLogLevel    = "LOG_LEVEL"
)

// Scope is the YAML form of a scope filter. Phase accepts any known alias.
type Scope struct {
	FabNo       *int   `yaml:"fab_no" validate:"omitempty,gt=0"`
	ModelNo     *int   `yaml:"model_no" validate:"omitempty,gt=0"`
	Phase       string `yaml:"phase"`
	E2EGroupNos []int  `yaml:"e2e_group_nos" validate:"omitempty,dive,gt=0"`
	Toolset     string `yaml:"toolset"`
}

// Config holds every setting of a run.
type Config struct {
	Scope          Scope   `yaml:"scope"`
	CoverageTarget float64 `yaml:"coverage_target" validate:"gte=0,lte=1"`
	Tag            string  `yaml:"tag"`
	Verbose        bool    `yaml:"verbose"`
	ProgressEvery  int     `yaml:"progress_every"`

	Direction     string `yaml:"direction" validate:"omitempty,oneof=directed undirected"`
	SortAdjacency bool   `yaml:"sort_adjacency"`

	// MaxAttempts bounds the sampling loop; 0 means unbounded.
	MaxAttempts             int    `yaml:"max_attempts" validate:"gte=0"`
	MaxPairRejections       int    `yaml:"max_pair_rejections"`
	PlateauThreshold        int    `yaml:"plateau_threshold"`
	MaxAttemptsPerEquipment int    `yaml:"max_attempts_per_equipment"`
	InterToolset            bool   `yaml:"inter_toolset"`
	Seed                    uint64 `yaml:"seed"`
	Workers                 int    `yaml:"workers"`

	DatabaseURL string `yaml:"database_url"`
	FixturePath string `yaml:"fixture_path"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		CoverageTarget:          0.8,
		ProgressEvery:           100,
		Direction:               "directed",
		SortAdjacency:           true,
		MaxAttempts:             100000,
		MaxPairRejections:       20,
		PlateauThreshold:        50,
		MaxAttemptsPerEquipment: 3,
		Workers:                 4,
		LogLevel:                "info",
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Normalize replaces non-positive tuning values with defaults.
func (c *Config) Normalize() {
	def := DefaultConfig()
	c.ProgressEvery = validation.DefaultOrInt(c.ProgressEvery, def.ProgressEvery)
	c.MaxPairRejections = validation.DefaultOrInt(c.MaxPairRejections, def.MaxPairRejections)
	c.PlateauThreshold = validation.DefaultOrInt(c.PlateauThreshold, def.PlateauThreshold)
	c.MaxAttemptsPerEquipment = validation.DefaultOrInt(c.MaxAttemptsPerEquipment, def.MaxAttemptsPerEquipment)
	c.Workers = validation.ClampInt(validation.DefaultOrInt(c.Workers, def.Workers), 1, 256)
	c.Direction = validation.DefaultOr(strings.ToLower(strings.TrimSpace(c.Direction)), def.Direction)
	c.Scope.Toolset = strings.TrimSpace(c.Scope.Toolset)
}

// Validate checks struct tags first, then cross-field rules.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}

	return validation.NewConfigValidator("Config").
		RangeFloat("coverage_target", c.CoverageTarget, 0, 1).
		NonNegative("max_attempts", c.MaxAttempts).
		Positive("progress_every", c.ProgressEvery).
		Positive("plateau_threshold", c.PlateauThreshold).
		Positive("max_pair_rejections", c.MaxPairRejections).
		Custom("scope.phase", func() error {
			if c.Scope.Phase == "" {
				return nil
			}
			if _, ok := network.NormalizePhase(c.Scope.Phase); !ok {
				return fmt.Errorf("unknown phase %q", c.Scope.Phase)
			}
			return nil
		}).
		When(c.FixturePath == "", func(v *validation.ConfigValidator) {
			v.Required("database_url", c.DatabaseURL)
		}).
		Custom("source", func() error {
			if c.DatabaseURL != "" && c.FixturePath != "" {
				return errors.New("database_url and fixture_path are mutually exclusive")
			}
			return nil
		}).
		OneOf("log_level", strings.ToLower(c.LogLevel), []string{"debug", "info", "warn", "warning", "error"}).
		RangeInt("workers", c.Workers, 1, 256).
		Validate()
}

// Filter converts the scope to a network filter. The phase alias resolves
// to its phase number.
func (c *Config) Filter() (network.ScopeFilter, error) {
	f := network.ScopeFilter{
		FabNo:       c.Scope.FabNo,
		ModelNo:     c.Scope.ModelNo,
		E2EGroupNos: c.Scope.E2EGroupNos,
		Toolset:     c.Scope.Toolset,
	}
	if c.Scope.Phase != "" {
		p, ok := network.NormalizePhase(c.Scope.Phase)
		if !ok {
			return network.ScopeFilter{}, fmt.Errorf("unknown phase %q", c.Scope.Phase)
		}
		f.PhaseNo = network.IntPtr(p.Cardinal())
	}
	return f, nil
}

// PathOptions returns the graph traversal options.
func (c *Config) PathOptions() (pathfind.Options, error) {
	dir, err := pathfind.ParseDirection(c.Direction)
	if err != nil {
		return pathfind.Options{}, err
	}
	return pathfind.Options{Direction: dir, SortAdjacency: c.SortAdjacency}, nil
}

// SamplingOptions returns the pair selection options.
func (c *Config) SamplingOptions() sampling.Options {
	opts := sampling.DefaultOptions()
	opts.MaxAttemptsPerEquipment = c.MaxAttemptsPerEquipment
	opts.MaxPairRejections = c.MaxPairRejections
	opts.InterToolset = c.InterToolset
	opts.Seed = c.Seed
	return opts
}

// RunOptions assembles everything the orchestrator needs.
func (c *Config) RunOptions() (run.Options, error) {
	filter, err := c.Filter()
	if err != nil {
		return run.Options{}, err
	}
	pathOpts, err := c.PathOptions()
	if err != nil {
		return run.Options{}, err
	}
	return run.Options{
		Filter:           filter,
		CoverageTarget:   c.CoverageTarget,
		Tag:              c.Tag,
		MaxAttempts:      c.MaxAttempts,
		PlateauThreshold: c.PlateauThreshold,
		ProgressEvery:    c.ProgressEvery,
		Verbose:          c.Verbose,
		Path:             pathOpts,
		Sampling:         c.SamplingOptions(),
	}, nil
}

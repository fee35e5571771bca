// Package config loads engine configuration from YAML files and
// environment variables, with defaults suitable for running an evolution
// without any configuration at all.
package config

import (
	"time"

	"github.com/XiaoConstantine/evolve-go/pkg/breeder"
	"github.com/XiaoConstantine/evolve-go/pkg/cache"
	"github.com/XiaoConstantine/evolve-go/pkg/core"
	"github.com/XiaoConstantine/evolve-go/pkg/errors"
	"github.com/XiaoConstantine/evolve-go/pkg/logging"
)

// Config represents the complete configuration for the evolve-go engine.
type Config struct {
	// Engine configuration
	Engine EngineConfig `yaml:"engine,omitempty" validate:"omitempty"`

	// Evolution defaults applied to new EvolutionConfig instances
	Evolution EvolutionSettings `yaml:"evolution,omitempty" validate:"omitempty"`

	// Dedup store configuration
	Dedup DedupConfig `yaml:"dedup,omitempty" validate:"omitempty"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging,omitempty" validate:"omitempty"`
}

// EngineConfig holds fitness evaluation settings.
type EngineConfig struct {
	// Evaluator strategy: "pool" keeps long-lived workers, "spawn"
	// starts goroutines per batch
	Evaluator string `yaml:"evaluator" validate:"omitempty,oneof=pool spawn"`

	// Number of fitness workers (0 = number of CPUs)
	Workers int `yaml:"workers" validate:"min=0"`

	// Upper bound on one batch evaluation (0 = unbounded)
	BatchTimeout time.Duration `yaml:"batch_timeout" validate:"min=0"`
}

// EvolutionSettings carries the scalar evolution knobs that can be set
// from a file. Collaborators (fitness functions, selectors, operators)
// are code and must be wired by the caller.
type EvolutionSettings struct {
	PopulationSize      int  `yaml:"population_size" validate:"min=0"`
	MinPopSizePercent   int  `yaml:"min_pop_size_percent" validate:"min=0,max=100"`
	PreserveFittest     bool `yaml:"preserve_fittest"`
	KeepPopSizeConstant bool `yaml:"keep_pop_size_constant"`
}

// DedupConfig configures the cross-generation dedup store.
type DedupConfig struct {
	// Cache backend settings
	Cache cache.CacheConfig `yaml:"cache,omitempty"`

	// TTL applied to dedup entries (0 = until evicted)
	TTL time.Duration `yaml:"ttl" validate:"min=0"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Log severity: debug, info, warn, error
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`

	// Write human-readable logs to stderr
	Console bool `yaml:"console"`

	// Optional log file path
	FilePath string `yaml:"file_path"`
}

// Load builds the effective configuration: defaults, overridden by the
// first existing YAML file among paths, overridden by environment
// variables, then validated.
func Load(paths ...string) (*Config, error) {
	cfg := GetDefaultConfig()

	sources := []Source{NewFileSource(), NewEnvSource()}
	for _, src := range sources {
		if err := src.Load(cfg, paths); err != nil {
			return nil, errors.WithFields(
				errors.Wrap(err, errors.InvalidConfiguration, "loading configuration failed"),
				errors.Fields{"source": src.Name()})
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BuildBreeder constructs a breeder wired per the configuration: the
// chosen evaluator strategy and the configured dedup store.
func (c *Config) BuildBreeder() (*breeder.Breeder, error) {
	var opts []breeder.Option

	store, err := cache.NewCache(c.Dedup.Cache)
	if err != nil {
		return nil, err
	}
	opts = append(opts, breeder.WithDedupCache(store), breeder.WithDedupTTL(c.Dedup.TTL))

	switch c.Engine.Evaluator {
	case "spawn":
		var spawnOpts []breeder.SpawnOption
		if c.Engine.Workers > 0 {
			spawnOpts = append(spawnOpts, breeder.WithMaxGoroutines(c.Engine.Workers))
		}
		opts = append(opts, breeder.WithEvaluator(breeder.NewSpawnEvaluator(spawnOpts...)))
	default:
		var poolOpts []breeder.PoolOption
		if c.Engine.Workers > 0 {
			poolOpts = append(poolOpts, breeder.WithWorkers(c.Engine.Workers))
		}
		if c.Engine.BatchTimeout > 0 {
			poolOpts = append(poolOpts, breeder.WithBatchTimeout(c.Engine.BatchTimeout))
		}
		opts = append(opts, breeder.WithPoolOptions(poolOpts...))
	}

	b, err := breeder.NewBreeder(opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return b, nil
}

// BuildLogger constructs a logger per the logging section.
func (c *Config) BuildLogger() (*logging.Logger, error) {
	var outputs []logging.Output
	if c.Logging.Console {
		outputs = append(outputs, logging.NewConsoleOutput(true))
	}
	if c.Logging.FilePath != "" {
		out, err := logging.NewFileOutput(c.Logging.FilePath)
		if err != nil {
			return nil, errors.Wrap(err, errors.InvalidConfiguration, "opening log file failed")
		}
		outputs = append(outputs, out)
	}

	return logging.NewLogger(logging.Config{
		Severity: logging.ParseSeverity(c.Logging.Level),
		Outputs:  outputs,
	}), nil
}

// NewEvolutionConfig seeds an EvolutionConfig with the configured scalar
// defaults. Collaborators still have to be attached before use.
func (c *Config) NewEvolutionConfig() *core.EvolutionConfig {
	return &core.EvolutionConfig{
		PopulationSize:      c.Evolution.PopulationSize,
		MinPopSizePercent:   c.Evolution.MinPopSizePercent,
		PreserveFittest:     c.Evolution.PreserveFittest,
		KeepPopSizeConstant: c.Evolution.KeepPopSizeConstant,
	}
}

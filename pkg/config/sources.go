package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/XiaoConstantine/evolve-go/pkg/cache"
)

// cacheDefaults is the default dedup cache backend.
func cacheDefaults() cache.CacheConfig {
	return cache.CacheConfig{
		Type:       "memory",
		MaxEntries: 100000,
	}
}

// Source represents a configuration source.
type Source interface {
	// Load loads configuration from the source into the provided config
	Load(config *Config, paths []string) error

	// Name returns the name of the source
	Name() string
}

// FileSource loads configuration from the first existing YAML file.
type FileSource struct{}

// NewFileSource creates a new file source.
func NewFileSource() *FileSource {
	return &FileSource{}
}

// Name returns the name of the file source.
func (fs *FileSource) Name() string {
	return "file"
}

// Load parses the first existing path into the config. Missing files are
// skipped; an unreadable or malformed file is an error.
func (fs *FileSource) Load(config *Config, paths []string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML from %s: %w", path, err)
		}
		return nil
	}
	return nil
}

// EnvSource overrides configuration from EVOLVE_* environment variables.
type EnvSource struct{}

// NewEnvSource creates a new environment source.
func NewEnvSource() *EnvSource {
	return &EnvSource{}
}

// Name returns the name of the environment source.
func (es *EnvSource) Name() string {
	return "env"
}

// Load applies environment overrides.
func (es *EnvSource) Load(config *Config, _ []string) error {
	if v := os.Getenv("EVOLVE_ENGINE_EVALUATOR"); v != "" {
		config.Engine.Evaluator = v
	}
	if v := os.Getenv("EVOLVE_ENGINE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid EVOLVE_ENGINE_WORKERS: %w", err)
		}
		config.Engine.Workers = n
	}
	if v := os.Getenv("EVOLVE_ENGINE_BATCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid EVOLVE_ENGINE_BATCH_TIMEOUT: %w", err)
		}
		config.Engine.BatchTimeout = d
	}
	if v := os.Getenv("EVOLVE_DEDUP_TYPE"); v != "" {
		config.Dedup.Cache.Type = v
	}
	if v := os.Getenv("EVOLVE_DEDUP_PATH"); v != "" {
		config.Dedup.Cache.SQLiteConfig.Path = v
	}
	if v := os.Getenv("EVOLVE_DEDUP_MAX_ENTRIES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid EVOLVE_DEDUP_MAX_ENTRIES: %w", err)
		}
		config.Dedup.Cache.MaxEntries = n
	}
	if v := os.Getenv("EVOLVE_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	return nil
}

package config

// GetDefaultConfig returns the default configuration for evolve-go.
func GetDefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Evaluator:    "pool",
			Workers:      0,
			BatchTimeout: 0,
		},
		Evolution: EvolutionSettings{
			PopulationSize:      50,
			MinPopSizePercent:   0,
			PreserveFittest:     true,
			KeepPopSizeConstant: true,
		},
		Dedup: getDefaultDedupConfig(),
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// getDefaultDedupConfig returns default dedup store configuration: a
// bounded in-memory cache.
func getDefaultDedupConfig() DedupConfig {
	return DedupConfig{
		Cache: cacheDefaults(),
	}
}

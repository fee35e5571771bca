// Package cache provides the bounded stores backing cross-generation
// candidate deduplication. The breeder records a fitness-stripped marker for
// every candidate a bulk fitness function has scored; on later generations
// structurally equal candidates are filtered out before resubmission.
package cache

import (
	"context"
	"time"
)

// Cache defines the interface for dedup entry storage.
type Cache interface {
	// Get retrieves a cached value by key.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given key and TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a cached value by key.
	Delete(ctx context.Context, key string) error

	// Clear removes all cached values.
	Clear(ctx context.Context) error

	// Stats returns cache statistics.
	Stats() CacheStats

	// Close releases any resources held by the cache.
	Close() error
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Hits       int64     `json:"hits"`
	Misses     int64     `json:"misses"`
	Sets       int64     `json:"sets"`
	Deletes    int64     `json:"deletes"`
	Entries    int64     `json:"entries"`
	MaxEntries int64     `json:"max_entries"`
	LastAccess time.Time `json:"last_access"`
}

// CacheConfig holds cache configuration.
type CacheConfig struct {
	// Type of cache: "memory" or "sqlite"
	Type string `json:"type" yaml:"type"`

	// Maximum number of entries retained (0 = unlimited). The memory
	// cache evicts least-recently-used entries past this cap; this is the
	// bounding policy for the otherwise monotonically growing dedup set.
	MaxEntries int64 `json:"max_entries" yaml:"max_entries"`

	// Default TTL for cache entries (0 = no expiration)
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl"`

	// SQLite specific configuration
	SQLiteConfig SQLiteConfig `json:"sqlite_config,omitempty" yaml:"sqlite_config,omitempty"`

	// Memory cache specific configuration
	MemoryConfig MemoryConfig `json:"memory_config,omitempty" yaml:"memory_config,omitempty"`
}

// SQLiteConfig holds SQLite-specific configuration.
type SQLiteConfig struct {
	// Path to the SQLite database file
	Path string `json:"path" yaml:"path"`

	// Enable WAL mode for better concurrent performance
	EnableWAL bool `json:"enable_wal" yaml:"enable_wal"`

	// Maximum number of connections
	MaxConnections int `json:"max_connections" yaml:"max_connections"`
}

// MemoryConfig holds memory cache specific configuration.
type MemoryConfig struct {
	// Cleanup interval for expired entries
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`
}

// NewCache creates a new cache instance based on the configuration.
func NewCache(config CacheConfig) (Cache, error) {
	switch config.Type {
	case "memory":
		return NewMemoryCache(config)
	case "sqlite":
		return NewSQLiteCache(config)
	default:
		// Default to memory cache
		return NewMemoryCache(config)
	}
}

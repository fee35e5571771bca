package cache

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteCache implements Cache using SQLite as storage. It gives the dedup
// set durability across process restarts, so resumed runs keep skipping
// candidates scored in earlier runs.
type SQLiteCache struct {
	db        *sql.DB
	config    CacheConfig
	stats     CacheStats
	mu        sync.RWMutex
	closeChan chan struct{}
	closeOnce sync.Once
	cleanupWG sync.WaitGroup
}

// NewSQLiteCache creates a new SQLite-based cache.
func NewSQLiteCache(config CacheConfig) (*SQLiteCache, error) {
	if config.SQLiteConfig.Path == "" {
		config.SQLiteConfig.Path = "evolve_dedup.db"
	}

	db, err := sql.Open("sqlite3", config.SQLiteConfig.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Set connection pool settings
	if config.SQLiteConfig.MaxConnections > 0 {
		db.SetMaxOpenConns(config.SQLiteConfig.MaxConnections)
	} else {
		db.SetMaxOpenConns(10)
	}
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	cache := &SQLiteCache{
		db:        db,
		config:    config,
		closeChan: make(chan struct{}),
	}

	if err := cache.initDB(); err != nil {
		db.Close()
		return nil, err
	}

	// Enable WAL mode for better concurrent performance
	if config.SQLiteConfig.EnableWAL {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	pragmas := []string{
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			// Log warning but don't fail
			log.Printf("Warning: failed to set pragma %s: %v", pragma, err)
		}
	}

	// Start cleanup goroutine
	cache.cleanupWG.Add(1)
	go cache.cleanupRoutine()

	// Load initial stats
	cache.loadStats()

	return cache, nil
}

func (c *SQLiteCache) initDB() error {
	query := `
	CREATE TABLE IF NOT EXISTS dedup_entries (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER,
		created_at INTEGER NOT NULL,
		accessed_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_expires_at ON dedup_entries(expires_at) WHERE expires_at > 0;
	CREATE INDEX IF NOT EXISTS idx_accessed_at ON dedup_entries(accessed_at);
	`

	_, err := c.db.Exec(query)
	return err
}

func (c *SQLiteCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := `
	SELECT value FROM dedup_entries
	WHERE key = ? AND (expires_at = 0 OR expires_at > ?)
	`

	var value []byte
	now := time.Now().UnixNano()

	err := c.db.QueryRowContext(ctx, query, key, now).Scan(&value)
	if err == sql.ErrNoRows {
		atomic.AddInt64(&c.stats.Misses, 1)
		return nil, false, nil
	}
	if err != nil {
		atomic.AddInt64(&c.stats.Misses, 1)
		return nil, false, fmt.Errorf("failed to get dedup entry: %w", err)
	}

	// Update access time
	updateQuery := `UPDATE dedup_entries SET accessed_at = ? WHERE key = ?`
	if _, err := c.db.ExecContext(ctx, updateQuery, now, key); err != nil {
		// Log warning but don't fail the get operation
		log.Printf("Warning: failed to update access time: %v", err)
	}

	atomic.AddInt64(&c.stats.Hits, 1)
	c.mu.Lock()
	c.stats.LastAccess = time.Now()
	c.mu.Unlock()

	return value, true, nil
}

func (c *SQLiteCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := time.Now()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixNano()
	} else if c.config.DefaultTTL > 0 {
		expiresAt = now.Add(c.config.DefaultTTL).UnixNano()
	}

	// Check if key already exists to keep the entry count right
	var exists bool
	existsQuery := `SELECT 1 FROM dedup_entries WHERE key = ?`
	err := c.db.QueryRowContext(ctx, existsQuery, key).Scan(new(int))
	exists = err == nil

	// Evict least-recently-used rows past the cap
	if !exists && c.config.MaxEntries > 0 {
		if atomic.LoadInt64(&c.stats.Entries) >= c.config.MaxEntries {
			if err := c.evictEntries(ctx); err != nil {
				return fmt.Errorf("failed to evict entries: %w", err)
			}
		}
	}

	query := `
	INSERT OR REPLACE INTO dedup_entries (key, value, expires_at, created_at, accessed_at)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err = c.db.ExecContext(ctx, query, key, value, expiresAt, now.UnixNano(), now.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to set dedup entry: %w", err)
	}

	atomic.AddInt64(&c.stats.Sets, 1)
	if !exists {
		atomic.AddInt64(&c.stats.Entries, 1)
	}
	c.mu.Lock()
	c.stats.LastAccess = now
	c.mu.Unlock()

	return nil
}

func (c *SQLiteCache) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM dedup_entries WHERE key = ?`
	result, err := c.db.ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("failed to delete dedup entry: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		atomic.AddInt64(&c.stats.Deletes, 1)
		atomic.AddInt64(&c.stats.Entries, -rowsAffected)
	}

	return nil
}

func (c *SQLiteCache) Clear(ctx context.Context) error {
	query := `DELETE FROM dedup_entries`
	_, err := c.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	// Reset stats
	atomic.StoreInt64(&c.stats.Hits, 0)
	atomic.StoreInt64(&c.stats.Misses, 0)
	atomic.StoreInt64(&c.stats.Sets, 0)
	atomic.StoreInt64(&c.stats.Deletes, 0)
	atomic.StoreInt64(&c.stats.Entries, 0)

	// Vacuum to reclaim space
	if _, err := c.db.Exec("VACUUM"); err != nil {
		// Log warning but don't fail
		log.Printf("Warning: failed to vacuum after clear: %v", err)
	}

	return nil
}

func (c *SQLiteCache) Stats() CacheStats {
	c.mu.RLock()
	lastAccess := c.stats.LastAccess
	c.mu.RUnlock()

	return CacheStats{
		Hits:       atomic.LoadInt64(&c.stats.Hits),
		Misses:     atomic.LoadInt64(&c.stats.Misses),
		Sets:       atomic.LoadInt64(&c.stats.Sets),
		Deletes:    atomic.LoadInt64(&c.stats.Deletes),
		Entries:    atomic.LoadInt64(&c.stats.Entries),
		MaxEntries: c.config.MaxEntries,
		LastAccess: lastAccess,
	}
}

func (c *SQLiteCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.closeChan)
	})
	c.cleanupWG.Wait()
	return c.db.Close()
}

func (c *SQLiteCache) evictEntries(ctx context.Context) error {
	for atomic.LoadInt64(&c.stats.Entries) >= c.config.MaxEntries {
		// Find the oldest accessed entry
		var oldestKey string
		selectQuery := `SELECT key FROM dedup_entries ORDER BY accessed_at ASC LIMIT 1`

		err := c.db.QueryRowContext(ctx, selectQuery).Scan(&oldestKey)
		if err != nil {
			if err == sql.ErrNoRows {
				// No more entries to evict
				break
			}
			return err
		}

		deleteQuery := `DELETE FROM dedup_entries WHERE key = ?`
		result, err := c.db.ExecContext(ctx, deleteQuery, oldestKey)
		if err != nil {
			return err
		}

		rowsAffected, _ := result.RowsAffected()
		if rowsAffected > 0 {
			atomic.AddInt64(&c.stats.Entries, -rowsAffected)
		} else {
			// Entry was not found, break to avoid infinite loop
			break
		}
	}

	return nil
}

func (c *SQLiteCache) cleanupRoutine() {
	defer c.cleanupWG.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.closeChan:
			return
		case <-ticker.C:
			c.cleanupExpired()
		}
	}
}

func (c *SQLiteCache) cleanupExpired() {
	query := `DELETE FROM dedup_entries WHERE expires_at > 0 AND expires_at < ?`
	result, err := c.db.Exec(query, time.Now().UnixNano())
	if err != nil {
		log.Printf("Warning: failed to cleanup expired entries: %v", err)
		return
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		atomic.AddInt64(&c.stats.Entries, -rowsAffected)
	}
}

func (c *SQLiteCache) loadStats() {
	var count int64
	query := `SELECT COUNT(*) FROM dedup_entries`
	if err := c.db.QueryRow(query).Scan(&count); err != nil {
		log.Printf("Warning: failed to load cache size: %v", err)
		return
	}
	atomic.StoreInt64(&c.stats.Entries, count)
}

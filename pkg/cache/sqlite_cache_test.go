package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteCache(t *testing.T, maxEntries int64) *SQLiteCache {
	t.Helper()
	c, err := NewSQLiteCache(CacheConfig{
		Type:       "sqlite",
		MaxEntries: maxEntries,
		SQLiteConfig: SQLiteConfig{
			Path:      filepath.Join(t.TempDir(), "dedup.db"),
			EnableWAL: true,
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSQLiteCacheSetGet(t *testing.T) {
	ctx := context.Background()
	c := newTestSQLiteCache(t, 0)

	require.NoError(t, c.Set(ctx, "key1", []byte("value1"), 0))

	value, found, err := c.Get(ctx, "key1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("value1"), value)

	_, found, err = c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLiteCacheOverwrite(t *testing.T) {
	ctx := context.Background()
	c := newTestSQLiteCache(t, 0)

	require.NoError(t, c.Set(ctx, "key", []byte("old"), 0))
	require.NoError(t, c.Set(ctx, "key", []byte("new"), 0))

	value, found, err := c.Get(ctx, "key")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("new"), value)
	assert.Equal(t, int64(1), c.Stats().Entries)
}

func TestSQLiteCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := newTestSQLiteCache(t, 0)

	require.NoError(t, c.Set(ctx, "short", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, found, err := c.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLiteCacheEviction(t *testing.T) {
	ctx := context.Background()
	c := newTestSQLiteCache(t, 3)

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("key%d", i), []byte("v"), 0))
	}

	assert.LessOrEqual(t, c.Stats().Entries, int64(3))

	// The most recent entry must survive.
	_, found, err := c.Get(ctx, "key4")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSQLiteCachePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dedup.db")

	c, err := NewSQLiteCache(CacheConfig{SQLiteConfig: SQLiteConfig{Path: path}})
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "durable", []byte("v"), 0))
	require.NoError(t, c.Close())

	reopened, err := NewSQLiteCache(CacheConfig{SQLiteConfig: SQLiteConfig{Path: path}})
	require.NoError(t, err)
	defer reopened.Close()

	value, found, err := reopened.Get(ctx, "durable")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), value)
	assert.Equal(t, int64(1), reopened.Stats().Entries)
}

func TestSQLiteCacheDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	c := newTestSQLiteCache(t, 0)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))

	require.NoError(t, c.Delete(ctx, "a"))
	_, found, _ := c.Get(ctx, "a")
	assert.False(t, found)

	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, int64(0), c.Stats().Entries)
}

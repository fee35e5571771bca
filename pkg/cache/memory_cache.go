package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryCache implements an in-memory cache with LRU eviction.
type MemoryCache struct {
	config    CacheConfig
	mu        sync.RWMutex
	entries   map[string]*memoryCacheEntry
	lruList   *lruList
	stats     CacheStats
	closeChan chan struct{}
	closeOnce sync.Once
	cleanupWG sync.WaitGroup
}

type memoryCacheEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
	createdAt time.Time
	element   *lruElement
}

// LRU list implementation.
type lruElement struct {
	key  string
	prev *lruElement
	next *lruElement
}

type lruList struct {
	head *lruElement
	tail *lruElement
	size int
}

func newLRUList() *lruList {
	head := &lruElement{}
	tail := &lruElement{}
	head.next = tail
	tail.prev = head
	return &lruList{head: head, tail: tail}
}

func (l *lruList) moveToFront(elem *lruElement) {
	if elem.prev == l.head {
		return // Already at front
	}
	// Remove from current position
	elem.prev.next = elem.next
	elem.next.prev = elem.prev
	// Insert at front
	elem.prev = l.head
	elem.next = l.head.next
	l.head.next.prev = elem
	l.head.next = elem
}

func (l *lruList) pushFront(key string) *lruElement {
	elem := &lruElement{key: key}
	elem.prev = l.head
	elem.next = l.head.next
	l.head.next.prev = elem
	l.head.next = elem
	l.size++
	return elem
}

func (l *lruList) removeElement(elem *lruElement) {
	elem.prev.next = elem.next
	elem.next.prev = elem.prev
	l.size--
}

func (l *lruList) back() *lruElement {
	if l.tail.prev == l.head {
		return nil
	}
	return l.tail.prev
}

// NewMemoryCache creates a new in-memory cache.
func NewMemoryCache(config CacheConfig) (*MemoryCache, error) {
	// Set default cleanup interval if not specified
	if config.MemoryConfig.CleanupInterval == 0 {
		config.MemoryConfig.CleanupInterval = time.Minute
	}

	cache := &MemoryCache{
		config:    config,
		entries:   make(map[string]*memoryCacheEntry),
		lruList:   newLRUList(),
		closeChan: make(chan struct{}),
		stats: CacheStats{
			MaxEntries: config.MaxEntries,
		},
	}

	// Start cleanup routine
	cache.cleanupWG.Add(1)
	go cache.cleanupRoutine()

	return cache, nil
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		atomic.AddInt64(&c.stats.Misses, 1)
		return nil, false, nil
	}

	// Check if expired
	if entry.expiresAt.After(time.Time{}) && time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		c.lruList.removeElement(entry.element)
		atomic.AddInt64(&c.stats.Entries, -1)
		atomic.AddInt64(&c.stats.Misses, 1)
		return nil, false, nil
	}

	// Move to front of LRU list
	c.lruList.moveToFront(entry.element)

	atomic.AddInt64(&c.stats.Hits, 1)
	c.stats.LastAccess = time.Now() // Safe: protected by c.mu.Lock

	return entry.value, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	} else if c.config.DefaultTTL > 0 {
		expiresAt = time.Now().Add(c.config.DefaultTTL)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Check if key already exists
	if existing, exists := c.entries[key]; exists {
		// Update existing entry
		existing.value = value
		existing.expiresAt = expiresAt
		c.lruList.moveToFront(existing.element)
	} else {
		// Evict least-recently-used entries past the cap
		if c.config.MaxEntries > 0 && atomic.LoadInt64(&c.stats.Entries) >= c.config.MaxEntries {
			c.evictLRU()
		}

		// Add new entry
		element := c.lruList.pushFront(key)
		c.entries[key] = &memoryCacheEntry{
			key:       key,
			value:     value,
			expiresAt: expiresAt,
			createdAt: time.Now(),
			element:   element,
		}
		atomic.AddInt64(&c.stats.Entries, 1)
	}

	atomic.AddInt64(&c.stats.Sets, 1)
	c.stats.LastAccess = time.Now() // Safe: protected by c.mu.Lock

	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.entries[key]; exists {
		delete(c.entries, key)
		c.lruList.removeElement(entry.element)
		atomic.AddInt64(&c.stats.Entries, -1)
		atomic.AddInt64(&c.stats.Deletes, 1)
	}

	return nil
}

func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*memoryCacheEntry)
	c.lruList = newLRUList()

	// Reset stats
	atomic.StoreInt64(&c.stats.Hits, 0)
	atomic.StoreInt64(&c.stats.Misses, 0)
	atomic.StoreInt64(&c.stats.Sets, 0)
	atomic.StoreInt64(&c.stats.Deletes, 0)
	atomic.StoreInt64(&c.stats.Entries, 0)

	return nil
}

func (c *MemoryCache) Stats() CacheStats {
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

func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.closeChan)
	})
	c.cleanupWG.Wait()
	return nil
}

// evictLRU drops entries from the back of the LRU list until the count is
// below the configured cap. Caller must hold c.mu.
func (c *MemoryCache) evictLRU() {
	for atomic.LoadInt64(&c.stats.Entries) >= c.config.MaxEntries && c.lruList.size > 0 {
		elem := c.lruList.back()
		if elem == nil {
			break
		}

		if _, exists := c.entries[elem.key]; exists {
			delete(c.entries, elem.key)
			c.lruList.removeElement(elem)
			atomic.AddInt64(&c.stats.Entries, -1)
		} else {
			c.lruList.removeElement(elem)
		}
	}
}

func (c *MemoryCache) cleanupRoutine() {
	defer c.cleanupWG.Done()

	ticker := time.NewTicker(c.config.MemoryConfig.CleanupInterval)
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

func (c *MemoryCache) cleanupExpired() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	var keysToDelete []string
	for key, entry := range c.entries {
		if entry.expiresAt.After(time.Time{}) && now.After(entry.expiresAt) {
			keysToDelete = append(keysToDelete, key)
		}
	}

	for _, key := range keysToDelete {
		if entry, exists := c.entries[key]; exists {
			delete(c.entries, key)
			c.lruList.removeElement(entry.element)
			atomic.AddInt64(&c.stats.Entries, -1)
		}
	}
}

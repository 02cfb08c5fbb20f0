package cache

import (
	"context"
	"sync"
	"time"

	"github.com/aqoutlook/aqoutlook/internal/airquality"
)

// MemoryCache is an in-process SnapshotCache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	snapshot  *airquality.Snapshot
	expiresAt time.Time
}

// NewMemoryCache creates an empty in-memory cache. A nil clock uses time.Now.
func NewMemoryCache(now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

// Get returns a copy of the snapshot stored under key.
func (c *MemoryCache) Get(_ context.Context, key string) (*airquality.Snapshot, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, ErrCacheMiss
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		// Another writer may have refreshed it meanwhile.
		if cur, ok := c.entries[key]; ok && !c.now().Before(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, ErrCacheMiss
	}

	return entry.snapshot.Clone(), nil
}

// Put stores a copy of snap under key.
func (c *MemoryCache) Put(_ context.Context, key string, snap *airquality.Snapshot, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{
		snapshot:  snap.Clone(),
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Backend implements SnapshotCache.
func (c *MemoryCache) Backend() string {
	return "memory"
}

// Package cache provides a TTL cache for finished insight runs, keyed by
// normalized root URL.
package cache

import (
	"sync"
	"time"

	"github.com/storesight/insights-crawler/internal/insights"
)

// DefaultTTL is how long a cached run stays fresh.
const DefaultTTL = 30 * time.Minute

// Entry pairs a stored result with its persistence ID.
type Entry struct {
	ID     string
	Result insights.InsightsResult
}

type record struct {
	entry     Entry
	expiresAt time.Time
}

// Cache is a concurrency-safe TTL cache.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	clock   insights.Clock
	entries map[string]record
}

// New constructs a Cache. A non-positive ttl falls back to DefaultTTL.
func New(ttl time.Duration, clock insights.Clock) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]record),
	}
}

// Get returns the cached entry for a root URL if it has not expired.
func (c *Cache) Get(rootURL string) (Entry, bool) {
	c.mu.RLock()
	rec, ok := c.entries[rootURL]
	c.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}
	if c.clock.Now().After(rec.expiresAt) {
		c.mu.Lock()
		if cur, still := c.entries[rootURL]; still && cur.expiresAt.Equal(rec.expiresAt) {
			delete(c.entries, rootURL)
		}
		c.mu.Unlock()
		return Entry{}, false
	}
	return rec.entry, true
}

// Put stores an entry for a root URL, resetting its TTL.
func (c *Cache) Put(rootURL string, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[rootURL] = record{
		entry:     entry,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
}

// Len reports the number of entries, including any not yet evicted.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

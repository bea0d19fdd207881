package enrich

import (
	"sync"

	"waxcrate/internal/records"
)

const defaultCacheCapacity = 256

// Cache is a bounded, insertion-ordered fingerprint cache. When capacity is
// exceeded the oldest entry is evicted, regardless of how recently it was
// read. Safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    []string
	entries  map[string]records.Fields
}

// NewCache constructs a cache holding at most capacity entries.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]records.Fields, capacity),
	}
}

// Get returns the cached fields for a fingerprint.
func (c *Cache) Get(fingerprint string) (records.Fields, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fields, ok := c.entries[fingerprint]
	return fields, ok
}

// Put stores fields under a fingerprint, evicting the oldest insertion once
// the cache is full. Re-putting an existing key refreshes the value without
// changing its insertion position.
func (c *Cache) Put(fingerprint string, fields records.Fields) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[fingerprint]; exists {
		c.entries[fingerprint] = fields
		return
	}
	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.order = append(c.order, fingerprint)
	c.entries[fingerprint] = fields
}

// Len reports the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

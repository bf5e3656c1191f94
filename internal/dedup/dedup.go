// Package dedup short-circuits re-classification of content already seen.
package dedup

import (
	"sync"

	"github.com/earlyspark/scrollguard/internal/classify"
)

// DefaultCapacity bounds the cache when no capacity is configured.
const DefaultCapacity = 1000

// Cache maps content fingerprints to their last verdict. Safe for concurrent
// use from scheduler workers. Eviction removes the oldest-inserted entries in
// batches rather than tracking recency per lookup.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]classify.Verdict
	order    []string // insertion order, oldest first
	capacity int

	hits   uint64
	misses uint64
}

// New creates a cache holding at most capacity entries. Non-positive
// capacity falls back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		entries:  make(map[string]classify.Verdict, capacity),
		capacity: capacity,
	}
}

// Lookup returns the cached verdict for a fingerprint, if any.
func (c *Cache) Lookup(fingerprint string) (classify.Verdict, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[fingerprint]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

// Store records a verdict for a fingerprint. Empty fingerprints are ignored;
// whitespace-only content is rejected before it ever gets here. Storing over
// an existing fingerprint keeps its original insertion position.
func (c *Cache) Store(fingerprint string, v classify.Verdict) {
	if fingerprint == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[fingerprint]; !exists {
		c.order = append(c.order, fingerprint)
	}
	c.entries[fingerprint] = v

	if len(c.entries) > c.capacity {
		c.evictLocked()
	}
}

// evictLocked drops the oldest tenth of the cache in one pass.
func (c *Cache) evictLocked() {
	batch := c.capacity / 10
	if batch < 1 {
		batch = 1
	}
	if batch > len(c.order) {
		batch = len(c.order)
	}
	for _, fp := range c.order[:batch] {
		delete(c.entries, fp)
	}
	c.order = c.order[batch:]
}

// Clear drops every entry. Used when cache scope resets on app switch.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]classify.Verdict, c.capacity)
	c.order = nil
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns lifetime hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

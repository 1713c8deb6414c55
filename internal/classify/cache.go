package classify

import "sync"

// Cache maps window content hashes to validated classification results.
// A nil stored value records that the oracle's answer for that content was
// rejected during validation, so identical content is not re-submitted.
//
// Writes are idempotent (same hash, same content, same verdict), so the
// mutex only has to keep the map itself consistent under the parallel
// classification dispatch.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Result
}

// NewCache returns an empty classification cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Result)}
}

// Get returns the cached result for hash. The second return distinguishes
// a recorded rejection (nil, true) from an absent entry (nil, false).
func (c *Cache) Get(hash string) (*Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[hash]
	return r, ok
}

// Put records the validated result for hash.
func (c *Cache) Put(hash string, r *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[hash] = r
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

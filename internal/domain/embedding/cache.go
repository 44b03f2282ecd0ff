package embedding

import "sync"

type cacheKey struct {
	text string
	dim  int
}

// Cache memoizes vectors by (text, dim). Safe for concurrent use.
// A search call owns a fresh Cache; feature extraction shares one for the process lifetime.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey][]float32
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey][]float32)}
}

// GetOrCompute returns the cached vector or computes and stores it.
func (c *Cache) GetOrCompute(text string, dim int, compute func(string, int) []float32) []float32 {
	if c == nil {
		return compute(text, dim)
	}
	k := cacheKey{text: text, dim: dim}

	c.mu.RLock()
	v, ok := c.entries[k]
	c.mu.RUnlock()
	if ok {
		return v
	}

	v = compute(text, dim)
	c.mu.Lock()
	c.entries[k] = v
	c.mu.Unlock()
	return v
}

// Len returns the number of cached vectors.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset drops every entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[cacheKey][]float32)
	c.mu.Unlock()
}

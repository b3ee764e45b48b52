package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
)

// Cache is a process-local content-hash keyed embedding cache. Entries
// live for the lifetime of the owning Manager; there is no eviction.
// Concurrent writes for the same key are idempotent because identical
// keys always map to identical vectors.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]float32
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string][]float32)}
}

// cacheKey hashes whitespace-normalized text together with the model
// identifier, so the same text under different models never collides.
func cacheKey(text, model string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(normalized))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached vector for key, if present.
func (c *Cache) Get(key string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.entries[key]
	return vec, ok
}

// Put stores a vector under key.
func (c *Cache) Put(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = vec
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

package memory

import (
	"context"
	"sync"

	"github.com/aretw0/reticula/pkg/ports"
)

// Cache implements ports.ResultCache in memory.
// Safe for concurrent use.
type Cache struct {
	data map[string]ports.CachedResult
	mu   sync.RWMutex
}

// NewCache creates a new in-memory cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]ports.CachedResult),
	}
}

// Put stores a copy of the result.
func (c *Cache) Put(ctx context.Context, key string, result *ports.CachedResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = *result
	return nil
}

// Get returns a copy so callers cannot mutate the stored entry.
func (c *Cache) Get(ctx context.Context, key string) (*ports.CachedResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.data[key]
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	return &r, nil
}

// Delete removes the entry.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// List returns the cached keys.
func (c *Cache) List(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	return keys, nil
}

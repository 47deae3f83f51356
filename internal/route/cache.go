package route

import (
	"context"
	"sync"
	"time"

	"github.com/example/ongopool/internal/models"
)

// MemoryGeocodeCache is a small in-process TTL cache for geocoding
// lookups keyed by normalized address.
type MemoryGeocodeCache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	res models.GeocodeResult
	ts  time.Time
}

func NewMemoryGeocodeCache(ttl time.Duration) *MemoryGeocodeCache {
	return &MemoryGeocodeCache{store: make(map[string]cacheEntry), ttl: ttl}
}

func (c *MemoryGeocodeCache) Get(_ context.Context, address string) (models.GeocodeResult, bool) {
	c.mu.RLock()
	e, ok := c.store[address]
	c.mu.RUnlock()
	if !ok {
		return models.GeocodeResult{}, false
	}
	if time.Since(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, address)
		c.mu.Unlock()
		return models.GeocodeResult{}, false
	}
	return e.res, true
}

func (c *MemoryGeocodeCache) Set(_ context.Context, address string, res models.GeocodeResult) {
	c.mu.Lock()
	c.store[address] = cacheEntry{res: res, ts: time.Now()}
	c.mu.Unlock()
}

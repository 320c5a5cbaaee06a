package marketdata

import (
	"sync"
	"time"

	"llm-scanner-bot/internal/types"
)

// candleCache is an in-memory TTL cache of fetched candle series. Cached
// series are shared, never mutated.
type candleCache struct {
	ttl  time.Duration
	mu   sync.RWMutex
	data map[string]cacheEntry
}

type cacheEntry struct {
	series    []types.Candle
	fetchedAt time.Time
}

func newCandleCache(ttl time.Duration) *candleCache {
	return &candleCache{
		ttl:  ttl,
		data: make(map[string]cacheEntry),
	}
}

func (c *candleCache) get(key string) ([]types.Candle, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[key]
	if !ok {
		return nil, false
	}
	if time.Since(entry.fetchedAt) > c.ttl {
		return nil, false
	}
	return entry.series, true
}

func (c *candleCache) set(key string, series []types.Candle) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = cacheEntry{series: series, fetchedAt: time.Now()}
}

// cleanup removes expired entries.
func (c *candleCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.data {
		if now.Sub(entry.fetchedAt) > c.ttl {
			delete(c.data, key)
		}
	}
}

// getOrFetch retrieves from cache or fetches using the provided function.
func (c *candleCache) getOrFetch(key string, fetch func() ([]types.Candle, error)) ([]types.Candle, error) {
	if series, ok := c.get(key); ok {
		return series, nil
	}

	series, err := fetch()
	if err != nil {
		return nil, err
	}

	c.set(key, series)
	return series, nil
}

// Package news supplies recent headlines as optional context for the
// reasoning prompt. Fetch failures degrade to no headlines, never to a
// failed cycle.
package news

import (
	"context"
	"sync"
	"time"

	"llm-scanner-bot/internal/logger"
	"llm-scanner-bot/internal/store"
)

const scraperTimeout = 20 * time.Second

// Service provides per-symbol headlines with caching
type Service struct {
	scraper *Scraper
	cache   *headlineCache
	enabled bool
	max     int
}

// headlineCache stores scraped headlines temporarily
type headlineCache struct {
	mu   sync.RWMutex
	data map[string]*cacheEntry
	ttl  time.Duration
}

type cacheEntry struct {
	headlines []string
	timestamp time.Time
}

// newHeadlineCache creates a new cache
func newHeadlineCache(ttl time.Duration) *headlineCache {
	cache := &headlineCache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
	}

	// Start cleanup goroutine
	go cache.cleanupLoop()

	return cache
}

// get retrieves cached headlines if valid
func (c *headlineCache) get(symbol string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.data[symbol]
	if !exists {
		return nil, false
	}
	if time.Since(entry.timestamp) > c.ttl {
		return nil, false
	}
	return entry.headlines, true
}

// set stores headlines in cache
func (c *headlineCache) set(symbol string, headlines []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[symbol] = &cacheEntry{
		headlines: headlines,
		timestamp: time.Now(),
	}
}

// cleanupLoop periodically removes expired entries
func (c *headlineCache) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.cleanup()
	}
}

// cleanup removes expired entries
func (c *headlineCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for symbol, entry := range c.data {
		if now.Sub(entry.timestamp) > c.ttl {
			delete(c.data, symbol)
		}
	}
}

// NewService creates a new headline service
func NewService(cfg *store.Config) *Service {
	return &Service{
		scraper: NewScraper(scraperTimeout),
		cache:   newHeadlineCache(time.Duration(cfg.News.CacheTTLMinutes) * time.Minute),
		enabled: cfg.News.Enabled,
		max:     cfg.News.MaxHeadlines,
	}
}

// Headlines returns recent headline titles for a symbol, cached or fresh.
// It never fails: scrape errors are logged and an empty list returned.
func (s *Service) Headlines(ctx context.Context, symbol string) []string {
	if !s.enabled {
		return nil
	}

	if cached, ok := s.cache.get(symbol); ok {
		logger.Debug(ctx, "Using cached headlines", "symbol", symbol, "count", len(cached))
		return cached
	}

	scraped, err := s.scraper.Scrape(ctx, symbol, s.max)
	if err != nil {
		logger.Warn(ctx, "Headline fetch failed", "symbol", symbol, "error", err)
		return nil
	}

	titles := make([]string, 0, len(scraped))
	for _, h := range scraped {
		titles = append(titles, h.Title)
	}

	s.cache.set(symbol, titles)
	return titles
}

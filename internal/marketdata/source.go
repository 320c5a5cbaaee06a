// Package marketdata wraps a raw candle fetcher with a TTL cache and a token
// bucket rate limiter. Repeated scans inside the TTL window reuse the cached
// series instead of hitting the brokerage API.
package marketdata

import (
	"context"
	"fmt"
	"time"

	"llm-scanner-bot/internal/interfaces"
	"llm-scanner-bot/internal/logger"
	"llm-scanner-bot/internal/types"
)

// Fetcher is the raw per-symbol candle fetch the service wraps.
type Fetcher interface {
	FetchCandles(ctx context.Context, symbol string, n int) ([]types.Candle, error)
}

// Config tunes the cache and rate limiter.
type Config struct {
	CacheTTL  time.Duration
	PerSecond float64
	Burst     int
}

// DefaultConfig caches for one minute and allows short bursts of three
// requests per second.
func DefaultConfig() Config {
	return Config{
		CacheTTL:  60 * time.Second,
		PerSecond: 3,
		Burst:     3,
	}
}

// Service is a cached, rate-limited candle source.
type Service struct {
	fetcher Fetcher
	cache   *candleCache
	limiter *RateLimiter
}

var _ interfaces.CandleSource = (*Service)(nil)

func NewService(fetcher Fetcher, cfg Config) *Service {
	refill := time.Second
	if cfg.PerSecond > 0 {
		refill = time.Duration(float64(time.Second) / cfg.PerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Service{
		fetcher: fetcher,
		cache:   newCandleCache(cfg.CacheTTL),
		limiter: NewRateLimiter(burst, refill),
	}
}

// Candles returns up to n recent candles for the symbol, serving from cache
// when fresh and rate limiting the underlying fetch otherwise.
func (s *Service) Candles(ctx context.Context, symbol string, n int) ([]types.Candle, error) {
	key := fmt.Sprintf("%s:%d", symbol, n)

	if series, ok := s.cache.get(key); ok {
		logger.Debug(ctx, "Candle cache hit", "symbol", symbol, "count", len(series))
		return series, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	series, err := s.fetcher.FetchCandles(ctx, symbol, n)
	if err != nil {
		return nil, err
	}

	s.cache.set(key, series)
	logger.Debug(ctx, "Candles fetched", "symbol", symbol, "count", len(series))
	return series, nil
}

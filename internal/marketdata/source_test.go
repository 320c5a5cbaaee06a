package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"llm-scanner-bot/internal/types"
)

type countingFetcher struct {
	calls  int
	series []types.Candle
	err    error
}

func (f *countingFetcher) FetchCandles(ctx context.Context, symbol string, n int) ([]types.Candle, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.series, nil
}

func sampleSeries(n int) []types.Candle {
	series := make([]types.Candle, n)
	for i := 0; i < n; i++ {
		series[i] = types.Candle{Ts: int64(i), Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 1000}
	}
	return series
}

func TestCandlesServedFromCache(t *testing.T) {
	fetcher := &countingFetcher{series: sampleSeries(10)}
	svc := NewService(fetcher, Config{CacheTTL: time.Second, PerSecond: 100, Burst: 10})
	ctx := context.Background()

	first, err := svc.Candles(ctx, "RELIANCE", 10)
	if err != nil {
		t.Fatalf("Expected fetch to succeed, got %v", err)
	}
	second, err := svc.Candles(ctx, "RELIANCE", 10)
	if err != nil {
		t.Fatalf("Expected cached fetch to succeed, got %v", err)
	}

	if fetcher.calls != 1 {
		t.Errorf("Expected 1 upstream fetch, got %d", fetcher.calls)
	}
	if len(first) != len(second) {
		t.Errorf("Expected identical series lengths, got %d and %d", len(first), len(second))
	}
}

func TestCandlesCacheExpiry(t *testing.T) {
	fetcher := &countingFetcher{series: sampleSeries(10)}
	svc := NewService(fetcher, Config{CacheTTL: 50 * time.Millisecond, PerSecond: 100, Burst: 10})
	ctx := context.Background()

	if _, err := svc.Candles(ctx, "TCS", 10); err != nil {
		t.Fatalf("Expected fetch to succeed, got %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if _, err := svc.Candles(ctx, "TCS", 10); err != nil {
		t.Fatalf("Expected refetch to succeed, got %v", err)
	}
	if fetcher.calls != 2 {
		t.Errorf("Expected 2 upstream fetches after expiry, got %d", fetcher.calls)
	}
}

func TestCandlesDistinctKeys(t *testing.T) {
	fetcher := &countingFetcher{series: sampleSeries(10)}
	svc := NewService(fetcher, Config{CacheTTL: time.Second, PerSecond: 100, Burst: 10})
	ctx := context.Background()

	svc.Candles(ctx, "TCS", 10)
	svc.Candles(ctx, "INFY", 10)
	svc.Candles(ctx, "TCS", 20)

	if fetcher.calls != 3 {
		t.Errorf("Expected 3 upstream fetches for distinct keys, got %d", fetcher.calls)
	}
}

func TestCandlesFetchError(t *testing.T) {
	wantErr := errors.New("upstream down")
	fetcher := &countingFetcher{err: wantErr}
	svc := NewService(fetcher, Config{CacheTTL: time.Second, PerSecond: 100, Burst: 10})

	_, err := svc.Candles(context.Background(), "TCS", 10)
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected upstream error, got %v", err)
	}
	// Errors are not cached.
	svc.Candles(context.Background(), "TCS", 10)
	if fetcher.calls != 2 {
		t.Errorf("Expected error results to bypass cache, got %d calls", fetcher.calls)
	}
}

func TestRateLimiterBurstThenWait(t *testing.T) {
	rl := NewRateLimiter(2, 100*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Expected burst acquire %d to succeed, got %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Expected burst to be immediate, took %v", elapsed)
	}

	start = time.Now()
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("Expected third acquire to succeed after refill, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Expected third acquire to wait for refill, took %v", elapsed)
	}
}

func TestRateLimiterCancelled(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	ctx := context.Background()

	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("Expected first acquire to succeed, got %v", err)
	}

	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()
	if err := rl.Wait(cancelCtx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestCacheCleanup(t *testing.T) {
	cache := newCandleCache(50 * time.Millisecond)
	for _, key := range []string{"A:10", "B:10", "C:10"} {
		cache.set(key, sampleSeries(5))
	}

	time.Sleep(100 * time.Millisecond)
	cache.cleanup()

	cache.mu.RLock()
	count := len(cache.data)
	cache.mu.RUnlock()
	if count != 0 {
		t.Errorf("Expected 0 cache entries after cleanup, got %d", count)
	}
}

package news

import (
	"context"
	"reflect"
	"testing"
	"time"

	"llm-scanner-bot/internal/store"
)

func TestCacheGetSet(t *testing.T) {
	cache := newHeadlineCache(time.Minute)

	want := []string{"Quarterly results beat estimates", "Board approves buyback"}
	cache.set("TCS", want)

	got, ok := cache.get("TCS")
	if !ok {
		t.Fatal("Expected cache hit for TCS")
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	if _, ok := cache.get("INFY"); ok {
		t.Error("Expected cache miss for INFY")
	}
}

func TestCacheExpiry(t *testing.T) {
	cache := newHeadlineCache(50 * time.Millisecond)
	cache.set("TCS", []string{"headline"})

	time.Sleep(80 * time.Millisecond)

	if _, ok := cache.get("TCS"); ok {
		t.Error("Expected expired entry to miss")
	}
}

func TestCacheCleanup(t *testing.T) {
	cache := newHeadlineCache(10 * time.Millisecond)
	cache.set("TCS", []string{"a"})
	cache.set("INFY", []string{"b"})

	time.Sleep(30 * time.Millisecond)
	cache.cleanup()

	cache.mu.RLock()
	defer cache.mu.RUnlock()
	if len(cache.data) != 0 {
		t.Errorf("Expected empty cache after cleanup, got %d entries", len(cache.data))
	}
}

func TestHeadlinesDisabled(t *testing.T) {
	cfg := &store.Config{}
	cfg.News.Enabled = false
	cfg.News.MaxHeadlines = 5
	cfg.News.CacheTTLMinutes = 15

	svc := NewService(cfg)

	if got := svc.Headlines(context.Background(), "TCS"); got != nil {
		t.Errorf("Expected nil headlines when disabled, got %v", got)
	}
}

func TestHeadlinesServedFromCache(t *testing.T) {
	cfg := &store.Config{}
	cfg.News.Enabled = true
	cfg.News.MaxHeadlines = 5
	cfg.News.CacheTTLMinutes = 15

	svc := NewService(cfg)
	svc.cache.set("TCS", []string{"cached headline"})

	got := svc.Headlines(context.Background(), "TCS")
	if len(got) != 1 || got[0] != "cached headline" {
		t.Errorf("Expected cached headline, got %v", got)
	}
}

func TestDedupe(t *testing.T) {
	in := []Headline{
		{Title: "Stock rallies on earnings", Source: "MoneyControl"},
		{Title: "STOCK RALLIES ON EARNINGS", Source: "EconomicTimes"},
		{Title: "New plant announced", Source: "MoneyControl"},
	}

	out := dedupe(in)
	if len(out) != 2 {
		t.Fatalf("Expected 2 headlines after dedupe, got %d", len(out))
	}
	if out[0].Title != "Stock rallies on earnings" || out[1].Title != "New plant announced" {
		t.Errorf("Expected first-occurrence order preserved, got %v", out)
	}
}

func TestRelevanceFilter(t *testing.T) {
	in := []Headline{
		{Title: "TCS wins large deal"},
		{Title: "Markets close higher"},
		{Title: "Tcs declares dividend"},
	}

	out := relevanceFilter(in, "TCS")
	if len(out) != 2 {
		t.Fatalf("Expected 2 relevant headlines, got %d", len(out))
	}

	// Nothing mentions the symbol: keep the full symbol-targeted set.
	out = relevanceFilter(in, "INFY")
	if len(out) != 3 {
		t.Errorf("Expected full set when nothing matches, got %d", len(out))
	}
}

func TestGetDomain(t *testing.T) {
	if got := getDomain("https://www.moneycontrol.com"); got != "www.moneycontrol.com" {
		t.Errorf("Expected www.moneycontrol.com, got %s", got)
	}
	if got := getDomain("://bad"); got != "" {
		t.Errorf("Expected empty domain for bad URL, got %s", got)
	}
}

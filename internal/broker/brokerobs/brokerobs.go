// Package brokerobs wraps the broker boundaries with logging and tracing.
package brokerobs

import (
	"context"

	"llm-scanner-bot/internal/interfaces"
	"llm-scanner-bot/internal/logger"
	"llm-scanner-bot/internal/marketdata"
	"llm-scanner-bot/internal/trace"
	"llm-scanner-bot/internal/types"
)

// observableFetcher wraps a candle fetcher with observability
type observableFetcher struct {
	next marketdata.Fetcher
}

// Compile-time interface check
var _ marketdata.Fetcher = (*observableFetcher)(nil)

// WrapFetcher wraps a candle fetcher with observability middleware
func WrapFetcher(next marketdata.Fetcher) marketdata.Fetcher {
	return &observableFetcher{next: next}
}

// FetchCandles fetches candles with observability
func (w *observableFetcher) FetchCandles(ctx context.Context, symbol string, n int) ([]types.Candle, error) {
	ctx, span := trace.StartSpan(ctx, "broker.FetchCandles")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching candles", "symbol", symbol, "count", n)

	candles, err := w.next.FetchCandles(ctx, symbol, n)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch candles", err, "symbol", symbol, "count", n)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Candles fetched successfully", "symbol", symbol, "count", len(candles))
	return candles, nil
}

// observableSink wraps an order sink with observability
type observableSink struct {
	next interfaces.OrderSink
}

// Compile-time interface check
var _ interfaces.OrderSink = (*observableSink)(nil)

// WrapSink wraps an order sink with observability middleware
func WrapSink(next interfaces.OrderSink) interfaces.OrderSink {
	return &observableSink{next: next}
}

// Submit places an order with observability
func (w *observableSink) Submit(ctx context.Context, intent types.OrderIntent) (string, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Submit")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Submitting order",
		"symbol", intent.Symbol,
		"action", intent.Action,
		"qty", intent.Qty,
		"entry", intent.Entry,
		"stop_loss", intent.StopLoss,
		"mode", intent.Mode,
	)

	orderID, err := w.next.Submit(ctx, intent)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to submit order", err,
			"symbol", intent.Symbol,
			"action", intent.Action,
			"qty", intent.Qty,
		)
		return "", err
	}

	logger.InfoSkip(ctx, 1, "Order submitted successfully",
		"symbol", intent.Symbol,
		"order_id", orderID,
	)
	return orderID, nil
}

package interfaces

import (
	"context"

	"llm-scanner-bot/internal/types"
)

type CandleSource interface {
	Candles(ctx context.Context, symbol string, n int) ([]types.Candle, error)
}

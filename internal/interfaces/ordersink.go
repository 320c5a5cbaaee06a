package interfaces

import (
	"context"

	"llm-scanner-bot/internal/types"
)

type OrderSink interface {
	Submit(ctx context.Context, intent types.OrderIntent) (string, error)
}

package interfaces

import (
	"context"

	"llm-scanner-bot/internal/types"
)

type Engine interface {
	Step(ctx context.Context, symbol string) (*types.CycleResult, error)
}

package engineobs

import (
	"context"
	"time"

	"llm-scanner-bot/internal/interfaces"
	"llm-scanner-bot/internal/logger"
	"llm-scanner-bot/internal/trace"
	"llm-scanner-bot/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) Step(ctx context.Context, symbol string) (*types.CycleResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Step")
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting analysis cycle",
		"symbol", symbol,
	)

	result, err := oe.engine.Step(ctx, symbol)
	if err != nil {
		failedAt := ""
		if result != nil {
			failedAt = string(result.FailedAt)
		}
		logger.ErrorWithErrSkip(ctx, 1, "Analysis cycle failed", err,
			"symbol", symbol,
			"failed_at", failedAt,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return result, err
	}

	logger.InfoSkip(ctx, 1, "Analysis cycle completed",
		"symbol", symbol,
		"state", string(result.State),
		"action", result.Decision.Action,
		"confidence", result.Decision.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}

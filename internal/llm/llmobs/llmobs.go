package llmobs

import (
	"context"

	"llm-scanner-bot/internal/interfaces"
	"llm-scanner-bot/internal/logger"
	"llm-scanner-bot/internal/trace"
)

// observableReasoner wraps a Reasoner with observability (logging & tracing)
type observableReasoner struct {
	reasoner interfaces.Reasoner
}

// Compile-time interface check
var _ interfaces.Reasoner = (*observableReasoner)(nil)

// Wrap wraps a reasoner with observability middleware
func Wrap(reasoner interfaces.Reasoner) interfaces.Reasoner {
	return &observableReasoner{
		reasoner: reasoner,
	}
}

// Decide requests a reasoning response with observability
func (or *observableReasoner) Decide(ctx context.Context, symbol string, payloadJSON []byte, extra map[string]any) (string, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Decide")
	defer span.End()

	// Use DebugSkip(1) to report the actual caller, not this middleware wrapper
	logger.DebugSkip(ctx, 1, "Requesting reasoning response",
		"symbol", symbol,
		"payload_bytes", len(payloadJSON),
	)

	text, err := or.reasoner.Decide(ctx, symbol, payloadJSON, extra)
	if err != nil {
		// Use ErrorWithErrSkip(1) to report the actual caller
		logger.ErrorWithErrSkip(ctx, 1, "Failed to get reasoning response", err,
			"symbol", symbol,
		)
		return "", err
	}

	logger.InfoSkip(ctx, 1, "Reasoning response received",
		"symbol", symbol,
		"response_chars", len(text),
	)

	return text, nil
}

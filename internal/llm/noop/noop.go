package noop

import (
	"context"

	"llm-scanner-bot/internal/logger"
)

// Reasoner is a fallback used when no LLM provider is configured
type Reasoner struct{}

// New returns a reasoner that always answers WAIT
func New() *Reasoner {
	return &Reasoner{}
}

// Decide implements the Reasoner interface. The response carries a valid
// decision block so the parser and gate run their normal path.
func (r *Reasoner) Decide(ctx context.Context, symbol string, payloadJSON []byte, extra map[string]any) (string, error) {
	logger.Debug(ctx, "Noop reasoner called - always returns WAIT", "symbol", symbol)
	return `No provider configured; standing aside. JSON_SUMMARY: {"action":"WAIT","confidence":0,"reason":"noop_reasoner"}`, nil
}

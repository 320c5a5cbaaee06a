package notify

import (
	"context"

	"llm-scanner-bot/internal/interfaces"
)

// Noop discards notifications. Used when Telegram is disabled.
type Noop struct{}

var _ interfaces.Notifier = Noop{}

func (Noop) Notify(ctx context.Context, msg string) error { return nil }

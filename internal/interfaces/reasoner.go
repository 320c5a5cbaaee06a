package interfaces

import "context"

type Reasoner interface {
	Decide(ctx context.Context, symbol string, payloadJSON []byte, extra map[string]any) (string, error)
}

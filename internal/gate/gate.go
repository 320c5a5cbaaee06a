// Package gate decides whether a validated decision becomes an order intent.
package gate

import (
	"github.com/shopspring/decimal"

	"llm-scanner-bot/internal/store"
	"llm-scanner-bot/internal/types"
)

// Suppression reasons reported when no intent is produced.
const (
	ReasonWaitAction      = "wait_action"
	ReasonBelowConfidence = "below_confidence"
)

// Gate applies the confidence threshold and trading mode to parsed decisions.
// A structurally valid decision still has to clear the confidence bar.
type Gate struct {
	cfg *store.Config
}

func New(cfg *store.Config) *Gate {
	return &Gate{cfg: cfg}
}

// Apply returns an order intent for the decision, or nil plus the suppression
// reason. It never errors; suppression is a normal outcome.
func (g *Gate) Apply(symbol string, d types.Decision) (*types.OrderIntent, string) {
	if d.Action == types.ActionWait {
		return nil, ReasonWaitAction
	}
	if d.Confidence < g.cfg.Trading.ConfidenceMin {
		return nil, ReasonBelowConfidence
	}

	return &types.OrderIntent{
		Symbol:   symbol,
		Action:   d.Action,
		Qty:      g.cfg.QtyFor(symbol),
		Entry:    roundToTick(d.Entry, g.cfg.Trading.TickSize),
		StopLoss: roundToTick(d.StopLoss, g.cfg.Trading.TickSize),
		Mode:     types.Mode(g.cfg.Trading.Mode),
	}, ""
}

// roundToTick snaps a price to the nearest multiple of the tick size.
func roundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	p := decimal.NewFromFloat(price)
	t := decimal.NewFromFloat(tick)
	f, _ := p.Div(t).Round(0).Mul(t).Float64()
	return f
}

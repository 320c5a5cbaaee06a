// Package engine orchestrates one analysis cycle per symbol: fetch, validate,
// compute, build the payload, ask the reasoner, parse, gate, and submit.
package engine

import (
	"context"
	"fmt"
	"strings"

	"llm-scanner-bot/internal/decision"
	"llm-scanner-bot/internal/gate"
	"llm-scanner-bot/internal/indicator"
	"llm-scanner-bot/internal/interfaces"
	"llm-scanner-bot/internal/logger"
	"llm-scanner-bot/internal/news"
	"llm-scanner-bot/internal/payload"
	"llm-scanner-bot/internal/store"
	"llm-scanner-bot/internal/tradelog"
	"llm-scanner-bot/internal/types"
)

type Engine struct {
	cfg        *store.Config
	source     interfaces.CandleSource
	reasoner   interfaces.Reasoner
	sink       interfaces.OrderSink
	gate       *gate.Gate
	indicators *indicator.Engine
	builder    *payload.Builder
	parser     *decision.Parser
	trades     *tradelog.Log
	headlines  *news.Service
}

var _ interfaces.Engine = (*Engine)(nil)

// New wires a cycle engine from the configured components. The headlines
// service may be nil when news context is disabled.
func New(cfg *store.Config, source interfaces.CandleSource, reasoner interfaces.Reasoner,
	sink interfaces.OrderSink, trades *tradelog.Log, headlines *news.Service) *Engine {
	return &Engine{
		cfg:        cfg,
		source:     source,
		reasoner:   reasoner,
		sink:       sink,
		gate:       gate.New(cfg),
		indicators: indicator.NewEngine(indicatorConfig(cfg)),
		builder:    payload.NewBuilder(payloadConfig(cfg)),
		parser:     decision.NewParser(),
		trades:     trades,
		headlines:  headlines,
	}
}

func indicatorConfig(cfg *store.Config) indicator.Config {
	return indicator.Config{
		MAShort:      cfg.Indicators.MAWindows[0],
		MAMedium:     cfg.Indicators.MAWindows[1],
		MALong:       cfg.Indicators.MAWindows[2],
		RSIPeriod:    cfg.Indicators.RSIPeriod,
		MACDFast:     cfg.Indicators.MACDFast,
		MACDSlow:     cfg.Indicators.MACDSlow,
		MACDSignal:   cfg.Indicators.MACDSignal,
		ATRPeriod:    cfg.Indicators.ATRPeriod,
		VolumeWindow: cfg.Indicators.VolumeWindow,
	}
}

func payloadConfig(cfg *store.Config) payload.Config {
	return payload.Config{
		RecentWindow:     cfg.Payload.RecentWindow,
		KeyLevelLookback: cfg.Payload.KeyLevelLookback,
		HighVolumeRatio:  cfg.Payload.Thresholds.HighVolumeRatio,
		WickBodyMult:     cfg.Payload.Thresholds.WickBodyMult,
		WideRangeATR:     cfg.Payload.Thresholds.WideRangeATR,
	}
}

// Step runs one full cycle for a symbol. On failure the returned result is
// non-nil with State CYCLE_FAILED and FailedAt set, alongside the error.
func (e *Engine) Step(ctx context.Context, symbol string) (*types.CycleResult, error) {
	res := &types.CycleResult{Symbol: symbol, State: types.StateFetching}

	candles, err := e.source.Candles(ctx, symbol, e.cfg.Data.CandleCount)
	if err != nil {
		// Data that could not be fetched is data the cycle does not have.
		return e.fail(ctx, res, types.StateFetching, fmt.Errorf("%w: %w", types.ErrInsufficientData, err))
	}
	logger.Debug(ctx, "Candles fetched", "symbol", symbol, "count", len(candles))

	res.State = types.StateValidating
	if e.cfg.Data.DropFormingCandle && len(candles) > 0 {
		// The newest bucket is still forming; analysis uses closed candles only.
		candles = candles[:len(candles)-1]
	}
	if err := indicator.ValidateSeries(candles, e.indicators.MinLen()); err != nil {
		return e.fail(ctx, res, types.StateValidating, err)
	}

	latest := candles[len(candles)-1]
	res.Price = latest.Close
	res.Time = latest.Ts

	res.State = types.StateComputing
	sets, err := e.indicators.Compute(candles)
	if err != nil {
		return e.fail(ctx, res, types.StateComputing, err)
	}

	res.State = types.StateBuildingPayload
	p, err := e.builder.Build(symbol, e.cfg.Data.Timeframe, candles, sets)
	if err != nil {
		return e.fail(ctx, res, types.StateBuildingPayload, err)
	}
	payloadJSON, err := p.JSON()
	if err != nil {
		return e.fail(ctx, res, types.StateBuildingPayload, err)
	}
	logger.Debug(ctx, "Payload built", "symbol", symbol, "bytes", len(payloadJSON))

	res.State = types.StateAwaitingDecision
	extra := map[string]any{}
	if e.headlines != nil {
		if hs := e.headlines.Headlines(ctx, symbol); len(hs) > 0 {
			extra["headlines"] = hs
		}
	}
	raw, err := e.reasoner.Decide(ctx, symbol, payloadJSON, extra)
	if err != nil {
		return e.fail(ctx, res, types.StateAwaitingDecision, err)
	}
	res.Analysis = raw

	res.State = types.StateParsing
	d, err := e.parser.Parse(raw)
	if err != nil {
		return e.fail(ctx, res, types.StateParsing, err)
	}
	res.Decision = d
	logger.Decision(ctx, symbol, d.Action, d.Confidence, d.Reason, "price", res.Price)

	res.State = types.StateGating
	intent, suppressedBy := e.gate.Apply(symbol, d)
	if intent == nil {
		res.State = types.StateSuppressed
		res.SuppressedBy = suppressedBy
		logger.Suppression(ctx, symbol, suppressedBy, "action", d.Action, "confidence", d.Confidence)
		e.record(ctx, res)
		return res, nil
	}

	res.State = types.StateExecuting
	res.Intent = intent
	orderID, err := e.sink.Submit(ctx, *intent)
	if err != nil {
		return e.fail(ctx, res, types.StateExecuting, err)
	}
	res.OrderID = orderID
	logger.Order(ctx, symbol, intent.Action, intent.Qty, intent.Entry, intent.StopLoss, orderID)
	e.record(ctx, res)
	return res, nil
}

func (e *Engine) fail(ctx context.Context, res *types.CycleResult, at types.CycleState, err error) (*types.CycleResult, error) {
	res.State = types.StateCycleFailed
	res.FailedAt = at
	logger.ErrorWithErr(ctx, "Cycle failed", err, "symbol", res.Symbol, "failed_at", string(at))
	return res, fmt.Errorf("%s: %w", strings.ToLower(string(at)), err)
}

func (e *Engine) record(ctx context.Context, res *types.CycleResult) {
	if e.trades == nil {
		return
	}
	if err := e.trades.Record(res); err != nil {
		logger.Warn(ctx, "Trade log write failed", "symbol", res.Symbol, "error", err)
	}
}

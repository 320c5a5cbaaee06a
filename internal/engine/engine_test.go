package engine

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"llm-scanner-bot/internal/store"
	"llm-scanner-bot/internal/tradelog"
	"llm-scanner-bot/internal/types"
)

type fakeSource struct {
	candles []types.Candle
	err     error
	gotN    int
}

func (f *fakeSource) Candles(ctx context.Context, symbol string, n int) ([]types.Candle, error) {
	f.gotN = n
	if f.err != nil {
		return nil, f.err
	}
	return f.candles, nil
}

type fakeReasoner struct {
	response   string
	err        error
	gotPayload []byte
	gotExtra   map[string]any
}

func (f *fakeReasoner) Decide(ctx context.Context, symbol string, payloadJSON []byte, extra map[string]any) (string, error) {
	f.gotPayload = payloadJSON
	f.gotExtra = extra
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeSink struct {
	orderID string
	err     error
	got     *types.OrderIntent
}

func (f *fakeSink) Submit(ctx context.Context, intent types.OrderIntent) (string, error) {
	f.got = &intent
	if f.err != nil {
		return "", f.err
	}
	return f.orderID, nil
}

func testConfig() *store.Config {
	cfg := &store.Config{}
	cfg.Trading.Mode = "sandbox"
	cfg.Trading.ConfidenceMin = 70
	cfg.Trading.TickSize = 0.05
	cfg.Trading.Qty.Default = 1
	cfg.Trading.Qty.PerSymbol = map[string]int{"TCS": 2}
	cfg.Data.Timeframe = "5minute"
	cfg.Data.CandleCount = 40
	cfg.Data.DropFormingCandle = true
	cfg.Indicators.MAWindows = []int{3, 5, 8}
	cfg.Indicators.RSIPeriod = 3
	cfg.Indicators.MACDFast = 3
	cfg.Indicators.MACDSlow = 6
	cfg.Indicators.MACDSignal = 3
	cfg.Indicators.ATRPeriod = 3
	cfg.Indicators.VolumeWindow = 4
	cfg.Payload.RecentWindow = 3
	cfg.Payload.KeyLevelLookback = 8
	cfg.Payload.Thresholds.HighVolumeRatio = 1.8
	cfg.Payload.Thresholds.WickBodyMult = 2.0
	cfg.Payload.Thresholds.WideRangeATR = 1.5
	return cfg
}

func makeCandles(n int) []types.Candle {
	candles := make([]types.Candle, n)
	for i := 0; i < n; i++ {
		c := 100.0 + 0.5*float64(i)
		candles[i] = types.Candle{
			Ts:     1700000000 + int64(i)*300,
			Open:   c - 0.2,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 1000 + int64(i)*10,
		}
	}
	return candles
}

const buyResponse = `The trend is up with strong participation.
JSON_SUMMARY: {"action":"BUY","confidence":85,"entry":120.0,"stop_loss":118.0,"reason":"uptrend"}`

func TestStepExecutes(t *testing.T) {
	cfg := testConfig()
	src := &fakeSource{candles: makeCandles(40)}
	rsn := &fakeReasoner{response: buyResponse}
	snk := &fakeSink{orderID: "SIM-TEST"}

	eng := New(cfg, src, rsn, snk, nil, nil)
	res, err := eng.Step(context.Background(), "TCS")
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}

	if res.State != types.StateExecuting {
		t.Errorf("Expected state EXECUTING, got %s", res.State)
	}
	if res.OrderID != "SIM-TEST" {
		t.Errorf("Expected order ID SIM-TEST, got %s", res.OrderID)
	}
	if res.Analysis != buyResponse {
		t.Error("Expected raw analysis text carried on the result")
	}
	if src.gotN != 40 {
		t.Errorf("Expected 40 candles requested, got %d", src.gotN)
	}
	if snk.got == nil {
		t.Fatal("Expected an order submission")
	}
	if snk.got.Qty != 2 {
		t.Errorf("Expected per-symbol qty 2, got %d", snk.got.Qty)
	}
	if snk.got.Entry != 120.0 || snk.got.StopLoss != 118.0 {
		t.Errorf("Unexpected intent prices: %+v", snk.got)
	}
	if snk.got.Mode != types.ModeSandbox {
		t.Errorf("Expected sandbox mode, got %s", snk.got.Mode)
	}
}

func TestStepSuppressedBelowConfidence(t *testing.T) {
	cfg := testConfig()
	src := &fakeSource{candles: makeCandles(40)}
	rsn := &fakeReasoner{response: `JSON_SUMMARY: {"action":"BUY","confidence":50,"entry":120.0,"stop_loss":118.0}`}
	snk := &fakeSink{orderID: "SIM-TEST"}

	eng := New(cfg, src, rsn, snk, nil, nil)
	res, err := eng.Step(context.Background(), "TCS")
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}

	if res.State != types.StateSuppressed {
		t.Errorf("Expected state SUPPRESSED, got %s", res.State)
	}
	if res.SuppressedBy != "below_confidence" {
		t.Errorf("Expected below_confidence, got %s", res.SuppressedBy)
	}
	if snk.got != nil {
		t.Error("Expected no order submission for a suppressed decision")
	}
}

func TestStepSuppressedWait(t *testing.T) {
	cfg := testConfig()
	src := &fakeSource{candles: makeCandles(40)}
	rsn := &fakeReasoner{response: `JSON_SUMMARY: {"action":"WAIT","confidence":90,"reason":"choppy"}`}
	snk := &fakeSink{}

	eng := New(cfg, src, rsn, snk, nil, nil)
	res, err := eng.Step(context.Background(), "TCS")
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}

	if res.State != types.StateSuppressed || res.SuppressedBy != "wait_action" {
		t.Errorf("Expected wait_action suppression, got state %s by %s", res.State, res.SuppressedBy)
	}
}

func TestStepFetchFails(t *testing.T) {
	cfg := testConfig()
	src := &fakeSource{err: errors.New("network down")}

	eng := New(cfg, src, &fakeReasoner{}, &fakeSink{}, nil, nil)
	res, err := eng.Step(context.Background(), "TCS")
	if err == nil {
		t.Fatal("Expected an error")
	}

	if res.State != types.StateCycleFailed {
		t.Errorf("Expected CYCLE_FAILED, got %s", res.State)
	}
	if res.FailedAt != types.StateFetching {
		t.Errorf("Expected failure at FETCHING, got %s", res.FailedAt)
	}
	if !errors.Is(err, types.ErrInsufficientData) {
		t.Errorf("Expected fetch failure to map to ErrInsufficientData, got %v", err)
	}
}

func TestStepShortSeries(t *testing.T) {
	cfg := testConfig()
	src := &fakeSource{candles: makeCandles(5)}

	eng := New(cfg, src, &fakeReasoner{}, &fakeSink{}, nil, nil)
	res, err := eng.Step(context.Background(), "TCS")
	if err == nil {
		t.Fatal("Expected an error")
	}

	if !errors.Is(err, types.ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", err)
	}
	if res.FailedAt != types.StateValidating {
		t.Errorf("Expected failure at VALIDATING, got %s", res.FailedAt)
	}
}

func TestStepParseFails(t *testing.T) {
	cfg := testConfig()
	src := &fakeSource{candles: makeCandles(40)}
	rsn := &fakeReasoner{response: "I cannot decide right now."}

	eng := New(cfg, src, rsn, &fakeSink{}, nil, nil)
	res, err := eng.Step(context.Background(), "TCS")
	if err == nil {
		t.Fatal("Expected an error")
	}

	if !errors.Is(err, types.ErrNoDecisionBlock) {
		t.Errorf("Expected ErrNoDecisionBlock, got %v", err)
	}
	if res.FailedAt != types.StateParsing {
		t.Errorf("Expected failure at PARSING, got %s", res.FailedAt)
	}
}

func TestStepReasonerFails(t *testing.T) {
	cfg := testConfig()
	src := &fakeSource{candles: makeCandles(40)}
	rsn := &fakeReasoner{err: errors.New("api timeout")}

	eng := New(cfg, src, rsn, &fakeSink{}, nil, nil)
	res, err := eng.Step(context.Background(), "TCS")
	if err == nil {
		t.Fatal("Expected an error")
	}

	if res.FailedAt != types.StateAwaitingDecision {
		t.Errorf("Expected failure at AWAITING_DECISION, got %s", res.FailedAt)
	}
}

func TestStepSubmitFails(t *testing.T) {
	cfg := testConfig()
	src := &fakeSource{candles: makeCandles(40)}
	rsn := &fakeReasoner{response: buyResponse}
	snk := &fakeSink{err: errors.New("broker rejected")}

	eng := New(cfg, src, rsn, snk, nil, nil)
	res, err := eng.Step(context.Background(), "TCS")
	if err == nil {
		t.Fatal("Expected an error")
	}

	if res.FailedAt != types.StateExecuting {
		t.Errorf("Expected failure at EXECUTING, got %s", res.FailedAt)
	}
}

func TestStepDropsFormingCandle(t *testing.T) {
	cfg := testConfig()
	candles := makeCandles(40)
	src := &fakeSource{candles: candles}
	rsn := &fakeReasoner{response: buyResponse}

	eng := New(cfg, src, rsn, &fakeSink{orderID: "SIM-1"}, nil, nil)
	res, err := eng.Step(context.Background(), "TCS")
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}

	closed := candles[len(candles)-2]
	if res.Price != closed.Close {
		t.Errorf("Expected price %v from the last closed candle, got %v", closed.Close, res.Price)
	}
	if res.Time != closed.Ts {
		t.Errorf("Expected time %d, got %d", closed.Ts, res.Time)
	}

	var p struct {
		CurrentMarketData struct {
			Price float64 `json:"price"`
		} `json:"current_market_data"`
	}
	if err := json.Unmarshal(rsn.gotPayload, &p); err != nil {
		t.Fatalf("Payload is not valid JSON: %v", err)
	}
	if p.CurrentMarketData.Price != closed.Close {
		t.Errorf("Expected payload price %v, got %v", closed.Close, p.CurrentMarketData.Price)
	}
}

func TestStepKeepsFormingCandleWhenDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Data.DropFormingCandle = false
	candles := makeCandles(40)
	src := &fakeSource{candles: candles}
	rsn := &fakeReasoner{response: buyResponse}

	eng := New(cfg, src, rsn, &fakeSink{orderID: "SIM-1"}, nil, nil)
	res, err := eng.Step(context.Background(), "TCS")
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}

	if res.Price != candles[len(candles)-1].Close {
		t.Errorf("Expected price from the newest candle, got %v", res.Price)
	}
}

func TestStepNoHeadlinesWhenServiceNil(t *testing.T) {
	cfg := testConfig()
	src := &fakeSource{candles: makeCandles(40)}
	rsn := &fakeReasoner{response: buyResponse}

	eng := New(cfg, src, rsn, &fakeSink{orderID: "SIM-1"}, nil, nil)
	if _, err := eng.Step(context.Background(), "TCS"); err != nil {
		t.Fatalf("Step failed: %v", err)
	}

	if _, ok := rsn.gotExtra["headlines"]; ok {
		t.Error("Expected no headlines key without a news service")
	}
}

func TestStepRecordsTrade(t *testing.T) {
	cfg := testConfig()
	cfg.TradeLog.Dir = t.TempDir()
	cfg.TradeLog.Timezone = "Asia/Kolkata"
	trades := tradelog.New(cfg)

	src := &fakeSource{candles: makeCandles(40)}
	rsn := &fakeReasoner{response: buyResponse}

	eng := New(cfg, src, rsn, &fakeSink{orderID: "SIM-9"}, trades, nil)
	if _, err := eng.Step(context.Background(), "TCS"); err != nil {
		t.Fatalf("Step failed: %v", err)
	}

	entries, err := os.ReadDir(cfg.TradeLog.Dir)
	if err != nil {
		t.Fatalf("Failed to read trade log dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 trade log file, got %d", len(entries))
	}
}

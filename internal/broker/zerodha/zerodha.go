// Package zerodha fetches historical candles and places orders through the
// Kite Connect REST API.
package zerodha

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"llm-scanner-bot/internal/interfaces"
	"llm-scanner-bot/internal/logger"
	"llm-scanner-bot/internal/marketdata"
	"llm-scanner-bot/internal/types"
)

type Params struct {
	Mode        types.Mode
	APIKey      string
	AccessToken string
	Exchange    string
	Interval    string
}

type Zerodha struct {
	p  Params
	kc *kiteconnect.Client

	mu     sync.Mutex
	mapper *instrumentMapper
}

var (
	_ marketdata.Fetcher   = (*Zerodha)(nil)
	_ interfaces.OrderSink = (*Zerodha)(nil)
)

func New(p Params) *Zerodha {
	kc := kiteconnect.New(p.APIKey)
	kc.SetAccessToken(p.AccessToken)
	return &Zerodha{p: p, kc: kc, mapper: newInstrumentMapper()}
}

// FetchCandles returns up to n of the most recent candles for the symbol at
// the configured interval, oldest first.
func (z *Zerodha) FetchCandles(ctx context.Context, symbol string, n int) ([]types.Candle, error) {
	token, err := z.token(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	to := time.Now()
	from := to.AddDate(0, 0, -lookbackDays(n, z.p.Interval))
	data, err := z.kc.GetHistoricalData(int(token), z.p.Interval, from, to, false, false)
	if err != nil {
		return nil, fmt.Errorf("historical data for %s: %w", symbol, err)
	}

	candles := make([]types.Candle, 0, len(data))
	for _, d := range data {
		candles = append(candles, types.Candle{
			Ts:     d.Date.Unix(),
			Open:   d.Open,
			High:   d.High,
			Low:    d.Low,
			Close:  d.Close,
			Volume: int64(d.Volume),
		})
	}
	if len(candles) > n {
		candles = candles[len(candles)-n:]
	}
	return candles, nil
}

// Submit places the order. Sandbox intents never reach the trade API; they
// get a fabricated order ID.
func (z *Zerodha) Submit(ctx context.Context, intent types.OrderIntent) (string, error) {
	if intent.Mode == types.ModeSandbox {
		orderID := fmt.Sprintf("SIM-%d", time.Now().UnixNano())
		logger.Info(ctx, "Sandbox order simulated",
			"symbol", intent.Symbol,
			"action", intent.Action,
			"qty", intent.Qty,
			"entry", intent.Entry,
			"order_id", orderID)
		return orderID, nil
	}

	if z.p.APIKey == "" || z.p.AccessToken == "" {
		return "", errors.New("missing API key/access token")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	txn := kiteconnect.TransactionTypeBuy
	if intent.Action == types.ActionSell {
		txn = kiteconnect.TransactionTypeSell
	}

	// The stop price is advisory: it travels in the log and the alert, not
	// as a broker-side trigger order.
	resp, err := z.kc.PlaceOrder(kiteconnect.VarietyRegular, kiteconnect.OrderParams{
		Exchange:        z.p.Exchange,
		Tradingsymbol:   intent.Symbol,
		Product:         kiteconnect.ProductMIS,
		OrderType:       kiteconnect.OrderTypeLimit,
		TransactionType: txn,
		Quantity:        intent.Qty,
		Price:           intent.Entry,
		Validity:        kiteconnect.ValidityDay,
		Tag:             "llm-scanner",
	})
	if err != nil {
		return "", fmt.Errorf("placing %s order for %s: %w", intent.Action, intent.Symbol, err)
	}
	return resp.OrderID, nil
}

// token resolves the instrument token for a symbol, loading the exchange's
// instrument dump on first use.
func (z *Zerodha) token(ctx context.Context, symbol string) (uint32, error) {
	if token, ok := z.mapper.getToken(symbol); ok {
		return token, nil
	}
	if err := z.loadInstruments(ctx); err != nil {
		return 0, err
	}
	token, ok := z.mapper.getToken(symbol)
	if !ok {
		return 0, fmt.Errorf("unknown symbol %s on %s", symbol, z.p.Exchange)
	}
	return token, nil
}

func (z *Zerodha) loadInstruments(ctx context.Context) error {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.mapper.size() > 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	instruments, err := z.kc.GetInstrumentsByExchange(z.p.Exchange)
	if err != nil {
		return fmt.Errorf("loading instruments for %s: %w", z.p.Exchange, err)
	}
	for _, inst := range instruments {
		z.mapper.addMapping(inst.Tradingsymbol, uint32(inst.InstrumentToken))
	}

	logger.Info(ctx, "Instrument map loaded", "exchange", z.p.Exchange, "count", z.mapper.size())
	return nil
}

// lookbackDays sizes the fetch window so n interval candles fit even across
// weekends and holidays. NSE trades 375 minutes a day.
func lookbackDays(n int, interval string) int {
	tradingDays := n*intervalMinutes(interval)/375 + 1
	return tradingDays*7/5 + 3
}

func intervalMinutes(interval string) int {
	switch interval {
	case "minute":
		return 1
	case "3minute":
		return 3
	case "5minute":
		return 5
	case "10minute":
		return 10
	case "15minute":
		return 15
	case "30minute":
		return 30
	case "60minute":
		return 60
	case "day":
		return 375
	default:
		return 5
	}
}

// Package payload assembles the fixed-schema market analysis snapshot sent to
// the reasoning service.
package payload

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"llm-scanner-bot/internal/indicator"
	"llm-scanner-bot/internal/types"
)

// Wire format: field names are frozen for prompt compatibility. "ma20" always
// carries the medium-window average and "recent_30_period_*" the configured
// lookback extremes, whatever the configured windows are.

type AnalysisPayload struct {
	TargetInfo        TargetInfo        `json:"target_info"`
	CurrentMarketData CurrentMarketData `json:"current_market_data"`
	RecentPriceAction []PriceActionRow  `json:"recent_price_action"`
	KeyLevelsContext  KeyLevelsContext  `json:"key_levels_context"`
}

type TargetInfo struct {
	Symbol            string `json:"symbol"`
	AnalysisTimeframe string `json:"analysis_timeframe"`
}

type CurrentMarketData struct {
	Price      float64    `json:"price"`
	Indicators Indicators `json:"indicators"`
}

type Indicators struct {
	MA20           float64 `json:"ma20"`
	RSI            float64 `json:"rsi"`
	MACDHist       string  `json:"macd_hist"`
	TrendStructure string  `json:"trend_structure"`
}

type PriceActionRow struct {
	Offset   string  `json:"offset"`
	Close    float64 `json:"close"`
	Volume   int64   `json:"volume"`
	Features string  `json:"features"`
}

type KeyLevelsContext struct {
	High float64 `json:"recent_30_period_high"`
	Low  float64 `json:"recent_30_period_low"`
}

// JSON serializes the payload for the prompt.
func (p *AnalysisPayload) JSON() ([]byte, error) {
	return json.Marshal(p)
}

// Config holds the payload window sizes and feature-tag thresholds.
type Config struct {
	RecentWindow     int
	KeyLevelLookback int
	HighVolumeRatio  float64
	WickBodyMult     float64
	WideRangeATR     float64
}

// DefaultConfig returns the standard windows and thresholds.
func DefaultConfig() Config {
	return Config{
		RecentWindow:     5,
		KeyLevelLookback: 30,
		HighVolumeRatio:  1.8,
		WickBodyMult:     2.0,
		WideRangeATR:     1.5,
	}
}

// Builder constructs analysis payloads. Pure and deterministic.
type Builder struct {
	cfg Config
}

func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg}
}

// Build assembles the payload from the newest rows of an aligned candle and
// indicator series. The final row is treated as the current market state.
func (b *Builder) Build(symbol, timeframe string, series []types.Candle, sets []types.IndicatorSet) (*AnalysisPayload, error) {
	if len(series) != len(sets) {
		return nil, fmt.Errorf("%w: %d candles but %d indicator rows", types.ErrInsufficientHistory, len(series), len(sets))
	}
	need := b.cfg.RecentWindow
	if b.cfg.KeyLevelLookback > need {
		need = b.cfg.KeyLevelLookback
	}
	if len(series) < need {
		return nil, fmt.Errorf("%w: have %d candles, need %d", types.ErrInsufficientHistory, len(series), need)
	}

	n := len(series)
	current := series[n-1]
	latest := sets[n-1]
	if !isFinite(latest.MAShort) || !isFinite(latest.MAMedium) || !isFinite(latest.MALong) ||
		!isFinite(latest.RSI) || !isFinite(latest.MACDHist) {
		return nil, fmt.Errorf("%w: final indicator row not warmed", types.ErrInsufficientHistory)
	}

	levels := keyLevels(series[n-b.cfg.KeyLevelLookback:])

	recent := make([]PriceActionRow, 0, b.cfg.RecentWindow)
	for i := n - b.cfg.RecentWindow; i < n; i++ {
		recent = append(recent, PriceActionRow{
			Offset:   fmt.Sprintf("T-%d", n-1-i),
			Close:    round4(series[i].Close),
			Volume:   series[i].Volume,
			Features: featureTags(series[i], sets[i], b.cfg),
		})
	}

	return &AnalysisPayload{
		TargetInfo: TargetInfo{
			Symbol:            symbol,
			AnalysisTimeframe: timeframe,
		},
		CurrentMarketData: CurrentMarketData{
			Price: round4(current.Close),
			Indicators: Indicators{
				MA20:           round4(latest.MAMedium),
				RSI:            round4(latest.RSI),
				MACDHist:       strconv.FormatFloat(latest.MACDHist, 'f', 4, 64),
				TrendStructure: indicator.TrendStructure(current.Close, latest.MAShort, latest.MALong),
			},
		},
		RecentPriceAction: recent,
		KeyLevelsContext: KeyLevelsContext{
			High: round4(levels.High),
			Low:  round4(levels.Low),
		},
	}, nil
}

// keyLevels returns the extreme high and low over the given window.
func keyLevels(window []types.Candle) types.KeyLevels {
	levels := types.KeyLevels{High: window[0].High, Low: window[0].Low}
	for _, c := range window[1:] {
		if c.High > levels.High {
			levels.High = c.High
		}
		if c.Low < levels.Low {
			levels.Low = c.Low
		}
	}
	return levels
}

// featureTags annotates one candle with qualitative tags. Unwarmed indicator
// values fail every comparison and contribute nothing.
func featureTags(c types.Candle, set types.IndicatorSet, cfg Config) string {
	var tags []string

	if set.VolumeRatio >= cfg.HighVolumeRatio {
		tags = append(tags, "high_volume")
	}

	body := math.Abs(c.Close - c.Open)
	lowerWick := math.Min(c.Open, c.Close) - c.Low
	upperWick := c.High - math.Max(c.Open, c.Close)
	if lowerWick > cfg.WickBodyMult*body {
		tags = append(tags, "long_lower_wick")
	}
	if upperWick > cfg.WickBodyMult*body {
		tags = append(tags, "long_upper_wick")
	}

	if c.High-c.Low > cfg.WideRangeATR*set.ATR {
		tags = append(tags, "wide_range")
	}

	if c.Close > c.Open {
		tags = append(tags, "bullish_close")
	} else if c.Close < c.Open {
		tags = append(tags, "bearish_close")
	}

	if len(tags) == 0 {
		return "none"
	}
	return strings.Join(tags, "|")
}

// round4 rounds half away from zero at 4 decimal places.
func round4(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(4).Float64()
	return f
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

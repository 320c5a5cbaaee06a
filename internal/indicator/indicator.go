// Package indicator computes technical indicator sequences from candle
// series. All functions are pure; warm-up rows carry NaN and only rows at or
// past the longest lookback are safe to consume.
package indicator

import (
	"fmt"
	"math"

	"llm-scanner-bot/internal/types"
)

// Config holds indicator lookback windows.
type Config struct {
	MAShort      int
	MAMedium     int
	MALong       int
	RSIPeriod    int
	MACDFast     int
	MACDSlow     int
	MACDSignal   int
	ATRPeriod    int
	VolumeWindow int
}

// DefaultConfig returns the standard lookback windows.
func DefaultConfig() Config {
	return Config{
		MAShort:      10,
		MAMedium:     20,
		MALong:       60,
		RSIPeriod:    14,
		MACDFast:     12,
		MACDSlow:     26,
		MACDSignal:   9,
		ATRPeriod:    14,
		VolumeWindow: 20,
	}
}

// Engine computes aligned indicator sequences for a candle series.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// MinLen returns the shortest series length whose final row is fully warmed.
func (e *Engine) MinLen() int {
	min := e.cfg.MALong
	if n := e.cfg.MACDSlow + e.cfg.MACDSignal; n > min {
		min = n
	}
	if n := e.cfg.RSIPeriod + 1; n > min {
		min = n
	}
	if n := e.cfg.ATRPeriod + 1; n > min {
		min = n
	}
	if n := e.cfg.VolumeWindow; n > min {
		min = n
	}
	return min
}

// ValidateSeries rejects series that are absent, too short for the given
// lookback, or contain malformed rows.
func ValidateSeries(series []types.Candle, minLen int) error {
	if len(series) == 0 {
		return fmt.Errorf("%w: empty candle series", types.ErrInsufficientData)
	}
	if len(series) < minLen {
		return fmt.Errorf("%w: have %d candles, need %d", types.ErrInsufficientData, len(series), minLen)
	}
	for i, c := range series {
		if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
			return fmt.Errorf("%w: non-positive price at row %d", types.ErrMalformedCandle, i)
		}
		if c.Volume < 0 {
			return fmt.Errorf("%w: negative volume at row %d", types.ErrMalformedCandle, i)
		}
	}
	return nil
}

// Compute validates the series and returns one IndicatorSet per input row.
func (e *Engine) Compute(series []types.Candle) ([]types.IndicatorSet, error) {
	if err := ValidateSeries(series, e.MinLen()); err != nil {
		return nil, err
	}

	n := len(series)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	vols := make([]float64, n)
	for i, c := range series {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		vols[i] = float64(c.Volume)
	}

	maS := smaSeries(closes, e.cfg.MAShort)
	maM := smaSeries(closes, e.cfg.MAMedium)
	maL := smaSeries(closes, e.cfg.MALong)
	rsi := rsiSeries(closes, e.cfg.RSIPeriod)
	macd := macdHistSeries(closes, e.cfg.MACDFast, e.cfg.MACDSlow, e.cfg.MACDSignal)
	atr := atrSeries(highs, lows, closes, e.cfg.ATRPeriod)
	volR := volumeRatioSeries(vols, e.cfg.VolumeWindow)

	sets := make([]types.IndicatorSet, n)
	for i := 0; i < n; i++ {
		sets[i] = types.IndicatorSet{
			MAShort:     maS[i],
			MAMedium:    maM[i],
			MALong:      maL[i],
			RSI:         rsi[i],
			MACDHist:    macd[i],
			ATR:         atr[i],
			VolumeRatio: volR[i],
		}
	}
	return sets, nil
}

// smaSeries computes a simple moving average with a rolling sum.
func smaSeries(vals []float64, n int) []float64 {
	out := nanSlice(len(vals))
	if n <= 0 || len(vals) < n {
		return out
	}
	sum := 0.0
	for i, v := range vals {
		sum += v
		if i >= n {
			sum -= vals[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// rsiSeries computes RSI with Wilder smoothing. A flat series reports 50,
// gains with zero losses report 100.
func rsiSeries(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}
	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		gain, loss := 0.0, 0.0
		if d := closes[i] - closes[i-1]; d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0
		}
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

// emaSeries seeds with the SMA of the first n values, then smooths.
func emaSeries(vals []float64, n int) []float64 {
	out := nanSlice(len(vals))
	if n <= 0 || len(vals) < n {
		return out
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += vals[i]
	}
	out[n-1] = sum / float64(n)
	k := 2.0 / float64(n+1)
	for i := n; i < len(vals); i++ {
		out[i] = vals[i]*k + out[i-1]*(1.0-k)
	}
	return out
}

// macdHistSeries computes the MACD histogram: (EMA fast - EMA slow) minus the
// signal EMA of that line. Defined from index slow+signal-2 onward.
func macdHistSeries(closes []float64, fast, slow, signal int) []float64 {
	out := nanSlice(len(closes))
	if fast <= 0 || slow <= fast || signal <= 0 || len(closes) < slow+signal-1 {
		return out
	}
	emaFast := emaSeries(closes, fast)
	emaSlow := emaSeries(closes, slow)

	// MACD line is defined where the slow EMA is.
	first := slow - 1
	line := make([]float64, len(closes)-first)
	for i := range line {
		line[i] = emaFast[first+i] - emaSlow[first+i]
	}
	sig := emaSeries(line, signal)
	for i, s := range sig {
		if !math.IsNaN(s) {
			out[first+i] = line[i] - s
		}
	}
	return out
}

// atrSeries computes the average true range with Wilder smoothing. A
// constant-price series yields exactly 0.
func atrSeries(highs, lows, closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}
	tr := make([]float64, len(closes))
	tr[0] = highs[0] - lows[0]
	for i := 1; i < len(closes); i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	out[period] = sum / float64(period)
	for i := period + 1; i < len(closes); i++ {
		out[i] = (out[i-1]*float64(period-1) + tr[i]) / float64(period)
	}
	return out
}

// volumeRatioSeries divides each row's volume by its rolling mean. A zero
// rolling mean yields exactly 0.
func volumeRatioSeries(vols []float64, window int) []float64 {
	out := nanSlice(len(vols))
	if window <= 0 || len(vols) < window {
		return out
	}
	mean := smaSeries(vols, window)
	for i := window - 1; i < len(vols); i++ {
		if mean[i] == 0 {
			out[i] = 0
			continue
		}
		out[i] = vols[i] / mean[i]
	}
	return out
}

// TrendStructure labels price position relative to the short and long moving
// averages.
func TrendStructure(price, maShort, maLong float64) string {
	if math.IsNaN(price) || math.IsNaN(maShort) || math.IsNaN(maLong) ||
		math.IsInf(price, 0) || math.IsInf(maShort, 0) || math.IsInf(maLong, 0) {
		return "Unknown"
	}
	switch {
	case price > maShort && maShort > maLong:
		return "Bullish_Strong"
	case price < maShort && maShort < maLong:
		return "Bearish_Strong"
	case maLong < price && price < maShort:
		return "Correction_Bullish"
	case maShort < price && price < maLong:
		return "Rebound_Bearish"
	default:
		return "Consolidation"
	}
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

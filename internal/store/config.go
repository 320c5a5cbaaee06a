package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

type Config struct {
	Trading struct {
		Mode          string  `yaml:"mode" default:"sandbox" validate:"oneof=sandbox live"`
		ConfidenceMin int     `yaml:"confidence_min" default:"70" validate:"min=0,max=100"`
		TickSize      float64 `yaml:"tick_size" default:"0.05" validate:"gt=0"`
		Qty           struct {
			Default   int            `yaml:"default" default:"1" validate:"gt=0"`
			PerSymbol map[string]int `yaml:"per_symbol"`
		} `yaml:"qty"`
	} `yaml:"trading"`
	Scanner struct {
		IntervalSeconds     int      `yaml:"interval_seconds" default:"300" validate:"gt=0"`
		CycleTimeoutSeconds int      `yaml:"cycle_timeout_seconds" default:"90" validate:"gt=0"`
		Symbols             []string `yaml:"symbols"`
		MarketHours         struct {
			Enabled  bool   `yaml:"enabled"`
			Open     string `yaml:"open" default:"09:15"`
			Close    string `yaml:"close" default:"15:30"`
			Timezone string `yaml:"timezone" default:"Asia/Kolkata"`
		} `yaml:"market_hours"`
	} `yaml:"scanner"`
	Data struct {
		Exchange          string `yaml:"exchange" default:"NSE"`
		Timeframe         string `yaml:"timeframe" default:"5minute"`
		CandleCount       int    `yaml:"candle_count" default:"120" validate:"gt=0"`
		DropFormingCandle bool   `yaml:"drop_forming_candle" default:"true"`
		CacheTTLSeconds   int    `yaml:"cache_ttl_seconds" default:"60" validate:"gte=0"`
		RateLimit         struct {
			PerSecond float64 `yaml:"per_second" default:"3" validate:"gt=0"`
			Burst     int     `yaml:"burst" default:"3" validate:"gt=0"`
		} `yaml:"rate_limit"`
	} `yaml:"data"`
	Indicators struct {
		MAWindows    []int `yaml:"ma_windows" default:"[10,20,60]"`
		RSIPeriod    int   `yaml:"rsi_period" default:"14" validate:"gt=1"`
		MACDFast     int   `yaml:"macd_fast" default:"12" validate:"gt=0"`
		MACDSlow     int   `yaml:"macd_slow" default:"26" validate:"gt=0"`
		MACDSignal   int   `yaml:"macd_signal" default:"9" validate:"gt=0"`
		ATRPeriod    int   `yaml:"atr_period" default:"14" validate:"gt=1"`
		VolumeWindow int   `yaml:"volume_window" default:"20" validate:"gt=0"`
	} `yaml:"indicators"`
	Payload struct {
		RecentWindow     int `yaml:"recent_window" default:"5" validate:"gt=0"`
		KeyLevelLookback int `yaml:"key_level_lookback" default:"30" validate:"gt=0"`
		Thresholds       struct {
			HighVolumeRatio float64 `yaml:"high_volume_ratio" default:"1.8" validate:"gt=0"`
			WickBodyMult    float64 `yaml:"wick_body_mult" default:"2.0" validate:"gt=0"`
			WideRangeATR    float64 `yaml:"wide_range_atr" default:"1.5" validate:"gt=0"`
		} `yaml:"thresholds"`
	} `yaml:"payload"`
	LLM struct {
		Provider       string  `yaml:"provider" default:"deepseek" validate:"oneof=deepseek noop"`
		Model          string  `yaml:"model" default:"deepseek-chat"`
		BaseURL        string  `yaml:"base_url" default:"https://api.deepseek.com"`
		Temperature    float32 `yaml:"temperature" default:"0.2" validate:"gte=0,lte=2"`
		MaxTokens      int     `yaml:"max_tokens" default:"1200" validate:"gt=0"`
		TimeoutSeconds int     `yaml:"timeout_seconds" default:"60" validate:"gt=0"`
	} `yaml:"llm"`
	Telegram struct {
		Enabled     bool `yaml:"enabled"`
		PollSeconds int  `yaml:"poll_seconds" default:"2" validate:"gt=0"`
	} `yaml:"telegram"`
	News struct {
		Enabled         bool `yaml:"enabled"`
		MaxHeadlines    int  `yaml:"max_headlines" default:"5" validate:"gt=0"`
		CacheTTLMinutes int  `yaml:"cache_ttl_minutes" default:"15" validate:"gt=0"`
	} `yaml:"news"`
	TradeLog struct {
		Dir               string `yaml:"dir" default:"tradelogs"`
		Timezone          string `yaml:"timezone" default:"Asia/Kolkata"`
		CompressAfterDays int    `yaml:"compress_after_days" default:"7" validate:"gte=0"`
	} `yaml:"trade_log"`
}

// QtyFor returns the order quantity for a symbol, falling back to the default.
func (c *Config) QtyFor(symbol string) int {
	if q, ok := c.Trading.Qty.PerSymbol[symbol]; ok && q > 0 {
		return q
	}
	return c.Trading.Qty.Default
}

// MinSeriesLen returns the shortest candle series the pipeline can analyze:
// the longest indicator lookback must be fully warmed on the final row.
func (c *Config) MinSeriesLen() int {
	min := c.Payload.KeyLevelLookback
	for _, w := range c.Indicators.MAWindows {
		if w > min {
			min = w
		}
	}
	if s := c.Indicators.MACDSlow + c.Indicators.MACDSignal; s > min {
		min = s
	}
	return min
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config field validation failed: %w", err)
	}
	if len(c.Indicators.MAWindows) != 3 {
		return fmt.Errorf("indicators.ma_windows must list exactly 3 windows, got %d", len(c.Indicators.MAWindows))
	}
	for i, w := range c.Indicators.MAWindows {
		if w <= 0 {
			return fmt.Errorf("indicators.ma_windows[%d] must be positive, got %d", i, w)
		}
		if i > 0 && w <= c.Indicators.MAWindows[i-1] {
			return errors.New("indicators.ma_windows must be strictly ascending")
		}
	}
	if c.Indicators.MACDSlow <= c.Indicators.MACDFast {
		return fmt.Errorf("indicators.macd_slow (%d) must exceed macd_fast (%d)", c.Indicators.MACDSlow, c.Indicators.MACDFast)
	}
	// One extra row covers the forming-candle drop.
	if need := c.MinSeriesLen() + 1; c.Data.CandleCount < need {
		return fmt.Errorf("data.candle_count %d too small for configured lookbacks, need at least %d", c.Data.CandleCount, need)
	}
	if len(c.Scanner.Symbols) == 0 && !c.Telegram.Enabled {
		return errors.New("scanner.symbols is empty and telegram is disabled: nothing to scan and no way to add symbols")
	}
	if c.Scanner.MarketHours.Enabled {
		if _, err := time.Parse("15:04", c.Scanner.MarketHours.Open); err != nil {
			return fmt.Errorf("scanner.market_hours.open %q: %w", c.Scanner.MarketHours.Open, err)
		}
		if _, err := time.Parse("15:04", c.Scanner.MarketHours.Close); err != nil {
			return fmt.Errorf("scanner.market_hours.close %q: %w", c.Scanner.MarketHours.Close, err)
		}
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("applying config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

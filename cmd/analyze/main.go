// Command analyze runs one analysis cycle for a single symbol and prints the
// reasoning text and the cycle result. Exits non-zero when the cycle fails.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"llm-scanner-bot/internal/broker/brokerobs"
	"llm-scanner-bot/internal/broker/zerodha"
	"llm-scanner-bot/internal/engine"
	"llm-scanner-bot/internal/engine/engineobs"
	"llm-scanner-bot/internal/interfaces"
	"llm-scanner-bot/internal/llm/deepseek"
	"llm-scanner-bot/internal/llm/llmobs"
	"llm-scanner-bot/internal/llm/noop"
	"llm-scanner-bot/internal/logger"
	"llm-scanner-bot/internal/marketdata"
	"llm-scanner-bot/internal/news"
	"llm-scanner-bot/internal/store"
	"llm-scanner-bot/internal/trace"
	"llm-scanner-bot/internal/types"

	"github.com/joho/godotenv"
)

func main() {
	symbol := flag.String("symbol", "", "symbol to analyze (required)")
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if *symbol == "" {
		fmt.Fprintln(os.Stderr, "usage: analyze -symbol SYMBOL [-config config.yaml]")
		os.Exit(2)
	}

	_ = godotenv.Load()
	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "init failed: %v\n", err)
		os.Exit(1)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	ctx := context.Background()
	cfg, err := store.LoadConfig(*configPath)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		finish(1)
	}

	z := zerodha.New(zerodha.Params{
		Mode:        types.Mode(cfg.Trading.Mode),
		APIKey:      os.Getenv("KITE_API_KEY"),
		AccessToken: os.Getenv("KITE_ACCESS_TOKEN"),
		Exchange:    cfg.Data.Exchange,
		Interval:    cfg.Data.Timeframe,
	})
	source := marketdata.NewService(brokerobs.WrapFetcher(z), marketdata.Config{
		CacheTTL:  time.Duration(cfg.Data.CacheTTLSeconds) * time.Second,
		PerSecond: cfg.Data.RateLimit.PerSecond,
		Burst:     cfg.Data.RateLimit.Burst,
	})

	var reasoner interfaces.Reasoner
	if cfg.LLM.Provider == "deepseek" {
		reasoner = deepseek.New(cfg, os.Getenv("DEEPSEEK_API_KEY"))
	} else {
		reasoner = noop.New()
	}

	var headlines *news.Service
	if cfg.News.Enabled {
		headlines = news.NewService(cfg)
	}

	// Ad-hoc runs do not write the audit trail.
	eng := engineobs.Wrap(engine.New(cfg, source, llmobs.Wrap(reasoner), brokerobs.WrapSink(z), nil, headlines))

	cycleCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Scanner.CycleTimeoutSeconds)*time.Second)
	defer cancel()

	res, stepErr := eng.Step(cycleCtx, *symbol)
	if res != nil {
		if res.Analysis != "" {
			fmt.Println(res.Analysis)
			fmt.Println()
		}
		b, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(b))
	}

	if stepErr != nil || res == nil || res.State == types.StateCycleFailed {
		finish(1)
	}
	finish(0)
}

func finish(code int) {
	logger.Sync()
	_ = trace.Shutdown(context.Background())
	os.Exit(code)
}

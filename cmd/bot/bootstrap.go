package main

import (
	"context"
	"fmt"
	"os"
	"strings"
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
	"llm-scanner-bot/internal/notify"
	"llm-scanner-bot/internal/store"
	"llm-scanner-bot/internal/trace"
	"llm-scanner-bot/internal/tradelog"
	"llm-scanner-bot/internal/types"

	"github.com/joho/godotenv"
)

// initializeSystem loads the environment and initializes logger and tracer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	// Initialize logger
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Initialize tracer
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context) (*store.Config, error) {
	cfg, err := store.LoadConfig(configPath())
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

func configPath() string {
	if v := os.Getenv("SCANNER_CONFIG"); v != "" {
		return v
	}
	return "config.yaml"
}

// compressOldLogs gzips trade log files past the configured retention
func compressOldLogs(ctx context.Context, cfg *store.Config, trades *tradelog.Log) {
	if err := trades.CompressOlder(cfg.TradeLog.CompressAfterDays); err != nil {
		logger.Warn(ctx, "Failed to compress old trade logs", "error", err)
	}
}

// initializeBroker builds the zerodha client and returns the cached,
// rate-limited candle source plus the order sink, both with observability
func initializeBroker(ctx context.Context, cfg *store.Config) (interfaces.CandleSource, interfaces.OrderSink) {
	z := zerodha.New(zerodha.Params{
		Mode:        types.Mode(cfg.Trading.Mode),
		APIKey:      os.Getenv("KITE_API_KEY"),
		AccessToken: os.Getenv("KITE_ACCESS_TOKEN"),
		Exchange:    cfg.Data.Exchange,
		Interval:    cfg.Data.Timeframe,
	})

	if cfg.Trading.Mode == "sandbox" {
		logger.Warn(ctx, "Running in sandbox mode - orders will be simulated")
	}

	source := marketdata.NewService(brokerobs.WrapFetcher(z), marketdata.Config{
		CacheTTL:  time.Duration(cfg.Data.CacheTTLSeconds) * time.Second,
		PerSecond: cfg.Data.RateLimit.PerSecond,
		Burst:     cfg.Data.RateLimit.Burst,
	})

	return source, brokerobs.WrapSink(z)
}

// initializeReasoner returns the configured reasoner with observability
func initializeReasoner(ctx context.Context, cfg *store.Config) interfaces.Reasoner {
	var reasoner interfaces.Reasoner

	switch cfg.LLM.Provider {
	case "deepseek":
		reasoner = deepseek.New(cfg, os.Getenv("DEEPSEEK_API_KEY"))
	default:
		reasoner = noop.New()
		logger.Warn(ctx, "No reasoning provider configured - using noop (always WAIT)")
	}

	// Wrap with observability middleware
	return llmobs.Wrap(reasoner)
}

// initializeEngine builds the cycle engine with observability
func initializeEngine(cfg *store.Config, source interfaces.CandleSource, reasoner interfaces.Reasoner,
	sink interfaces.OrderSink, trades *tradelog.Log, headlines *news.Service) interfaces.Engine {
	eng := engine.New(cfg, source, reasoner, sink, trades, headlines)

	// Wrap with observability middleware
	return engineobs.Wrap(eng)
}

// initializeNews returns the headline service, or nil when disabled
func initializeNews(cfg *store.Config) *news.Service {
	if !cfg.News.Enabled {
		return nil
	}
	return news.NewService(cfg)
}

// initializeNotifier returns the notifier and, when Telegram is configured,
// the concrete client running the command poll loop
func initializeNotifier(ctx context.Context, cfg *store.Config) (interfaces.Notifier, *notify.Telegram) {
	if !cfg.Telegram.Enabled {
		return notify.Noop{}, nil
	}

	token := os.Getenv("TG_BOT_TOKEN")
	chatIDs := splitChatIDs(os.Getenv("TG_CHAT_IDS"))
	if token == "" || len(chatIDs) == 0 {
		logger.Warn(ctx, "Telegram enabled but TG_BOT_TOKEN or TG_CHAT_IDS missing - notifications disabled")
		return notify.Noop{}, nil
	}

	tg := notify.NewTelegram(token, chatIDs, time.Duration(cfg.Telegram.PollSeconds)*time.Second)
	return tg, tg
}

func splitChatIDs(csv string) []string {
	out := []string{}
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"llm-scanner-bot/internal/interfaces"
	"llm-scanner-bot/internal/logger"
	"llm-scanner-bot/internal/notify"
	"llm-scanner-bot/internal/store"
	"llm-scanner-bot/internal/trace"
	"llm-scanner-bot/internal/tradelog"
	"llm-scanner-bot/internal/watch"
)

func main() {
	if err := initializeSystem(); err != nil {
		fmt.Fprintf(os.Stderr, "init failed: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig(ctx)
	if err != nil {
		shutdown()
		os.Exit(1)
	}

	trades := tradelog.New(cfg)
	compressOldLogs(ctx, cfg, trades)

	source, sink := initializeBroker(ctx, cfg)
	reasoner := initializeReasoner(ctx, cfg)
	headlines := initializeNews(cfg)
	eng := initializeEngine(cfg, source, reasoner, sink, trades, headlines)

	list := watch.NewList(cfg.Scanner.Symbols)
	notifier, tg := initializeNotifier(ctx, cfg)

	scanNow := make(chan struct{}, 1)
	if tg != nil {
		go tg.Poll(ctx, commandHandler(list, scanNow))
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	tick := time.NewTicker(time.Duration(cfg.Scanner.IntervalSeconds) * time.Second)
	defer tick.Stop()

	logger.Info(ctx, "Scanner started",
		"symbols", list.Snapshot(),
		"interval_seconds", cfg.Scanner.IntervalSeconds,
		"mode", cfg.Trading.Mode,
		"provider", cfg.LLM.Provider,
	)
	if err := notifier.Notify(ctx, fmt.Sprintf("Scanner started: %d symbols, %s mode", list.Len(), cfg.Trading.Mode)); err != nil {
		logger.Warn(ctx, "Startup notification failed", "error", err)
	}

	runScan(ctx, cfg, eng, list, notifier)
	for {
		select {
		case <-tick.C:
			runScan(ctx, cfg, eng, list, notifier)
		case <-scanNow:
			runScan(ctx, cfg, eng, list, notifier)
		case <-sigc:
			logger.Info(ctx, "Shutting down")
			cancel()
			shutdown()
			return
		case <-ctx.Done():
			shutdown()
			return
		}
	}
}

// runScan walks the watch list once, one cycle per symbol.
func runScan(ctx context.Context, cfg *store.Config, eng interfaces.Engine, list *watch.List, notifier interfaces.Notifier) {
	if !marketOpen(cfg, time.Now()) {
		logger.Debug(ctx, "Market closed - skipping scan")
		return
	}
	symbols := list.Snapshot()
	if len(symbols) == 0 {
		logger.Debug(ctx, "Watch list empty - skipping scan")
		return
	}

	timeout := time.Duration(cfg.Scanner.CycleTimeoutSeconds) * time.Second
	for _, symbol := range symbols {
		cycleCtx, cancelCycle := context.WithTimeout(ctx, timeout)
		res, err := eng.Step(cycleCtx, symbol)
		cancelCycle()

		if ctx.Err() != nil {
			return
		}
		if err != nil && res == nil {
			continue
		}
		if err := notifier.Notify(ctx, notify.FormatResult(res)); err != nil {
			logger.Warn(ctx, "Notification failed", "symbol", symbol, "error", err)
		}
	}
}

// marketOpen reports whether now falls inside the configured trading window.
// Disabled market hours mean the scanner runs around the clock.
func marketOpen(cfg *store.Config, now time.Time) bool {
	mh := cfg.Scanner.MarketHours
	if !mh.Enabled {
		return true
	}

	loc, err := time.LoadLocation(mh.Timezone)
	if err != nil {
		loc = time.FixedZone("IST", 19800)
	}
	t := now.In(loc)
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}

	openAt, err1 := time.Parse("15:04", mh.Open)
	closeAt, err2 := time.Parse("15:04", mh.Close)
	if err1 != nil || err2 != nil {
		return true
	}
	mins := t.Hour()*60 + t.Minute()
	return mins >= openAt.Hour()*60+openAt.Minute() && mins <= closeAt.Hour()*60+closeAt.Minute()
}

// commandHandler dispatches Telegram watch-list commands.
func commandHandler(list *watch.List, scanNow chan<- struct{}) notify.Handler {
	return func(ctx context.Context, cmd notify.Command) string {
		switch cmd.Name {
		case "track":
			if len(cmd.Args) == 0 {
				return "Usage: /track SYMBOL [SYMBOL...]"
			}
			list.Replace(cmd.Args)
			triggerScan(scanNow)
			return fmt.Sprintf("Tracking %d symbols: %s", list.Len(), strings.Join(list.Snapshot(), ", "))
		case "clear":
			list.Clear()
			return "Watch list cleared"
		case "list":
			symbols := list.Snapshot()
			if len(symbols) == 0 {
				return "Watch list is empty"
			}
			return "Tracking: " + strings.Join(symbols, ", ")
		default:
			return ""
		}
	}
}

func triggerScan(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func shutdown() {
	logger.Sync()
	if err := trace.Shutdown(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "trace shutdown: %v\n", err)
	}
}

package tradelog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"llm-scanner-bot/internal/store"
	"llm-scanner-bot/internal/types"
)

func testLog(t *testing.T) *Log {
	t.Helper()
	cfg := &store.Config{}
	cfg.TradeLog.Dir = t.TempDir()
	cfg.TradeLog.Timezone = "Asia/Kolkata"
	return New(cfg)
}

func readLines(t *testing.T, l *Log) []string {
	t.Helper()
	b, err := os.ReadFile(l.dailyFilepath(time.Now()))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(b)), "\n")
}

func TestRecordOrder(t *testing.T) {
	l := testLog(t)

	res := &types.CycleResult{
		Symbol: "TCS",
		State:  types.StateExecuting,
		Price:  3501.25,
		Decision: types.Decision{
			Action: "BUY", Confidence: 82, Entry: 3502, StopLoss: 3480, Reason: "breakout",
		},
		Intent: &types.OrderIntent{
			Symbol: "TCS", Action: "BUY", Qty: 2, Entry: 3502, StopLoss: 3480, Mode: types.ModeSandbox,
		},
		OrderID: "SIM-1",
	}
	if err := l.Record(res); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	lines := readLines(t, l)
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(lines))
	}

	var e Entry
	if err := json.Unmarshal([]byte(lines[0]), &e); err != nil {
		t.Fatalf("Line is not valid JSON: %v", err)
	}
	if e.Type != "ORDER" {
		t.Errorf("Expected type ORDER, got %s", e.Type)
	}
	if e.OrderID != "SIM-1" {
		t.Errorf("Expected order ID SIM-1, got %s", e.OrderID)
	}
	if e.Qty != 2 || e.EntryPrice != 3502 || e.StopLoss != 3480 {
		t.Errorf("Unexpected order fields: %+v", e)
	}
	if e.Mode != "sandbox" {
		t.Errorf("Expected mode sandbox, got %s", e.Mode)
	}
}

func TestRecordSuppressed(t *testing.T) {
	l := testLog(t)

	res := &types.CycleResult{
		Symbol:       "INFY",
		State:        types.StateSuppressed,
		Decision:     types.Decision{Action: "BUY", Confidence: 55},
		SuppressedBy: "below_confidence",
	}
	if err := l.Record(res); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	var e Entry
	if err := json.Unmarshal([]byte(readLines(t, l)[0]), &e); err != nil {
		t.Fatalf("Line is not valid JSON: %v", err)
	}
	if e.Type != "SUPPRESSED" {
		t.Errorf("Expected type SUPPRESSED, got %s", e.Type)
	}
	if e.Suppressed != "below_confidence" {
		t.Errorf("Expected suppressed_by below_confidence, got %s", e.Suppressed)
	}
	if e.OrderID != "" {
		t.Errorf("Expected no order ID, got %s", e.OrderID)
	}
}

func TestRecordFailedCycleSkipped(t *testing.T) {
	l := testLog(t)

	res := &types.CycleResult{
		Symbol:   "TCS",
		State:    types.StateCycleFailed,
		FailedAt: types.StateParsing,
	}
	if err := l.Record(res); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if _, err := os.Stat(l.dailyFilepath(time.Now())); !os.IsNotExist(err) {
		t.Error("Expected no log file for a failed cycle")
	}
}

func TestRecordAppends(t *testing.T) {
	l := testLog(t)

	for i := 0; i < 3; i++ {
		res := &types.CycleResult{
			Symbol:       "TCS",
			State:        types.StateSuppressed,
			Decision:     types.Decision{Action: "WAIT", Confidence: 10},
			SuppressedBy: "wait_action",
		}
		if err := l.Record(res); err != nil {
			t.Fatalf("Record %d failed: %v", i, err)
		}
	}

	if lines := readLines(t, l); len(lines) != 3 {
		t.Errorf("Expected 3 lines, got %d", len(lines))
	}
}

func TestCompressOlder(t *testing.T) {
	l := testLog(t)

	old := filepath.Join(l.dir, "2020-01-01.ndjson")
	if err := os.WriteFile(old, []byte("{\"type\":\"ORDER\"}\n"), 0o644); err != nil {
		t.Fatalf("Failed to seed old file: %v", err)
	}
	past := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatalf("Failed to backdate file: %v", err)
	}

	if err := l.CompressOlder(7); err != nil {
		t.Fatalf("CompressOlder failed: %v", err)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("Expected original file to be removed")
	}
	if _, err := os.Stat(old + ".gz"); err != nil {
		t.Errorf("Expected gzip file to exist: %v", err)
	}
}

func TestCompressOlderZeroRetentionNoop(t *testing.T) {
	l := testLog(t)

	f := filepath.Join(l.dir, "2020-01-01.ndjson")
	if err := os.WriteFile(f, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("Failed to seed file: %v", err)
	}
	past := time.Now().AddDate(0, 0, -30)
	_ = os.Chtimes(f, past, past)

	if err := l.CompressOlder(0); err != nil {
		t.Fatalf("CompressOlder failed: %v", err)
	}
	if _, err := os.Stat(f); err != nil {
		t.Errorf("Expected file untouched with zero retention: %v", err)
	}
}

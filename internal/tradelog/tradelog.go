// Package tradelog appends completed cycles to daily NDJSON audit files.
// The files are write-only: nothing in the system reads them back.
package tradelog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"llm-scanner-bot/internal/store"
	"llm-scanner-bot/internal/types"
)

type Entry struct {
	Time       string  `json:"time"`
	Type       string  `json:"type"`
	Symbol     string  `json:"symbol"`
	Action     string  `json:"action"`
	Confidence int     `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
	Price      float64 `json:"price,omitempty"`
	EntryPrice float64 `json:"entry,omitempty"`
	StopLoss   float64 `json:"stop_loss,omitempty"`
	Qty        int     `json:"qty,omitempty"`
	Mode       string  `json:"mode,omitempty"`
	OrderID    string  `json:"order_id,omitempty"`
	Suppressed string  `json:"suppressed_by,omitempty"`
}

type Log struct {
	mu  sync.Mutex
	dir string
	loc *time.Location
}

func New(cfg *store.Config) *Log {
	loc, err := time.LoadLocation(cfg.TradeLog.Timezone)
	if err != nil {
		loc = time.FixedZone("IST", 19800)
	}
	return &Log{dir: cfg.TradeLog.Dir, loc: loc}
}

func (l *Log) dailyFilepath(t time.Time) string {
	d := t.In(l.loc).Format("2006-01-02")
	return filepath.Join(l.dir, d+".ndjson")
}

// Record appends one line for a completed cycle. Failed cycles are not
// recorded; they live in the structured logs only.
func (l *Log) Record(res *types.CycleResult) error {
	e := Entry{
		Symbol:     res.Symbol,
		Action:     res.Decision.Action,
		Confidence: res.Decision.Confidence,
		Reason:     res.Decision.Reason,
		Price:      res.Price,
	}
	switch res.State {
	case types.StateExecuting:
		e.Type = "ORDER"
		e.EntryPrice = res.Intent.Entry
		e.StopLoss = res.Intent.StopLoss
		e.Qty = res.Intent.Qty
		e.Mode = string(res.Intent.Mode)
		e.OrderID = res.OrderID
	case types.StateSuppressed:
		e.Type = "SUPPRESSED"
		e.Suppressed = res.SuppressedBy
	default:
		return nil
	}
	return l.append(e)
}

func (l *Log) append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now().In(l.loc)
	e.Time = now.Format("2006-01-02 15:04:05")
	p := l.dailyFilepath(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, _ := json.Marshal(e)
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips daily files whose mtime is older than retentionDays.
func (l *Log) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	return filepath.WalkDir(l.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(p) != ".ndjson" {
			return nil
		}
		info, er := os.Stat(p)
		if er != nil {
			return nil
		}
		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		if info.ModTime().Before(cutoff) {
			gz := p + ".gz"
			// if already gz exists, remove original
			if _, e2 := os.Stat(gz); e2 == nil {
				_ = os.Remove(p)
				return nil
			}

			in, e3 := os.Open(p)
			if e3 != nil {
				return nil
			}
			defer in.Close()

			out, e4 := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if e4 != nil {
				return nil
			}
			gw := gzip.NewWriter(out)
			if _, e5 := io.Copy(gw, in); e5 == nil {
				_ = gw.Close()
				_ = out.Close()
				_ = os.Remove(p)
			} else {
				_ = gw.Close()
				_ = out.Close()
			}
		}
		return nil
	})
}

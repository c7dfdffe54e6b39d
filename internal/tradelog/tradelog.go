package tradelog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var mu sync.Mutex

// Entry is one executed order and the counter change it caused.
type Entry struct {
	Time        string          `json:"time"`
	EventID     string          `json:"event_id,omitempty"`
	Symbol      string          `json:"symbol"`
	Side        string          `json:"side"`
	OrderID     string          `json:"order_id"`
	Status      string          `json:"status"`
	ExecutedQty decimal.Decimal `json:"executed_qty"`
	Commission  decimal.Decimal `json:"commission"`
	Delta       decimal.Decimal `json:"delta"`
	Holding     decimal.Decimal `json:"holding"`
	Extra       map[string]any  `json:"extra,omitempty"`
}

// DecisionEntry is one strategy decision, posted or skipped.
type DecisionEntry struct {
	Time      string          `json:"time"`
	EventID   string          `json:"event_id,omitempty"`
	Symbol    string          `json:"symbol"`
	Sentiment string          `json:"sentiment"`
	Action    string          `json:"action"`
	Reason    string          `json:"reason,omitempty"`
	Holding   decimal.Decimal `json:"holding"`
	Extra     map[string]any  `json:"extra,omitempty"`
}

func logDir() string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

// RetentionDays reads TRADER_LOG_RETENTION_DAYS, 0 when unset or invalid.
func RetentionDays() int {
	n, err := strconv.Atoi(os.Getenv("TRADER_LOG_RETENTION_DAYS"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// DailyPath is the trade journal file of the UTC day containing t.
func DailyPath(t time.Time) string {
	return filepath.Join(logDir(), t.UTC().Format("2006-01-02")+".txt")
}

func decisionsFilepath(t time.Time) string {
	return filepath.Join(logDir(), "decisions", t.Format("2006-01-02")+".txt")
}

func Append(e Entry) error {
	now := time.Now().UTC()
	e.Time = now.Format("2006-01-02 15:04:05.000")
	return appendLine(DailyPath(now), e)
}

func AppendDecision(e DecisionEntry) error {
	now := time.Now().UTC()
	e.Time = now.Format("2006-01-02 15:04:05.000")
	return appendLine(decisionsFilepath(now), e)
}

func appendLine(p string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips journal files not modified for retentionDays.
func CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	root := logDir()
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		// already compressed by an earlier run
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := compressFile(p, gz); err == nil {
			_ = os.Remove(p)
		}
		return nil
	})
}

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := gw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

package eod

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/tradelog"
	"sentiment-trader/internal/types"
)

type aggRow struct {
	Symbol      string
	BuyOrders   int
	BuyQty      decimal.Decimal
	SellOrders  int
	SellQty     decimal.Decimal
	Commission  decimal.Decimal
	NetDelta    decimal.Decimal
	LastHolding decimal.Decimal
}

type summarizer struct{}

var _ interfaces.EodSummarizer = (*summarizer)(nil)

func NewSummarizer() interfaces.EodSummarizer {
	return &summarizer{}
}

func logDir() string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func CSVPath(day time.Time) string {
	return filepath.Join(logDir(), "eod", day.UTC().Format("2006-01-02")+".csv")
}

// SummarizeDay aggregates the journal of day (UTC) per symbol.
func (s *summarizer) SummarizeDay(ctx context.Context, day time.Time) (string, error) {
	f, err := os.Open(tradelog.DailyPath(day))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	aggs := map[string]*aggRow{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e tradelog.Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		row := aggs[e.Symbol]
		if row == nil {
			row = &aggRow{Symbol: e.Symbol}
			aggs[e.Symbol] = row
		}
		switch types.OrderSide(e.Side) {
		case types.SideBuy:
			row.BuyOrders++
			row.BuyQty = row.BuyQty.Add(e.ExecutedQty)
		case types.SideSell:
			row.SellOrders++
			row.SellQty = row.SellQty.Add(e.ExecutedQty)
		}
		row.Commission = row.Commission.Add(e.Commission)
		row.NetDelta = row.NetDelta.Add(e.Delta)
		row.LastHolding = e.Holding
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	if len(aggs) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outPath := CSVPath(day)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	headers := []string{"symbol", "buy_orders", "buy_qty", "sell_orders", "sell_qty", "commission", "net_delta", "last_holding"}
	if err := w.Write(headers); err != nil {
		return "", err
	}
	for _, k := range keys {
		r := aggs[k]
		rec := []string{
			r.Symbol,
			strconv.Itoa(r.BuyOrders), r.BuyQty.String(),
			strconv.Itoa(r.SellOrders), r.SellQty.String(),
			r.Commission.String(), r.NetDelta.String(), r.LastHolding.String(),
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return outPath, nil
}

package exchange

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sentiment-trader/internal/types"
)

// StepPrecision returns the number of decimal places implied by a step size.
// "0.001" gives 3, "1" gives 0 and "10" gives -1.
func StepPrecision(step decimal.Decimal) int32 {
	s := step.Abs().String()
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return int32(len(s) - i - 1)
	}
	if s == "0" {
		return 0
	}
	trimmed := strings.TrimRight(s, "0")
	return -int32(len(s) - len(trimmed))
}

// CeilToPrecision rounds q up to precision decimal places.
func CeilToPrecision(q decimal.Decimal, precision int32) decimal.Decimal {
	return q.Shift(precision).Ceil().Shift(-precision)
}

// MinTradableQuantity is the smallest quantity whose value at price meets
// the filter's minimum notional, rounded up to the step precision and
// clamped into [MinQty, MaxQty].
func MinTradableQuantity(filter types.TradingRuleFilter, price decimal.Decimal) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("ticker price must be positive, got %s", price)
	}

	marketMin := filter.MinNotional.Div(price)
	stepped := CeilToPrecision(marketMin, StepPrecision(filter.StepSize))

	q := decimal.Max(filter.MinQty, stepped)
	if filter.MaxQty.IsPositive() {
		q = decimal.Min(filter.MaxQty, q)
	}
	return q, nil
}

// FilterFetcher loads the trading rules of a symbol from the exchange.
type FilterFetcher interface {
	TradingRuleFilter(ctx context.Context, symbol string) (types.TradingRuleFilter, error)
}

type cachedFilter struct {
	filter    types.TradingRuleFilter
	fetchedAt time.Time
}

// FilterResolver caches trading rule filters per symbol. A zero TTL keeps
// them for the process lifetime.
type FilterResolver struct {
	fetcher FilterFetcher
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	cache map[string]cachedFilter
}

func NewFilterResolver(fetcher FilterFetcher, ttl time.Duration) *FilterResolver {
	return &FilterResolver{
		fetcher: fetcher,
		ttl:     ttl,
		now:     time.Now,
		cache:   make(map[string]cachedFilter),
	}
}

func (r *FilterResolver) Filter(ctx context.Context, symbol string) (types.TradingRuleFilter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.cache[symbol]; ok {
		if r.ttl <= 0 || r.now().Sub(c.fetchedAt) < r.ttl {
			return c.filter, nil
		}
	}

	f, err := r.fetcher.TradingRuleFilter(ctx, symbol)
	if err != nil {
		return types.TradingRuleFilter{}, err
	}
	r.cache[symbol] = cachedFilter{filter: f, fetchedAt: r.now()}
	return f, nil
}

// MinTradableQuantity resolves the filter of symbol and computes the minimum
// tradable quantity at price.
func (r *FilterResolver) MinTradableQuantity(ctx context.Context, symbol string, price decimal.Decimal) (decimal.Decimal, error) {
	f, err := r.Filter(ctx, symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("resolve filter %s: %w", symbol, err)
	}
	return MinTradableQuantity(f, price)
}

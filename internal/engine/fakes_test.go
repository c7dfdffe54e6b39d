package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"sentiment-trader/internal/holding"
	"sentiment-trader/internal/types"
)

type fakeVenue struct {
	mu         sync.Mutex
	commission decimal.Decimal
	err        error
	price      decimal.Decimal
	priceErr   error
	orders     []types.OrderRequest
}

func (v *fakeVenue) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.orders = append(v.orders, req)
	if v.err != nil {
		return types.OrderResult{}, v.err
	}
	return types.OrderResult{
		OrderID:          "1",
		Symbol:           req.Symbol,
		Side:             req.Side,
		Status:           "FILLED",
		ExecutedQuantity: req.Quantity,
		Fills: []types.Fill{{
			Price:           v.price,
			Quantity:        req.Quantity,
			Commission:      v.commission,
			CommissionAsset: "BTC",
		}},
	}, nil
}

func (v *fakeVenue) TickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return v.price, v.priceErr
}

func (v *fakeVenue) TradingRuleFilter(ctx context.Context, symbol string) (types.TradingRuleFilter, error) {
	return types.TradingRuleFilter{
		Symbol:      symbol,
		StepSize:    decimal.RequireFromString("0.001"),
		MinQty:      decimal.RequireFromString("0.001"),
		MaxQty:      decimal.RequireFromString("100000"),
		MinNotional: decimal.RequireFromString("10"),
	}, nil
}

func (v *fakeVenue) orderCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.orders)
}

var errDown = errors.New("connection refused")

// flakyStore fails the next `failures` calls, then behaves like a memory store.
type flakyStore struct {
	*holding.MemoryStore
	mu       sync.Mutex
	failures int
	writes   int
}

func newFlakyStore(failures int) *flakyStore {
	return &flakyStore{MemoryStore: holding.NewMemoryStore(), failures: failures}
}

func (s *flakyStore) fail(op, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return &holding.StoreError{Op: op, Key: key, Err: errDown}
	}
	return nil
}

func (s *flakyStore) Get(ctx context.Context, key string) (decimal.Decimal, error) {
	if err := s.fail("get", key); err != nil {
		return decimal.Zero, err
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *flakyStore) Increment(ctx context.Context, key string, qty decimal.Decimal) (decimal.Decimal, error) {
	if err := s.fail("increment", key); err != nil {
		return decimal.Zero, err
	}
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return s.MemoryStore.Increment(ctx, key, qty)
}

func (s *flakyStore) Decrement(ctx context.Context, key string, qty decimal.Decimal) (decimal.Decimal, error) {
	if err := s.fail("decrement", key); err != nil {
		return decimal.Zero, err
	}
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return s.MemoryStore.Decrement(ctx, key, qty)
}

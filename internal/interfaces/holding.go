package interfaces

import (
	"context"

	"github.com/shopspring/decimal"
)

// HoldingStore is the shared holding-quantity counter.
type HoldingStore interface {
	Get(ctx context.Context, key string) (decimal.Decimal, error)
	Increment(ctx context.Context, key string, qty decimal.Decimal) (decimal.Decimal, error)
	Decrement(ctx context.Context, key string, qty decimal.Decimal) (decimal.Decimal, error)
	// Update reads the counter, asks fn for a delta and applies it only if the
	// counter did not change in between, retrying on conflict.
	Update(ctx context.Context, key string, fn func(current decimal.Decimal) (decimal.Decimal, error)) (decimal.Decimal, error)
}

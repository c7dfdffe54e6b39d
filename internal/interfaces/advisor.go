package interfaces

import (
	"context"

	"github.com/shopspring/decimal"
)

// QuantityAdvisor computes the smallest order quantity the venue accepts for
// a symbol at a given price.
type QuantityAdvisor interface {
	MinTradableQuantity(ctx context.Context, symbol string, price decimal.Decimal) (decimal.Decimal, error)
}

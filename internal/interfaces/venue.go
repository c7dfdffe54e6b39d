package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"sentiment-trader/internal/types"
)

// Venue is the exchange the strategy trades on.
type Venue interface {
	PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error)
	TickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	TradingRuleFilter(ctx context.Context, symbol string) (types.TradingRuleFilter, error)
}

package exchange

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/types"
)

// PaperVenue fills market orders immediately at the live ticker price with
// no commission. Reads go to the wrapped venue.
type PaperVenue struct {
	market interfaces.Venue
}

var _ interfaces.Venue = (*PaperVenue)(nil)

func NewPaperVenue(market interfaces.Venue) *PaperVenue {
	return &PaperVenue{market: market}
}

func (p *PaperVenue) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	if req.Type != types.TypeMarket {
		return types.OrderResult{}, fmt.Errorf("paper venue only fills MARKET orders, got %s", req.Type)
	}

	price, err := p.market.TickerPrice(ctx, req.Symbol)
	if err != nil {
		logger.Warn(ctx, "Paper fill without ticker price", "symbol", req.Symbol, "error", err)
		price = decimal.Zero
	}

	res := types.OrderResult{
		OrderID:          "paper-" + uuid.NewString(),
		Symbol:           req.Symbol,
		Side:             req.Side,
		Status:           "FILLED",
		ExecutedQuantity: req.Quantity,
		Fills: []types.Fill{{
			Price:    price,
			Quantity: req.Quantity,
		}},
	}
	logger.Info(ctx, "DRY_RUN order filled", "order_id", res.OrderID, "symbol", req.Symbol, "side", req.Side, "qty", req.Quantity.String())
	return res, nil
}

func (p *PaperVenue) TickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return p.market.TickerPrice(ctx, symbol)
}

func (p *PaperVenue) TradingRuleFilter(ctx context.Context, symbol string) (types.TradingRuleFilter, error) {
	return p.market.TradingRuleFilter(ctx, symbol)
}

package exchangeobs

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/trace"
	"sentiment-trader/internal/types"
)

// observableVenue wraps a Venue with logging and tracing
type observableVenue struct {
	venue interfaces.Venue
}

var _ interfaces.Venue = (*observableVenue)(nil)

func Wrap(venue interfaces.Venue) interfaces.Venue {
	return &observableVenue{
		venue: venue,
	}
}

func (ov *observableVenue) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	ctx, span := trace.StartSpan(ctx, "venue.PlaceOrder")
	defer span.End()

	start := time.Now()
	logger.InfoSkip(ctx, 1, "Post order",
		"symbol", req.Symbol,
		"side", req.Side,
		"type", req.Type,
		"qty", req.Quantity.String(),
	)

	res, err := ov.venue.PlaceOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Order rejected", err,
			"symbol", req.Symbol,
			"side", req.Side,
			"qty", req.Quantity.String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return res, err
	}

	logger.InfoSkip(ctx, 1, "Order accepted",
		"order_id", res.OrderID,
		"symbol", res.Symbol,
		"status", res.Status,
		"executed_qty", res.ExecutedQuantity.String(),
		"commission", res.Commission().String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (ov *observableVenue) TickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	ctx, span := trace.StartSpan(ctx, "venue.TickerPrice")
	defer span.End()

	price, err := ov.venue.TickerPrice(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch ticker price", err, "symbol", symbol)
		return price, err
	}

	logger.DebugSkip(ctx, 1, "Ticker price fetched", "symbol", symbol, "price", price.String())
	return price, nil
}

func (ov *observableVenue) TradingRuleFilter(ctx context.Context, symbol string) (types.TradingRuleFilter, error) {
	ctx, span := trace.StartSpan(ctx, "venue.TradingRuleFilter")
	defer span.End()

	f, err := ov.venue.TradingRuleFilter(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch trading rule filter", err, "symbol", symbol)
		return f, err
	}

	logger.DebugSkip(ctx, 1, "Trading rule filter fetched",
		"symbol", symbol,
		"step_size", f.StepSize.String(),
		"min_qty", f.MinQty.String(),
		"max_qty", f.MaxQty.String(),
		"min_notional", f.MinNotional.String(),
	)
	return f, nil
}

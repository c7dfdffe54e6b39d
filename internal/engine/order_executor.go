package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"sentiment-trader/internal/backoff"
	"sentiment-trader/internal/exchange"
	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/tradelog"
	"sentiment-trader/internal/types"
)

const DefaultStoreRetries = 3

type ExecutorParams struct {
	Venue   interfaces.Venue
	Advisor interfaces.QuantityAdvisor
	Store   interfaces.HoldingStore
	Key     string
	Backoff backoff.Policy
	// StoreRetries bounds the retries of a counter write after a fill.
	StoreRetries int
}

// Executor carries out order decisions and keeps the holding counter in
// step with the fills.
type Executor struct {
	p ExecutorParams
}

func NewExecutor(p ExecutorParams) *Executor {
	if p.StoreRetries <= 0 {
		p.StoreRetries = DefaultStoreRetries
	}
	return &Executor{p: p}
}

func (x *Executor) Key() string { return x.p.Key }

// Execute applies a decision.
//
// Returns:
//   - the outcome, with the counter delta and resulting holding for a fill,
//     or the minimum quantity advice for an order below minimum notional
//   - *VenueError when the venue refused the order for any other reason
//   - *UnrecordedFillError when the fill could not be written to the counter
func (x *Executor) Execute(ctx context.Context, decision types.OrderDecision) (types.ExecutionOutcome, error) {
	return x.execute(ctx, decision, decimal.Zero)
}

// execute treats reserved as already applied to the counter, so only the
// difference to the real fill is written, and the reservation is released
// when nothing fills.
func (x *Executor) execute(ctx context.Context, decision types.OrderDecision, reserved decimal.Decimal) (types.ExecutionOutcome, error) {
	out := types.ExecutionOutcome{Decision: decision}

	if !decision.IsPost() {
		logger.Info(ctx, decision.SkipMessage())
		return out, nil
	}

	order := decision.Order
	res, err := x.p.Venue.PlaceOrder(ctx, order)
	if err != nil {
		if relErr := x.release(ctx, reserved); relErr != nil {
			return out, relErr
		}
		if exchange.IsNotionalRejection(err) {
			out.MinQuantityAdvice = x.advise(ctx, order.Symbol)
			return out, nil
		}
		return out, &VenueError{Order: order, Err: err}
	}

	side := res.Side
	if side == "" {
		side = order.Side
	}
	net := res.NetQuantity()
	delta := net
	if side == types.SideSell {
		delta = net.Neg()
	}

	holding, err := x.applyWithRetry(ctx, delta.Sub(reserved))
	if err != nil {
		return out, &UnrecordedFillError{Key: x.p.Key, Result: &res, Delta: delta.Sub(reserved), Err: err}
	}

	out.Result = &res
	out.Delta = delta
	out.Holding = holding

	logger.Trade(ctx, res.Symbol, string(side), res.ExecutedQuantity.String(), net.String(), res.OrderID,
		"commission", res.Commission().String(),
		"holding_key", x.p.Key,
		"holding", holding.String(),
	)
	if err := tradelog.Append(tradelog.Entry{
		Symbol:      res.Symbol,
		Side:        string(side),
		OrderID:     res.OrderID,
		Status:      res.Status,
		ExecutedQty: res.ExecutedQuantity,
		Commission:  res.Commission(),
		Delta:       delta,
		Holding:     holding,
	}); err != nil {
		logger.Warn(ctx, "Failed to append trade log", "error", err)
	}

	return out, nil
}

// advise computes the minimum tradable quantity. Failures only lose the advice.
func (x *Executor) advise(ctx context.Context, symbol string) *decimal.Decimal {
	if x.p.Advisor == nil {
		logger.Risk(ctx, symbol, "NOTIONAL_FILTER")
		return nil
	}

	price, err := x.p.Venue.TickerPrice(ctx, symbol)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch ticker price for minimum quantity", err, "symbol", symbol)
		return nil
	}
	q, err := x.p.Advisor.MinTradableQuantity(ctx, symbol, price)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to compute minimum quantity", err, "symbol", symbol)
		return nil
	}

	logger.Error(ctx, fmt.Sprintf("Filter failure: NOTIONAL, the minimum quantity should be %s.", q))
	logger.Risk(ctx, symbol, "NOTIONAL_FILTER", "ticker_price", price.String(), "min_quantity", q.String())
	return &q
}

func (x *Executor) release(ctx context.Context, reserved decimal.Decimal) error {
	if reserved.IsZero() {
		return nil
	}
	if _, err := x.applyWithRetry(ctx, reserved.Neg()); err != nil {
		return &UnrecordedFillError{Key: x.p.Key, Delta: reserved.Neg(), Err: err}
	}
	logger.Debug(ctx, "Released holding reservation", "key", x.p.Key, "reserved", reserved.String())
	return nil
}

func (x *Executor) applyWithRetry(ctx context.Context, delta decimal.Decimal) (decimal.Decimal, error) {
	for attempt := 0; ; attempt++ {
		holding, err := x.apply(ctx, delta)
		if err == nil {
			return holding, nil
		}
		if attempt >= x.p.StoreRetries {
			return decimal.Zero, err
		}
		logger.Warn(ctx, "Holding update failed, retrying",
			"key", x.p.Key,
			"delta", delta.String(),
			"attempt", attempt+1,
			"error", err,
		)
		// a fill has already happened, so shutdown does not cut retries short
		_ = x.p.Backoff.Sleep(context.WithoutCancel(ctx), attempt)
	}
}

func (x *Executor) apply(ctx context.Context, delta decimal.Decimal) (decimal.Decimal, error) {
	ctx = context.WithoutCancel(ctx)
	switch {
	case delta.IsPositive():
		return x.p.Store.Increment(ctx, x.p.Key, delta)
	case delta.IsNegative():
		return x.p.Store.Decrement(ctx, x.p.Key, delta.Neg())
	default:
		return x.p.Store.Get(ctx, x.p.Key)
	}
}

package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/types"
)

// Successive buys a fixed quantity on every bullish headline until the
// total limit is reached and sells the same quantity on every bearish
// headline while enough is held.
type Successive struct {
	spec types.TradingSpec
}

var _ interfaces.Decider = (*Successive)(nil)

func NewSuccessive(spec types.TradingSpec) *Successive {
	return &Successive{spec: spec}
}

func (s *Successive) Name() string {
	return "SuccessiveStrategy"
}

func (s *Successive) Spec() types.TradingSpec {
	return s.spec
}

func (s *Successive) Decide(sentiment types.Sentiment, holding decimal.Decimal) types.OrderDecision {
	qty := s.spec.OrderQuantity

	switch sentiment {
	case types.Bullish:
		if holding.Add(qty).GreaterThan(s.spec.TotalQuantityLimit) {
			return types.Skip(fmt.Sprintf("the total quantity limit (%s) is, or would be, exceeded", s.spec.TotalQuantityLimit))
		}
		return types.Post(s.order(types.SideBuy))
	case types.Bearish:
		if holding.Sub(qty).IsNegative() {
			return types.Skip(fmt.Sprintf("holding quantity %s is not enough to sell", holding))
		}
		return types.Post(s.order(types.SideSell))
	default:
		return types.Skip(fmt.Sprintf("sentiment is %s", sentiment))
	}
}

func (s *Successive) order(side types.OrderSide) types.OrderRequest {
	return types.OrderRequest{
		Symbol:   s.spec.Symbol,
		Side:     side,
		Type:     types.TypeMarket,
		Quantity: s.spec.OrderQuantity,
	}
}

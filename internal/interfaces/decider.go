package interfaces

import (
	"github.com/shopspring/decimal"

	"sentiment-trader/internal/types"
)

// Decider turns a sentiment and the current holding into an order decision.
// Implementations must be pure.
type Decider interface {
	Name() string
	Decide(sentiment types.Sentiment, holding decimal.Decimal) types.OrderDecision
}

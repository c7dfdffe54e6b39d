package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentiment is the market mood label produced for a headline.
type Sentiment string

const (
	Bullish Sentiment = "bullish"
	Bearish Sentiment = "bearish"
	Unknown Sentiment = "unknown"
)

// Valid reports whether s belongs to the closed label set.
func (s Sentiment) Valid() bool {
	return s == Bullish || s == Bearish || s == Unknown
}

// Actionable reports whether s can lead to an order.
func (s Sentiment) Actionable() bool {
	return s == Bullish || s == Bearish
}

// SentimentEvent is one scored headline. Times are millisecond epochs.
type SentimentEvent struct {
	EventID         string    `json:"event_id,omitempty"`
	EventTime       int64     `json:"event_time,omitempty"`
	CollectedSource string    `json:"collected_source"`
	CollectedTime   int64     `json:"collected_time"`
	PublishedTime   int64     `json:"published_time"`
	Headline        string    `json:"headline"`
	Sentiment       Sentiment `json:"sentiment"`
}

// Headline is an unscored line of the headlines file.
type Headline struct {
	Source        string
	CollectedTime int64
	PublishedTime int64
	Text          string
}

type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

type OrderType string

const (
	TypeMarket OrderType = "MARKET"
	TypeLimit  OrderType = "LIMIT"
)

// TradingSpec is the immutable per-process strategy configuration.
type TradingSpec struct {
	Strategy           string
	Symbol             string
	BaseAsset          string
	OrderQuantity      decimal.Decimal
	TotalQuantityLimit decimal.Decimal
}

type OrderRequest struct {
	Symbol   string          `json:"symbol"`
	Side     OrderSide       `json:"side"`
	Type     OrderType       `json:"type"`
	Quantity decimal.Decimal `json:"quantity"`
}

type Action int

const (
	ActionSkip Action = iota
	ActionPost
)

func (a Action) String() string {
	if a == ActionPost {
		return "POST"
	}
	return "SKIP"
}

// OrderDecision is either Skip{Reason} or Post{Order}.
type OrderDecision struct {
	Action Action       `json:"action"`
	Reason string       `json:"reason,omitempty"`
	Order  OrderRequest `json:"order,omitempty"`
}

func Skip(reason string) OrderDecision {
	return OrderDecision{Action: ActionSkip, Reason: reason}
}

func Post(order OrderRequest) OrderDecision {
	return OrderDecision{Action: ActionPost, Order: order}
}

func (d OrderDecision) IsPost() bool { return d.Action == ActionPost }

// SkipMessage renders the reason the way it is reported to operators.
func (d OrderDecision) SkipMessage() string {
	return fmt.Sprintf("Skip order, reason is '%s'.", d.Reason)
}

type Fill struct {
	Price           decimal.Decimal `json:"price"`
	Quantity        decimal.Decimal `json:"qty"`
	Commission      decimal.Decimal `json:"commission"`
	CommissionAsset string          `json:"commissionAsset"`
}

type OrderResult struct {
	OrderID          string          `json:"order_id"`
	Symbol           string          `json:"symbol"`
	Side             OrderSide       `json:"side"`
	Status           string          `json:"status"`
	ExecutedQuantity decimal.Decimal `json:"executed_qty"`
	Fills            []Fill          `json:"fills"`
}

// Commission sums the commission of every fill.
func (r OrderResult) Commission() decimal.Decimal {
	total := decimal.Zero
	for _, f := range r.Fills {
		total = total.Add(f.Commission)
	}
	return total
}

// NetQuantity is the executed quantity minus all commissions.
func (r OrderResult) NetQuantity() decimal.Decimal {
	return r.ExecutedQuantity.Sub(r.Commission())
}

// TradingRuleFilter holds the venue LOT_SIZE and NOTIONAL constraints of a symbol.
type TradingRuleFilter struct {
	Symbol      string
	StepSize    decimal.Decimal
	MinQty      decimal.Decimal
	MaxQty      decimal.Decimal
	MinNotional decimal.Decimal
}

// ExecutionOutcome reports what happened to one decision.
type ExecutionOutcome struct {
	Decision OrderDecision
	Result   *OrderResult
	// Delta is the signed change applied to the holding counter.
	Delta   decimal.Decimal
	Holding decimal.Decimal
	// MinQuantityAdvice is set when the venue rejected the order as below minimum notional.
	MinQuantityAdvice *decimal.Decimal
}

// StepResult is the per-event summary emitted by the processing loop.
type StepResult struct {
	EventID   string          `json:"event_id,omitempty"`
	Headline  string          `json:"headline"`
	Sentiment Sentiment       `json:"sentiment"`
	Decision  OrderDecision   `json:"decision"`
	Delta     decimal.Decimal `json:"delta"`
	// Holding is nil when the counter was not read, as for unknown sentiments.
	Holding *decimal.Decimal `json:"holding,omitempty"`
	Advice  *decimal.Decimal `json:"min_quantity_advice,omitempty"`
	Time    int64            `json:"time"`
}

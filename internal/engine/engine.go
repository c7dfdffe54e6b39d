package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/tradelog"
	"sentiment-trader/internal/types"
)

// Guard selects how the read-decide-execute sequence is protected against
// other processes writing the same counter.
type Guard string

const (
	// GuardNone reads the counter, decides and writes the fill afterwards.
	// Two processes sharing a counter can both pass the limit check.
	GuardNone Guard = "none"
	// GuardOptimistic reserves the order quantity with a compare-and-swap
	// before the order is sent.
	GuardOptimistic Guard = "optimistic"
)

var errNothingToReserve = errors.New("decision does not post an order")

type Params struct {
	Spec     types.TradingSpec
	Decider  interfaces.Decider
	Store    interfaces.HoldingStore
	Executor *Executor
	Guard    Guard
}

type Engine struct {
	p Params
}

var _ interfaces.Engine = (*Engine)(nil)

func New(p Params) *Engine {
	if p.Guard == "" {
		p.Guard = GuardNone
	}
	return &Engine{p: p}
}

// Process runs one sentiment event through the strategy and executes the
// resulting decision. The counter is read only for bullish and bearish
// events.
func (e *Engine) Process(ctx context.Context, event types.SentimentEvent) (*types.StepResult, error) {
	s := event.Sentiment
	res := &types.StepResult{
		EventID:   event.EventID,
		Headline:  event.Headline,
		Sentiment: s,
		Time:      time.Now().UnixMilli(),
	}

	if !s.Valid() {
		logger.Warn(ctx, fmt.Sprintf("Avoid placing unwanted order, reason is 'invalid sentiment %s'.", s))
	}

	var (
		decision types.OrderDecision
		outcome  types.ExecutionOutcome
		holding  *decimal.Decimal
		err      error
	)

	switch {
	case !s.Actionable():
		decision = e.p.Decider.Decide(s, decimal.Zero)
		e.logDecision(ctx, event, decision, nil)
		outcome, err = e.p.Executor.Execute(ctx, decision)
	case e.p.Guard == GuardOptimistic:
		var reserved decimal.Decimal
		decision, holding, reserved, err = e.reserve(ctx, s)
		if err != nil {
			return nil, err
		}
		e.logDecision(ctx, event, decision, holding)
		outcome, err = e.p.Executor.execute(ctx, decision, reserved)
	default:
		cur, gerr := e.p.Store.Get(ctx, e.p.Executor.Key())
		if gerr != nil {
			return nil, gerr
		}
		holding = &cur
		logger.Info(ctx, "Current holding", "key", e.p.Executor.Key(), "holding", cur.String())
		decision = e.p.Decider.Decide(s, cur)
		e.logDecision(ctx, event, decision, holding)
		outcome, err = e.p.Executor.Execute(ctx, decision)
	}

	res.Decision = decision
	res.Holding = holding
	res.Delta = outcome.Delta
	res.Advice = outcome.MinQuantityAdvice
	if outcome.Result != nil {
		h := outcome.Holding
		res.Holding = &h
	}
	return res, err
}

// reserve decides on the counter value read inside an optimistic update and
// writes the signed order quantity in the same transaction.
func (e *Engine) reserve(ctx context.Context, s types.Sentiment) (types.OrderDecision, *decimal.Decimal, decimal.Decimal, error) {
	var (
		decision types.OrderDecision
		seen     decimal.Decimal
		reserved decimal.Decimal
	)

	_, err := e.p.Store.Update(ctx, e.p.Executor.Key(), func(cur decimal.Decimal) (decimal.Decimal, error) {
		seen = cur
		decision = e.p.Decider.Decide(s, cur)
		if !decision.IsPost() {
			return decimal.Zero, errNothingToReserve
		}
		q := decision.Order.Quantity
		if decision.Order.Side == types.SideSell {
			q = q.Neg()
		}
		return q, nil
	})
	switch {
	case errors.Is(err, errNothingToReserve):
	case err != nil:
		return decision, nil, decimal.Zero, err
	default:
		reserved = decision.Order.Quantity
		if decision.Order.Side == types.SideSell {
			reserved = reserved.Neg()
		}
		logger.Debug(ctx, "Reserved holding", "key", e.p.Executor.Key(), "reserved", reserved.String())
	}

	logger.Info(ctx, "Current holding", "key", e.p.Executor.Key(), "holding", seen.String())
	return decision, &seen, reserved, nil
}

func (e *Engine) logDecision(ctx context.Context, event types.SentimentEvent, d types.OrderDecision, holding *decimal.Decimal) {
	logger.Decision(ctx, e.p.Spec.Symbol, string(event.Sentiment), d.Action.String(), d.Reason,
		"event_id", event.EventID,
		"strategy", e.p.Decider.Name(),
	)

	entry := tradelog.DecisionEntry{
		EventID:   event.EventID,
		Symbol:    e.p.Spec.Symbol,
		Sentiment: string(event.Sentiment),
		Action:    d.Action.String(),
		Reason:    d.Reason,
	}
	if holding != nil {
		entry.Holding = *holding
	}
	if d.IsPost() {
		entry.Extra = map[string]any{"side": d.Order.Side, "qty": d.Order.Quantity.String()}
	}
	if err := tradelog.AppendDecision(entry); err != nil {
		logger.Warn(ctx, "Failed to append decision log", "error", err)
	}
}

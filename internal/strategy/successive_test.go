package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-trader/internal/types"
)

func spec(qty, limit string) types.TradingSpec {
	return types.TradingSpec{
		Strategy:           "successive",
		Symbol:             "BTCUSDT",
		BaseAsset:          "BTC",
		OrderQuantity:      decimal.RequireFromString(qty),
		TotalQuantityLimit: decimal.RequireFromString(limit),
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBuyExceedingTotalQuantityLimit(t *testing.T) {
	s := NewSuccessive(spec("1", "0.5"))

	got := s.Decide(types.Bullish, decimal.Zero)
	assert.Equal(t, types.ActionSkip, got.Action)
	assert.Equal(t, "the total quantity limit (0.5) is, or would be, exceeded", got.Reason)
}

func TestSellWithoutHoldingQuantity(t *testing.T) {
	s := NewSuccessive(spec("1", "0.5"))

	got := s.Decide(types.Bearish, decimal.Zero)
	assert.Equal(t, types.ActionSkip, got.Action)
	assert.Equal(t, "holding quantity 0 is not enough to sell", got.Reason)
}

func TestBullishInRow(t *testing.T) {
	s := NewSuccessive(spec("1", "3"))

	holding := decimal.Zero
	var actions []types.Action
	for i := 0; i < 4; i++ {
		got := s.Decide(types.Bullish, holding)
		actions = append(actions, got.Action)
		if got.IsPost() {
			assert.Equal(t, types.SideBuy, got.Order.Side)
			assert.Equal(t, types.TypeMarket, got.Order.Type)
			assert.Equal(t, "BTCUSDT", got.Order.Symbol)
			assert.True(t, got.Order.Quantity.Equal(d("1")))
			holding = holding.Add(got.Order.Quantity)
		}
	}

	assert.Equal(t, []types.Action{types.ActionPost, types.ActionPost, types.ActionPost, types.ActionSkip}, actions)
	assert.True(t, holding.Equal(d("3")))
}

func TestBearishInRowWithEnoughHolding(t *testing.T) {
	s := NewSuccessive(spec("1", "3"))

	holding := d("3")
	for i := 0; i < 3; i++ {
		got := s.Decide(types.Bearish, holding)
		require.True(t, got.IsPost())
		assert.Equal(t, types.SideSell, got.Order.Side)
		holding = holding.Sub(got.Order.Quantity)
	}
	assert.False(t, s.Decide(types.Bearish, holding).IsPost())
}

func TestBoundaries(t *testing.T) {
	s := NewSuccessive(spec("0.001", "0.003"))

	assert.True(t, s.Decide(types.Bullish, d("0.002")).IsPost(), "holding + qty == limit posts")
	assert.False(t, s.Decide(types.Bullish, d("0.0021")).IsPost())
	assert.True(t, s.Decide(types.Bearish, d("0.001")).IsPost(), "holding == qty posts")
	assert.False(t, s.Decide(types.Bearish, d("0.0009")).IsPost(), "never a partial sell")
}

func TestNonActionableSentiments(t *testing.T) {
	s := NewSuccessive(spec("1", "3"))

	for _, label := range []types.Sentiment{types.Unknown, "neutral", "", "BULLISH"} {
		for _, holding := range []string{"0", "1", "100"} {
			got := s.Decide(label, d(holding))
			assert.Equal(t, types.ActionSkip, got.Action)
			assert.Equal(t, "sentiment is "+string(label), got.Reason)
		}
	}
}

func TestSkipMessage(t *testing.T) {
	got := NewSuccessive(spec("1", "3")).Decide(types.Unknown, decimal.Zero)
	assert.Equal(t, "Skip order, reason is 'sentiment is unknown'.", got.SkipMessage())
}

func TestNew(t *testing.T) {
	dec, err := New(spec("1", "3"))
	require.NoError(t, err)
	assert.Equal(t, "SuccessiveStrategy", dec.Name())

	sp := spec("1", "3")
	sp.Strategy = ""
	_, err = New(sp)
	require.NoError(t, err)

	sp.Strategy = "martingale"
	_, err = New(sp)
	assert.Error(t, err)
}

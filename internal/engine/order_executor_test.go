package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-trader/internal/backoff"
	"sentiment-trader/internal/exchange"
	"sentiment-trader/internal/holding"
	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/types"
)

const testKey = "aitp_successivestrategy_holding_qty_btc"

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newExecutor(t *testing.T, venue *fakeVenue, store interfaces.HoldingStore) *Executor {
	t.Helper()
	t.Setenv("TRADER_LOG_DIR", t.TempDir())
	return NewExecutor(ExecutorParams{
		Venue:   venue,
		Advisor: exchange.NewFilterResolver(venue, 0),
		Store:   store,
		Key:     testKey,
		Backoff: backoff.New(time.Millisecond),
	})
}

func buy(qty string) types.OrderDecision {
	return types.Post(types.OrderRequest{Symbol: "BTCUSDT", Side: types.SideBuy, Type: types.TypeMarket, Quantity: d(qty)})
}

func sell(qty string) types.OrderDecision {
	return types.Post(types.OrderRequest{Symbol: "BTCUSDT", Side: types.SideSell, Type: types.TypeMarket, Quantity: d(qty)})
}

func TestExecuteSkipHasNoSideEffects(t *testing.T) {
	venue := &fakeVenue{}
	store := newFlakyStore(0)
	x := newExecutor(t, venue, store)

	for i := 0; i < 3; i++ {
		out, err := x.Execute(context.Background(), types.Skip("sentiment is unknown"))
		require.NoError(t, err)
		assert.Nil(t, out.Result)
		assert.True(t, out.Delta.IsZero())
	}

	assert.Zero(t, venue.orderCount())
	assert.Zero(t, store.writes)
}

func TestExecuteBuyIncrementsByNetQuantity(t *testing.T) {
	venue := &fakeVenue{commission: d("0.000001"), price: d("20000")}
	store := holding.NewMemoryStore()
	x := newExecutor(t, venue, store)

	out, err := x.Execute(context.Background(), buy("0.001"))
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.True(t, out.Delta.Equal(d("0.000999")), out.Delta.String())
	assert.True(t, out.Holding.Equal(d("0.000999")))

	got, err := store.Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.True(t, got.Equal(d("0.000999")))
}

func TestExecuteSellDecrementsByNetQuantity(t *testing.T) {
	venue := &fakeVenue{commission: d("0.000001")}
	store := holding.NewMemoryStore()
	_, err := store.Increment(context.Background(), testKey, d("0.002"))
	require.NoError(t, err)
	x := newExecutor(t, venue, store)

	out, err := x.Execute(context.Background(), sell("0.001"))
	require.NoError(t, err)
	assert.True(t, out.Delta.Equal(d("-0.000999")), out.Delta.String())
	assert.True(t, out.Holding.Equal(d("0.001001")), out.Holding.String())
}

func TestExecuteNotionalRejectionGivesAdvice(t *testing.T) {
	venue := &fakeVenue{
		err:   &exchange.APIError{StatusCode: 400, Code: exchange.CodeFilterFailure, Message: exchange.MsgNotionalFailure},
		price: d("20000"),
	}
	store := newFlakyStore(0)
	x := newExecutor(t, venue, store)

	out, err := x.Execute(context.Background(), buy("0.0001"))
	require.NoError(t, err)
	require.NotNil(t, out.MinQuantityAdvice)
	assert.Equal(t, "0.001", out.MinQuantityAdvice.String())
	assert.Nil(t, out.Result)
	assert.Equal(t, 1, venue.orderCount(), "no automatic resubmission")
	assert.Zero(t, store.writes)
}

func TestExecuteNotionalRejectionWithoutPrice(t *testing.T) {
	venue := &fakeVenue{
		err:      &exchange.APIError{Code: exchange.CodeFilterFailure, Message: exchange.MsgNotionalFailure},
		priceErr: errors.New("timeout"),
	}
	x := newExecutor(t, venue, holding.NewMemoryStore())

	out, err := x.Execute(context.Background(), buy("0.0001"))
	require.NoError(t, err)
	assert.Nil(t, out.MinQuantityAdvice)
}

func TestExecuteOtherRejectionIsVenueError(t *testing.T) {
	apiErr := &exchange.APIError{StatusCode: 400, Code: -2010, Message: "Account has insufficient balance for requested action."}
	venue := &fakeVenue{err: apiErr}
	store := newFlakyStore(0)
	x := newExecutor(t, venue, store)

	_, err := x.Execute(context.Background(), sell("1"))
	var verr *VenueError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, types.SideSell, verr.Order.Side)
	assert.ErrorIs(t, err, apiErr)
	assert.Zero(t, store.writes)
}

func TestExecuteRetriesCounterWrite(t *testing.T) {
	venue := &fakeVenue{}
	store := newFlakyStore(2)
	x := newExecutor(t, venue, store)

	out, err := x.Execute(context.Background(), buy("1"))
	require.NoError(t, err)
	assert.True(t, out.Holding.Equal(d("1")))
	assert.Equal(t, 1, store.writes)
}

func TestExecuteUnrecordedFill(t *testing.T) {
	venue := &fakeVenue{}
	store := newFlakyStore(100)
	x := newExecutor(t, venue, store)

	_, err := x.Execute(context.Background(), buy("1"))
	var uerr *UnrecordedFillError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, testKey, uerr.Key)
	assert.True(t, uerr.Delta.Equal(d("1")))
	require.NotNil(t, uerr.Result)
	assert.ErrorIs(t, err, holding.ErrStoreUnavailable)
	assert.Equal(t, 1, venue.orderCount())
}

func TestExecuteReservedReconcilesToFill(t *testing.T) {
	venue := &fakeVenue{commission: d("0.000001")}
	store := holding.NewMemoryStore()
	ctx := context.Background()
	_, err := store.Increment(ctx, testKey, d("0.001"))
	require.NoError(t, err)
	x := newExecutor(t, venue, store)

	out, err := x.execute(ctx, buy("0.001"), d("0.001"))
	require.NoError(t, err)
	assert.True(t, out.Delta.Equal(d("0.000999")))
	assert.True(t, out.Holding.Equal(d("0.000999")), out.Holding.String())
}

func TestExecuteReservedReleasedOnRejection(t *testing.T) {
	venue := &fakeVenue{err: errors.New("503")}
	store := holding.NewMemoryStore()
	ctx := context.Background()
	_, err := store.Increment(ctx, testKey, d("1"))
	require.NoError(t, err)
	x := newExecutor(t, venue, store)

	_, err = x.execute(ctx, buy("1"), d("1"))
	var verr *VenueError
	require.ErrorAs(t, err, &verr)

	got, err := store.Get(ctx, testKey)
	require.NoError(t, err)
	assert.True(t, got.IsZero(), got.String())
}

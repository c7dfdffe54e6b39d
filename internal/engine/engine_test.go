package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-trader/internal/holding"
	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/strategy"
	"sentiment-trader/internal/types"
)

func newEngine(t *testing.T, venue *fakeVenue, store interfaces.HoldingStore, guard Guard, qty, limit string) *Engine {
	t.Helper()
	spec := types.TradingSpec{
		Strategy:           "successive",
		Symbol:             "BTCUSDT",
		BaseAsset:          "BTC",
		OrderQuantity:      d(qty),
		TotalQuantityLimit: d(limit),
	}
	dec, err := strategy.New(spec)
	require.NoError(t, err)

	return New(Params{
		Spec:     spec,
		Decider:  dec,
		Store:    store,
		Executor: newExecutor(t, venue, store),
		Guard:    guard,
	})
}

func event(s types.Sentiment) types.SentimentEvent {
	return types.SentimentEvent{EventID: "e1", CollectedSource: "NewsAPI", Headline: "headline", Sentiment: s}
}

func TestProcessBullishInRow(t *testing.T) {
	for _, guard := range []Guard{GuardNone, GuardOptimistic} {
		t.Run(string(guard), func(t *testing.T) {
			venue := &fakeVenue{}
			store := holding.NewMemoryStore()
			eng := newEngine(t, venue, store, guard, "1", "3")
			ctx := context.Background()

			var actions []types.Action
			for i := 0; i < 4; i++ {
				res, err := eng.Process(ctx, event(types.Bullish))
				require.NoError(t, err)
				actions = append(actions, res.Decision.Action)
			}

			assert.Equal(t, []types.Action{types.ActionPost, types.ActionPost, types.ActionPost, types.ActionSkip}, actions)
			assert.Equal(t, 3, venue.orderCount())

			got, err := store.Get(ctx, testKey)
			require.NoError(t, err)
			assert.True(t, got.Equal(d("3")), got.String())
		})
	}
}

func TestProcessReportsDeltaAndHolding(t *testing.T) {
	venue := &fakeVenue{commission: d("0.000001")}
	store := holding.NewMemoryStore()
	eng := newEngine(t, venue, store, GuardNone, "0.001", "0.003")

	res, err := eng.Process(context.Background(), event(types.Bullish))
	require.NoError(t, err)
	assert.True(t, res.Delta.Equal(d("0.000999")))
	require.NotNil(t, res.Holding)
	assert.True(t, res.Holding.Equal(d("0.000999")))
	assert.Equal(t, "e1", res.EventID)
}

func TestProcessUnknownDoesNotReadCounter(t *testing.T) {
	venue := &fakeVenue{}
	store := newFlakyStore(1)
	eng := newEngine(t, venue, store, GuardNone, "1", "3")

	for _, s := range []types.Sentiment{types.Unknown, "neutral"} {
		res, err := eng.Process(context.Background(), event(s))
		require.NoError(t, err)
		assert.Equal(t, types.ActionSkip, res.Decision.Action)
		assert.Equal(t, "sentiment is "+string(s), res.Decision.Reason)
		assert.Nil(t, res.Holding)
	}
	assert.Zero(t, venue.orderCount())
	assert.Equal(t, 1, store.failures, "counter never touched")
}

func TestProcessStoreUnavailableBeforeOrder(t *testing.T) {
	venue := &fakeVenue{}
	store := newFlakyStore(1)
	eng := newEngine(t, venue, store, GuardNone, "1", "3")

	_, err := eng.Process(context.Background(), event(types.Bullish))
	require.Error(t, err)
	assert.True(t, errors.Is(err, holding.ErrStoreUnavailable))
	assert.Zero(t, venue.orderCount())
}

func TestProcessVenueErrorPropagates(t *testing.T) {
	venue := &fakeVenue{err: errors.New("503 service unavailable")}
	store := holding.NewMemoryStore()
	eng := newEngine(t, venue, store, GuardOptimistic, "1", "3")

	_, err := eng.Process(context.Background(), event(types.Bullish))
	var verr *VenueError
	require.ErrorAs(t, err, &verr)

	got, err := store.Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.True(t, got.IsZero(), "reservation released")
}

func TestOptimisticGuardNeverExceedsLimit(t *testing.T) {
	venue := &fakeVenue{}
	store := holding.NewMemoryStore()
	ctx := context.Background()

	// One engine per simulated process, all sharing the counter.
	engines := make([]*Engine, 8)
	for i := range engines {
		engines[i] = newEngine(t, venue, store, GuardOptimistic, "1", "3")
	}

	var wg sync.WaitGroup
	for _, eng := range engines {
		wg.Add(1)
		go func(eng *Engine) {
			defer wg.Done()
			_, err := eng.Process(ctx, event(types.Bullish))
			assert.NoError(t, err)
		}(eng)
	}
	wg.Wait()

	got, err := store.Get(ctx, testKey)
	require.NoError(t, err)
	assert.True(t, got.Equal(d("3")), got.String())
	assert.Equal(t, 3, venue.orderCount())
}

package holding

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-trader/internal/interfaces"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestKey(t *testing.T) {
	assert.Equal(t, "aitp_successivestrategy_holding_qty_btc", Key("aitp", "SuccessiveStrategy", "BTC"))
	assert.Equal(t, "aitp_successivestrategy_holding_qty_eth", Key("", "SuccessiveStrategy", "eth"))
}

func TestStoreErrorIsUnavailable(t *testing.T) {
	err := error(&StoreError{Op: "get", Key: "k", Err: errors.New("dial tcp: refused")})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "refused")
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb), mr
}

func stores(t *testing.T) map[string]interfaces.HoldingStore {
	rs, _ := newRedisStore(t)
	return map[string]interfaces.HoldingStore{
		"redis":  rs,
		"memory": NewMemoryStore(),
	}
}

func TestGetInitialisesMissingKey(t *testing.T) {
	rs, mr := newRedisStore(t)
	ctx := context.Background()

	q, err := rs.Get(ctx, "aitp_successivestrategy_holding_qty_btc")
	require.NoError(t, err)
	assert.True(t, q.IsZero())

	v, err := mr.Get("aitp_successivestrategy_holding_qty_btc")
	require.NoError(t, err)
	assert.Equal(t, "0", v)
}

func TestIncrementDecrement(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := "aitp_successivestrategy_holding_qty_btc"

			q, err := s.Increment(ctx, key, d("0.001"))
			require.NoError(t, err)
			assert.True(t, q.Equal(d("0.001")), q.String())

			q, err = s.Increment(ctx, key, d("0.000999"))
			require.NoError(t, err)
			assert.True(t, q.Equal(d("0.001999")), q.String())

			q, err = s.Decrement(ctx, key, d("0.001"))
			require.NoError(t, err)
			assert.True(t, q.Equal(d("0.000999")), q.String())

			got, err := s.Get(ctx, key)
			require.NoError(t, err)
			assert.True(t, got.Equal(d("0.000999")), got.String())
		})
	}
}

func TestUpdateAppliesDelta(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := "k"

			q, err := s.Update(ctx, key, func(cur decimal.Decimal) (decimal.Decimal, error) {
				assert.True(t, cur.IsZero())
				return d("1.5"), nil
			})
			require.NoError(t, err)
			assert.True(t, q.Equal(d("1.5")))

			sentinel := errors.New("limit reached")
			_, err = s.Update(ctx, key, func(cur decimal.Decimal) (decimal.Decimal, error) {
				return decimal.Zero, sentinel
			})
			require.ErrorIs(t, err, sentinel)

			var serr *StoreError
			assert.False(t, errors.As(err, &serr))

			got, err := s.Get(ctx, key)
			require.NoError(t, err)
			assert.True(t, got.Equal(d("1.5")))
		})
	}
}

func TestUpdateConcurrentNeverExceedsLimit(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := "guarded"
			limit := d("0.003")
			step := d("0.001")

			var wg sync.WaitGroup
			for i := 0; i < 6; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = s.Update(ctx, key, func(cur decimal.Decimal) (decimal.Decimal, error) {
						if cur.Add(step).GreaterThan(limit) {
							return decimal.Zero, errors.New("limit")
						}
						return step, nil
					})
				}()
			}
			wg.Wait()

			got, err := s.Get(ctx, key)
			require.NoError(t, err)
			assert.True(t, got.Equal(limit), got.String())
		})
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	rs, mr := newRedisStore(t)
	mr.Close()

	_, err := rs.Get(context.Background(), "k")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = rs.Increment(context.Background(), "k", d("1"))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

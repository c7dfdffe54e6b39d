package holding

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
)

const maxTxRetries = 16

// RedisStore keeps the counter as a decimal string in redis.
type RedisStore struct {
	rdb *redis.Client
}

var _ interfaces.HoldingStore = (*RedisStore)(nil)

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Get returns the counter, initialising a missing key to 0.
func (s *RedisStore) Get(ctx context.Context, key string) (decimal.Decimal, error) {
	if err := s.rdb.SetNX(ctx, key, "0", 0).Err(); err != nil {
		return decimal.Zero, &StoreError{Op: "init", Key: key, Err: err}
	}
	v, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		return decimal.Zero, &StoreError{Op: "get", Key: key, Err: err}
	}
	q, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, &StoreError{Op: "get", Key: key, Err: fmt.Errorf("invalid counter value %q: %w", v, err)}
	}
	return q, nil
}

func (s *RedisStore) Increment(ctx context.Context, key string, qty decimal.Decimal) (decimal.Decimal, error) {
	logger.Debug(ctx, "Increment holding", "key", key, "qty", qty.String())
	return s.incrBy(ctx, "increment", key, qty)
}

func (s *RedisStore) Decrement(ctx context.Context, key string, qty decimal.Decimal) (decimal.Decimal, error) {
	logger.Debug(ctx, "Decrement holding", "key", key, "qty", qty.String())
	return s.incrBy(ctx, "decrement", key, qty.Neg())
}

// incrBy sends the delta as a decimal string so no binary float rounding
// happens on the client side.
func (s *RedisStore) incrBy(ctx context.Context, op, key string, delta decimal.Decimal) (decimal.Decimal, error) {
	v, err := s.rdb.Do(ctx, "INCRBYFLOAT", key, delta.String()).Text()
	if err != nil {
		return decimal.Zero, &StoreError{Op: op, Key: key, Err: err}
	}
	q, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, &StoreError{Op: op, Key: key, Err: fmt.Errorf("invalid counter value %q: %w", v, err)}
	}
	return q, nil
}

// Update applies the delta computed by fn inside WATCH/MULTI/EXEC and
// retries when another writer touched the key in between. An error from fn
// aborts the update and is returned unchanged.
func (s *RedisStore) Update(ctx context.Context, key string, fn func(current decimal.Decimal) (decimal.Decimal, error)) (decimal.Decimal, error) {
	var (
		result decimal.Decimal
		fnErr  error
	)

	txf := func(tx *redis.Tx) error {
		cur := decimal.Zero
		v, err := tx.Get(ctx, key).Result()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if cur, err = decimal.NewFromString(v); err != nil {
				return fmt.Errorf("invalid counter value %q: %w", v, err)
			}
		}

		delta, err := fn(cur)
		if err != nil {
			fnErr = err
			return err
		}

		next := cur.Add(delta)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next.String(), 0)
			return nil
		})
		if err == nil {
			result = next
		}
		return err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if fnErr != nil {
			return decimal.Zero, fnErr
		}
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			logger.Debug(ctx, "Holding update conflicted, retrying", "key", key, "attempt", attempt+1)
			continue
		}
		return decimal.Zero, &StoreError{Op: "update", Key: key, Err: err}
	}
	return decimal.Zero, &StoreError{Op: "update", Key: key, Err: ErrConflict}
}

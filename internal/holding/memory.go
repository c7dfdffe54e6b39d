package holding

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"sentiment-trader/internal/interfaces"
)

const maxMemoryRetries = 1024

type versioned struct {
	qty     decimal.Decimal
	version uint64
}

// MemoryStore is a process-local counter store for DRY_RUN and tests.
type MemoryStore struct {
	mu   sync.Mutex
	vals map[string]versioned
}

var _ interfaces.HoldingStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{vals: make(map[string]versioned)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vals[key]; !ok {
		s.vals[key] = versioned{qty: decimal.Zero}
	}
	return s.vals[key].qty, nil
}

func (s *MemoryStore) Increment(ctx context.Context, key string, qty decimal.Decimal) (decimal.Decimal, error) {
	return s.add(key, qty), nil
}

func (s *MemoryStore) Decrement(ctx context.Context, key string, qty decimal.Decimal) (decimal.Decimal, error) {
	return s.add(key, qty.Neg()), nil
}

func (s *MemoryStore) add(key string, delta decimal.Decimal) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vals[key]
	v.qty = v.qty.Add(delta)
	v.version++
	s.vals[key] = v
	return v.qty
}

// Update calls fn outside the lock and commits only if the version it read
// is still current, mirroring the redis WATCH semantics.
func (s *MemoryStore) Update(ctx context.Context, key string, fn func(current decimal.Decimal) (decimal.Decimal, error)) (decimal.Decimal, error) {
	for attempt := 0; attempt < maxMemoryRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return decimal.Zero, err
		}

		s.mu.Lock()
		seen := s.vals[key]
		s.mu.Unlock()

		delta, err := fn(seen.qty)
		if err != nil {
			return decimal.Zero, err
		}

		s.mu.Lock()
		cur := s.vals[key]
		if cur.version == seen.version {
			cur.qty = cur.qty.Add(delta)
			cur.version++
			s.vals[key] = cur
			s.mu.Unlock()
			return cur.qty, nil
		}
		s.mu.Unlock()
	}
	return decimal.Zero, &StoreError{Op: "update", Key: key, Err: ErrConflict}
}

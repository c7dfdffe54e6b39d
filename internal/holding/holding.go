package holding

import (
	"errors"
	"fmt"
	"strings"
)

const DefaultKeyPrefix = "aitp"

var (
	// ErrStoreUnavailable matches every *StoreError through errors.Is.
	ErrStoreUnavailable = errors.New("holding store unavailable")
	// ErrConflict is returned when an optimistic update keeps losing races.
	ErrConflict = errors.New("holding counter changed concurrently")
)

// StoreError is a failed read or write of the holding counter.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("holding store %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

// Key names the holding counter of a strategy and asset, for example
// aitp_successivestrategy_holding_qty_btc.
func Key(prefix, strategyName, asset string) string {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return strings.ToLower(fmt.Sprintf("%s_%s_holding_qty_%s", prefix, strategyName, asset))
}

package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"sentiment-trader/internal/types"
)

// VenueError is an order the venue refused or a venue call that failed.
// No fill happened and the holding counter was not touched.
type VenueError struct {
	Order types.OrderRequest
	Err   error
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("venue rejected %s %s %s: %v", e.Order.Side, e.Order.Quantity, e.Order.Symbol, e.Err)
}

func (e *VenueError) Unwrap() error { return e.Err }

// UnrecordedFillError means the holding counter is off by Delta because a
// write could not be completed. Processing must stop until an operator
// reconciles the counter.
type UnrecordedFillError struct {
	Key    string
	Result *types.OrderResult
	Delta  decimal.Decimal
	Err    error
}

func (e *UnrecordedFillError) Error() string {
	if e.Result != nil {
		return fmt.Sprintf("order %s filled but %s was not updated by %s: %v", e.Result.OrderID, e.Key, e.Delta, e.Err)
	}
	return fmt.Sprintf("%s was not adjusted by %s: %v", e.Key, e.Delta, e.Err)
}

func (e *UnrecordedFillError) Unwrap() error { return e.Err }

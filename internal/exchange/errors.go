package exchange

import (
	"errors"
	"fmt"
)

const (
	CodeFilterFailure  = -1013
	MsgNotionalFailure = "Filter failure: NOTIONAL"
)

// APIError is an error payload returned by the exchange.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("exchange error (status %d, code %d): %s", e.StatusCode, e.Code, e.Message)
}

// IsNotionalRejection reports whether err is the exchange refusing an order
// whose value is below the symbol's minimum notional.
func IsNotionalRejection(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == CodeFilterFailure && apiErr.Message == MsgNotionalFailure
}

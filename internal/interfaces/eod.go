package interfaces

import (
	"context"
	"time"
)

// EodSummarizer rolls a day of the trade journal up into a CSV report.
type EodSummarizer interface {
	// SummarizeDay returns the CSV path, or "" when the day has no trades.
	SummarizeDay(ctx context.Context, day time.Time) (string, error)
}

package interfaces

import (
	"context"

	"sentiment-trader/internal/types"
)

type Engine interface {
	Process(ctx context.Context, event types.SentimentEvent) (*types.StepResult, error)
}

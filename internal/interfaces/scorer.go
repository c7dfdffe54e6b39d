package interfaces

import (
	"context"

	"sentiment-trader/internal/types"
)

// SentimentScorer classifies a headline's sentiment about an asset.
type SentimentScorer interface {
	Score(ctx context.Context, headline, asset string) (types.Sentiment, error)
}

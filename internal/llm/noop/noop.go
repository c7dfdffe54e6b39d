package noop

import (
	"context"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/types"
)

// Scorer is used when no LLM provider is configured. Every headline is unknown.
type Scorer struct{}

var _ interfaces.SentimentScorer = (*Scorer)(nil)

func NewScorer() *Scorer {
	return &Scorer{}
}

func (s *Scorer) Score(ctx context.Context, headline, asset string) (types.Sentiment, error) {
	logger.Debug(ctx, "Noop scorer called - always returns unknown", "asset", asset)
	return types.Unknown, nil
}

package llmobs

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/trace"
	"sentiment-trader/internal/types"
)

// observableScorer wraps a SentimentScorer with logging and tracing
type observableScorer struct {
	scorer interfaces.SentimentScorer
}

var _ interfaces.SentimentScorer = (*observableScorer)(nil)

func Wrap(scorer interfaces.SentimentScorer) interfaces.SentimentScorer {
	return &observableScorer{scorer: scorer}
}

func (o *observableScorer) Score(ctx context.Context, headline, asset string) (types.Sentiment, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Score",
		oteltrace.WithAttributes(attribute.String("asset", asset)))
	defer span.End()

	logger.DebugSkip(ctx, 1, "Requesting sentiment", "asset", asset, "headline", headline)

	sentiment, err := o.scorer.Score(ctx, headline, asset)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to score headline", err,
			"asset", asset,
			"headline", headline,
		)
		return "", err
	}

	span.SetAttributes(attribute.String("sentiment", string(sentiment)))
	logger.InfoSkip(ctx, 1, "Sentiment received",
		"asset", asset,
		"sentiment", sentiment,
	)
	return sentiment, nil
}

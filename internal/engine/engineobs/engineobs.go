package engineobs

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otrace "go.opentelemetry.io/otel/trace"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/trace"
	"sentiment-trader/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) Process(ctx context.Context, event types.SentimentEvent) (*types.StepResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Process", otrace.WithAttributes(
		attribute.String("event_id", event.EventID),
		attribute.String("sentiment", string(event.Sentiment)),
	))
	defer span.End()

	start := time.Now()

	logger.DebugSkip(ctx, 1, "Processing sentiment event",
		"event_id", event.EventID,
		"source", event.CollectedSource,
		"headline", event.Headline,
		"sentiment", event.Sentiment,
	)

	result, err := oe.engine.Process(ctx, event)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Sentiment event failed", err,
			"event_id", event.EventID,
			"sentiment", event.Sentiment,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return result, err
	}

	args := []any{
		"event_id", event.EventID,
		"sentiment", event.Sentiment,
		"action", result.Decision.Action.String(),
		"delta", result.Delta.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if result.Holding != nil {
		args = append(args, "holding", result.Holding.String())
	}
	logger.InfoSkip(ctx, 1, "Sentiment event processed", args...)

	return result, nil
}

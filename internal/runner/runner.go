package runner

import (
	"context"
	"errors"
	"fmt"

	"sentiment-trader/internal/backoff"
	"sentiment-trader/internal/engine"
	"sentiment-trader/internal/feed"
	"sentiment-trader/internal/holding"
	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/types"
)

// VenuePolicy decides what happens to an event whose order the venue refused.
type VenuePolicy string

const (
	VenueHalt  VenuePolicy = "halt"
	VenueSkip  VenuePolicy = "skip"
	VenueRetry VenuePolicy = "retry"
)

type Policy struct {
	OnVenueError VenuePolicy
	// MaxRetries bounds retries of an event after a store or venue failure.
	MaxRetries int
	Backoff    backoff.Policy
}

type Params struct {
	Engine interfaces.Engine
	Policy Policy
	// OnResult, when set, receives every processed event.
	OnResult func(*types.StepResult)
}

// Runner processes records one at a time in arrival order.
type Runner struct {
	p Params
}

func New(p Params) *Runner {
	if p.Policy.OnVenueError == "" {
		p.Policy.OnVenueError = VenueHalt
	}
	return &Runner{p: p}
}

// Run consumes src until ctx is cancelled, which returns nil, or until an
// event fails in a way the policy says to halt on.
func (r *Runner) Run(ctx context.Context, src feed.Source) error {
	for {
		rec, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info(ctx, "Processing loop stopped")
				return nil
			}
			return fmt.Errorf("read next record: %w", err)
		}

		switch rec.Kind {
		case feed.KindSubscribe:
			logger.Info(ctx, "Subscribed to channel", "channel", rec.Channel)
			continue
		case feed.KindMessage:
		default:
			logger.Warn(ctx, "Unknown event type", "kind", rec.Kind, "channel", rec.Channel)
			continue
		}

		event, err := rec.Decode()
		if err != nil {
			logger.ErrorWithErr(ctx, "Skipping malformed record", err)
			continue
		}

		if err := r.handle(ctx, event); err != nil {
			var uerr *engine.UnrecordedFillError
			if ctx.Err() != nil && !errors.As(err, &uerr) {
				logger.Info(ctx, "Processing loop stopped")
				return nil
			}
			return err
		}
	}
}

func (r *Runner) handle(ctx context.Context, event types.SentimentEvent) error {
	pol := r.p.Policy
	for attempt := 0; ; attempt++ {
		res, err := r.p.Engine.Process(ctx, event)
		if err == nil {
			if r.p.OnResult != nil {
				r.p.OnResult(res)
			}
			return nil
		}

		// A fill the counter missed halts even during shutdown.
		var uerr *engine.UnrecordedFillError
		if errors.As(err, &uerr) {
			return fmt.Errorf("halting, holding counter needs reconciliation: %w", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var verr *engine.VenueError
		switch {
		case errors.As(err, &verr):
			switch pol.OnVenueError {
			case VenueSkip:
				logger.Warn(ctx, "Skipping event after venue error", "event_id", event.EventID, "error", err)
				return nil
			case VenueRetry:
				if attempt >= pol.MaxRetries {
					logger.Warn(ctx, "Giving up on event after venue errors", "event_id", event.EventID, "attempts", attempt+1, "error", err)
					return nil
				}
			default:
				return fmt.Errorf("halting on venue error: %w", err)
			}
		case errors.Is(err, holding.ErrStoreUnavailable):
			if attempt >= pol.MaxRetries {
				return fmt.Errorf("halting, holding store unavailable: %w", err)
			}
		default:
			return err
		}

		logger.Warn(ctx, "Retrying event",
			"event_id", event.EventID,
			"attempt", attempt+1,
			"max_retries", pol.MaxRetries,
			"error", err,
		)
		if err := pol.Backoff.Sleep(ctx, attempt); err != nil {
			return err
		}
	}
}

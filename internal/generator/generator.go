package generator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"sentiment-trader/internal/feed"
	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/types"
)

// LineReader yields headline lines in order, blocking until one is available.
type LineReader interface {
	NextLine(ctx context.Context) (string, error)
}

type Params struct {
	Headlines LineReader
	Scorer    interfaces.SentimentScorer
	Sink      feed.Sink
	Asset     string
}

// Generator scores every headline it reads and hands the result to a sink.
type Generator struct {
	p     Params
	now   func() time.Time
	newID func() string
}

func New(p Params) *Generator {
	return &Generator{p: p, now: time.Now, newID: uuid.NewString}
}

// OutputPath is where the file sink writes sentiments for asset.
func OutputPath(dir, asset string) string {
	return filepath.Join(dir, fmt.Sprintf("sentiments_%s.csv", strings.ToLower(asset)))
}

// Run loops until ctx is cancelled, which returns nil. Malformed headlines
// and scoring failures are logged and skipped; a sink failure stops the run.
func (g *Generator) Run(ctx context.Context) error {
	logger.Info(ctx, "Start sentiment generator", "asset", g.p.Asset)
	for {
		line, err := g.p.Headlines.NextLine(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read headline: %w", err)
		}
		logger.Debug(ctx, "Read headline", "line", line)

		h, err := feed.ParseHeadline(line)
		if err != nil {
			logger.ErrorWithErr(ctx, "Skipping malformed headline", err)
			continue
		}

		sentiment, err := g.p.Scorer.Score(ctx, h.Text, g.p.Asset)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.ErrorWithErr(ctx, "Skipping unscored headline", err, "headline", h.Text)
			continue
		}

		event := types.SentimentEvent{
			EventID:         g.newID(),
			EventTime:       g.now().UnixMilli(),
			CollectedSource: h.Source,
			CollectedTime:   h.CollectedTime,
			PublishedTime:   h.PublishedTime,
			Headline:        h.Text,
			Sentiment:       sentiment,
		}
		if err := g.p.Sink.Write(ctx, event); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("write sentiment: %w", err)
		}
	}
}

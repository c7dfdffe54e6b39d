package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"sentiment-trader/internal/backoff"
	"sentiment-trader/internal/engine"
	"sentiment-trader/internal/engine/engineobs"
	"sentiment-trader/internal/eod"
	"sentiment-trader/internal/eod/eodobs"
	"sentiment-trader/internal/exchange"
	"sentiment-trader/internal/exchange/exchangeobs"
	"sentiment-trader/internal/feed"
	"sentiment-trader/internal/generator"
	"sentiment-trader/internal/holding"
	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/llm/llmobs"
	"sentiment-trader/internal/llm/noop"
	"sentiment-trader/internal/llm/openai"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/news"
	"sentiment-trader/internal/ratelimit"
	"sentiment-trader/internal/runner"
	"sentiment-trader/internal/store"
	"sentiment-trader/internal/strategy"
	"sentiment-trader/internal/trace"
	"sentiment-trader/internal/tradelog"
	"sentiment-trader/internal/types"
)

const userAgent = trace.ServiceName + "/" + trace.ServiceVersion

// initializeSystem loads .env, then sets up logging and tracing.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	logger.SetLevel(cfg.LoggingLevel)
	return cfg, nil
}

func compressOldLogs(ctx context.Context) {
	if err := tradelog.CompressOlder(tradelog.RetentionDays()); err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
	}
}

func newRedisClient(cfg *store.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       cfg.Redis.DB,
	})
}

// initializeVenue returns the order venue and the filter resolver. In
// DRY_RUN orders are filled on paper while prices and filters stay live.
func initializeVenue(ctx context.Context, cfg *store.Config) (interfaces.Venue, *exchange.FilterResolver, error) {
	p := exchange.Params{
		BaseURL:    cfg.Exchange.BaseURL,
		APIKey:     os.Getenv("BINANCE_API_KEY"),
		RecvWindow: time.Duration(cfg.Exchange.RecvWindowMs) * time.Millisecond,
		Timeout:    time.Duration(cfg.Exchange.TimeoutSeconds) * time.Second,
		UserAgent:  userAgent,
		Limiter:    ratelimit.PerMinute(cfg.Exchange.OrdersPerMin),
	}

	var venue interfaces.Venue
	if cfg.Mode == "LIVE" {
		signer, err := exchange.NewSigner(os.Getenv("BINANCE_SECRET_KEY"), os.Getenv("BINANCE_PRIVATE_KEY_PATH"))
		if err != nil {
			return nil, nil, fmt.Errorf("exchange credentials: %w", err)
		}
		p.Signer = signer
		venue = exchange.NewClient(p)
		logger.Info(ctx, "Using LIVE exchange", "base_url", p.BaseURL)
	} else {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
		venue = exchange.NewPaperVenue(exchange.NewClient(p))
	}

	resolver := exchange.NewFilterResolver(exchange.NewClient(p), cfg.FilterTTL())
	return exchangeobs.Wrap(venue), resolver, nil
}

func initializeStore(ctx context.Context, cfg *store.Config, rdb *redis.Client) interfaces.HoldingStore {
	if cfg.Holding.Backend == "memory" {
		logger.Warn(ctx, "Holding counter kept in memory - it is lost on exit and not shared")
		return holding.NewMemoryStore()
	}
	return holding.NewRedisStore(rdb)
}

// initializeEngine wires strategy, executor and engine for the configured symbol.
func initializeEngine(ctx context.Context, cfg *store.Config, rdb *redis.Client) (interfaces.Engine, error) {
	spec, err := cfg.TradingSpec()
	if err != nil {
		return nil, err
	}
	decider, err := strategy.New(spec)
	if err != nil {
		return nil, err
	}
	venue, resolver, err := initializeVenue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	st := initializeStore(ctx, cfg, rdb)
	key := holding.Key(cfg.Holding.KeyPrefix, decider.Name(), spec.BaseAsset)
	exec := engine.NewExecutor(engine.ExecutorParams{
		Venue:   venue,
		Advisor: resolver,
		Store:   st,
		Key:     key,
		Backoff: backoff.New(time.Duration(cfg.Policy.BackoffBaseMs) * time.Millisecond),
	})

	logger.Info(ctx, "Trading engine ready",
		"strategy", decider.Name(),
		"symbol", spec.Symbol,
		"holding_key", key,
		"guard", cfg.Holding.Guard,
	)

	return engineobs.Wrap(engine.New(engine.Params{
		Spec:     spec,
		Decider:  decider,
		Store:    st,
		Executor: exec,
		Guard:    engine.Guard(cfg.Holding.Guard),
	})), nil
}

func initializeRunner(eng interfaces.Engine, cfg *store.Config, emit func(any)) *runner.Runner {
	return runner.New(runner.Params{
		Engine: eng,
		Policy: runner.Policy{
			OnVenueError: runner.VenuePolicy(cfg.Policy.OnVenueError),
			MaxRetries:   cfg.Policy.MaxRetries,
			Backoff:      backoff.New(time.Duration(cfg.Policy.BackoffBaseMs) * time.Millisecond),
		},
		OnResult: func(res *types.StepResult) { emit(res) },
	})
}

func initializeSource(ctx context.Context, cfg *store.Config, rdb *redis.Client) feed.Source {
	if cfg.InputOption == "file" {
		logger.Info(ctx, "Reading sentiments from file", "file", cfg.SentimentsFile)
		return feed.NewFileSource(cfg.SentimentsFile, followPoll(cfg))
	}
	logger.Info(ctx, "Subscribing to channel", "channel", cfg.Redis.Channel)
	return feed.NewRedisSource(rdb, cfg.Redis.Channel)
}

func initializeScorer(ctx context.Context, cfg *store.Config) (interfaces.SentimentScorer, error) {
	var scorer interfaces.SentimentScorer
	switch strings.ToUpper(cfg.LLM.Provider) {
	case "OPENAI":
		s, err := openai.NewScorer(openai.Params{
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
			Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
			Limiter: ratelimit.PerMinute(cfg.Generator.ReqsMin),
		})
		if err != nil {
			return nil, err
		}
		scorer = s
	default:
		logger.Warn(ctx, "No LLM provider configured - using Noop scorer (always unknown)")
		scorer = noop.NewScorer()
	}
	return llmobs.Wrap(scorer), nil
}

func initializeSink(ctx context.Context, cfg *store.Config, rdb *redis.Client) (feed.Sink, error) {
	if cfg.Generator.OutputOption == "redis" {
		logger.Info(ctx, "Publishing sentiments", "channel", cfg.Redis.Channel)
		return feed.NewRedisPublisher(rdb, cfg.Redis.Channel), nil
	}
	path := generator.OutputPath(cfg.Generator.OutputDir, cfg.Generator.Asset)
	logger.Info(ctx, "Writing sentiments", "file", path)
	return feed.OpenFileSink(path)
}

func initializeCollector(cfg *store.Config) *news.Collector {
	sources := make([]news.Source, 0, len(cfg.Collector.Sources))
	for _, s := range cfg.Collector.Sources {
		sources = append(sources, news.Source{
			Name:         s.Name,
			URL:          s.URL,
			Selector:     s.Selector,
			TimeSelector: s.TimeSelector,
			TimeAttr:     s.TimeAttr,
		})
	}
	return news.NewCollector(news.Params{
		Sources:       sources,
		HeadlinesFile: cfg.Collector.HeadlinesFile,
		Interval:      time.Duration(cfg.Collector.IntervalSeconds) * time.Second,
		UserAgent:     userAgent,
	})
}

func initializeEOD() interfaces.EodSummarizer {
	return eodobs.Wrap(eod.NewSummarizer())
}

func followPoll(cfg *store.Config) time.Duration {
	return time.Duration(cfg.FollowPollMs) * time.Millisecond
}

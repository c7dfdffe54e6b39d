package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sentiment-trader/internal/feed"
	"sentiment-trader/internal/generator"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/trace"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sentiment-trader",
		Short:         "Trade a crypto pair on LLM-scored news headline sentiment",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeSystem()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = trace.Shutdown(ctx)
		},
	}

	root.AddCommand(newTradingBotCmd())
	root.AddCommand(newGeneratorCmd())
	root.AddCommand(newCollectCmd())
	root.AddCommand(newSummaryCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// signalContext is cancelled on SIGINT or SIGTERM, which ends a command cleanly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// fail logs err so it lands in the structured log before the exit code.
func fail(ctx context.Context, msg string, err error) error {
	logger.ErrorWithErr(ctx, msg, err)
	return err
}

func printJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Println(string(b))
}

func newTradingBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "trading-bot <config>",
		Aliases: []string{"tb"},
		Short:   "Place orders from the sentiment stream",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			cfg, err := loadConfig(ctx, args[0])
			if err != nil {
				return err
			}
			if err := cfg.ValidateTrading(); err != nil {
				return fail(ctx, "Invalid trading configuration", err)
			}
			compressOldLogs(ctx)

			rdb := newRedisClient(cfg)
			defer rdb.Close()

			eng, err := initializeEngine(ctx, cfg, rdb)
			if err != nil {
				return fail(ctx, "Failed to initialize engine", err)
			}

			src := initializeSource(ctx, cfg, rdb)
			defer src.Close()

			logger.Info(ctx, "Start trading bot", "mode", cfg.Mode)
			runErr := initializeRunner(eng, cfg, printJSON).Run(ctx, src)

			if _, err := initializeEOD().SummarizeDay(context.WithoutCancel(ctx), time.Now()); err != nil {
				logger.Warn(ctx, "Failed to write EOD summary", "error", err)
			}
			if runErr != nil {
				return fail(ctx, "Trading bot stopped", runErr)
			}
			logger.Info(ctx, "Shutting down...")
			return nil
		},
	}
}

func newGeneratorCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "sentiment-generator <config>",
		Aliases: []string{"sg"},
		Short:   "Score followed headlines and emit sentiment events",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			cfg, err := loadConfig(ctx, args[0])
			if err != nil {
				return err
			}
			if err := cfg.ValidateGenerator(); err != nil {
				return fail(ctx, "Invalid generator configuration", err)
			}

			scorer, err := initializeScorer(ctx, cfg)
			if err != nil {
				return fail(ctx, "Failed to initialize scorer", err)
			}

			rdb := newRedisClient(cfg)
			defer rdb.Close()

			sink, err := initializeSink(ctx, cfg, rdb)
			if err != nil {
				return fail(ctx, "Failed to open output", err)
			}
			defer sink.Close()

			headlines := feed.NewFollower(cfg.Generator.HeadlinesFile, followPoll(cfg))
			defer headlines.Close()
			logger.Info(ctx, "Reading headlines", "file", cfg.Generator.HeadlinesFile)

			err = generator.New(generator.Params{
				Headlines: headlines,
				Scorer:    scorer,
				Sink:      sink,
				Asset:     cfg.Generator.Asset,
			}).Run(ctx)
			if err != nil {
				return fail(ctx, "Sentiment generator stopped", err)
			}
			return nil
		},
	}
}

func newCollectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect <config>",
		Short: "Scrape configured news pages into the headlines file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			cfg, err := loadConfig(ctx, args[0])
			if err != nil {
				return err
			}
			if err := cfg.ValidateCollector(); err != nil {
				return fail(ctx, "Invalid collector configuration", err)
			}

			logger.Info(ctx, "Start headline collector",
				"sources", len(cfg.Collector.Sources),
				"file", cfg.Collector.HeadlinesFile,
			)
			if err := initializeCollector(cfg).Run(ctx); err != nil {
				return fail(ctx, "Headline collector stopped", err)
			}
			return nil
		},
	}
}

func newSummaryCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Write the end-of-day CSV of the trade journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			day := time.Now().UTC()
			if date != "" {
				t, err := time.Parse("2006-01-02", date)
				if err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
				day = t
			}
			path, err := initializeEOD().SummarizeDay(ctx, day)
			if err != nil {
				return fail(ctx, "Failed to write EOD summary", err)
			}
			if path != "" {
				fmt.Println(path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "UTC day in YYYY-MM-DD format (today if not provided)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s v%s\n", trace.ServiceName, trace.ServiceVersion)
		},
	}
}

// Package cmd defines the CLI commands for the standards executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flbest/standards-crawler/internal/api"
	"github.com/flbest/standards-crawler/internal/config"
	"github.com/flbest/standards-crawler/internal/crawl"
	"github.com/flbest/standards-crawler/internal/extract"
	"github.com/flbest/standards-crawler/internal/fetch"
	"github.com/flbest/standards-crawler/internal/ingest"
)

type crawlFlags struct {
	csvPath     string
	resume      bool
	startFrom   string
	retryFailed bool
	delay       time.Duration
}

// newCrawlCmd creates the 'crawl' subcommand: seed the benchmark set
// from a CSV export and scrape each benchmark's CPALMS page.
func newCrawlCmd() *cobra.Command {
	flags := &crawlFlags{}
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl CPALMS pages for the ingested benchmarks",
		Long: `Loads the benchmark seed CSV, then fetches each benchmark's CPALMS
page sequentially with polite delays and bounded retries. Progress is
checkpointed after every benchmark, so an interrupted crawl resumes
where it left off with --resume.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawlCommand(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.csvPath, "csv", "", "benchmark seed CSV file (required)")
	cmd.Flags().BoolVar(&flags.resume, "resume", false, "start strictly after the checkpointed benchmark")
	cmd.Flags().StringVar(&flags.startFrom, "start-from", "", "start strictly after the given benchmark id")
	cmd.Flags().BoolVar(&flags.retryFailed, "retry-failed", false, "only crawl benchmarks not yet confirmed successful")
	cmd.Flags().DurationVar(&flags.delay, "delay", 0, "politeness delay between benchmarks (overrides config)")
	_ = cmd.MarkFlagRequired("csv")

	return cmd
}

func runCrawlCommand(cmd *cobra.Command, flags *crawlFlags) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.GetConfig()
	logger := appInstance.GetLogger()

	benchmarks, err := ingest.LoadCSV(flags.csvPath, logger)
	if err != nil {
		return fmt.Errorf("load benchmark seed: %w", err)
	}
	if len(benchmarks) == 0 {
		return fmt.Errorf("seed file %s contains no valid benchmarks", flags.csvPath)
	}

	fetcher, err := buildFetcher(cfg, logger)
	if err != nil {
		return err
	}

	orchestrator := crawl.New(
		appInstance.GetStore(),
		appInstance.GetCheckpoint(),
		fetcher,
		extract.New(cfg.Crawler.SiteOrigin),
		logger,
	)

	if cfg.Server.Enabled {
		srv := api.NewServer(cfg.Server.Port, logger)
		go func() {
			if serr := srv.Start(); serr != nil {
				logger.Error("Operational server failed", zap.Error(serr))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if serr := srv.Shutdown(shutdownCtx); serr != nil {
				logger.Warn("Operational server shutdown failed", zap.Error(serr))
			}
		}()
	}

	delay := cfg.Crawler.Delay
	if flags.delay > 0 {
		delay = flags.delay
	}

	summary, err := orchestrator.Run(cmd.Context(), benchmarks, crawl.Options{
		Resume:      flags.resume,
		StartFrom:   flags.startFrom,
		RetryFailed: flags.retryFailed,
		Delay:       delay,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawl: %w", err)
	}

	logger.Info("Crawl finished",
		zap.String("run_id", summary.RunID),
		zap.String("state", string(orchestrator.State())),
		zap.Int("processed", summary.Processed),
		zap.Int("successful", summary.Successful),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)
	return nil
}

func buildFetcher(cfg config.Config, logger *zap.Logger) (fetch.Fetcher, error) {
	base, err := fetch.NewCollyFetcher(fetch.Config{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.HTTP.Timeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init fetcher: %w", err)
	}

	policy := fetch.RetryPolicy{
		MaxRetries: cfg.HTTP.MaxRetries,
		BaseDelay:  cfg.HTTP.BaseDelay,
		MaxDelay:   cfg.HTTP.MaxDelay,
		Factor:     cfg.HTTP.BackoffFactor,
	}
	return fetch.NewRetryingFetcher(base, policy, logger), nil
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

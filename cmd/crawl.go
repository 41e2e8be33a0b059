package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jersey-gallery/internal/config"
	"github.com/JakeFAU/jersey-gallery/internal/crawler"
	collyfetcher "github.com/JakeFAU/jersey-gallery/internal/fetcher/colly"
	"github.com/JakeFAU/jersey-gallery/internal/images"
	"github.com/JakeFAU/jersey-gallery/internal/logging"
	"github.com/JakeFAU/jersey-gallery/internal/metrics"
	"github.com/JakeFAU/jersey-gallery/internal/parser"
	"github.com/JakeFAU/jersey-gallery/internal/store"
)

// newCrawlCmd creates the 'crawl' subcommand.
func newCrawlCmd() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawls the gallery, resuming from the saved dataset",
		Long: `Walks listing pages from the last checkpoint to crawler.total_pages,
extracting each album and saving the dataset after every jersey. Interrupt
with Ctrl+C at any time; the next run continues after the last saved jersey.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawlCommand(cmd.Context(), metricsAddr)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "",
		"serve Prometheus metrics on this address during the crawl (e.g. :9090)")
	return cmd
}

func runCrawlCommand(ctx context.Context, metricsAddr string) error {
	appInstance, err := resolveApp(ctx)
	if err != nil {
		return err
	}
	logger, runID := logging.ForRun(appInstance.Logger, "crawl")

	engine, cleanup, err := buildCrawlerEngine(ctx, appInstance.Config, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if metricsAddr != "" {
		stopMetrics := serveMetrics(metricsAddr, logger)
		defer stopMetrics()
	}

	jerseys, err := engine.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawler: %w", err)
	}

	logger.Info("crawl command finished",
		zap.String("run_id", runID),
		zap.Int("jerseys", len(jerseys)),
		zap.Bool("interrupted", err != nil))
	return nil
}

func buildCrawlerEngine(ctx context.Context, cfg config.Config, logger *zap.Logger) (*crawler.Engine, func(), error) {
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:          cfg.HTTP.UserAgent,
		PageTimeout:        cfg.HTTP.PageTimeout,
		HeadTimeout:        cfg.HTTP.HeadTimeout,
		InsecureSkipVerify: cfg.HTTP.InsecureSkipVerify,
		RespectRobots:      cfg.Crawler.RespectRobots,
		Retry:              cfg.RetryPolicy(),
	}, logger.Named("fetcher"))

	resolver := images.NewResolver(fetcher, images.Config{PhotoHost: cfg.Crawler.PhotoHost}, logger.Named("images"))

	cleanup := func() {}
	var opts []store.Option
	if cfg.Store.GCSBucket != "" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("init gcs client: %w", err)
		}
		cleanup = func() {
			if cerr := client.Close(); cerr != nil {
				logger.Warn("close gcs client", zap.Error(cerr))
			}
		}
		mirror, err := store.NewGCSMirror(client, cfg.Store.GCSBucket, cfg.Store.GCSObject)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("init gcs mirror: %w", err)
		}
		opts = append(opts, store.WithMirror(mirror))
	}

	fileStore, err := store.NewFileStore(cfg.Store.Path, logger.Named("store"), opts...)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("init store: %w", err)
	}

	engine, err := crawler.NewEngine(cfg.CrawlerEngine(), fetcher, parser.New(), resolver, fileStore, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("init engine: %w", err)
	}
	return engine, cleanup, nil
}

// serveMetrics exposes /metrics in the background and returns a shutdown func.
func serveMetrics(addr string, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics server started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown", zap.Error(err))
		}
	}
}

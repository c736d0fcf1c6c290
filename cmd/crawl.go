package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pricefeed/webcrawler/internal/api"
	"github.com/pricefeed/webcrawler/internal/config"
	"github.com/pricefeed/webcrawler/internal/crawler"
	"github.com/pricefeed/webcrawler/internal/extract"
	"github.com/pricefeed/webcrawler/internal/logging"
	"github.com/pricefeed/webcrawler/internal/progress"
	"github.com/pricefeed/webcrawler/internal/progress/sinks"
	sinkpkg "github.com/pricefeed/webcrawler/internal/sink"
)

// newCrawlCmd creates and configures the 'crawl' subcommand.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url]",
		Short: "Starts a crawl from the given seed URL",
		Long: `Runs one breadth-first crawl starting at the seed URL, restricted to the
seed's domain. Extracted products stream to the configured sink while the
crawl runs; a summary is logged on completion.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCrawlCommand,
	}

	cmd.Flags().String("seed", "", "seed URL (alternative to the positional argument)")
	cmd.Flags().Int("max-depth", 0, "maximum BFS depth (0 = unlimited)")
	cmd.Flags().Int("max-pages", 0, "maximum pages to fetch (0 = config default)")
	cmd.Flags().Int("concurrency", 0, "simultaneous in-flight fetches")
	cmd.Flags().String("output", "", "CSV output path")
	cmd.Flags().Bool("include-subdomains", false, "treat subdomains of the root domain as in scope")
	cmd.Flags().String("ops-addr", "", "address for the /healthz and /metrics endpoint (disabled when empty)")

	return cmd
}

func runCrawlCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlagOverrides(cmd, args, &cfg)

	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	settings, err := cfg.CrawlSettings()
	if err != nil {
		return fmt.Errorf("crawl settings: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	productSink, err := buildSink(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init sink: %w", err)
	}

	hub, err := buildProgressHub(logger)
	if err != nil {
		return fmt.Errorf("init progress reporting: %w", err)
	}

	engine, err := buildEngine(settings, cfg, productSink, hub, logger)
	if err != nil {
		return err
	}

	var opsServer *api.Server
	if cfg.Ops.ListenAddr != "" {
		opsServer = api.NewServer(cfg.Ops.ListenAddr, logger)
		opsServer.Start()
	}

	summary, runErr := engine.Run(ctx)

	logger.Info("Crawl finished",
		zap.Int64("pages_fetched", summary.PagesFetched),
		zap.Int64("pages_failed", summary.PagesFailed),
		zap.Int64("products_extracted", summary.ProductsExtracted),
		zap.Int64("links_offered", summary.LinksOffered),
		zap.Int64("links_rejected", summary.LinksRejected),
		zap.Duration("duration", summary.Duration),
	)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hub.Close(shutdownCtx); err != nil {
		logger.Warn("Failed to close progress hub", zap.Error(err))
	}
	if opsServer != nil {
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to shut down ops endpoint", zap.Error(err))
		}
	}
	closeErr := productSink.Close(shutdownCtx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("run crawler: %w", runErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close sink: %w", closeErr)
	}
	return nil
}

// applyFlagOverrides layers explicit CLI flags over the loaded configuration.
func applyFlagOverrides(cmd *cobra.Command, args []string, cfg *config.Config) {
	if len(args) > 0 {
		cfg.Crawler.Seed = args[0]
	}
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Crawler.Seed, _ = flags.GetString("seed")
	}
	if flags.Changed("max-depth") {
		cfg.Crawler.MaxDepth, _ = flags.GetInt("max-depth")
	}
	if flags.Changed("max-pages") {
		cfg.Crawler.MaxPages, _ = flags.GetInt("max-pages")
	}
	if flags.Changed("concurrency") {
		cfg.Crawler.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("output") {
		cfg.Sink.Kind = config.SinkCSV
		cfg.Sink.OutputPath, _ = flags.GetString("output")
	}
	if flags.Changed("include-subdomains") {
		cfg.Crawler.IncludeSubdomains, _ = flags.GetBool("include-subdomains")
	}
	if flags.Changed("ops-addr") {
		cfg.Ops.ListenAddr, _ = flags.GetString("ops-addr")
	}
}

func buildSink(ctx context.Context, cfg config.Config, logger *zap.Logger) (crawler.Sink, error) {
	switch cfg.Sink.Kind {
	case config.SinkPostgres:
		return sinkpkg.NewPostgresSink(ctx, sinkpkg.PostgresConfig{
			DSN:   cfg.Sink.PostgresDSN,
			Table: cfg.Sink.PostgresTable,
		})
	default:
		return sinkpkg.NewCSVSink(cfg.Sink.OutputPath, logger)
	}
}

func buildProgressHub(logger *zap.Logger) (*progress.Hub, error) {
	promSink, err := sinks.NewPrometheusSink(nil)
	if err != nil {
		return nil, err
	}
	return progress.NewHub(progress.Config{Logger: logger}, sinks.NewLogSink(logger), promSink), nil
}

func buildEngine(
	settings crawler.Config,
	cfg config.Config,
	productSink crawler.Sink,
	hub *progress.Hub,
	logger *zap.Logger,
) (*crawler.Engine, error) {
	scope := crawler.NewScope(settings.RootDomain, settings.IncludeSubdomains)
	frontier := crawler.NewFrontier(crawler.FrontierConfig{
		Scope:       scope,
		QueryPolicy: settings.QueryPolicy,
		MaxDepth:    settings.MaxDepth,
		DepthPolicy: settings.DepthPolicy,
		Logger:      logger,
	})

	fetcher, err := crawler.NewCollyFetcher(settings, logger)
	if err != nil {
		return nil, fmt.Errorf("init fetcher: %w", err)
	}

	extractor := extract.NewGoqueryExtractor(extract.Config{
		ProductSelector: cfg.Extract.ProductSelector,
		NameSelector:    cfg.Extract.NameSelector,
		PriceSelector:   cfg.Extract.PriceSelector,
	}, logger)

	retry := crawler.NewExponentialRetryPolicy(settings.MaxRetries, settings.BackoffBase, settings.BackoffMax)
	return crawler.NewEngine(settings, frontier, fetcher, extractor, productSink, retry, hub, logger), nil
}

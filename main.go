package main

import (
	"context"
	stderrors "errors"
	"os"
	"os/signal"
	"syscall"

	"sjsage522/salecrawler/config"
	"sjsage522/salecrawler/helpers"
	"sjsage522/salecrawler/internal/crawler"
	"sjsage522/salecrawler/logger"
	"sjsage522/salecrawler/services/cache"
	"sjsage522/salecrawler/services/publisher"
	"sjsage522/salecrawler/services/worker"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()

	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// newRootCommand builds the CLI. Flags default to the environment configuration.
func newRootCommand() *cobra.Command {
	cfg := config.LoadConfig()

	cmd := &cobra.Command{
		Use:          "salecrawler",
		Short:        "Collect discounted products from a catalog and rank them by discount",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.CatalogURL, "url", cfg.CatalogURL, "catalog page to start from")
	flags.StringVar(&cfg.LinkBaseURL, "link-base", cfg.LinkBaseURL, "base URL item links are resolved against")
	flags.StringVar(&cfg.Category, "category", cfg.Category, "catalog category")
	flags.StringVar(&cfg.ProductType, "type", cfg.ProductType, "product type within the category")
	flags.StringVar(&cfg.Brand, "brand", cfg.Brand, "brand to filter by")
	flags.StringVar(&cfg.Driver, "driver", cfg.Driver, "page driver: browser or static")
	flags.BoolVar(&cfg.Headless, "headless", cfg.Headless, "run the browser without a window")
	flags.DurationVar(&cfg.PageTimeout, "timeout", cfg.PageTimeout, "timeout of a single page operation")
	flags.IntVar(&cfg.MaxPages, "max-pages", cfg.MaxPages, "stop after this many pages (0 for no limit)")
	flags.StringVar(&cfg.ReportFormat, "format", cfg.ReportFormat, "report format: text, table or json")
	flags.BoolVar(&cfg.PublishEnabled, "publish", cfg.PublishEnabled, "publish ranked listings to Redis")
	flags.DurationVar(&cfg.RunInterval, "interval", cfg.RunInterval, "repeat the run at this interval (0 runs once)")

	return cmd
}

func run(cmd *cobra.Command, cfg *config.Config) error {
	log := logger.For("main")

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize services")
		return err
	}
	defer services.Cleanup()

	newSession, err := crawler.NewSessionFactory(cfg)
	if err != nil {
		return err
	}

	extractor := crawler.NewExtractor(cfg.Selectors, cfg.LinkBaseURL, cfg.ItemMaxAttempts)
	w := worker.NewWorker(worker.Options{
		NewSession:   newSession,
		Paginator:    crawler.NewPaginator(extractor, cfg.Selectors, cfg.MaxPages),
		Filter:       crawler.FilterFromConfig(cfg),
		CatalogURL:   cfg.CatalogURL,
		ReportFormat: cfg.ReportFormat,
		Output:       cmd.OutOrStdout(),
		Publisher:    services.Publisher,
		Cooldown:     cache.NewCooldown(services.Cache, cfg.RunCooldown),
		Logger:       helpers.NewLogger(cfg.ErrorLogFile),
		RunInterval:  cfg.RunInterval,
	})

	log.Info().
		Str("environment", cfg.Environment).
		Str("driver", cfg.Driver).
		Str("brand", cfg.Brand).
		Int("max_pages", cfg.MaxPages).
		Dur("run_interval", cfg.RunInterval).
		Msg("Starting application")

	if !cfg.IsProduction() {
		log.Debug().Interface("selectors", cfg.Selectors).Msg("Catalog selectors")
	}

	err = w.Start(ctx)
	switch {
	case stderrors.Is(err, cache.ErrCooldown):
		log.Info().Dur("cooldown", cfg.RunCooldown).Msg("Brand was scraped recently, nothing to do")
		return nil
	case ctx.Err() != nil:
		log.Info().Msg("Shutting down gracefully...")
		return nil
	}
	return err
}

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}

// initializeServices initializes the cooldown cache and the publisher
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{
		Cache:     cache.New(cfg.MemcacheAddr),
		Publisher: publisher.NopPublisher{},
	}

	if cfg.MemcacheAddr != "" {
		logger.Info("Using Memcache at %s for run cooldowns", cfg.MemcacheAddr)
	}

	if !cfg.PublishEnabled {
		return services, nil
	}

	redisPublisher := publisher.NewRedisPublisher(
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamCount,
		cfg.RedisStreamMaxLength,
	)
	if err := redisPublisher.Ping(ctx); err != nil {
		redisPublisher.Close()
		return nil, err
	}
	services.Publisher = redisPublisher

	logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
		cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)

	return services, nil
}

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/tonglam/notion-syncer/internal/blobstore"
	"github.com/tonglam/notion-syncer/internal/config"
	"github.com/tonglam/notion-syncer/internal/enrich"
	"github.com/tonglam/notion-syncer/internal/publisher"
	"github.com/tonglam/notion-syncer/internal/ratelimit"
	"github.com/tonglam/notion-syncer/internal/scheduler"
	"github.com/tonglam/notion-syncer/internal/service"
	"github.com/tonglam/notion-syncer/internal/source/notion"
	"github.com/tonglam/notion-syncer/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	notionLimiter, err := ratelimit.New(cfg.Notion.RateLimit.PerSecond, cfg.Notion.RateLimit.PerMinute)
	if err != nil {
		logger.Error("invalid notion rate limit", "error", err)
		os.Exit(1)
	}
	textLimiter, err := ratelimit.New(cfg.Text.RateLimit.PerSecond, cfg.Text.RateLimit.PerMinute)
	if err != nil {
		logger.Error("invalid text rate limit", "error", err)
		os.Exit(1)
	}
	imageLimiter, err := ratelimit.New(cfg.Image.RateLimit.PerSecond, cfg.Image.RateLimit.PerMinute)
	if err != nil {
		logger.Error("invalid image rate limit", "error", err)
		os.Exit(1)
	}

	postStore := postgres.NewPostStore(db)
	writer := postgres.NewWriter(db, logger)

	notionSource := notion.New(notion.Config{
		BaseURL:        cfg.Notion.BaseURL,
		Token:          cfg.Notion.Token,
		Version:        cfg.Notion.Version,
		RootPageID:     cfg.Notion.RootPageID,
		PageSize:       cfg.Notion.PageSize,
		Timeout:        cfg.Notion.Timeout,
		MaxAttempts:    cfg.Notion.Retry.MaxAttempts,
		InitialBackoff: cfg.Notion.Retry.InitialBackoff,
		MaxBackoff:     cfg.Notion.Retry.MaxBackoff,
	}, notionLimiter, logger)

	textClient := enrich.NewTextClient(enrich.TextConfig{
		BaseURL: cfg.Text.BaseURL,
		APIKey:  cfg.Text.APIKey,
		Model:   cfg.Text.Model,
		Timeout: cfg.Text.Timeout,
	}, textLimiter, logger)

	imageClient := enrich.NewImageClient(enrich.ImageConfig{
		BaseURL: cfg.Image.BaseURL,
		APIKey:  cfg.Image.APIKey,
		Timeout: cfg.Image.Timeout,
	}, imageLimiter, logger)

	blobClient := blobstore.New(blobstore.Config{
		Endpoint:            cfg.Storage.Endpoint,
		Bucket:              cfg.Storage.Bucket,
		AccessToken:         cfg.Storage.AccessToken,
		PublicBaseURL:       cfg.Storage.PublicBaseURL,
		AllowedContentTypes: cfg.Storage.AllowedContentTypes,
		MaxBytes:            cfg.Storage.MaxBytes,
		Timeout:             cfg.Storage.Timeout,
	}, logger)

	reconcileService := service.NewReconcileService(
		notionSource,
		postStore,
		writer,
		rabbitMQ,
		logger,
		cfg.Sync,
	)
	enrichService := service.NewEnrichService(
		postStore,
		textClient,
		imageClient,
		writer,
		logger,
		cfg.Enrich,
	)
	collectService := service.NewCollectService(
		postStore,
		imageClient,
		blobClient,
		writer,
		logger,
		cfg.Collect,
	)

	sched := scheduler.New(logger)

	registrations := []struct {
		name    string
		spec    string
		timeout time.Duration
		run     scheduler.RunFunc
	}{
		{"reconcile", cfg.Sync.Schedule, cfg.Sync.RunTimeout, func(ctx context.Context) error {
			_, err := reconcileService.Reconcile(ctx)
			return err
		}},
		{"enrich", cfg.Enrich.Schedule, cfg.Enrich.RunTimeout, func(ctx context.Context) error {
			_, err := enrichService.Enrich(ctx)
			return err
		}},
		{"collect", cfg.Collect.Schedule, cfg.Collect.RunTimeout, func(ctx context.Context) error {
			_, err := collectService.Collect(ctx)
			return err
		}},
	}
	for _, r := range registrations {
		if err := sched.Register(r.name, r.spec, r.timeout, r.run); err != nil {
			logger.Error("failed to register workflow", "workflow", r.name, "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting notion syncer",
		"source", notionSource.Name(),
		"reconcile_schedule", cfg.Sync.Schedule,
		"enrich_schedule", cfg.Enrich.Schedule,
		"collect_schedule", cfg.Collect.Schedule,
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okabe-lab/assetdesk-backend/internal/imports"
	"github.com/okabe-lab/assetdesk-backend/internal/items"
	"github.com/okabe-lab/assetdesk-backend/internal/locations"
	"github.com/okabe-lab/assetdesk-backend/internal/users"
	"github.com/okabe-lab/assetdesk-backend/pkg/config"
	"github.com/okabe-lab/assetdesk-backend/pkg/db"
	"github.com/okabe-lab/assetdesk-backend/pkg/logger"
	"github.com/okabe-lab/assetdesk-backend/pkg/metrics"
	"github.com/okabe-lab/assetdesk-backend/pkg/pubsub"
	"github.com/okabe-lab/assetdesk-backend/pkg/storage/gcs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg := logger.New(logger.Options{ServiceName: "import-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "import-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap gcs", err)
		os.Exit(1)
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	consumer, err := imports.NewConsumer(imports.ConsumerParams{
		Subscription: pubsubClient.ImportsSubscription(),
		Storage:      gcsClient.BucketHandle(""),
		Items:        items.NewRepository(dbClient.DB()),
		Locations:    locations.NewRepository(dbClient.DB()),
		Users:        users.NewRepository(dbClient.DB()),
		Metrics:      metrics.NewImportJobMetrics(registry),
		Logger:       logg,
		BatchSize:    cfg.Import.BatchSize,
	})
	if err != nil {
		logg.Error(ctx, "failed to build import consumer", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		PubSub:   pubsubClient,
		GCS:      gcsClient,
		Consumer: consumer,
	})
	if err != nil {
		logg.Error(ctx, "failed to build worker service", err)
		os.Exit(1)
	}

	go serveMetrics(ctx, cfg, logg, registry)

	logg.Info(logg.WithField(ctx, "env", cfg.App.Env), "starting import worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "import worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "import worker shutting down gracefully")
}

// serveMetrics exposes the prometheus registry on the configured port so the
// worker can be scraped alongside the api.
func serveMetrics(ctx context.Context, cfg *config.Config, logg *logger.Logger, registry *prometheus.Registry) {
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "metrics server stopped unexpectedly", err)
	}
}

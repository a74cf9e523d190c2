package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"github.com/okabe-lab/assetdesk-backend/api/controllers"
	"github.com/okabe-lab/assetdesk-backend/api/routes"
	authsvc "github.com/okabe-lab/assetdesk-backend/internal/auth"
	"github.com/okabe-lab/assetdesk-backend/internal/dashboard"
	"github.com/okabe-lab/assetdesk-backend/internal/imports"
	"github.com/okabe-lab/assetdesk-backend/internal/items"
	"github.com/okabe-lab/assetdesk-backend/internal/loans"
	"github.com/okabe-lab/assetdesk-backend/internal/locations"
	"github.com/okabe-lab/assetdesk-backend/internal/users"
	"github.com/okabe-lab/assetdesk-backend/pkg/auth/session"
	"github.com/okabe-lab/assetdesk-backend/pkg/config"
	"github.com/okabe-lab/assetdesk-backend/pkg/db"
	"github.com/okabe-lab/assetdesk-backend/pkg/logger"
	"github.com/okabe-lab/assetdesk-backend/pkg/migrate"
	"github.com/okabe-lab/assetdesk-backend/pkg/pubsub"
	"github.com/okabe-lab/assetdesk-backend/pkg/redis"
	"github.com/okabe-lab/assetdesk-backend/pkg/shadow"
	"github.com/okabe-lab/assetdesk-backend/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs", err)
		os.Exit(1)
	}

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	shadowClient, err := shadow.NewClient(cfg.Shadow, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap shadow client", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	itemsRepo := items.NewRepository(dbClient.DB())
	loansRepo := loans.NewRepository(dbClient.DB())
	locationsRepo := locations.NewRepository(dbClient.DB())

	authService, err := authsvc.NewService(authsvc.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	exitOnError(logg, "failed to create auth service", err)

	registerService, err := authsvc.NewRegisterService(authsvc.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	exitOnError(logg, "failed to create register service", err)

	itemsService, err := items.NewService(items.ServiceParams{
		Repo:         itemsRepo,
		LocationRepo: locationsRepo,
		UserRepo:     usersRepo,
	})
	exitOnError(logg, "failed to create items service", err)

	scanService, err := items.NewScanService(items.ScanServiceParams{
		TxRunner: dbClient,
		ItemRepoFactory: func(tx *gorm.DB) items.ScanItemRepository {
			return itemsRepo.WithTx(tx)
		},
		LoanRepoFactory: func(tx *gorm.DB) items.ScanLoanRepository {
			return loansRepo.WithTx(tx)
		},
	})
	exitOnError(logg, "failed to create scan service", err)

	loansService, err := loans.NewService(loans.ServiceParams{
		TxRunner: dbClient,
		LoanRepoFactory: func(tx *gorm.DB) loans.Repository {
			return loansRepo.WithTx(tx)
		},
		ItemRepoFactory: func(tx *gorm.DB) loans.DecisionItemRepository {
			return itemsRepo.WithTx(tx)
		},
	})
	exitOnError(logg, "failed to create loans service", err)

	locationsService, err := locations.NewService(locations.ServiceParams{
		Repo:   locationsRepo,
		Shadow: shadowClient,
		Logger: logg,
	})
	exitOnError(logg, "failed to create locations service", err)

	importsService, err := imports.NewService(imports.ServiceParams{
		Storage:   gcsClient.BucketHandle(""),
		Publisher: imports.NewTopicPublisher(pubsubClient.ImportsPublisher()),
		Config:    cfg.Import,
		Logger:    logg,
	})
	exitOnError(logg, "failed to create imports service", err)

	dashboardService, err := dashboard.NewService(dashboard.ServiceParams{
		Users:     usersRepo,
		Items:     itemsRepo,
		Loans:     loansRepo,
		Locations: locationsRepo,
	})
	exitOnError(logg, "failed to create dashboard service", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := routes.NewRouter(routes.Dependencies{
		Config:         cfg,
		Logger:         logg,
		Redis:          redisClient,
		SessionChecker: sessionManager,
		Pingers: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
			"gcs":      gcsClient,
			"pubsub":   pubsubClient,
		},
		Metrics: registry,
	}, routes.Services{
		Auth:      authService,
		Register:  registerService,
		Items:     itemsService,
		Scan:      scanService,
		Imports:   importsService,
		Loans:     loansService,
		Locations: locationsService,
		Dashboard: dashboardService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func exitOnError(logg *logger.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}

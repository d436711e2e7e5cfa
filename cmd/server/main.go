package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolio-dashboard/internal/api"
	"portfolio-dashboard/internal/backend"
	"portfolio-dashboard/internal/cache"
	"portfolio-dashboard/internal/config"
	"portfolio-dashboard/internal/database"
	"portfolio-dashboard/internal/events"
	"portfolio-dashboard/internal/logging"
	"portfolio-dashboard/internal/market"
	"portfolio-dashboard/internal/metrics"
	"portfolio-dashboard/internal/repositories"
	"portfolio-dashboard/internal/services"
	"portfolio-dashboard/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const metricsInterval = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log)
	log := logging.Component(logger, "server")

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	// Notification state store
	db, err := database.Initialize(cfg.Database, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer database.Close(db)

	var gormDB *gorm.DB
	if db != nil {
		gormDB = db.DB
	}
	repos := repositories.NewRepositories(gormDB)

	// Query cache and upstream clients
	queryCache := cache.New(cfg.Cache, logger, cache.WithObserver(m))
	backendClient := backend.NewClient(cfg.Backend, logger).WithObserver(m)
	marketClient := market.NewClient(cfg.Market, logger).WithObserver(m)

	// Notification events
	var publisher services.EventPublisher = events.NopPublisher{}
	var natsClient *events.Client
	if cfg.NATS.Enabled {
		natsClient, err = events.NewClient(cfg.NATS, logger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize NATS")
		}
		defer natsClient.Close()
		publisher = events.NewNotificationPublisher(natsClient, cfg.NATS.Subject).WithRecorder(m)
	}

	// Services
	dashboardService := services.NewDashboardService(queryCache, cfg.Dashboard, logger)
	notificationCenter := services.NewNotificationCenter(dashboardService, repos.NotificationState, publisher, cfg.Dashboard.NotificationLimit, logger)
	withdrawalService := services.NewWithdrawalService(dashboardService, cfg.Dashboard.MinWithdrawal, logger)
	marketService := services.NewMarketService(marketClient, queryCache, logger)

	// Gauges and housekeeping
	sources := metrics.UpdaterSources{
		States:    notificationCenter,
		Retention: metrics.DefaultRetention,
	}
	if store, ok := queryCache.Store().(*cache.MemoryStore); ok {
		sources.Cache = store
	}
	if db != nil {
		if sqlDB, err := db.DB.DB(); err == nil {
			sources.DB = sqlDB
		}
	}
	if natsClient != nil {
		sources.NATS = natsClient
	}
	updater := metrics.NewMetricsUpdater(m, sources, metricsInterval, logger)
	updater.Start()
	defer updater.Stop()

	// Health checks
	health := api.NewHealthHandler().
		Register("cache", queryCache.Store().Ping)
	if db != nil {
		health.Register("database", func(context.Context) error { return db.HealthCheck() })
	}
	if natsClient != nil {
		health.RegisterOptional("nats", natsClient.HealthCheck)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	apiServer := api.NewServer(cfg, api.Dependencies{
		Accounts: func(s *auth.Session) services.Account {
			return backendClient.ForUser(s)
		},
		Dashboard:     dashboardService,
		Notifications: notificationCenter,
		Withdrawals:   withdrawalService,
		Market:        marketService,
		Health:        health,
		Metrics:       m,
		Gatherer:      prometheus.DefaultGatherer,
		Logger:        logger,
	})
	router := apiServer.SetupRoutes()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("version", api.Version).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}

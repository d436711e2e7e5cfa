package api

import (
	"context"

	"portfolio-dashboard/internal/config"
	"portfolio-dashboard/internal/metrics"
	"portfolio-dashboard/internal/middleware"
	"portfolio-dashboard/internal/poller"
	"portfolio-dashboard/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Dependencies are the services the API server exposes
type Dependencies struct {
	Accounts      AccountFactory
	Dashboard     DashboardServiceInterface
	Notifications NotificationServiceInterface
	Withdrawals   WithdrawalServiceInterface
	Market        MarketServiceInterface
	Health        *HealthHandler
	// Metrics may be nil
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

// Server represents the API server
type Server struct {
	router *gin.Engine
	config *config.Config
	deps   Dependencies
	scope  *sessionScope
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, deps Dependencies) *Server {
	if deps.Health == nil {
		deps.Health = NewHealthHandler()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	registerFieldNames()

	s := &Server{config: cfg, deps: deps}
	s.scope = &sessionScope{
		accounts: deps.Accounts,
		onExpire: s.forget,
	}
	return s
}

// forget drops everything cached for a session once the backend rejected it
func (s *Server) forget(caller services.Caller) {
	s.deps.Dashboard.Forget(context.Background(), caller.Owner)
	s.deps.Notifications.Forget(caller)
	s.deps.Logger.Info().Str("owner", caller.Owner).Msg("session expired, cached data dropped")
}

// SetupRoutes sets up all API routes
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	m := s.deps.Metrics

	// Global middleware
	router.Use(middleware.RequestIDMiddleware())
	if m != nil {
		router.Use(middleware.ErrorLoggingMiddleware(s.deps.Logger, m))
		router.Use(m.HTTPMetricsMiddleware())
		router.Use(middleware.MonitoringMiddleware(m))
	} else {
		router.Use(middleware.ErrorLoggingMiddleware(s.deps.Logger, nil))
	}
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(s.config.Server.AllowedOrigins))
	router.Use(middleware.HealthCheckLoggingMiddleware(s.deps.Logger))

	// Health check and metrics endpoints (no authentication required)
	s.setupHealthRoutes(router)

	api := router.Group("/v1")

	// Public market data
	s.setupMarketRoutes(api)

	// Protected routes (require a session)
	var authRecorder middleware.AuthRecorder
	if m != nil {
		authRecorder = m
	}
	protected := api.Group("")
	protected.Use(middleware.SessionMiddleware(authRecorder))
	protected.Use(middleware.APIRateLimitMiddleware())

	s.setupDashboardRoutes(protected)
	s.setupNotificationRoutes(protected)
	s.setupWithdrawalRoutes(protected)
	s.setupStreamRoutes(protected)

	s.router = router
	return router
}

// setupHealthRoutes sets up health check routes
func (s *Server) setupHealthRoutes(router *gin.Engine) {
	router.GET("/health/live", s.deps.Health.Liveness)
	router.GET("/health/ready", s.deps.Health.Readiness)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
}

// setupMarketRoutes sets up public market data routes
func (s *Server) setupMarketRoutes(api *gin.RouterGroup) {
	marketHandler := NewMarketHandler(s.deps.Market, s.config.Market.DefaultSymbols)

	market := api.Group("/market")
	market.Use(middleware.RateLimitMiddleware(middleware.RateLimitConfig{RequestsPerMinute: 120, Burst: 30}))

	market.GET("/tickers", marketHandler.GetTickers)
	market.GET("/prices", marketHandler.GetPrices)
	market.GET("/overview", marketHandler.GetOverview)
	market.GET("/klines", marketHandler.GetKlines)
	market.GET("/coins", marketHandler.GetCoins)
}

// setupDashboardRoutes sets up dashboard widget routes
func (s *Server) setupDashboardRoutes(protected *gin.RouterGroup) {
	dashboardHandler := NewDashboardHandler(s.scope, s.deps.Dashboard)

	dashboard := protected.Group("/dashboard")

	dashboard.GET("/portfolio", dashboardHandler.GetPortfolio)
	dashboard.GET("/allocation", dashboardHandler.GetAllocation)
	dashboard.GET("/achievements", dashboardHandler.GetAchievements)
	dashboard.GET("/activity", dashboardHandler.GetActivity)
	dashboard.GET("/summary", dashboardHandler.GetSummary)
	dashboard.POST("/refresh", dashboardHandler.Refresh)
}

// setupNotificationRoutes sets up notification center routes
func (s *Server) setupNotificationRoutes(protected *gin.RouterGroup) {
	notificationHandler := NewNotificationHandler(s.scope, s.deps.Notifications)

	notifications := protected.Group("/notifications")

	notifications.GET("", notificationHandler.ListNotifications)
	notifications.POST("/read-all", notificationHandler.MarkAllRead)
	notifications.POST("/:id/read", notificationHandler.MarkRead)
	notifications.DELETE("/state", notificationHandler.Reset)
	notifications.DELETE("/:id", notificationHandler.Dismiss)
}

// setupWithdrawalRoutes sets up withdrawal routes
func (s *Server) setupWithdrawalRoutes(protected *gin.RouterGroup) {
	var recorder WithdrawalRecorder
	if s.deps.Metrics != nil {
		recorder = s.deps.Metrics
	}
	withdrawalHandler := NewWithdrawalHandler(s.scope, s.deps.Withdrawals, recorder)

	withdrawals := protected.Group("/withdrawals")

	withdrawals.GET("/config", withdrawalHandler.GetWithdrawalConfig)
	withdrawals.POST("", middleware.WithdrawalRateLimitMiddleware(), withdrawalHandler.CreateWithdrawal)
}

// setupStreamRoutes sets up the WebSocket push route
func (s *Server) setupStreamRoutes(protected *gin.RouterGroup) {
	var (
		streams StreamObserver
		polls   poller.Observer
	)
	if s.deps.Metrics != nil {
		streams = s.deps.Metrics
		polls = s.deps.Metrics
	}
	streamHandler := NewStreamHandler(
		s.scope,
		s.deps.Dashboard,
		s.deps.Notifications,
		s.config.PollInterval(),
		s.config.Server.AllowedOrigins,
		streams,
		polls,
		s.deps.Logger,
	)

	protected.GET("/ws/stream", streamHandler.Stream)
}

// GetRouter returns the configured router
func (s *Server) GetRouter() *gin.Engine {
	if s.router == nil {
		return s.SetupRoutes()
	}
	return s.router
}

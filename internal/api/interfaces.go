package api

import (
	"context"

	"portfolio-dashboard/internal/market"
	"portfolio-dashboard/internal/models"
	"portfolio-dashboard/internal/services"
	"portfolio-dashboard/pkg/auth"
)

// AccountFactory binds a backend account client to a request session
type AccountFactory func(session *auth.Session) services.Account

// DashboardServiceInterface defines the interface for dashboard widget operations
type DashboardServiceInterface interface {
	Portfolio(ctx context.Context, owner string, reader services.AccountReader) (*services.PortfolioView, error)
	Allocation(ctx context.Context, owner string, reader services.AccountReader) (*services.AllocationView, error)
	Achievements(ctx context.Context, owner string, reader services.AccountReader) (*services.AchievementsView, error)
	Activity(ctx context.Context, owner string, reader services.AccountReader) (*services.ActivityView, error)
	Summary(ctx context.Context, owner string, reader services.AccountReader) (*services.SummaryView, error)
	Invalidate(ctx context.Context, owner string, resources ...services.Resource)
	Forget(ctx context.Context, owner string)
}

// NotificationServiceInterface defines the interface for notification center operations
type NotificationServiceInterface interface {
	List(ctx context.Context, caller services.Caller, reader services.AccountReader) (*services.NotificationFeed, error)
	MarkRead(ctx context.Context, caller services.Caller, reader services.AccountReader, notificationID string) error
	MarkAllRead(ctx context.Context, caller services.Caller, reader services.AccountReader) (int, error)
	Dismiss(ctx context.Context, caller services.Caller, reader services.AccountReader, notificationID string) error
	Reset(ctx context.Context, caller services.Caller, reader services.AccountReader) error
	Forget(caller services.Caller)
}

// WithdrawalServiceInterface defines the interface for withdrawal operations
type WithdrawalServiceInterface interface {
	Create(ctx context.Context, owner string, account services.Account, req *services.WithdrawalRequest) (*models.Withdrawal, error)
	MinWithdrawal() float64
}

// MarketServiceInterface defines the interface for market data operations
type MarketServiceInterface interface {
	Tickers(ctx context.Context, symbols []string) (*services.TickersView, error)
	Prices(ctx context.Context, symbols []string) ([]market.PriceTicker, error)
	Overview(ctx context.Context, symbols []string) (*market.Overview, error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]market.Kline, error)
	Coins(ctx context.Context, vsCurrency string, perPage int) ([]market.Coin, error)
}

// WithdrawalRecorder receives withdrawal outcomes
type WithdrawalRecorder interface {
	RecordWithdrawal(result string)
}

// StreamObserver tracks open WebSocket streams
type StreamObserver interface {
	StreamOpened()
	StreamClosed()
}

var (
	_ DashboardServiceInterface    = (*services.DashboardService)(nil)
	_ NotificationServiceInterface = (*services.NotificationCenter)(nil)
	_ WithdrawalServiceInterface   = (*services.WithdrawalService)(nil)
	_ MarketServiceInterface       = (*services.MarketService)(nil)
)

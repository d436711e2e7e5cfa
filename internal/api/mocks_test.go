package api

import (
	"context"

	"portfolio-dashboard/internal/backend"
	"portfolio-dashboard/internal/market"
	"portfolio-dashboard/internal/models"
	"portfolio-dashboard/internal/services"

	"github.com/stretchr/testify/mock"
)

type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Portfolio(ctx context.Context, owner string, reader services.AccountReader) (*services.PortfolioView, error) {
	args := m.Called(ctx, owner, reader)
	if v := args.Get(0); v != nil {
		return v.(*services.PortfolioView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDashboardService) Allocation(ctx context.Context, owner string, reader services.AccountReader) (*services.AllocationView, error) {
	args := m.Called(ctx, owner, reader)
	if v := args.Get(0); v != nil {
		return v.(*services.AllocationView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDashboardService) Achievements(ctx context.Context, owner string, reader services.AccountReader) (*services.AchievementsView, error) {
	args := m.Called(ctx, owner, reader)
	if v := args.Get(0); v != nil {
		return v.(*services.AchievementsView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDashboardService) Activity(ctx context.Context, owner string, reader services.AccountReader) (*services.ActivityView, error) {
	args := m.Called(ctx, owner, reader)
	if v := args.Get(0); v != nil {
		return v.(*services.ActivityView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDashboardService) Summary(ctx context.Context, owner string, reader services.AccountReader) (*services.SummaryView, error) {
	args := m.Called(ctx, owner, reader)
	if v := args.Get(0); v != nil {
		return v.(*services.SummaryView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDashboardService) Invalidate(ctx context.Context, owner string, resources ...services.Resource) {
	m.Called(ctx, owner, resources)
}

func (m *MockDashboardService) Forget(ctx context.Context, owner string) {
	m.Called(ctx, owner)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) List(ctx context.Context, caller services.Caller, reader services.AccountReader) (*services.NotificationFeed, error) {
	args := m.Called(ctx, caller, reader)
	if v := args.Get(0); v != nil {
		return v.(*services.NotificationFeed), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, caller services.Caller, reader services.AccountReader, notificationID string) error {
	return m.Called(ctx, caller, reader, notificationID).Error(0)
}

func (m *MockNotificationService) MarkAllRead(ctx context.Context, caller services.Caller, reader services.AccountReader) (int, error) {
	args := m.Called(ctx, caller, reader)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationService) Dismiss(ctx context.Context, caller services.Caller, reader services.AccountReader, notificationID string) error {
	return m.Called(ctx, caller, reader, notificationID).Error(0)
}

func (m *MockNotificationService) Reset(ctx context.Context, caller services.Caller, reader services.AccountReader) error {
	return m.Called(ctx, caller, reader).Error(0)
}

func (m *MockNotificationService) Forget(caller services.Caller) {
	m.Called(caller)
}

type MockWithdrawalService struct {
	mock.Mock
}

func (m *MockWithdrawalService) Create(ctx context.Context, owner string, account services.Account, req *services.WithdrawalRequest) (*models.Withdrawal, error) {
	args := m.Called(ctx, owner, account, req)
	if v := args.Get(0); v != nil {
		return v.(*models.Withdrawal), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockWithdrawalService) MinWithdrawal() float64 {
	return m.Called().Get(0).(float64)
}

type MockMarketService struct {
	mock.Mock
}

func (m *MockMarketService) Tickers(ctx context.Context, symbols []string) (*services.TickersView, error) {
	args := m.Called(ctx, symbols)
	if v := args.Get(0); v != nil {
		return v.(*services.TickersView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMarketService) Prices(ctx context.Context, symbols []string) ([]market.PriceTicker, error) {
	args := m.Called(ctx, symbols)
	if v := args.Get(0); v != nil {
		return v.([]market.PriceTicker), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMarketService) Overview(ctx context.Context, symbols []string) (*market.Overview, error) {
	args := m.Called(ctx, symbols)
	if v := args.Get(0); v != nil {
		return v.(*market.Overview), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMarketService) Klines(ctx context.Context, symbol, interval string, limit int) ([]market.Kline, error) {
	args := m.Called(ctx, symbol, interval, limit)
	if v := args.Get(0); v != nil {
		return v.([]market.Kline), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMarketService) Coins(ctx context.Context, vsCurrency string, perPage int) ([]market.Coin, error) {
	args := m.Called(ctx, vsCurrency, perPage)
	if v := args.Get(0); v != nil {
		return v.([]market.Coin), args.Error(1)
	}
	return nil, args.Error(1)
}

// stubAccount is handed to the mocked services, which never call it
type stubAccount struct{}

func (stubAccount) Profile(context.Context) (*models.Profile, error) { return nil, nil }

func (stubAccount) Trades(context.Context) ([]models.Trade, error) { return nil, nil }

func (stubAccount) Deposits(context.Context) ([]models.Deposit, error) { return nil, nil }

func (stubAccount) Withdrawals(context.Context) ([]models.Withdrawal, error) { return nil, nil }

func (stubAccount) IdentityStatus(context.Context) (*models.IdentityRecord, error) { return nil, nil }

func (stubAccount) VerifyFundPassword(context.Context, backend.VerifyFundPasswordRequest) (bool, error) {
	return true, nil
}

func (stubAccount) CreateWithdrawal(context.Context, backend.CreateWithdrawalRequest) (*models.Withdrawal, error) {
	return nil, nil
}

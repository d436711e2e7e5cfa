package services

import (
	"context"

	"portfolio-dashboard/internal/backend"
	"portfolio-dashboard/internal/market"
	"portfolio-dashboard/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockAccount struct {
	mock.Mock
}

func (m *MockAccount) Profile(ctx context.Context) (*models.Profile, error) {
	args := m.Called(ctx)
	if p := args.Get(0); p != nil {
		return p.(*models.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccount) Trades(ctx context.Context) ([]models.Trade, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]models.Trade), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccount) Deposits(ctx context.Context) ([]models.Deposit, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]models.Deposit), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccount) Withdrawals(ctx context.Context) ([]models.Withdrawal, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]models.Withdrawal), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccount) IdentityStatus(ctx context.Context) (*models.IdentityRecord, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*models.IdentityRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccount) VerifyFundPassword(ctx context.Context, req backend.VerifyFundPasswordRequest) (bool, error) {
	args := m.Called(ctx, req)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccount) CreateWithdrawal(ctx context.Context, req backend.CreateWithdrawalRequest) (*models.Withdrawal, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*models.Withdrawal), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishNotifications(ctx context.Context, owner string, notifications []models.Notification) error {
	return m.Called(ctx, owner, notifications).Error(0)
}

type MockMarketSource struct {
	mock.Mock
}

func (m *MockMarketSource) Tickers(ctx context.Context, symbols []string) ([]market.Ticker24hr, error) {
	args := m.Called(ctx, symbols)
	if v := args.Get(0); v != nil {
		return v.([]market.Ticker24hr), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMarketSource) Klines(ctx context.Context, symbol, interval string, limit int) ([]market.Kline, error) {
	args := m.Called(ctx, symbol, interval, limit)
	if v := args.Get(0); v != nil {
		return v.([]market.Kline), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMarketSource) Coins(ctx context.Context, vsCurrency string, perPage int) ([]market.Coin, error) {
	args := m.Called(ctx, vsCurrency, perPage)
	if v := args.Get(0); v != nil {
		return v.([]market.Coin), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMarketSource) Prices(ctx context.Context, symbols []string) ([]market.PriceTicker, error) {
	args := m.Called(ctx, symbols)
	if v := args.Get(0); v != nil {
		return v.([]market.PriceTicker), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMarketSource) Overview(ctx context.Context, symbols []string, movers int) (*market.Overview, error) {
	args := m.Called(ctx, symbols, movers)
	if v := args.Get(0); v != nil {
		return v.(*market.Overview), args.Error(1)
	}
	return nil, args.Error(1)
}

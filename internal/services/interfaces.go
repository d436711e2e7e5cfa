package services

import (
	"context"

	"portfolio-dashboard/internal/backend"
	"portfolio-dashboard/internal/models"
)

// AccountReader is the read side of the backend a dashboard needs.
// *backend.UserClient satisfies it.
type AccountReader interface {
	Profile(ctx context.Context) (*models.Profile, error)
	Trades(ctx context.Context) ([]models.Trade, error)
	Deposits(ctx context.Context) ([]models.Deposit, error)
	Withdrawals(ctx context.Context) ([]models.Withdrawal, error)
	IdentityStatus(ctx context.Context) (*models.IdentityRecord, error)
}

// AccountWriter is the mutation side used by the withdrawal flow
type AccountWriter interface {
	VerifyFundPassword(ctx context.Context, req backend.VerifyFundPasswordRequest) (bool, error)
	CreateWithdrawal(ctx context.Context, req backend.CreateWithdrawalRequest) (*models.Withdrawal, error)
}

// Account is the full per-user backend surface
type Account interface {
	AccountReader
	AccountWriter
}

// EventPublisher announces notifications seen for the first time
type EventPublisher interface {
	PublishNotifications(ctx context.Context, owner string, notifications []models.Notification) error
}

var _ Account = (*backend.UserClient)(nil)

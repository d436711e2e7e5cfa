package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"portfolio-dashboard/internal/aggregation"
	"portfolio-dashboard/internal/backend"
	"portfolio-dashboard/internal/models"

	"github.com/rs/zerolog"
)

// DefaultMinWithdrawal is the smallest amount accepted, in USD
const DefaultMinWithdrawal = 10.0

// WithdrawalRequest is the body of a withdrawal submission
type WithdrawalRequest struct {
	Amount       float64 `json:"amount" binding:"required,gt=0"`
	Address      string  `json:"address" binding:"required,min=1,max=128"`
	Network      string  `json:"network" binding:"omitempty,max=32"`
	FundPassword string  `json:"fundPassword" binding:"required"`
}

// WithdrawalService validates withdrawals before they reach the backend
type WithdrawalService struct {
	dashboard     *DashboardService
	minWithdrawal float64
	logger        zerolog.Logger
}

// NewWithdrawalService creates a withdrawal service
func NewWithdrawalService(dashboard *DashboardService, minWithdrawal float64, logger zerolog.Logger) *WithdrawalService {
	if minWithdrawal <= 0 {
		minWithdrawal = DefaultMinWithdrawal
	}
	return &WithdrawalService{
		dashboard:     dashboard,
		minWithdrawal: minWithdrawal,
		logger:        logger.With().Str("component", "withdrawal_service").Logger(),
	}
}

// MinWithdrawal returns the configured minimum
func (s *WithdrawalService) MinWithdrawal() float64 {
	return s.minWithdrawal
}

// Validate applies the withdrawal limits to an already bound request
func (s *WithdrawalService) Validate(req *WithdrawalRequest) error {
	if req.Amount < s.minWithdrawal {
		return invalid("amount", "minimum withdrawal is %s", aggregation.FormatUSD(s.minWithdrawal))
	}
	if strings.TrimSpace(req.Address) == "" {
		return invalid("address", "is required")
	}
	return nil
}

// Create validates req, checks it against the balance and fund password and
// submits it. The withdrawal and profile caches of owner are invalidated.
func (s *WithdrawalService) Create(ctx context.Context, owner string, account Account, req *WithdrawalRequest) (*models.Withdrawal, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	batch, err := s.dashboard.Load(ctx, owner, account, ResourceProfile)
	if err != nil {
		return nil, err
	}
	if batch.Loaded(ResourceProfile) && batch.Snapshot.Profile != nil && req.Amount > batch.Snapshot.Profile.Balance {
		return nil, invalid("amount", "exceeds available balance of %s", aggregation.FormatUSD(batch.Snapshot.Profile.Balance))
	}

	ok, err := account.VerifyFundPassword(ctx, backend.VerifyFundPasswordRequest{FundPassword: req.FundPassword})
	if err != nil {
		return nil, fmt.Errorf("failed to verify fund password: %w", err)
	}
	if !ok {
		return nil, invalid("fundPassword", "is incorrect")
	}

	withdrawal, err := account.CreateWithdrawal(ctx, backend.CreateWithdrawalRequest{
		Amount:       req.Amount,
		Address:      strings.TrimSpace(req.Address),
		Network:      strings.TrimSpace(req.Network),
		FundPassword: req.FundPassword,
	})
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest && apiErr.Message != "" {
			return nil, invalid("withdrawal", "%s", apiErr.Message)
		}
		return nil, fmt.Errorf("failed to create withdrawal: %w", err)
	}

	s.dashboard.Invalidate(ctx, owner, ResourceWithdrawals, ResourceProfile)
	s.logger.Info().Str("owner", owner).Float64("amount", req.Amount).Msg("withdrawal submitted")
	return withdrawal, nil
}

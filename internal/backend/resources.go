package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"portfolio-dashboard/internal/models"
	"portfolio-dashboard/pkg/auth"
)

// UserClient performs authenticated calls on behalf of one user
type UserClient struct {
	parent   *Client
	provider auth.TokenProvider
	http     *http.Client
}

// Upload is a file attached to a multipart request
type Upload struct {
	FieldName string
	FileName  string
	Content   io.Reader
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type VerifyFundPasswordRequest struct {
	FundPassword string `json:"fundPassword"`
}

type CreateTradeRequest struct {
	TradePair        string  `json:"tradePair"`
	TradeType        string  `json:"tradeType"`
	TradingAmountUSD float64 `json:"tradingAmountUSD"`
	Duration         int     `json:"duration,omitempty"`
}

type CreateDepositRequest struct {
	Amount  float64
	Network string
	Receipt *Upload
}

type CreateWithdrawalRequest struct {
	Amount       float64 `json:"amount"`
	Address      string  `json:"address"`
	Network      string  `json:"network"`
	FundPassword string  `json:"fundPassword,omitempty"`
}

type IdentityRequest struct {
	FullName       string
	DocumentType   string
	DocumentNumber string
	Documents      []Upload
}

func (u *UserClient) getJSON(ctx context.Context, path string, out interface{}) error {
	return u.parent.doJSON(ctx, u.http, u.provider, http.MethodGet, path, nil, out)
}

func (u *UserClient) sendJSON(ctx context.Context, method, path string, body, out interface{}) error {
	return u.parent.doJSON(ctx, u.http, u.provider, method, path, body, out)
}

func (u *UserClient) sendMultipart(ctx context.Context, path string, fields map[string]string, files []Upload, out interface{}) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}
	for _, file := range files {
		if file.Content == nil {
			continue
		}
		part, err := writer.CreateFormFile(file.FieldName, file.FileName)
		if err != nil {
			return fmt.Errorf("failed to create form file %s: %w", file.FieldName, err)
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return fmt.Errorf("failed to copy form file %s: %w", file.FieldName, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return u.parent.do(ctx, u.http, u.provider, http.MethodPost, path, &buf, writer.FormDataContentType(), out)
}

// Profile returns the authenticated user's profile
func (u *UserClient) Profile(ctx context.Context) (*models.Profile, error) {
	var profile models.Profile
	if err := u.getJSON(ctx, "/api/auth/profile", &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ChangePassword changes the login password
func (u *UserClient) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	return u.sendJSON(ctx, http.MethodPost, "/api/auth/change-password", req, nil)
}

// VerifyFundPassword asks the backend whether the fund password is correct.
// A 400/401 answer is reported as an invalid password, not as an error.
func (u *UserClient) VerifyFundPassword(ctx context.Context, req VerifyFundPasswordRequest) (bool, error) {
	var out struct {
		Valid   *bool `json:"valid"`
		Success *bool `json:"success"`
	}
	err := u.sendJSON(ctx, http.MethodPost, "/api/auth/verify-fund-password", req, &out)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
			return false, nil
		}
		return false, err
	}
	switch {
	case out.Valid != nil:
		return *out.Valid, nil
	case out.Success != nil:
		return *out.Success, nil
	default:
		return true, nil
	}
}

// Trades lists the user's trades
func (u *UserClient) Trades(ctx context.Context) ([]models.Trade, error) {
	var trades []models.Trade
	if err := u.getJSON(ctx, "/api/trades", &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// CreateTrade places a trade
func (u *UserClient) CreateTrade(ctx context.Context, req CreateTradeRequest) (*models.Trade, error) {
	var trade models.Trade
	if err := u.sendJSON(ctx, http.MethodPost, "/api/trades", req, &trade); err != nil {
		return nil, err
	}
	return &trade, nil
}

// DeleteTrade removes a trade
func (u *UserClient) DeleteTrade(ctx context.Context, id string) error {
	return u.sendJSON(ctx, http.MethodDelete, "/api/trades/"+url.PathEscape(id), nil, nil)
}

// Deposits lists the user's deposits
func (u *UserClient) Deposits(ctx context.Context) ([]models.Deposit, error) {
	var deposits []models.Deposit
	if err := u.getJSON(ctx, "/api/deposits", &deposits); err != nil {
		return nil, err
	}
	return deposits, nil
}

// CreateDeposit submits a deposit with its payment receipt
func (u *UserClient) CreateDeposit(ctx context.Context, req CreateDepositRequest) (*models.Deposit, error) {
	fields := map[string]string{
		"amount": strconv.FormatFloat(req.Amount, 'f', -1, 64),
	}
	if req.Network != "" {
		fields["network"] = req.Network
	}
	var files []Upload
	if req.Receipt != nil {
		receipt := *req.Receipt
		if receipt.FieldName == "" {
			receipt.FieldName = "receipt"
		}
		files = append(files, receipt)
	}

	var deposit models.Deposit
	if err := u.sendMultipart(ctx, "/api/deposits", fields, files, &deposit); err != nil {
		return nil, err
	}
	return &deposit, nil
}

// DeleteDeposit removes a deposit
func (u *UserClient) DeleteDeposit(ctx context.Context, id string) error {
	return u.sendJSON(ctx, http.MethodDelete, "/api/deposits/"+url.PathEscape(id), nil, nil)
}

// Withdrawals lists the user's withdrawals
func (u *UserClient) Withdrawals(ctx context.Context) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	if err := u.getJSON(ctx, "/api/withdrawals", &withdrawals); err != nil {
		return nil, err
	}
	return withdrawals, nil
}

// CreateWithdrawal submits a withdrawal request
func (u *UserClient) CreateWithdrawal(ctx context.Context, req CreateWithdrawalRequest) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	if err := u.sendJSON(ctx, http.MethodPost, "/api/withdrawals", req, &withdrawal); err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

// DeleteWithdrawal removes a withdrawal
func (u *UserClient) DeleteWithdrawal(ctx context.Context, id string) error {
	return u.sendJSON(ctx, http.MethodDelete, "/api/withdrawals/"+url.PathEscape(id), nil, nil)
}

// IdentityStatus returns the identity verification record. A user who never
// submitted documents gets a record with IdentityStatusUnset.
func (u *UserClient) IdentityStatus(ctx context.Context) (*models.IdentityRecord, error) {
	var record models.IdentityRecord
	if err := u.getJSON(ctx, "/api/identity/status", &record); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &models.IdentityRecord{Status: models.IdentityStatusUnset}, nil
		}
		return nil, err
	}
	return &record, nil
}

// SubmitIdentity uploads identity documents for verification
func (u *UserClient) SubmitIdentity(ctx context.Context, req IdentityRequest) (*models.IdentityRecord, error) {
	fields := map[string]string{
		"fullName":       req.FullName,
		"documentType":   req.DocumentType,
		"documentNumber": req.DocumentNumber,
	}
	var record models.IdentityRecord
	if err := u.sendMultipart(ctx, "/api/identity/verify", fields, req.Documents, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

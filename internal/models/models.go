package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Trade statuses
const (
	TradeStatusPending   = "Pending"
	TradeStatusCompleted = "Completed"
	TradeStatusCancelled = "Cancelled"
)

// Trade results
const (
	TradeResultWin  = "Win"
	TradeResultLose = "Lose"
)

// Deposit and withdrawal statuses
const (
	FundStatusPending  = "Pending"
	FundStatusApproved = "Approved"
	FundStatusRejected = "Rejected"
)

// Identity verification statuses. IdentityStatusUnset means the user never
// submitted documents.
const (
	IdentityStatusUnset    = ""
	IdentityStatusPending  = "Pending"
	IdentityStatusVerified = "Verified"
	IdentityStatusRejected = "Rejected"
)

// DefaultTradePair is used when a trade carries no pair
const DefaultTradePair = "USDT"

// EntityID is a backend record identifier. The backend emits either JSON
// strings or numbers depending on the resource.
type EntityID string

// UnmarshalJSON accepts both quoted and bare numeric identifiers
func (id *EntityID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
		*id = EntityID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}
	*id = EntityID(n.String())
	return nil
}

// String returns the identifier as plain text
func (id EntityID) String() string {
	return string(id)
}

// Trade represents a trade placed through the platform
type Trade struct {
	ID               EntityID  `json:"id"`
	TradePair        string    `json:"tradePair"`
	TradeType        string    `json:"tradeType"`
	TradingAmountUSD float64   `json:"tradingAmountUSD"`
	EstimatedIncome  float64   `json:"estimatedIncome"`
	Status           string    `json:"status"`
	WinLose          *string   `json:"winLose"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// IsCompleted reports whether the trade has settled
func (t Trade) IsCompleted() bool {
	return t.Status == TradeStatusCompleted
}

// IsWin reports whether the trade settled as a win
func (t Trade) IsWin() bool {
	return t.WinLose != nil && *t.WinLose == TradeResultWin
}

// IsLoss reports whether the trade settled as a loss
func (t Trade) IsLoss() bool {
	return t.WinLose != nil && *t.WinLose == TradeResultLose
}

// Pair returns the trade pair, falling back to DefaultTradePair
func (t Trade) Pair() string {
	if p := strings.TrimSpace(t.TradePair); p != "" {
		return p
	}
	return DefaultTradePair
}

// Deposit represents a user deposit request
type Deposit struct {
	ID        EntityID  `json:"id"`
	Amount    float64   `json:"amount"`
	Network   string    `json:"network,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsApproved reports whether the deposit was approved
func (d Deposit) IsApproved() bool {
	return d.Status == FundStatusApproved
}

// Withdrawal represents a user withdrawal request
type Withdrawal struct {
	ID        EntityID  `json:"id"`
	Amount    float64   `json:"amount"`
	Address   string    `json:"address,omitempty"`
	Network   string    `json:"network,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsApproved reports whether the withdrawal was approved
func (w Withdrawal) IsApproved() bool {
	return w.Status == FundStatusApproved
}

// IdentityRecord is the user's identity verification state
type IdentityRecord struct {
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Profile is the authenticated user's account summary
type Profile struct {
	UserID  EntityID `json:"userId"`
	Email   string   `json:"email"`
	Balance float64  `json:"balance"`
	Status  string   `json:"status"`
}

// AdminAddress is a platform deposit address published by the admins
type AdminAddress struct {
	Network string `json:"network"`
	Address string `json:"address"`
}

// Timestamp returns the most recent change time of a record
func Timestamp(createdAt, updatedAt time.Time) time.Time {
	if !updatedAt.IsZero() {
		return updatedAt
	}
	return createdAt
}

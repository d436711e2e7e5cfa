package models

import "time"

// PortfolioStats summarises a user's trading performance
type PortfolioStats struct {
	TotalProfit      float64 `json:"totalProfit"`
	Profit24h        float64 `json:"profit24h"`
	Profit7d         float64 `json:"profit7d"`
	Profit30d        float64 `json:"profit30d"`
	WinRate          float64 `json:"winRate"`
	TotalTrades      int     `json:"totalTrades"`
	CompletedTrades  int     `json:"completedTrades"`
	WinningTrades    int     `json:"winningTrades"`
	LosingTrades     int     `json:"losingTrades"`
	TradingVolume    float64 `json:"tradingVolume"`
	TotalDeposits    float64 `json:"totalDeposits"`
	TotalWithdrawals float64 `json:"totalWithdrawals"`
	ROI              float64 `json:"roi"`
	Balance          float64 `json:"balance"`
	CurrentWinStreak int     `json:"currentWinStreak"`
	BestWinStreak    int     `json:"bestWinStreak"`
}

// AllocationEntry is one slice of the asset allocation chart
type AllocationEntry struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

// Achievement is a progress badge evaluated from portfolio metrics
type Achievement struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Metric      string  `json:"metric"`
	Unlocked    bool    `json:"unlocked"`
	Progress    float64 `json:"progress"`
	Current     float64 `json:"current"`
	Target      float64 `json:"target"`
}

// Notification severities
const (
	NotificationSuccess = "success"
	NotificationInfo    = "info"
	NotificationWarning = "warning"
	NotificationError   = "error"
)

// Notification is a user-facing message synthesised from account events
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// Activity kinds
const (
	ActivityTrade      = "trade"
	ActivityDeposit    = "deposit"
	ActivityWithdrawal = "withdrawal"
)

// Activity is one row of the recent activity feed
type Activity struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// NotificationState holds the local read/dismissed flags of a notification.
// It is keyed by the backend user id and the notification id.
type NotificationState struct {
	Owner          string     `gorm:"type:varchar(64);primaryKey" json:"-"`
	NotificationID string     `gorm:"type:varchar(128);primaryKey" json:"notification_id"`
	Read           bool       `gorm:"not null;default:false" json:"read"`
	Dismissed      bool       `gorm:"not null;default:false" json:"dismissed"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `gorm:"index:idx_notification_states_updated" json:"updated_at"`
}

// TableName overrides the gorm table name
func (NotificationState) TableName() string {
	return "notification_states"
}

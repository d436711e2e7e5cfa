package aggregation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"portfolio-dashboard/internal/models"
)

// DefaultNotificationLimit caps the synthesised notification list
const DefaultNotificationLimit = 10

// Notification domains, used as id prefixes
const (
	DomainTrade      = "trade"
	DomainDeposit    = "deposit"
	DomainWithdrawal = "withdrawal"
	DomainIdentity   = "identity"
)

// NotificationRule maps a record state to a notification. Result only
// applies to trades; an empty Result matches a completed trade without one.
// Template placeholders: {amount}, {income}, {pair}.
type NotificationRule struct {
	Domain   string
	Status   string
	Result   string
	Type     string
	Title    string
	Template string
}

// DefaultNotificationRules is the status to severity table
var DefaultNotificationRules = []NotificationRule{
	{Domain: DomainTrade, Status: models.TradeStatusCompleted, Result: models.TradeResultWin, Type: models.NotificationSuccess, Title: "Trade Won", Template: "Your {pair} trade of {amount} won {income}"},
	{Domain: DomainTrade, Status: models.TradeStatusCompleted, Result: models.TradeResultLose, Type: models.NotificationWarning, Title: "Trade Lost", Template: "Your {pair} trade of {amount} was lost"},
	{Domain: DomainTrade, Status: models.TradeStatusCompleted, Type: models.NotificationInfo, Title: "Trade Completed", Template: "Your {pair} trade of {amount} has completed"},
	{Domain: DomainDeposit, Status: models.FundStatusApproved, Type: models.NotificationSuccess, Title: "Deposit Approved", Template: "Your deposit of {amount} has been approved"},
	{Domain: DomainDeposit, Status: models.FundStatusRejected, Type: models.NotificationError, Title: "Deposit Rejected", Template: "Your deposit of {amount} was rejected"},
	{Domain: DomainWithdrawal, Status: models.FundStatusApproved, Type: models.NotificationSuccess, Title: "Withdrawal Approved", Template: "Your withdrawal of {amount} has been approved"},
	{Domain: DomainWithdrawal, Status: models.FundStatusRejected, Type: models.NotificationError, Title: "Withdrawal Rejected", Template: "Your withdrawal of {amount} was rejected"},
	{Domain: DomainIdentity, Status: models.IdentityStatusVerified, Type: models.NotificationSuccess, Title: "Identity Verified", Template: "Your identity has been verified"},
	{Domain: DomainIdentity, Status: models.IdentityStatusRejected, Type: models.NotificationError, Title: "Identity Verification Rejected", Template: "Your identity verification was rejected, please resubmit your documents"},
	{Domain: DomainIdentity, Status: models.IdentityStatusPending, Type: models.NotificationInfo, Title: "Identity Verification Pending", Template: "Your identity documents are under review"},
}

// NotificationSynthesizer builds notifications from a snapshot using a rule table
type NotificationSynthesizer struct {
	rules map[string]NotificationRule
	limit int
}

// NewNotificationSynthesizer indexes rules. A non-positive limit falls back to
// DefaultNotificationLimit.
func NewNotificationSynthesizer(rules []NotificationRule, limit int) *NotificationSynthesizer {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	index := make(map[string]NotificationRule, len(rules))
	for _, r := range rules {
		index[ruleKey(r.Domain, r.Status, r.Result)] = r
	}
	return &NotificationSynthesizer{rules: index, limit: limit}
}

func ruleKey(domain, status, result string) string {
	return domain + "|" + status + "|" + result
}

// NotificationID is the stable id of a record's notification
func NotificationID(domain, entityID string) string {
	return domain + "-" + entityID
}

// Synthesize maps terminal-state records to notifications, newest first,
// truncated to the limit. Every notification comes back unread.
func (s *NotificationSynthesizer) Synthesize(snap Snapshot) []models.Notification {
	var out []models.Notification

	for _, t := range snap.Trades {
		if !t.IsCompleted() {
			continue
		}
		result := ""
		if t.WinLose != nil {
			result = *t.WinLose
		}
		rule, ok := s.rules[ruleKey(DomainTrade, t.Status, result)]
		if !ok {
			rule, ok = s.rules[ruleKey(DomainTrade, t.Status, "")]
		}
		if !ok {
			continue
		}
		out = append(out, build(rule, NotificationID(DomainTrade, t.ID.String()), models.Timestamp(t.CreatedAt, t.UpdatedAt), map[string]string{
			"{pair}":   t.Pair(),
			"{amount}": FormatUSD(t.TradingAmountUSD),
			"{income}": FormatUSD(t.EstimatedIncome),
		}))
	}

	for _, d := range snap.Deposits {
		rule, ok := s.rules[ruleKey(DomainDeposit, d.Status, "")]
		if !ok {
			continue
		}
		out = append(out, build(rule, NotificationID(DomainDeposit, d.ID.String()), models.Timestamp(d.CreatedAt, d.UpdatedAt), map[string]string{
			"{amount}": FormatUSD(d.Amount),
		}))
	}

	for _, w := range snap.Withdrawals {
		rule, ok := s.rules[ruleKey(DomainWithdrawal, w.Status, "")]
		if !ok {
			continue
		}
		out = append(out, build(rule, NotificationID(DomainWithdrawal, w.ID.String()), models.Timestamp(w.CreatedAt, w.UpdatedAt), map[string]string{
			"{amount}": FormatUSD(w.Amount),
		}))
	}

	if snap.Identity != nil && snap.Identity.Status != models.IdentityStatusUnset {
		if rule, ok := s.rules[ruleKey(DomainIdentity, snap.Identity.Status, "")]; ok {
			id := NotificationID(DomainIdentity, strings.ToLower(snap.Identity.Status))
			out = append(out, build(rule, id, models.Timestamp(snap.Identity.CreatedAt, snap.Identity.UpdatedAt), nil))
		}
	}

	SortNotifications(out)
	if len(out) > s.limit {
		out = out[:s.limit]
	}
	return out
}

func build(rule NotificationRule, id string, ts time.Time, values map[string]string) models.Notification {
	message := rule.Template
	for placeholder, value := range values {
		message = strings.ReplaceAll(message, placeholder, value)
	}
	return models.Notification{
		ID:        id,
		Type:      rule.Type,
		Title:     rule.Title,
		Message:   message,
		Timestamp: ts,
	}
}

// SortNotifications orders newest first, ties by id
func SortNotifications(list []models.Notification) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].Timestamp.Equal(list[j].Timestamp) {
			return list[i].Timestamp.After(list[j].Timestamp)
		}
		return list[i].ID < list[j].ID
	})
}

// FormatUSD renders an amount as dollars with two decimals
func FormatUSD(amount float64) string {
	if amount < 0 {
		return fmt.Sprintf("-$%.2f", -amount)
	}
	return fmt.Sprintf("$%.2f", amount)
}

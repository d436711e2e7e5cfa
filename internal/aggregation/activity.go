package aggregation

import (
	"sort"

	"portfolio-dashboard/internal/models"
)

// DefaultActivityLimit caps the recent activity feed
const DefaultActivityLimit = 10

// RecentActivity projects trades, deposits and withdrawals into one feed,
// newest first, truncated to limit.
func RecentActivity(snap Snapshot, limit int) []models.Activity {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}

	out := make([]models.Activity, 0, len(snap.Trades)+len(snap.Deposits)+len(snap.Withdrawals))
	for _, t := range snap.Trades {
		title := "Trade " + t.Pair()
		if t.TradeType != "" {
			title = t.TradeType + " " + t.Pair()
		}
		out = append(out, models.Activity{
			Type:      models.ActivityTrade,
			ID:        t.ID.String(),
			Title:     title,
			Amount:    t.TradingAmountUSD,
			Status:    t.Status,
			Timestamp: t.CreatedAt,
		})
	}
	for _, d := range snap.Deposits {
		out = append(out, models.Activity{
			Type:      models.ActivityDeposit,
			ID:        d.ID.String(),
			Title:     "Deposit",
			Amount:    d.Amount,
			Status:    d.Status,
			Timestamp: d.CreatedAt,
		})
	}
	for _, w := range snap.Withdrawals {
		out = append(out, models.Activity{
			Type:      models.ActivityWithdrawal,
			ID:        w.ID.String(),
			Title:     "Withdrawal",
			Amount:    w.Amount,
			Status:    w.Status,
			Timestamp: w.CreatedAt,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].ID < out[j].ID
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

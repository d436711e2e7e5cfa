package aggregation

import (
	"fmt"

	"portfolio-dashboard/internal/models"
)

// Metric names a portfolio figure an achievement can track
type Metric string

const (
	MetricCompletedTrades Metric = "completed_trades"
	MetricTotalProfit     Metric = "total_profit"
	MetricTotalDeposits   Metric = "total_deposits"
	MetricWinningTrades   Metric = "winning_trades"
	MetricBestWinStreak   Metric = "best_win_streak"
	MetricTradingVolume   Metric = "trading_volume"
)

// Comparator decides whether current satisfies target
type Comparator string

const (
	AtLeast  Comparator = "gte"
	MoreThan Comparator = "gt"
)

// AchievementRule is one declarative achievement definition
type AchievementRule struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Metric      Metric     `json:"metric"`
	Comparator  Comparator `json:"comparator"`
	Target      float64    `json:"target"`
}

// DefaultAchievementRules is the built-in achievement table
var DefaultAchievementRules = []AchievementRule{
	{ID: "first-trade", Title: "First Trade", Description: "Complete your first trade", Metric: MetricCompletedTrades, Comparator: AtLeast, Target: 1},
	{ID: "active-trader", Title: "Active Trader", Description: "Complete 10 trades", Metric: MetricCompletedTrades, Comparator: AtLeast, Target: 10},
	{ID: "profit-maker", Title: "Profit Maker", Description: "Earn $100 in total profit", Metric: MetricTotalProfit, Comparator: AtLeast, Target: 100},
	{ID: "high-roller", Title: "High Roller", Description: "Deposit $1,000 in total", Metric: MetricTotalDeposits, Comparator: AtLeast, Target: 1000},
	{ID: "win-streak", Title: "Win Streak", Description: "Win 5 trades in a row", Metric: MetricBestWinStreak, Comparator: AtLeast, Target: 5},
	{ID: "volume-king", Title: "Volume King", Description: "Trade $10,000 in volume", Metric: MetricTradingVolume, Comparator: AtLeast, Target: 10000},
}

// MetricValue reads a metric from portfolio stats
func MetricValue(stats models.PortfolioStats, metric Metric) (float64, error) {
	switch metric {
	case MetricCompletedTrades:
		return float64(stats.CompletedTrades), nil
	case MetricTotalProfit:
		return stats.TotalProfit, nil
	case MetricTotalDeposits:
		return stats.TotalDeposits, nil
	case MetricWinningTrades:
		return float64(stats.WinningTrades), nil
	case MetricBestWinStreak:
		return float64(stats.BestWinStreak), nil
	case MetricTradingVolume:
		return stats.TradingVolume, nil
	default:
		return 0, fmt.Errorf("unknown achievement metric %q", metric)
	}
}

// ValidateRules rejects rule tables the engine cannot evaluate
func ValidateRules(rules []AchievementRule) error {
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if r.ID == "" {
			return fmt.Errorf("achievement rule without id")
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate achievement rule %q", r.ID)
		}
		seen[r.ID] = true
		if _, err := MetricValue(models.PortfolioStats{}, r.Metric); err != nil {
			return fmt.Errorf("rule %q: %w", r.ID, err)
		}
		switch r.Comparator {
		case AtLeast, MoreThan, "":
		default:
			return fmt.Errorf("rule %q: unknown comparator %q", r.ID, r.Comparator)
		}
	}
	return nil
}

// Progress is current relative to target in percent, clamped to [0, 100].
// A non-positive target counts as already reached.
func Progress(current, target float64) float64 {
	if target <= 0 {
		return 100
	}
	p := current / target * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// satisfied reports whether current reaches target. A non-positive target
// is reached whatever the comparator, matching Progress.
func satisfied(c Comparator, current, target float64) bool {
	if target <= 0 {
		return true
	}
	if c == MoreThan {
		return current > target
	}
	return current >= target
}

// EvaluateAchievements runs every rule against stats. Rules with an unknown
// metric are skipped; use ValidateRules to catch them up front.
func EvaluateAchievements(rules []AchievementRule, stats models.PortfolioStats) []models.Achievement {
	out := make([]models.Achievement, 0, len(rules))
	for _, r := range rules {
		current, err := MetricValue(stats, r.Metric)
		if err != nil {
			continue
		}
		out = append(out, models.Achievement{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			Metric:      string(r.Metric),
			Current:     current,
			Target:      r.Target,
			Progress:    Progress(current, r.Target),
			Unlocked:    satisfied(r.Comparator, current, r.Target),
		})
	}
	return out
}

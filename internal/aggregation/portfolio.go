// Package aggregation turns the collections fetched from the backend into
// the dashboard's derived view-state. Every function here is pure: the same
// snapshot and clock always produce the same result.
package aggregation

import (
	"math"
	"sort"
	"time"

	"portfolio-dashboard/internal/models"
)

// Profit windows
const (
	Window24h = 24 * time.Hour
	Window7d  = 7 * 24 * time.Hour
	Window30d = 30 * 24 * time.Hour
)

// Snapshot is one fetch of a user's backend collections. Nil Profile or
// Identity means the resource was not fetched.
type Snapshot struct {
	Trades      []models.Trade
	Deposits    []models.Deposit
	Withdrawals []models.Withdrawal
	Identity    *models.IdentityRecord
	Profile     *models.Profile
}

// Balance returns the wallet balance, 0 without a profile
func (s Snapshot) Balance() float64 {
	if s.Profile == nil {
		return 0
	}
	return s.Profile.Balance
}

// SignedPnL is the income of a won trade or the lost stake of any other
// completed trade.
func SignedPnL(t models.Trade) float64 {
	if t.IsWin() {
		return t.EstimatedIncome
	}
	return -t.TradingAmountUSD
}

// CompletedTrades filters trades down to settled ones
func CompletedTrades(trades []models.Trade) []models.Trade {
	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.IsCompleted() {
			out = append(out, t)
		}
	}
	return out
}

// TotalProfit sums SignedPnL over completed trades
func TotalProfit(trades []models.Trade) float64 {
	total := 0.0
	for _, t := range trades {
		if t.IsCompleted() {
			total += SignedPnL(t)
		}
	}
	return total
}

// ProfitSince sums SignedPnL over completed trades created at or after
// now - window.
func ProfitSince(trades []models.Trade, now time.Time, window time.Duration) float64 {
	cutoff := now.Add(-window)
	total := 0.0
	for _, t := range trades {
		if t.IsCompleted() && !t.CreatedAt.Before(cutoff) {
			total += SignedPnL(t)
		}
	}
	return total
}

// WinRate is the percentage of completed trades that won, rounded to one
// decimal. It is 0 when nothing completed.
func WinRate(trades []models.Trade) float64 {
	completed, wins := 0, 0
	for _, t := range trades {
		if !t.IsCompleted() {
			continue
		}
		completed++
		if t.IsWin() {
			wins++
		}
	}
	if completed == 0 {
		return 0
	}
	return Round1(float64(wins) / float64(completed) * 100)
}

// TradingVolume sums the stake of every trade regardless of status
func TradingVolume(trades []models.Trade) float64 {
	total := 0.0
	for _, t := range trades {
		total += t.TradingAmountUSD
	}
	return total
}

// TotalDeposits sums approved deposits only
func TotalDeposits(deposits []models.Deposit) float64 {
	total := 0.0
	for _, d := range deposits {
		if d.IsApproved() {
			total += d.Amount
		}
	}
	return total
}

// TotalWithdrawals sums approved withdrawals only
func TotalWithdrawals(withdrawals []models.Withdrawal) float64 {
	total := 0.0
	for _, w := range withdrawals {
		if w.IsApproved() {
			total += w.Amount
		}
	}
	return total
}

// ROI is profit relative to approved deposits in percent, 0 without deposits
func ROI(totalProfit, totalDeposits float64) float64 {
	if totalDeposits == 0 {
		return 0
	}
	return totalProfit / totalDeposits * 100
}

// WinStreaks walks completed trades oldest first and returns the run of wins
// at the newest end and the longest run overall. A loss or a completed trade
// without a result ends a run.
func WinStreaks(trades []models.Trade) (current, best int) {
	completed := CompletedTrades(trades)
	sort.SliceStable(completed, func(i, j int) bool {
		return completed[i].CreatedAt.Before(completed[j].CreatedAt)
	})

	run := 0
	for _, t := range completed {
		if t.IsWin() {
			run++
			if run > best {
				best = run
			}
			continue
		}
		run = 0
	}
	return run, best
}

// PortfolioStats computes the portfolio summary for a snapshot at now
func PortfolioStats(s Snapshot, now time.Time) models.PortfolioStats {
	stats := models.PortfolioStats{
		TotalTrades:      len(s.Trades),
		TotalProfit:      TotalProfit(s.Trades),
		Profit24h:        ProfitSince(s.Trades, now, Window24h),
		Profit7d:         ProfitSince(s.Trades, now, Window7d),
		Profit30d:        ProfitSince(s.Trades, now, Window30d),
		WinRate:          WinRate(s.Trades),
		TradingVolume:    TradingVolume(s.Trades),
		TotalDeposits:    TotalDeposits(s.Deposits),
		TotalWithdrawals: TotalWithdrawals(s.Withdrawals),
		Balance:          s.Balance(),
	}

	for _, t := range s.Trades {
		if !t.IsCompleted() {
			continue
		}
		stats.CompletedTrades++
		switch {
		case t.IsWin():
			stats.WinningTrades++
		case t.IsLoss():
			stats.LosingTrades++
		}
	}

	stats.ROI = ROI(stats.TotalProfit, stats.TotalDeposits)
	stats.CurrentWinStreak, stats.BestWinStreak = WinStreaks(s.Trades)
	return stats
}

// Round1 rounds to one decimal place
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

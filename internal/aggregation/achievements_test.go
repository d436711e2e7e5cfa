package aggregation

import (
	"testing"

	"portfolio-dashboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgress(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		target   float64
		expected float64
	}{
		{name: "half_way", current: 5, target: 10, expected: 50},
		{name: "over_target_clamped", current: 120, target: 50, expected: 100},
		{name: "negative_clamped", current: -30, target: 100, expected: 0},
		{name: "zero_target", current: 0, target: 0, expected: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Progress(tt.current, tt.target))
		})
	}
}

func TestEvaluateAchievements_Example(t *testing.T) {
	rules := []AchievementRule{{ID: "ten-trades", Metric: MetricCompletedTrades, Comparator: AtLeast, Target: 10}}

	got := EvaluateAchievements(rules, models.PortfolioStats{CompletedTrades: 15})
	require.Len(t, got, 1)
	assert.Equal(t, 100.0, got[0].Progress)
	assert.True(t, got[0].Unlocked)
	assert.Equal(t, 15.0, got[0].Current)
	assert.Equal(t, 10.0, got[0].Target)
}

func TestEvaluateAchievements_DefaultTable(t *testing.T) {
	require.Len(t, DefaultAchievementRules, 6)
	require.NoError(t, ValidateRules(DefaultAchievementRules))

	stats := models.PortfolioStats{
		CompletedTrades: 4,
		TotalProfit:     150,
		TotalDeposits:   500,
		BestWinStreak:   5,
		TradingVolume:   2500,
	}
	got := EvaluateAchievements(DefaultAchievementRules, stats)
	require.Len(t, got, 6)

	byID := make(map[string]models.Achievement)
	for _, a := range got {
		byID[a.ID] = a
	}

	assert.True(t, byID["first-trade"].Unlocked)
	assert.False(t, byID["active-trader"].Unlocked)
	assert.Equal(t, 40.0, byID["active-trader"].Progress)
	assert.True(t, byID["profit-maker"].Unlocked)
	assert.Equal(t, 50.0, byID["high-roller"].Progress)
	assert.True(t, byID["win-streak"].Unlocked)
	assert.Equal(t, 100.0, byID["win-streak"].Progress)
	assert.Equal(t, 25.0, byID["volume-king"].Progress)
}

func TestEvaluateAchievements_NegativeProfit(t *testing.T) {
	rules := []AchievementRule{{ID: "profit", Metric: MetricTotalProfit, Target: 100}}
	got := EvaluateAchievements(rules, models.PortfolioStats{TotalProfit: -40})
	require.Len(t, got, 1)
	assert.Zero(t, got[0].Progress)
	assert.False(t, got[0].Unlocked)
}

func TestEvaluateAchievements_MoreThan(t *testing.T) {
	rules := []AchievementRule{{ID: "gt", Metric: MetricWinningTrades, Comparator: MoreThan, Target: 3}}

	assert.False(t, EvaluateAchievements(rules, models.PortfolioStats{WinningTrades: 3})[0].Unlocked)
	assert.True(t, EvaluateAchievements(rules, models.PortfolioStats{WinningTrades: 4})[0].Unlocked)
}

func TestEvaluateAchievements_NonPositiveTargetIsReached(t *testing.T) {
	for _, cmp := range []Comparator{AtLeast, MoreThan} {
		rules := []AchievementRule{{ID: "zero", Metric: MetricTotalProfit, Comparator: cmp, Target: 0}}

		got := EvaluateAchievements(rules, models.PortfolioStats{})[0]
		assert.Equal(t, 100.0, got.Progress, cmp)
		assert.True(t, got.Unlocked, cmp)
	}
}

func TestEvaluateAchievements_SkipsUnknownMetric(t *testing.T) {
	rules := []AchievementRule{
		{ID: "bad", Metric: "karma", Target: 1},
		{ID: "ok", Metric: MetricCompletedTrades, Target: 1},
	}
	got := EvaluateAchievements(rules, models.PortfolioStats{})
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].ID)
}

func TestValidateRules(t *testing.T) {
	assert.Error(t, ValidateRules([]AchievementRule{{Metric: MetricTotalProfit}}))
	assert.Error(t, ValidateRules([]AchievementRule{{ID: "a", Metric: MetricTotalProfit}, {ID: "a", Metric: MetricTotalProfit}}))
	assert.Error(t, ValidateRules([]AchievementRule{{ID: "a", Metric: "karma"}}))
	assert.Error(t, ValidateRules([]AchievementRule{{ID: "a", Metric: MetricTotalProfit, Comparator: "lt"}}))
	assert.NoError(t, ValidateRules(nil))
}

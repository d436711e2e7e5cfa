package aggregation

import (
	"fmt"
	"testing"
	"time"

	"portfolio-dashboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesize_MapsTerminalStates(t *testing.T) {
	snap := Snapshot{
		Trades: []models.Trade{
			trade("t1", models.TradeStatusCompleted, result(models.TradeResultWin), 100, 18, time.Hour),
			trade("t2", models.TradeStatusCompleted, result(models.TradeResultLose), 40, 0, 2*time.Hour),
			trade("t3", models.TradeStatusPending, nil, 10, 0, 3*time.Hour),
		},
		Deposits: []models.Deposit{
			{ID: "d1", Amount: 250, Status: models.FundStatusApproved, CreatedAt: now.Add(-4 * time.Hour)},
			{ID: "d2", Amount: 90, Status: models.FundStatusPending, CreatedAt: now.Add(-5 * time.Hour)},
		},
		Withdrawals: []models.Withdrawal{
			{ID: "w1", Amount: 60, Status: models.FundStatusRejected, CreatedAt: now.Add(-6 * time.Hour)},
		},
		Identity: &models.IdentityRecord{Status: models.IdentityStatusVerified, UpdatedAt: now.Add(-30 * time.Minute)},
	}

	got := NewNotificationSynthesizer(DefaultNotificationRules, 10).Synthesize(snap)

	ids := make([]string, 0, len(got))
	for _, n := range got {
		ids = append(ids, n.ID)
		assert.False(t, n.Read)
	}
	assert.Equal(t, []string{"identity-verified", "trade-t1", "trade-t2", "deposit-d1", "withdrawal-w1"}, ids)

	assert.Equal(t, models.NotificationSuccess, got[1].Type)
	assert.Equal(t, "Trade Won", got[1].Title)
	assert.Equal(t, "Your BTC/USDT trade of $100.00 won $18.00", got[1].Message)
	assert.Equal(t, models.NotificationWarning, got[2].Type)
	assert.Equal(t, "Your deposit of $250.00 has been approved", got[3].Message)
	assert.Equal(t, models.NotificationError, got[4].Type)
	assert.Equal(t, "Withdrawal Rejected", got[4].Title)
}

func TestSynthesize_CompletedTradeWithoutResult(t *testing.T) {
	snap := Snapshot{Trades: []models.Trade{trade("t1", models.TradeStatusCompleted, nil, 10, 0, time.Hour)}}

	got := NewNotificationSynthesizer(DefaultNotificationRules, 10).Synthesize(snap)
	require.Len(t, got, 1)
	assert.Equal(t, models.NotificationInfo, got[0].Type)
	assert.Equal(t, "Trade Completed", got[0].Title)
}

func TestSynthesize_UnsetIdentityProducesNothing(t *testing.T) {
	snap := Snapshot{Identity: &models.IdentityRecord{Status: models.IdentityStatusUnset}}
	assert.Empty(t, NewNotificationSynthesizer(DefaultNotificationRules, 10).Synthesize(snap))
}

func TestSynthesize_IdentityPending(t *testing.T) {
	snap := Snapshot{Identity: &models.IdentityRecord{Status: models.IdentityStatusPending, CreatedAt: now}}
	got := NewNotificationSynthesizer(DefaultNotificationRules, 10).Synthesize(snap)
	require.Len(t, got, 1)
	assert.Equal(t, "identity-pending", got[0].ID)
	assert.Equal(t, models.NotificationInfo, got[0].Type)
}

func TestSynthesize_TruncatesToLimitNewestFirst(t *testing.T) {
	var deposits []models.Deposit
	for i := 0; i < 25; i++ {
		deposits = append(deposits, models.Deposit{
			ID:        models.EntityID(fmt.Sprintf("d%02d", i)),
			Amount:    float64(i),
			Status:    models.FundStatusApproved,
			CreatedAt: now.Add(-time.Duration(i) * time.Minute),
		})
	}

	got := NewNotificationSynthesizer(DefaultNotificationRules, 0).Synthesize(Snapshot{Deposits: deposits})
	require.Len(t, got, DefaultNotificationLimit)
	assert.Equal(t, "deposit-d00", got[0].ID)
	assert.Equal(t, "deposit-d09", got[9].ID)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].Timestamp.After(got[i-1].Timestamp))
	}
}

func TestSynthesize_UsesUpdatedAtForTimestamp(t *testing.T) {
	snap := Snapshot{Deposits: []models.Deposit{{
		ID:        "d1",
		Amount:    10,
		Status:    models.FundStatusApproved,
		CreatedAt: now.Add(-48 * time.Hour),
		UpdatedAt: now.Add(-time.Hour),
	}}}

	got := NewNotificationSynthesizer(DefaultNotificationRules, 10).Synthesize(snap)
	require.Len(t, got, 1)
	assert.Equal(t, now.Add(-time.Hour), got[0].Timestamp)
}

func TestSynthesize_CustomRuleTable(t *testing.T) {
	rules := []NotificationRule{{Domain: DomainDeposit, Status: models.FundStatusPending, Type: models.NotificationInfo, Title: "Deposit Received", Template: "We received {amount}"}}
	snap := Snapshot{Deposits: []models.Deposit{
		{ID: "d1", Amount: 5, Status: models.FundStatusPending},
		{ID: "d2", Amount: 5, Status: models.FundStatusApproved},
	}}

	got := NewNotificationSynthesizer(rules, 10).Synthesize(snap)
	require.Len(t, got, 1)
	assert.Equal(t, "We received $5.00", got[0].Message)
}

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$1234.50", FormatUSD(1234.5))
	assert.Equal(t, "-$3.00", FormatUSD(-3))
}

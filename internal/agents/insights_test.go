package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/thirdeye/backend/internal/store"
)

func TestCategoryAnalysis(t *testing.T) {
	t.Run("ranks by total descending", func(t *testing.T) {
		txns := []*store.RawTransaction{
			{Type: store.TxDebit, Category: "rent", Amount: 2000},
			{Type: store.TxDebit, Category: "food_beverage", Amount: 500},
			{Type: store.TxDebit, Category: "food_beverage", Amount: 300},
		}
		result := categoryAnalysis(txns)
		cats, _ := result["debit_categories"].([]map[string]interface{})
		require.Len(t, cats, 2)
		assert.Equal(t, "rent", cats[0]["category"], "rent (total 2000) ranks first")
		assert.Equal(t, 2, cats[1]["count"])
	})

	t.Run("empty category buckets into other", func(t *testing.T) {
		txns := []*store.RawTransaction{{Type: store.TxCredit, Category: "", Amount: 100}}
		result := categoryAnalysis(txns)
		cats, _ := result["credit_categories"].([]map[string]interface{})
		require.Len(t, cats, 1)
		assert.Equal(t, "other", cats[0]["category"])
	})
}

func TestDayOfMonthPatterns_TracksBusiestAndQuietest(t *testing.T) {
	txns := []*store.RawTransaction{
		{Date: "01 JAN", Amount: 10},
		{Date: "01 JAN", Amount: 10},
		{Date: "02 JAN", Amount: 500},
	}
	result := dayOfMonthPatterns(txns)
	assert.Equal(t, 1, result["busiest_day"], "day 1 has 2 txns")
	assert.Equal(t, 2, result["highest_value_day"])
	assert.Equal(t, 2, result["active_days"])
}

func TestChannelAnalysis_DominantChannel(t *testing.T) {
	txns := []*store.RawTransaction{
		{Channel: "FAST", Amount: 1000},
		{Channel: "ATM", Amount: 100},
		{Channel: "", Amount: 50},
	}
	result := channelAnalysis(txns)
	assert.Equal(t, "FAST", result["dominant_channel"])
	assert.Equal(t, 3, result["total_channels"], "includes the Unknown bucket")
}

func TestAssessInsightsRisk(t *testing.T) {
	cases := []struct {
		score, flags int
		want         store.RiskLevel
	}{
		{80, 0, store.RiskLow},
		{60, 10, store.RiskMedium},
		{35, 20, store.RiskHigh},
		{10, 20, store.RiskCritical},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, assessInsightsRisk(c.score, c.flags), "assessInsightsRisk(%d,%d)", c.score, c.flags)
	}
}

func TestHealthAssessment(t *testing.T) {
	assert.True(t, len(healthAssessment(90)) >= 6 && healthAssessment(90)[:6] == "Strong")
	assert.True(t, len(healthAssessment(10)) >= 7 && healthAssessment(10)[:7] == "Concern")
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 100, clampScore(150))
	assert.Equal(t, 0, clampScore(-10))
	assert.Equal(t, 55, clampScore(55))
}

func TestInsightsAnalyse_NoTransactionsDegradesToLowRisk(t *testing.T) {
	agent := NewInsightsAgent(nil)
	dctx := &DocumentContext{Document: &store.Document{ID: "doc1"}, Transactions: nil}
	outcome, err := agent.Analyse(context.Background(), dctx)
	require.NoError(t, err)
	assert.Equal(t, store.RiskLow, outcome.RiskLevel)
}

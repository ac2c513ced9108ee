package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/thirdeye/backend/internal/store"
)

func TestNormaliseHeader(t *testing.T) {
	t.Run("strips currency suffix case-insensitively", func(t *testing.T) {
		assert.Equal(t, "balance", normaliseHeader("Balance (SGD)"))
	})

	t.Run("collapses embedded newlines", func(t *testing.T) {
		assert.Equal(t, "balance", normaliseHeader("Balance\n(SGD)"))
	})
}

func TestMapTierAHeaders(t *testing.T) {
	mapping := mapTierAHeaders([]string{"Date", "Description", "Debit", "Credit", "Balance"})
	for _, col := range []string{"transaction_date", "description", "debit", "credit", "balance"} {
		assert.Contains(t, mapping, col)
	}
}

// A DBS-style bordered table row whose description spans three lines.
func TestTierARows_DBSStyleMultiLine(t *testing.T) {
	mapping := map[string]int{
		"transaction_date": 0,
		"description":      1,
		"debit":            2,
		"credit":           3,
		"balance":          4,
	}
	rows := [][]string{
		{"01-Sep-2025", "FAST PAYMENT\nEBGPP50901371025\nSUPPLIER PAYMENT", "394.71", "", "84,255.32"},
	}
	txns := tierARows(rows, mapping, 0)
	require.Len(t, txns, 1)

	got := txns[0]
	assert.Equal(t, "01 SEP", got.Date)
	assert.Equal(t, store.TxDebit, got.Type)
	require.NotNil(t, got.Amount)
	assert.Equal(t, 394.71, *got.Amount)
	require.NotNil(t, got.Balance)
	assert.Equal(t, 84255.32, *got.Balance)
	assert.Equal(t, "FAST PAYMENT\nEBGPP50901371025\nSUPPLIER PAYMENT", got.Description)
}

func TestTierARows_SkipsRowsWithoutLeadingDigitDate(t *testing.T) {
	mapping := map[string]int{"transaction_date": 0, "debit": 1, "balance": 2}
	rows := [][]string{
		{"", "100.00", "500.00"},
		{"Continued", "50.00", "450.00"},
	}
	assert.Empty(t, tierARows(rows, mapping, 0))
}

func TestTierARows_OpeningClosingMarkersWithoutAmounts(t *testing.T) {
	mapping := map[string]int{"transaction_date": 0, "description": 1, "debit": 2, "credit": 3, "balance": 4}
	rows := [][]string{
		{"01-Sep-2025", "OPENING BALANCE", "", "", "1000.00"},
	}
	txns := tierARows(rows, mapping, 0)
	require.Len(t, txns, 1)
	assert.Equal(t, store.TxOpeningBalance, txns[0].Type)
}

func TestIsAccountInfoTable(t *testing.T) {
	table := [][]string{{"Account Number:", "1234567890"}, {"Opening Balance:", "1,000.00"}}
	assert.True(t, isAccountInfoTable(table))
	assert.False(t, isAccountInfoTable([][]string{{"Date", "Description"}}))
}

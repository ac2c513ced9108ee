package agents

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectBank(t *testing.T) {
	t.Run("scores keywords, products and headers", func(t *testing.T) {
		bank, confidence := detectBank([]string{"This is an OCBC Bank statement for your 360 Account."})
		assert.Equal(t, "OCBC", bank)
		assert.Greater(t, confidence, 0.0)
		assert.LessOrEqual(t, confidence, 1.0)
	})

	t.Run("no signal is Unknown", func(t *testing.T) {
		bank, confidence := detectBank([]string{"Nothing relevant here at all."})
		assert.Equal(t, "Unknown", bank)
		assert.Equal(t, 0.0, confidence)
	})

	t.Run("highest score wins", func(t *testing.T) {
		// DBS gets a keyword and a header hit (5); OCBC gets two keyword, a
		// product and a header hit (10).
		bank, _ := detectBank([]string{"DBS BANK. OCBC BANK statement with 360 Account."})
		assert.Equal(t, "OCBC", bank)
	})
}

func TestMapColumns(t *testing.T) {
	t.Run("maps canonical headers", func(t *testing.T) {
		mapping := mapColumns([]string{"Date", "Description", "Debit", "Credit", "Balance"})
		for _, want := range []string{"transaction_date", "description", "debit", "credit", "balance"} {
			assert.Contains(t, mapping, want)
		}
	})

	t.Run("strips currency suffix", func(t *testing.T) {
		mapping := mapColumns([]string{"Balance (SGD)"})
		idx, ok := mapping["balance"]
		require.True(t, ok, "mapping=%v", mapping)
		assert.Equal(t, 0, idx)

		clean := currencySuffixPattern.ReplaceAllString(strings.ToLower("Balance (SGD)"), "")
		assert.Equal(t, "balance", strings.TrimSpace(clean))
	})
}

func TestDetectFormats(t *testing.T) {
	t.Run("picks first matching date pattern", func(t *testing.T) {
		dateFormat, _ := detectFormats([]string{"Transaction on 01/12/2024 for SGD 100."})
		assert.Equal(t, "DD/MM/YYYY", dateFormat)
	})

	t.Run("picks dominant amount format", func(t *testing.T) {
		_, amountFormat := detectFormats([]string{"Amount: 1,234.56 and 2,500.00"})
		assert.Equal(t, "decimal_comma", amountFormat)

		_, amountFormat = detectFormats([]string{"Betrag: 1.234,56"})
		assert.Equal(t, "european", amountFormat)
	})
}

func TestDetectSpecialMarkers(t *testing.T) {
	markers := detectSpecialMarkers([]string{"BALANCE B/F 1000.00 ... BALANCE C/F 2000.00"})
	assert.Equal(t, "BALANCE B/F", markers["opening_balance"])
	assert.Equal(t, "BALANCE C/F", markers["closing_balance"])
}

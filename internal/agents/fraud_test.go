package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/thirdeye/backend/internal/store"
)

func ptrF(v float64) *float64 { return &v }

func TestCheckRoundAmounts(t *testing.T) {
	t.Run("warns on a couple of round amounts", func(t *testing.T) {
		txns := []*store.RawTransaction{
			{Date: "01 JAN", Amount: 5000, Type: store.TxDebit},
			{Date: "02 JAN", Amount: 6000, Type: store.TxDebit},
			{Date: "03 JAN", Amount: 123.45, Type: store.TxDebit},
		}
		c := checkRoundAmounts(txns)
		assert.Equal(t, "warning", c.Status, c.Details)
	})

	t.Run("fails at five or more", func(t *testing.T) {
		var txns []*store.RawTransaction
		for i := 0; i < 5; i++ {
			txns = append(txns, &store.RawTransaction{Date: "01 JAN", Amount: 5000, Type: store.TxDebit})
		}
		assert.Equal(t, "fail", checkRoundAmounts(txns).Status)
	})

	t.Run("below the 5000 threshold is ignored", func(t *testing.T) {
		txns := []*store.RawTransaction{{Date: "01 JAN", Amount: 4000, Type: store.TxDebit}}
		assert.Equal(t, "pass", checkRoundAmounts(txns).Status)
	})
}

func TestCheckDuplicates(t *testing.T) {
	t.Run("warns on one duplicate group", func(t *testing.T) {
		txns := []*store.RawTransaction{
			{Date: "15 NOV", Amount: 100.00, Counterparty: "ACME CORP"},
			{Date: "15 NOV", Amount: 100.00, Counterparty: "ACME CORP"},
			{Date: "16 NOV", Amount: 200.00, Counterparty: "OTHER"},
		}
		c := checkDuplicates(txns)
		assert.Equal(t, "warning", c.Status, c.Details)
	})

	t.Run("fails at six total duplicate rows", func(t *testing.T) {
		var txns []*store.RawTransaction
		for i := 0; i < 3; i++ {
			txns = append(txns, &store.RawTransaction{Date: "01 JAN", Amount: 50, Counterparty: "A"})
		}
		for i := 0; i < 3; i++ {
			txns = append(txns, &store.RawTransaction{Date: "02 JAN", Amount: 75, Counterparty: "B"})
		}
		assert.Equal(t, "fail", checkDuplicates(txns).Status)
	})

	t.Run("none found", func(t *testing.T) {
		txns := []*store.RawTransaction{
			{Date: "01 JAN", Amount: 10, Counterparty: "A"},
			{Date: "02 JAN", Amount: 20, Counterparty: "B"},
		}
		assert.Equal(t, "pass", checkDuplicates(txns).Status)
	})
}

func TestCheckRapidSuccession(t *testing.T) {
	t.Run("ten same-day txns warn, never fail", func(t *testing.T) {
		var txns []*store.RawTransaction
		for i := 0; i < 10; i++ {
			txns = append(txns, &store.RawTransaction{Date: "05 JAN", Amount: 10})
		}
		assert.Equal(t, "warning", checkRapidSuccession(txns).Status)
	})

	t.Run("nine same-day txns pass", func(t *testing.T) {
		var txns []*store.RawTransaction
		for i := 0; i < 9; i++ {
			txns = append(txns, &store.RawTransaction{Date: "05 JAN", Amount: 10})
		}
		assert.Equal(t, "pass", checkRapidSuccession(txns).Status)
	})
}

func TestCheckLargeOutliers(t *testing.T) {
	t.Run("fewer than 5 samples pass trivially", func(t *testing.T) {
		txns := []*store.RawTransaction{{Amount: 100}, {Amount: 120}, {Amount: 90}}
		assert.Equal(t, "pass", checkLargeOutliers(txns).Status)
	})

	t.Run("flags amounts past mean plus three sigma", func(t *testing.T) {
		var txns []*store.RawTransaction
		for i := 0; i < 19; i++ {
			txns = append(txns, &store.RawTransaction{Amount: 100})
		}
		txns = append(txns, &store.RawTransaction{Amount: 5000})
		c := checkLargeOutliers(txns)
		assert.NotEqual(t, "pass", c.Status, c.Details)
	})
}

func TestCheckBalanceAnomalies(t *testing.T) {
	t.Run("fewer than 3 balance points pass trivially", func(t *testing.T) {
		txns := []*store.RawTransaction{{Balance: ptrF(100)}, {Balance: ptrF(105)}}
		assert.Equal(t, "pass", checkBalanceAnomalies(txns).Status)
	})

	t.Run("flags a large swing", func(t *testing.T) {
		txns := []*store.RawTransaction{
			{Date: "01 JAN", Balance: ptrF(50000)},
			{Date: "02 JAN", Balance: ptrF(50100)},
			{Date: "03 JAN", Balance: ptrF(200000)}, // swing ~149900 > 0.5*200000 and > 10000
		}
		c := checkBalanceAnomalies(txns)
		assert.Equal(t, "warning", c.Status, c.Details)
	})

	t.Run("small swings pass", func(t *testing.T) {
		txns := []*store.RawTransaction{
			{Date: "01 JAN", Balance: ptrF(50000)},
			{Date: "02 JAN", Balance: ptrF(50100)},
			{Date: "03 JAN", Balance: ptrF(90000)}, // swing 39900 < 0.5*90000=45000
		}
		assert.Equal(t, "pass", checkBalanceAnomalies(txns).Status)
	})
}

func TestCheckCashHeavy(t *testing.T) {
	t.Run("cash ratio of 75 percent fails", func(t *testing.T) {
		txns := []*store.RawTransaction{
			{Type: store.TxCredit, Amount: 1000},
			{Type: store.TxDebit, Amount: 1000},
		}
		metrics := &store.StatementMetrics{
			TotalAmountOfCashDeposits:    1500,
			TotalAmountOfCashWithdrawals: 0,
		}
		c := checkCashHeavy(txns, metrics)
		assert.Equal(t, "fail", c.Status, c.Details)
	})

	t.Run("ratio under 30 percent passes", func(t *testing.T) {
		txns := []*store.RawTransaction{
			{Type: store.TxCredit, Amount: 10000},
			{Type: store.TxDebit, Amount: 10000},
		}
		metrics := &store.StatementMetrics{TotalAmountOfCashDeposits: 100}
		assert.Equal(t, "pass", checkCashHeavy(txns, metrics).Status)
	})
}

func TestCheckTimingPatterns(t *testing.T) {
	t.Run("fewer than 10 dated txns pass trivially", func(t *testing.T) {
		var txns []*store.RawTransaction
		for i := 0; i < 5; i++ {
			txns = append(txns, &store.RawTransaction{Date: "01 JAN"})
		}
		assert.Equal(t, "pass", checkTimingPatterns(txns).Status)
	})

	t.Run("flags concentration at month edges", func(t *testing.T) {
		var txns []*store.RawTransaction
		for i := 0; i < 8; i++ {
			txns = append(txns, &store.RawTransaction{Date: "01 JAN"})
		}
		for i := 0; i < 2; i++ {
			txns = append(txns, &store.RawTransaction{Date: "15 JAN"})
		}
		assert.Equal(t, "warning", checkTimingPatterns(txns).Status)
	})
}

func TestDateKey_NormalisesWhitespaceAndCase(t *testing.T) {
	assert.Equal(t, "01 NOV", dateKey("01  nov"))
}

func TestParseDay(t *testing.T) {
	d, ok := parseDay("01 JAN")
	require.True(t, ok)
	assert.Equal(t, 1, d)

	d, ok = parseDay("28-Feb-2025")
	require.True(t, ok)
	assert.Equal(t, 28, d)
}

package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/thirdeye/backend/internal/store"
)

func TestValidateBalanceChain(t *testing.T) {
	t.Run("all links valid", func(t *testing.T) {
		txns := []*txn{
			{Date: "01 JAN", Type: store.TxOpeningBalance, Balance: amt(1000)},
			{Date: "02 JAN", Type: store.TxCredit, Amount: amt(500), Balance: amt(1500)},
			{Date: "03 JAN", Type: store.TxDebit, Amount: amt(200), Balance: amt(1300)},
		}
		chain := validateBalanceChain(txns)
		assert.Equal(t, 0, chain.Invalid, "breaks=%v", chain.Breaks)
		assert.Equal(t, 2, chain.Valid)
		assert.Equal(t, 100.0, chain.ChainAccuracyPct)
	})

	t.Run("detects and records a break", func(t *testing.T) {
		txns := []*txn{
			{Date: "01 JAN", Type: store.TxOpeningBalance, Balance: amt(1000)},
			{Date: "02 JAN", Type: store.TxCredit, Amount: amt(500), Balance: amt(1600)}, // should be 1500
		}
		chain := validateBalanceChain(txns)
		assert.Equal(t, 1, chain.Invalid)
		require.Len(t, chain.Breaks, 1)
		assert.Equal(t, 1500.0, chain.Breaks[0].Expected)
	})

	t.Run("0.02 tolerance absorbs rounding", func(t *testing.T) {
		txns := []*txn{
			{Date: "01 JAN", Type: store.TxOpeningBalance, Balance: amt(1000)},
			{Date: "02 JAN", Type: store.TxCredit, Amount: amt(500.005), Balance: amt(1500.01)},
		}
		assert.Equal(t, 0, validateBalanceChain(txns).Invalid)
	})

	t.Run("nothing checkable defaults to 100", func(t *testing.T) {
		txns := []*txn{
			{Date: "02 JAN", Type: store.TxCredit, Amount: amt(500)},
			{Date: "03 JAN", Type: store.TxDebit, Amount: amt(200)},
		}
		chain := validateBalanceChain(txns)
		assert.Equal(t, 0, chain.TotalChecked)
		assert.Equal(t, 100.0, chain.ChainAccuracyPct)
	})

	t.Run("reported breaks capped", func(t *testing.T) {
		txns := []*txn{{Date: "01 JAN", Type: store.TxOpeningBalance, Balance: amt(1000)}}
		balance := 1000.0
		for i := 0; i < 30; i++ {
			balance += 1 // wrong amount credited each time vs the balance recorded
			txns = append(txns, &txn{Date: "02 JAN", Type: store.TxCredit, Amount: amt(999), Balance: amt(balance)})
		}
		chain := validateBalanceChain(txns)
		assert.LessOrEqual(t, len(chain.Breaks), maxReportedBreaks)
	})
}

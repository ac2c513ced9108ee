package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/castlemilk/thirdeye/backend/internal/store"
)

func amt(v float64) *float64 { return &v }

func TestDedupe(t *testing.T) {
	t.Run("removes exact fingerprint duplicates", func(t *testing.T) {
		txns := []*txn{
			{Date: "15 JAN", Description: "GRAB RIDE", Type: store.TxDebit, Amount: amt(12.5), Balance: amt(1000)},
			{Date: "15 JAN", Description: "GRAB RIDE", Type: store.TxDebit, Amount: amt(12.5), Balance: amt(1000)},
			{Date: "16 JAN", Description: "SALARY", Type: store.TxCredit, Amount: amt(3000), Balance: amt(4000)},
		}
		assert.Len(t, dedupe(txns), 2)
	})

	// The same transaction pulled twice across overlapping tier attempts,
	// with slightly different description whitespace but an identical
	// (date,balance,type,amount) fingerprint.
	t.Run("fuzzy pass catches overlap duplicates", func(t *testing.T) {
		txns := []*txn{
			{Date: "15 JAN", Description: "GRAB  RIDE   ", Type: store.TxDebit, Amount: amt(12.5), Balance: amt(1000)},
			{Date: "15 JAN", Description: "GRAB RIDE", Type: store.TxDebit, Amount: amt(12.5), Balance: amt(1000)},
		}
		assert.Len(t, dedupe(txns), 1)
	})

	t.Run("balance-less rows have no reliable fingerprint and are kept", func(t *testing.T) {
		txns := []*txn{
			{Date: "15 JAN", Description: "A", Type: store.TxDebit, Amount: amt(12.5)},
			{Date: "15 JAN", Description: "B", Type: store.TxDebit, Amount: amt(12.5)},
		}
		assert.Len(t, dedupe(txns), 2)
	})

	t.Run("running twice yields an identical list", func(t *testing.T) {
		txns := []*txn{
			{Date: "15 JAN", Description: "GRAB RIDE", Type: store.TxDebit, Amount: amt(12.5), Balance: amt(1000)},
			{Date: "15 JAN", Description: "GRAB RIDE", Type: store.TxDebit, Amount: amt(12.5), Balance: amt(1000)},
			{Date: "16 JAN", Description: "SALARY", Type: store.TxCredit, Amount: amt(3000), Balance: amt(4000)},
		}
		once := dedupe(txns)
		twice := dedupe(once)
		assert.Equal(t, once, twice)
	})
}

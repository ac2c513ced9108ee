package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/castlemilk/thirdeye/backend/internal/store"
)

func TestComputeMetrics(t *testing.T) {
	t.Run("basic statement", func(t *testing.T) {
		txns := []*txn{
			{Date: "02 JAN", Description: "SALARY CREDIT", Type: store.TxCredit, Amount: amt(3000), Balance: amt(4000)},
			{Date: "05 JAN", Description: "GRAB RIDE", Type: store.TxDebit, Amount: amt(15.5), Balance: amt(3984.5), Channel: "OTHER"},
			{Date: "10 JAN", Description: "ATM WITHDRAWAL", Type: store.TxDebit, Amount: amt(200), Balance: amt(3784.5), Channel: "ATM", IsCash: true},
			{Date: "11 JAN", Description: "CHEQUE 000123 DEPOSIT", Type: store.TxCredit, Amount: amt(250), Balance: amt(4034.5), Channel: "CHEQUE", IsCheque: true},
			{Date: "12 JAN", Description: "MONTHLY SERVICE FEE", Type: store.TxDebit, Amount: amt(5), Balance: amt(4029.5)},
		}
		info := AccountInfo{AccountHolder: "JOHN TAN", OpeningBalance: amt(1000), ClosingBalance: amt(4029.5)}

		m := computeMetrics("doc-1", "group-1", txns, info)

		assert.Equal(t, 2, m.TotalNoOfCreditTransactions)
		assert.Equal(t, 3250.0, m.TotalAmountOfCredits)
		assert.Equal(t, 3, m.TotalNoOfDebitTransactions)
		assert.Equal(t, 1, m.TotalNoOfCashWithdrawals)
		assert.Equal(t, 200.0, m.TotalAmountOfCashWithdrawals)
		assert.Equal(t, 1, m.TotalNoOfChequeDeposits)
		assert.Equal(t, 250.0, m.TotalAmountOfChequeDeposits)
		assert.Equal(t, 0, m.TotalNoOfChequeWithdrawals)
		assert.Equal(t, 0.0, m.TotalAmountOfChequeWithdrawals)
		assert.Equal(t, 5.0, m.TotalFeesCharged)
		assert.Equal(t, 4034.5, m.MaxBalance)
		assert.Equal(t, 3784.5, m.MinBalance)
		assert.Equal(t, "JOHN TAN", m.AccountHolder)
	})

	// A statement with more than one currency section produces a
	// CurrencyBreakdown entry per currency.
	t.Run("multi-currency breakdown", func(t *testing.T) {
		txns := []*txn{
			{Date: "02 JAN", Type: store.TxCredit, Amount: amt(100), Currency: "SGD", Balance: amt(100)},
			{Date: "03 JAN", Type: store.TxCredit, Amount: amt(200), Currency: "USD", Balance: amt(200)},
		}
		m := computeMetrics("doc-1", "group-1", txns, AccountInfo{})
		assert.Len(t, m.CurrencyBreakdown, 2)
	})
}

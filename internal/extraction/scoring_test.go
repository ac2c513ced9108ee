package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/castlemilk/thirdeye/backend/internal/store"
)

func TestScoreAccuracy(t *testing.T) {
	t.Run("perfect statement grades A or better", func(t *testing.T) {
		txns := []*txn{
			{Date: "01 JAN", Description: "OPENING BALANCE", Type: store.TxOpeningBalance, Balance: amt(1000)},
			{Date: "02 JAN", Description: "SALARY", Type: store.TxCredit, Amount: amt(500), Balance: amt(1500)},
			{Date: "28 JAN", Description: "CLOSING BALANCE", Type: store.TxClosingBalance, Balance: amt(1500)},
		}
		info := AccountInfo{OpeningBalance: amt(1000), ClosingBalance: amt(1500)}
		report := scoreAccuracy(txns, info, validateBalanceChain(txns))

		assert.Contains(t, []string{"A", "A+"}, report.Grade, "score=%v", report.Score)
		assert.Equal(t, 100.0, report.AccountingEquation)
		assert.Equal(t, 100.0, report.OpeningClosingPresent)
	})

	t.Run("broken accounting equation scores zero", func(t *testing.T) {
		txns := []*txn{
			{Date: "01 JAN", Description: "OPENING BALANCE", Type: store.TxOpeningBalance, Balance: amt(1000)},
			{Date: "02 JAN", Description: "SALARY", Type: store.TxCredit, Amount: amt(500), Balance: amt(2000)}, // chain break
		}
		info := AccountInfo{OpeningBalance: amt(1000), ClosingBalance: amt(9999)}
		report := scoreAccuracy(txns, info, validateBalanceChain(txns))

		assert.Equal(t, 0.0, report.AccountingEquation)
	})

	t.Run("empty chain counts as fully accurate", func(t *testing.T) {
		txns := []*txn{
			{Date: "02 JAN", Description: "SALARY", Type: store.TxCredit, Amount: amt(500)},
		}
		report := scoreAccuracy(txns, AccountInfo{}, validateBalanceChain(txns))

		assert.Equal(t, 100.0, report.BalanceChain)
		assert.Equal(t, 100.0, report.AccountingEquation, "the chain short-circuit applies to an empty chain too")
	})
}

func TestLetterGrade(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, "A+"}, {95, "A+"}, {94, "A"}, {85, "B"}, {75, "C"}, {65, "D"}, {55, "D"}, {49, "F"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, letterGrade(tc.score), "letterGrade(%v)", tc.score)
	}
}

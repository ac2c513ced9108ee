package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/thirdeye/backend/internal/store"
)

func TestBatchSizeFor(t *testing.T) {
	tests := []struct {
		avgChars int
		want     int
	}{
		{2000, 2},
		{1600, 2},
		{1200, 3},
		{800, 3},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, batchSizeFor(tc.avgChars), "batchSizeFor(%d)", tc.avgChars)
	}
}

func TestCleanPageNoise(t *testing.T) {
	text := "15 JAN SALARY CREDIT 3000.00\nPage 2 of 10\n\nThis is a computer generated statement\n16 JAN FEE 5.00"
	got := cleanPageNoise(text)
	assert.NotEqual(t, text, got)
	assert.NotContains(t, got, "Page 2 of 10")
	assert.NotContains(t, got, "computer generated")
	assert.Contains(t, got, "SALARY CREDIT")
	assert.Contains(t, got, "FEE 5.00")
}

func TestModelTxnToTxn(t *testing.T) {
	t.Run("normalises and trims fields", func(t *testing.T) {
		mt := modelTxn{Date: "2 Jan", Description: "  SALARY  ", Type: "credit", Amount: amt(500), Reference: "REF1"}
		got := modelTxnToTxn(mt, 3)
		assert.Equal(t, store.TxCredit, got.Type)
		assert.Equal(t, "02 JAN", got.Date)
		assert.Equal(t, "SALARY", got.Description)
		assert.Equal(t, 3, got.Page)
	})

	t.Run("infers debit from a negative amount", func(t *testing.T) {
		mt := modelTxn{Date: "2 Jan", Amount: amt(-42)}
		assert.Equal(t, store.TxDebit, modelTxnToTxn(mt, 0).Type)
	})
}

func TestParseModelTxns_AcceptsBareArrayAndWrapper(t *testing.T) {
	bare := `[{"date": "01 DEC", "type": "debit", "amount": 10.5}]`
	got, err := parseModelTxns(bare)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	wrapped := `{"transactions": [{"date": "01 DEC", "type": "debit", "amount": 10.5}, {"date": "02 DEC", "type": "credit", "amount": 3}]}`
	got, err = parseModelTxns(wrapped)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestDetectBankFromText(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"STATEMENT OF ACCOUNT | DBS BANK LTD", "DBS"},
		{"united overseas bank limited", "UOB"},
		{"HSBC Bank (Singapore) Limited", "HSBC"},
		{"some neobank nobody knows", "Unknown"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, detectBankFromText(tc.text), "detectBankFromText(%q)", tc.text)
	}
}

func TestStripBankNoise(t *testing.T) {
	text := "01 DEC | FAST PAYMENT | 100.00\nDeposit Insurance Scheme protects deposits\n02 DEC | GIRO | 50.00"
	got := stripBankNoise("DBS", text)
	assert.NotContains(t, got, "Deposit Insurance")
	assert.Contains(t, got, "FAST PAYMENT")
	assert.Contains(t, got, "GIRO")

	// Unknown bank: text passes through untouched.
	assert.Equal(t, text, stripBankNoise("Unknown", text))
}

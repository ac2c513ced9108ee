package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/thirdeye/backend/internal/pdfprimitives"
	"github.com/castlemilk/thirdeye/backend/internal/store"
)

func TestClassifyRow(t *testing.T) {
	tests := []struct {
		name      string
		date      string
		desc      string
		hasAmount bool
		want      rowClass
	}{
		{"dated row starts txn", "01 DEC", "FAST PAYMENT", true, rowStartsTxn},
		{"balance b/f starts txn", "", "BALANCE B/F", false, rowStartsTxn},
		{"amount only row", "", "", true, rowAmountOnly},
		{"description continuation", "", "SUPPLIER PAYMENT", false, rowDescriptionOnly},
		{"empty row", "", "", false, rowEmpty},
		{"currency marker", "", "USD", false, rowCurrencyMarker},
		{"page summary skip", "", "TOTAL WITHDRAWALS", false, rowSkip},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyRow(tc.date, tc.desc, tc.hasAmount))
		})
	}
}

// An OCBC-style layout: date/value_date/description/debit/credit/balance at
// x=70,130,280,360,430,500.
func TestComputeColumnBounds_OCBCBorderlessLayout(t *testing.T) {
	cols := []headerColumn{
		{Canonical: "transaction_date", X0: 65, X1: 75},
		{Canonical: "value_date", X0: 125, X1: 135},
		{Canonical: "description", X0: 270, X1: 290},
		{Canonical: "debit", X0: 355, X1: 365},
		{Canonical: "credit", X0: 425, X1: 435},
		{Canonical: "balance", X0: 495, X1: 505},
	}
	bounds := computeColumnBounds(cols, 612.0)
	require.Len(t, bounds, 6)

	// A word centred at x=395 sits exactly on the midpoint boundary between
	// debit@360 and credit@430 and resolves to one of those two columns.
	col, ok := columnForX(bounds, 395)
	require.True(t, ok)
	assert.Contains(t, []string{"debit", "credit"}, col)

	for _, b := range bounds {
		switch b.Canonical {
		case "transaction_date":
			assert.Equal(t, 0.0, b.Left, "leftmost column bound starts at 0")
		case "balance":
			assert.Equal(t, 612.0, b.Right, "rightmost column bound extends to page width")
		}
	}
}

func f64(v float64) *float64 { return &v }

// A reverse-chronological statement is detected and reversed before
// balance-chain validation.
func TestSniffDirection(t *testing.T) {
	t.Run("reverses newest-first statements", func(t *testing.T) {
		// Stored newest-first: read forwards the balances jump incoherently;
		// reversed, the chain is consistent.
		txns := []*txn{
			{Type: store.TxCredit, Amount: f64(100), Balance: f64(400)},
			{Type: store.TxCredit, Amount: f64(100), Balance: f64(300)},
			{Type: store.TxCredit, Amount: f64(100), Balance: f64(200)},
			{Type: store.TxCredit, Amount: f64(100), Balance: f64(100)},
		}
		got := sniffDirection(txns)
		assert.Equal(t, 100.0, *got[0].Balance, "smallest balance should come first after reversal")
	})

	t.Run("leaves forward-chronological order alone", func(t *testing.T) {
		txns := []*txn{
			{Type: store.TxCredit, Amount: f64(100), Balance: f64(100)},
			{Type: store.TxCredit, Amount: f64(100), Balance: f64(200)},
			{Type: store.TxCredit, Amount: f64(100), Balance: f64(300)},
		}
		got := sniffDirection(txns)
		assert.Equal(t, 100.0, *got[0].Balance)
	})
}

func TestBandWords_GroupsByYProximity(t *testing.T) {
	words := []pdfprimitives.Word{
		{X0: 10, X1: 20, Top: 500, Bottom: 490, Text: "A"},
		{X0: 30, X1: 40, Top: 501, Bottom: 491, Text: "B"},
		{X0: 10, X1: 20, Top: 400, Bottom: 390, Text: "C"},
	}
	bands := bandWords(words, 4)
	require.Len(t, bands, 2)
	assert.Len(t, bands[0].Words, 2, "the two close-y words share a band")
}

package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormaliseDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"15-Jan-2024", "15 JAN"},
		{"1-Jan-2024", "01 JAN"},
		{"15 Jan 2024", "15 JAN"},
		{"15Jan2024", "15 JAN"},
		{"5 Jan", "05 JAN"},
		{"01/02/2024", "01 FEB"},
		{"", ""},
		{"not a date", "not a date"},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.want, normaliseDate(tc.input))
		})
	}
}

// normaliseDate(normaliseDate(x)) == normaliseDate(x).
func TestNormaliseDateIdempotent(t *testing.T) {
	for _, in := range []string{"15-Jan-2024", "1/2/2024", "5 Jan", "15Jan2024", "garbage"} {
		once := normaliseDate(in)
		assert.Equal(t, once, normaliseDate(once), "input %q", in)
	}
}

func TestClassifyChannel(t *testing.T) {
	tests := []struct {
		desc string
		want string
	}{
		{"FAST PAYMENT TO JOHN TAN", "FAST"},
		{"GIRO DEDUCTION SP SERVICES", "GIRO"},
		{"ATM WITHDRAWAL ORCHARD", "ATM"},
		{"CHEQUE 000123 DEPOSIT", "CHEQUE"},
		{"PAYNOW TRANSFER", "PAYNOW"},
		{"SOMETHING UNRECOGNISED", "OTHER"},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyChannel(tc.desc))
		})
	}
}

func TestClassifyCategory(t *testing.T) {
	tests := []struct {
		desc string
		want string
	}{
		{"SALARY CREDIT ACME CORP", "salary_payroll"},
		{"IRAS INCOME TAX", "tax_government"},
		{"GRAB RIDE PAYMENT", "transport"},
		{"RANDOM MERCHANT XYZ", "other"},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyCategory(tc.desc))
		})
	}
}

func TestExtractCounterparty(t *testing.T) {
	t.Run("skips channel line and reference line", func(t *testing.T) {
		desc := "FAST PAYMENT\nJOHN TAN WEI MING\nFT24011234567890"
		assert.Equal(t, "JOHN TAN WEI MING", extractCounterparty(desc))
	})

	t.Run("no candidate yields empty", func(t *testing.T) {
		assert.Equal(t, "", extractCounterparty("FAST PAYMENT\nFT24011234567890"))
	})
}

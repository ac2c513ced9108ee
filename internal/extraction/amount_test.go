package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		isNil bool
	}{
		{"45.67", 45.67, false},
		{"$45.67", 45.67, false},
		{"$1,234.56", 1234.56, false},
		{"(45.67)", -45.67, false},
		{"-45.67", -45.67, false},
		{"", 0, true},
		{"-", 0, true},
		{"notanumber", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got := parseAmount(tc.input)
			if tc.isNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tc.want, *got)
		})
	}
}

func TestParseColumnAmount(t *testing.T) {
	t.Run("trailing DR negates the balance", func(t *testing.T) {
		got := parseColumnAmount("1,200.00 DR")
		require.NotNil(t, got)
		assert.Equal(t, -1200.00, *got)
	})

	t.Run("no monetary token yields nil", func(t *testing.T) {
		assert.Nil(t, parseColumnAmount("DBS BANK"))
	})
}

// parseAmount(formatAmount(x)) == x for every non-null numeric x.
func TestAmountRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 0.5, 45.67, 1234.56, -1234.56, 999999.99} {
		back := parseAmount(formatAmount(v))
		require.NotNil(t, back, "formatAmount(%v)", v)
		assert.Equal(t, v, *back)
	}
}

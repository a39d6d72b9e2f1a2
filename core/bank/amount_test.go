package bank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		input string
		want  Amount
	}{
		{"20", 2000},
		{"12.50", 1250},
		{" 0.01 ", 1},
		{"100.999", 10100},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.input)
		require.NoError(t, err, "input %q", tc.input)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
	}
}

func TestParseAmountRejectsBadInput(t *testing.T) {
	for _, input := range []string{"", "  ", "ten", "0", "-5", "0.004", "NaN", "Inf", "1e309"} {
		_, err := ParseAmount(input)
		assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", input)
	}
}

func TestAmountString(t *testing.T) {
	assert.Equal(t, "20.00", Amount(2000).String())
	assert.Equal(t, "0.05", Amount(5).String())
	assert.Equal(t, "12.50", Amount(1250).String())
	assert.Equal(t, "-3.25", Amount(-325).String())
}

package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesCurrency(t *testing.T) {
	m, err := New(1500, "eur")
	require.NoError(t, err)
	assert.Equal(t, "EUR", m.Currency)

	_, err = New(100, "EURO")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestAddRejectsCurrencyMismatch(t *testing.T) {
	_, err := Must(100, "EUR").Add(Must(100, "CHF"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestSplitPercentIsExact(t *testing.T) {
	cases := []struct {
		amount  int64
		percent float64
		share   int64
	}{
		{10000, 15, 1500},
		{9999, 15, 1500},  // 1499.85 rounds half-up
		{10001, 12, 1200}, // 1200.12 rounds down
		{333, 33.33, 111}, // 110.99 -> 111
		{1, 50, 1},        // 0.5 rounds up
		{10000, 0, 0},
		{10000, 100, 10000},
	}
	for _, tc := range cases {
		share, rest, err := Money{Amount: tc.amount, Currency: "EUR"}.SplitPercent(tc.percent)
		require.NoError(t, err)
		assert.Equal(t, tc.share, share.Amount, "amount=%d percent=%v", tc.amount, tc.percent)
		assert.Equal(t, tc.amount, share.Amount+rest.Amount, "split must reassemble exactly")
	}
}

func TestSplitPercentRejectsOutOfRange(t *testing.T) {
	_, _, err := Must(100, "EUR").SplitPercent(-1)
	assert.ErrorIs(t, err, ErrInvalidPercent)
	_, _, err = Must(100, "EUR").SplitPercent(101)
	assert.ErrorIs(t, err, ErrInvalidPercent)
}

func TestString(t *testing.T) {
	assert.Equal(t, "123.45 EUR", Money{Amount: 12345, Currency: "EUR"}.String())
	assert.Equal(t, "0.05 EUR", Money{Amount: 5, Currency: "EUR"}.String())
}

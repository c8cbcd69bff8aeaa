package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAddRejectsCurrencyMismatch(t *testing.T) {
	_, err := Must(100, "NGN").Add(Must(100, "USD"))
	require.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestPercentRoundsHalfUp(t *testing.T) {
	cases := []struct {
		amount int64
		rate   string
		want   int64
	}{
		{amount: 10000, rate: "0.9", want: 9000},
		{amount: 333, rate: "0.5", want: 167},
		{amount: 999, rate: "0.05", want: 50},
		{amount: 0, rate: "0.25", want: 0},
	}
	for _, tc := range cases {
		got, err := Must(tc.amount, "ngn").Percent(decimal.RequireFromString(tc.rate))
		require.NoError(t, err)
		require.Equal(t, tc.want, got.Amount, "amount=%d rate=%s", tc.amount, tc.rate)
		require.Equal(t, "NGN", got.Currency)
	}
}

func TestPercentRejectsOutOfRangeRate(t *testing.T) {
	_, err := Must(100, "NGN").Percent(decimal.RequireFromString("1.5"))
	require.ErrorIs(t, err, ErrInvalidRate)
}

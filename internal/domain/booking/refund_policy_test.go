package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassifyTiers(t *testing.T) {
	p := DefaultRefundPolicy()
	cases := []struct {
		before time.Duration
		want   RefundTier
	}{
		{before: 100 * time.Hour, want: TierEarly},
		{before: 72 * time.Hour, want: TierEarly},
		{before: 71 * time.Hour, want: TierMedium},
		{before: 24 * time.Hour, want: TierMedium},
		{before: 23 * time.Hour, want: TierLate},
		{before: time.Minute, want: TierLate},
		{before: 0, want: TierNone},
		{before: -time.Hour, want: TierNone},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, p.Classify(checkIn.Add(-tc.before), checkIn), "before=%s", tc.before)
	}
}

func TestGuestQuoteByTier(t *testing.T) {
	p := DefaultRefundPolicy()
	price := testPrice()

	early := p.GuestQuote(price, checkIn.Add(-96*time.Hour), checkIn)
	require.Equal(t, TierEarly, early.Tier)
	require.Equal(t, int64(100000), early.Room.Amount)
	require.Equal(t, int64(100000+10000+20000), early.Total.Amount)
	require.True(t, early.Service.IsZero())

	medium := p.GuestQuote(price, checkIn.Add(-48*time.Hour), checkIn)
	require.Equal(t, int64(50000), medium.Room.Amount)
	require.Equal(t, int64(50000+10000+20000), medium.Total.Amount)

	late := p.GuestQuote(price, checkIn.Add(-2*time.Hour), checkIn)
	require.Equal(t, int64(25000), late.Room.Amount)

	none := p.GuestQuote(price, checkIn.Add(time.Hour), checkIn)
	require.Equal(t, TierNone, none.Tier)
	require.True(t, none.Room.IsZero())
	require.True(t, none.Cleaning.IsZero())
	require.Equal(t, int64(20000), none.Total.Amount)
}

func TestGuestQuoteNeverExceedsPaid(t *testing.T) {
	p := RefundPolicy{EarlyHours: 1, MediumHours: 0, EarlyPercent: 250}
	price := testPrice()
	require.NoError(t, price.RecalculateTotal())
	q := p.GuestQuote(price, checkIn.Add(-48*time.Hour), checkIn)
	require.Equal(t, 100, q.Percent)
	require.LessOrEqual(t, q.Total.Amount, price.Total.Amount)
}

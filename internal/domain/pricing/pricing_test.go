package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"shortlet/internal/domain/listings"
	"shortlet/internal/domain/shared/daterange"
	"shortlet/internal/domain/shared/money"
)

func activeListing(t *testing.T) *listings.Listing {
	t.Helper()
	l, err := listings.NewListing(listings.CreateListingParams{
		ID:              "lst-1",
		Realtor:         "realtor-1",
		Title:           "Lekki loft",
		Address:         listings.Address{Line1: "1 Admiralty Way", City: "Lagos", Country: "NG"},
		GuestsLimit:     3,
		MinNights:       2,
		MaxNights:       14,
		NightlyRate:     money.Must(2500000, "NGN"),
		CleaningFee:     money.Must(500000, "NGN"),
		SecurityDeposit: money.Must(1000000, "NGN"),
		Now:             time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, l.Activate(time.Now()))
	return l
}

func TestQuoteBreaksDownStay(t *testing.T) {
	l := activeListing(t)
	in := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	stay, err := daterange.New(in, in.AddDate(0, 0, 3))
	require.NoError(t, err)

	quote, err := Quote(l, stay, 2, DefaultFeePolicy())
	require.NoError(t, err)
	require.Equal(t, 3, quote.Nights)
	require.Equal(t, int64(7500000), quote.RoomFee.Amount)
	require.Equal(t, int64(375000), quote.ServiceFee.Amount)
	require.Equal(t, int64(7500000+500000+1000000+375000), quote.Total.Amount)
	require.Equal(t, "NGN", quote.Currency())
}

func TestQuoteRejectsInvalidStays(t *testing.T) {
	l := activeListing(t)
	in := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	oneNight, _ := daterange.New(in, in.AddDate(0, 0, 1))
	longStay, _ := daterange.New(in, in.AddDate(0, 0, 30))
	ok, _ := daterange.New(in, in.AddDate(0, 0, 2))

	_, err := Quote(l, oneNight, 1, DefaultFeePolicy())
	require.ErrorIs(t, err, ErrStayTooShort)
	_, err = Quote(l, longStay, 1, DefaultFeePolicy())
	require.ErrorIs(t, err, ErrStayTooLong)
	_, err = Quote(l, ok, 4, DefaultFeePolicy())
	require.ErrorIs(t, err, ErrGuestsExceeded)

	require.NoError(t, l.Suspend(time.Now(), "audit"))
	_, err = Quote(l, ok, 1, DefaultFeePolicy())
	require.ErrorIs(t, err, ErrListingUnavailable)
}

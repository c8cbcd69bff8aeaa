package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"shortlet/internal/domain/listings"
	"shortlet/internal/domain/pricing"
	"shortlet/internal/domain/shared/daterange"
	"shortlet/internal/domain/shared/money"
)

var checkIn = time.Date(2026, 11, 20, 14, 0, 0, 0, time.UTC)

func testPrice() pricing.PriceBreakdown {
	return pricing.PriceBreakdown{
		Nights:          2,
		Nightly:         money.Must(50000, "NGN"),
		RoomFee:         money.Must(100000, "NGN"),
		CleaningFee:     money.Must(10000, "NGN"),
		SecurityDeposit: money.Must(20000, "NGN"),
		ServiceFee:      money.Must(5000, "NGN"),
	}
}

func newTestBooking(t *testing.T, now time.Time) *Booking {
	t.Helper()
	stay, err := daterange.New(checkIn, checkIn.AddDate(0, 0, 2))
	require.NoError(t, err)
	b, err := NewBooking(CreateParams{
		ID:            "bk-1",
		Listing:       &listings.Listing{ID: "lst-1", Realtor: "realtor-1"},
		GuestID:       "guest-1",
		Range:         stay,
		Guests:        2,
		Price:         testPrice(),
		PaymentWindow: 30 * time.Minute,
		CreatedAt:     now,
	})
	require.NoError(t, err)
	return b
}

func TestNewBookingComputesTotalAndDeadline(t *testing.T) {
	now := checkIn.AddDate(0, 0, -10)
	b := newTestBooking(t, now)
	require.Equal(t, StatePendingPayment, b.State)
	require.Equal(t, int64(135000), b.Price.Total.Amount)
	require.Equal(t, now.Add(30*time.Minute), b.PaymentDeadline)
	require.Equal(t, listings.RealtorID("realtor-1"), b.RealtorID)
	require.Len(t, b.PendingEvents(), 1)
}

func TestNewBookingRejectsOwnListing(t *testing.T) {
	_, err := NewBooking(CreateParams{
		ID:      "bk-1",
		Listing: &listings.Listing{ID: "lst-1", Realtor: "u-1"},
		GuestID: "u-1",
		Guests:  1,
		Price:   testPrice(),
	})
	require.ErrorIs(t, err, ErrCannotBookOwnListing)
}

func TestConfirmIsIdempotentForSameReference(t *testing.T) {
	now := checkIn.AddDate(0, 0, -10)
	b := newTestBooking(t, now)
	require.NoError(t, b.Confirm("pay-1", now))
	require.NoError(t, b.Confirm("pay-1", now))
	require.ErrorIs(t, b.Confirm("pay-2", now), ErrPaymentRefMismatch)
	require.Equal(t, StateConfirmed, b.State)
}

func TestExpireRespectsPaymentDeadline(t *testing.T) {
	now := checkIn.AddDate(0, 0, -10)
	b := newTestBooking(t, now)
	require.True(t, b.IsActive(now))
	require.ErrorIs(t, b.Expire(now.Add(10*time.Minute)), ErrPaymentWindowOpen)
	require.NoError(t, b.Expire(now.Add(31*time.Minute)))
	require.Equal(t, StateExpired, b.State)
	require.False(t, b.IsActive(now))
}

func TestStayLifecycle(t *testing.T) {
	now := checkIn.AddDate(0, 0, -10)
	b := newTestBooking(t, now)
	require.NoError(t, b.Confirm("pay-1", now))
	require.ErrorIs(t, b.CheckIn(checkIn.Add(-time.Hour)), ErrTooEarlyForCheckIn)
	require.NoError(t, b.CheckIn(checkIn.Add(time.Hour)))
	require.ErrorIs(t, b.Complete(checkIn), ErrInvalidState)
	out := checkIn.AddDate(0, 0, 2)
	require.NoError(t, b.CheckOut(out))
	require.Equal(t, out, b.StayEnd())
	require.NoError(t, b.Complete(out.Add(72*time.Hour)))
	require.NoError(t, b.Complete(out.Add(73*time.Hour)))
	require.Equal(t, StateCompleted, b.State)
}

func TestCancelUnpaidBookingOwesNothing(t *testing.T) {
	now := checkIn.AddDate(0, 0, -10)
	b := newTestBooking(t, now)
	quote, err := b.Cancel(ActorGuest, "changed plans", DefaultRefundPolicy(), now)
	require.NoError(t, err)
	require.True(t, quote.Total.IsZero())
	require.Equal(t, StateCancelled, b.State)
	_, err = b.Cancel(ActorGuest, "again", DefaultRefundPolicy(), now)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestCancelByRealtorRefundsEverything(t *testing.T) {
	now := checkIn.AddDate(0, 0, -1)
	b := newTestBooking(t, now)
	require.NoError(t, b.Confirm("pay-1", now))
	quote, err := b.Cancel(ActorRealtor, "double booked", DefaultRefundPolicy(), now)
	require.NoError(t, err)
	require.Equal(t, TierFull, quote.Tier)
	require.Equal(t, b.Price.Total, quote.Total)
}

func TestEnsureAvailableIgnoresInactiveBookings(t *testing.T) {
	now := checkIn.AddDate(0, 0, -10)
	b := newTestBooking(t, now)
	overlap, _ := daterange.New(checkIn.AddDate(0, 0, 1), checkIn.AddDate(0, 0, 3))
	require.ErrorIs(t, EnsureAvailable([]*Booking{b}, overlap, now), ErrDatesUnavailable)
	require.NoError(t, EnsureAvailable([]*Booking{b}, overlap, now.Add(time.Hour)))
}

func TestFilterDueByFollowsNextTransition(t *testing.T) {
	now := checkIn.AddDate(0, 0, -10)
	b := newTestBooking(t, now)
	require.Equal(t, b.PaymentDeadline, b.NextTransitionAt())

	due := Filter{States: []BookingState{StatePendingPayment}, DueBy: now.Add(29 * time.Minute)}
	require.False(t, due.Matches(b))
	due.DueBy = now.Add(30 * time.Minute)
	require.True(t, due.Matches(b))

	require.NoError(t, b.Confirm("pay-1", now))
	require.Equal(t, checkIn, b.NextTransitionAt())
	require.False(t, Filter{DueBy: checkIn.Add(-time.Minute)}.Matches(b))
	require.True(t, Filter{DueBy: checkIn}.Matches(b))

	require.NoError(t, b.CheckIn(checkIn.Add(time.Hour)))
	require.Equal(t, b.Range.CheckOut, b.NextTransitionAt())
	require.False(t, Filter{DueBy: checkIn.Add(time.Hour)}.Matches(b))

	require.NoError(t, b.CheckOut(b.Range.CheckOut))
	require.True(t, b.NextTransitionAt().IsZero())
	require.False(t, Filter{DueBy: b.Range.CheckOut.AddDate(1, 0, 0)}.Matches(b))
	require.True(t, Filter{}.Matches(b))
}

package wallet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"shortlet/internal/domain/shared/money"
)

func TestCreditIgnoresReplayedKey(t *testing.T) {
	now := time.Now()
	w := New("realtor-1", KindRealtor, "NGN", now)

	applied, err := w.Credit(money.Must(9000, "NGN"), "bk-1:ROOM_FEE", now)
	require.NoError(t, err)
	require.True(t, applied)
	applied, err = w.Credit(money.Must(9000, "NGN"), "bk-1:ROOM_FEE", now)
	require.NoError(t, err)
	require.False(t, applied)
	require.Equal(t, int64(9000), w.Balance.Amount)
	require.Equal(t, int64(9000), w.TotalEarned.Amount)
}

func TestDebitAndRestore(t *testing.T) {
	now := time.Now()
	w := New("realtor-1", KindRealtor, "NGN", now)
	_, err := w.Credit(money.Must(5000, "NGN"), "k1", now)
	require.NoError(t, err)

	require.ErrorIs(t, w.Debit(money.Must(6000, "NGN"), now), ErrInsufficientFunds)
	require.ErrorIs(t, w.Debit(money.Must(100, "USD"), now), money.ErrCurrencyMismatch)
	require.NoError(t, w.Debit(money.Must(4000, "NGN"), now))
	require.Equal(t, int64(1000), w.Balance.Amount)
	require.Equal(t, int64(4000), w.TotalWithdrawn.Amount)

	require.NoError(t, w.Restore(money.Must(4000, "NGN"), now))
	require.Equal(t, int64(5000), w.Balance.Amount)
	require.Equal(t, int64(0), w.TotalWithdrawn.Amount)
}

func TestPayoutTransitions(t *testing.T) {
	now := time.Now()
	_, err := NewPayout("po-1", "realtor-1", " ", money.Must(100, "NGN"), now)
	require.ErrorIs(t, err, ErrRecipientRequired)

	p, err := NewPayout("po-1", "realtor-1", "RCP_123", money.Must(100, "NGN"), now)
	require.NoError(t, err)
	require.NoError(t, p.MarkPaid("trf_1", now))
	require.NoError(t, p.MarkPaid("trf_1", now))
	require.ErrorIs(t, p.MarkFailed("late failure", now), ErrPayoutState)
}

func TestPayoutStaysPendingAfterInconclusiveAttempt(t *testing.T) {
	now := time.Now()
	p, err := NewPayout("po-2", "realtor-1", "RCP_123", money.Must(100, "NGN"), now)
	require.NoError(t, err)

	require.NoError(t, p.NoteAttempt("gateway timeout", now))
	require.Equal(t, PayoutPending, p.Status)
	require.Equal(t, 1, p.Attempts)
	require.Equal(t, "gateway timeout", p.LastError)

	require.NoError(t, p.MarkPaid("trf_2", now))
	require.ErrorIs(t, p.NoteAttempt("late timeout", now), ErrPayoutState)
}

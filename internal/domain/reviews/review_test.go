package reviews

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEditReplacesRatingAndText(t *testing.T) {
	created := time.Date(2026, time.March, 16, 9, 0, 0, 0, time.UTC)
	r, err := Submit(SubmitParams{ID: "rv-1", BookingID: "bk-1", AuthorID: "guest-1", ListingID: "l-1", Rating: 2, Text: "noisy", CreatedAt: created})
	require.NoError(t, err)
	r.Drain()

	require.ErrorIs(t, r.Edit(0, "", created), ErrInvalidRating)
	require.ErrorIs(t, r.Edit(3, strings.Repeat("x", maxTextLength+1), created), ErrTextTooLong)
	require.Equal(t, 2, r.Rating)

	edited := created.Add(2 * time.Hour)
	require.NoError(t, r.Edit(4, "  quiet after all ", edited))
	require.Equal(t, 4, r.Rating)
	require.Equal(t, "quiet after all", r.Text)
	require.Equal(t, edited, r.UpdatedAt)
	require.Equal(t, created, r.CreatedAt)

	pending := r.PendingEvents()
	require.Len(t, pending, 1)
	require.Equal(t, "review.updated", pending[0].EventName())
}

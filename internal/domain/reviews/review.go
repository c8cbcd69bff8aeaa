package reviews

import (
	"context"
	"errors"
	"strings"
	"time"

	"shortlet/internal/domain/booking"
	"shortlet/internal/domain/listings"
	"shortlet/internal/domain/shared/events"
)

var (
	ErrInvalidRating = errors.New("reviews: rating must be between 1 and 5")
	ErrNotFound      = errors.New("reviews: not found")
	ErrTextTooLong   = errors.New("reviews: text exceeds 2000 characters")
)

const maxTextLength = 2000

type ReviewID string

type Review struct {
	ID        ReviewID
	BookingID booking.BookingID
	AuthorID  string
	ListingID listings.ListingID
	Rating    int
	Text      string
	CreatedAt time.Time
	UpdatedAt time.Time
	events.EventRecorder
}

type Repository interface {
	ByBooking(ctx context.Context, bookingID booking.BookingID) (*Review, error)
	ListByListing(ctx context.Context, listingID listings.ListingID, limit, offset int) ([]*Review, error)
	Save(ctx context.Context, review *Review) error
}

type SubmitParams struct {
	ID        ReviewID
	BookingID booking.BookingID
	AuthorID  string
	ListingID listings.ListingID
	Rating    int
	Text      string
	CreatedAt time.Time
}

func Submit(params SubmitParams) (*Review, error) {
	if params.Rating < 1 || params.Rating > 5 {
		return nil, ErrInvalidRating
	}
	text := strings.TrimSpace(params.Text)
	if len([]rune(text)) > maxTextLength {
		return nil, ErrTextTooLong
	}
	review := &Review{
		ID:        params.ID,
		BookingID: params.BookingID,
		AuthorID:  params.AuthorID,
		ListingID: params.ListingID,
		Rating:    params.Rating,
		Text:      text,
		CreatedAt: params.CreatedAt.UTC(),
	}
	review.Record(ReviewSubmitted{ReviewID: review.ID, BookingID: review.BookingID, ListingID: review.ListingID, Rating: review.Rating, At: review.CreatedAt})
	return review, nil
}

// Edit replaces the rating and text of a submitted review.
func (r *Review) Edit(rating int, text string, now time.Time) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	text = strings.TrimSpace(text)
	if len([]rune(text)) > maxTextLength {
		return ErrTextTooLong
	}
	r.Rating = rating
	r.Text = text
	r.UpdatedAt = now.UTC()
	r.Record(ReviewUpdated{ReviewID: r.ID, ListingID: r.ListingID, Rating: rating, At: r.UpdatedAt})
	return nil
}

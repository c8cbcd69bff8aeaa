package reviews

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"shortlet/internal/app/commands"
	"shortlet/internal/app/dto"
	handlersupport "shortlet/internal/app/handlers/support"
	"shortlet/internal/app/outbox"
	"shortlet/internal/app/uow"
	domainbooking "shortlet/internal/domain/booking"
	domainreviews "shortlet/internal/domain/reviews"
)

const submitReviewKey = "reviews.submit"

var (
	ErrBookingOwnership = errors.New("reviews: booking does not belong to current user")
	ErrStayNotFinished  = errors.New("reviews: stay is not finished yet")
	ErrDuplicateReview  = errors.New("reviews: review already exists for booking")
)

// SubmitReviewCommand creates a new review for a booking.
type SubmitReviewCommand struct {
	BookingID string
	AuthorID  string
	Rating    int
	Text      string
}

func (c SubmitReviewCommand) Key() string { return submitReviewKey }

func (c SubmitReviewCommand) ActorID() string { return c.AuthorID }

func (c SubmitReviewCommand) Validate() error {
	if strings.TrimSpace(c.BookingID) == "" {
		return errors.New("booking id is required")
	}
	if c.Rating < 1 || c.Rating > 5 {
		return domainreviews.ErrInvalidRating
	}
	return nil
}

// SubmitReviewHandler validates and stores a new review, updating listing rating.
type SubmitReviewHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      handlersupport.Clock
	Logger     *slog.Logger
}

func (h *SubmitReviewHandler) Handle(ctx context.Context, cmd SubmitReviewCommand) (dto.Review, error) {
	var review *domainreviews.Review
	err := handlersupport.WithUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		now := h.Clock.Now()
		booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(strings.TrimSpace(cmd.BookingID)))
		if err != nil {
			return err
		}
		if booking.GuestID != cmd.AuthorID {
			return ErrBookingOwnership
		}
		if booking.State != domainbooking.StateCheckedOut && booking.State != domainbooking.StateCompleted {
			return ErrStayNotFinished
		}

		if existing, err := unit.Reviews().ByBooking(ctx, booking.ID); err == nil && existing != nil {
			return ErrDuplicateReview
		} else if err != nil && !errors.Is(err, domainreviews.ErrNotFound) {
			return err
		}

		review, err = domainreviews.Submit(domainreviews.SubmitParams{
			ID:        domainreviews.ReviewID(uuid.NewString()),
			BookingID: booking.ID,
			AuthorID:  cmd.AuthorID,
			ListingID: booking.ListingID,
			Rating:    cmd.Rating,
			Text:      cmd.Text,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		if err := unit.Reviews().Save(ctx, review); err != nil {
			return err
		}
		if err := recalculateListingRating(ctx, unit, booking.ListingID, now); err != nil {
			return err
		}
		return handlersupport.RecordEvents(ctx, h.Outbox, h.Encoder, review)
	})
	if err != nil {
		return dto.Review{}, err
	}

	if h.Logger != nil {
		h.Logger.Info("review submitted", "booking_id", review.BookingID, "listing_id", review.ListingID, "author_id", cmd.AuthorID, "rating", cmd.Rating)
	}
	return dto.MapReview(review), nil
}

var _ commands.Handler[SubmitReviewCommand, dto.Review] = (*SubmitReviewHandler)(nil)

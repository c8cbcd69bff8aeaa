package reviews

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"shortlet/internal/app/commands"
	"shortlet/internal/app/dto"
	handlersupport "shortlet/internal/app/handlers/support"
	"shortlet/internal/app/outbox"
	"shortlet/internal/app/uow"
	domainbooking "shortlet/internal/domain/booking"
	domainreviews "shortlet/internal/domain/reviews"
)

const updateReviewKey = "reviews.update"

var ErrReviewOwnership = errors.New("reviews: review does not belong to current user")

// UpdateReviewCommand lets a guest edit the review left for their stay.
type UpdateReviewCommand struct {
	BookingID string
	AuthorID  string
	Rating    int
	Text      string
}

func (c UpdateReviewCommand) Key() string { return updateReviewKey }

func (c UpdateReviewCommand) ActorID() string { return c.AuthorID }

func (c UpdateReviewCommand) Validate() error {
	if strings.TrimSpace(c.BookingID) == "" {
		return errors.New("booking id is required")
	}
	if c.Rating < 1 || c.Rating > 5 {
		return domainreviews.ErrInvalidRating
	}
	return nil
}

// UpdateReviewHandler rewrites the review and recalculates the listing rating.
type UpdateReviewHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      handlersupport.Clock
	Logger     *slog.Logger
}

func (h *UpdateReviewHandler) Handle(ctx context.Context, cmd UpdateReviewCommand) (dto.Review, error) {
	var review *domainreviews.Review
	err := handlersupport.WithUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		now := h.Clock.Now()
		var err error
		review, err = unit.Reviews().ByBooking(ctx, domainbooking.BookingID(strings.TrimSpace(cmd.BookingID)))
		if err != nil {
			return err
		}
		if review.AuthorID != cmd.AuthorID {
			return ErrReviewOwnership
		}
		if err := review.Edit(cmd.Rating, cmd.Text, now); err != nil {
			return err
		}
		if err := unit.Reviews().Save(ctx, review); err != nil {
			return err
		}
		if err := recalculateListingRating(ctx, unit, review.ListingID, now); err != nil {
			return err
		}
		return handlersupport.RecordEvents(ctx, h.Outbox, h.Encoder, review)
	})
	if err != nil {
		return dto.Review{}, err
	}

	if h.Logger != nil {
		h.Logger.Info("review updated", "review_id", review.ID, "listing_id", review.ListingID, "author_id", review.AuthorID, "rating", review.Rating)
	}
	return dto.MapReview(review), nil
}

var _ commands.Handler[UpdateReviewCommand, dto.Review] = (*UpdateReviewHandler)(nil)

package reviews

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"shortlet/internal/app/dto"
	handlersupport "shortlet/internal/app/handlers/support"
	"shortlet/internal/app/queries"
	"shortlet/internal/app/uow"
	domainlistings "shortlet/internal/domain/listings"
)

const listListingReviewsKey = "reviews.list"

var ErrListingNotFound = errors.New("reviews: listing not found")

// ListListingReviewsQuery retrieves reviews for a listing.
type ListListingReviewsQuery struct {
	ListingID string
	Limit     int
	Offset    int
}

func (q ListListingReviewsQuery) Key() string { return listListingReviewsKey }

// ListListingReviewsHandler loads paginated reviews for a listing.
type ListListingReviewsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListListingReviewsHandler) Handle(ctx context.Context, q ListListingReviewsQuery) (dto.ReviewCollection, error) {
	limit := normalizeLimit(q.Limit)
	offset := max(q.Offset, 0)

	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ReviewCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	listingID := domainlistings.ListingID(q.ListingID)
	listing, err := unit.Listings().ByID(execCtx, listingID)
	if err != nil {
		return dto.ReviewCollection{}, fmt.Errorf("%w: %v", ErrListingNotFound, err)
	}

	all, err := unit.Reviews().ListByListing(execCtx, listingID, 0, 0)
	if err != nil {
		return dto.ReviewCollection{}, err
	}
	total := len(all)
	windowEnd := min(total, offset+limit)
	offset = min(offset, windowEnd)

	items := make([]dto.Review, 0, windowEnd-offset)
	for _, review := range all[offset:windowEnd] {
		items = append(items, dto.MapReview(review))
	}

	if h.Logger != nil {
		h.Logger.Debug("listing reviews listed", "listing_id", listingID, "count", len(items), "total", total)
	}
	return dto.ReviewCollection{Items: items, Rating: listing.Rating, Total: total}, nil
}

var _ queries.Handler[ListListingReviewsQuery, dto.ReviewCollection] = (*ListListingReviewsHandler)(nil)

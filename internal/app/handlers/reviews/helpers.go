package reviews

import (
	"context"
	"time"

	"shortlet/internal/app/uow"
	domainlistings "shortlet/internal/domain/listings"
	domainreviews "shortlet/internal/domain/reviews"
)

func recalculateListingRating(ctx context.Context, unit uow.UnitOfWork, listingID domainlistings.ListingID, now time.Time) error {
	reviews, err := unit.Reviews().ListByListing(ctx, listingID, 0, 0)
	if err != nil {
		return err
	}
	listing, err := unit.Listings().ByID(ctx, listingID)
	if err != nil {
		return err
	}
	listing.UpdateRating(averageRating(reviews), len(reviews), now)
	return unit.Listings().Save(ctx, listing)
}

func averageRating(items []*domainreviews.Review) float64 {
	if len(items) == 0 {
		return 0
	}
	var total int
	for _, item := range items {
		total += item.Rating
	}
	return float64(total) / float64(len(items))
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

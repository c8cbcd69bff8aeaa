package listings

import (
	"context"
	"time"

	"shortlet/internal/app/dto"
	handlersupport "shortlet/internal/app/handlers/support"
	"shortlet/internal/app/queries"
	"shortlet/internal/app/uow"
	domainbooking "shortlet/internal/domain/booking"
	domainlistings "shortlet/internal/domain/listings"
	"shortlet/internal/domain/shared/daterange"
)

const (
	searchCatalogKey = "listings.search"
	getListingKey    = "listings.get"
)

// SearchCatalogQuery describes request filters.
type SearchCatalogQuery struct {
	City          string
	Country       string
	Location      string
	Amenities     []string
	PropertyTypes []string
	MinGuests     int
	PriceMin      int64
	PriceMax      int64
	CheckIn       time.Time
	CheckOut      time.Time
	Sort          string
	Limit         int
	Offset        int
}

func (q SearchCatalogQuery) Key() string { return searchCatalogKey }

// SearchCatalogHandler loads active listings, leaving out those already
// booked for the requested stay.
type SearchCatalogHandler struct {
	UoWFactory uow.UoWFactory
	Clock      handlersupport.Clock
}

func (h *SearchCatalogHandler) Handle(ctx context.Context, q SearchCatalogQuery) (dto.ListingCatalog, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingCatalog{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	params := domainlistings.SearchParams{
		City:          q.City,
		Country:       q.Country,
		LocationQuery: q.Location,
		Amenities:     append([]string(nil), q.Amenities...),
		PropertyTypes: append([]string(nil), q.PropertyTypes...),
		MinGuests:     q.MinGuests,
		PriceMin:      q.PriceMin,
		PriceMax:      q.PriceMax,
		CheckIn:       q.CheckIn,
		CheckOut:      q.CheckOut,
		Sort:          domainlistings.CatalogSort(q.Sort),
		Limit:         q.Limit,
		Offset:        q.Offset,
		OnlyActive:    true,
	}
	if normalized := params.Normalized(); normalized.HasStay() {
		stay := daterange.DateRange{CheckIn: normalized.CheckIn, CheckOut: normalized.CheckOut}
		unavailable, err := bookedListings(execCtx, unit, stay, h.Clock.Now())
		if err != nil {
			return dto.ListingCatalog{}, err
		}
		params.Unavailable = unavailable
	}

	result, err := unit.Listings().Search(execCtx, params)
	if err != nil {
		return dto.ListingCatalog{}, err
	}
	return dto.MapCatalog(result, params), nil
}

func bookedListings(ctx context.Context, unit uow.UnitOfWork, stay daterange.DateRange, now time.Time) ([]domainlistings.ListingID, error) {
	bookings, err := unit.Bookings().Find(ctx, domainbooking.Filter{
		States: []domainbooking.BookingState{
			domainbooking.StatePendingPayment,
			domainbooking.StateConfirmed,
			domainbooking.StateCheckedIn,
		},
	})
	if err != nil {
		return nil, err
	}
	seen := make(map[domainlistings.ListingID]struct{})
	var out []domainlistings.ListingID
	for _, b := range bookings {
		if !b.IsActive(now) || !b.Range.Overlaps(stay) {
			continue
		}
		if _, ok := seen[b.ListingID]; ok {
			continue
		}
		seen[b.ListingID] = struct{}{}
		out = append(out, b.ListingID)
	}
	return out, nil
}

type GetListingQuery struct {
	ID string
}

func (q GetListingQuery) Key() string { return getListingKey }

type GetListingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetListingHandler) Handle(ctx context.Context, q GetListingQuery) (*dto.Listing, error) {
	id, err := handlersupport.RequireID(q.ID, errListingIDRequired)
	if err != nil {
		return nil, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	listing, err := unit.Listings().ByID(execCtx, domainlistings.ListingID(id))
	if err != nil {
		return nil, err
	}
	result := dto.MapListing(listing)
	return &result, nil
}

var _ queries.Handler[SearchCatalogQuery, dto.ListingCatalog] = (*SearchCatalogHandler)(nil)
var _ queries.Handler[GetListingQuery, *dto.Listing] = (*GetListingHandler)(nil)

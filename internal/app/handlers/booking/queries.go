package booking

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"shortlet/internal/app/dto"
	handlersupport "shortlet/internal/app/handlers/support"
	"shortlet/internal/app/policies"
	"shortlet/internal/app/queries"
	"shortlet/internal/app/uow"
	domainbooking "shortlet/internal/domain/booking"
	domainescrow "shortlet/internal/domain/escrow"
	domainlistings "shortlet/internal/domain/listings"
	domainrange "shortlet/internal/domain/shared/daterange"
)

const (
	getBookingKey          = "booking.get"
	listGuestBookingsKey   = "booking.list_guest"
	listRealtorBookingsKey = "booking.list_realtor"
	listAdminBookingsKey   = "admin.bookings"
	quoteBookingKey        = "booking.quote"
	defaultListLimit       = 100
	allStatusesFilterValue = "ALL"
)

type GetBookingQuery struct {
	BookingID string
	ViewerID  string
	Viewer    domainbooking.Actor
}

func (q GetBookingQuery) Key() string { return getBookingKey }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (*dto.BookingDetail, error) {
	id, err := handlersupport.RequireID(q.BookingID, errBookingIDRequired)
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
	booking, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(id))
	if err != nil {
		return nil, err
	}
	if err := ensureParticipant(booking, q.Viewer, q.ViewerID); err != nil {
		return nil, err
	}
	listing, err := unit.Listings().ByID(execCtx, booking.ListingID)
	if err != nil && !errors.Is(err, domainlistings.ErrListingNotFound) {
		return nil, err
	}
	escrow, err := unit.Escrows().ByBookingID(execCtx, string(booking.ID))
	if err != nil && !errors.Is(err, domainescrow.ErrEscrowNotFound) {
		return nil, err
	}
	detail := dto.MapBookingDetail(booking, listing, escrow)
	return &detail, nil
}

type ListGuestBookingsQuery struct {
	GuestID string
}

func (q ListGuestBookingsQuery) Key() string { return listGuestBookingsKey }

type ListRealtorBookingsQuery struct {
	RealtorID string
	Status    string
}

func (q ListRealtorBookingsQuery) Key() string { return listRealtorBookingsKey }

type ListAdminBookingsQuery struct {
	Status string
	Limit  int
}

func (q ListAdminBookingsQuery) Key() string { return listAdminBookingsKey }

// ListBookingsHandler serves the guest, realtor and admin booking lists.
type ListBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListBookingsHandler) HandleGuest(ctx context.Context, q ListGuestBookingsQuery) (dto.BookingCollection, error) {
	guestID, err := handlersupport.RequireID(q.GuestID, errGuestIDRequired)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	return h.list(ctx, domainbooking.Filter{GuestID: guestID, Limit: defaultListLimit})
}

func (h *ListBookingsHandler) HandleRealtor(ctx context.Context, q ListRealtorBookingsQuery) (dto.BookingCollection, error) {
	realtorID, err := handlersupport.RequireID(q.RealtorID, errRealtorIDRequired)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	return h.list(ctx, domainbooking.Filter{
		RealtorID: domainlistings.RealtorID(realtorID),
		States:    statusFilter(q.Status),
		Limit:     defaultListLimit,
	})
}

func (h *ListBookingsHandler) HandleAdmin(ctx context.Context, q ListAdminBookingsQuery) (dto.BookingCollection, error) {
	limit := q.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	return h.list(ctx, domainbooking.Filter{States: statusFilter(q.Status), Limit: limit})
}

func (h *ListBookingsHandler) list(ctx context.Context, filter domainbooking.Filter) (dto.BookingCollection, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	bookings, err := unit.Bookings().Find(execCtx, filter)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	listings := make(map[domainlistings.ListingID]*domainlistings.Listing)
	items := make([]dto.BookingSummary, 0, len(bookings))
	for _, b := range bookings {
		listing, seen := listings[b.ListingID]
		if !seen {
			listing, err = unit.Listings().ByID(execCtx, b.ListingID)
			if err != nil && !errors.Is(err, domainlistings.ErrListingNotFound) {
				return dto.BookingCollection{}, err
			}
			listings[b.ListingID] = listing
		}
		items = append(items, dto.MapBookingSummary(b, listing))
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if h.Logger != nil {
		h.Logger.Debug("bookings listed", "guest_id", filter.GuestID, "realtor_id", filter.RealtorID, "count", len(items))
	}
	return dto.BookingCollection{Items: items}, nil
}

func statusFilter(status string) []domainbooking.BookingState {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status == "" || status == allStatusesFilterValue {
		return nil
	}
	return []domainbooking.BookingState{domainbooking.BookingState(status)}
}

type QuoteQuery struct {
	ListingID string
	CheckIn   time.Time
	CheckOut  time.Time
	Guests    int
}

func (q QuoteQuery) Key() string { return quoteBookingKey }

type QuoteHandler struct {
	UoWFactory uow.UoWFactory
	Pricing    policies.PricingPort
}

func (h *QuoteHandler) Handle(ctx context.Context, q QuoteQuery) (*dto.Quote, error) {
	listingID, err := handlersupport.RequireID(q.ListingID, errListingIDRequired)
	if err != nil {
		return nil, err
	}
	dr, err := domainrange.New(q.CheckIn, q.CheckOut)
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
	listing, err := unit.Listings().ByID(execCtx, domainlistings.ListingID(listingID))
	if err != nil {
		return nil, err
	}
	price, err := h.Pricing.Quote(execCtx, policies.QuoteRequest{Listing: listing, Stay: dr, Guests: q.Guests})
	if err != nil {
		return nil, err
	}
	return &dto.Quote{
		ListingID: string(listing.ID),
		CheckIn:   dr.CheckIn,
		CheckOut:  dr.CheckOut,
		Guests:    q.Guests,
		Price:     dto.MapPrice(price),
	}, nil
}

var _ queries.Handler[GetBookingQuery, *dto.BookingDetail] = (*GetBookingHandler)(nil)
var _ queries.Handler[QuoteQuery, *dto.Quote] = (*QuoteHandler)(nil)

package booking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"shortlet/internal/app/commands"
	"shortlet/internal/app/dto"
	handlersupport "shortlet/internal/app/handlers/support"
	"shortlet/internal/app/outbox"
	"shortlet/internal/app/policies"
	"shortlet/internal/app/uow"
	domainbooking "shortlet/internal/domain/booking"
	domainescrow "shortlet/internal/domain/escrow"
	domainlistings "shortlet/internal/domain/listings"
	domainrange "shortlet/internal/domain/shared/daterange"
)

const (
	requestBookingKey    = "booking.request"
	defaultPaymentWindow = 30 * time.Minute
)

type RequestBookingCommand struct {
	ListingID       string
	GuestID         string
	CheckIn         time.Time
	CheckOut        time.Time
	Guests          int
	IdempotencyKeyV string
}

func (c RequestBookingCommand) Key() string { return requestBookingKey }

func (c RequestBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RequestBookingCommand) ResultPrototype() any { return &RequestBookingResult{} }

func (c RequestBookingCommand) ActorID() string { return c.GuestID }

func (c RequestBookingCommand) Validate() error {
	if strings.TrimSpace(c.ListingID) == "" {
		return errListingIDRequired
	}
	if strings.TrimSpace(c.GuestID) == "" {
		return errGuestIDRequired
	}
	if c.Guests <= 0 {
		return domainbooking.ErrInvalidGuests
	}
	return nil
}

type RequestBookingResult struct {
	BookingID       string             `json:"booking_id"`
	Status          string             `json:"status"`
	Price           dto.PriceBreakdown `json:"price"`
	PaymentDeadline time.Time          `json:"payment_deadline"`
}

type RequestBookingHandler struct {
	UoWFactory    uow.UoWFactory
	Pricing       policies.PricingPort
	PaymentWindow time.Duration
	Holds         domainescrow.Holds
	Outbox        outbox.Outbox
	Encoder       outbox.EventEncoder
	Clock         handlersupport.Clock
	Logger        *slog.Logger
}

func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (*RequestBookingResult, error) {
	dr, err := domainrange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}
	now := h.Clock.Now()
	if err := domainbooking.ValidateDateRange(dr, now); err != nil {
		return nil, err
	}
	window := h.PaymentWindow
	if window <= 0 {
		window = defaultPaymentWindow
	}

	var result *RequestBookingResult
	err = handlersupport.WithUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(strings.TrimSpace(cmd.ListingID)))
		if err != nil {
			return err
		}
		price, err := h.Pricing.Quote(ctx, policies.QuoteRequest{Listing: listing, Stay: dr, Guests: cmd.Guests})
		if err != nil {
			return err
		}
		existing, err := unit.Bookings().Find(ctx, domainbooking.Filter{ListingID: listing.ID})
		if err != nil {
			return err
		}
		if err := domainbooking.EnsureAvailable(existing, dr, now); err != nil {
			return err
		}

		booking, err := domainbooking.NewBooking(domainbooking.CreateParams{
			ID:            domainbooking.BookingID(uuid.NewString()),
			Listing:       listing,
			GuestID:       strings.TrimSpace(cmd.GuestID),
			Range:         dr,
			Guests:        cmd.Guests,
			Price:         price,
			PaymentWindow: window,
			CreatedAt:     now,
		})
		if err != nil {
			return err
		}
		escrow, err := domainescrow.New(domainescrow.CreateParams{
			BookingID: string(booking.ID),
			GuestID:   booking.GuestID,
			RealtorID: string(booking.RealtorID),
			Price:     booking.Price,
			CheckIn:   dr.CheckIn,
			CheckOut:  dr.CheckOut,
			Holds:     h.Holds,
			Now:       now,
		})
		if err != nil {
			return err
		}

		if err := unit.Bookings().Save(ctx, booking); err != nil {
			return err
		}
		if err := unit.Escrows().Save(ctx, escrow); err != nil {
			return err
		}
		// Saving the listing bumps its version so two overlapping requests
		// for the same listing cannot both commit.
		if err := unit.Listings().Save(ctx, listing); err != nil {
			return err
		}
		if err := handlersupport.RecordEvents(ctx, h.Outbox, h.Encoder, booking, escrow); err != nil {
			return err
		}

		result = &RequestBookingResult{
			BookingID:       string(booking.ID),
			Status:          string(booking.State),
			Price:           dto.MapPrice(booking.Price),
			PaymentDeadline: booking.PaymentDeadline,
		}
		if h.Logger != nil {
			h.Logger.Info("booking requested", "booking_id", booking.ID, "listing_id", listing.ID, "guest_id", booking.GuestID, "total", booking.Price.Total.Amount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

var _ commands.Handler[RequestBookingCommand, *RequestBookingResult] = (*RequestBookingHandler)(nil)

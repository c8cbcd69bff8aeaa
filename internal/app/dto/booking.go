package dto

import (
	"time"

	domainbooking "shortlet/internal/domain/booking"
	domainescrow "shortlet/internal/domain/escrow"
	domainlistings "shortlet/internal/domain/listings"
	domainpricing "shortlet/internal/domain/pricing"
)

type PriceBreakdown struct {
	Nights          int      `json:"nights"`
	Nightly         MoneyDTO `json:"nightly"`
	RoomFee         MoneyDTO `json:"room_fee"`
	CleaningFee     MoneyDTO `json:"cleaning_fee"`
	SecurityDeposit MoneyDTO `json:"security_deposit"`
	ServiceFee      MoneyDTO `json:"service_fee"`
	Total           MoneyDTO `json:"total"`
}

func MapPrice(p domainpricing.PriceBreakdown) PriceBreakdown {
	return PriceBreakdown{
		Nights:          p.Nights,
		Nightly:         MapMoney(p.Nightly),
		RoomFee:         MapMoney(p.RoomFee),
		CleaningFee:     MapMoney(p.CleaningFee),
		SecurityDeposit: MapMoney(p.SecurityDeposit),
		ServiceFee:      MapMoney(p.ServiceFee),
		Total:           MapMoney(p.Total),
	}
}

type RefundQuote struct {
	Tier     string   `json:"tier"`
	Percent  int      `json:"percent"`
	Room     MoneyDTO `json:"room"`
	Cleaning MoneyDTO `json:"cleaning"`
	Deposit  MoneyDTO `json:"deposit"`
	Service  MoneyDTO `json:"service"`
	Total    MoneyDTO `json:"total"`
}

func MapRefundQuote(q domainbooking.RefundQuote) RefundQuote {
	return RefundQuote{
		Tier:     string(q.Tier),
		Percent:  q.Percent,
		Room:     MapMoney(q.Room),
		Cleaning: MapMoney(q.Cleaning),
		Deposit:  MapMoney(q.Deposit),
		Service:  MapMoney(q.Service),
		Total:    MapMoney(q.Total),
	}
}

type Cancellation struct {
	By     string      `json:"by"`
	Reason string      `json:"reason"`
	Refund RefundQuote `json:"refund"`
	At     time.Time   `json:"at"`
}

type BookingListingSnapshot struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type BookingSummary struct {
	ID              string                 `json:"id"`
	Listing         BookingListingSnapshot `json:"listing"`
	GuestID         string                 `json:"guest_id"`
	RealtorID       string                 `json:"realtor_id"`
	CheckIn         time.Time              `json:"check_in"`
	CheckOut        time.Time              `json:"check_out"`
	Guests          int                    `json:"guests"`
	Status          string                 `json:"status"`
	Total           MoneyDTO               `json:"total"`
	PaymentDeadline time.Time              `json:"payment_deadline"`
	CreatedAt       time.Time              `json:"created_at"`
}

type BookingCollection struct {
	Items []BookingSummary `json:"items"`
}

func MapBookingSummary(booking *domainbooking.Booking, listing *domainlistings.Listing) BookingSummary {
	snapshot := BookingListingSnapshot{ID: string(booking.ListingID)}
	if listing != nil {
		snapshot.Title = listing.Title
		snapshot.City = listing.Address.City
		snapshot.Country = listing.Address.Country
	}
	return BookingSummary{
		ID:              string(booking.ID),
		Listing:         snapshot,
		GuestID:         booking.GuestID,
		RealtorID:       string(booking.RealtorID),
		CheckIn:         booking.Range.CheckIn,
		CheckOut:        booking.Range.CheckOut,
		Guests:          booking.Guests,
		Status:          string(booking.State),
		Total:           MapMoney(booking.Price.Total),
		PaymentDeadline: booking.PaymentDeadline,
		CreatedAt:       booking.CreatedAt,
	}
}

// BookingDetail is the booking with its price, cancellation record and escrow ledger.
type BookingDetail struct {
	BookingSummary
	Price            PriceBreakdown `json:"price"`
	PaymentReference string         `json:"payment_reference,omitempty"`
	Cancellation     *Cancellation  `json:"cancellation,omitempty"`
	CheckedInAt      *time.Time     `json:"checked_in_at,omitempty"`
	CheckedOutAt     *time.Time     `json:"checked_out_at,omitempty"`
	Escrow           *Escrow        `json:"escrow,omitempty"`
}

func MapBookingDetail(booking *domainbooking.Booking, listing *domainlistings.Listing, escrow *domainescrow.Escrow) BookingDetail {
	detail := BookingDetail{
		BookingSummary:   MapBookingSummary(booking, listing),
		Price:            MapPrice(booking.Price),
		PaymentReference: booking.PaymentReference,
		CheckedInAt:      optionalTime(booking.CheckedInAt),
		CheckedOutAt:     optionalTime(booking.CheckedOutAt),
	}
	if c := booking.Cancellation; c != nil {
		detail.Cancellation = &Cancellation{By: string(c.By), Reason: c.Reason, Refund: MapRefundQuote(c.Quote), At: c.At}
	}
	if escrow != nil {
		view := MapEscrow(escrow)
		detail.Escrow = &view
	}
	return detail
}

type Quote struct {
	ListingID string         `json:"listing_id"`
	CheckIn   time.Time      `json:"check_in"`
	CheckOut  time.Time      `json:"check_out"`
	Guests    int            `json:"guests"`
	Price     PriceBreakdown `json:"price"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"shortlet/internal/domain/listings"
	"shortlet/internal/domain/pricing"
	"shortlet/internal/domain/shared/daterange"
	"shortlet/internal/domain/shared/events"
)

var (
	ErrInvalidGuests        = errors.New("booking: guests count must be positive")
	ErrInvalidState         = errors.New("booking: invalid state transition")
	ErrPaymentRefRequired   = errors.New("booking: payment reference required before confirmation")
	ErrPaymentRefMismatch   = errors.New("booking: booking already confirmed with another payment")
	ErrBookingNotFound      = errors.New("booking: not found")
	ErrPaymentWindowOpen    = errors.New("booking: payment window is still open")
	ErrPaymentWindowClosed  = errors.New("booking: payment window has closed")
	ErrTooEarlyForCheckIn   = errors.New("booking: check-in date not reached")
	ErrDatesUnavailable     = errors.New("booking: listing already booked for these dates")
	ErrCannotBookOwnListing = errors.New("booking: realtor cannot book own listing")
)

type BookingID string

type BookingState string

const (
	StatePendingPayment BookingState = "PENDING_PAYMENT"
	StateConfirmed      BookingState = "CONFIRMED"
	StateCheckedIn      BookingState = "CHECKED_IN"
	StateCheckedOut     BookingState = "CHECKED_OUT"
	StateCompleted      BookingState = "COMPLETED"
	StateCancelled      BookingState = "CANCELLED"
	StateExpired        BookingState = "EXPIRED"
)

// Actor identifies who triggered a cancellation.
type Actor string

const (
	ActorGuest   Actor = "GUEST"
	ActorRealtor Actor = "REALTOR"
	ActorAdmin   Actor = "ADMIN"
	ActorSystem  Actor = "SYSTEM"
)

type Cancellation struct {
	By     Actor       `json:"by" bson:"by"`
	Reason string      `json:"reason" bson:"reason"`
	Quote  RefundQuote `json:"quote" bson:"quote"`
	At     time.Time   `json:"at" bson:"at"`
}

type Booking struct {
	ID               BookingID
	ListingID        listings.ListingID
	RealtorID        listings.RealtorID
	GuestID          string
	Range            daterange.DateRange
	Guests           int
	Price            pricing.PriceBreakdown
	State            BookingState
	PaymentReference string
	PaymentDeadline  time.Time
	Cancellation     *Cancellation
	CheckedInAt      time.Time
	CheckedOutAt     time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Version          int64
	events.EventRecorder
}

// Filter narrows booking lookups. Zero fields are ignored.
type Filter struct {
	GuestID   string
	RealtorID listings.RealtorID
	ListingID listings.ListingID
	States    []BookingState
	// DueBy keeps bookings whose next scheduled transition is at or before it.
	DueBy time.Time
	Limit int
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	Find(ctx context.Context, filter Filter) ([]*Booking, error)
}

// Matches reports whether b satisfies the filter.
func (f Filter) Matches(b *Booking) bool {
	if f.GuestID != "" && b.GuestID != f.GuestID {
		return false
	}
	if f.RealtorID != "" && b.RealtorID != f.RealtorID {
		return false
	}
	if f.ListingID != "" && b.ListingID != f.ListingID {
		return false
	}
	if !f.DueBy.IsZero() {
		due := b.NextTransitionAt()
		if due.IsZero() || due.After(f.DueBy) {
			return false
		}
	}
	if len(f.States) > 0 {
		for _, s := range f.States {
			if b.State == s {
				return true
			}
		}
		return false
	}
	return true
}

// NextTransitionAt is when the scheduler acts on the booking: the payment
// deadline, the check-in or the check-out. It is zero for other states.
func (b *Booking) NextTransitionAt() time.Time {
	switch b.State {
	case StatePendingPayment:
		return b.PaymentDeadline
	case StateConfirmed:
		return b.Range.CheckIn
	case StateCheckedIn:
		return b.Range.CheckOut
	default:
		return time.Time{}
	}
}

type CreateParams struct {
	ID            BookingID
	Listing       *listings.Listing
	GuestID       string
	Range         daterange.DateRange
	Guests        int
	Price         pricing.PriceBreakdown
	PaymentWindow time.Duration
	CreatedAt     time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	if params.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if strings.TrimSpace(params.GuestID) == "" {
		return nil, errors.New("booking: guest id required")
	}
	if params.Listing == nil {
		return nil, errors.New("booking: listing required")
	}
	if string(params.Listing.Realtor) == params.GuestID {
		return nil, ErrCannotBookOwnListing
	}
	if err := params.Price.RecalculateTotal(); err != nil {
		return nil, err
	}
	if params.Price.Total.Amount <= 0 {
		return nil, errors.New("booking: total must be positive")
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:              params.ID,
		ListingID:       params.Listing.ID,
		RealtorID:       params.Listing.Realtor,
		GuestID:         params.GuestID,
		Range:           params.Range,
		Guests:          params.Guests,
		Price:           params.Price,
		State:           StatePendingPayment,
		PaymentDeadline: now.Add(params.PaymentWindow),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	b.Record(BookingRequested{BookingID: b.ID, ListingID: b.ListingID, GuestID: b.GuestID, Range: b.Range, Total: b.Price.Total, At: now})
	return b, nil
}

// IsActive reports whether the booking blocks the listing calendar.
func (b *Booking) IsActive(now time.Time) bool {
	switch b.State {
	case StatePendingPayment:
		return now.Before(b.PaymentDeadline)
	case StateConfirmed, StateCheckedIn:
		return true
	default:
		return false
	}
}

// Confirm marks the booking as paid. Repeating it with the same reference is a no-op.
func (b *Booking) Confirm(paymentRef string, now time.Time) error {
	if paymentRef == "" {
		return ErrPaymentRefRequired
	}
	if b.State != StatePendingPayment {
		if b.PaymentReference == paymentRef && b.State != StateCancelled && b.State != StateExpired {
			return nil
		}
		if b.PaymentReference != "" && b.PaymentReference != paymentRef {
			return ErrPaymentRefMismatch
		}
		return ErrInvalidState
	}
	b.PaymentReference = paymentRef
	b.State = StateConfirmed
	b.UpdatedAt = now.UTC()
	b.Record(BookingConfirmed{BookingID: b.ID, ListingID: b.ListingID, RealtorID: b.RealtorID, Range: b.Range, Total: b.Price.Total, At: b.UpdatedAt})
	return nil
}

// Expire closes an unpaid booking once its payment deadline has passed.
func (b *Booking) Expire(now time.Time) error {
	if b.State != StatePendingPayment {
		return ErrInvalidState
	}
	if now.Before(b.PaymentDeadline) {
		return ErrPaymentWindowOpen
	}
	b.State = StateExpired
	b.UpdatedAt = now.UTC()
	b.Record(BookingExpired{BookingID: b.ID, At: b.UpdatedAt})
	return nil
}

// Cancel cancels the booking and returns the refund owed to the guest.
// Unpaid bookings produce an empty quote.
func (b *Booking) Cancel(by Actor, reason string, policy RefundPolicy, now time.Time) (RefundQuote, error) {
	var quote RefundQuote
	switch b.State {
	case StatePendingPayment:
		quote = RefundQuote{Tier: TierNone, Total: zeroOf(b.Price)}
	case StateConfirmed:
		if by == ActorGuest {
			quote = policy.GuestQuote(b.Price, now, b.Range.CheckIn)
		} else {
			quote = FullRefund(b.Price)
		}
	default:
		return RefundQuote{}, ErrInvalidState
	}
	b.State = StateCancelled
	b.UpdatedAt = now.UTC()
	b.Cancellation = &Cancellation{By: by, Reason: strings.TrimSpace(reason), Quote: quote, At: b.UpdatedAt}
	b.Record(BookingCancelled{BookingID: b.ID, By: by, Tier: quote.Tier, Refund: quote.Total, Reason: b.Cancellation.Reason, At: b.UpdatedAt})
	return quote, nil
}

func (b *Booking) CheckIn(now time.Time) error {
	if b.State != StateConfirmed {
		return ErrInvalidState
	}
	if now.Before(b.Range.CheckIn) {
		return ErrTooEarlyForCheckIn
	}
	b.State = StateCheckedIn
	b.CheckedInAt = now.UTC()
	b.UpdatedAt = b.CheckedInAt
	b.Record(CheckInCompleted{BookingID: b.ID, At: b.UpdatedAt})
	return nil
}

func (b *Booking) CheckOut(now time.Time) error {
	if b.State != StateCheckedIn {
		return ErrInvalidState
	}
	b.State = StateCheckedOut
	b.CheckedOutAt = now.UTC()
	b.UpdatedAt = b.CheckedOutAt
	b.Record(CheckOutCompleted{BookingID: b.ID, At: b.UpdatedAt})
	return nil
}

// Complete closes a stay once its escrow has settled.
func (b *Booking) Complete(now time.Time) error {
	if b.State == StateCompleted {
		return nil
	}
	if b.State != StateCheckedOut {
		return ErrInvalidState
	}
	b.State = StateCompleted
	b.UpdatedAt = now.UTC()
	b.Record(BookingCompleted{BookingID: b.ID, At: b.UpdatedAt})
	return nil
}

// StayEnd is the moment the stay is considered over: the actual check-out when
// recorded, otherwise the scheduled check-out date.
func (b *Booking) StayEnd() time.Time {
	if !b.CheckedOutAt.IsZero() {
		return b.CheckedOutAt
	}
	return b.Range.CheckOut
}

// Paid reports whether the guest's payment was received.
func (b *Booking) Paid() bool {
	return b.PaymentReference != ""
}

package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"shortlet/internal/app/commands"
	"shortlet/internal/app/dto"
	handlersupport "shortlet/internal/app/handlers/support"
	"shortlet/internal/app/policies"
	"shortlet/internal/app/uow"
	domainbooking "shortlet/internal/domain/booking"
	domainpayments "shortlet/internal/domain/payments"
)

const initializePaymentKey = "payments.initialize"

var (
	ErrBookingNotPayable = errors.New("payments: booking is not awaiting payment")
	ErrNotBookingGuest   = errors.New("payments: booking belongs to another guest")
	errBookingIDRequired = errors.New("booking id is required")
	errReferenceRequired = errors.New("payment reference is required")
)

type InitializePaymentCommand struct {
	BookingID       string
	GuestID         string
	Email           string
	CallbackURL     string
	IdempotencyKeyV string
}

func (c InitializePaymentCommand) Key() string { return initializePaymentKey }

func (c InitializePaymentCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c InitializePaymentCommand) ResultPrototype() any { return &dto.Payment{} }

func (c InitializePaymentCommand) ActorID() string { return c.GuestID }

func (c InitializePaymentCommand) Validate() error {
	if strings.TrimSpace(c.BookingID) == "" {
		return errBookingIDRequired
	}
	return nil
}

// InitializePaymentHandler opens a gateway checkout for a booking awaiting
// payment. An open checkout for the same booking is handed out again instead
// of creating a second one.
type InitializePaymentHandler struct {
	Gateway     policies.PaymentGateway
	CallbackURL string
	Clock       handlersupport.Clock
	Logger      *slog.Logger
}

func (h *InitializePaymentHandler) Handle(ctx context.Context, cmd InitializePaymentCommand) (*dto.Payment, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(strings.TrimSpace(cmd.BookingID)))
	if err != nil {
		return nil, err
	}
	if booking.GuestID != strings.TrimSpace(cmd.GuestID) {
		return nil, ErrNotBookingGuest
	}
	now := h.Clock.Now()
	if booking.State != domainbooking.StatePendingPayment {
		return nil, ErrBookingNotPayable
	}
	if !now.Before(booking.PaymentDeadline) {
		return nil, domainbooking.ErrPaymentWindowClosed
	}

	existing, err := unit.Payments().ByBooking(ctx, string(booking.ID))
	if err != nil {
		return nil, err
	}
	for _, p := range existing {
		if p.Reusable() {
			result := dto.MapPayment(p)
			return &result, nil
		}
	}

	payment, err := domainpayments.New(domainpayments.CreateParams{
		Reference: "SL-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")),
		BookingID: string(booking.ID),
		GuestID:   booking.GuestID,
		Email:     cmd.Email,
		Amount:    booking.Price.Total,
		Now:       now,
	})
	if err != nil {
		return nil, err
	}
	callback := strings.TrimSpace(cmd.CallbackURL)
	if callback == "" {
		callback = h.CallbackURL
	}
	checkout, err := h.Gateway.Initialize(ctx, policies.InitializeRequest{
		Reference:   payment.Reference,
		Email:       payment.Email,
		Amount:      payment.Amount,
		CallbackURL: callback,
		Metadata:    map[string]string{"booking_id": payment.BookingID},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize payment %s: %w", payment.Reference, err)
	}
	payment.Authorize(checkout.AuthorizationURL, checkout.AccessCode, now)
	if err := unit.Payments().Save(ctx, payment); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("payment initialized", "reference", payment.Reference, "booking_id", payment.BookingID, "amount", payment.Amount.Amount)
	}
	result := dto.MapPayment(payment)
	return &result, nil
}

var _ commands.Handler[InitializePaymentCommand, *dto.Payment] = (*InitializePaymentHandler)(nil)

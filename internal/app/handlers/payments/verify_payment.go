package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shortlet/internal/app/commands"
	handlersupport "shortlet/internal/app/handlers/support"
	"shortlet/internal/app/outbox"
	"shortlet/internal/app/policies"
	"shortlet/internal/app/settlement"
	"shortlet/internal/app/uow"
	domainbooking "shortlet/internal/domain/booking"
	domainescrow "shortlet/internal/domain/escrow"
	domainpayments "shortlet/internal/domain/payments"
)

const (
	verifyPaymentKey        = "payments.verify"
	duplicateRefundSuffix   = ":DUPLICATE_REFUND"
	duplicatePaymentReason  = "duplicate payment refunded"
	amountMismatchLogPrefix = "payment amount mismatch"
)

type VerifyPaymentCommand struct {
	Reference string
	Source    string
}

func (c VerifyPaymentCommand) Key() string { return verifyPaymentKey }

func (c VerifyPaymentCommand) Validate() error {
	if strings.TrimSpace(c.Reference) == "" {
		return errReferenceRequired
	}
	return nil
}

type VerifyPaymentResult struct {
	Reference     string `json:"reference"`
	BookingID     string `json:"booking_id"`
	Status        string `json:"status"`
	BookingStatus string `json:"booking_status"`
	EscrowState   string `json:"escrow_state"`
	Refunded      bool   `json:"refunded"`
}

// VerifyPaymentHandler asks the gateway for the outcome of a payment and, on
// success, confirms the booking and funds its escrow. A payment that arrives
// after the booking was cancelled or expired is funded and refunded in full.
type VerifyPaymentHandler struct {
	Gateway    policies.PaymentGateway
	Settlement *settlement.Service
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      handlersupport.Clock
	Logger     *slog.Logger
}

func (h *VerifyPaymentHandler) Handle(ctx context.Context, cmd VerifyPaymentCommand) (*VerifyPaymentResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	payment, err := unit.Payments().ByReference(ctx, strings.TrimSpace(cmd.Reference))
	if err != nil {
		return nil, err
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(payment.BookingID))
	if err != nil {
		return nil, err
	}
	escrow, err := unit.Escrows().ByBookingID(ctx, payment.BookingID)
	if err != nil {
		return nil, err
	}
	result := func(refunded bool) *VerifyPaymentResult {
		return &VerifyPaymentResult{
			Reference:     payment.Reference,
			BookingID:     payment.BookingID,
			Status:        string(payment.Status),
			BookingStatus: string(booking.State),
			EscrowState:   string(escrow.State),
			Refunded:      refunded,
		}
	}
	if payment.Status != domainpayments.StatusInitialized {
		return result(false), nil
	}

	verified, err := h.Gateway.Verify(ctx, payment.Reference)
	if err != nil {
		return nil, fmt.Errorf("verify payment %s: %w", payment.Reference, err)
	}
	now := h.Clock.Now()
	switch verified.Status {
	case policies.GatewayPending:
		return result(false), nil
	case policies.GatewayFailed, policies.GatewayAbandoned:
		status := domainpayments.StatusFailed
		if verified.Status == policies.GatewayAbandoned {
			status = domainpayments.StatusAbandoned
		}
		if err := payment.MarkFailed(status, verified.Message, now); err != nil {
			return nil, err
		}
		if err := h.savePayment(ctx, unit, payment); err != nil {
			return nil, err
		}
		h.log().Info("payment not completed", "reference", payment.Reference, "status", payment.Status, "source", cmd.Source)
		return result(false), nil
	}

	paidAt := verified.PaidAt
	if paidAt.IsZero() {
		paidAt = now
	}
	if err := payment.MarkSucceeded(verified.Amount, verified.GatewayRef, paidAt); err != nil {
		if !errors.Is(err, domainpayments.ErrAmountMismatch) {
			return nil, err
		}
		// The payment is kept as FAILED so the mismatch is visible to admins.
		h.log().Error(amountMismatchLogPrefix, "reference", payment.Reference, "expected", payment.Amount.Amount, "paid", verified.Amount.Amount, "currency", verified.Amount.Currency)
		if err := h.savePayment(ctx, unit, payment); err != nil {
			return nil, err
		}
		return result(false), nil
	}

	refunded := false
	switch {
	case booking.State == domainbooking.StatePendingPayment && h.stillAvailable(ctx, unit, booking, now):
		if err := booking.Confirm(payment.Reference, now); err != nil {
			return nil, err
		}
		if err := escrow.MarkFunded(payment.Amount, payment.Reference, now); err != nil {
			return nil, err
		}
		if err := h.Settlement.Save(ctx, unit, escrow); err != nil {
			return nil, err
		}
		h.log().Info("booking paid", "booking_id", booking.ID, "reference", payment.Reference, "amount", payment.Amount.Amount)
	case escrow.PaymentReference != "" && escrow.PaymentReference != payment.Reference:
		if err := h.refundDuplicate(ctx, payment, now); err != nil {
			return nil, err
		}
		refunded = true
	default:
		if booking.State == domainbooking.StatePendingPayment {
			if err := booking.Expire(now); err != nil {
				return nil, err
			}
			if err := escrow.Void(now); err != nil {
				return nil, err
			}
		}
		if err := h.refundLatePayment(ctx, unit, booking, escrow, payment, now); err != nil {
			return nil, err
		}
		refunded = true
	}

	if err := h.savePayment(ctx, unit, payment); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := handlersupport.RecordEvents(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return nil, err
	}
	return result(refunded), nil
}

// stillAvailable reports whether a pending booking may still be confirmed.
// Past its payment deadline the dates may have been taken by someone else.
func (h *VerifyPaymentHandler) stillAvailable(ctx context.Context, unit uow.UnitOfWork, booking *domainbooking.Booking, now time.Time) bool {
	if now.Before(booking.PaymentDeadline) {
		return true
	}
	others, err := unit.Bookings().Find(ctx, domainbooking.Filter{ListingID: booking.ListingID})
	if err != nil {
		return false
	}
	rest := make([]*domainbooking.Booking, 0, len(others))
	for _, b := range others {
		if b.ID != booking.ID {
			rest = append(rest, b)
		}
	}
	return domainbooking.EnsureAvailable(rest, booking.Range, now) == nil
}

func (h *VerifyPaymentHandler) refundLatePayment(ctx context.Context, unit uow.UnitOfWork, booking *domainbooking.Booking, escrow *domainescrow.Escrow, payment *domainpayments.Payment, now time.Time) error {
	if err := escrow.MarkFunded(payment.Amount, payment.Reference, now); err != nil {
		return err
	}
	full := domainbooking.FullRefund(booking.Price)
	created, err := escrow.RefundCancellation(domainescrow.Refund{
		Room:     full.Room,
		Cleaning: full.Cleaning,
		Deposit:  full.Deposit,
		Service:  full.Service,
	}, h.Settlement.FeeSplit(), now)
	if err != nil {
		return err
	}
	h.log().Warn("late payment refunded", "booking_id", booking.ID, "reference", payment.Reference, "booking_status", booking.State, "amount", payment.Amount.Amount)
	return h.Settlement.Apply(ctx, unit, escrow, created, now)
}

// refundDuplicate returns a second successful payment for an already funded
// booking. It never touches the escrow.
func (h *VerifyPaymentHandler) refundDuplicate(ctx context.Context, payment *domainpayments.Payment, now time.Time) error {
	res, err := h.Gateway.Refund(ctx, policies.RefundRequest{
		Reference:        payment.Reference + duplicateRefundSuffix,
		PaymentReference: payment.Reference,
		Amount:           payment.Amount,
		Reason:           duplicatePaymentReason,
	})
	if err != nil {
		return fmt.Errorf("refund duplicate payment %s: %w", payment.Reference, err)
	}
	payment.FailureReason = duplicatePaymentReason
	payment.UpdatedAt = now
	h.log().Warn("duplicate payment refunded", "booking_id", payment.BookingID, "reference", payment.Reference, "gateway_ref", res.GatewayRef)
	return nil
}

func (h *VerifyPaymentHandler) savePayment(ctx context.Context, unit uow.UnitOfWork, payment *domainpayments.Payment) error {
	if err := unit.Payments().Save(ctx, payment); err != nil {
		return err
	}
	return handlersupport.RecordEvents(ctx, h.Outbox, h.Encoder, payment)
}

func (h *VerifyPaymentHandler) log() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

var _ commands.Handler[VerifyPaymentCommand, *VerifyPaymentResult] = (*VerifyPaymentHandler)(nil)

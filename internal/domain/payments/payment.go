package payments

import (
	"context"
	"errors"
	"strings"
	"time"

	"shortlet/internal/domain/shared/events"
	"shortlet/internal/domain/shared/money"
)

var (
	ErrPaymentNotFound = errors.New("payments: not found")
	ErrInvalidState    = errors.New("payments: invalid state transition")
	ErrAmountMismatch  = errors.New("payments: paid amount does not match expected amount")
	ErrReferenceEmpty  = errors.New("payments: reference required")
)

type Status string

const (
	StatusInitialized Status = "INITIALIZED"
	StatusSucceeded   Status = "SUCCEEDED"
	StatusFailed      Status = "FAILED"
	StatusAbandoned   Status = "ABANDONED"
)

// Payment is one attempt by a guest to pay for a booking through the gateway.
type Payment struct {
	Reference        string
	BookingID        string
	GuestID          string
	Email            string
	Amount           money.Money
	Status           Status
	AuthorizationURL string
	AccessCode       string
	GatewayRef       string
	FailureReason    string
	PaidAt           time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Version          int64
	events.EventRecorder
}

type Repository interface {
	ByReference(ctx context.Context, reference string) (*Payment, error)
	ByBooking(ctx context.Context, bookingID string) ([]*Payment, error)
	Save(ctx context.Context, payment *Payment) error
}

type CreateParams struct {
	Reference string
	BookingID string
	GuestID   string
	Email     string
	Amount    money.Money
	Now       time.Time
}

func New(params CreateParams) (*Payment, error) {
	if strings.TrimSpace(params.Reference) == "" {
		return nil, ErrReferenceEmpty
	}
	if params.Amount.Amount <= 0 {
		return nil, errors.New("payments: amount must be positive")
	}
	now := params.Now.UTC()
	return &Payment{
		Reference: params.Reference,
		BookingID: params.BookingID,
		GuestID:   params.GuestID,
		Email:     strings.ToLower(strings.TrimSpace(params.Email)),
		Amount:    params.Amount,
		Status:    StatusInitialized,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Authorize stores the checkout link returned by the gateway.
func (p *Payment) Authorize(url, accessCode string, now time.Time) {
	p.AuthorizationURL = url
	p.AccessCode = accessCode
	p.UpdatedAt = now.UTC()
}

// MarkSucceeded records a verified payment. Repeating it is a no-op.
func (p *Payment) MarkSucceeded(paid money.Money, gatewayRef string, paidAt time.Time) error {
	if p.Status == StatusSucceeded {
		return nil
	}
	if p.Status != StatusInitialized {
		return ErrInvalidState
	}
	if paid != p.Amount {
		p.Status = StatusFailed
		p.FailureReason = ErrAmountMismatch.Error()
		p.UpdatedAt = paidAt.UTC()
		return ErrAmountMismatch
	}
	p.Status = StatusSucceeded
	p.GatewayRef = gatewayRef
	p.PaidAt = paidAt.UTC()
	p.UpdatedAt = p.PaidAt
	p.Record(PaymentSucceeded{Reference: p.Reference, BookingID: p.BookingID, Amount: p.Amount, At: p.PaidAt})
	return nil
}

func (p *Payment) MarkFailed(status Status, reason string, now time.Time) error {
	if p.Status != StatusInitialized {
		return ErrInvalidState
	}
	if status != StatusFailed && status != StatusAbandoned {
		status = StatusFailed
	}
	p.Status = status
	p.FailureReason = reason
	p.UpdatedAt = now.UTC()
	p.Record(PaymentFailed{Reference: p.Reference, BookingID: p.BookingID, Reason: reason, At: p.UpdatedAt})
	return nil
}

// Reusable reports whether a pending checkout link can be handed out again.
func (p *Payment) Reusable() bool {
	return p.Status == StatusInitialized && p.AuthorizationURL != ""
}

type PaymentSucceeded struct {
	Reference string      `json:"reference"`
	BookingID string      `json:"booking_id"`
	Amount    money.Money `json:"amount"`
	At        time.Time   `json:"at"`
}

func (e PaymentSucceeded) EventName() string     { return "payment.succeeded" }
func (e PaymentSucceeded) AggregateID() string   { return e.Reference }
func (e PaymentSucceeded) OccurredAt() time.Time { return e.At }

type PaymentFailed struct {
	Reference string    `json:"reference"`
	BookingID string    `json:"booking_id"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

func (e PaymentFailed) EventName() string     { return "payment.failed" }
func (e PaymentFailed) AggregateID() string   { return e.Reference }
func (e PaymentFailed) OccurredAt() time.Time { return e.At }

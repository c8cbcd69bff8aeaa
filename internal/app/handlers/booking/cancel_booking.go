package booking

import (
	"context"
	"log/slog"
	"strings"

	"shortlet/internal/app/commands"
	"shortlet/internal/app/dto"
	handlersupport "shortlet/internal/app/handlers/support"
	"shortlet/internal/app/outbox"
	"shortlet/internal/app/settlement"
	"shortlet/internal/app/uow"
	domainbooking "shortlet/internal/domain/booking"
	domainescrow "shortlet/internal/domain/escrow"
)

const cancelBookingKey = "booking.cancel"

type CancelBookingCommand struct {
	BookingID       string
	ActorID         string
	Actor           domainbooking.Actor
	Reason          string
	IdempotencyKeyV string
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

func (c CancelBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CancelBookingCommand) ResultPrototype() any { return &CancelBookingResult{} }

func (c CancelBookingCommand) Validate() error {
	if strings.TrimSpace(c.BookingID) == "" {
		return errBookingIDRequired
	}
	if c.Actor != domainbooking.ActorSystem && strings.TrimSpace(c.ActorID) == "" {
		return errActorIDRequired
	}
	return nil
}

type CancelBookingResult struct {
	BookingID   string          `json:"booking_id"`
	Status      string          `json:"status"`
	Refund      dto.RefundQuote `json:"refund"`
	EscrowState string          `json:"escrow_state"`
}

// CancelBookingHandler cancels a booking and, when it was paid, refunds the
// guest according to the refund tier while the retained amount is split
// between realtor and platform.
type CancelBookingHandler struct {
	Policy     domainbooking.RefundPolicy
	Settlement *settlement.Service
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      handlersupport.Clock
	Logger     *slog.Logger
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*CancelBookingResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(strings.TrimSpace(cmd.BookingID)))
	if err != nil {
		return nil, err
	}
	if err := ensureParticipant(booking, cmd.Actor, cmd.ActorID); err != nil {
		return nil, err
	}
	escrow, err := unit.Escrows().ByBookingID(ctx, string(booking.ID))
	if err != nil {
		return nil, err
	}

	policy := h.Policy
	if policy == (domainbooking.RefundPolicy{}) {
		policy = domainbooking.DefaultRefundPolicy()
	}
	now := h.Clock.Now()
	quote, err := booking.Cancel(cmd.Actor, cmd.Reason, policy, now)
	if err != nil {
		return nil, err
	}

	if escrow.State == domainescrow.StatePending {
		if err := escrow.Void(now); err != nil {
			return nil, err
		}
		if err := h.Settlement.Save(ctx, unit, escrow); err != nil {
			return nil, err
		}
	} else {
		created, err := escrow.RefundCancellation(domainescrow.Refund{
			Room:     quote.Room,
			Cleaning: quote.Cleaning,
			Deposit:  quote.Deposit,
			Service:  quote.Service,
		}, h.Settlement.FeeSplit(), now)
		if err != nil {
			return nil, err
		}
		if err := h.Settlement.Apply(ctx, unit, escrow, created, now); err != nil {
			return nil, err
		}
	}

	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := handlersupport.RecordEvents(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("booking cancelled", "booking_id", booking.ID, "by", cmd.Actor, "tier", quote.Tier, "refund", quote.Total.Amount, "escrow_state", escrow.State)
	}
	return &CancelBookingResult{
		BookingID:   string(booking.ID),
		Status:      string(booking.State),
		Refund:      dto.MapRefundQuote(quote),
		EscrowState: string(escrow.State),
	}, nil
}

var _ commands.Handler[CancelBookingCommand, *CancelBookingResult] = (*CancelBookingHandler)(nil)

package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"shortlet/internal/app/commands"
	handlersupport "shortlet/internal/app/handlers/support"
	"shortlet/internal/app/outbox"
	"shortlet/internal/app/settlement"
	domainbooking "shortlet/internal/domain/booking"
)

const (
	expireBookingKey   = "booking.expire"
	completeBookingKey = "booking.complete"
)

var ErrEscrowNotSettled = errors.New("booking: escrow is not settled yet")

type ExpireBookingCommand struct {
	BookingID string
}

func (c ExpireBookingCommand) Key() string { return expireBookingKey }

func (c ExpireBookingCommand) Validate() error {
	if strings.TrimSpace(c.BookingID) == "" {
		return errBookingIDRequired
	}
	return nil
}

// ExpireBookingHandler releases the dates of a booking whose payment window
// passed and voids its unfunded escrow.
type ExpireBookingHandler struct {
	Settlement *settlement.Service
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      handlersupport.Clock
	Logger     *slog.Logger
}

func (h *ExpireBookingHandler) Handle(ctx context.Context, cmd ExpireBookingCommand) (*StayResult, error) {
	unit, booking, err := loadForActor(ctx, cmd.BookingID, domainbooking.ActorSystem, "")
	if err != nil {
		return nil, err
	}
	now := h.Clock.Now()
	if err := booking.Expire(now); err != nil {
		return nil, err
	}
	escrow, err := unit.Escrows().ByBookingID(ctx, string(booking.ID))
	if err != nil {
		return nil, err
	}
	if err := escrow.Void(now); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := handlersupport.RecordEvents(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return nil, err
	}
	if err := h.Settlement.Save(ctx, unit, escrow); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("unpaid booking expired", "booking_id", booking.ID, "deadline", booking.PaymentDeadline)
	}
	return &StayResult{BookingID: string(booking.ID), Status: string(booking.State)}, nil
}

type CompleteBookingCommand struct {
	BookingID string
}

func (c CompleteBookingCommand) Key() string { return completeBookingKey }

func (c CompleteBookingCommand) Validate() error {
	if strings.TrimSpace(c.BookingID) == "" {
		return errBookingIDRequired
	}
	return nil
}

// CompleteBookingHandler closes a checked-out booking once every escrow
// bucket is accounted for.
type CompleteBookingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   handlersupport.Clock
	Logger  *slog.Logger
}

func (h *CompleteBookingHandler) Handle(ctx context.Context, cmd CompleteBookingCommand) (*StayResult, error) {
	unit, booking, err := loadForActor(ctx, cmd.BookingID, domainbooking.ActorSystem, "")
	if err != nil {
		return nil, err
	}
	escrow, err := unit.Escrows().ByBookingID(ctx, string(booking.ID))
	if err != nil {
		return nil, err
	}
	if !escrow.Closed() {
		return nil, ErrEscrowNotSettled
	}
	if err := booking.Complete(h.Clock.Now()); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := handlersupport.RecordEvents(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("booking completed", "booking_id", booking.ID, "escrow_state", escrow.State)
	}
	return &StayResult{BookingID: string(booking.ID), Status: string(booking.State)}, nil
}

var _ commands.Handler[ExpireBookingCommand, *StayResult] = (*ExpireBookingHandler)(nil)
var _ commands.Handler[CompleteBookingCommand, *StayResult] = (*CompleteBookingHandler)(nil)

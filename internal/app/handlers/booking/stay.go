package booking

import (
	"context"
	"log/slog"
	"strings"

	"shortlet/internal/app/commands"
	handlersupport "shortlet/internal/app/handlers/support"
	"shortlet/internal/app/outbox"
	"shortlet/internal/app/uow"
	domainbooking "shortlet/internal/domain/booking"
)

const (
	checkInKey  = "booking.checkin"
	checkOutKey = "booking.checkout"
)

type CheckInCommand struct {
	BookingID string
	ActorID   string
	Actor     domainbooking.Actor
}

func (c CheckInCommand) Key() string { return checkInKey }

type CheckOutCommand struct {
	BookingID string
	ActorID   string
	Actor     domainbooking.Actor
}

func (c CheckOutCommand) Key() string { return checkOutKey }

type StayResult struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

type CheckInHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   handlersupport.Clock
	Logger  *slog.Logger
}

func (h *CheckInHandler) Handle(ctx context.Context, cmd CheckInCommand) (*StayResult, error) {
	unit, booking, err := loadForActor(ctx, cmd.BookingID, cmd.Actor, cmd.ActorID)
	if err != nil {
		return nil, err
	}
	if err := booking.CheckIn(h.Clock.Now()); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := handlersupport.RecordEvents(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("guest checked in", "booking_id", booking.ID, "by", cmd.Actor)
	}
	return &StayResult{BookingID: string(booking.ID), Status: string(booking.State)}, nil
}

// CheckOutHandler records the end of the stay; the realtor's deposit claim
// window starts from the actual check-out time.
type CheckOutHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   handlersupport.Clock
	Logger  *slog.Logger
}

func (h *CheckOutHandler) Handle(ctx context.Context, cmd CheckOutCommand) (*StayResult, error) {
	unit, booking, err := loadForActor(ctx, cmd.BookingID, cmd.Actor, cmd.ActorID)
	if err != nil {
		return nil, err
	}
	now := h.Clock.Now()
	if err := booking.CheckOut(now); err != nil {
		return nil, err
	}
	escrow, err := unit.Escrows().ByBookingID(ctx, string(booking.ID))
	if err != nil {
		return nil, err
	}
	escrow.RecordCheckOut(booking.CheckedOutAt)
	if err := unit.Escrows().Save(ctx, escrow); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := handlersupport.RecordEvents(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("guest checked out", "booking_id", booking.ID, "by", cmd.Actor, "deposit_release_at", escrow.DepositReleaseAt())
	}
	return &StayResult{BookingID: string(booking.ID), Status: string(booking.State)}, nil
}

func loadForActor(ctx context.Context, bookingID string, actor domainbooking.Actor, actorID string) (uow.UnitOfWork, *domainbooking.Booking, error) {
	id := strings.TrimSpace(bookingID)
	if id == "" {
		return nil, nil, errBookingIDRequired
	}
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, nil, uow.ErrUnitOfWorkMissing
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(id))
	if err != nil {
		return nil, nil, err
	}
	if err := ensureParticipant(booking, actor, actorID); err != nil {
		return nil, nil, err
	}
	return unit, booking, nil
}

var _ commands.Handler[CheckInCommand, *StayResult] = (*CheckInHandler)(nil)
var _ commands.Handler[CheckOutCommand, *StayResult] = (*CheckOutHandler)(nil)

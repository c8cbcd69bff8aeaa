package disputes

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"shortlet/internal/app/commands"
	"shortlet/internal/app/dto"
	handlersupport "shortlet/internal/app/handlers/support"
	"shortlet/internal/app/outbox"
	"shortlet/internal/app/queries"
	"shortlet/internal/app/settlement"
	"shortlet/internal/app/uow"
	domainbooking "shortlet/internal/domain/booking"
	domaindisputes "shortlet/internal/domain/disputes"
	domainescrow "shortlet/internal/domain/escrow"
	"shortlet/internal/domain/shared/money"
)

const (
	openDisputeKey    = "disputes.open"
	resolveDisputeKey = "disputes.resolve"
	listDisputesKey   = "disputes.list"
	defaultListLimit  = 100
)

var (
	ErrNotParticipant    = errors.New("disputes: actor is not a party to the booking")
	errBookingIDRequired = errors.New("booking id is required")
	errDisputeIDRequired = errors.New("dispute id is required")
	errResolverRequired  = errors.New("resolver id is required")
)

type OpenDisputeCommand struct {
	BookingID string
	ActorID   string
	Side      domaindisputes.Side
	Reason    string
	Claim     int64
}

func (c OpenDisputeCommand) Key() string { return openDisputeKey }

func (c OpenDisputeCommand) Validate() error {
	if strings.TrimSpace(c.BookingID) == "" {
		return errBookingIDRequired
	}
	if strings.TrimSpace(c.Reason) == "" {
		return domaindisputes.ErrReasonRequired
	}
	return nil
}

// OpenDisputeHandler freezes the escrow of a booking while a guest complaint
// about the stay or a realtor claim against the deposit is reviewed.
type OpenDisputeHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   handlersupport.Clock
	Logger  *slog.Logger
}

func (h *OpenDisputeHandler) Handle(ctx context.Context, cmd OpenDisputeCommand) (*dto.Dispute, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(strings.TrimSpace(cmd.BookingID)))
	if err != nil {
		return nil, err
	}
	party, err := partyFor(booking, cmd.Side, strings.TrimSpace(cmd.ActorID))
	if err != nil {
		return nil, err
	}
	escrow, err := unit.Escrows().ByBookingID(ctx, string(booking.ID))
	if err != nil {
		return nil, err
	}

	now := h.Clock.Now()
	dispute, err := domaindisputes.Open(domaindisputes.OpenParams{
		ID:        domaindisputes.ID(uuid.NewString()),
		BookingID: string(booking.ID),
		RaisedBy:  cmd.Side,
		RaiserID:  strings.TrimSpace(cmd.ActorID),
		Reason:    cmd.Reason,
		Claim:     money.Money{Amount: cmd.Claim, Currency: booking.Price.Currency()},
		Now:       now,
	})
	if err != nil {
		return nil, err
	}
	if err := escrow.OpenDispute(string(dispute.ID), party, now); err != nil {
		return nil, err
	}
	if err := unit.Escrows().Save(ctx, escrow); err != nil {
		return nil, err
	}
	if err := unit.Disputes().Save(ctx, dispute); err != nil {
		return nil, err
	}
	if err := handlersupport.RecordEvents(ctx, h.Outbox, h.Encoder, escrow, dispute); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Warn("dispute opened", "dispute_id", dispute.ID, "booking_id", booking.ID, "raised_by", dispute.RaisedBy, "claim", dispute.Claim.Amount)
	}
	result := dto.MapDispute(dispute)
	return &result, nil
}

func partyFor(booking *domainbooking.Booking, side domaindisputes.Side, actorID string) (domainescrow.Party, error) {
	switch side {
	case domaindisputes.SideGuest:
		if booking.GuestID != actorID {
			return "", ErrNotParticipant
		}
		return domainescrow.PartyGuest, nil
	case domaindisputes.SideRealtor:
		if string(booking.RealtorID) != actorID {
			return "", ErrNotParticipant
		}
		return domainescrow.PartyRealtor, nil
	default:
		return "", domaindisputes.ErrInvalidRaiser
	}
}

type ResolveDisputeCommand struct {
	DisputeID string
	AdminID   string
	Award     int64
	Note      string
}

func (c ResolveDisputeCommand) Key() string { return resolveDisputeKey }

func (c ResolveDisputeCommand) Validate() error {
	if strings.TrimSpace(c.DisputeID) == "" {
		return errDisputeIDRequired
	}
	if strings.TrimSpace(c.AdminID) == "" {
		return errResolverRequired
	}
	if c.Award < 0 {
		return domainescrow.ErrAwardTooLarge
	}
	return nil
}

type ResolveDisputeResult struct {
	Dispute     dto.Dispute `json:"dispute"`
	EscrowState string      `json:"escrow_state"`
}

// ResolveDisputeHandler applies an admin award and unfreezes the escrow.
type ResolveDisputeHandler struct {
	Settlement *settlement.Service
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      handlersupport.Clock
	Logger     *slog.Logger
}

func (h *ResolveDisputeHandler) Handle(ctx context.Context, cmd ResolveDisputeCommand) (*ResolveDisputeResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	dispute, err := unit.Disputes().ByID(ctx, domaindisputes.ID(strings.TrimSpace(cmd.DisputeID)))
	if err != nil {
		return nil, err
	}
	if dispute.Status == domaindisputes.StatusResolved {
		return nil, domaindisputes.ErrAlreadyResolved
	}
	escrow, err := unit.Escrows().ByBookingID(ctx, dispute.BookingID)
	if err != nil {
		return nil, err
	}

	now := h.Clock.Now()
	award := money.Money{Amount: cmd.Award, Currency: escrow.Currency()}
	created, err := escrow.ResolveDispute(string(dispute.ID), award, h.Settlement.FeeSplit(), now)
	if err != nil {
		return nil, err
	}
	if err := dispute.Resolve(award, cmd.Note, strings.TrimSpace(cmd.AdminID), now); err != nil {
		return nil, err
	}
	if err := h.Settlement.Apply(ctx, unit, escrow, created, now); err != nil {
		return nil, err
	}
	if err := unit.Disputes().Save(ctx, dispute); err != nil {
		return nil, err
	}
	if err := handlersupport.RecordEvents(ctx, h.Outbox, h.Encoder, dispute); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("dispute resolved", "dispute_id", dispute.ID, "booking_id", dispute.BookingID, "award", award.Amount, "escrow_state", escrow.State)
	}
	return &ResolveDisputeResult{Dispute: dto.MapDispute(dispute), EscrowState: string(escrow.State)}, nil
}

type ListDisputesQuery struct {
	BookingID string
	Status    string
}

func (q ListDisputesQuery) Key() string { return listDisputesKey }

type ListDisputesHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListDisputesHandler) Handle(ctx context.Context, q ListDisputesQuery) (dto.DisputeCollection, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.DisputeCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	found, err := unit.Disputes().Find(execCtx, domaindisputes.Filter{
		BookingID: strings.TrimSpace(q.BookingID),
		Status:    domaindisputes.Status(strings.ToUpper(strings.TrimSpace(q.Status))),
		Limit:     defaultListLimit,
	})
	if err != nil {
		return dto.DisputeCollection{}, err
	}
	items := make([]dto.Dispute, 0, len(found))
	for _, d := range found {
		items = append(items, dto.MapDispute(d))
	}
	return dto.DisputeCollection{Items: items}, nil
}

var _ commands.Handler[OpenDisputeCommand, *dto.Dispute] = (*OpenDisputeHandler)(nil)
var _ commands.Handler[ResolveDisputeCommand, *ResolveDisputeResult] = (*ResolveDisputeHandler)(nil)
var _ queries.Handler[ListDisputesQuery, dto.DisputeCollection] = (*ListDisputesHandler)(nil)

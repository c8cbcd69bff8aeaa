package escrow

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"shortlet/internal/app/commands"
	handlersupport "shortlet/internal/app/handlers/support"
	"shortlet/internal/app/settlement"
	"shortlet/internal/app/uow"
	domainescrow "shortlet/internal/domain/escrow"
)

const (
	releaseEscrowKey  = "escrow.release"
	disburseEscrowKey = "escrow.disburse"

	BucketStay    = "STAY"
	BucketDeposit = "DEPOSIT"
)

var errBookingIDRequired = errors.New("booking id is required")

type ReleaseEscrowCommand struct {
	BookingID string
	Trigger   string
}

func (c ReleaseEscrowCommand) Key() string { return releaseEscrowKey }

func (c ReleaseEscrowCommand) Validate() error {
	if strings.TrimSpace(c.BookingID) == "" {
		return errBookingIDRequired
	}
	return nil
}

type ReleaseEscrowResult struct {
	BookingID string   `json:"booking_id"`
	State     string   `json:"state"`
	Released  []string `json:"released"`
}

// ReleaseEscrowHandler releases every bucket whose hold period is over.
type ReleaseEscrowHandler struct {
	Settlement *settlement.Service
	Clock      handlersupport.Clock
	Logger     *slog.Logger
}

func (h *ReleaseEscrowHandler) Handle(ctx context.Context, cmd ReleaseEscrowCommand) (*ReleaseEscrowResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	escrow, err := unit.Escrows().ByBookingID(ctx, strings.TrimSpace(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	now := h.Clock.Now()
	if !escrow.StayDue(now) && !escrow.DepositDue(now) {
		return nil, notDueError(escrow)
	}

	released := make([]string, 0, 2)
	if escrow.StayDue(now) {
		created, err := escrow.ReleaseStay(now, h.Settlement.FeeSplit())
		if err != nil {
			return nil, err
		}
		if err := h.Settlement.Apply(ctx, unit, escrow, created, now); err != nil {
			return nil, err
		}
		released = append(released, BucketStay)
	}
	if escrow.DepositDue(now) {
		created, err := escrow.ReleaseDeposit(now)
		if err != nil {
			return nil, err
		}
		if err := h.Settlement.Apply(ctx, unit, escrow, created, now); err != nil {
			return nil, err
		}
		released = append(released, BucketDeposit)
	}

	if h.Logger != nil {
		h.Logger.Info("escrow released", "booking_id", escrow.BookingID, "buckets", released, "state", escrow.State, "trigger", cmd.Trigger)
	}
	return &ReleaseEscrowResult{BookingID: escrow.BookingID, State: string(escrow.State), Released: released}, nil
}

// notDueError explains why nothing could be released.
func notDueError(escrow *domainescrow.Escrow) error {
	if escrow.AwaitingRefunds() {
		return domainescrow.ErrAlreadyReleased
	}
	switch escrow.State {
	case domainescrow.StateHeld, domainescrow.StatePartiallyReleased:
		return domainescrow.ErrHoldPeriodActive
	case domainescrow.StateSettled, domainescrow.StateRefunded:
		return domainescrow.ErrAlreadyReleased
	default:
		return domainescrow.ErrInvalidState
	}
}

type DisburseEscrowCommand struct {
	BookingID string
}

func (c DisburseEscrowCommand) Key() string { return disburseEscrowKey }

func (c DisburseEscrowCommand) Validate() error {
	if strings.TrimSpace(c.BookingID) == "" {
		return errBookingIDRequired
	}
	return nil
}

type DisburseEscrowResult struct {
	BookingID string `json:"booking_id"`
	Completed int    `json:"completed"`
	Pending   int    `json:"pending"`
	State     string `json:"state"`
}

// DisburseEscrowHandler retries guest refunds still waiting on the gateway.
type DisburseEscrowHandler struct {
	Settlement *settlement.Service
	Clock      handlersupport.Clock
	Logger     *slog.Logger
}

func (h *DisburseEscrowHandler) Handle(ctx context.Context, cmd DisburseEscrowCommand) (*DisburseEscrowResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	escrow, err := unit.Escrows().ByBookingID(ctx, strings.TrimSpace(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	completed := 0
	if escrow.HasPendingEntries() {
		completed = h.Settlement.Disburse(ctx, escrow, h.Clock.Now())
		if err := h.Settlement.Save(ctx, unit, escrow); err != nil {
			return nil, err
		}
	}
	pending := len(escrow.PendingRefunds())
	if h.Logger != nil && completed > 0 {
		h.Logger.Info("escrow refunds disbursed", "booking_id", escrow.BookingID, "completed", completed, "pending", pending)
	}
	return &DisburseEscrowResult{BookingID: escrow.BookingID, Completed: completed, Pending: pending, State: string(escrow.State)}, nil
}

var _ commands.Handler[ReleaseEscrowCommand, *ReleaseEscrowResult] = (*ReleaseEscrowHandler)(nil)
var _ commands.Handler[DisburseEscrowCommand, *DisburseEscrowResult] = (*DisburseEscrowHandler)(nil)

// Package jobs holds the periodic sweeps that move bookings and escrows
// forward without user action. Every sweep finds candidates on a read-only
// unit and dispatches one command per candidate through the command bus, so
// each change runs in its own transaction with the usual middleware.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"shortlet/internal/app/commands"
	"shortlet/internal/app/dto"
	bookinghandlers "shortlet/internal/app/handlers/booking"
	escrowhandlers "shortlet/internal/app/handlers/escrow"
	handlersupport "shortlet/internal/app/handlers/support"
	wallethandlers "shortlet/internal/app/handlers/wallets"
	"shortlet/internal/app/schedule"
	"shortlet/internal/app/uow"
	domainbooking "shortlet/internal/domain/booking"
	domainescrow "shortlet/internal/domain/escrow"
)

const defaultBatchSize = 200

type Runner struct {
	Commands   commands.Bus
	UoWFactory uow.UoWFactory
	Clock      handlersupport.Clock
	Logger     *slog.Logger
	BatchSize  int
}

// Specs maps job names to cron specs.
type Specs struct {
	ExpireUnpaid     string
	AdvanceStays     string
	ReleaseEscrows   string
	RetryDisburse    string
	CompleteBookings string
}

func DefaultSpecs() Specs {
	return Specs{
		ExpireUnpaid:     "@every 1m",
		AdvanceStays:     "@every 5m",
		ReleaseEscrows:   "@every 5m",
		RetryDisburse:    "@every 10m",
		CompleteBookings: "@every 15m",
	}
}

// Register schedules every sweep on s.
func (r *Runner) Register(s schedule.Scheduler, specs Specs) error {
	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) (int, error)
	}{
		{"expire_unpaid_bookings", specs.ExpireUnpaid, r.ExpireUnpaidBookings},
		{"advance_stays", specs.AdvanceStays, r.AdvanceStays},
		{"release_due_escrows", specs.ReleaseEscrows, r.ReleaseDueEscrows},
		{"retry_disbursements", specs.RetryDisburse, r.RetryDisbursements},
		{"complete_settled_bookings", specs.CompleteBookings, r.CompleteSettledBookings},
	}
	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		run := job.run
		if err := s.Every(job.name, job.spec, func(ctx context.Context) error {
			_, err := run(ctx)
			return err
		}); err != nil {
			return fmt.Errorf("schedule %s: %w", job.name, err)
		}
	}
	return nil
}

// ExpireUnpaidBookings expires pending bookings past their payment deadline.
func (r *Runner) ExpireUnpaidBookings(ctx context.Context) (int, error) {
	pending, err := r.findBookings(ctx, domainbooking.Filter{
		States: []domainbooking.BookingState{domainbooking.StatePendingPayment},
		DueBy:  r.Clock.Now(),
	})
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(pending))
	for _, b := range pending {
		ids = append(ids, string(b.ID))
	}
	return r.each(ctx, "expire_unpaid_bookings", ids, func(ctx context.Context, id string) error {
		_, err := commands.Dispatch[bookinghandlers.ExpireBookingCommand, *bookinghandlers.StayResult](ctx, r.Commands, bookinghandlers.ExpireBookingCommand{BookingID: id})
		return err
	})
}

// AdvanceStays checks guests in on the check-in date and out on the
// check-out date when nobody recorded it by hand.
func (r *Runner) AdvanceStays(ctx context.Context) (int, error) {
	found, err := r.findBookings(ctx, domainbooking.Filter{
		States: []domainbooking.BookingState{domainbooking.StateConfirmed, domainbooking.StateCheckedIn},
		DueBy:  r.Clock.Now(),
	})
	if err != nil {
		return 0, err
	}
	var checkIns, checkOuts []string
	for _, b := range found {
		if b.State == domainbooking.StateConfirmed {
			checkIns = append(checkIns, string(b.ID))
		} else {
			checkOuts = append(checkOuts, string(b.ID))
		}
	}
	in, errIn := r.each(ctx, "auto_check_in", checkIns, func(ctx context.Context, id string) error {
		_, err := commands.Dispatch[bookinghandlers.CheckInCommand, *bookinghandlers.StayResult](ctx, r.Commands, bookinghandlers.CheckInCommand{BookingID: id, Actor: domainbooking.ActorSystem})
		return err
	})
	out, errOut := r.each(ctx, "auto_check_out", checkOuts, func(ctx context.Context, id string) error {
		_, err := commands.Dispatch[bookinghandlers.CheckOutCommand, *bookinghandlers.StayResult](ctx, r.Commands, bookinghandlers.CheckOutCommand{BookingID: id, Actor: domainbooking.ActorSystem})
		return err
	})
	return in + out, errors.Join(errIn, errOut)
}

// ReleaseDueEscrows releases every held bucket whose hold period is over.
func (r *Runner) ReleaseDueEscrows(ctx context.Context) (int, error) {
	due, err := r.findEscrows(ctx, domainescrow.Filter{
		States: []domainescrow.State{domainescrow.StateHeld, domainescrow.StatePartiallyReleased},
		DueBy:  r.Clock.Now(),
	})
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(due))
	for _, e := range due {
		ids = append(ids, e.BookingID)
	}
	return r.each(ctx, "release_due_escrows", ids, func(ctx context.Context, id string) error {
		_, err := commands.Dispatch[escrowhandlers.ReleaseEscrowCommand, *escrowhandlers.ReleaseEscrowResult](ctx, r.Commands, escrowhandlers.ReleaseEscrowCommand{BookingID: id, Trigger: "schedule"})
		return err
	})
}

// RetryDisbursements pushes refunds the gateway did not accept earlier and
// re-checks payouts still pending at the gateway.
func (r *Runner) RetryDisbursements(ctx context.Context) (int, error) {
	escrows, err := r.findEscrows(ctx, domainescrow.Filter{PendingEntries: true})
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(escrows))
	for _, e := range escrows {
		ids = append(ids, e.BookingID)
	}
	refunds, errRefunds := r.each(ctx, "retry_disbursements", ids, func(ctx context.Context, id string) error {
		_, err := commands.Dispatch[escrowhandlers.DisburseEscrowCommand, *escrowhandlers.DisburseEscrowResult](ctx, r.Commands, escrowhandlers.DisburseEscrowCommand{BookingID: id})
		return err
	})

	var payoutIDs []string
	errList := r.read(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		pending, err := unit.Payouts().ListPending(ctx, r.batchSize())
		for _, p := range pending {
			payoutIDs = append(payoutIDs, p.ID)
		}
		return err
	})
	payouts, errPayouts := r.each(ctx, "retry_payouts", payoutIDs, func(ctx context.Context, id string) error {
		_, err := commands.Dispatch[wallethandlers.SettlePayoutCommand, *dto.Payout](ctx, r.Commands, wallethandlers.SettlePayoutCommand{PayoutID: id})
		return err
	})
	return refunds + payouts, errors.Join(errRefunds, errList, errPayouts)
}

// CompleteSettledBookings closes checked-out bookings whose escrow settled.
func (r *Runner) CompleteSettledBookings(ctx context.Context) (int, error) {
	var ids []string
	err := r.read(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		found, err := unit.Bookings().Find(ctx, domainbooking.Filter{States: []domainbooking.BookingState{domainbooking.StateCheckedOut}})
		if err != nil {
			return err
		}
		for _, b := range found {
			if len(ids) == r.batchSize() {
				break
			}
			escrow, err := unit.Escrows().ByBookingID(ctx, string(b.ID))
			if err != nil {
				return err
			}
			if escrow.Closed() {
				ids = append(ids, string(b.ID))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return r.each(ctx, "complete_settled_bookings", ids, func(ctx context.Context, id string) error {
		_, err := commands.Dispatch[bookinghandlers.CompleteBookingCommand, *bookinghandlers.StayResult](ctx, r.Commands, bookinghandlers.CompleteBookingCommand{BookingID: id})
		return err
	})
}

func (r *Runner) findBookings(ctx context.Context, filter domainbooking.Filter) ([]*domainbooking.Booking, error) {
	filter.Limit = r.batchSize()
	var found []*domainbooking.Booking
	err := r.read(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		found, err = unit.Bookings().Find(ctx, filter)
		return err
	})
	return found, err
}

func (r *Runner) findEscrows(ctx context.Context, filter domainescrow.Filter) ([]*domainescrow.Escrow, error) {
	filter.Limit = r.batchSize()
	var found []*domainescrow.Escrow
	err := r.read(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		found, err = unit.Escrows().Find(ctx, filter)
		return err
	})
	return found, err
}

func (r *Runner) read(ctx context.Context, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, r.UoWFactory)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}
	return fn(execCtx, unit)
}

// each runs fn per id. A failing item is logged and does not stop the sweep;
// the first error is returned once the batch is done.
func (r *Runner) each(ctx context.Context, job string, ids []string, fn func(ctx context.Context, id string) error) (int, error) {
	var (
		done     int
		firstErr error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if err := fn(ctx, id); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s %s: %w", job, id, err)
			}
			if r.Logger != nil {
				r.Logger.Warn("job item failed", "job", job, "id", id, "error", err)
			}
			continue
		}
		done++
	}
	if r.Logger != nil && len(ids) > 0 {
		r.Logger.Info("job finished", "job", job, "processed", done, "candidates", len(ids))
	}
	return done, firstErr
}

func (r *Runner) batchSize() int {
	if r.BatchSize > 0 {
		return r.BatchSize
	}
	return defaultBatchSize
}

package memory

import (
	"context"
	"errors"
	"sync"

	"shortlet/internal/app/uow"
	domainbooking "shortlet/internal/domain/booking"
	domaindisputes "shortlet/internal/domain/disputes"
	domainescrow "shortlet/internal/domain/escrow"
	domainlistings "shortlet/internal/domain/listings"
	domainpayments "shortlet/internal/domain/payments"
	domainreviews "shortlet/internal/domain/reviews"
	domainwallet "shortlet/internal/domain/wallet"
)

// ErrFactoryMisconfigured indicates a missing store.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

var errUnitClosed = errors.New("memory: unit of work already finished")

// Factory starts units of work over a shared Store.
type Factory struct {
	Store *Store
}

// Begin starts a unit that sees committed data plus its own staged writes.
// Nothing is visible to other units before Commit.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	s := f.Store
	return &Unit{
		store:    s,
		readOnly: opts.ReadOnly,
		listings: newStaged(&s.mu, s.listings),
		bookings: newStaged(&s.mu, s.bookings),
		escrows:  newStaged(&s.mu, s.escrows),
		payments: newStaged(&s.mu, s.payments),
		disputes: newStaged(&s.mu, s.disputes),
		wallets:  newStaged(&s.mu, s.wallets),
		payouts:  newStaged(&s.mu, s.payouts),
		reviews:  newStaged(&s.mu, s.reviews),
	}, nil
}

// Unit is a uow.UnitOfWork backed by the in-memory Store.
type Unit struct {
	mu       sync.Mutex
	store    *Store
	readOnly bool
	done     bool
	hooks    []func()
	listings *staged[string, listingRow]
	bookings *staged[string, bookingRow]
	escrows  *staged[string, escrowRow]
	payments *staged[string, paymentRow]
	disputes *staged[string, disputeRow]
	wallets  *staged[string, walletRow]
	payouts  *staged[string, payoutRow]
	reviews  *staged[string, reviewRow]
}

func (u *Unit) Listings() domainlistings.ListingRepository {
	return ListingRepository{rows: u.listings}
}

func (u *Unit) Bookings() domainbooking.Repository {
	return BookingRepository{rows: u.bookings}
}

func (u *Unit) Escrows() domainescrow.Repository {
	return EscrowRepository{rows: u.escrows}
}

func (u *Unit) Payments() domainpayments.Repository {
	return PaymentRepository{rows: u.payments}
}

func (u *Unit) Disputes() domaindisputes.Repository {
	return DisputeRepository{rows: u.disputes}
}

func (u *Unit) Wallets() domainwallet.Repository {
	return WalletRepository{rows: u.wallets}
}

func (u *Unit) Payouts() domainwallet.PayoutRepository {
	return PayoutRepository{rows: u.payouts}
}

func (u *Unit) Reviews() domainreviews.Repository {
	return ReviewRepository{rows: u.reviews}
}

// Commit applies every staged write, or none of them when any aggregate
// was changed by another unit in the meantime.
func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return errUnitClosed
	}
	u.done = true
	if u.readOnly {
		return nil
	}
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	checks := []func() error{
		u.listings.check, u.bookings.check, u.escrows.check, u.payments.check,
		u.disputes.check, u.wallets.check, u.payouts.check, u.reviews.check,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	u.listings.apply()
	u.bookings.apply()
	u.escrows.apply()
	u.payments.apply()
	u.disputes.apply()
	u.wallets.apply()
	u.payouts.apply()
	u.reviews.apply()
	for _, hook := range u.hooks {
		hook()
	}
	u.hooks = nil
	return nil
}

func (u *Unit) afterCommit(fn func()) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.hooks = append(u.hooks, fn)
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.done = true
	u.hooks = nil
	return nil
}

var _ uow.UoWFactory = Factory{}
var _ uow.UnitOfWork = (*Unit)(nil)

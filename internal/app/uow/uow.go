package uow

import (
	"context"
	"errors"

	domainbooking "shortlet/internal/domain/booking"
	domaindisputes "shortlet/internal/domain/disputes"
	domainescrow "shortlet/internal/domain/escrow"
	domainlistings "shortlet/internal/domain/listings"
	domainpayments "shortlet/internal/domain/payments"
	domainreviews "shortlet/internal/domain/reviews"
	domainwallet "shortlet/internal/domain/wallet"
)

// ErrConcurrentUpdate is returned when an aggregate changed since it was loaded.
var ErrConcurrentUpdate = errors.New("uow: aggregate was modified concurrently")

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Listings() domainlistings.ListingRepository
	Bookings() domainbooking.Repository
	Escrows() domainescrow.Repository
	Payments() domainpayments.Repository
	Disputes() domaindisputes.Repository
	Wallets() domainwallet.Repository
	Payouts() domainwallet.PayoutRepository
	Reviews() domainreviews.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}

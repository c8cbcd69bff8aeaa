package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"

	"shortlet/internal/app/uow"
	domainbooking "shortlet/internal/domain/booking"
	domaindisputes "shortlet/internal/domain/disputes"
	domainescrow "shortlet/internal/domain/escrow"
	domainlistings "shortlet/internal/domain/listings"
	domainpayments "shortlet/internal/domain/payments"
	domainreviews "shortlet/internal/domain/reviews"
	domainwallet "shortlet/internal/domain/wallet"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction. Repositories must receive the
// context returned by uow.Inject so their operations join the transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(readconcern.Snapshot()).SetWriteConcern(f.DB.WriteConcern())
	if opts.ReadOnly {
		txnOpts = txnOpts.SetReadConcern(readconcern.Majority())
	}
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{db: f.DB, session: session}, nil
}

type Unit struct {
	db      *mongo.Database
	session mongo.Session
}

func (u *Unit) Listings() domainlistings.ListingRepository {
	return NewListingRepository(u.db)
}

func (u *Unit) Bookings() domainbooking.Repository {
	return NewBookingRepository(u.db)
}

func (u *Unit) Escrows() domainescrow.Repository {
	return NewEscrowRepository(u.db)
}

func (u *Unit) Payments() domainpayments.Repository {
	return NewPaymentRepository(u.db)
}

func (u *Unit) Disputes() domaindisputes.Repository {
	return NewDisputeRepository(u.db)
}

func (u *Unit) Wallets() domainwallet.Repository {
	return NewWalletRepository(u.db)
}

func (u *Unit) Payouts() domainwallet.PayoutRepository {
	return NewPayoutRepository(u.db)
}

func (u *Unit) Reviews() domainreviews.Repository {
	return NewReviewRepository(u.db)
}

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	if err := u.session.CommitTransaction(ctx); err != nil {
		return conflictOr(err)
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var _ uow.UnitOfWork = (*Unit)(nil)

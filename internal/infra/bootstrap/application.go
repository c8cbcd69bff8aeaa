// Package bootstrap assembles the buses, handlers and HTTP handlers from the
// storage and gateway adapters chosen by the entrypoint.
package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"shortlet/internal/app/commands"
	"shortlet/internal/app/dto"
	adminapp "shortlet/internal/app/handlers/admin"
	bookingapp "shortlet/internal/app/handlers/booking"
	disputeapp "shortlet/internal/app/handlers/disputes"
	escrowapp "shortlet/internal/app/handlers/escrow"
	listingapp "shortlet/internal/app/handlers/listings"
	paymentapp "shortlet/internal/app/handlers/payments"
	reviewapp "shortlet/internal/app/handlers/reviews"
	handlersupport "shortlet/internal/app/handlers/support"
	walletapp "shortlet/internal/app/handlers/wallets"
	"shortlet/internal/app/jobs"
	"shortlet/internal/app/middleware"
	appoutbox "shortlet/internal/app/outbox"
	"shortlet/internal/app/policies"
	"shortlet/internal/app/queries"
	authsvc "shortlet/internal/app/services/auth"
	"shortlet/internal/app/settlement"
	"shortlet/internal/app/uow"
	domainauth "shortlet/internal/domain/auth"
	domainbooking "shortlet/internal/domain/booking"
	domainescrow "shortlet/internal/domain/escrow"
	domainpricing "shortlet/internal/domain/pricing"
	domainuser "shortlet/internal/domain/user"
	"shortlet/internal/infra/config"
	ginserver "shortlet/internal/infra/http/gin"
	"shortlet/internal/infra/obs"
	infrapricing "shortlet/internal/infra/pricing"
	"shortlet/internal/infra/security"
	"shortlet/internal/infra/storage/s3"
)

// EventSource is the CloudEvents source stamped on every outbox record.
const EventSource = "app://shortlet"

var ErrStorageIncomplete = errors.New("bootstrap: storage adapters missing")

// Storage bundles one persistence backend.
type Storage struct {
	UoW         uow.UoWFactory
	Users       domainuser.Repository
	Sessions    domainauth.SessionStore
	Idempotency middleware.IdempotencyStore
	Outbox      appoutbox.Outbox
	Ready       func(ctx context.Context) error
}

func (s Storage) validate() error {
	if s.UoW == nil || s.Users == nil || s.Sessions == nil || s.Idempotency == nil || s.Outbox == nil {
		return ErrStorageIncomplete
	}
	return nil
}

type Deps struct {
	Config       config.Config
	Storage      Storage
	Gateway      policies.PaymentGateway
	Archive      policies.StatementArchive
	Logger       *slog.Logger
	Metrics      *obs.Metrics
	Clock        handlersupport.Clock
	PasswordCost int
}

type Application struct {
	Commands commands.Bus
	Queries  queries.Bus
	Auth     *authsvc.Service
	Jobs     *jobs.Runner
	Handlers ginserver.Handlers
	Health   obs.HealthHandlers
}

// Build registers every handler on fresh buses and wraps them with the
// middleware pipeline. The command pipeline runs outermost first:
// metrics, validation, authorization, idempotency, outbox flush, transaction.
func Build(d Deps) (*Application, error) {
	if err := d.Storage.validate(); err != nil {
		return nil, err
	}
	if d.Gateway == nil {
		return nil, errors.New("bootstrap: payment gateway required")
	}
	if d.Archive == nil {
		d.Archive = s3.NoopArchive{}
	}
	cfg := d.Config
	logger := d.Logger
	clock := d.Clock
	store := d.Storage
	encoder := appoutbox.JSONEventEncoder{Source: EventSource}
	quoter := infrapricing.NewFeeQuoter(domainpricing.FeePolicy{ServiceFeeRate: cfg.ServiceFeeRate})
	settle := &settlement.Service{
		Gateway: d.Gateway,
		Archive: d.Archive,
		Split:   domainescrow.FeeSplit{RealtorShare: cfg.RealtorShare},
		Outbox:  store.Outbox,
		Encoder: encoder,
		Logger:  logger,
	}

	commandBus := commands.NewInMemoryBus()
	registerCommands(commandBus, cfg, d, settle, quoter, encoder)

	queryBus := queries.NewInMemoryBus()
	registerQueries(queryBus, cfg, d, quoter)

	commandStages := middleware.CommandStages{
		Validation:    middleware.Validation(middleware.SelfValidator{}),
		Authorization: middleware.Authorization(authsvc.ActiveUserGuard{Users: store.Users}),
		Idempotency:   middleware.Idempotency(store.Idempotency, nil),
		Outbox:        middleware.OutboxFlush(store.Outbox, logger),
		Transaction:   middleware.Transaction(store.UoW, nil),
	}
	queryStages := middleware.QueryStages{
		Validation: middleware.QueryValidation(middleware.SelfValidator{}),
	}
	if d.Metrics != nil {
		commandStages.Metrics = middleware.Metrics(d.Metrics, logger)
		queryStages.Metrics = middleware.QueryMetrics(d.Metrics, logger)
	}
	cmds := commandStages.Build(commandBus)
	qs := queryStages.Build(queryBus)

	authService := &authsvc.Service{
		Users:      store.Users,
		Sessions:   store.Sessions,
		Passwords:  security.BcryptHasher{Cost: d.PasswordCost},
		Tokens:     security.RandomTokenGenerator{Size: 32},
		SessionTTL: cfg.SessionTTL,
		Clock:      clock,
		Logger:     logger,
	}

	handlers := ginserver.Handlers{
		Auth:           ginserver.AuthHandler{Service: authService, Logger: logger},
		Listing:        ginserver.ListingHandler{Queries: qs, Logger: logger},
		Realtor:        ginserver.RealtorHandler{Commands: cmds, Queries: qs, Logger: logger},
		Booking:        ginserver.BookingHandler{Commands: cmds, Queries: qs, Logger: logger},
		Payment:        ginserver.PaymentHandler{Commands: cmds, Logger: logger},
		Me:             ginserver.MeHandler{Queries: qs, Logger: logger},
		Admin:          ginserver.AdminHandler{Commands: cmds, Queries: qs, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{Service: authService, Logger: logger}.Handle,
	}
	if d.Metrics != nil {
		handlers.Metrics = d.Metrics.Handler()
	}
	health := obs.HealthHandlers{Ready: store.Ready}

	return &Application{
		Commands: cmds,
		Queries:  qs,
		Auth:     authService,
		Jobs: &jobs.Runner{
			Commands:   cmds,
			UoWFactory: store.UoW,
			Clock:      clock,
			Logger:     logger,
			BatchSize:  cfg.JobBatchSize,
		},
		Handlers: handlers,
		Health:   health,
	}, nil
}

func registerCommands(bus *commands.InMemoryBus, cfg config.Config, d Deps, settle *settlement.Service, quoter policies.PricingPort, encoder appoutbox.EventEncoder) {
	box := d.Storage.Outbox
	logger := d.Logger
	clock := d.Clock

	commands.RegisterHandler[bookingapp.RequestBookingCommand, *bookingapp.RequestBookingResult](bus, bookingapp.RequestBookingCommand{}.Key(), &bookingapp.RequestBookingHandler{
		UoWFactory:    d.Storage.UoW,
		Pricing:       quoter,
		PaymentWindow: cfg.PaymentWindow,
		Holds:         domainescrow.Holds{Stay: cfg.StayHold, Deposit: cfg.DepositHold},
		Outbox:        box,
		Encoder:       encoder,
		Clock:         clock,
		Logger:        logger,
	})
	commands.RegisterHandler[bookingapp.CancelBookingCommand, *bookingapp.CancelBookingResult](bus, bookingapp.CancelBookingCommand{}.Key(), &bookingapp.CancelBookingHandler{
		Policy:     domainbooking.DefaultRefundPolicy(),
		Settlement: settle,
		Outbox:     box,
		Encoder:    encoder,
		Clock:      clock,
		Logger:     logger,
	})
	commands.RegisterHandler[bookingapp.CheckInCommand, *bookingapp.StayResult](bus, bookingapp.CheckInCommand{}.Key(),
		&bookingapp.CheckInHandler{Outbox: box, Encoder: encoder, Clock: clock, Logger: logger})
	commands.RegisterHandler[bookingapp.CheckOutCommand, *bookingapp.StayResult](bus, bookingapp.CheckOutCommand{}.Key(),
		&bookingapp.CheckOutHandler{Outbox: box, Encoder: encoder, Clock: clock, Logger: logger})
	commands.RegisterHandler[bookingapp.ExpireBookingCommand, *bookingapp.StayResult](bus, bookingapp.ExpireBookingCommand{}.Key(),
		&bookingapp.ExpireBookingHandler{Settlement: settle, Outbox: box, Encoder: encoder, Clock: clock, Logger: logger})
	commands.RegisterHandler[bookingapp.CompleteBookingCommand, *bookingapp.StayResult](bus, bookingapp.CompleteBookingCommand{}.Key(),
		&bookingapp.CompleteBookingHandler{Outbox: box, Encoder: encoder, Clock: clock, Logger: logger})

	commands.RegisterHandler[escrowapp.ReleaseEscrowCommand, *escrowapp.ReleaseEscrowResult](bus, escrowapp.ReleaseEscrowCommand{}.Key(),
		&escrowapp.ReleaseEscrowHandler{Settlement: settle, Clock: clock, Logger: logger})
	commands.RegisterHandler[escrowapp.DisburseEscrowCommand, *escrowapp.DisburseEscrowResult](bus, escrowapp.DisburseEscrowCommand{}.Key(),
		&escrowapp.DisburseEscrowHandler{Settlement: settle, Clock: clock, Logger: logger})

	commands.RegisterHandler[paymentapp.InitializePaymentCommand, *dto.Payment](bus, paymentapp.InitializePaymentCommand{}.Key(), &paymentapp.InitializePaymentHandler{
		Gateway:     d.Gateway,
		CallbackURL: cfg.PaymentCallbackURL,
		Clock:       clock,
		Logger:      logger,
	})
	commands.RegisterHandler[paymentapp.VerifyPaymentCommand, *paymentapp.VerifyPaymentResult](bus, paymentapp.VerifyPaymentCommand{}.Key(), &paymentapp.VerifyPaymentHandler{
		Gateway:    d.Gateway,
		Settlement: settle,
		Outbox:     box,
		Encoder:    encoder,
		Clock:      clock,
		Logger:     logger,
	})

	commands.RegisterHandler[listingapp.CreateListingCommand, *dto.Listing](bus, listingapp.CreateListingCommand{}.Key(),
		&listingapp.CreateListingHandler{Currency: cfg.Currency, Outbox: box, Encoder: encoder, Clock: clock, Logger: logger})
	commands.RegisterHandler[listingapp.PublishListingCommand, *dto.Listing](bus, listingapp.PublishListingCommand{}.Key(),
		&listingapp.PublishListingHandler{Outbox: box, Encoder: encoder, Clock: clock, Logger: logger})
	commands.RegisterHandler[listingapp.SuspendListingCommand, *dto.Listing](bus, listingapp.SuspendListingCommand{}.Key(),
		&listingapp.SuspendListingHandler{Outbox: box, Encoder: encoder, Clock: clock, Logger: logger})

	commands.RegisterHandler[disputeapp.OpenDisputeCommand, *dto.Dispute](bus, disputeapp.OpenDisputeCommand{}.Key(),
		&disputeapp.OpenDisputeHandler{Outbox: box, Encoder: encoder, Clock: clock, Logger: logger})
	commands.RegisterHandler[disputeapp.ResolveDisputeCommand, *disputeapp.ResolveDisputeResult](bus, disputeapp.ResolveDisputeCommand{}.Key(),
		&disputeapp.ResolveDisputeHandler{Settlement: settle, Outbox: box, Encoder: encoder, Clock: clock, Logger: logger})

	commands.RegisterHandler[reviewapp.SubmitReviewCommand, dto.Review](bus, reviewapp.SubmitReviewCommand{}.Key(),
		&reviewapp.SubmitReviewHandler{UoWFactory: d.Storage.UoW, Outbox: box, Encoder: encoder, Clock: clock, Logger: logger})
	commands.RegisterHandler[reviewapp.UpdateReviewCommand, dto.Review](bus, reviewapp.UpdateReviewCommand{}.Key(),
		&reviewapp.UpdateReviewHandler{UoWFactory: d.Storage.UoW, Outbox: box, Encoder: encoder, Clock: clock, Logger: logger})

	commands.RegisterHandler[walletapp.RequestPayoutCommand, *dto.Payout](bus, walletapp.RequestPayoutCommand{}.Key(),
		&walletapp.RequestPayoutHandler{Outbox: box, Encoder: encoder, Clock: clock, Logger: logger})
	commands.RegisterHandler[walletapp.SettlePayoutCommand, *dto.Payout](bus, walletapp.SettlePayoutCommand{}.Key(),
		&walletapp.SettlePayoutHandler{Gateway: d.Gateway, Outbox: box, Encoder: encoder, Clock: clock, Logger: logger})

	commands.RegisterHandler[adminapp.BlockUserCommand, *dto.UserProfile](bus, adminapp.BlockUserCommand{}.Key(),
		&adminapp.BlockUserHandler{Users: d.Storage.Users, Sessions: d.Storage.Sessions, Clock: clock, Logger: logger})
}

func registerQueries(bus *queries.InMemoryBus, cfg config.Config, d Deps, quoter policies.PricingPort) {
	factory := d.Storage.UoW
	lists := &bookingapp.ListBookingsHandler{UoWFactory: factory, Logger: d.Logger}

	queries.RegisterHandler[bookingapp.GetBookingQuery, *dto.BookingDetail](bus, bookingapp.GetBookingQuery{}.Key(),
		&bookingapp.GetBookingHandler{UoWFactory: factory})
	queries.RegisterHandler[bookingapp.ListGuestBookingsQuery, dto.BookingCollection](bus, bookingapp.ListGuestBookingsQuery{}.Key(),
		queries.HandlerFunc[bookingapp.ListGuestBookingsQuery, dto.BookingCollection](lists.HandleGuest))
	queries.RegisterHandler[bookingapp.ListRealtorBookingsQuery, dto.BookingCollection](bus, bookingapp.ListRealtorBookingsQuery{}.Key(),
		queries.HandlerFunc[bookingapp.ListRealtorBookingsQuery, dto.BookingCollection](lists.HandleRealtor))
	queries.RegisterHandler[bookingapp.ListAdminBookingsQuery, dto.BookingCollection](bus, bookingapp.ListAdminBookingsQuery{}.Key(),
		queries.HandlerFunc[bookingapp.ListAdminBookingsQuery, dto.BookingCollection](lists.HandleAdmin))
	queries.RegisterHandler[bookingapp.QuoteQuery, *dto.Quote](bus, bookingapp.QuoteQuery{}.Key(),
		&bookingapp.QuoteHandler{UoWFactory: factory, Pricing: quoter})

	queries.RegisterHandler[listingapp.SearchCatalogQuery, dto.ListingCatalog](bus, listingapp.SearchCatalogQuery{}.Key(),
		&listingapp.SearchCatalogHandler{UoWFactory: factory, Clock: d.Clock})
	queries.RegisterHandler[listingapp.GetListingQuery, *dto.Listing](bus, listingapp.GetListingQuery{}.Key(),
		&listingapp.GetListingHandler{UoWFactory: factory})

	queries.RegisterHandler[disputeapp.ListDisputesQuery, dto.DisputeCollection](bus, disputeapp.ListDisputesQuery{}.Key(),
		&disputeapp.ListDisputesHandler{UoWFactory: factory})
	queries.RegisterHandler[reviewapp.ListListingReviewsQuery, dto.ReviewCollection](bus, reviewapp.ListListingReviewsQuery{}.Key(),
		&reviewapp.ListListingReviewsHandler{UoWFactory: factory, Logger: d.Logger})

	queries.RegisterHandler[walletapp.GetWalletQuery, dto.Wallet](bus, walletapp.GetWalletQuery{}.Key(),
		&walletapp.GetWalletHandler{UoWFactory: factory, Currency: cfg.Currency, Clock: d.Clock})
	queries.RegisterHandler[walletapp.ListPayoutsQuery, dto.PayoutCollection](bus, walletapp.ListPayoutsQuery{}.Key(),
		&walletapp.ListPayoutsHandler{UoWFactory: factory})

	queries.RegisterHandler[adminapp.StatsQuery, dto.AdminStats](bus, adminapp.StatsQuery{}.Key(),
		&adminapp.StatsHandler{UoWFactory: factory, Currency: cfg.Currency})
}

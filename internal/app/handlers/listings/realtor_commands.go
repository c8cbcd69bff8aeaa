package listings

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
	"shortlet/internal/app/uow"
	domainlistings "shortlet/internal/domain/listings"
	"shortlet/internal/domain/shared/money"
)

const (
	createListingKey  = "listings.create"
	publishListingKey = "listings.publish"
	suspendListingKey = "listings.suspend"
)

var (
	ErrListingNotOwned      = errors.New("listing: not owned by realtor")
	ErrUnsupportedCurrency  = errors.New("listing: currency not supported")
	errRealtorIDRequired    = errors.New("realtor id is required")
	errListingIDRequired    = errors.New("listing id is required")
	errSuspendReasonMissing = errors.New("suspension reason is required")
)

type ListingPayload struct {
	Title           string
	Description     string
	PropertyType    string
	Address         domainlistings.Address
	Amenities       []string
	GuestsLimit     int
	Bedrooms        int
	Bathrooms       int
	MinNights       int
	MaxNights       int
	Currency        string
	NightlyRate     int64
	CleaningFee     int64
	SecurityDeposit int64
}

type CreateListingCommand struct {
	RealtorID string
	Payload   ListingPayload
}

func (c CreateListingCommand) Key() string { return createListingKey }

func (c CreateListingCommand) ActorID() string { return c.RealtorID }

func (c CreateListingCommand) Validate() error {
	if strings.TrimSpace(c.RealtorID) == "" {
		return errRealtorIDRequired
	}
	return nil
}

type CreateListingHandler struct {
	Currency string
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Clock    handlersupport.Clock
	Logger   *slog.Logger
}

func (h *CreateListingHandler) Handle(ctx context.Context, cmd CreateListingCommand) (*dto.Listing, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	currency := strings.ToUpper(strings.TrimSpace(cmd.Payload.Currency))
	if currency == "" {
		currency = h.Currency
	}
	if h.Currency != "" && currency != h.Currency {
		return nil, ErrUnsupportedCurrency
	}
	nightly, err := money.New(cmd.Payload.NightlyRate, currency)
	if err != nil {
		return nil, err
	}

	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:              domainlistings.ListingID(uuid.NewString()),
		Realtor:         domainlistings.RealtorID(strings.TrimSpace(cmd.RealtorID)),
		Title:           cmd.Payload.Title,
		Description:     cmd.Payload.Description,
		PropertyType:    cmd.Payload.PropertyType,
		Address:         cmd.Payload.Address,
		Amenities:       cmd.Payload.Amenities,
		GuestsLimit:     cmd.Payload.GuestsLimit,
		Bedrooms:        cmd.Payload.Bedrooms,
		Bathrooms:       cmd.Payload.Bathrooms,
		MinNights:       cmd.Payload.MinNights,
		MaxNights:       cmd.Payload.MaxNights,
		NightlyRate:     nightly,
		CleaningFee:     money.Money{Amount: cmd.Payload.CleaningFee, Currency: currency},
		SecurityDeposit: money.Money{Amount: cmd.Payload.SecurityDeposit, Currency: currency},
		Now:             h.Clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	if err := handlersupport.RecordEvents(ctx, h.Outbox, h.Encoder, listing); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("listing created", "listing_id", listing.ID, "realtor_id", listing.Realtor)
	}
	result := dto.MapListing(listing)
	return &result, nil
}

type PublishListingCommand struct {
	RealtorID string
	ListingID string
}

func (c PublishListingCommand) Key() string { return publishListingKey }

func (c PublishListingCommand) ActorID() string { return c.RealtorID }

type PublishListingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   handlersupport.Clock
	Logger  *slog.Logger
}

func (h *PublishListingHandler) Handle(ctx context.Context, cmd PublishListingCommand) (*dto.Listing, error) {
	realtorID, err := handlersupport.RequireID(cmd.RealtorID, errRealtorIDRequired)
	if err != nil {
		return nil, err
	}
	listingID, err := handlersupport.RequireID(cmd.ListingID, errListingIDRequired)
	if err != nil {
		return nil, err
	}
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(listingID))
	if err != nil {
		return nil, err
	}
	if !listing.OwnedBy(domainlistings.RealtorID(realtorID)) {
		return nil, ErrListingNotOwned
	}
	if err := listing.Activate(h.Clock.Now()); err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	if err := handlersupport.RecordEvents(ctx, h.Outbox, h.Encoder, listing); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("listing published", "listing_id", listing.ID, "realtor_id", realtorID)
	}
	result := dto.MapListing(listing)
	return &result, nil
}

type SuspendListingCommand struct {
	AdminID   string
	ListingID string
	Reason    string
}

func (c SuspendListingCommand) Key() string { return suspendListingKey }

func (c SuspendListingCommand) Validate() error {
	if strings.TrimSpace(c.Reason) == "" {
		return errSuspendReasonMissing
	}
	return nil
}

type SuspendListingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   handlersupport.Clock
	Logger  *slog.Logger
}

func (h *SuspendListingHandler) Handle(ctx context.Context, cmd SuspendListingCommand) (*dto.Listing, error) {
	listingID, err := handlersupport.RequireID(cmd.ListingID, errListingIDRequired)
	if err != nil {
		return nil, err
	}
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(listingID))
	if err != nil {
		return nil, err
	}
	if err := listing.Suspend(h.Clock.Now(), cmd.Reason); err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	if err := handlersupport.RecordEvents(ctx, h.Outbox, h.Encoder, listing); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Warn("listing suspended", "listing_id", listing.ID, "admin_id", cmd.AdminID, "reason", cmd.Reason)
	}
	result := dto.MapListing(listing)
	return &result, nil
}

var _ commands.Handler[CreateListingCommand, *dto.Listing] = (*CreateListingHandler)(nil)
var _ commands.Handler[PublishListingCommand, *dto.Listing] = (*PublishListingHandler)(nil)
var _ commands.Handler[SuspendListingCommand, *dto.Listing] = (*SuspendListingHandler)(nil)

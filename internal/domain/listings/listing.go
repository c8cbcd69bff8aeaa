package listings

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"shortlet/internal/domain/shared/events"
	"shortlet/internal/domain/shared/money"
)

var (
	ErrGuestsLimit     = errors.New("listings: guests limit must be at least 1")
	ErrNightsRange     = errors.New("listings: min nights must be <= max nights")
	ErrInvalidState    = errors.New("listings: invalid state transition")
	ErrAddressRequired = errors.New("listings: address must be provided when activating")
	ErrTitleRequired   = errors.New("listings: title is required")
	ErrNightlyRate     = errors.New("listings: nightly rate must be positive")
	ErrNegativeFee     = errors.New("listings: fees cannot be negative")
	ErrListingNotFound = errors.New("listings: not found")
	ErrNotOwner        = errors.New("listings: listing belongs to another realtor")
)

type ListingID string
type RealtorID string

type ListingState string

const (
	ListingDraft     ListingState = "DRAFT"
	ListingActive    ListingState = "ACTIVE"
	ListingSuspended ListingState = "SUSPENDED"
)

type Address struct {
	Line1   string `json:"line1" bson:"line1"`
	City    string `json:"city" bson:"city"`
	Region  string `json:"region" bson:"region"`
	Country string `json:"country" bson:"country"`
}

func (a Address) Valid() bool {
	return strings.TrimSpace(a.Line1) != "" && strings.TrimSpace(a.City) != "" && strings.TrimSpace(a.Country) != ""
}

// Listing is a bookable property. All fees share the nightly rate currency.
type Listing struct {
	ID              ListingID
	Realtor         RealtorID
	Title           string
	Description     string
	PropertyType    string
	Address         Address
	Amenities       []string
	GuestsLimit     int
	Bedrooms        int
	Bathrooms       int
	MinNights       int
	MaxNights       int
	NightlyRate     money.Money
	CleaningFee     money.Money
	SecurityDeposit money.Money
	State           ListingState
	Rating          float64
	ReviewCount     int
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	events.EventRecorder
}

type ListingRepository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
}

type CreateListingParams struct {
	ID              ListingID
	Realtor         RealtorID
	Title           string
	Description     string
	PropertyType    string
	Address         Address
	Amenities       []string
	GuestsLimit     int
	Bedrooms        int
	Bathrooms       int
	MinNights       int
	MaxNights       int
	NightlyRate     money.Money
	CleaningFee     money.Money
	SecurityDeposit money.Money
	Now             time.Time
}

func NewListing(params CreateListingParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("listings: id is required")
	}
	if strings.TrimSpace(string(params.Realtor)) == "" {
		return nil, errors.New("listings: realtor is required")
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if params.GuestsLimit < 1 {
		return nil, ErrGuestsLimit
	}
	if params.MinNights <= 0 {
		params.MinNights = 1
	}
	if params.MaxNights <= 0 {
		params.MaxNights = 90
	}
	if params.MinNights > params.MaxNights {
		return nil, ErrNightsRange
	}
	if err := validatePricing(params.NightlyRate, params.CleaningFee, params.SecurityDeposit); err != nil {
		return nil, err
	}
	currency := params.NightlyRate.Currency
	now := params.Now.UTC()
	listing := &Listing{
		ID:              params.ID,
		Realtor:         params.Realtor,
		Title:           strings.TrimSpace(params.Title),
		Description:     strings.TrimSpace(params.Description),
		PropertyType:    strings.ToLower(strings.TrimSpace(params.PropertyType)),
		Address:         params.Address,
		Amenities:       normalizeTokens(params.Amenities),
		GuestsLimit:     params.GuestsLimit,
		Bedrooms:        params.Bedrooms,
		Bathrooms:       params.Bathrooms,
		MinNights:       params.MinNights,
		MaxNights:       params.MaxNights,
		NightlyRate:     params.NightlyRate,
		CleaningFee:     withCurrency(params.CleaningFee, currency),
		SecurityDeposit: withCurrency(params.SecurityDeposit, currency),
		State:           ListingDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	listing.Record(ListingCreatedEvent{ListingID: listing.ID, RealtorID: listing.Realtor, At: now})
	return listing, nil
}

func (l *Listing) Activate(now time.Time) error {
	if l.State == ListingActive {
		return nil
	}
	if !l.Address.Valid() {
		return ErrAddressRequired
	}
	if l.GuestsLimit < 1 {
		return ErrGuestsLimit
	}
	l.State = ListingActive
	l.UpdatedAt = now.UTC()
	l.Record(ListingActivatedEvent{ListingID: l.ID, RealtorID: l.Realtor, At: l.UpdatedAt})
	return nil
}

func (l *Listing) Suspend(now time.Time, reason string) error {
	if l.State != ListingActive {
		return ErrInvalidState
	}
	l.State = ListingSuspended
	l.UpdatedAt = now.UTC()
	l.Record(ListingSuspendedEvent{ListingID: l.ID, Reason: reason, At: l.UpdatedAt})
	return nil
}

func (l *Listing) UpdatePricing(nightly, cleaning, deposit money.Money, now time.Time) error {
	if err := validatePricing(nightly, cleaning, deposit); err != nil {
		return err
	}
	l.NightlyRate = nightly
	l.CleaningFee = withCurrency(cleaning, nightly.Currency)
	l.SecurityDeposit = withCurrency(deposit, nightly.Currency)
	l.UpdatedAt = now.UTC()
	return nil
}

// UpdateRating stores the recalculated average rounded to one decimal place.
func (l *Listing) UpdateRating(avg float64, count int, now time.Time) {
	l.Rating = math.Round(avg*10) / 10
	l.ReviewCount = count
	l.UpdatedAt = now.UTC()
}

func (l *Listing) OwnedBy(realtor RealtorID) bool {
	return l.Realtor == realtor
}

func (l *Listing) Bookable() bool {
	return l.State == ListingActive
}

func validatePricing(nightly, cleaning, deposit money.Money) error {
	if nightly.Amount <= 0 || nightly.Currency == "" {
		return ErrNightlyRate
	}
	if cleaning.Amount < 0 || deposit.Amount < 0 {
		return ErrNegativeFee
	}
	for _, fee := range []money.Money{cleaning, deposit} {
		if fee.Currency != "" && fee.Currency != nightly.Currency {
			return money.ErrCurrencyMismatch
		}
	}
	return nil
}

func withCurrency(m money.Money, currency string) money.Money {
	if m.Currency == "" {
		m.Currency = currency
	}
	return m
}

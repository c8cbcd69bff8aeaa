package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"shortlet/internal/domain/listings"
	"shortlet/internal/domain/shared/daterange"
	"shortlet/internal/domain/shared/money"
)

var (
	ErrListingUnavailable = errors.New("pricing: listing is not bookable")
	ErrGuestsExceeded     = errors.New("pricing: guests exceed listing capacity")
	ErrInvalidGuests      = errors.New("pricing: guests count must be positive")
	ErrStayTooShort       = errors.New("pricing: stay is shorter than the listing minimum")
	ErrStayTooLong        = errors.New("pricing: stay is longer than the listing maximum")
)

// FeePolicy holds the platform-wide fee settings applied to every quote.
type FeePolicy struct {
	// ServiceFeeRate is the guest-paid platform fee charged on the room fee.
	ServiceFeeRate decimal.Decimal
}

func DefaultFeePolicy() FeePolicy {
	return FeePolicy{ServiceFeeRate: decimal.RequireFromString("0.05")}
}

// PriceBreakdown is the amount a guest pays for a stay, split into the
// components that the escrow holds and releases independently.
type PriceBreakdown struct {
	Nights          int         `json:"nights" bson:"nights"`
	Nightly         money.Money `json:"nightly" bson:"nightly"`
	RoomFee         money.Money `json:"room_fee" bson:"room_fee"`
	CleaningFee     money.Money `json:"cleaning_fee" bson:"cleaning_fee"`
	SecurityDeposit money.Money `json:"security_deposit" bson:"security_deposit"`
	ServiceFee      money.Money `json:"service_fee" bson:"service_fee"`
	Total           money.Money `json:"total" bson:"total"`
}

func (p PriceBreakdown) Currency() string {
	return p.Nightly.Currency
}

// RecalculateTotal sums every component into Total.
func (p *PriceBreakdown) RecalculateTotal() error {
	total := money.Zero(p.Nightly.Currency)
	for _, part := range []money.Money{p.RoomFee, p.CleaningFee, p.SecurityDeposit, p.ServiceFee} {
		if part.Amount < 0 {
			return errors.New("pricing: components cannot be negative")
		}
		var err error
		if total, err = total.Add(part); err != nil {
			return err
		}
	}
	p.Total = total
	return nil
}

// Quote prices a stay at the listing for the given guest count.
func Quote(listing *listings.Listing, stay daterange.DateRange, guests int, policy FeePolicy) (PriceBreakdown, error) {
	if listing == nil || !listing.Bookable() {
		return PriceBreakdown{}, ErrListingUnavailable
	}
	if guests <= 0 {
		return PriceBreakdown{}, ErrInvalidGuests
	}
	if guests > listing.GuestsLimit {
		return PriceBreakdown{}, ErrGuestsExceeded
	}
	if err := stay.Validate(); err != nil {
		return PriceBreakdown{}, err
	}
	nights := stay.Nights()
	if nights < listing.MinNights || nights < 1 {
		return PriceBreakdown{}, ErrStayTooShort
	}
	if listing.MaxNights > 0 && nights > listing.MaxNights {
		return PriceBreakdown{}, ErrStayTooLong
	}
	room := listing.NightlyRate.Multiply(int64(nights))
	service, err := room.Percent(policy.ServiceFeeRate)
	if err != nil {
		return PriceBreakdown{}, err
	}
	breakdown := PriceBreakdown{
		Nights:          nights,
		Nightly:         listing.NightlyRate,
		RoomFee:         room,
		CleaningFee:     listing.CleaningFee,
		SecurityDeposit: listing.SecurityDeposit,
		ServiceFee:      service,
	}
	if err := breakdown.RecalculateTotal(); err != nil {
		return PriceBreakdown{}, err
	}
	return breakdown, nil
}

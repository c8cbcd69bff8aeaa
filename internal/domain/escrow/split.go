package escrow

import (
	"errors"

	"github.com/shopspring/decimal"

	"shortlet/internal/domain/shared/money"
)

var ErrInvalidShare = errors.New("escrow: realtor share must be between 0 and 1")

// FeeSplit divides the room fee between realtor and platform.
type FeeSplit struct {
	RealtorShare decimal.Decimal
}

func DefaultFeeSplit() FeeSplit {
	return FeeSplit{RealtorShare: decimal.RequireFromString("0.90")}
}

// Split returns the realtor and platform parts of amount. The platform gets
// the remainder so the parts always add up to amount.
func (s FeeSplit) Split(amount money.Money) (money.Money, money.Money, error) {
	if s.RealtorShare.IsNegative() || s.RealtorShare.GreaterThan(decimal.NewFromInt(1)) {
		return money.Money{}, money.Money{}, ErrInvalidShare
	}
	realtor, err := amount.Percent(s.RealtorShare)
	if err != nil {
		return money.Money{}, money.Money{}, err
	}
	platform, err := amount.Sub(realtor)
	if err != nil {
		return money.Money{}, money.Money{}, err
	}
	return realtor, platform, nil
}

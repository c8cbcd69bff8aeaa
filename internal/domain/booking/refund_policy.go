package booking

import (
	"time"

	"github.com/shopspring/decimal"

	"shortlet/internal/domain/pricing"
	"shortlet/internal/domain/shared/money"
)

// RefundTier classifies a guest cancellation by how long before check-in it happened.
type RefundTier string

const (
	TierEarly  RefundTier = "EARLY"
	TierMedium RefundTier = "MEDIUM"
	TierLate   RefundTier = "LATE"
	TierNone   RefundTier = "NONE"
	// TierFull is used when the realtor or an admin cancels.
	TierFull RefundTier = "FULL"
)

// RefundPolicy maps hours-until-check-in to the share of the room fee returned.
type RefundPolicy struct {
	EarlyHours    int
	MediumHours   int
	EarlyPercent  int
	MediumPercent int
	LatePercent   int
}

func DefaultRefundPolicy() RefundPolicy {
	return RefundPolicy{
		EarlyHours:    72,
		MediumHours:   24,
		EarlyPercent:  100,
		MediumPercent: 50,
		LatePercent:   25,
	}
}

// RefundQuote itemises what a cancelling guest gets back. Everything not
// refunded stays in escrow and is split between realtor and platform.
type RefundQuote struct {
	Tier     RefundTier  `json:"tier" bson:"tier"`
	Percent  int         `json:"percent" bson:"percent"`
	Room     money.Money `json:"room" bson:"room"`
	Cleaning money.Money `json:"cleaning" bson:"cleaning"`
	Deposit  money.Money `json:"deposit" bson:"deposit"`
	Service  money.Money `json:"service" bson:"service"`
	Total    money.Money `json:"total" bson:"total"`
}

// Classify picks the tier for a cancellation made at now.
func (p RefundPolicy) Classify(now, checkIn time.Time) RefundTier {
	hours := checkIn.Sub(now).Hours()
	switch {
	case hours >= float64(p.EarlyHours):
		return TierEarly
	case hours >= float64(p.MediumHours):
		return TierMedium
	case hours > 0:
		return TierLate
	default:
		return TierNone
	}
}

func (p RefundPolicy) percentFor(tier RefundTier) int {
	switch tier {
	case TierEarly:
		return clampPercent(p.EarlyPercent)
	case TierMedium:
		return clampPercent(p.MediumPercent)
	case TierLate:
		return clampPercent(p.LatePercent)
	case TierFull:
		return 100
	default:
		return 0
	}
}

// GuestQuote computes the refund for a guest-initiated cancellation. The
// cleaning fee is returned whenever the stay has not started, the deposit is
// always returned, and the service fee is never refunded.
func (p RefundPolicy) GuestQuote(price pricing.PriceBreakdown, now, checkIn time.Time) RefundQuote {
	tier := p.Classify(now, checkIn)
	percent := p.percentFor(tier)
	currency := price.Currency()
	room := percentOf(price.RoomFee, percent)
	cleaning := money.Zero(currency)
	if tier != TierNone {
		cleaning = price.CleaningFee
	}
	q := RefundQuote{
		Tier:     tier,
		Percent:  percent,
		Room:     room,
		Cleaning: cleaning,
		Deposit:  price.SecurityDeposit,
		Service:  money.Zero(currency),
	}
	q.Total = sum(currency, q.Room, q.Cleaning, q.Deposit, q.Service)
	return q
}

// FullRefund returns everything the guest paid.
func FullRefund(price pricing.PriceBreakdown) RefundQuote {
	q := RefundQuote{
		Tier:     TierFull,
		Percent:  100,
		Room:     price.RoomFee,
		Cleaning: price.CleaningFee,
		Deposit:  price.SecurityDeposit,
		Service:  price.ServiceFee,
	}
	q.Total = sum(price.Currency(), q.Room, q.Cleaning, q.Deposit, q.Service)
	return q
}

func percentOf(total money.Money, percent int) money.Money {
	if percent <= 0 {
		return money.Zero(total.Currency)
	}
	out, err := total.Percent(decimal.New(int64(clampPercent(percent)), -2))
	if err != nil {
		return money.Zero(total.Currency)
	}
	return out
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func sum(currency string, parts ...money.Money) money.Money {
	total := money.Zero(currency)
	for _, part := range parts {
		total.Amount += part.Amount
	}
	return total
}

func zeroOf(price pricing.PriceBreakdown) money.Money {
	return money.Zero(price.Currency())
}

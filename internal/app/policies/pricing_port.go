package policies

import (
	"context"

	domainlistings "shortlet/internal/domain/listings"
	domainpricing "shortlet/internal/domain/pricing"
	domainrange "shortlet/internal/domain/shared/daterange"
)

// QuoteRequest describes the stay being priced.
type QuoteRequest struct {
	Listing *domainlistings.Listing
	Stay    domainrange.DateRange
	Guests  int
}

// PricingPort prices a stay: nightly room fee, cleaning fee, refundable
// deposit and the platform service fee. A booking keeps the breakdown it was
// quoted; later rate changes never reprice it.
type PricingPort interface {
	Quote(ctx context.Context, req QuoteRequest) (domainpricing.PriceBreakdown, error)
}

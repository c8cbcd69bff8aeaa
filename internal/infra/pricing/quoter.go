package pricing

import (
	"context"

	"shortlet/internal/app/policies"
	domainlistings "shortlet/internal/domain/listings"
	domainpricing "shortlet/internal/domain/pricing"
)

// FeeQuoter prices stays from the listing's own rates plus the platform
// service fee.
type FeeQuoter struct {
	Policy domainpricing.FeePolicy
}

func NewFeeQuoter(policy domainpricing.FeePolicy) FeeQuoter {
	if policy.ServiceFeeRate.IsNegative() {
		policy = domainpricing.DefaultFeePolicy()
	}
	return FeeQuoter{Policy: policy}
}

func (q FeeQuoter) Quote(ctx context.Context, req policies.QuoteRequest) (domainpricing.PriceBreakdown, error) {
	if err := ctx.Err(); err != nil {
		return domainpricing.PriceBreakdown{}, err
	}
	if req.Listing == nil {
		return domainpricing.PriceBreakdown{}, domainlistings.ErrListingNotFound
	}
	return domainpricing.Quote(req.Listing, req.Stay, req.Guests, q.Policy)
}

var _ policies.PricingPort = FeeQuoter{}

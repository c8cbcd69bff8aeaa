package memory

import (
	domainbooking "shortlet/internal/domain/booking"
	domaindisputes "shortlet/internal/domain/disputes"
	domainescrow "shortlet/internal/domain/escrow"
	domainlistings "shortlet/internal/domain/listings"
	domainpayments "shortlet/internal/domain/payments"
	domainreviews "shortlet/internal/domain/reviews"
	domainwallet "shortlet/internal/domain/wallet"
)

// Clones never carry pending events: those belong to the caller's copy.

func cloneListing(l *domainlistings.Listing) *domainlistings.Listing {
	c := *l
	c.ClearEvents()
	c.Amenities = append([]string(nil), l.Amenities...)
	return &c
}

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	c := *b
	c.ClearEvents()
	if b.Cancellation != nil {
		cancellation := *b.Cancellation
		c.Cancellation = &cancellation
	}
	return &c
}

func cloneEscrow(e *domainescrow.Escrow) *domainescrow.Escrow {
	c := *e
	c.ClearEvents()
	c.Entries = append([]domainescrow.LedgerEntry(nil), e.Entries...)
	if e.Dispute != nil {
		dispute := *e.Dispute
		c.Dispute = &dispute
	}
	return &c
}

func clonePayment(p *domainpayments.Payment) *domainpayments.Payment {
	c := *p
	c.ClearEvents()
	return &c
}

func cloneDispute(d *domaindisputes.Dispute) *domaindisputes.Dispute {
	c := *d
	c.ClearEvents()
	if d.Resolution != nil {
		resolution := *d.Resolution
		c.Resolution = &resolution
	}
	return &c
}

func cloneWallet(w *domainwallet.Wallet) *domainwallet.Wallet {
	c := *w
	c.ClearEvents()
	c.AppliedKeys = append([]string(nil), w.AppliedKeys...)
	return &c
}

func clonePayout(p *domainwallet.Payout) *domainwallet.Payout {
	c := *p
	c.ClearEvents()
	return &c
}

func cloneReview(r *domainreviews.Review) *domainreviews.Review {
	c := *r
	c.ClearEvents()
	return &c
}

package memory

import (
	"context"
	"sort"
	"strings"

	domainbooking "shortlet/internal/domain/booking"
	domaindisputes "shortlet/internal/domain/disputes"
	domainescrow "shortlet/internal/domain/escrow"
	domainlistings "shortlet/internal/domain/listings"
	domainpayments "shortlet/internal/domain/payments"
	domainreviews "shortlet/internal/domain/reviews"
	domainwallet "shortlet/internal/domain/wallet"
)

type listingRow struct{ v *domainlistings.Listing }

func (r listingRow) version() int64 { return r.v.Version }

type bookingRow struct{ v *domainbooking.Booking }

func (r bookingRow) version() int64 { return r.v.Version }

type escrowRow struct{ v *domainescrow.Escrow }

func (r escrowRow) version() int64 { return r.v.Version }

type paymentRow struct{ v *domainpayments.Payment }

func (r paymentRow) version() int64 { return r.v.Version }

type disputeRow struct{ v *domaindisputes.Dispute }

func (r disputeRow) version() int64 { return r.v.Version }

type walletRow struct{ v *domainwallet.Wallet }

func (r walletRow) version() int64 { return r.v.Version }

type payoutRow struct{ v *domainwallet.Payout }

func (r payoutRow) version() int64 { return r.v.Version }

type reviewRow struct{ v *domainreviews.Review }

func (r reviewRow) version() int64 { return 0 }

// ListingRepository is the in-memory listing store seen through one unit.
type ListingRepository struct {
	rows *staged[string, listingRow]
}

func (r ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	row, ok := r.rows.get(string(id))
	if !ok {
		return nil, domainlistings.ErrListingNotFound
	}
	return cloneListing(row.v), nil
}

func (r ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	next := cloneListing(listing)
	next.Version = listing.Version + 1
	if err := r.rows.put(string(listing.ID), listing.Version, listingRow{next}); err != nil {
		return err
	}
	listing.Version = next.Version
	return nil
}

// Search returns listings that satisfy provided filters.
func (r ListingRepository) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	opts := params.Normalized()
	matches := make([]*domainlistings.Listing, 0)
	for _, row := range r.rows.all() {
		if err := ctx.Err(); err != nil {
			return domainlistings.SearchResult{}, err
		}
		if opts.Matches(row.v) {
			matches = append(matches, row.v)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		switch opts.Sort {
		case domainlistings.SortByPriceDesc:
			if a.NightlyRate.Amount != b.NightlyRate.Amount {
				return a.NightlyRate.Amount > b.NightlyRate.Amount
			}
		case domainlistings.SortByRating:
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
		case domainlistings.SortByNewest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		default:
			if a.NightlyRate.Amount != b.NightlyRate.Amount {
				return a.NightlyRate.Amount < b.NightlyRate.Amount
			}
		}
		return a.ID < b.ID
	})

	total := len(matches)
	start := min(opts.Offset, total)
	end := min(start+opts.Limit, total)
	items := make([]*domainlistings.Listing, 0, end-start)
	for _, l := range matches[start:end] {
		items = append(items, cloneListing(l))
	}
	return domainlistings.SearchResult{Items: items, Total: total}, nil
}

type BookingRepository struct {
	rows *staged[string, bookingRow]
}

func (r BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	row, ok := r.rows.get(string(id))
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return cloneBooking(row.v), nil
}

func (r BookingRepository) Save(ctx context.Context, booking *domainbooking.Booking) error {
	next := cloneBooking(booking)
	next.Version = booking.Version + 1
	if err := r.rows.put(string(booking.ID), booking.Version, bookingRow{next}); err != nil {
		return err
	}
	booking.Version = next.Version
	return nil
}

// Find returns matching bookings, newest first.
func (r BookingRepository) Find(ctx context.Context, filter domainbooking.Filter) ([]*domainbooking.Booking, error) {
	var out []*domainbooking.Booking
	for _, row := range r.rows.all() {
		if filter.Matches(row.v) {
			out = append(out, row.v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return cloneLimited(out, filter.Limit, cloneBooking), nil
}

type EscrowRepository struct {
	rows *staged[string, escrowRow]
}

func (r EscrowRepository) ByBookingID(ctx context.Context, bookingID string) (*domainescrow.Escrow, error) {
	row, ok := r.rows.get(bookingID)
	if !ok {
		return nil, domainescrow.ErrEscrowNotFound
	}
	return cloneEscrow(row.v), nil
}

func (r EscrowRepository) Save(ctx context.Context, escrow *domainescrow.Escrow) error {
	next := cloneEscrow(escrow)
	next.Version = escrow.Version + 1
	if err := r.rows.put(escrow.BookingID, escrow.Version, escrowRow{next}); err != nil {
		return err
	}
	escrow.Version = next.Version
	return nil
}

func (r EscrowRepository) Find(ctx context.Context, filter domainescrow.Filter) ([]*domainescrow.Escrow, error) {
	var out []*domainescrow.Escrow
	for _, row := range r.rows.all() {
		if filter.Matches(row.v) {
			out = append(out, row.v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].BookingID < out[j].BookingID
	})
	return cloneLimited(out, filter.Limit, cloneEscrow), nil
}

type PaymentRepository struct {
	rows *staged[string, paymentRow]
}

func (r PaymentRepository) ByReference(ctx context.Context, reference string) (*domainpayments.Payment, error) {
	row, ok := r.rows.get(strings.TrimSpace(reference))
	if !ok {
		return nil, domainpayments.ErrPaymentNotFound
	}
	return clonePayment(row.v), nil
}

// ByBooking returns every payment attempt for the booking, oldest first.
func (r PaymentRepository) ByBooking(ctx context.Context, bookingID string) ([]*domainpayments.Payment, error) {
	var out []*domainpayments.Payment
	for _, row := range r.rows.all() {
		if row.v.BookingID == bookingID {
			out = append(out, row.v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return cloneLimited(out, 0, clonePayment), nil
}

func (r PaymentRepository) Save(ctx context.Context, payment *domainpayments.Payment) error {
	next := clonePayment(payment)
	next.Version = payment.Version + 1
	if err := r.rows.put(payment.Reference, payment.Version, paymentRow{next}); err != nil {
		return err
	}
	payment.Version = next.Version
	return nil
}

type DisputeRepository struct {
	rows *staged[string, disputeRow]
}

func (r DisputeRepository) ByID(ctx context.Context, id domaindisputes.ID) (*domaindisputes.Dispute, error) {
	row, ok := r.rows.get(string(id))
	if !ok {
		return nil, domaindisputes.ErrDisputeNotFound
	}
	return cloneDispute(row.v), nil
}

func (r DisputeRepository) Save(ctx context.Context, dispute *domaindisputes.Dispute) error {
	next := cloneDispute(dispute)
	next.Version = dispute.Version + 1
	if err := r.rows.put(string(dispute.ID), dispute.Version, disputeRow{next}); err != nil {
		return err
	}
	dispute.Version = next.Version
	return nil
}

func (r DisputeRepository) Find(ctx context.Context, filter domaindisputes.Filter) ([]*domaindisputes.Dispute, error) {
	var out []*domaindisputes.Dispute
	for _, row := range r.rows.all() {
		if filter.Matches(row.v) {
			out = append(out, row.v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return cloneLimited(out, filter.Limit, cloneDispute), nil
}

type WalletRepository struct {
	rows *staged[string, walletRow]
}

func (r WalletRepository) ByOwner(ctx context.Context, ownerID string) (*domainwallet.Wallet, error) {
	row, ok := r.rows.get(ownerID)
	if !ok {
		return nil, domainwallet.ErrWalletNotFound
	}
	return cloneWallet(row.v), nil
}

func (r WalletRepository) Save(ctx context.Context, wallet *domainwallet.Wallet) error {
	next := cloneWallet(wallet)
	next.Version = wallet.Version + 1
	if err := r.rows.put(wallet.OwnerID, wallet.Version, walletRow{next}); err != nil {
		return err
	}
	wallet.Version = next.Version
	return nil
}

type PayoutRepository struct {
	rows *staged[string, payoutRow]
}

func (r PayoutRepository) ByID(ctx context.Context, id string) (*domainwallet.Payout, error) {
	row, ok := r.rows.get(id)
	if !ok {
		return nil, domainwallet.ErrPayoutNotFound
	}
	return clonePayout(row.v), nil
}

func (r PayoutRepository) Save(ctx context.Context, payout *domainwallet.Payout) error {
	next := clonePayout(payout)
	next.Version = payout.Version + 1
	if err := r.rows.put(payout.ID, payout.Version, payoutRow{next}); err != nil {
		return err
	}
	payout.Version = next.Version
	return nil
}

func (r PayoutRepository) ListByRealtor(ctx context.Context, realtorID string, limit int) ([]*domainwallet.Payout, error) {
	return r.list(func(p *domainwallet.Payout) bool { return p.RealtorID == realtorID }, limit), nil
}

func (r PayoutRepository) ListPending(ctx context.Context, limit int) ([]*domainwallet.Payout, error) {
	return r.list(func(p *domainwallet.Payout) bool { return p.Status == domainwallet.PayoutPending }, limit), nil
}

func (r PayoutRepository) list(keep func(*domainwallet.Payout) bool, limit int) []*domainwallet.Payout {
	var out []*domainwallet.Payout
	for _, row := range r.rows.all() {
		if keep(row.v) {
			out = append(out, row.v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return cloneLimited(out, limit, clonePayout)
}

type ReviewRepository struct {
	rows *staged[string, reviewRow]
}

func (r ReviewRepository) ByBooking(ctx context.Context, bookingID domainbooking.BookingID) (*domainreviews.Review, error) {
	for _, row := range r.rows.all() {
		if row.v.BookingID == bookingID {
			return cloneReview(row.v), nil
		}
	}
	return nil, domainreviews.ErrNotFound
}

// ListByListing returns reviews newest first. A zero limit returns all of them.
func (r ReviewRepository) ListByListing(ctx context.Context, listingID domainlistings.ListingID, limit, offset int) ([]*domainreviews.Review, error) {
	var out []*domainreviews.Review
	for _, row := range r.rows.all() {
		if row.v.ListingID == listingID {
			out = append(out, row.v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	offset = min(max(offset, 0), len(out))
	return cloneLimited(out[offset:], limit, cloneReview), nil
}

func (r ReviewRepository) Save(ctx context.Context, review *domainreviews.Review) error {
	return r.rows.put(string(review.ID), 0, reviewRow{cloneReview(review)})
}

func cloneLimited[T any](items []T, limit int, clone func(T) T) []T {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		out = append(out, clone(item))
	}
	return out
}

var (
	_ domainlistings.ListingRepository = ListingRepository{}
	_ domainbooking.Repository         = BookingRepository{}
	_ domainescrow.Repository          = EscrowRepository{}
	_ domainpayments.Repository        = PaymentRepository{}
	_ domaindisputes.Repository        = DisputeRepository{}
	_ domainwallet.Repository          = WalletRepository{}
	_ domainwallet.PayoutRepository    = PayoutRepository{}
	_ domainreviews.Repository         = ReviewRepository{}
)

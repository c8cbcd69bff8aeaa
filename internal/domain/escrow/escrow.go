// Package escrow models the funds a guest pays for a booking between payment
// and settlement. Money leaves the escrow only through ledger entries, which
// keeps every release and refund bounded by what was actually funded.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shortlet/internal/domain/pricing"
	"shortlet/internal/domain/shared/events"
	"shortlet/internal/domain/shared/money"
)

var (
	ErrEscrowNotFound      = errors.New("escrow: not found")
	ErrInvalidState        = errors.New("escrow: invalid state transition")
	ErrAmountMismatch      = errors.New("escrow: funded amount does not match expected total")
	ErrPaymentRefMismatch  = errors.New("escrow: already funded by another payment")
	ErrHoldPeriodActive    = errors.New("escrow: hold period has not elapsed")
	ErrAlreadyReleased     = errors.New("escrow: funds already released")
	ErrOverAllocation      = errors.New("escrow: allocation exceeds funded amount")
	ErrRefundExceedsPaid   = errors.New("escrow: refund exceeds amount paid for component")
	ErrDisputeOpen         = errors.New("escrow: a dispute is already open")
	ErrDisputeWindowClosed = errors.New("escrow: dispute window is closed")
	ErrNoOpenDispute       = errors.New("escrow: no open dispute")
	ErrAwardTooLarge       = errors.New("escrow: award exceeds disputed amount")
	ErrEntryNotFound       = errors.New("escrow: ledger entry not found")
	ErrDisputeMismatch     = errors.New("escrow: dispute is not the one open on this escrow")
)

type State string

const (
	StatePending           State = "PENDING"
	StateHeld              State = "ESCROW_HELD"
	StatePartiallyReleased State = "PARTIALLY_RELEASED"
	StateSettled           State = "SETTLED"
	StateRefunded          State = "REFUNDED"
	StateDisputed          State = "DISPUTED"
	StateVoided            State = "VOIDED"
)

// Holds are the waiting periods before each bucket may be released. They
// double as the dispute windows for guest and realtor respectively.
type Holds struct {
	Stay    time.Duration `json:"stay" bson:"stay"`
	Deposit time.Duration `json:"deposit" bson:"deposit"`
}

func DefaultHolds() Holds {
	return Holds{Stay: 24 * time.Hour, Deposit: 48 * time.Hour}
}

// Dispute is the escrow-side view of an open dispute.
type Dispute struct {
	ID       string    `json:"id" bson:"id"`
	Party    Party     `json:"party" bson:"party"`
	Prior    State     `json:"prior" bson:"prior"`
	OpenedAt time.Time `json:"opened_at" bson:"opened_at"`
}

type Escrow struct {
	BookingID        string
	GuestID          string
	RealtorID        string
	Price            pricing.PriceBreakdown
	Funded           money.Money
	PaymentReference string
	State            State
	CheckIn          time.Time
	CheckOut         time.Time
	Holds            Holds
	StayClosed       bool
	DepositClosed    bool
	Cancelled        bool
	Dispute          *Dispute
	Entries          []LedgerEntry
	FundedAt         time.Time
	ClosedAt         time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Version          int64
	events.EventRecorder
}

// Filter narrows escrow lookups for jobs and admin views.
type Filter struct {
	States         []State
	PendingEntries bool
	// DueBy keeps escrows with a bucket whose hold period is over at that time.
	DueBy time.Time
	Limit int
}

func (f Filter) Matches(e *Escrow) bool {
	if f.PendingEntries && !e.HasPendingEntries() {
		return false
	}
	if !f.DueBy.IsZero() && !e.StayDue(f.DueBy) && !e.DepositDue(f.DueBy) {
		return false
	}
	if len(f.States) == 0 {
		return true
	}
	for _, s := range f.States {
		if e.State == s {
			return true
		}
	}
	return false
}

type Repository interface {
	ByBookingID(ctx context.Context, bookingID string) (*Escrow, error)
	Save(ctx context.Context, escrow *Escrow) error
	Find(ctx context.Context, filter Filter) ([]*Escrow, error)
}

type CreateParams struct {
	BookingID string
	GuestID   string
	RealtorID string
	Price     pricing.PriceBreakdown
	CheckIn   time.Time
	CheckOut  time.Time
	Holds     Holds
	Now       time.Time
}

func New(params CreateParams) (*Escrow, error) {
	if params.BookingID == "" {
		return nil, errors.New("escrow: booking id required")
	}
	if params.Price.Total.Amount <= 0 {
		return nil, errors.New("escrow: expected total must be positive")
	}
	holds := params.Holds
	if holds == (Holds{}) {
		holds = DefaultHolds()
	}
	now := params.Now.UTC()
	return &Escrow{
		BookingID: params.BookingID,
		GuestID:   params.GuestID,
		RealtorID: params.RealtorID,
		Price:     params.Price,
		Funded:    money.Zero(params.Price.Currency()),
		State:     StatePending,
		CheckIn:   params.CheckIn.UTC(),
		CheckOut:  params.CheckOut.UTC(),
		Holds:     holds,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (e *Escrow) Currency() string {
	return e.Price.Currency()
}

// StayReleaseAt is when the guest dispute window closes and the stay bucket may be released.
func (e *Escrow) StayReleaseAt() time.Time {
	return e.CheckIn.Add(e.Holds.Stay)
}

// DepositReleaseAt is when the realtor dispute window closes and the deposit may be returned.
func (e *Escrow) DepositReleaseAt() time.Time {
	return e.CheckOut.Add(e.Holds.Deposit)
}

// MarkFunded records the verified guest payment. Funding a voided escrow is
// allowed so a late payment can be refunded through the ledger.
func (e *Escrow) MarkFunded(amount money.Money, paymentRef string, now time.Time) error {
	if e.PaymentReference != "" {
		if e.PaymentReference == paymentRef {
			return nil
		}
		return ErrPaymentRefMismatch
	}
	if e.State != StatePending && e.State != StateVoided {
		return ErrInvalidState
	}
	if amount != e.Price.Total {
		return ErrAmountMismatch
	}
	e.Funded = amount
	e.PaymentReference = paymentRef
	e.State = StateHeld
	e.FundedAt = now.UTC()
	e.ClosedAt = time.Time{}
	e.touch(now)
	e.Record(EscrowFunded{BookingID: e.BookingID, Amount: amount, PaymentReference: paymentRef, At: e.UpdatedAt})
	return nil
}

// RecordCheckOut moves the deposit window to the actual check-out time.
func (e *Escrow) RecordCheckOut(at time.Time) {
	if at.IsZero() || e.DepositClosed {
		return
	}
	e.CheckOut = at.UTC()
}

// StayDue reports whether ReleaseStay would succeed at now.
func (e *Escrow) StayDue(now time.Time) bool {
	return e.State == StateHeld && !e.StayClosed && !now.Before(e.StayReleaseAt())
}

// DepositDue reports whether ReleaseDeposit would succeed at now.
func (e *Escrow) DepositDue(now time.Time) bool {
	return e.State == StatePartiallyReleased && !e.DepositClosed && !now.Before(e.DepositReleaseAt())
}

// ReleaseStay pays out the stay bucket once the guest dispute window is over.
func (e *Escrow) ReleaseStay(now time.Time, split FeeSplit) ([]LedgerEntry, error) {
	if e.StayClosed {
		return nil, ErrAlreadyReleased
	}
	if e.State != StateHeld {
		return nil, ErrInvalidState
	}
	if now.Before(e.StayReleaseAt()) {
		return nil, ErrHoldPeriodActive
	}
	created, err := e.releaseStayRemainder(e.Price.RoomFee, e.Price.CleaningFee, split, now)
	if err != nil {
		return nil, err
	}
	e.StayClosed = true
	e.reconcile(now)
	e.Record(StayReleased{BookingID: e.BookingID, Realtor: sumFor(created, PartyRealtor, e.Currency()), Platform: sumFor(created, PartyPlatform, e.Currency()), At: e.UpdatedAt})
	return created, nil
}

// ReleaseDeposit schedules the return of the security deposit to the guest.
func (e *Escrow) ReleaseDeposit(now time.Time) ([]LedgerEntry, error) {
	if e.DepositClosed {
		return nil, ErrAlreadyReleased
	}
	if e.State != StatePartiallyReleased {
		return nil, ErrInvalidState
	}
	if now.Before(e.DepositReleaseAt()) {
		return nil, ErrHoldPeriodActive
	}
	entry, err := e.addEntry(KindDepositReturn, PartyGuest, e.Price.SecurityDeposit, now)
	if err != nil {
		return nil, err
	}
	e.DepositClosed = true
	e.reconcile(now)
	e.Record(DepositReleased{BookingID: e.BookingID, Amount: e.Price.SecurityDeposit, At: e.UpdatedAt})
	return compact(entry), nil
}

// Refund is the guest's share of each price component on cancellation.
type Refund struct {
	Room     money.Money
	Cleaning money.Money
	Deposit  money.Money
	Service  money.Money
}

func (r Refund) Total(currency string) money.Money {
	return money.Money{Amount: r.Room.Amount + r.Cleaning.Amount + r.Deposit.Amount + r.Service.Amount, Currency: currency}
}

// RefundCancellation closes the escrow for a cancelled booking: the guest gets
// the refund and whatever is retained goes to the realtor and platform.
func (e *Escrow) RefundCancellation(refund Refund, split FeeSplit, now time.Time) ([]LedgerEntry, error) {
	if e.StayClosed || e.DepositClosed {
		return nil, ErrAlreadyReleased
	}
	if e.State != StateHeld {
		return nil, ErrInvalidState
	}
	parts := []struct{ refund, paid money.Money }{
		{refund.Room, e.Price.RoomFee},
		{refund.Cleaning, e.Price.CleaningFee},
		{refund.Deposit, e.Price.SecurityDeposit},
		{refund.Service, e.Price.ServiceFee},
	}
	for _, p := range parts {
		if p.refund.Amount < 0 || p.refund.Amount > p.paid.Amount {
			return nil, ErrRefundExceedsPaid
		}
	}
	currency := e.Currency()
	var created []LedgerEntry
	guest, err := e.addEntry(KindCancellationRefund, PartyGuest, refund.Total(currency), now)
	if err != nil {
		return nil, err
	}
	created = append(created, compact(guest)...)
	retainedRoom := money.Money{Amount: e.Price.RoomFee.Amount - refund.Room.Amount, Currency: currency}
	retainedCleaning := money.Money{Amount: e.Price.CleaningFee.Amount - refund.Cleaning.Amount, Currency: currency}
	retainedService := money.Money{Amount: e.Price.ServiceFee.Amount - refund.Service.Amount, Currency: currency}
	retainedDeposit := money.Money{Amount: e.Price.SecurityDeposit.Amount - refund.Deposit.Amount, Currency: currency}
	rest, err := e.allocateRetained(retainedRoom, retainedCleaning, retainedService, split, now)
	if err != nil {
		return nil, err
	}
	created = append(created, rest...)
	claim, err := e.addEntry(KindDepositClaim, PartyRealtor, retainedDeposit, now)
	if err != nil {
		return nil, err
	}
	created = append(created, compact(claim)...)
	e.StayClosed = true
	e.DepositClosed = true
	e.Cancelled = true
	e.reconcile(now)
	e.Record(RefundScheduled{BookingID: e.BookingID, Amount: refund.Total(currency), Reason: string(KindCancellationRefund), At: e.UpdatedAt})
	return created, nil
}

// OpenDispute freezes the escrow. A guest may dispute the stay from check-in
// until the stay is released; a realtor may claim against the deposit from
// check-out until the deposit is released.
func (e *Escrow) OpenDispute(id string, party Party, now time.Time) error {
	if e.Dispute != nil || e.State == StateDisputed {
		return ErrDisputeOpen
	}
	switch party {
	case PartyGuest:
		if e.State != StateHeld || e.StayClosed {
			return ErrInvalidState
		}
		if now.Before(e.CheckIn) || !now.Before(e.StayReleaseAt()) {
			return ErrDisputeWindowClosed
		}
	case PartyRealtor:
		if (e.State != StateHeld && e.State != StatePartiallyReleased) || e.DepositClosed {
			return ErrInvalidState
		}
		if now.Before(e.CheckOut) || !now.Before(e.DepositReleaseAt()) {
			return ErrDisputeWindowClosed
		}
	default:
		return fmt.Errorf("escrow: party %q cannot open a dispute", party)
	}
	e.Dispute = &Dispute{ID: id, Party: party, Prior: e.State, OpenedAt: now.UTC()}
	e.State = StateDisputed
	e.touch(now)
	e.Record(EscrowDisputed{BookingID: e.BookingID, DisputeID: id, Party: party, At: e.UpdatedAt})
	return nil
}

// ResolveDispute applies an admin decision. For a guest dispute the award is
// refunded to the guest out of the room and cleaning fees; for a realtor
// dispute the award is paid to the realtor out of the deposit.
func (e *Escrow) ResolveDispute(disputeID string, award money.Money, split FeeSplit, now time.Time) ([]LedgerEntry, error) {
	if e.State != StateDisputed || e.Dispute == nil {
		return nil, ErrNoOpenDispute
	}
	if e.Dispute.ID != disputeID {
		return nil, ErrDisputeMismatch
	}
	if award.Amount < 0 {
		return nil, ErrAwardTooLarge
	}
	currency := e.Currency()
	award.Currency = currency
	var created []LedgerEntry
	switch e.Dispute.Party {
	case PartyGuest:
		disputed := e.Price.RoomFee.Amount + e.Price.CleaningFee.Amount
		if award.Amount > disputed {
			return nil, ErrAwardTooLarge
		}
		refund, err := e.addEntry(KindDisputeRefund, PartyGuest, award, now)
		if err != nil {
			return nil, err
		}
		created = append(created, compact(refund)...)
		fromRoom := min(award.Amount, e.Price.RoomFee.Amount)
		fromCleaning := award.Amount - fromRoom
		room := money.Money{Amount: e.Price.RoomFee.Amount - fromRoom, Currency: currency}
		cleaning := money.Money{Amount: e.Price.CleaningFee.Amount - fromCleaning, Currency: currency}
		rest, err := e.releaseStayRemainder(room, cleaning, split, now)
		if err != nil {
			return nil, err
		}
		created = append(created, rest...)
		e.StayClosed = true
	case PartyRealtor:
		if award.Amount > e.Price.SecurityDeposit.Amount {
			return nil, ErrAwardTooLarge
		}
		claim, err := e.addEntry(KindDepositClaim, PartyRealtor, award, now)
		if err != nil {
			return nil, err
		}
		back := money.Money{Amount: e.Price.SecurityDeposit.Amount - award.Amount, Currency: currency}
		ret, err := e.addEntry(KindDepositReturn, PartyGuest, back, now)
		if err != nil {
			return nil, err
		}
		created = append(created, compact(claim)...)
		created = append(created, compact(ret)...)
		e.DepositClosed = true
	}
	resolved := e.Dispute
	e.Dispute = nil
	e.State = resolved.Prior
	e.reconcile(now)
	e.Record(DisputeResolved{BookingID: e.BookingID, DisputeID: resolved.ID, Party: resolved.Party, Award: award, At: e.UpdatedAt})
	return created, nil
}

// Void closes an escrow that was never funded.
func (e *Escrow) Void(now time.Time) error {
	if e.State == StateVoided {
		return nil
	}
	if e.State != StatePending {
		return ErrInvalidState
	}
	e.State = StateVoided
	e.ClosedAt = now.UTC()
	e.touch(now)
	e.Record(EscrowVoided{BookingID: e.BookingID, At: e.UpdatedAt})
	return nil
}

// Closed reports whether every bucket is accounted for and no refund is in flight.
func (e *Escrow) Closed() bool {
	switch e.State {
	case StateSettled, StateRefunded, StateVoided:
		return true
	default:
		return false
	}
}

// AwaitingRefunds reports an escrow whose buckets are closed while a guest
// refund is still pending at the gateway.
func (e *Escrow) AwaitingRefunds() bool {
	return e.StayClosed && e.DepositClosed && e.HasPendingEntries()
}

func (e *Escrow) releaseStayRemainder(room, cleaning money.Money, split FeeSplit, now time.Time) ([]LedgerEntry, error) {
	return e.allocateRetained(room, cleaning, e.Price.ServiceFee, split, now)
}

func (e *Escrow) allocateRetained(room, cleaning, service money.Money, split FeeSplit, now time.Time) ([]LedgerEntry, error) {
	realtorShare, platformShare, err := split.Split(room)
	if err != nil {
		return nil, err
	}
	var created []LedgerEntry
	for _, item := range []struct {
		kind   EntryKind
		party  Party
		amount money.Money
	}{
		{KindRoomFee, PartyRealtor, realtorShare},
		{KindCommission, PartyPlatform, platformShare},
		{KindCleaningFee, PartyRealtor, cleaning},
		{KindServiceFee, PartyPlatform, service},
	} {
		entry, err := e.addEntry(item.kind, item.party, item.amount, now)
		if err != nil {
			return nil, err
		}
		created = append(created, compact(entry)...)
	}
	return created, nil
}

// reconcile derives the state from the buckets and the ledger. An escrow
// whose buckets are both closed stays PARTIALLY_RELEASED until every guest
// refund has gone through the gateway.
func (e *Escrow) reconcile(now time.Time) {
	if e.Dispute != nil {
		e.State = StateDisputed
		return
	}
	switch {
	case e.StayClosed && e.DepositClosed && !e.HasPendingEntries():
		if e.Cancelled {
			e.State = StateRefunded
		} else {
			e.State = StateSettled
		}
		if e.ClosedAt.IsZero() {
			e.ClosedAt = now.UTC()
			e.Record(EscrowClosed{BookingID: e.BookingID, State: e.State, At: now.UTC()})
		}
	case e.StayClosed:
		e.State = StatePartiallyReleased
	case !e.FundedAt.IsZero():
		e.State = StateHeld
	}
	e.touch(now)
}

func (e *Escrow) touch(now time.Time) {
	e.UpdatedAt = now.UTC()
}

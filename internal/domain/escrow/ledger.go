package escrow

import (
	"fmt"
	"time"

	"shortlet/internal/domain/shared/money"
)

type Party string

const (
	PartyGuest    Party = "GUEST"
	PartyRealtor  Party = "REALTOR"
	PartyPlatform Party = "PLATFORM"
)

type EntryKind string

const (
	KindRoomFee            EntryKind = "ROOM_FEE"
	KindCommission         EntryKind = "PLATFORM_COMMISSION"
	KindCleaningFee        EntryKind = "CLEANING_FEE"
	KindServiceFee         EntryKind = "SERVICE_FEE"
	KindDepositReturn      EntryKind = "DEPOSIT_RETURN"
	KindDepositClaim       EntryKind = "DEPOSIT_CLAIM"
	KindCancellationRefund EntryKind = "CANCELLATION_REFUND"
	KindDisputeRefund      EntryKind = "DISPUTE_REFUND"
)

type EntryStatus string

const (
	EntryPending   EntryStatus = "PENDING"
	EntryCompleted EntryStatus = "COMPLETED"
)

// LedgerEntry is one movement of escrowed money. Guest entries leave through
// the payment gateway and stay PENDING until it confirms; realtor and platform
// entries are wallet credits and complete immediately.
type LedgerEntry struct {
	Key         string      `json:"key" bson:"key"`
	Kind        EntryKind   `json:"kind" bson:"kind"`
	Party       Party       `json:"party" bson:"party"`
	Amount      money.Money `json:"amount" bson:"amount"`
	Status      EntryStatus `json:"status" bson:"status"`
	GatewayRef  string      `json:"gateway_ref,omitempty" bson:"gateway_ref"`
	Attempts    int         `json:"attempts" bson:"attempts"`
	LastError   string      `json:"last_error,omitempty" bson:"last_error"`
	CreatedAt   time.Time   `json:"created_at" bson:"created_at"`
	CompletedAt time.Time   `json:"completed_at,omitempty" bson:"completed_at"`
}

// EntryKey is deterministic so that a retried operation maps to the same
// entry and the same gateway idempotency reference.
func EntryKey(bookingID string, kind EntryKind) string {
	return fmt.Sprintf("%s:%s", bookingID, kind)
}

func (e *Escrow) addEntry(kind EntryKind, party Party, amount money.Money, now time.Time) (*LedgerEntry, error) {
	if amount.Amount < 0 {
		return nil, ErrOverAllocation
	}
	if amount.Amount == 0 {
		return nil, nil
	}
	if amount.Currency != e.Currency() {
		return nil, money.ErrCurrencyMismatch
	}
	key := EntryKey(e.BookingID, kind)
	if _, ok := e.entry(key); ok {
		return nil, ErrAlreadyReleased
	}
	if e.Allocated().Amount+amount.Amount > e.Funded.Amount {
		return nil, ErrOverAllocation
	}
	entry := LedgerEntry{
		Key:       key,
		Kind:      kind,
		Party:     party,
		Amount:    amount,
		Status:    EntryCompleted,
		CreatedAt: now.UTC(),
	}
	if party == PartyGuest {
		entry.Status = EntryPending
	} else {
		entry.CompletedAt = entry.CreatedAt
	}
	e.Entries = append(e.Entries, entry)
	return &e.Entries[len(e.Entries)-1], nil
}

func (e *Escrow) entry(key string) (*LedgerEntry, bool) {
	for i := range e.Entries {
		if e.Entries[i].Key == key {
			return &e.Entries[i], true
		}
	}
	return nil, false
}

// CompleteEntry marks a pending guest refund as paid out by the gateway.
func (e *Escrow) CompleteEntry(key, gatewayRef string, now time.Time) error {
	entry, ok := e.entry(key)
	if !ok {
		return ErrEntryNotFound
	}
	if entry.Status == EntryCompleted {
		return nil
	}
	entry.Status = EntryCompleted
	entry.GatewayRef = gatewayRef
	entry.LastError = ""
	entry.Attempts++
	entry.CompletedAt = now.UTC()
	completed := *entry
	e.touch(now)
	e.Record(RefundCompleted{BookingID: e.BookingID, EntryKey: key, Kind: completed.Kind, Amount: completed.Amount, GatewayRef: gatewayRef, At: e.UpdatedAt})
	e.reconcile(now)
	return nil
}

// FailEntry records a failed gateway attempt; the entry stays pending for retry.
func (e *Escrow) FailEntry(key, reason string, now time.Time) error {
	entry, ok := e.entry(key)
	if !ok {
		return ErrEntryNotFound
	}
	if entry.Status == EntryCompleted {
		return nil
	}
	entry.Attempts++
	entry.LastError = reason
	e.touch(now)
	return nil
}

// PendingRefunds lists guest entries still waiting on the gateway.
func (e *Escrow) PendingRefunds() []LedgerEntry {
	var out []LedgerEntry
	for _, entry := range e.Entries {
		if entry.Status == EntryPending {
			out = append(out, entry)
		}
	}
	return out
}

func (e *Escrow) HasPendingEntries() bool {
	for _, entry := range e.Entries {
		if entry.Status == EntryPending {
			return true
		}
	}
	return false
}

// Allocated is the sum of every ledger entry, pending or completed.
func (e *Escrow) Allocated() money.Money {
	total := money.Zero(e.Currency())
	for _, entry := range e.Entries {
		total.Amount += entry.Amount.Amount
	}
	return total
}

// Totals summarises where the funded amount went.
type Totals struct {
	Funded      money.Money `json:"funded"`
	Realtor     money.Money `json:"realtor"`
	Platform    money.Money `json:"platform"`
	Guest       money.Money `json:"guest"`
	Unallocated money.Money `json:"unallocated"`
}

func (e *Escrow) Totals() Totals {
	currency := e.Currency()
	t := Totals{
		Funded:   e.Funded,
		Realtor:  sumFor(e.Entries, PartyRealtor, currency),
		Platform: sumFor(e.Entries, PartyPlatform, currency),
		Guest:    sumFor(e.Entries, PartyGuest, currency),
	}
	t.Unallocated = money.Money{Amount: e.Funded.Amount - e.Allocated().Amount, Currency: currency}
	return t
}

// Credits returns the non-guest entries among created; these are applied to wallets.
func Credits(created []LedgerEntry) []LedgerEntry {
	var out []LedgerEntry
	for _, entry := range created {
		if entry.Party != PartyGuest {
			out = append(out, entry)
		}
	}
	return out
}

func sumFor(entries []LedgerEntry, party Party, currency string) money.Money {
	total := money.Zero(currency)
	for _, entry := range entries {
		if entry.Party == party {
			total.Amount += entry.Amount.Amount
		}
	}
	return total
}

func compact(entry *LedgerEntry) []LedgerEntry {
	if entry == nil {
		return nil
	}
	return []LedgerEntry{*entry}
}

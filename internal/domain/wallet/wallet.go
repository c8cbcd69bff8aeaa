package wallet

import (
	"context"
	"errors"
	"strings"
	"time"

	"shortlet/internal/domain/shared/events"
	"shortlet/internal/domain/shared/money"
)

var (
	ErrWalletNotFound    = errors.New("wallet: not found")
	ErrInsufficientFunds = errors.New("wallet: insufficient funds")
	ErrInvalidAmount     = errors.New("wallet: amount must be positive")
	ErrPayoutNotFound    = errors.New("wallet: payout not found")
	ErrPayoutState       = errors.New("wallet: invalid payout state transition")
	ErrRecipientRequired = errors.New("wallet: payout recipient is required")
)

type Kind string

const (
	KindRealtor  Kind = "REALTOR"
	KindPlatform Kind = "PLATFORM"
)

// PlatformOwner is the owner id of the single platform wallet.
const PlatformOwner = "platform"

// maxAppliedKeys bounds the remembered credit keys kept for dedupe.
const maxAppliedKeys = 512

// Wallet accumulates released escrow funds for a realtor or the platform.
type Wallet struct {
	OwnerID        string
	Kind           Kind
	Balance        money.Money
	TotalEarned    money.Money
	TotalWithdrawn money.Money
	AppliedKeys    []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Version        int64
	events.EventRecorder
}

type Repository interface {
	ByOwner(ctx context.Context, ownerID string) (*Wallet, error)
	Save(ctx context.Context, wallet *Wallet) error
}

func New(ownerID string, kind Kind, currency string, now time.Time) *Wallet {
	now = now.UTC()
	return &Wallet{
		OwnerID:        ownerID,
		Kind:           kind,
		Balance:        money.Zero(currency),
		TotalEarned:    money.Zero(currency),
		TotalWithdrawn: money.Zero(currency),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Credit adds amount to the balance. A key that was already applied is ignored
// so replaying the same ledger entry cannot pay twice.
func (w *Wallet) Credit(amount money.Money, key string, now time.Time) (bool, error) {
	if amount.Amount <= 0 {
		return false, ErrInvalidAmount
	}
	if key != "" && w.applied(key) {
		return false, nil
	}
	balance, err := w.Balance.Add(amount)
	if err != nil {
		return false, err
	}
	earned, err := w.TotalEarned.Add(amount)
	if err != nil {
		return false, err
	}
	w.Balance = balance
	w.TotalEarned = earned
	if key != "" {
		w.AppliedKeys = append(w.AppliedKeys, key)
		if len(w.AppliedKeys) > maxAppliedKeys {
			w.AppliedKeys = w.AppliedKeys[len(w.AppliedKeys)-maxAppliedKeys:]
		}
	}
	w.UpdatedAt = now.UTC()
	w.Record(WalletCredited{OwnerID: w.OwnerID, Amount: amount, Key: key, At: w.UpdatedAt})
	return true, nil
}

// Debit reserves amount for a payout.
func (w *Wallet) Debit(amount money.Money, now time.Time) error {
	if amount.Amount <= 0 {
		return ErrInvalidAmount
	}
	if amount.Currency != w.Balance.Currency {
		return money.ErrCurrencyMismatch
	}
	if amount.Amount > w.Balance.Amount {
		return ErrInsufficientFunds
	}
	w.Balance.Amount -= amount.Amount
	w.TotalWithdrawn.Amount += amount.Amount
	w.UpdatedAt = now.UTC()
	return nil
}

// Restore returns a failed payout to the balance.
func (w *Wallet) Restore(amount money.Money, now time.Time) error {
	if amount.Currency != w.Balance.Currency {
		return money.ErrCurrencyMismatch
	}
	w.Balance.Amount += amount.Amount
	w.TotalWithdrawn.Amount -= amount.Amount
	w.UpdatedAt = now.UTC()
	return nil
}

func (w *Wallet) applied(key string) bool {
	for _, k := range w.AppliedKeys {
		if k == key {
			return true
		}
	}
	return false
}

type PayoutStatus string

const (
	PayoutPending PayoutStatus = "PENDING"
	PayoutPaid    PayoutStatus = "PAID"
	PayoutFailed  PayoutStatus = "FAILED"
)

// Payout is a realtor withdrawal sent through the gateway's transfer API.
type Payout struct {
	ID            string
	RealtorID     string
	Amount        money.Money
	RecipientCode string
	Status        PayoutStatus
	GatewayRef    string
	FailureReason string
	// LastError is the most recent inconclusive gateway answer. The payout
	// stays PENDING and is retried under the same reference.
	LastError string
	Attempts  int
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
	events.EventRecorder
}

type PayoutRepository interface {
	ByID(ctx context.Context, id string) (*Payout, error)
	Save(ctx context.Context, payout *Payout) error
	ListByRealtor(ctx context.Context, realtorID string, limit int) ([]*Payout, error)
	ListPending(ctx context.Context, limit int) ([]*Payout, error)
}

func NewPayout(id, realtorID, recipient string, amount money.Money, now time.Time) (*Payout, error) {
	if amount.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if strings.TrimSpace(recipient) == "" {
		return nil, ErrRecipientRequired
	}
	now = now.UTC()
	p := &Payout{
		ID:            id,
		RealtorID:     realtorID,
		Amount:        amount,
		RecipientCode: strings.TrimSpace(recipient),
		Status:        PayoutPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	p.Record(PayoutRequested{PayoutID: p.ID, RealtorID: realtorID, Amount: amount, At: now})
	return p, nil
}

func (p *Payout) MarkPaid(gatewayRef string, now time.Time) error {
	if p.Status == PayoutPaid {
		return nil
	}
	if p.Status != PayoutPending {
		return ErrPayoutState
	}
	p.Status = PayoutPaid
	p.GatewayRef = gatewayRef
	p.UpdatedAt = now.UTC()
	p.Record(PayoutCompleted{PayoutID: p.ID, RealtorID: p.RealtorID, Amount: p.Amount, Status: p.Status, At: p.UpdatedAt})
	return nil
}

// NoteAttempt records a transfer whose outcome is unknown. Funds stay debited
// until the gateway gives a definite answer.
func (p *Payout) NoteAttempt(reason string, now time.Time) error {
	if p.Status != PayoutPending {
		return ErrPayoutState
	}
	p.Attempts++
	p.LastError = reason
	p.UpdatedAt = now.UTC()
	return nil
}

func (p *Payout) MarkFailed(reason string, now time.Time) error {
	if p.Status != PayoutPending {
		return ErrPayoutState
	}
	p.Status = PayoutFailed
	p.FailureReason = reason
	p.UpdatedAt = now.UTC()
	p.Record(PayoutCompleted{PayoutID: p.ID, RealtorID: p.RealtorID, Amount: p.Amount, Status: p.Status, At: p.UpdatedAt})
	return nil
}

type WalletCredited struct {
	OwnerID string      `json:"owner_id"`
	Amount  money.Money `json:"amount"`
	Key     string      `json:"key"`
	At      time.Time   `json:"at"`
}

func (e WalletCredited) EventName() string     { return "wallet.credited" }
func (e WalletCredited) AggregateID() string   { return e.OwnerID }
func (e WalletCredited) OccurredAt() time.Time { return e.At }

type PayoutRequested struct {
	PayoutID  string      `json:"payout_id"`
	RealtorID string      `json:"realtor_id"`
	Amount    money.Money `json:"amount"`
	At        time.Time   `json:"at"`
}

func (e PayoutRequested) EventName() string     { return "payout.requested" }
func (e PayoutRequested) AggregateID() string   { return e.PayoutID }
func (e PayoutRequested) OccurredAt() time.Time { return e.At }

type PayoutCompleted struct {
	PayoutID  string       `json:"payout_id"`
	RealtorID string       `json:"realtor_id"`
	Amount    money.Money  `json:"amount"`
	Status    PayoutStatus `json:"status"`
	At        time.Time    `json:"at"`
}

func (e PayoutCompleted) EventName() string     { return "payout.completed" }
func (e PayoutCompleted) AggregateID() string   { return e.PayoutID }
func (e PayoutCompleted) OccurredAt() time.Time { return e.At }

package dto

import (
	"time"

	domainwallet "shortlet/internal/domain/wallet"
)

type Wallet struct {
	OwnerID        string    `json:"owner_id"`
	Kind           string    `json:"kind"`
	Balance        MoneyDTO  `json:"balance"`
	TotalEarned    MoneyDTO  `json:"total_earned"`
	TotalWithdrawn MoneyDTO  `json:"total_withdrawn"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func MapWallet(w *domainwallet.Wallet) Wallet {
	return Wallet{
		OwnerID:        w.OwnerID,
		Kind:           string(w.Kind),
		Balance:        MapMoney(w.Balance),
		TotalEarned:    MapMoney(w.TotalEarned),
		TotalWithdrawn: MapMoney(w.TotalWithdrawn),
		UpdatedAt:      w.UpdatedAt,
	}
}

type Payout struct {
	ID            string    `json:"id"`
	Amount        MoneyDTO  `json:"amount"`
	RecipientCode string    `json:"recipient_code"`
	Status        string    `json:"status"`
	GatewayRef    string    `json:"gateway_ref,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type PayoutCollection struct {
	Items []Payout `json:"items"`
}

func MapPayout(p *domainwallet.Payout) Payout {
	return Payout{
		ID:            p.ID,
		Amount:        MapMoney(p.Amount),
		RecipientCode: p.RecipientCode,
		Status:        string(p.Status),
		GatewayRef:    p.GatewayRef,
		FailureReason: p.FailureReason,
		LastError:     p.LastError,
		CreatedAt:     p.CreatedAt,
	}
}

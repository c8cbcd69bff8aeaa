package dto

import (
	"time"

	domainescrow "shortlet/internal/domain/escrow"
)

type LedgerEntry struct {
	Key         string     `json:"key"`
	Kind        string     `json:"kind"`
	Party       string     `json:"party"`
	Amount      MoneyDTO   `json:"amount"`
	Status      string     `json:"status"`
	GatewayRef  string     `json:"gateway_ref,omitempty"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type EscrowTotals struct {
	Funded      MoneyDTO `json:"funded"`
	Realtor     MoneyDTO `json:"realtor"`
	Platform    MoneyDTO `json:"platform"`
	Guest       MoneyDTO `json:"guest"`
	Unallocated MoneyDTO `json:"unallocated"`
}

type Escrow struct {
	BookingID        string        `json:"booking_id"`
	State            string        `json:"state"`
	PaymentReference string        `json:"payment_reference,omitempty"`
	StayReleaseAt    time.Time     `json:"stay_release_at"`
	DepositReleaseAt time.Time     `json:"deposit_release_at"`
	StayClosed       bool          `json:"stay_closed"`
	DepositClosed    bool          `json:"deposit_closed"`
	DisputeID        string        `json:"dispute_id,omitempty"`
	Totals           EscrowTotals  `json:"totals"`
	Entries          []LedgerEntry `json:"entries"`
	FundedAt         *time.Time    `json:"funded_at,omitempty"`
	ClosedAt         *time.Time    `json:"closed_at,omitempty"`
}

func MapEscrow(e *domainescrow.Escrow) Escrow {
	totals := e.Totals()
	view := Escrow{
		BookingID:        e.BookingID,
		State:            string(e.State),
		PaymentReference: e.PaymentReference,
		StayReleaseAt:    e.StayReleaseAt(),
		DepositReleaseAt: e.DepositReleaseAt(),
		StayClosed:       e.StayClosed,
		DepositClosed:    e.DepositClosed,
		Totals: EscrowTotals{
			Funded:      MapMoney(totals.Funded),
			Realtor:     MapMoney(totals.Realtor),
			Platform:    MapMoney(totals.Platform),
			Guest:       MapMoney(totals.Guest),
			Unallocated: MapMoney(totals.Unallocated),
		},
		Entries:  make([]LedgerEntry, 0, len(e.Entries)),
		FundedAt: optionalTime(e.FundedAt),
		ClosedAt: optionalTime(e.ClosedAt),
	}
	if e.Dispute != nil {
		view.DisputeID = e.Dispute.ID
	}
	for _, entry := range e.Entries {
		view.Entries = append(view.Entries, LedgerEntry{
			Key:         entry.Key,
			Kind:        string(entry.Kind),
			Party:       string(entry.Party),
			Amount:      MapMoney(entry.Amount),
			Status:      string(entry.Status),
			GatewayRef:  entry.GatewayRef,
			Attempts:    entry.Attempts,
			LastError:   entry.LastError,
			CreatedAt:   entry.CreatedAt,
			CompletedAt: optionalTime(entry.CompletedAt),
		})
	}
	return view
}

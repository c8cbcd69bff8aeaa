package dto

import (
	"time"

	domainpayments "shortlet/internal/domain/payments"
)

type Payment struct {
	Reference        string     `json:"reference"`
	BookingID        string     `json:"booking_id"`
	Amount           MoneyDTO   `json:"amount"`
	Status           string     `json:"status"`
	AuthorizationURL string     `json:"authorization_url,omitempty"`
	AccessCode       string     `json:"access_code,omitempty"`
	FailureReason    string     `json:"failure_reason,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
}

func MapPayment(p *domainpayments.Payment) Payment {
	return Payment{
		Reference:        p.Reference,
		BookingID:        p.BookingID,
		Amount:           MapMoney(p.Amount),
		Status:           string(p.Status),
		AuthorizationURL: p.AuthorizationURL,
		AccessCode:       p.AccessCode,
		FailureReason:    p.FailureReason,
		PaidAt:           optionalTime(p.PaidAt),
	}
}

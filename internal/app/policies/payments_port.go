package policies

import (
	"context"
	"errors"
	"time"

	"shortlet/internal/domain/shared/money"
)

// ErrGateway wraps every failure reported by a payment gateway adapter.
var ErrGateway = errors.New("payment gateway error")

type GatewayStatus string

const (
	GatewaySuccess   GatewayStatus = "success"
	GatewayFailed    GatewayStatus = "failed"
	GatewayAbandoned GatewayStatus = "abandoned"
	GatewayPending   GatewayStatus = "pending"
)

type InitializeRequest struct {
	Reference   string
	Email       string
	Amount      money.Money
	CallbackURL string
	Metadata    map[string]string
}

type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
}

type VerifyResult struct {
	Reference  string
	Status     GatewayStatus
	Amount     money.Money
	GatewayRef string
	PaidAt     time.Time
	Message    string
}

// RefundRequest returns money to the payer of PaymentReference. Reference is
// the idempotency key: repeating a request with the same reference must not
// refund twice.
type RefundRequest struct {
	Reference        string
	PaymentReference string
	Amount           money.Money
	Reason           string
}

// TransferRequest sends money to a realtor's registered recipient.
type TransferRequest struct {
	Reference     string
	RecipientCode string
	Amount        money.Money
	Reason        string
}

type TransferResult struct {
	GatewayRef string
	Status     GatewayStatus
}

type PaymentGateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (InitializeResult, error)
	Verify(ctx context.Context, reference string) (VerifyResult, error)
	Refund(ctx context.Context, req RefundRequest) (TransferResult, error)
	Transfer(ctx context.Context, req TransferRequest) (TransferResult, error)
}

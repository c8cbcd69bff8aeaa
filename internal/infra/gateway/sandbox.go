package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"shortlet/internal/app/policies"
	"shortlet/internal/domain/shared/money"
)

// Sandbox is an in-memory gateway. It is deterministic and dedupes refunds and
// transfers by reference, the way a real provider dedupes idempotency keys.
type Sandbox struct {
	// AutoSucceed makes Verify report every initialized payment as paid in full.
	AutoSucceed bool
	// RefundOutcome and TransferOutcome are returned for new requests; empty means success.
	RefundOutcome   policies.GatewayStatus
	TransferOutcome policies.GatewayStatus
	// Down makes every call fail with policies.ErrGateway.
	Down  bool
	Clock func() time.Time

	mu        sync.Mutex
	payments  map[string]*sandboxPayment
	refunds   map[string]policies.RefundRequest
	transfers map[string]policies.TransferRequest
	results   map[string]policies.TransferResult
	seq       int
}

type sandboxPayment struct {
	expected money.Money
	paid     money.Money
	status   policies.GatewayStatus
	ref      string
	paidAt   time.Time
}

func NewSandbox() *Sandbox {
	return &Sandbox{
		payments:  map[string]*sandboxPayment{},
		refunds:   map[string]policies.RefundRequest{},
		transfers: map[string]policies.TransferRequest{},
		results:   map[string]policies.TransferResult{},
	}
}

func (s *Sandbox) Initialize(ctx context.Context, req policies.InitializeRequest) (policies.InitializeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return policies.InitializeResult{}, err
	}
	if _, ok := s.payments[req.Reference]; !ok {
		s.payments[req.Reference] = &sandboxPayment{expected: req.Amount, status: policies.GatewayPending}
	}
	return policies.InitializeResult{
		AuthorizationURL: "https://checkout.sandbox.local/" + req.Reference,
		AccessCode:       "ac_" + req.Reference,
	}, nil
}

func (s *Sandbox) Verify(ctx context.Context, reference string) (policies.VerifyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return policies.VerifyResult{}, err
	}
	p, ok := s.payments[reference]
	if !ok {
		return policies.VerifyResult{}, fmt.Errorf("%w: transaction reference not found", policies.ErrGateway)
	}
	if s.AutoSucceed && p.status == policies.GatewayPending {
		s.settle(reference, p, p.expected, policies.GatewaySuccess)
	}
	return policies.VerifyResult{
		Reference:  reference,
		Status:     p.status,
		Amount:     p.paid,
		GatewayRef: p.ref,
		PaidAt:     p.paidAt,
	}, nil
}

func (s *Sandbox) Refund(ctx context.Context, req policies.RefundRequest) (policies.TransferResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return policies.TransferResult{}, err
	}
	if res, ok := s.results[req.Reference]; ok && res.Status != policies.GatewayPending {
		return res, nil
	}
	p, ok := s.payments[req.PaymentReference]
	if !ok || p.status != policies.GatewaySuccess {
		return policies.TransferResult{}, fmt.Errorf("%w: payment %s cannot be refunded", policies.ErrGateway, req.PaymentReference)
	}
	res := s.record(req.Reference, "rf", s.RefundOutcome)
	if res.Status == policies.GatewaySuccess {
		s.refunds[req.Reference] = req
	}
	return res, nil
}

func (s *Sandbox) Transfer(ctx context.Context, req policies.TransferRequest) (policies.TransferResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return policies.TransferResult{}, err
	}
	if res, ok := s.results[req.Reference]; ok && res.Status != policies.GatewayPending {
		return res, nil
	}
	res := s.record(req.Reference, "trf", s.TransferOutcome)
	if res.Status == policies.GatewaySuccess {
		s.transfers[req.Reference] = req
	}
	return res, nil
}

// Pay simulates the guest completing checkout with the expected amount.
func (s *Sandbox) Pay(reference string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.payments[reference]; ok {
		s.settle(reference, p, p.expected, policies.GatewaySuccess)
	}
}

// PayAmount simulates a checkout that captured a different amount.
func (s *Sandbox) PayAmount(reference string, amount money.Money) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.payments[reference]; ok {
		s.settle(reference, p, amount, policies.GatewaySuccess)
	}
}

// Decline marks a payment failed or abandoned.
func (s *Sandbox) Decline(reference string, status policies.GatewayStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.payments[reference]; ok {
		p.status = status
	}
}

// Refunds returns the refunds that succeeded, keyed by reference.
func (s *Sandbox) Refunds() map[string]policies.RefundRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]policies.RefundRequest, len(s.refunds))
	for k, v := range s.refunds {
		out[k] = v
	}
	return out
}

// Transfers returns the transfers that succeeded, keyed by reference.
func (s *Sandbox) Transfers() map[string]policies.TransferRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]policies.TransferRequest, len(s.transfers))
	for k, v := range s.transfers {
		out[k] = v
	}
	return out
}

func (s *Sandbox) settle(reference string, p *sandboxPayment, amount money.Money, status policies.GatewayStatus) {
	s.seq++
	p.paid = amount
	p.status = status
	p.ref = fmt.Sprintf("txn_%d", s.seq)
	p.paidAt = s.now()
}

func (s *Sandbox) record(reference, prefix string, outcome policies.GatewayStatus) policies.TransferResult {
	if outcome == "" {
		outcome = policies.GatewaySuccess
	}
	s.seq++
	res := policies.TransferResult{GatewayRef: fmt.Sprintf("%s_%d", prefix, s.seq), Status: outcome}
	s.results[reference] = res
	return res
}

func (s *Sandbox) check() error {
	if s.Down {
		return fmt.Errorf("%w: sandbox unavailable", policies.ErrGateway)
	}
	return nil
}

func (s *Sandbox) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

var _ policies.PaymentGateway = (*Sandbox)(nil)

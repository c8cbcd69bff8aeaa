package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"shortlet/internal/app/policies"
	"shortlet/internal/domain/shared/money"
)

func TestSandboxPaymentLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewSandbox()
	_, err := s.Initialize(ctx, policies.InitializeRequest{Reference: "PAY-1", Amount: money.Must(1000, "NGN")})
	require.NoError(t, err)

	res, err := s.Verify(ctx, "PAY-1")
	require.NoError(t, err)
	require.Equal(t, policies.GatewayPending, res.Status)

	s.Pay("PAY-1")
	res, err = s.Verify(ctx, "PAY-1")
	require.NoError(t, err)
	require.Equal(t, policies.GatewaySuccess, res.Status)
	require.Equal(t, money.Must(1000, "NGN"), res.Amount)

	_, err = s.Verify(ctx, "missing")
	require.ErrorIs(t, err, policies.ErrGateway)
}

func TestSandboxRefundIsIdempotentByReference(t *testing.T) {
	ctx := context.Background()
	s := NewSandbox()
	_, err := s.Initialize(ctx, policies.InitializeRequest{Reference: "PAY-1", Amount: money.Must(1000, "NGN")})
	require.NoError(t, err)

	_, err = s.Refund(ctx, policies.RefundRequest{Reference: "BK-1:X", PaymentReference: "PAY-1", Amount: money.Must(100, "NGN")})
	require.ErrorIs(t, err, policies.ErrGateway)

	s.Pay("PAY-1")
	first, err := s.Refund(ctx, policies.RefundRequest{Reference: "BK-1:X", PaymentReference: "PAY-1", Amount: money.Must(100, "NGN")})
	require.NoError(t, err)
	second, err := s.Refund(ctx, policies.RefundRequest{Reference: "BK-1:X", PaymentReference: "PAY-1", Amount: money.Must(100, "NGN")})
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Len(t, s.Refunds(), 1)
}

func TestSandboxAutoSucceedAndOutage(t *testing.T) {
	ctx := context.Background()
	s := NewSandbox()
	s.AutoSucceed = true
	_, err := s.Initialize(ctx, policies.InitializeRequest{Reference: "PAY-1", Amount: money.Must(1000, "NGN")})
	require.NoError(t, err)
	res, err := s.Verify(ctx, "PAY-1")
	require.NoError(t, err)
	require.Equal(t, policies.GatewaySuccess, res.Status)

	s.Down = true
	_, err = s.Transfer(ctx, policies.TransferRequest{Reference: "PO-1", Amount: money.Must(1, "NGN")})
	require.ErrorIs(t, err, policies.ErrGateway)
}

func TestSandboxPendingRefundIsAskedAgain(t *testing.T) {
	ctx := context.Background()
	s := NewSandbox()
	_, err := s.Initialize(ctx, policies.InitializeRequest{Reference: "PAY-1", Amount: money.Must(1000, "NGN")})
	require.NoError(t, err)
	s.Pay("PAY-1")

	s.RefundOutcome = policies.GatewayPending
	req := policies.RefundRequest{Reference: "BK-1:DEPOSIT_RETURN", PaymentReference: "PAY-1", Amount: money.Must(100, "NGN")}
	res, err := s.Refund(ctx, req)
	require.NoError(t, err)
	require.Equal(t, policies.GatewayPending, res.Status)
	require.Empty(t, s.Refunds())

	s.RefundOutcome = ""
	res, err = s.Refund(ctx, req)
	require.NoError(t, err)
	require.Equal(t, policies.GatewaySuccess, res.Status)
	require.Len(t, s.Refunds(), 1)
}

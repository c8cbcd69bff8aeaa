package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortlet/internal/app/policies"
	"shortlet/internal/domain/shared/money"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL, "sk_test", time.Second, nil)
}

func writeEnvelope(w http.ResponseWriter, status int, ok bool, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": ok, "message": message, "data": data})
}

func TestInitializeSendsBearerAndMinorUnits(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		var body initializePayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "PAY-1", body.Reference)
		assert.Equal(t, int64(105000), body.Amount)
		assert.Equal(t, "NGN", body.Currency)
		writeEnvelope(w, http.StatusOK, true, "Authorization URL created", map[string]any{
			"authorization_url": "https://checkout.example/abc",
			"access_code":       "abc",
			"reference":         "PAY-1",
		})
	})

	res, err := client.Initialize(context.Background(), policies.InitializeRequest{
		Reference: "PAY-1",
		Email:     "guest@example.com",
		Amount:    money.Must(105000, "NGN"),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/abc", res.AuthorizationURL)
	assert.Equal(t, "abc", res.AccessCode)
}

func TestVerifyMapsStatusAndAmount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/PAY-1", r.URL.Path)
		writeEnvelope(w, http.StatusOK, true, "Verification successful", map[string]any{
			"id":               4099260516,
			"reference":        "PAY-1",
			"status":           "success",
			"amount":           105000,
			"currency":         "ngn",
			"paid_at":          "2026-03-01T10:00:00Z",
			"gateway_response": "Approved",
		})
	})

	res, err := client.Verify(context.Background(), "PAY-1")
	require.NoError(t, err)
	assert.Equal(t, policies.GatewaySuccess, res.Status)
	assert.Equal(t, money.Must(105000, "NGN"), res.Amount)
	assert.Equal(t, "4099260516", res.GatewayRef)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), res.PaidAt)
}

func TestRefundAndTransferNormalizeStatuses(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/refund":
			var body refundPayload
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "PAY-1", body.Transaction)
			assert.Equal(t, "BK-1:CANCELLATION_REFUND", body.Reference)
			writeEnvelope(w, http.StatusOK, true, "Refund has been queued", map[string]any{"id": 3018284, "status": "processed"})
		case "/transfer":
			var body transferPayload
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "balance", body.Source)
			assert.Equal(t, "RCP_1", body.Recipient)
			writeEnvelope(w, http.StatusOK, true, "Transfer has been queued", map[string]any{"transfer_code": "TRF_1", "status": "otp"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	refund, err := client.Refund(context.Background(), policies.RefundRequest{
		Reference:        "BK-1:CANCELLATION_REFUND",
		PaymentReference: "PAY-1",
		Amount:           money.Must(5000, "NGN"),
	})
	require.NoError(t, err)
	assert.Equal(t, policies.GatewaySuccess, refund.Status)
	assert.Equal(t, "3018284", refund.GatewayRef)

	transfer, err := client.Transfer(context.Background(), policies.TransferRequest{
		Reference:     "PO-1",
		RecipientCode: "RCP_1",
		Amount:        money.Must(9000, "NGN"),
	})
	require.NoError(t, err)
	assert.Equal(t, policies.GatewayPending, transfer.Status)
	assert.Equal(t, "TRF_1", transfer.GatewayRef)
}

func TestErrorsWrapGatewaySentinel(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"http status": func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusBadRequest, false, "Invalid key", nil)
		},
		"status false": func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusOK, false, "Transaction reference not found", nil)
		},
		"garbage": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html>bad gateway</html>"))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, handler)
			_, err := client.Verify(context.Background(), "PAY-1")
			require.ErrorIs(t, err, policies.ErrGateway)
		})
	}
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, policies.GatewaySuccess, normalizeStatus("SUCCESS"))
	assert.Equal(t, policies.GatewayFailed, normalizeStatus("reversed"))
	assert.Equal(t, policies.GatewayAbandoned, normalizeStatus("abandoned"))
	assert.Equal(t, policies.GatewayPending, normalizeStatus("ongoing"))
}

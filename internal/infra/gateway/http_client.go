// Package gateway adapts payment providers to policies.PaymentGateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shortlet/internal/app/policies"
	"shortlet/internal/domain/shared/money"
)

// HTTPClient talks to a Paystack-style REST API: bearer secret key, amounts
// in minor units and a {status, message, data} envelope on every response.
type HTTPClient struct {
	BaseURL    string
	SecretKey  string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func NewHTTPClient(baseURL, secretKey string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		SecretKey:  secretKey,
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
	}
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializePayload struct {
	Reference   string            `json:"reference"`
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
}

type verifyData struct {
	ID              json.Number `json:"id"`
	Reference       string      `json:"reference"`
	Status          string      `json:"status"`
	Amount          int64       `json:"amount"`
	Currency        string      `json:"currency"`
	PaidAt          string      `json:"paid_at"`
	GatewayResponse string      `json:"gateway_response"`
}

type refundPayload struct {
	Transaction  string `json:"transaction"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Reference    string `json:"reference"`
	MerchantNote string `json:"merchant_note,omitempty"`
}

type transferPayload struct {
	Source    string `json:"source"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Recipient string `json:"recipient"`
	Reference string `json:"reference"`
	Reason    string `json:"reason,omitempty"`
}

type movementData struct {
	ID           json.Number `json:"id"`
	TransferCode string      `json:"transfer_code"`
	Status       string      `json:"status"`
}

func (c *HTTPClient) Initialize(ctx context.Context, req policies.InitializeRequest) (policies.InitializeResult, error) {
	payload := initializePayload{
		Reference:   req.Reference,
		Email:       req.Email,
		Amount:      req.Amount.Amount,
		Currency:    req.Amount.Currency,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	}
	var data initializeData
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", payload, &data); err != nil {
		return policies.InitializeResult{}, err
	}
	return policies.InitializeResult{AuthorizationURL: data.AuthorizationURL, AccessCode: data.AccessCode}, nil
}

func (c *HTTPClient) Verify(ctx context.Context, reference string) (policies.VerifyResult, error) {
	var data verifyData
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &data); err != nil {
		return policies.VerifyResult{}, err
	}
	res := policies.VerifyResult{
		Reference:  data.Reference,
		Status:     normalizeStatus(data.Status),
		Amount:     money.Money{Amount: data.Amount, Currency: strings.ToUpper(data.Currency)},
		GatewayRef: data.ID.String(),
		Message:    data.GatewayResponse,
	}
	if data.PaidAt != "" {
		if paidAt, err := time.Parse(time.RFC3339, data.PaidAt); err == nil {
			res.PaidAt = paidAt.UTC()
		}
	}
	return res, nil
}

func (c *HTTPClient) Refund(ctx context.Context, req policies.RefundRequest) (policies.TransferResult, error) {
	payload := refundPayload{
		Transaction:  req.PaymentReference,
		Amount:       req.Amount.Amount,
		Currency:     req.Amount.Currency,
		Reference:    req.Reference,
		MerchantNote: req.Reason,
	}
	var data movementData
	if err := c.do(ctx, http.MethodPost, "/refund", payload, &data); err != nil {
		return policies.TransferResult{}, err
	}
	return policies.TransferResult{GatewayRef: data.ID.String(), Status: normalizeStatus(data.Status)}, nil
}

func (c *HTTPClient) Transfer(ctx context.Context, req policies.TransferRequest) (policies.TransferResult, error) {
	payload := transferPayload{
		Source:    "balance",
		Amount:    req.Amount.Amount,
		Currency:  req.Amount.Currency,
		Recipient: req.RecipientCode,
		Reference: req.Reference,
		Reason:    req.Reason,
	}
	var data movementData
	if err := c.do(ctx, http.MethodPost, "/transfer", payload, &data); err != nil {
		return policies.TransferResult{}, err
	}
	ref := data.TransferCode
	if ref == "" {
		ref = data.ID.String()
	}
	return policies.TransferResult{GatewayRef: ref, Status: normalizeStatus(data.Status)}, nil
}

// do sends one request and decodes the envelope's data into out. Transport
// failures, non-2xx responses and status=false envelopes all wrap
// policies.ErrGateway.
func (c *HTTPClient) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", policies.ErrGateway, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", policies.ErrGateway, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client().Do(req)
	if err != nil {
		c.logError("gateway request failed", path, err)
		return fmt.Errorf("%w: %s %s: %v", policies.ErrGateway, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", policies.ErrGateway, err)
	}
	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = snippet(raw)
		}
		err := fmt.Errorf("%w: %s %s returned status %d: %s", policies.ErrGateway, method, path, resp.StatusCode, msg)
		c.logError("gateway returned error", path, err)
		return err
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: decode envelope: %v", policies.ErrGateway, decodeErr)
	}
	if !env.Status {
		return fmt.Errorf("%w: %s", policies.ErrGateway, env.Message)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decode data: %v", policies.ErrGateway, err)
	}
	return nil
}

func (c *HTTPClient) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *HTTPClient) logError(msg, path string, err error) {
	if c.Logger != nil {
		c.Logger.Warn(msg, "path", path, "error", err)
	}
}

// normalizeStatus folds provider states into the four the app understands.
func normalizeStatus(raw string) policies.GatewayStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success", "processed":
		return policies.GatewaySuccess
	case "failed", "reversed", "rejected":
		return policies.GatewayFailed
	case "abandoned":
		return policies.GatewayAbandoned
	default:
		return policies.GatewayPending
	}
}

func snippet(raw []byte) string {
	if len(raw) > 512 {
		raw = raw[:512]
	}
	return strings.TrimSpace(string(raw))
}

var _ policies.PaymentGateway = (*HTTPClient)(nil)

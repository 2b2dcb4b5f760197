// internal/domain/payment/paystack_client.go
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/config"
)

// Gateway is the subset of the payment provider API used by the service
type Gateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}

// PaystackClient talks to the Paystack transaction API
type PaystackClient struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// NewPaystackClient creates a new gateway client
func NewPaystackClient(cfg *config.Config) *PaystackClient {
	return &PaystackClient{
		secretKey: cfg.External.Paystack.SecretKey,
		baseURL:   cfg.External.Paystack.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.External.Paystack.Timeout,
		},
	}
}

// InitializeRequest starts a hosted checkout. Amount is in major units.
type InitializeRequest struct {
	Email       string
	Amount      decimal.Decimal
	Currency    string
	Reference   string
	CallbackURL string
	Metadata    map[string]interface{}
}

// InitializeResult is where the customer is sent to pay
type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyResult is the gateway's view of a transaction
type VerifyResult struct {
	ID              int64           `json:"id"`
	Status          string          `json:"status"`
	Reference       string          `json:"reference"`
	Amount          int64           `json:"amount"`
	Currency        string          `json:"currency"`
	GatewayResponse string          `json:"gateway_response"`
	Channel         string          `json:"channel"`
	PaidAt          string          `json:"paid_at"`
	Raw             json.RawMessage `json:"-"`
}

type initializePayload struct {
	Email       string                 `json:"email"`
	Amount      int64                  `json:"amount"`
	Currency    string                 `json:"currency,omitempty"`
	Reference   string                 `json:"reference"`
	CallbackURL string                 `json:"callback_url,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// ToMinorUnits converts a major-unit amount to the gateway's integer minor unit
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromMinorUnits converts a minor-unit amount back to major units
func FromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

// Initialize creates a transaction and returns its authorization URL
func (p *PaystackClient) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	payload := initializePayload{
		Email:       req.Email,
		Amount:      ToMinorUnits(req.Amount),
		Currency:    req.Currency,
		Reference:   req.Reference,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	}

	data, err := p.makeAPICall(ctx, http.MethodPost, "/transaction/initialize", payload)
	if err != nil {
		return nil, err
	}

	var result InitializeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse initialize response: %w", err)
	}
	if result.AuthorizationURL == "" {
		return nil, fmt.Errorf("initialize response has no authorization url")
	}
	return &result, nil
}

// Verify fetches the current state of a transaction
func (p *PaystackClient) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	data, err := p.makeAPICall(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}

	var result VerifyResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse verify response: %w", err)
	}
	result.Raw = append(json.RawMessage{}, data...)
	return &result, nil
}

// makeAPICall makes HTTP calls to the gateway and returns the data member of the envelope
func (p *PaystackClient) makeAPICall(ctx context.Context, method, endpoint string, data interface{}) (json.RawMessage, error) {
	if p.secretKey == "" {
		return nil, fmt.Errorf("payment gateway credentials not configured")
	}

	var body io.Reader
	if data != nil {
		reqBody, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request data: %w", err)
		}
		body = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make API call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("API call failed with status %d: unreadable body", resp.StatusCode)
	}

	if resp.StatusCode >= 400 || !env.Status {
		return nil, fmt.Errorf("API call failed with status %d: %s", resp.StatusCode, env.Message)
	}

	return env.Data, nil
}

// ValidSignature reports whether signature is the hex HMAC-SHA512 of body under secret
func ValidSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

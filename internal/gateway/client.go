// Package gateway is the outbound HTTP client for the PhonePe payment
// gateway: the pay (initiate) and transaction status endpoints.
package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/snackly/payments-service/internal/checksum"
)

const (
	payPath    = "/pg/v1/pay"
	statusPath = "/pg/v1/status"
)

// PayRequest is the payload POSTed (base64-encoded) to the pay endpoint.
type PayRequest struct {
	MerchantID            string            `json:"merchantId"`
	MerchantTransactionID string            `json:"merchantTransactionId"`
	MerchantUserID        string            `json:"merchantUserId"`
	Amount                int64             `json:"amount"`
	RedirectURL           string            `json:"redirectUrl"`
	RedirectMode          string            `json:"redirectMode"`
	CallbackURL           string            `json:"callbackUrl"`
	MobileNumber          string            `json:"mobileNumber"`
	PaymentInstrument     PaymentInstrument `json:"paymentInstrument"`
}

type PaymentInstrument struct {
	Type string `json:"type"`
}

type PayResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MerchantTransactionID string `json:"merchantTransactionId"`
		InstrumentResponse    struct {
			Type         string `json:"type"`
			RedirectInfo struct {
				URL    string `json:"url"`
				Method string `json:"method"`
			} `json:"redirectInfo"`
		} `json:"instrumentResponse"`
	} `json:"data"`
}

// TransactionData is the inner payload of both the status endpoint response
// and the webhook callback.
type TransactionData struct {
	MerchantID            string `json:"merchantId"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	TransactionID         string `json:"transactionId"`
	State                 string `json:"state"`
	ResponseCode          string `json:"responseCode"`
	Amount                int64  `json:"amount"`
}

type StatusResponse struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    TransactionData `json:"data"`
}

// WebhookEnvelope is the outer body of a webhook delivery; Response holds a
// base64-encoded WebhookPayload.
type WebhookEnvelope struct {
	Response string `json:"response"`
}

type WebhookPayload struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Data    TransactionData `json:"data"`
}

type Config struct {
	BaseURL    string
	MerchantID string
	SaltKey    string
	SaltIndex  int
	Timeout    time.Duration
}

type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name: "phonepe-gateway",
		}),
	}
}

// Pay submits a payment initiation. It returns the decoded response along
// with the raw body for the audit trail.
func (c *Client) Pay(ctx context.Context, payload *PayRequest) (*PayResponse, json.RawMessage, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal pay payload: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(payloadJSON)

	body, err := json.Marshal(map[string]string{"request": encoded})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+payPath, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("build pay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-VERIFY", checksum.Compute(encoded, payPath, c.cfg.SaltKey, c.cfg.SaltIndex))

	raw, err := c.do(req)
	if err != nil {
		return nil, raw, err
	}

	var resp PayResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, raw, fmt.Errorf("decode pay response: %w", err)
	}
	return &resp, raw, nil
}

// Status queries the transaction status endpoint for a merchant transaction.
func (c *Client) Status(ctx context.Context, merchantTxnID string) (*StatusResponse, json.RawMessage, error) {
	path := fmt.Sprintf("%s/%s/%s", statusPath, c.cfg.MerchantID, merchantTxnID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-VERIFY", checksum.Compute("", path, c.cfg.SaltKey, c.cfg.SaltIndex))
	req.Header.Set("X-MERCHANT-ID", c.cfg.MerchantID)

	raw, err := c.do(req)
	if err != nil {
		return nil, raw, err
	}

	var resp StatusResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, raw, fmt.Errorf("decode status response: %w", err)
	}
	return &resp, raw, nil
}

// DecodeWebhook parses a webhook delivery body and extracts the inner
// base64-encoded payload.
func DecodeWebhook(rawBody []byte) (*WebhookPayload, error) {
	var envelope WebhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return nil, fmt.Errorf("parse webhook body: %w", err)
	}
	if envelope.Response == "" {
		return nil, fmt.Errorf("webhook body missing response field")
	}

	decoded, err := base64.StdEncoding.DecodeString(envelope.Response)
	if err != nil {
		return nil, fmt.Errorf("decode webhook response: %w", err)
	}

	var payload WebhookPayload
	if err := json.Unmarshal(decoded, &payload); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}
	return &payload, nil
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	return c.breaker.Execute(func() ([]byte, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("gateway call failed: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read gateway response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return raw, fmt.Errorf("gateway returned status %d", resp.StatusCode)
		}
		return raw, nil
	})
}

// Package paymentclient is the storefront-side companion to the payments
// service: it initiates a payment and polls verification with exponential
// backoff until a terminal state is observed.
package paymentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseDelay   = time.Second
	defaultMaxDelay    = 10 * time.Second
	defaultMaxAttempts = 5
)

var (
	// ErrPending is returned when polling exhausts its attempts while the
	// payment is still pending. The caller may poll again later; pending
	// is a legitimate state moments after the gateway redirect.
	ErrPending = errors.New("payment still pending after polling")
)

type InitiateRequest struct {
	OrderID      string       `json:"orderId"`
	Amount       int64        `json:"amount"`
	CustomerInfo CustomerInfo `json:"customerInfo"`
}

type CustomerInfo struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	UserID string `json:"userId,omitempty"`
}

type InitiateResponse struct {
	Success               bool   `json:"success"`
	RedirectURL           string `json:"redirectUrl"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	OrderID               string `json:"orderId"`
	Error                 string `json:"error,omitempty"`
	Code                  string `json:"code,omitempty"`
}

type VerifyResponse struct {
	Success       bool   `json:"success"`
	PaymentStatus string `json:"paymentStatus"`
	OrderStatus   string `json:"orderStatus"`
	TransactionID string `json:"transactionId,omitempty"`
	Amount        int64  `json:"amount"`
	State         string `json:"state,omitempty"`
	Error         string `json:"error,omitempty"`
	Code          string `json:"code,omitempty"`
}

type Client struct {
	baseURL string
	http    *http.Client

	baseDelay   time.Duration
	maxDelay    time.Duration
	maxAttempts int
}

type Option func(*Client)

// WithBackoff overrides the polling schedule; mainly for tests.
func WithBackoff(base, max time.Duration, attempts int) Option {
	return func(c *Client) {
		c.baseDelay = base
		c.maxDelay = max
		c.maxAttempts = attempts
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		http:        &http.Client{Timeout: 30 * time.Second},
		baseDelay:   defaultBaseDelay,
		maxDelay:    defaultMaxDelay,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initiate starts a payment and returns the gateway redirect URL.
func (c *Client) Initiate(ctx context.Context, req *InitiateRequest) (*InitiateResponse, error) {
	var resp InitiateResponse
	if err := c.post(ctx, "/api/v1/payments/initiate", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("initiate rejected: %s (%s)", resp.Error, resp.Code)
	}
	return &resp, nil
}

// WaitForResult polls verification until the payment reaches a terminal
// state, the context is cancelled, or attempts are exhausted. Delay doubles
// from the base each attempt, capped at the max.
func (c *Client) WaitForResult(ctx context.Context, orderID string) (*VerifyResponse, error) {
	delay := c.baseDelay

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		resp, err := c.verify(ctx, orderID)
		if err != nil {
			// Transient failures are absorbed by the next attempt.
			if attempt == c.maxAttempts-1 {
				return nil, err
			}
		} else if resp.PaymentStatus == "paid" || resp.PaymentStatus == "failed" {
			return resp, nil
		}

		delay *= 2
		if delay > c.maxDelay {
			delay = c.maxDelay
		}
	}

	return nil, ErrPending
}

func (c *Client) verify(ctx context.Context, orderID string) (*VerifyResponse, error) {
	var resp VerifyResponse
	if err := c.post(ctx, "/api/v1/payments/verify", map[string]string{"orderId": orderID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

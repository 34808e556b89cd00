// Package service holds the payment reconciliation core: initiation,
// verification, webhook handling and delivery-OTP checks.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/snackly/payments-service/internal/domain"
	"github.com/snackly/payments-service/internal/gateway"
	r "github.com/snackly/payments-service/internal/repository"
)

// GatewayAPI is the slice of the gateway client the service depends on.
type GatewayAPI interface {
	Pay(ctx context.Context, payload *gateway.PayRequest) (*gateway.PayResponse, json.RawMessage, error)
	Status(ctx context.Context, merchantTxnID string) (*gateway.StatusResponse, json.RawMessage, error)
}

// EventPublisher delivers order events to the notification pipeline.
// Publishing is best-effort at every call site: a publish failure is logged
// and never fails the payment operation.
type EventPublisher interface {
	PublishOrderConfirmed(ctx context.Context, order *domain.Order) error
}

type Config struct {
	MerchantID string
	// RedirectBaseURL is the storefront URL the gateway sends the customer
	// back to; the order id is appended as a query parameter.
	RedirectBaseURL string
	// CallbackURL is this service's webhook endpoint, as seen by the gateway.
	CallbackURL string
	// AuthThreshold: amounts at or above this (in paise) require a
	// non-guest customer.
	AuthThreshold int64
	WebhookSaltKey string
	OTPTTL         time.Duration
	OTPMaxAttempts int
}

type PaymentService struct {
	repo    r.RepoInterface
	gateway GatewayAPI
	events  EventPublisher
	cfg     Config
	now     func() time.Time
}

func NewPaymentService(repo r.RepoInterface, gw GatewayAPI, events EventPublisher, cfg Config) *PaymentService {
	if cfg.OTPTTL == 0 {
		cfg.OTPTTL = 24 * time.Hour
	}
	if cfg.OTPMaxAttempts == 0 {
		cfg.OTPMaxAttempts = 5
	}
	return &PaymentService{
		repo:    repo,
		gateway: gw,
		events:  events,
		cfg:     cfg,
		now:     time.Now,
	}
}

type CustomerInfo struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	UserID string `json:"userId,omitempty"`
}

type InitiateRequest struct {
	OrderID  uuid.UUID    `json:"orderId"`
	Amount   int64        `json:"amount"`
	Customer CustomerInfo `json:"customerInfo"`
}

type InitiateResponse struct {
	RedirectURL           string    `json:"redirectUrl"`
	MerchantTransactionID string    `json:"merchantTransactionId"`
	OrderID               uuid.UUID `json:"orderId"`
}

type VerifyResponse struct {
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
	OrderStatus   domain.OrderStatus   `json:"orderStatus"`
	TransactionID string               `json:"transactionId,omitempty"`
	Amount        int64                `json:"amount"`
	ResponseCode  string               `json:"responseCode,omitempty"`
	State         string               `json:"state,omitempty"`
}

type WebhookResult struct {
	AlreadyProcessed bool
	PaymentStatus    domain.PaymentStatus
	OrderStatus      domain.OrderStatus
	State            string
}

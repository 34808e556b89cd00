package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/snackly/payments-service/internal/service"
)

// PaymentAPI is the slice of the service layer the payment handlers use.
type PaymentAPI interface {
	InitiatePayment(ctx context.Context, req *service.InitiateRequest) (*service.InitiateResponse, error)
	VerifyPayment(ctx context.Context, orderID uuid.UUID) (*service.VerifyResponse, error)
	HandleWebhook(ctx context.Context, rawBody []byte, verifyHeader string) (*service.WebhookResult, error)
}

type PaymentHandler struct {
	payments PaymentAPI
	timeout  time.Duration
}

func NewPaymentHandler(payments PaymentAPI, timeout time.Duration) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		timeout:  timeout,
	}
}

type InitiateRequestDTO struct {
	OrderID      string               `json:"orderId"`
	Amount       int64                `json:"amount"`
	CustomerInfo service.CustomerInfo `json:"customerInfo"`
}

type InitiateResponseDTO struct {
	Success               bool   `json:"success"`
	RedirectURL           string `json:"redirectUrl"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	OrderID               string `json:"orderId"`
}

type VerifyRequestDTO struct {
	OrderID string `json:"orderId"`
}

type VerifyResponseDTO struct {
	Success       bool   `json:"success"`
	PaymentStatus string `json:"paymentStatus"`
	OrderStatus   string `json:"orderStatus"`
	TransactionID string `json:"transactionId,omitempty"`
	Amount        int64  `json:"amount"`
	ResponseCode  string `json:"responseCode,omitempty"`
	State         string `json:"state,omitempty"`
}

type WebhookResponseDTO struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// POST /api/v1/payments/initiate
func (h *PaymentHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req InitiateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body")
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "orderId must be a valid uuid")
		return
	}

	resp, err := h.payments.InitiatePayment(ctx, &service.InitiateRequest{
		OrderID:  orderID,
		Amount:   req.Amount,
		Customer: req.CustomerInfo,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, InitiateResponseDTO{
		Success:               true,
		RedirectURL:           resp.RedirectURL,
		MerchantTransactionID: resp.MerchantTransactionID,
		OrderID:               resp.OrderID.String(),
	})
}

// POST /api/v1/payments/verify
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req VerifyRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body")
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "orderId must be a valid uuid")
		return
	}

	resp, err := h.payments.VerifyPayment(ctx, orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, VerifyResponseDTO{
		Success:       true,
		PaymentStatus: string(resp.PaymentStatus),
		OrderStatus:   string(resp.OrderStatus),
		TransactionID: resp.TransactionID,
		Amount:        resp.Amount,
		ResponseCode:  resp.ResponseCode,
		State:         resp.State,
	})
}

// POST /api/v1/payments/webhook
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// The signature covers the raw bytes, so the body must not go through
	// a JSON round-trip before verification.
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PAYLOAD_FORMAT", "unreadable body")
		return
	}

	result, err := h.payments.HandleWebhook(ctx, rawBody, r.Header.Get("X-VERIFY"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if result.AlreadyProcessed {
		respondJSON(w, http.StatusOK, WebhookResponseDTO{Success: true, Message: "Payment already processed"})
		return
	}
	respondJSON(w, http.StatusOK, WebhookResponseDTO{Success: true})
}

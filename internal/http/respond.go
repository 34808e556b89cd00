package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/snackly/payments-service/internal/service"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// handleServiceError maps service errors onto the HTTP error taxonomy.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case service.IsValidation(err):
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, service.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found")
	case errors.Is(err, service.ErrNoTransaction):
		respondError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order has no payment transaction")
	case errors.Is(err, service.ErrOrderAlreadyPaid):
		respondError(w, http.StatusConflict, "ORDER_ALREADY_PAID", "payment already processed")
	case errors.Is(err, service.ErrAuthRequired):
		respondError(w, http.StatusForbidden, "UNAUTHORIZED_ORIGIN", "authentication required for this amount")
	case errors.Is(err, service.ErrMissingSignature):
		respondError(w, http.StatusUnauthorized, "MISSING_SIGNATURE", "missing signature header")
	case errors.Is(err, service.ErrInvalidSignature):
		respondError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "signature verification failed")
	case errors.Is(err, service.ErrInvalidPayload):
		respondError(w, http.StatusBadRequest, "INVALID_PAYLOAD_FORMAT", "malformed webhook payload")
	case errors.Is(err, service.ErrGateway):
		respondError(w, http.StatusBadGateway, "GATEWAY_ERROR", "payment gateway error")
	case errors.Is(err, service.ErrOTPNotFound):
		respondError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "no active otp for order")
	case errors.Is(err, service.ErrOTPLocked):
		respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "too many otp attempts")
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "unexpected error")
	}
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/snackly/payments-service/internal/domain"
	"github.com/snackly/payments-service/internal/gateway"
	r "github.com/snackly/payments-service/internal/repository"
)

// InitiatePayment validates the request, registers the attempt, calls the
// gateway pay endpoint and returns the hosted-page redirect URL. The order
// row is only touched after the gateway accepts the payment.
func (s *PaymentService) InitiatePayment(ctx context.Context, req *InitiateRequest) (*InitiateResponse, error) {
	if !ValidateAmount(req.Amount) {
		return nil, &ValidationError{Field: "amount", Reason: fmt.Sprintf("must be between %d and %d paise", MinAmount, MaxAmount)}
	}
	if err := validateCustomer(req.Customer); err != nil {
		return nil, err
	}
	if req.Amount >= s.cfg.AuthThreshold && req.Customer.UserID == "" {
		return nil, ErrAuthRequired
	}

	order, err := s.repo.GetOrderByID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, r.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order.PaymentStatus.IsTerminal() {
		return nil, ErrOrderAlreadyPaid
	}

	// Unique per attempt so a retry after a failed attempt gets a fresh
	// transaction on the gateway side.
	merchantTxnID := fmt.Sprintf("TXN-%s-%d", shortOrderRef(req.OrderID.String()), s.now().UnixNano())

	userID := req.Customer.UserID
	if userID == "" {
		userID = "GUEST"
	}

	payload := &gateway.PayRequest{
		MerchantID:            s.cfg.MerchantID,
		MerchantTransactionID: merchantTxnID,
		MerchantUserID:        userID,
		Amount:                req.Amount,
		RedirectURL:           fmt.Sprintf("%s?orderId=%s", s.cfg.RedirectBaseURL, req.OrderID),
		RedirectMode:          "REDIRECT",
		CallbackURL:           s.cfg.CallbackURL,
		MobileNumber:          req.Customer.Phone,
		PaymentInstrument:     gateway.PaymentInstrument{Type: "PAY_PAGE"},
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal pay payload: %w", err)
	}

	s.logAttempt(ctx, &domain.PaymentAttempt{
		OrderID:               req.OrderID,
		MerchantTransactionID: merchantTxnID,
		Payload:               payloadJSON,
		Status:                domain.AttemptStatusInitiated,
	})

	resp, raw, err := s.gateway.Pay(ctx, payload)
	if err != nil || !resp.Success {
		s.logAttempt(ctx, &domain.PaymentAttempt{
			OrderID:               req.OrderID,
			MerchantTransactionID: merchantTxnID,
			Payload:               payloadJSON,
			Response:              raw,
			ResponseCode:          responseCode(resp),
			Status:                domain.AttemptStatusFailed,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGateway, err)
		}
		return nil, fmt.Errorf("%w: %s", ErrGateway, resp.Code)
	}

	s.logAttempt(ctx, &domain.PaymentAttempt{
		OrderID:               req.OrderID,
		MerchantTransactionID: merchantTxnID,
		Payload:               payloadJSON,
		Response:              raw,
		ResponseCode:          resp.Code,
		Status:                domain.AttemptStatusRedirectReady,
	})

	if err := s.repo.AttachMerchantTxn(ctx, req.OrderID, merchantTxnID); err != nil {
		// A webhook for an earlier transaction may have finalized the order
		// while the gateway call was in flight.
		if errors.Is(err, r.ErrOrderAlreadyFinal) {
			return nil, ErrOrderAlreadyPaid
		}
		return nil, fmt.Errorf("attach merchant txn: %w", err)
	}

	return &InitiateResponse{
		RedirectURL:           resp.Data.InstrumentResponse.RedirectInfo.URL,
		MerchantTransactionID: merchantTxnID,
		OrderID:               req.OrderID,
	}, nil
}

// logAttempt is best-effort: the audit trail must never block the payment.
func (s *PaymentService) logAttempt(ctx context.Context, attempt *domain.PaymentAttempt) {
	if err := s.repo.RecordPaymentAttempt(ctx, attempt); err != nil {
		log.Printf("failed to record payment attempt for order %v: %v", attempt.OrderID, err)
	}
}

func responseCode(resp *gateway.PayResponse) string {
	if resp == nil {
		return ""
	}
	return resp.Code
}

// shortOrderRef keeps merchant transaction ids under the gateway's length
// limit by using the first uuid segment.
func shortOrderRef(orderID string) string {
	if len(orderID) > 8 {
		return orderID[:8]
	}
	return orderID
}

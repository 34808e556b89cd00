package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/snackly/payments-service/internal/checksum"
	"github.com/snackly/payments-service/internal/domain"
	"github.com/snackly/payments-service/internal/gateway"
	r "github.com/snackly/payments-service/internal/repository"
)

// HandleWebhook processes an asynchronous gateway callback. The signature is
// checked before anything else; deliveries for an already-paid order are
// acknowledged without reapplying writes, since gateways may deliver the
// same callback more than once.
func (s *PaymentService) HandleWebhook(ctx context.Context, rawBody []byte, verifyHeader string) (*WebhookResult, error) {
	if verifyHeader == "" {
		return nil, ErrMissingSignature
	}
	if !checksum.VerifyWebhook(rawBody, verifyHeader, s.cfg.WebhookSaltKey) {
		return nil, ErrInvalidSignature
	}

	payload, err := gateway.DecodeWebhook(rawBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if payload.Data.MerchantTransactionID == "" {
		return nil, fmt.Errorf("%w: missing merchantTransactionId", ErrInvalidPayload)
	}

	order, err := s.repo.GetOrderByMerchantTxnID(ctx, payload.Data.MerchantTransactionID)
	if err != nil {
		if errors.Is(err, r.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("load order by merchant txn: %w", err)
	}

	// Idempotency gate: duplicate deliveries after the paid transition are
	// acknowledged and otherwise ignored.
	if order.PaymentStatus == domain.PaymentStatusPaid {
		return &WebhookResult{
			AlreadyProcessed: true,
			PaymentStatus:    order.PaymentStatus,
			OrderStatus:      order.Status,
			State:            payload.Data.State,
		}, nil
	}

	s.logAttempt(ctx, &domain.PaymentAttempt{
		OrderID:               order.ID,
		MerchantTransactionID: payload.Data.MerchantTransactionID,
		Payload:               rawBody,
		ResponseCode:          payload.Data.ResponseCode,
		Status:                domain.WebhookAttemptStatus(payload.Data.State),
	})

	orderStatus, paymentStatus, err := s.applyGatewayState(ctx, order, payload.Data.State, payload.Data.TransactionID, rawBody)
	if err != nil {
		return nil, err
	}

	return &WebhookResult{
		PaymentStatus: paymentStatus,
		OrderStatus:   orderStatus,
		State:         payload.Data.State,
	}, nil
}

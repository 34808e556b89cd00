package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/snackly/payments-service/internal/domain"
	r "github.com/snackly/payments-service/internal/repository"
)

// VerifyPayment queries the gateway status endpoint for the order's merchant
// transaction and reconciles local state. It is safe to call repeatedly: once
// payment_status is terminal the gateway is not consulted again.
func (s *PaymentService) VerifyPayment(ctx context.Context, orderID uuid.UUID) (*VerifyResponse, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, r.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("load order: %w", err)
	}

	if order.PaymentStatus.IsTerminal() {
		return &VerifyResponse{
			PaymentStatus: order.PaymentStatus,
			OrderStatus:   order.Status,
			TransactionID: deref(order.GatewayTransactionID),
			Amount:        order.TotalAmount,
		}, nil
	}

	if order.MerchantTransactionID == nil {
		return nil, ErrNoTransaction
	}
	merchantTxnID := *order.MerchantTransactionID

	resp, raw, err := s.gateway.Status(ctx, merchantTxnID)
	if err != nil {
		s.logAttempt(ctx, &domain.PaymentAttempt{
			OrderID:               order.ID,
			MerchantTransactionID: merchantTxnID,
			Response:              raw,
			Status:                domain.AttemptStatusVerification,
		})
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	s.logAttempt(ctx, &domain.PaymentAttempt{
		OrderID:               order.ID,
		MerchantTransactionID: merchantTxnID,
		Response:              raw,
		ResponseCode:          resp.Data.ResponseCode,
		Status:                domain.AttemptStatusVerification,
	})

	orderStatus, paymentStatus, err := s.applyGatewayState(ctx, order, resp.Data.State, resp.Data.TransactionID, raw)
	if err != nil {
		return nil, err
	}

	return &VerifyResponse{
		PaymentStatus: paymentStatus,
		OrderStatus:   orderStatus,
		TransactionID: resp.Data.TransactionID,
		Amount:        resp.Data.Amount,
		ResponseCode:  resp.Data.ResponseCode,
		State:         resp.Data.State,
	}, nil
}

// applyGatewayState writes the mapped (order, payment) statuses back to the
// order row and fires the confirmation event on a paid transition. Shared by
// the verifier and the webhook receiver so both converge identically.
func (s *PaymentService) applyGatewayState(ctx context.Context, order *domain.Order, state, gatewayTxnID string, raw []byte) (domain.OrderStatus, domain.PaymentStatus, error) {
	orderStatus, paymentStatus := domain.MapGatewayState(state)

	switch paymentStatus {
	case domain.PaymentStatusPaid:
		transitioned, err := s.repo.MarkOrderPaid(ctx, order.ID, gatewayTxnID, raw)
		if err != nil {
			return "", "", fmt.Errorf("mark order paid: %w", err)
		}
		if transitioned {
			s.publishConfirmed(ctx, order)
		}
	case domain.PaymentStatusFailed:
		if _, err := s.repo.MarkOrderFailed(ctx, order.ID, raw); err != nil {
			return "", "", fmt.Errorf("mark order failed: %w", err)
		}
	default:
		if err := s.repo.RecordGatewayResponse(ctx, order.ID, raw); err != nil {
			return "", "", fmt.Errorf("record gateway response: %w", err)
		}
	}

	return orderStatus, paymentStatus, nil
}

// publishConfirmed is fire-and-forget; notification failures must not fail
// the reconciliation call.
func (s *PaymentService) publishConfirmed(ctx context.Context, order *domain.Order) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderConfirmed(ctx, order); err != nil {
		log.Printf("failed to publish confirmation for order %v: %v", order.ID, err)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

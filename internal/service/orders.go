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

type CreateOrderRequest struct {
	UserID          string             `json:"userId,omitempty"`
	Amount          int64              `json:"amount"`
	ShippingAddress string             `json:"shippingAddress"`
	Phone           string             `json:"phone"`
	PaymentMethod   string             `json:"paymentMethod"`
	Items           []domain.OrderItem `json:"items"`
}

// CreateOrder registers a new order at checkout submission. Item prices are
// snapshots in paise; the stated total must match their sum.
func (s *PaymentService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*domain.Order, error) {
	if !ValidateAmount(req.Amount) {
		return nil, &ValidationError{Field: "amount", Reason: fmt.Sprintf("must be between %d and %d paise", MinAmount, MaxAmount)}
	}
	if !ValidatePhoneNumber(req.Phone) {
		return nil, &ValidationError{Field: "phone", Reason: "must be a 10-digit number starting with 6-9"}
	}
	if len(req.Items) == 0 {
		return nil, &ValidationError{Field: "items", Reason: "order must have at least one item"}
	}

	var itemTotal int64
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &ValidationError{Field: "items", Reason: "quantity must be positive"}
		}
		itemTotal += item.UnitPrice * int64(item.Quantity)
	}
	if itemTotal != req.Amount {
		return nil, &ValidationError{Field: "amount", Reason: "does not match sum of item prices"}
	}

	order := &domain.Order{
		ID:              uuid.New(),
		UserID:          req.UserID,
		TotalAmount:     req.Amount,
		Currency:        "INR",
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		ShippingAddress: req.ShippingAddress,
		Phone:           req.Phone,
		PaymentMethod:   req.PaymentMethod,
		Items:           req.Items,
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return order, nil
}

func (s *PaymentService) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, r.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	return order, nil
}

func (s *PaymentService) ListOrdersByPhone(ctx context.Context, phone string) ([]*domain.Order, error) {
	if !ValidatePhoneNumber(phone) {
		return nil, &ValidationError{Field: "phone", Reason: "must be a 10-digit number starting with 6-9"}
	}
	orders, err := s.repo.ListOrdersByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

var validOrderStatuses = map[domain.OrderStatus]bool{
	domain.OrderStatusPending:   true,
	domain.OrderStatusConfirmed: true,
	domain.OrderStatusShipped:   true,
	domain.OrderStatusDelivered: true,
	domain.OrderStatusCancelled: true,
}

// OverrideOrderStatus applies a direct admin status edit. A transition to
// shipped also generates the delivery OTP; the OTP code is returned so the
// admin UI can hand it to the delivery agent.
func (s *PaymentService) OverrideOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (string, error) {
	if !validOrderStatuses[status] {
		return "", &ValidationError{Field: "status", Reason: "unknown order status"}
	}

	if err := s.repo.UpdateOrderStatus(ctx, orderID, status); err != nil {
		if errors.Is(err, r.ErrOrderNotFound) {
			return "", ErrOrderNotFound
		}
		return "", fmt.Errorf("update order status: %w", err)
	}

	if status != domain.OrderStatusShipped {
		return "", nil
	}

	code, err := s.GenerateDeliveryOTP(ctx, orderID)
	if err != nil {
		// The status change already landed; surface the OTP problem
		// without rolling the order back.
		log.Printf("order %v shipped but otp generation failed: %v", orderID, err)
		return "", fmt.Errorf("generate delivery otp: %w", err)
	}
	return code, nil
}

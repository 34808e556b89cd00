package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/snackly/payments-service/internal/domain"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateOrder    = errors.New("order already exists")
	ErrOrderAlreadyFinal = errors.New("order payment already finalized")
	ErrNoOTP             = errors.New("no otp for order")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type RepoInterface interface {
	Close() error
	RunMigrations(*Credentials) error

	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetOrderByMerchantTxnID(ctx context.Context, merchantTxnID string) (*domain.Order, error)
	ListOrdersByPhone(ctx context.Context, phone string) ([]*domain.Order, error)

	// AttachMerchantTxn stores the merchant transaction id generated for a
	// payment attempt and moves the order's payment_status to pending. The
	// update carries the same terminal-state guard as MarkOrderPaid: if the
	// order went terminal since it was loaded, ErrOrderAlreadyFinal is
	// returned and nothing is written.
	AttachMerchantTxn(ctx context.Context, orderID uuid.UUID, merchantTxnID string) error

	// MarkOrderPaid transitions to (confirmed, paid) and sets paid_at. The
	// update is conditional on payment_status not already being terminal;
	// the bool result reports whether a row actually transitioned.
	MarkOrderPaid(ctx context.Context, orderID uuid.UUID, gatewayTxnID string, gatewayResponse []byte) (bool, error)

	// MarkOrderFailed transitions to (cancelled, failed) under the same
	// terminal-state guard as MarkOrderPaid.
	MarkOrderFailed(ctx context.Context, orderID uuid.UUID, gatewayResponse []byte) (bool, error)

	// RecordGatewayResponse stores the latest raw gateway payload for an
	// order that is still pending.
	RecordGatewayResponse(ctx context.Context, orderID uuid.UUID, gatewayResponse []byte) error

	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) error

	RecordPaymentAttempt(ctx context.Context, attempt *domain.PaymentAttempt) error
	ListPaymentAttempts(ctx context.Context, orderID uuid.UUID) ([]*domain.PaymentAttempt, error)

	CreateOTP(ctx context.Context, otp *domain.DeliveryOTP) error
	// GetLatestOTP returns the most recent code for the order, consumed or
	// not; consumption, expiry and attempt limits are the caller's call.
	GetLatestOTP(ctx context.Context, orderID uuid.UUID) (*domain.DeliveryOTP, error)
	MarkOTPVerified(ctx context.Context, otpID int64, orderID uuid.UUID, deliveredAt time.Time) error
	IncrementOTPAttempts(ctx context.Context, otpID int64) error
}

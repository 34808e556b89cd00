package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// IsTerminal reports whether no further payment transition is allowed.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed
}

// String representation (for logging)
func (s PaymentStatus) String() string {
	return string(s)
}

// MapGatewayState translates a gateway transaction state into the local
// (order status, payment status) pair. The mapping is total: anything the
// gateway reports besides COMPLETED or FAILED keeps the order pending.
func MapGatewayState(state string) (OrderStatus, PaymentStatus) {
	switch state {
	case "COMPLETED":
		return OrderStatusConfirmed, PaymentStatusPaid
	case "FAILED":
		return OrderStatusCancelled, PaymentStatusFailed
	default:
		return OrderStatusPending, PaymentStatusPending
	}
}

type OrderItem struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	SizeVariant string `json:"size_variant"`
	Quantity    int    `json:"quantity"`
	// UnitPrice is a snapshot in paise, immutable after creation.
	UnitPrice int64 `json:"unit_price"`
}

type Order struct {
	ID     uuid.UUID
	UserID string // empty for guest checkout

	// TotalAmount is in paise (integer minor units).
	TotalAmount   int64
	Currency      string
	Status        OrderStatus
	PaymentStatus PaymentStatus

	ShippingAddress string
	Phone           string
	PaymentMethod   string

	MerchantTransactionID *string
	GatewayTransactionID  *string
	GatewayResponse       json.RawMessage

	DeliveryOTPRequired bool
	DeliveryOTPVerified bool

	Items []OrderItem

	CreatedAt   time.Time
	UpdatedAt   time.Time
	PaidAt      *time.Time
	DeliveredAt *time.Time
}

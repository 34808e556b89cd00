package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryOTP is a 6-digit code tied to one order, consumed exactly once
// to confirm physical delivery.
type DeliveryOTP struct {
	ID        int64
	OrderID   uuid.UUID
	Code      string
	ExpiresAt time.Time
	Verified  bool
	Attempts  int
	CreatedAt time.Time
}

// Expired reports whether the code is past its validity window.
func (o *DeliveryOTP) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

type AttemptStatus string

const (
	AttemptStatusInitiated     AttemptStatus = "initiated"
	AttemptStatusRedirectReady AttemptStatus = "redirect_ready"
	AttemptStatusFailed        AttemptStatus = "failed"
	AttemptStatusVerification  AttemptStatus = "verification_attempted"
)

// WebhookAttemptStatus tags a webhook-driven attempt with the gateway state
// it carried, e.g. "webhook_completed".
func WebhookAttemptStatus(gatewayState string) AttemptStatus {
	return AttemptStatus("webhook_" + strings.ToLower(gatewayState))
}

// PaymentAttempt is an append-only audit row for one gateway interaction.
// Rows are only ever inserted, never updated.
type PaymentAttempt struct {
	ID                    int64
	OrderID               uuid.UUID
	MerchantTransactionID string
	Payload               json.RawMessage
	Response              json.RawMessage
	ResponseCode          string
	Status                AttemptStatus
	CreatedAt             time.Time
}

package service

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrNoTransaction    = errors.New("order has no merchant transaction")
	ErrOrderAlreadyPaid = errors.New("payment already processed")
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
	ErrGateway          = errors.New("gateway error")
	ErrAuthRequired     = errors.New("authentication required for this amount")
	ErrOTPNotFound      = errors.New("no active otp for order")
	ErrOTPLocked        = errors.New("otp verification locked after too many attempts")
)

// ValidationError reports a rejected input field; it never reaches the gateway.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

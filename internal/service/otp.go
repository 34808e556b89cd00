package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/snackly/payments-service/internal/domain"
	r "github.com/snackly/payments-service/internal/repository"
)

// GenerateDeliveryOTP creates a fresh 6-digit code for the order, valid for
// the configured TTL. Intended to be called when an order moves to shipped;
// the code is shown to the delivery agent.
func (s *PaymentService) GenerateDeliveryOTP(ctx context.Context, orderID uuid.UUID) (string, error) {
	if _, err := s.repo.GetOrderByID(ctx, orderID); err != nil {
		if errors.Is(err, r.ErrOrderNotFound) {
			return "", ErrOrderNotFound
		}
		return "", fmt.Errorf("load order: %w", err)
	}

	code, err := randomOTPCode()
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}

	otp := &domain.DeliveryOTP{
		OrderID:   orderID,
		Code:      code,
		ExpiresAt: s.now().Add(s.cfg.OTPTTL),
	}
	if err := s.repo.CreateOTP(ctx, otp); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}

	return code, nil
}

// VerifyDeliveryOTP checks the provided code against the order's most recent
// code. A match consumes the code, marks the order delivered and returns
// true. Consumed, expired or locked codes never verify; mismatches count
// toward a lockout.
func (s *PaymentService) VerifyDeliveryOTP(ctx context.Context, orderID uuid.UUID, providedCode string) (bool, error) {
	otp, err := s.repo.GetLatestOTP(ctx, orderID)
	if err != nil {
		if errors.Is(err, r.ErrNoOTP) {
			return false, ErrOTPNotFound
		}
		return false, fmt.Errorf("load otp: %w", err)
	}

	// An already-consumed code is a plain false, not an error: a repeat
	// verify after a successful delivery must not look like a missing order.
	if otp.Verified {
		return false, nil
	}
	if otp.Expired(s.now()) {
		return false, nil
	}
	if otp.Attempts >= s.cfg.OTPMaxAttempts {
		return false, ErrOTPLocked
	}

	if otp.Code != providedCode {
		if err := s.repo.IncrementOTPAttempts(ctx, otp.ID); err != nil {
			return false, fmt.Errorf("count otp attempt: %w", err)
		}
		return false, nil
	}

	if err := s.repo.MarkOTPVerified(ctx, otp.ID, orderID, s.now()); err != nil {
		return false, fmt.Errorf("consume otp: %w", err)
	}
	return true, nil
}

func randomOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

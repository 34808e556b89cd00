package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snackly/payments-service/internal/domain"
	r "github.com/snackly/payments-service/internal/repository"
)

func validInitiateRequest(order *domain.Order) *InitiateRequest {
	return &InitiateRequest{
		OrderID: order.ID,
		Amount:  10000,
		Customer: CustomerInfo{
			Name:  "Asha Rao",
			Email: "asha@example.com",
			Phone: "9876543210",
		},
	}
}

func TestInitiatePayment_Success(t *testing.T) {
	order := pendingOrder()
	repo := &MockRepository{Order: order}
	gw := &MockGateway{
		PayResp: successPayResponse("https://pay.example/redirect"),
		PayRaw:  []byte(`{"success":true}`),
	}
	svc := newTestService(repo, gw, &MockPublisher{})

	resp, err := svc.InitiatePayment(context.Background(), validInitiateRequest(order))

	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/redirect", resp.RedirectURL)
	assert.NotEmpty(t, resp.MerchantTransactionID)
	assert.Equal(t, order.ID, resp.OrderID)

	// Merchant txn id is stored on the order after the gateway accepts.
	assert.Equal(t, resp.MerchantTransactionID, repo.AttachedTxnID)

	// Two attempt rows: initiated, then redirect_ready.
	require.Len(t, repo.Attempts, 2)
	assert.Equal(t, domain.AttemptStatusInitiated, repo.Attempts[0].Status)
	assert.Equal(t, domain.AttemptStatusRedirectReady, repo.Attempts[1].Status)
	assert.NotEmpty(t, repo.Attempts[1].Response)

	// Gateway payload carries the hosted pay page instrument and amount.
	require.NotNil(t, gw.SentPay)
	assert.Equal(t, "PAY_PAGE", gw.SentPay.PaymentInstrument.Type)
	assert.Equal(t, int64(10000), gw.SentPay.Amount)
	assert.Equal(t, "GUEST", gw.SentPay.MerchantUserID)
	assert.Contains(t, gw.SentPay.RedirectURL, order.ID.String())
}

func TestInitiatePayment_InvalidAmount(t *testing.T) {
	order := pendingOrder()
	repo := &MockRepository{Order: order}
	gw := &MockGateway{}
	svc := newTestService(repo, gw, &MockPublisher{})

	req := validInitiateRequest(order)
	req.Amount = 50 // below the one-rupee floor

	_, err := svc.InitiatePayment(context.Background(), req)

	assert.True(t, IsValidation(err))
	assert.False(t, gw.PayCalled, "validation failures must not reach the gateway")
	assert.Empty(t, repo.Attempts)
}

func TestInitiatePayment_InvalidPhone(t *testing.T) {
	order := pendingOrder()
	svc := newTestService(&MockRepository{Order: order}, &MockGateway{}, &MockPublisher{})

	req := validInitiateRequest(order)
	req.Customer.Phone = "1234567890"

	_, err := svc.InitiatePayment(context.Background(), req)
	assert.True(t, IsValidation(err))
}

func TestInitiatePayment_LargeAmountRequiresAuth(t *testing.T) {
	order := pendingOrder()
	gw := &MockGateway{}
	svc := newTestService(&MockRepository{Order: order}, gw, &MockPublisher{})

	req := validInitiateRequest(order)
	req.Amount = 600000 // above the 500000 threshold, guest customer

	_, err := svc.InitiatePayment(context.Background(), req)
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.False(t, gw.PayCalled)

	// The same amount passes with an authenticated user.
	req.Customer.UserID = "user-42"
	gw.PayResp = successPayResponse("https://pay.example/r")
	_, err = svc.InitiatePayment(context.Background(), req)
	assert.NoError(t, err)
	assert.Equal(t, "user-42", gw.SentPay.MerchantUserID)
}

func TestInitiatePayment_GatewayFailure(t *testing.T) {
	order := pendingOrder()
	repo := &MockRepository{Order: order}
	gw := &MockGateway{
		PayErr: errors.New("connection refused"),
		PayRaw: nil,
	}
	svc := newTestService(repo, gw, &MockPublisher{})

	_, err := svc.InitiatePayment(context.Background(), validInitiateRequest(order))

	assert.ErrorIs(t, err, ErrGateway)
	// Order untouched, failure logged in the attempt trail.
	assert.Empty(t, repo.AttachedTxnID)
	require.Len(t, repo.Attempts, 2)
	assert.Equal(t, domain.AttemptStatusFailed, repo.Attempts[1].Status)
}

func TestInitiatePayment_GatewayDeclined(t *testing.T) {
	order := pendingOrder()
	repo := &MockRepository{Order: order}
	declined := successPayResponse("")
	declined.Success = false
	declined.Code = "BAD_REQUEST"

	gw := &MockGateway{PayResp: declined, PayRaw: []byte(`{"success":false}`)}
	svc := newTestService(repo, gw, &MockPublisher{})

	_, err := svc.InitiatePayment(context.Background(), validInitiateRequest(order))

	assert.ErrorIs(t, err, ErrGateway)
	assert.Contains(t, err.Error(), "BAD_REQUEST")
	assert.Empty(t, repo.AttachedTxnID)
}

func TestInitiatePayment_AlreadyPaid(t *testing.T) {
	order := pendingOrder()
	order.PaymentStatus = domain.PaymentStatusPaid
	gw := &MockGateway{}
	svc := newTestService(&MockRepository{Order: order}, gw, &MockPublisher{})

	_, err := svc.InitiatePayment(context.Background(), validInitiateRequest(order))
	assert.ErrorIs(t, err, ErrOrderAlreadyPaid)
	assert.False(t, gw.PayCalled)
}

func TestInitiatePayment_WebhookFinalizesMidFlight(t *testing.T) {
	// The order is pending when loaded, but the webhook for an earlier
	// transaction marks it paid while the gateway call is in flight; the
	// guarded attach refuses the write and the caller sees already-paid.
	order := pendingOrder()
	repo := &MockRepository{Order: order, AttachErr: r.ErrOrderAlreadyFinal}
	gw := &MockGateway{
		PayResp: successPayResponse("https://pay.example/redirect"),
		PayRaw:  []byte(`{"success":true}`),
	}
	svc := newTestService(repo, gw, &MockPublisher{})

	_, err := svc.InitiatePayment(context.Background(), validInitiateRequest(order))

	assert.ErrorIs(t, err, ErrOrderAlreadyPaid)
}

func TestInitiatePayment_UniqueTxnIDsAcrossRetries(t *testing.T) {
	order := pendingOrder()
	repo := &MockRepository{Order: order}
	gw := &MockGateway{
		PayResp: successPayResponse("https://pay.example/r"),
	}
	svc := newTestService(repo, gw, &MockPublisher{})

	first, err := svc.InitiatePayment(context.Background(), validInitiateRequest(order))
	require.NoError(t, err)
	second, err := svc.InitiatePayment(context.Background(), validInitiateRequest(order))
	require.NoError(t, err)

	assert.NotEqual(t, first.MerchantTransactionID, second.MerchantTransactionID)
}

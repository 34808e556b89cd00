package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/snackly/payments-service/internal/domain"
	"github.com/snackly/payments-service/internal/gateway"
	r "github.com/snackly/payments-service/internal/repository"
)

// MockRepository implements r.RepoInterface for testing.
type MockRepository struct {
	Order    *domain.Order
	GetErr   error
	TxnOrder *domain.Order // returned by GetOrderByMerchantTxnID
	TxnErr   error

	CreatedOrder *domain.Order
	CreateErr    error

	AttachedTxnID string
	AttachErr     error

	PaidCalled     bool
	PaidTxnID      string
	PaidResponse   []byte
	PaidTransition bool
	PaidErr        error

	FailedCalled     bool
	FailedTransition bool
	FailedErr        error

	RecordedResponse []byte

	Attempts []*domain.PaymentAttempt

	StatusUpdates []domain.OrderStatus
	StatusErr     error

	OTP          *domain.DeliveryOTP
	OTPErr       error
	CreatedOTP   *domain.DeliveryOTP
	CreateOTPErr error
	VerifiedOTP  int64
	AttemptsFor  []int64
}

func (m *MockRepository) Close() error { return nil }

func (m *MockRepository) RunMigrations(*r.Credentials) error { return nil }

func (m *MockRepository) CreateOrder(_ context.Context, order *domain.Order) error {
	m.CreatedOrder = order
	return m.CreateErr
}

func (m *MockRepository) GetOrderByID(_ context.Context, _ uuid.UUID) (*domain.Order, error) {
	return m.Order, m.GetErr
}

func (m *MockRepository) GetOrderByMerchantTxnID(_ context.Context, _ string) (*domain.Order, error) {
	return m.TxnOrder, m.TxnErr
}

func (m *MockRepository) ListOrdersByPhone(_ context.Context, _ string) ([]*domain.Order, error) {
	if m.Order == nil {
		return nil, nil
	}
	return []*domain.Order{m.Order}, nil
}

func (m *MockRepository) AttachMerchantTxn(_ context.Context, _ uuid.UUID, txnID string) error {
	m.AttachedTxnID = txnID
	return m.AttachErr
}

func (m *MockRepository) MarkOrderPaid(_ context.Context, _ uuid.UUID, gatewayTxnID string, response []byte) (bool, error) {
	m.PaidCalled = true
	m.PaidTxnID = gatewayTxnID
	m.PaidResponse = response
	return m.PaidTransition, m.PaidErr
}

func (m *MockRepository) MarkOrderFailed(_ context.Context, _ uuid.UUID, _ []byte) (bool, error) {
	m.FailedCalled = true
	return m.FailedTransition, m.FailedErr
}

func (m *MockRepository) RecordGatewayResponse(_ context.Context, _ uuid.UUID, response []byte) error {
	m.RecordedResponse = response
	return nil
}

func (m *MockRepository) UpdateOrderStatus(_ context.Context, _ uuid.UUID, status domain.OrderStatus) error {
	if m.StatusErr != nil {
		return m.StatusErr
	}
	m.StatusUpdates = append(m.StatusUpdates, status)
	return nil
}

func (m *MockRepository) RecordPaymentAttempt(_ context.Context, attempt *domain.PaymentAttempt) error {
	m.Attempts = append(m.Attempts, attempt)
	return nil
}

func (m *MockRepository) ListPaymentAttempts(_ context.Context, _ uuid.UUID) ([]*domain.PaymentAttempt, error) {
	return m.Attempts, nil
}

func (m *MockRepository) CreateOTP(_ context.Context, otp *domain.DeliveryOTP) error {
	m.CreatedOTP = otp
	return m.CreateOTPErr
}

func (m *MockRepository) GetLatestOTP(_ context.Context, _ uuid.UUID) (*domain.DeliveryOTP, error) {
	return m.OTP, m.OTPErr
}

func (m *MockRepository) MarkOTPVerified(_ context.Context, otpID int64, _ uuid.UUID, _ time.Time) error {
	m.VerifiedOTP = otpID
	return nil
}

func (m *MockRepository) IncrementOTPAttempts(_ context.Context, otpID int64) error {
	m.AttemptsFor = append(m.AttemptsFor, otpID)
	return nil
}

// MockGateway implements GatewayAPI for testing.
type MockGateway struct {
	PayResp   *gateway.PayResponse
	PayRaw    json.RawMessage
	PayErr    error
	SentPay   *gateway.PayRequest
	PayCalled bool

	StatusResp   *gateway.StatusResponse
	StatusRaw    json.RawMessage
	StatusErr    error
	StatusCalled bool
	StatusTxnID  string
}

func (m *MockGateway) Pay(_ context.Context, payload *gateway.PayRequest) (*gateway.PayResponse, json.RawMessage, error) {
	m.PayCalled = true
	m.SentPay = payload
	return m.PayResp, m.PayRaw, m.PayErr
}

func (m *MockGateway) Status(_ context.Context, merchantTxnID string) (*gateway.StatusResponse, json.RawMessage, error) {
	m.StatusCalled = true
	m.StatusTxnID = merchantTxnID
	return m.StatusResp, m.StatusRaw, m.StatusErr
}

// MockPublisher implements EventPublisher for testing.
type MockPublisher struct {
	Published []*domain.Order
	Err       error
}

func (m *MockPublisher) PublishOrderConfirmed(_ context.Context, order *domain.Order) error {
	m.Published = append(m.Published, order)
	return m.Err
}

func successPayResponse(redirectURL string) *gateway.PayResponse {
	resp := &gateway.PayResponse{
		Success: true,
		Code:    "PAYMENT_INITIATED",
	}
	resp.Data.InstrumentResponse.RedirectInfo.URL = redirectURL
	return resp
}

func statusResponse(state, txnID string, amount int64) *gateway.StatusResponse {
	return &gateway.StatusResponse{
		Success: true,
		Code:    "PAYMENT_SUCCESS",
		Data: gateway.TransactionData{
			MerchantTransactionID: "TXN-1",
			TransactionID:         txnID,
			State:                 state,
			ResponseCode:          "SUCCESS",
			Amount:                amount,
		},
	}
}

func pendingOrder() *domain.Order {
	txn := "TXN-1"
	return &domain.Order{
		ID:            uuid.New(),
		TotalAmount:   10000,
		Currency:      "INR",
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		Phone:         "9876543210",

		MerchantTransactionID: &txn,
	}
}

func newTestService(repo *MockRepository, gw *MockGateway, events *MockPublisher) *PaymentService {
	return NewPaymentService(repo, gw, events, Config{
		MerchantID:      "MERCHANT1",
		RedirectBaseURL: "https://shop.example/payment/result",
		CallbackURL:     "https://api.shop.example/api/v1/payments/webhook",
		AuthThreshold:   500000,
		WebhookSaltKey:  "test-salt",
		OTPTTL:          24 * time.Hour,
		OTPMaxAttempts:  5,
	})
}

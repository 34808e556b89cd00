package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snackly/payments-service/internal/domain"
)

func validCreateOrderRequest() *CreateOrderRequest {
	return &CreateOrderRequest{
		Amount:          10000,
		ShippingAddress: "12 MG Road, Bengaluru",
		Phone:           "9876543210",
		PaymentMethod:   "phonepe",
		Items: []domain.OrderItem{
			{ProductID: 1, ProductName: "Masala Banana Chips", SizeVariant: "250g", Quantity: 2, UnitPrice: 5000},
		},
	}
}

func TestCreateOrder_Success(t *testing.T) {
	repo := &MockRepository{}
	svc := newTestService(repo, &MockGateway{}, &MockPublisher{})

	order, err := svc.CreateOrder(context.Background(), validCreateOrderRequest())

	require.NoError(t, err)
	assert.NotEqual(t, "", order.ID.String())
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, domain.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, "INR", order.Currency)
	require.NotNil(t, repo.CreatedOrder)
	assert.Equal(t, int64(10000), repo.CreatedOrder.TotalAmount)
}

func TestCreateOrder_AmountMismatch(t *testing.T) {
	svc := newTestService(&MockRepository{}, &MockGateway{}, &MockPublisher{})

	req := validCreateOrderRequest()
	req.Amount = 9999 // items sum to 10000

	_, err := svc.CreateOrder(context.Background(), req)
	assert.True(t, IsValidation(err))
}

func TestCreateOrder_NoItems(t *testing.T) {
	svc := newTestService(&MockRepository{}, &MockGateway{}, &MockPublisher{})

	req := validCreateOrderRequest()
	req.Items = nil

	_, err := svc.CreateOrder(context.Background(), req)
	assert.True(t, IsValidation(err))
}

func TestOverrideOrderStatus_ShippedGeneratesOTP(t *testing.T) {
	order := pendingOrder()
	repo := &MockRepository{Order: order}
	svc := newTestService(repo, &MockGateway{}, &MockPublisher{})

	code, err := svc.OverrideOrderStatus(context.Background(), order.ID, domain.OrderStatusShipped)

	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Equal(t, []domain.OrderStatus{domain.OrderStatusShipped}, repo.StatusUpdates)
	require.NotNil(t, repo.CreatedOTP)
}

func TestOverrideOrderStatus_NonShippedSkipsOTP(t *testing.T) {
	order := pendingOrder()
	repo := &MockRepository{Order: order}
	svc := newTestService(repo, &MockGateway{}, &MockPublisher{})

	code, err := svc.OverrideOrderStatus(context.Background(), order.ID, domain.OrderStatusConfirmed)

	require.NoError(t, err)
	assert.Empty(t, code)
	assert.Nil(t, repo.CreatedOTP)
}

func TestOverrideOrderStatus_UnknownStatus(t *testing.T) {
	svc := newTestService(&MockRepository{}, &MockGateway{}, &MockPublisher{})

	_, err := svc.OverrideOrderStatus(context.Background(), pendingOrder().ID, "lost")
	assert.True(t, IsValidation(err))
}

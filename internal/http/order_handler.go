package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/snackly/payments-service/internal/domain"
	"github.com/snackly/payments-service/internal/service"
)

// OrderAPI is the slice of the service layer the order handlers use.
type OrderAPI interface {
	CreateOrder(ctx context.Context, req *service.CreateOrderRequest) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	ListOrdersByPhone(ctx context.Context, phone string) ([]*domain.Order, error)
	OverrideOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (string, error)
	GenerateDeliveryOTP(ctx context.Context, orderID uuid.UUID) (string, error)
	VerifyDeliveryOTP(ctx context.Context, orderID uuid.UUID, code string) (bool, error)
}

type OrderHandler struct {
	orders  OrderAPI
	timeout time.Duration
}

func NewOrderHandler(orders OrderAPI, timeout time.Duration) *OrderHandler {
	return &OrderHandler{
		orders:  orders,
		timeout: timeout,
	}
}

type OrderItemDTO struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	SizeVariant string `json:"size_variant"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
}

type OrderDTO struct {
	ID                  string         `json:"id"`
	TotalAmount         int64          `json:"total_amount"`
	Currency            string         `json:"currency"`
	Status              string         `json:"status"`
	PaymentStatus       string         `json:"payment_status"`
	ShippingAddress     string         `json:"shipping_address"`
	Phone               string         `json:"phone"`
	PaymentMethod       string         `json:"payment_method"`
	DeliveryOTPVerified bool           `json:"delivery_otp_verified"`
	Items               []OrderItemDTO `json:"items"`
	CreatedAt           time.Time      `json:"created_at"`
	PaidAt              *time.Time     `json:"paid_at,omitempty"`
	DeliveredAt         *time.Time     `json:"delivered_at,omitempty"`
}

func toOrderDTO(order *domain.Order) OrderDTO {
	dto := OrderDTO{
		ID:                  order.ID.String(),
		TotalAmount:         order.TotalAmount,
		Currency:            order.Currency,
		Status:              string(order.Status),
		PaymentStatus:       string(order.PaymentStatus),
		ShippingAddress:     order.ShippingAddress,
		Phone:               order.Phone,
		PaymentMethod:       order.PaymentMethod,
		DeliveryOTPVerified: order.DeliveryOTPVerified,
		CreatedAt:           order.CreatedAt,
		PaidAt:              order.PaidAt,
		DeliveredAt:         order.DeliveredAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			SizeVariant: item.SizeVariant,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return dto
}

// POST /api/v1/orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req service.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body")
		return
	}

	order, err := h.orders.CreateOrder(ctx, &req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toOrderDTO(order))
}

// GET /api/v1/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "id must be a valid uuid")
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toOrderDTO(order))
}

// GET /api/v1/orders?phone=
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	phone := r.URL.Query().Get("phone")
	if phone == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "phone query parameter is required")
		return
	}

	orders, err := h.orders.ListOrdersByPhone(ctx, phone)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	dtos := make([]OrderDTO, 0, len(orders))
	for _, order := range orders {
		dtos = append(dtos, toOrderDTO(order))
	}
	respondJSON(w, http.StatusOK, dtos)
}

type StatusOverrideDTO struct {
	Status string `json:"status"`
}

type StatusOverrideResponseDTO struct {
	Success     bool   `json:"success"`
	Status      string `json:"status"`
	DeliveryOTP string `json:"deliveryOtp,omitempty"`
}

// PATCH /api/v1/admin/orders/{id}/status
func (h *OrderHandler) OverrideStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "id must be a valid uuid")
		return
	}

	var req StatusOverrideDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body")
		return
	}

	code, err := h.orders.OverrideOrderStatus(ctx, orderID, domain.OrderStatus(req.Status))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, StatusOverrideResponseDTO{
		Success:     true,
		Status:      req.Status,
		DeliveryOTP: code,
	})
}

type GenerateOTPResponseDTO struct {
	Success bool   `json:"success"`
	OTP     string `json:"otp"`
}

// POST /api/v1/admin/orders/{id}/otp
func (h *OrderHandler) GenerateOTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "id must be a valid uuid")
		return
	}

	code, err := h.orders.GenerateDeliveryOTP(ctx, orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, GenerateOTPResponseDTO{Success: true, OTP: code})
}

type VerifyOTPRequestDTO struct {
	OTP string `json:"otp"`
}

type VerifyOTPResponseDTO struct {
	Success  bool `json:"success"`
	Verified bool `json:"verified"`
}

// POST /api/v1/admin/orders/{id}/otp/verify
func (h *OrderHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "id must be a valid uuid")
		return
	}

	var req VerifyOTPRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body")
		return
	}
	if req.OTP == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "otp is required")
		return
	}

	verified, err := h.orders.VerifyDeliveryOTP(ctx, orderID, req.OTP)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, VerifyOTPResponseDTO{Success: true, Verified: verified})
}

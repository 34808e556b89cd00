package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/snackly/payments-service/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "payments_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create order tx: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO orders
	          (id, user_id, total_amount, currency, status, payment_status,
	           shipping_address, phone, payment_method, delivery_otp_required,
	           created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())`

	_, insertErr := tx.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		order.TotalAmount,
		order.Currency,
		order.Status,
		order.PaymentStatus,
		order.ShippingAddress,
		order.Phone,
		order.PaymentMethod,
		order.DeliveryOTPRequired)

	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}

	itemQuery := `INSERT INTO order_items
	              (order_id, product_id, product_name, size_variant, quantity, unit_price)
	              VALUES ($1, $2, $3, $4, $5, $6)`
	for _, item := range order.Items {
		if _, err := tx.ExecContext(ctx, itemQuery,
			order.ID,
			item.ProductID,
			item.ProductName,
			item.SizeVariant,
			item.Quantity,
			item.UnitPrice); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit()
}

const orderColumns = `id, user_id, total_amount, currency, status, payment_status,
	shipping_address, phone, payment_method, merchant_transaction_id,
	gateway_transaction_id, gateway_response, delivery_otp_required,
	delivery_otp_verified, created_at, updated_at, paid_at, delivered_at`

func (r *Repository) scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	var order domain.Order
	var gatewayResponse []byte
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.TotalAmount,
		&order.Currency,
		&order.Status,
		&order.PaymentStatus,
		&order.ShippingAddress,
		&order.Phone,
		&order.PaymentMethod,
		&order.MerchantTransactionID,
		&order.GatewayTransactionID,
		&gatewayResponse,
		&order.DeliveryOTPRequired,
		&order.DeliveryOTPVerified,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.PaidAt,
		&order.DeliveredAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order row: %w", err)
	}
	order.GatewayResponse = gatewayResponse
	return &order, nil
}

func (r *Repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := r.scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) GetOrderByMerchantTxnID(ctx context.Context, merchantTxnID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE merchant_transaction_id = $1`

	order, err := r.scanOrder(r.db.QueryRowContext(ctx, query, merchantTxnID))
	if err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) ListOrdersByPhone(ctx context.Context, phone string) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE phone = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, phone)
	if err != nil {
		return nil, fmt.Errorf("query orders by phone: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for _, order := range orders {
		if err := r.loadItems(ctx, order); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

func (r *Repository) loadItems(ctx context.Context, order *domain.Order) error {
	query := `SELECT product_id, product_name, size_variant, quantity, unit_price
	          FROM order_items WHERE order_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, order.ID)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ProductID,
			&item.ProductName,
			&item.SizeVariant,
			&item.Quantity,
			&item.UnitPrice); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}

// AttachMerchantTxn carries the terminal-state guard too: the order may have
// gone paid (webhook) or failed between the service loading it and the
// gateway call finishing, and attaching must not pull it back to pending.
func (r *Repository) AttachMerchantTxn(ctx context.Context, orderID uuid.UUID, merchantTxnID string) error {
	query := `UPDATE orders
	          SET merchant_transaction_id = $2, payment_status = $3, updated_at = NOW()
	          WHERE id = $1 AND payment_status NOT IN ('paid', 'failed')`

	result, err := r.db.ExecContext(ctx, query, orderID, merchantTxnID, domain.PaymentStatusPending)
	if err != nil {
		return fmt.Errorf("attach merchant txn: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("attach merchant txn rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
			return fmt.Errorf("attach merchant txn lookup: %w", err)
		}
		if !exists {
			return ErrOrderNotFound
		}
		return ErrOrderAlreadyFinal
	}
	return nil
}

// MarkOrderPaid is a conditional write: the WHERE clause refuses to downgrade
// or re-apply a terminal payment_status, which makes concurrent verifier and
// webhook writes converge on a single transition.
func (r *Repository) MarkOrderPaid(ctx context.Context, orderID uuid.UUID, gatewayTxnID string, gatewayResponse []byte) (bool, error) {
	query := `UPDATE orders
	          SET status = $2, payment_status = $3, gateway_transaction_id = $4,
	              gateway_response = $5, paid_at = NOW(), updated_at = NOW()
	          WHERE id = $1 AND payment_status NOT IN ('paid', 'failed')`

	result, err := r.db.ExecContext(ctx, query, orderID,
		domain.OrderStatusConfirmed, domain.PaymentStatusPaid, gatewayTxnID, gatewayResponse)
	if err != nil {
		return false, fmt.Errorf("mark order paid: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark order paid rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *Repository) MarkOrderFailed(ctx context.Context, orderID uuid.UUID, gatewayResponse []byte) (bool, error) {
	query := `UPDATE orders
	          SET status = $2, payment_status = $3, gateway_response = $4, updated_at = NOW()
	          WHERE id = $1 AND payment_status NOT IN ('paid', 'failed')`

	result, err := r.db.ExecContext(ctx, query, orderID,
		domain.OrderStatusCancelled, domain.PaymentStatusFailed, gatewayResponse)
	if err != nil {
		return false, fmt.Errorf("mark order failed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark order failed rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *Repository) RecordGatewayResponse(ctx context.Context, orderID uuid.UUID, gatewayResponse []byte) error {
	query := `UPDATE orders SET gateway_response = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, orderID, gatewayResponse)
	if err != nil {
		return fmt.Errorf("record gateway response: %w", err)
	}
	return requireRow(result)
}

func (r *Repository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) error {
	query := `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, orderID, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return requireRow(result)
}

func (r *Repository) RecordPaymentAttempt(ctx context.Context, attempt *domain.PaymentAttempt) error {
	query := `INSERT INTO payment_attempts
	          (order_id, merchant_transaction_id, payload, response, response_code, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, NOW())`

	_, err := r.db.ExecContext(ctx, query,
		attempt.OrderID,
		attempt.MerchantTransactionID,
		[]byte(attempt.Payload),
		[]byte(attempt.Response),
		attempt.ResponseCode,
		attempt.Status)
	if err != nil {
		return fmt.Errorf("insert payment attempt: %w", err)
	}
	return nil
}

func (r *Repository) ListPaymentAttempts(ctx context.Context, orderID uuid.UUID) ([]*domain.PaymentAttempt, error) {
	query := `SELECT id, order_id, merchant_transaction_id, payload, response, response_code, status, created_at
	          FROM payment_attempts WHERE order_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query payment attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*domain.PaymentAttempt
	for rows.Next() {
		var a domain.PaymentAttempt
		var payload, response []byte
		if err := rows.Scan(
			&a.ID,
			&a.OrderID,
			&a.MerchantTransactionID,
			&payload,
			&response,
			&a.ResponseCode,
			&a.Status,
			&a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment attempt: %w", err)
		}
		a.Payload = payload
		a.Response = response
		attempts = append(attempts, &a)
	}
	return attempts, rows.Err()
}

func (r *Repository) CreateOTP(ctx context.Context, otp *domain.DeliveryOTP) error {
	query := `INSERT INTO order_otps (order_id, code, expires_at, verified, attempts, created_at)
	          VALUES ($1, $2, $3, false, 0, NOW())`

	_, err := r.db.ExecContext(ctx, query, otp.OrderID, otp.Code, otp.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert order otp: %w", err)
	}
	return nil
}

func (r *Repository) GetLatestOTP(ctx context.Context, orderID uuid.UUID) (*domain.DeliveryOTP, error) {
	query := `SELECT id, order_id, code, expires_at, verified, attempts, created_at
	          FROM order_otps WHERE order_id = $1
	          ORDER BY created_at DESC LIMIT 1`

	var otp domain.DeliveryOTP
	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&otp.ID,
		&otp.OrderID,
		&otp.Code,
		&otp.ExpiresAt,
		&otp.Verified,
		&otp.Attempts,
		&otp.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoOTP
	}
	if err != nil {
		return nil, fmt.Errorf("query latest otp: %w", err)
	}
	return &otp, nil
}

// MarkOTPVerified consumes the code and flips the order's delivery fields in
// one transaction so a concurrent verify cannot consume it twice.
func (r *Repository) MarkOTPVerified(ctx context.Context, otpID int64, orderID uuid.UUID, deliveredAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin otp verify tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE order_otps SET verified = true WHERE id = $1 AND verified = false`, otpID)
	if err != nil {
		return fmt.Errorf("mark otp verified: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE orders
		 SET delivery_otp_verified = true, status = $2, delivered_at = $3, updated_at = NOW()
		 WHERE id = $1`,
		orderID, domain.OrderStatusDelivered, deliveredAt)
	if err != nil {
		return fmt.Errorf("mark order delivered: %w", err)
	}

	return tx.Commit()
}

func (r *Repository) IncrementOTPAttempts(ctx context.Context, otpID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE order_otps SET attempts = attempts + 1 WHERE id = $1`, otpID)
	if err != nil {
		return fmt.Errorf("increment otp attempts: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

package order

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shopcore/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const orderColumns = `
id::text, number, user_id::text, COALESCE(customer_name, ''), COALESCE(customer_email, ''),
status, payment_status, payment_method, shipping_method,
subtotal_cents, tax_cents, shipping_cents, discount_cents, total_cents, refunded_cents,
coupon_code, shipping_address, tracking_number, carrier,
placed_at, shipped_at, delivered_at, estimated_delivery,
cancel_reason, COALESCE(customer_note, ''), transaction_id, created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, o *domain.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `
INSERT INTO orders (
	id, number, user_id, customer_name, customer_email, status, payment_status, payment_method, shipping_method,
	subtotal_cents, tax_cents, shipping_cents, discount_cents, total_cents,
	coupon_code, shipping_address, placed_at, estimated_delivery, customer_note
)
VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NULLIF($19, ''))
RETURNING created_at, updated_at
`
	if err := tx.QueryRow(ctx, q,
		o.ID,
		o.Number,
		o.UserID,
		o.CustomerName,
		o.CustomerEmail,
		string(o.Status),
		string(o.PaymentStatus),
		o.PaymentMethod,
		o.ShippingMethod,
		o.SubtotalCents,
		o.TaxCents,
		o.ShippingCents,
		o.DiscountCents,
		o.TotalCents,
		o.CouponCode,
		o.ShippingAddress,
		o.PlacedAt,
		o.EstimatedDelivery,
		o.CustomerNote,
	).Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
		return err
	}

	const itemQ = `
INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price_cents, total_cents)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		if _, err := tx.Exec(ctx, itemQ, it.ID, it.OrderID, it.ProductID, it.ProductName, it.Quantity, it.UnitPriceCents, it.TotalCents); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	r.logger.Printf("order repo: created id=%s number=%s items=%d total_cents=%d", o.ID, o.Number, len(o.Items), o.TotalCents)
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.fetchOrder(ctx, q, id)
}

func (r *postgresRepo) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE number = $1`
	return r.fetchOrder(ctx, q, number)
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY placed_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, patch StatusPatch) (bool, error) {
	const q = `
UPDATE orders
SET status = $3,
    tracking_number = COALESCE($4, tracking_number),
    carrier = COALESCE($5, carrier),
    shipped_at = COALESCE($6, shipped_at),
    delivered_at = COALESCE($7, delivered_at),
    estimated_delivery = COALESCE($8, estimated_delivery),
    cancel_reason = COALESCE($9, cancel_reason),
    updated_at = now()
WHERE id = $1 AND status = $2
`
	cmd, err := r.pool.Exec(ctx, q, id, string(from), string(to),
		patch.TrackingNumber, patch.Carrier, patch.ShippedAt, patch.DeliveredAt, patch.EstimatedDelivery, patch.CancelReason)
	if err != nil {
		return false, err
	}
	applied := cmd.RowsAffected() == 1
	if applied {
		r.logger.Printf("order repo: id=%s status %s -> %s", id, from, to)
	}
	return applied, nil
}

func (r *postgresRepo) UpdatePayment(ctx context.Context, id string, from, to domain.PaymentStatus, transactionID *string) (bool, error) {
	const q = `
UPDATE orders
SET payment_status = $3,
    transaction_id = COALESCE($4, transaction_id),
    updated_at = now()
WHERE id = $1 AND payment_status = $2
`
	cmd, err := r.pool.Exec(ctx, q, id, string(from), string(to), transactionID)
	if err != nil {
		return false, err
	}
	applied := cmd.RowsAffected() == 1
	if applied {
		r.logger.Printf("order repo: id=%s payment %s -> %s", id, from, to)
	}
	return applied, nil
}

func (r *postgresRepo) AddRefund(ctx context.Context, id string, amountCents int64, reason string) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	const q = `
UPDATE orders
SET refunded_cents = refunded_cents + $2,
    payment_status = CASE WHEN refunded_cents + $2 >= total_cents THEN 'REFUNDED' ELSE payment_status END,
    updated_at = now()
WHERE id = $1
  AND status = 'DELIVERED'
  AND payment_status = 'PAID'
  AND refunded_cents + $2 <= total_cents
`
	cmd, err := tx.Exec(ctx, q, id, amountCents)
	if err != nil {
		return false, err
	}
	if cmd.RowsAffected() == 0 {
		return false, nil
	}

	const insQ = `
INSERT INTO order_refunds (order_id, amount_cents, reason)
VALUES ($1, $2, NULLIF($3, ''))
`
	if _, err := tx.Exec(ctx, insQ, id, amountCents, reason); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	r.logger.Printf("order repo: id=%s refunded %d cents", id, amountCents)
	return true, nil
}

func (r *postgresRepo) fetchOrder(ctx context.Context, q string, arg interface{}) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, q, arg))
	if err != nil {
		return nil, err
	}

	const itemsQ = `
SELECT id::text, order_id::text, product_id::text, product_name, quantity, unit_price_cents, total_cents
FROM order_items
WHERE order_id = $1
ORDER BY id ASC
`
	rows, err := r.pool.Query(ctx, itemsQ, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPriceCents, &it.TotalCents); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return o, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var status, payment string
	err := row.Scan(
		&o.ID,
		&o.Number,
		&o.UserID,
		&o.CustomerName,
		&o.CustomerEmail,
		&status,
		&payment,
		&o.PaymentMethod,
		&o.ShippingMethod,
		&o.SubtotalCents,
		&o.TaxCents,
		&o.ShippingCents,
		&o.DiscountCents,
		&o.TotalCents,
		&o.RefundedCents,
		&o.CouponCode,
		&o.ShippingAddress,
		&o.TrackingNumber,
		&o.Carrier,
		&o.PlacedAt,
		&o.ShippedAt,
		&o.DeliveredAt,
		&o.EstimatedDelivery,
		&o.CancelReason,
		&o.CustomerNote,
		&o.TransactionID,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	o.PaymentStatus = domain.PaymentStatus(payment)
	return &o, nil
}

package cart

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shopcore/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

const cartColumns = `id::text, user_id::text, session_token, status, coupon_code, discount_cents, share_token, share_expires_at, created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, in CreateCartInput) (*domain.Cart, error) {
	const q = `
INSERT INTO carts (user_id, session_token, status)
VALUES ($1, $2, 'ACTIVE')
RETURNING ` + cartColumns
	return r.scanCart(r.pool.QueryRow(ctx, q, in.UserID, in.SessionToken))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Cart, error) {
	const q = `SELECT ` + cartColumns + ` FROM carts WHERE id = $1`
	return r.fetchCart(ctx, q, id)
}

func (r *postgresRepo) GetActiveByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	const q = `
SELECT ` + cartColumns + `
FROM carts
WHERE user_id = $1 AND status = 'ACTIVE'
ORDER BY created_at DESC
LIMIT 1
`
	return r.fetchCart(ctx, q, userID)
}

func (r *postgresRepo) GetActiveBySession(ctx context.Context, token string) (*domain.Cart, error) {
	const q = `
SELECT ` + cartColumns + `
FROM carts
WHERE session_token = $1 AND status = 'ACTIVE'
ORDER BY created_at DESC
LIMIT 1
`
	return r.fetchCart(ctx, q, token)
}

func (r *postgresRepo) UpsertItem(ctx context.Context, cartID, productID string, qty int, unitPriceCents int64) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `
INSERT INTO cart_items (cart_id, product_id, quantity, unit_price_cents, total_cents)
VALUES ($1, $2, $3, $4, $3 * $4)
ON CONFLICT (cart_id, product_id) DO UPDATE
SET quantity = cart_items.quantity + EXCLUDED.quantity,
    total_cents = (cart_items.quantity + EXCLUDED.quantity) * cart_items.unit_price_cents
`
	if _, err := tx.Exec(ctx, q, cartID, productID, qty, unitPriceCents); err != nil {
		return err
	}
	if err := touchCart(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) SetItemQuantity(ctx context.Context, cartID, productID string, qty int) error {
	if qty <= 0 {
		return r.RemoveItem(ctx, cartID, productID)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `
UPDATE cart_items
SET quantity = $3, total_cents = $3 * unit_price_cents
WHERE cart_id = $1 AND product_id = $2
`
	cmd, err := tx.Exec(ctx, q, cartID, productID, qty)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	if err := touchCart(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) RemoveItem(ctx context.Context, cartID, productID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	if err := touchCart(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) Clear(ctx context.Context, cartID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return err
	}
	if err := touchCart(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) SetCoupon(ctx context.Context, cartID string, code *string, discountCents int64) error {
	const q = `
UPDATE carts
SET coupon_code = $2, discount_cents = $3, updated_at = now()
WHERE id = $1
`
	cmd, err := r.pool.Exec(ctx, q, cartID, code, discountCents)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) SetShareToken(ctx context.Context, cartID, token string, expiresAt time.Time) error {
	const q = `
UPDATE carts
SET share_token = $2, share_expires_at = $3, updated_at = now()
WHERE id = $1
`
	cmd, err := r.pool.Exec(ctx, q, cartID, token, expiresAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) SetStatus(ctx context.Context, cartID string, from, to domain.CartStatus) (bool, error) {
	const q = `
UPDATE carts
SET status = $3, updated_at = now()
WHERE id = $1 AND status = $2
`
	cmd, err := r.pool.Exec(ctx, q, cartID, string(from), string(to))
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *postgresRepo) Delete(ctx context.Context, cartID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) ListIdleBefore(ctx context.Context, status domain.CartStatus, cutoff time.Time, limit int) ([]string, error) {
	const q = `
SELECT id::text
FROM carts
WHERE status = $1 AND updated_at < $2
ORDER BY updated_at ASC
LIMIT $3
`
	rows, err := r.pool.Query(ctx, q, string(status), cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresRepo) fetchCart(ctx context.Context, q string, args ...interface{}) (*domain.Cart, error) {
	cart, err := r.scanCart(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, err
	}

	const itemsQuery = `
SELECT id::text, cart_id::text, product_id::text, quantity, unit_price_cents, total_cents, created_at
FROM cart_items
WHERE cart_id = $1
ORDER BY created_at ASC
`
	rows, err := r.pool.Query(ctx, itemsQuery, cart.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPriceCents,
			&item.TotalCents,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return cart, nil
}

func (r *postgresRepo) scanCart(row pgx.Row) (*domain.Cart, error) {
	var cart domain.Cart
	var status string
	err := row.Scan(
		&cart.ID,
		&cart.UserID,
		&cart.SessionToken,
		&status,
		&cart.CouponCode,
		&cart.DiscountCents,
		&cart.ShareToken,
		&cart.ShareExpiresAt,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	cart.Status = domain.CartStatus(status)
	return &cart, nil
}

// touchCart bumps updated_at and holds the ACTIVE cart row for the rest
// of the enclosing transaction. Item mutations therefore serialize with
// a concurrent checkout claim on the same row: whichever commits first
// decides whether the line lands in the cart or the mutation fails.
func touchCart(ctx context.Context, tx pgx.Tx, cartID string) error {
	cmd, err := tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1 AND status = 'ACTIVE'`, cartID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var status string
		if err := tx.QueryRow(ctx, `SELECT status FROM carts WHERE id = $1`, cartID).Scan(&status); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}
		return errors.New("cart is not active")
	}
	return nil
}

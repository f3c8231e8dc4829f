package stock

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shopcore/internal/domain"
)

type postgresLedger struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgres returns a Ledger backed by the product_stock table. Each
// mutation is a single guarded UPDATE, so concurrent calls for the same
// product serialize on the row while different products proceed
// independently.
func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Ledger {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresLedger{pool: pool, logger: logger}
}

func (l *postgresLedger) Reserve(ctx context.Context, productID string, qty int) error {
	if err := checkQty(qty); err != nil {
		return err
	}
	const q = `
UPDATE product_stock
SET reserved = reserved + $2, updated_at = now()
WHERE product_id = $1 AND on_hand - reserved >= $2
`
	ct, err := l.pool.Exec(ctx, q, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	// The guard rejected the update: either the row is missing or the
	// remaining availability is short. Re-read to tell the two apart.
	level, err := l.Query(ctx, productID)
	if err != nil {
		return err
	}
	return &domain.InsufficientStockError{
		ProductID: productID,
		Requested: qty,
		Available: level.Available(),
	}
}

func (l *postgresLedger) Release(ctx context.Context, productID string, qty int) error {
	if err := checkQty(qty); err != nil {
		return err
	}
	const q = `
UPDATE product_stock
SET reserved = reserved - LEAST(reserved, $2), updated_at = now()
WHERE product_id = $1
`
	ct, err := l.pool.Exec(ctx, q, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (l *postgresLedger) Deduct(ctx context.Context, productID string, qty int) error {
	if err := checkQty(qty); err != nil {
		return err
	}
	const q = `
UPDATE product_stock
SET on_hand = on_hand - $2, reserved = reserved - $2, updated_at = now()
WHERE product_id = $1 AND reserved >= $2
`
	ct, err := l.pool.Exec(ctx, q, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	if _, err := l.Query(ctx, productID); err != nil {
		return err
	}
	stateErr := &domain.InvalidStateError{
		Detail: "deduct exceeds reserved for product " + productID,
	}
	l.logger.Printf("stock ledger: %v", stateErr)
	return stateErr
}

func (l *postgresLedger) Query(ctx context.Context, productID string) (domain.StockLevel, error) {
	const q = `
SELECT product_id::text, on_hand, reserved
FROM product_stock
WHERE product_id = $1
`
	var level domain.StockLevel
	err := l.pool.QueryRow(ctx, q, productID).Scan(&level.ProductID, &level.OnHand, &level.Reserved)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StockLevel{}, domain.ErrNotFound
		}
		return domain.StockLevel{}, err
	}
	return level, nil
}

func (l *postgresLedger) SetOnHand(ctx context.Context, productID string, onHand int) error {
	if onHand < 0 {
		return errNonPositiveQty
	}
	const q = `
INSERT INTO product_stock (product_id, on_hand, reserved)
VALUES ($1, $2, 0)
ON CONFLICT (product_id) DO UPDATE
SET on_hand = EXCLUDED.on_hand, updated_at = now()
WHERE product_stock.reserved <= EXCLUDED.on_hand
`
	ct, err := l.pool.Exec(ctx, q, productID, onHand)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return &domain.InvalidStateError{
			Detail: "cannot lower on-hand below reserved for product " + productID,
		}
	}
	return nil
}

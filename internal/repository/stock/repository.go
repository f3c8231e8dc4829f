package stock

import (
	"context"
	"errors"

	"shopcore/internal/domain"
)

// Ledger is the per-product stock counter contract. Mutations on one
// product are serialized relative to each other; different products are
// independent. Every mutation is atomic: it either fully applies or
// leaves the counters untouched.
type Ledger interface {
	// Reserve increments the reserved counter by qty, failing with
	// *domain.InsufficientStockError when fewer than qty units are
	// available. No partial reservation.
	Reserve(ctx context.Context, productID string, qty int) error

	// Release decrements the reserved counter by at most qty, clamping
	// at zero. Safe against over-release.
	Release(ctx context.Context, productID string, qty int) error

	// Deduct finalizes a fulfilled reservation: both on-hand and
	// reserved drop by qty. Deducting more than was reserved is a
	// programming error and fails with *domain.InvalidStateError.
	Deduct(ctx context.Context, productID string, qty int) error

	// Query returns a snapshot of the counters.
	Query(ctx context.Context, productID string) (domain.StockLevel, error)
}

// Adjuster is implemented by ledgers that support seeding and admin
// restock of the on-hand counter.
type Adjuster interface {
	SetOnHand(ctx context.Context, productID string, onHand int) error
}

var errNonPositiveQty = errors.New("quantity must be positive")

func checkQty(qty int) error {
	if qty <= 0 {
		return errNonPositiveQty
	}
	return nil
}

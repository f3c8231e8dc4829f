package cart

import (
	"context"
	"time"

	"shopcore/internal/domain"
)

type CreateCartInput struct {
	UserID       *string
	SessionToken *string
}

// Repository is the durable cart store. Line items are unique per
// product within a cart; mutations touch the cart's updated_at so the
// maintenance janitor can find idle carts.
type Repository interface {
	Create(ctx context.Context, in CreateCartInput) (*domain.Cart, error)
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	GetActiveByUser(ctx context.Context, userID string) (*domain.Cart, error)
	GetActiveBySession(ctx context.Context, token string) (*domain.Cart, error)

	// UpsertItem adds qty to the product's line, creating it with the
	// given unit price when absent.
	UpsertItem(ctx context.Context, cartID, productID string, qty int, unitPriceCents int64) error
	// SetItemQuantity replaces the line's quantity; qty <= 0 removes it.
	SetItemQuantity(ctx context.Context, cartID, productID string, qty int) error
	RemoveItem(ctx context.Context, cartID, productID string) error
	Clear(ctx context.Context, cartID string) error

	SetCoupon(ctx context.Context, cartID string, code *string, discountCents int64) error
	SetShareToken(ctx context.Context, cartID, token string, expiresAt time.Time) error

	// SetStatus transitions the cart from one status to another and
	// reports whether the conditional update applied. A false return
	// means the cart was not in the expected status (or is missing).
	SetStatus(ctx context.Context, cartID string, from, to domain.CartStatus) (bool, error)

	Delete(ctx context.Context, cartID string) error

	// ListIdleBefore returns IDs of carts in the given status whose last
	// update predates the cutoff, oldest first.
	ListIdleBefore(ctx context.Context, status domain.CartStatus, cutoff time.Time, limit int) ([]string, error)
}

package order

import (
	"context"
	"time"

	"shopcore/internal/domain"
)

// StatusPatch carries the fields a status transition may set alongside
// the new status.
type StatusPatch struct {
	TrackingNumber    *string
	Carrier           *string
	ShippedAt         *time.Time
	DeliveredAt       *time.Time
	EstimatedDelivery *time.Time
	CancelReason      *string
}

// Repository is the durable order store. Orders are never hard-deleted;
// their lifecycle is driven entirely by the conditional updates below,
// which serialize concurrent transitions on one order: the update applies
// only when the order is still in the expected source state, so exactly
// one of two racing transitions wins.
type Repository interface {
	// Create persists the order and its items atomically.
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)

	// UpdateStatus moves the order from one status to another, applying
	// the patch. Reports whether the conditional update applied.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, patch StatusPatch) (bool, error)

	// UpdatePayment moves the payment sub-state, recording the gateway
	// transaction ID when entering PAID.
	UpdatePayment(ctx context.Context, id string, from, to domain.PaymentStatus, transactionID *string) (bool, error)

	// AddRefund records a refund and accumulates refunded_cents, only
	// when the order is DELIVERED, PAID, and the cumulative amount stays
	// within the order total. Marks the payment REFUNDED once refunds
	// reach the total. Reports whether it applied.
	AddRefund(ctx context.Context, id string, amountCents int64, reason string) (bool, error)
}

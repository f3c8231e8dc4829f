package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
)

// InsufficientStockError is returned when a reservation asks for more
// units than are available. It is a recoverable, user-facing condition.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// InvalidTransitionError is returned when a state-machine operation is
// attempted from a status that does not allow it. It is never retried
// automatically; Current carries the status actually observed.
type InvalidTransitionError struct {
	OrderID   string
	Operation string
	Current   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s: cannot %s from status %s", e.OrderID, e.Operation, e.Current)
}

// InvalidStateError signals an internal consistency violation, e.g. a
// deduct exceeding what was reserved. It is fatal for the request and
// must be logged, never silently swallowed.
type InvalidStateError struct {
	Detail string
}

func (e *InvalidStateError) Error() string {
	return "invalid state: " + e.Detail
}

package stock

import (
	"context"
	"sync"

	"shopcore/internal/domain"
)

// MemoryLedger keeps the counters in process memory with one mutex per
// product, mirroring the row-level serialization of the Postgres ledger.
// It backs unit tests and single-process development setups.
type MemoryLedger struct {
	mu     sync.RWMutex
	levels map[string]*memLevel
}

type memLevel struct {
	mu       sync.Mutex
	onHand   int
	reserved int
}

func NewMemory() *MemoryLedger {
	return &MemoryLedger{levels: make(map[string]*memLevel)}
}

func (m *MemoryLedger) level(productID string) (*memLevel, bool) {
	m.mu.RLock()
	l, ok := m.levels[productID]
	m.mu.RUnlock()
	return l, ok
}

func (m *MemoryLedger) Reserve(_ context.Context, productID string, qty int) error {
	if err := checkQty(qty); err != nil {
		return err
	}
	l, ok := m.level(productID)
	if !ok {
		return domain.ErrNotFound
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.onHand-l.reserved < qty {
		return &domain.InsufficientStockError{
			ProductID: productID,
			Requested: qty,
			Available: l.onHand - l.reserved,
		}
	}
	l.reserved += qty
	return nil
}

func (m *MemoryLedger) Release(_ context.Context, productID string, qty int) error {
	if err := checkQty(qty); err != nil {
		return err
	}
	l, ok := m.level(productID)
	if !ok {
		return domain.ErrNotFound
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if qty > l.reserved {
		qty = l.reserved
	}
	l.reserved -= qty
	return nil
}

func (m *MemoryLedger) Deduct(_ context.Context, productID string, qty int) error {
	if err := checkQty(qty); err != nil {
		return err
	}
	l, ok := m.level(productID)
	if !ok {
		return domain.ErrNotFound
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reserved < qty {
		return &domain.InvalidStateError{
			Detail: "deduct exceeds reserved for product " + productID,
		}
	}
	l.onHand -= qty
	l.reserved -= qty
	return nil
}

func (m *MemoryLedger) Query(_ context.Context, productID string) (domain.StockLevel, error) {
	l, ok := m.level(productID)
	if !ok {
		return domain.StockLevel{}, domain.ErrNotFound
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return domain.StockLevel{ProductID: productID, OnHand: l.onHand, Reserved: l.reserved}, nil
}

func (m *MemoryLedger) SetOnHand(_ context.Context, productID string, onHand int) error {
	if onHand < 0 {
		return errNonPositiveQty
	}
	m.mu.Lock()
	l, ok := m.levels[productID]
	if !ok {
		l = &memLevel{}
		m.levels[productID] = l
	}
	m.mu.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reserved > onHand {
		return &domain.InvalidStateError{
			Detail: "cannot lower on-hand below reserved for product " + productID,
		}
	}
	l.onHand = onHand
	return nil
}

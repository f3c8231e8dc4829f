package domain

// StockLevel is a read-only snapshot of the per-product stock counters.
// Invariant: 0 <= Reserved <= OnHand. The counters are mutated only by the
// stock ledger operations, never directly.
type StockLevel struct {
	ProductID string `json:"productId"`
	OnHand    int    `json:"onHand"`
	Reserved  int    `json:"reserved"`
}

// Available is the quantity that can still be reserved.
func (s StockLevel) Available() int {
	return s.OnHand - s.Reserved
}

package product

import (
	"context"

	"shopcore/internal/domain"
)

// Repository is the read-mostly product lookup the order and cart cores
// depend on. Products are owned by the catalog side of the system; the
// core only snapshots name and price from them.
type Repository interface {
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	FindBySKU(ctx context.Context, sku string) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

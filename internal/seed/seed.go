package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type productSeed struct {
	SKU         string
	Name        string
	Description string
	PriceCents  int64
	Currency    string
	OnHand      int
}

// Apply inserts basic seed data for manual testing. It is idempotent via ON CONFLICT.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	if err := ensureUser(ctx, pool, "demo@example.com", "Demo User"); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}

	products := []productSeed{
		{
			SKU:         "SKU-DEMO-TSHIRT",
			Name:        "Demo T-Shirt",
			Description: "Soft cotton tee for demo purposes",
			PriceCents:  1999,
			Currency:    "USD",
			OnHand:      100,
		},
		{
			SKU:         "SKU-DEMO-MUG",
			Name:        "Demo Mug",
			Description: "Ceramic mug with demo logo",
			PriceCents:  1299,
			Currency:    "USD",
			OnHand:      250,
		},
		{
			SKU:         "SKU-DEMO-POSTER",
			Name:        "Demo Poster",
			Description: "Limited print run, goes out of stock fast",
			PriceCents:  899,
			Currency:    "USD",
			OnHand:      3,
		},
	}

	for _, p := range products {
		if err := upsertProduct(ctx, pool, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.SKU, err)
		}
	}

	return nil
}

func ensureUser(ctx context.Context, pool *pgxpool.Pool, email, name string) error {
	const q = `
INSERT INTO users (email, name)
VALUES ($1, $2)
ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
`
	_, err := pool.Exec(ctx, q, email, name)
	return err
}

func upsertProduct(ctx context.Context, pool *pgxpool.Pool, p productSeed) error {
	const q = `
INSERT INTO products (sku, name, description, price_cents, currency, active)
VALUES ($1, $2, $3, $4, $5, TRUE)
ON CONFLICT (sku) DO UPDATE
SET name = EXCLUDED.name,
    description = EXCLUDED.description,
    price_cents = EXCLUDED.price_cents,
    currency = EXCLUDED.currency
RETURNING id::text
`
	var id string
	if err := pool.QueryRow(ctx, q, p.SKU, p.Name, p.Description, p.PriceCents, p.Currency).Scan(&id); err != nil {
		return err
	}

	const stockQ = `
INSERT INTO product_stock (product_id, on_hand, reserved)
VALUES ($1, $2, 0)
ON CONFLICT (product_id) DO UPDATE
SET on_hand = EXCLUDED.on_hand, updated_at = now()
WHERE product_stock.reserved <= EXCLUDED.on_hand
`
	_, err := pool.Exec(ctx, stockQ, id, p.OnHand)
	return err
}

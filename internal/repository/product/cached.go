package product

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"time"

	"shopcore/internal/cache"
	"shopcore/internal/domain"
)

// cachedRepo caches FindByID lookups. Products are read-mostly; the cart
// and order paths hit them on every line item. Invalidation: Upsert
// deletes the entry before writing through, and entries expire after ttl.
// Stock counters are never cached; the ledger always reads the database.
type cachedRepo struct {
	inner  Repository
	cache  cache.Cache
	ttl    time.Duration
	logger *log.Logger
}

func NewCached(inner Repository, c cache.Cache, ttl time.Duration, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &cachedRepo{inner: inner, cache: c, ttl: ttl, logger: logger}
}

func (r *cachedRepo) key(id string) string {
	return r.cache.Key("product", id)
}

func (r *cachedRepo) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	if b, err := r.cache.Get(ctx, r.key(id)); err == nil {
		var p domain.Product
		if err := json.Unmarshal(b, &p); err == nil {
			return &p, nil
		}
		// corrupt entry, fall through to the source
		_ = r.cache.Del(ctx, r.key(id))
	} else if !errors.Is(err, cache.ErrMiss) {
		r.logger.Printf("product cache: get id=%s error=%v", id, err)
	}

	p, err := r.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(p); err == nil {
		if err := r.cache.Set(ctx, r.key(id), b, r.ttl); err != nil {
			r.logger.Printf("product cache: set id=%s error=%v", id, err)
		}
	}
	return p, nil
}

func (r *cachedRepo) FindBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	return r.inner.FindBySKU(ctx, sku)
}

func (r *cachedRepo) List(ctx context.Context) ([]domain.Product, error) {
	return r.inner.List(ctx)
}

func (r *cachedRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	res, err := r.inner.Upsert(ctx, product)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Del(ctx, r.key(res.ID)); err != nil {
		r.logger.Printf("product cache: invalidate id=%s error=%v", res.ID, err)
	}
	return res, nil
}

package product

import (
	"context"
	"strings"
	"testing"
	"time"

	"shopcore/internal/cache"
	"shopcore/internal/domain"
)

type fakeCache struct {
	entries map[string][]byte
	sets    int
	dels    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (f *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	b, ok := f.entries[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return b, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.entries[key] = value
	f.sets++
	return nil
}

func (f *fakeCache) Del(_ context.Context, key string) error {
	delete(f.entries, key)
	f.dels++
	return nil
}

func (f *fakeCache) Key(parts ...string) string {
	return "test:" + strings.Join(parts, ":")
}

type stubInner struct {
	product *domain.Product
	err     error
	finds   int
}

func (s *stubInner) FindByID(_ context.Context, _ string) (*domain.Product, error) {
	s.finds++
	return s.product, s.err
}

func (s *stubInner) FindBySKU(_ context.Context, _ string) (*domain.Product, error) {
	return s.product, s.err
}

func (s *stubInner) List(_ context.Context) ([]domain.Product, error) { return nil, s.err }

func (s *stubInner) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	s.product = &p
	if s.product.ID == "" {
		s.product.ID = "p1"
	}
	return s.product, s.err
}

func TestCachedFindByIDPopulatesAndServes(t *testing.T) {
	ctx := context.Background()
	inner := &stubInner{product: &domain.Product{ID: "p1", SKU: "sku", Name: "Widget", PriceCents: 1000, Active: true}}
	c := newFakeCache()
	repo := NewCached(inner, c, time.Minute, nil)

	first, err := repo.FindByID(ctx, "p1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if first.Name != "Widget" || c.sets != 1 || inner.finds != 1 {
		t.Fatalf("expected cache fill, got sets=%d finds=%d", c.sets, inner.finds)
	}

	second, err := repo.FindByID(ctx, "p1")
	if err != nil {
		t.Fatalf("FindByID (cached): %v", err)
	}
	if inner.finds != 1 {
		t.Fatalf("expected cached read, inner hit %d times", inner.finds)
	}
	if second.ID != first.ID || second.PriceCents != first.PriceCents {
		t.Fatalf("cached product mismatch: %+v vs %+v", second, first)
	}
}

func TestCachedFindByIDNotFoundNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &stubInner{err: domain.ErrNotFound}
	c := newFakeCache()
	repo := NewCached(inner, c, time.Minute, nil)

	if _, err := repo.FindByID(ctx, "missing"); err != domain.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if c.sets != 0 {
		t.Fatalf("negative result must not be cached")
	}
}

func TestCachedUpsertInvalidates(t *testing.T) {
	ctx := context.Background()
	inner := &stubInner{product: &domain.Product{ID: "p1", SKU: "sku", Name: "Widget", PriceCents: 1000, Active: true}}
	c := newFakeCache()
	repo := NewCached(inner, c, time.Minute, nil)

	if _, err := repo.FindByID(ctx, "p1"); err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if _, err := repo.Upsert(ctx, domain.Product{ID: "p1", SKU: "sku", Name: "Widget v2", PriceCents: 1200, Active: true}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if c.dels != 1 {
		t.Fatalf("expected invalidation on upsert")
	}

	got, err := repo.FindByID(ctx, "p1")
	if err != nil {
		t.Fatalf("FindByID after upsert: %v", err)
	}
	if got.Name != "Widget v2" {
		t.Fatalf("expected fresh read after invalidation, got %+v", got)
	}
}

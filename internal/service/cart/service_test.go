package cart

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"shopcore/internal/domain"
	cartrepo "shopcore/internal/repository/cart"
)

// fakeRepo keeps carts in memory with the same semantics the Postgres
// repository guarantees: one line per product, quantities summed on
// upsert.
type fakeRepo struct {
	carts   map[string]*domain.Cart
	nextID  int
	deleted []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{carts: map[string]*domain.Cart{}}
}

func (f *fakeRepo) addCart(id string, status domain.CartStatus, items ...domain.CartItem) *domain.Cart {
	c := &domain.Cart{ID: id, Status: status, Items: items}
	f.carts[id] = c
	return c
}

func (f *fakeRepo) Create(_ context.Context, in cartrepo.CreateCartInput) (*domain.Cart, error) {
	f.nextID++
	c := &domain.Cart{
		ID:           fmt.Sprintf("cart-%d", f.nextID),
		UserID:       in.UserID,
		SessionToken: in.SessionToken,
		Status:       domain.CartActive,
	}
	f.carts[c.ID] = c
	return c, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*domain.Cart, error) {
	c, ok := f.carts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	cp.Items = append([]domain.CartItem(nil), c.Items...)
	return &cp, nil
}

func (f *fakeRepo) GetActiveByUser(_ context.Context, userID string) (*domain.Cart, error) {
	for _, c := range f.carts {
		if c.UserID != nil && *c.UserID == userID && c.Status == domain.CartActive {
			return c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRepo) GetActiveBySession(_ context.Context, token string) (*domain.Cart, error) {
	for _, c := range f.carts {
		if c.SessionToken != nil && *c.SessionToken == token && c.Status == domain.CartActive {
			return c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRepo) UpsertItem(_ context.Context, cartID, productID string, qty int, unitPriceCents int64) error {
	c, ok := f.carts[cartID]
	if !ok {
		return domain.ErrNotFound
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += qty
			c.Items[i].TotalCents = int64(c.Items[i].Quantity) * c.Items[i].UnitPriceCents
			return nil
		}
	}
	c.Items = append(c.Items, domain.CartItem{
		ID:             fmt.Sprintf("%s-%s", cartID, productID),
		CartID:         cartID,
		ProductID:      productID,
		Quantity:       qty,
		UnitPriceCents: unitPriceCents,
		TotalCents:     int64(qty) * unitPriceCents,
	})
	return nil
}

func (f *fakeRepo) SetItemQuantity(_ context.Context, cartID, productID string, qty int) error {
	c, ok := f.carts[cartID]
	if !ok {
		return domain.ErrNotFound
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			if qty <= 0 {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
				return nil
			}
			c.Items[i].Quantity = qty
			c.Items[i].TotalCents = int64(qty) * c.Items[i].UnitPriceCents
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeRepo) RemoveItem(ctx context.Context, cartID, productID string) error {
	return f.SetItemQuantity(ctx, cartID, productID, 0)
}

func (f *fakeRepo) Clear(_ context.Context, cartID string) error {
	c, ok := f.carts[cartID]
	if !ok {
		return domain.ErrNotFound
	}
	c.Items = nil
	return nil
}

func (f *fakeRepo) SetCoupon(_ context.Context, cartID string, code *string, discountCents int64) error {
	c, ok := f.carts[cartID]
	if !ok {
		return domain.ErrNotFound
	}
	c.CouponCode = code
	c.DiscountCents = discountCents
	return nil
}

func (f *fakeRepo) SetShareToken(_ context.Context, cartID, token string, expiresAt time.Time) error {
	c, ok := f.carts[cartID]
	if !ok {
		return domain.ErrNotFound
	}
	c.ShareToken = &token
	c.ShareExpiresAt = &expiresAt
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, cartID string) error {
	if _, ok := f.carts[cartID]; !ok {
		return domain.ErrNotFound
	}
	delete(f.carts, cartID)
	f.deleted = append(f.deleted, cartID)
	return nil
}

type stubProducts struct {
	products map[string]*domain.Product
}

func (s *stubProducts) FindByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

type stubLedger struct {
	levels map[string]domain.StockLevel
}

func (s *stubLedger) Query(_ context.Context, productID string) (domain.StockLevel, error) {
	l, ok := s.levels[productID]
	if !ok {
		return domain.StockLevel{}, domain.ErrNotFound
	}
	return l, nil
}

func newService(repo *fakeRepo, products map[string]*domain.Product, levels map[string]domain.StockLevel) *Service {
	return &Service{
		repo:        repo,
		productRepo: &stubProducts{products: products},
		ledger:      &stubLedger{levels: levels},
		now:         func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func activeProduct(id string, priceCents int64) *domain.Product {
	return &domain.Product{ID: id, Name: "Product " + id, PriceCents: priceCents, Active: true}
}

func TestCreateGeneratesGuestSession(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo, nil, nil)
	cart, err := svc.Create(context.Background(), CreateInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.SessionToken == nil || *cart.SessionToken == "" {
		t.Fatalf("expected generated session token, got %+v", cart)
	}
}

func TestAddItemIncrementsExistingLine(t *testing.T) {
	repo := newFakeRepo()
	repo.addCart("c1", domain.CartActive)
	svc := newService(repo, map[string]*domain.Product{"p1": activeProduct("p1", 1000)}, nil)

	if _, err := svc.AddItem(context.Background(), "c1", "p1", 2); err != nil {
		t.Fatalf("first add: %v", err)
	}
	cart, err := svc.AddItem(context.Background(), "c1", "p1", 3)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected a single line, got %d", len(cart.Items))
	}
	if cart.Items[0].Quantity != 5 || cart.Items[0].TotalCents != 5000 {
		t.Fatalf("unexpected line %+v", cart.Items[0])
	}
}

func TestAddItemValidation(t *testing.T) {
	repo := newFakeRepo()
	repo.addCart("c1", domain.CartActive)
	inactive := activeProduct("p2", 500)
	inactive.Active = false
	svc := newService(repo, map[string]*domain.Product{"p2": inactive}, nil)

	if _, err := svc.AddItem(context.Background(), "c1", "p1", 0); err == nil || err.Error() != "quantity must be positive" {
		t.Fatalf("expected quantity error, got %v", err)
	}
	if _, err := svc.AddItem(context.Background(), "c1", "p1", 1); err == nil || err.Error() != "product not found" {
		t.Fatalf("expected product not found, got %v", err)
	}
	if _, err := svc.AddItem(context.Background(), "c1", "p2", 1); err == nil || err.Error() != "product unavailable" {
		t.Fatalf("expected product unavailable, got %v", err)
	}
}

func TestAddItemRejectsConvertedCart(t *testing.T) {
	repo := newFakeRepo()
	repo.addCart("c1", domain.CartConverted)
	svc := newService(repo, map[string]*domain.Product{"p1": activeProduct("p1", 1000)}, nil)

	if _, err := svc.AddItem(context.Background(), "c1", "p1", 1); err == nil || err.Error() != "cart is not active" {
		t.Fatalf("expected cart state error, got %v", err)
	}
}

func TestUpdateItemQuantityZeroRemovesLine(t *testing.T) {
	repo := newFakeRepo()
	repo.addCart("c1", domain.CartActive, domain.CartItem{ProductID: "p1", Quantity: 2, UnitPriceCents: 1000, TotalCents: 2000})
	svc := newService(repo, nil, nil)

	cart, err := svc.UpdateItemQuantity(context.Background(), "c1", "p1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected line removed, got %+v", cart.Items)
	}
}

func TestApplyCoupon(t *testing.T) {
	repo := newFakeRepo()
	repo.addCart("c1", domain.CartActive)
	svc := newService(repo, nil, nil)

	if _, err := svc.ApplyCoupon(context.Background(), "c1", "  ", 100); err == nil || err.Error() != "coupon code required" {
		t.Fatalf("expected code error, got %v", err)
	}
	if _, err := svc.ApplyCoupon(context.Background(), "c1", "SAVE10", -1); err == nil || err.Error() != "discount must not be negative" {
		t.Fatalf("expected discount error, got %v", err)
	}

	cart, err := svc.ApplyCoupon(context.Background(), "c1", "SAVE10", 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.CouponCode == nil || *cart.CouponCode != "SAVE10" || cart.DiscountCents != 1000 {
		t.Fatalf("unexpected cart %+v", cart)
	}
}

func TestShareSetsTimeBoundedToken(t *testing.T) {
	repo := newFakeRepo()
	repo.addCart("c1", domain.CartActive)
	svc := newService(repo, nil, nil)

	cart, err := svc.Share(context.Background(), "c1", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.ShareToken == nil || cart.ShareExpiresAt == nil {
		t.Fatalf("expected share token, got %+v", cart)
	}
	want := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	if !cart.ShareExpiresAt.Equal(want) {
		t.Fatalf("unexpected expiry %v", cart.ShareExpiresAt)
	}
}

func TestMergeSumsQuantitiesAndDeletesGuestCart(t *testing.T) {
	repo := newFakeRepo()
	repo.addCart("guest", domain.CartActive, domain.CartItem{ProductID: "pA", Quantity: 2, UnitPriceCents: 1000, TotalCents: 2000})
	repo.addCart("user", domain.CartActive,
		domain.CartItem{ProductID: "pA", Quantity: 1, UnitPriceCents: 1000, TotalCents: 1000},
		domain.CartItem{ProductID: "pB", Quantity: 1, UnitPriceCents: 500, TotalCents: 500},
	)
	svc := newService(repo, nil, nil)

	merged, err := svc.Merge(context.Background(), "guest", "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := map[string]int{}
	for _, it := range merged.Items {
		got[it.ProductID] = it.Quantity
	}
	if got["pA"] != 3 || got["pB"] != 1 || len(got) != 2 {
		t.Fatalf("unexpected merge result %v", got)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "guest" {
		t.Fatalf("expected guest cart deleted, got %v", repo.deleted)
	}

	// single-use: a second merge with the same guest cart fails
	if _, err := svc.Merge(context.Background(), "guest", "user"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on re-merge, got %v", err)
	}
}

func TestValidateReportsPerItemIssues(t *testing.T) {
	repo := newFakeRepo()
	repo.addCart("c1", domain.CartActive,
		domain.CartItem{ProductID: "ok", Quantity: 1, UnitPriceCents: 1000, TotalCents: 1000},
		domain.CartItem{ProductID: "pricey", Quantity: 2, UnitPriceCents: 500, TotalCents: 1000},
		domain.CartItem{ProductID: "short", Quantity: 5, UnitPriceCents: 200, TotalCents: 1000},
		domain.CartItem{ProductID: "gone", Quantity: 1, UnitPriceCents: 300, TotalCents: 300},
		domain.CartItem{ProductID: "empty", Quantity: 1, UnitPriceCents: 400, TotalCents: 400},
	)
	products := map[string]*domain.Product{
		"ok":     activeProduct("ok", 1000),
		"pricey": activeProduct("pricey", 700),
		"short":  activeProduct("short", 200),
		"empty":  activeProduct("empty", 400),
	}
	levels := map[string]domain.StockLevel{
		"ok":     {ProductID: "ok", OnHand: 10},
		"pricey": {ProductID: "pricey", OnHand: 10},
		"short":  {ProductID: "short", OnHand: 5, Reserved: 3},
		"empty":  {ProductID: "empty", OnHand: 2, Reserved: 2},
	}
	svc := newService(repo, products, levels)

	result, err := svc.Validate(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK {
		t.Fatal("expected validation issues")
	}
	if result.TotalBeforeCents != 3700 {
		t.Fatalf("unexpected before total %d", result.TotalBeforeCents)
	}
	// gone is dropped from the after total; pricey is repriced at 700
	if result.TotalAfterCents != 1000+1400+1000+400 {
		t.Fatalf("unexpected after total %d", result.TotalAfterCents)
	}

	issues := map[string]string{}
	for _, ic := range result.Issues {
		issues[ic.ProductID] = ic.Issue
	}
	if issues["pricey"] != IssuePriceChanged {
		t.Fatalf("expected price change for pricey, got %q", issues["pricey"])
	}
	if issues["short"] != IssueInsufficientStock {
		t.Fatalf("expected insufficient stock for short, got %q", issues["short"])
	}
	if issues["gone"] != IssueItemUnavailable {
		t.Fatalf("expected unavailable for gone, got %q", issues["gone"])
	}
	if issues["empty"] != IssueOutOfStock {
		t.Fatalf("expected out of stock for empty, got %q", issues["empty"])
	}
	if _, ok := issues["ok"]; ok {
		t.Fatal("did not expect an issue for ok")
	}
}

func TestValidateCleanCart(t *testing.T) {
	repo := newFakeRepo()
	repo.addCart("c1", domain.CartActive,
		domain.CartItem{ProductID: "p1", Quantity: 2, UnitPriceCents: 1000, TotalCents: 2000})
	svc := newService(repo,
		map[string]*domain.Product{"p1": activeProduct("p1", 1000)},
		map[string]domain.StockLevel{"p1": {ProductID: "p1", OnHand: 5}})

	result, err := svc.Validate(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK || len(result.Issues) != 0 {
		t.Fatalf("expected clean result, got %+v", result)
	}
	if result.TotalBeforeCents != result.TotalAfterCents {
		t.Fatalf("totals should match: %d vs %d", result.TotalBeforeCents, result.TotalAfterCents)
	}
}

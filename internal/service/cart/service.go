package cart

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"shopcore/internal/domain"
	cartrepo "shopcore/internal/repository/cart"
)

// Service implements the cart aggregate: the pre-order staging area.
// Carts are advisory; nothing here reserves stock.
type Service struct {
	repo        cartRepo
	productRepo productRepo
	ledger      stockLedger
	now         func() time.Time
}

type cartRepo interface {
	Create(ctx context.Context, in cartrepo.CreateCartInput) (*domain.Cart, error)
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	GetActiveByUser(ctx context.Context, userID string) (*domain.Cart, error)
	GetActiveBySession(ctx context.Context, token string) (*domain.Cart, error)
	UpsertItem(ctx context.Context, cartID, productID string, qty int, unitPriceCents int64) error
	SetItemQuantity(ctx context.Context, cartID, productID string, qty int) error
	RemoveItem(ctx context.Context, cartID, productID string) error
	Clear(ctx context.Context, cartID string) error
	SetCoupon(ctx context.Context, cartID string, code *string, discountCents int64) error
	SetShareToken(ctx context.Context, cartID, token string, expiresAt time.Time) error
	Delete(ctx context.Context, cartID string) error
}

type productRepo interface {
	FindByID(ctx context.Context, id string) (*domain.Product, error)
}

type stockLedger interface {
	Query(ctx context.Context, productID string) (domain.StockLevel, error)
}

func New(repo cartrepo.Repository, productRepo productRepo, ledger stockLedger) *Service {
	return &Service{repo: repo, productRepo: productRepo, ledger: ledger, now: time.Now}
}

type CreateInput struct {
	UserID       *string `json:"userId,omitempty"`
	SessionToken *string `json:"sessionToken,omitempty"`
}

// Create opens a new active cart for a user or a guest session. Guests
// without a session token get one generated.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Cart, error) {
	if in.UserID == nil && in.SessionToken == nil {
		token := uuid.NewString()
		in.SessionToken = &token
	}
	return s.repo.Create(ctx, cartrepo.CreateCartInput{
		UserID:       in.UserID,
		SessionToken: in.SessionToken,
	})
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Cart, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetActiveByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	return s.repo.GetActiveByUser(ctx, userID)
}

func (s *Service) GetActiveBySession(ctx context.Context, token string) (*domain.Cart, error) {
	return s.repo.GetActiveBySession(ctx, token)
}

// AddItem adds qty units of a product, incrementing the existing line if
// the product is already in the cart. The unit price is snapshotted from
// the product's current effective price on first add.
func (s *Service) AddItem(ctx context.Context, cartID, productID string, qty int) (*domain.Cart, error) {
	if qty <= 0 {
		return nil, errors.New("quantity must be positive")
	}
	cart, err := s.activeCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errors.New("product not found")
		}
		return nil, err
	}
	if !product.Active {
		return nil, errors.New("product unavailable")
	}

	if err := s.repo.UpsertItem(ctx, cart.ID, productID, qty, product.EffectivePriceCents()); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cart.ID)
}

// UpdateItemQuantity replaces the quantity of an existing line. A zero or
// negative quantity removes the line instead of keeping it at zero.
func (s *Service) UpdateItemQuantity(ctx context.Context, cartID, productID string, qty int) (*domain.Cart, error) {
	cart, err := s.activeCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetItemQuantity(ctx, cart.ID, productID, qty); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cart.ID)
}

func (s *Service) RemoveItem(ctx context.Context, cartID, productID string) (*domain.Cart, error) {
	cart, err := s.activeCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RemoveItem(ctx, cart.ID, productID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cart.ID)
}

func (s *Service) Clear(ctx context.Context, cartID string) (*domain.Cart, error) {
	cart, err := s.activeCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Clear(ctx, cart.ID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cart.ID)
}

// ApplyCoupon attaches a pre-validated coupon to the cart. Coupon
// business rules are validated by an external collaborator; the core
// only stores the code and the discount it granted.
func (s *Service) ApplyCoupon(ctx context.Context, cartID, code string, discountCents int64) (*domain.Cart, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New("coupon code required")
	}
	if discountCents < 0 {
		return nil, errors.New("discount must not be negative")
	}
	cart, err := s.activeCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetCoupon(ctx, cart.ID, &code, discountCents); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cart.ID)
}

// Share issues a time-bounded share token for the cart.
func (s *Service) Share(ctx context.Context, cartID string, ttl time.Duration) (*domain.Cart, error) {
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	cart, err := s.activeCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	token := uuid.NewString()
	if err := s.repo.SetShareToken(ctx, cart.ID, token, s.now().Add(ttl)); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cart.ID)
}

// Merge folds a guest cart into a user cart: union of lines by product,
// quantities summed on conflict. The guest cart is deleted afterwards,
// so a merge is single-use.
func (s *Service) Merge(ctx context.Context, guestCartID, userCartID string) (*domain.Cart, error) {
	if guestCartID == userCartID {
		return nil, errors.New("cannot merge a cart into itself")
	}
	guest, err := s.activeCart(ctx, guestCartID)
	if err != nil {
		return nil, err
	}
	user, err := s.activeCart(ctx, userCartID)
	if err != nil {
		return nil, err
	}

	for _, item := range guest.Items {
		if err := s.repo.UpsertItem(ctx, user.ID, item.ProductID, item.Quantity, item.UnitPriceCents); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Delete(ctx, guest.ID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, user.ID)
}

// Issue codes reported by Validate, one per problematic line.
const (
	IssueOutOfStock        = "OUT_OF_STOCK"
	IssueInsufficientStock = "INSUFFICIENT_STOCK"
	IssuePriceChanged      = "PRICE_CHANGED"
	IssueItemUnavailable   = "ITEM_UNAVAILABLE"
)

type ItemCheck struct {
	ProductID     string `json:"productId"`
	Issue         string `json:"issue"`
	Requested     int    `json:"requested,omitempty"`
	Available     int    `json:"available,omitempty"`
	OldPriceCents int64  `json:"oldPriceCents,omitempty"`
	NewPriceCents int64  `json:"newPriceCents,omitempty"`
}

type ValidationResult struct {
	OK               bool        `json:"ok"`
	Issues           []ItemCheck `json:"issues,omitempty"`
	TotalBeforeCents int64       `json:"totalBeforeCents"`
	TotalAfterCents  int64       `json:"totalAfterCents"`
}

// Validate re-checks every line against the current product price and
// stock availability without mutating the cart. It is meant to surface
// discrepancies to the user right before checkout.
func (s *Service) Validate(ctx context.Context, cartID string) (*ValidationResult, error) {
	cart, err := s.activeCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{OK: true, TotalBeforeCents: cart.SubtotalCents()}
	for _, item := range cart.Items {
		product, err := s.productRepo.FindByID(ctx, item.ProductID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			result.Issues = append(result.Issues, ItemCheck{ProductID: item.ProductID, Issue: IssueItemUnavailable})
			continue
		case err != nil:
			return nil, err
		case !product.Active:
			result.Issues = append(result.Issues, ItemCheck{ProductID: item.ProductID, Issue: IssueItemUnavailable})
			continue
		}

		currentPrice := product.EffectivePriceCents()
		result.TotalAfterCents += currentPrice * int64(item.Quantity)
		if currentPrice != item.UnitPriceCents {
			result.Issues = append(result.Issues, ItemCheck{
				ProductID:     item.ProductID,
				Issue:         IssuePriceChanged,
				OldPriceCents: item.UnitPriceCents,
				NewPriceCents: currentPrice,
			})
		}

		level, err := s.ledger.Query(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				result.Issues = append(result.Issues, ItemCheck{ProductID: item.ProductID, Issue: IssueOutOfStock, Requested: item.Quantity})
				continue
			}
			return nil, err
		}
		available := level.Available()
		switch {
		case available <= 0:
			result.Issues = append(result.Issues, ItemCheck{ProductID: item.ProductID, Issue: IssueOutOfStock, Requested: item.Quantity, Available: 0})
		case available < item.Quantity:
			result.Issues = append(result.Issues, ItemCheck{ProductID: item.ProductID, Issue: IssueInsufficientStock, Requested: item.Quantity, Available: available})
		}
	}

	result.OK = len(result.Issues) == 0
	return result, nil
}

func (s *Service) activeCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	cart, err := s.repo.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.Status != domain.CartActive {
		return nil, errors.New("cart is not active")
	}
	return cart, nil
}

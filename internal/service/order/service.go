package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shopcore/internal/domain"
	"shopcore/internal/events"
	"shopcore/internal/pricing"
	orderrepo "shopcore/internal/repository/order"
)

// Service implements the order aggregate and its two state machines.
// Stock side effects always follow the transition outcome: only the
// winner of a conditional status update touches the ledger, so a ship
// racing a cancel can never both deduct and release the same units.
type Service struct {
	repo        repo
	cartRepo    cartRepo
	productRepo productRepo
	userRepo    userRepo
	ledger      stockLedger
	publisher   events.Publisher
	logger      *log.Logger
	now         func() time.Time
}

type repo interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, patch orderrepo.StatusPatch) (bool, error)
	UpdatePayment(ctx context.Context, id string, from, to domain.PaymentStatus, transactionID *string) (bool, error)
	AddRefund(ctx context.Context, id string, amountCents int64, reason string) (bool, error)
}

type cartRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	SetStatus(ctx context.Context, cartID string, from, to domain.CartStatus) (bool, error)
}

type productRepo interface {
	FindByID(ctx context.Context, id string) (*domain.Product, error)
}

type userRepo interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

type stockLedger interface {
	Reserve(ctx context.Context, productID string, qty int) error
	Release(ctx context.Context, productID string, qty int) error
	Deduct(ctx context.Context, productID string, qty int) error
}

type Deps struct {
	Orders    orderrepo.Repository
	Carts     cartRepo
	Products  productRepo
	Users     userRepo
	Ledger    stockLedger
	Publisher events.Publisher
	Logger    *log.Logger
}

func New(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	publisher := d.Publisher
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		repo:        d.Orders,
		cartRepo:    d.Carts,
		productRepo: d.Products,
		userRepo:    d.Users,
		ledger:      d.Ledger,
		publisher:   publisher,
		logger:      logger,
		now:         time.Now,
	}
}

type ItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type CreateInput struct {
	UserID            string          `json:"userId"`
	Items             []ItemInput     `json:"items"`
	ShippingAddress   domain.Address  `json:"shippingAddress"`
	PaymentMethod     string          `json:"paymentMethod"`
	ShippingMethod    string          `json:"shippingMethod"`
	TaxRate           decimal.Decimal `json:"taxRate"`
	CouponCode        *string         `json:"couponCode,omitempty"`
	DiscountCents     int64           `json:"discountCents"`
	ShippingCents     int64           `json:"shippingCents"`
	CustomerNote      string          `json:"customerNote,omitempty"`
	EstimatedDelivery *time.Time      `json:"estimatedDelivery,omitempty"`
}

// Create runs the order creation protocol: reserve stock per line item
// (products in ascending ID order), compute totals, persist. Any failure
// releases every reservation already taken before the error surfaces, so
// a failed creation leaves zero side effects.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Order, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, errors.New("user required")
	}
	if len(in.Items) == 0 {
		return nil, errors.New("items required")
	}
	seen := make(map[string]bool, len(in.Items))
	for _, it := range in.Items {
		if strings.TrimSpace(it.ProductID) == "" {
			return nil, errors.New("product required")
		}
		if it.Quantity <= 0 {
			return nil, errors.New("quantity must be positive")
		}
		if seen[it.ProductID] {
			return nil, fmt.Errorf("duplicate product %s", it.ProductID)
		}
		seen[it.ProductID] = true
	}
	if in.DiscountCents < 0 || in.ShippingCents < 0 {
		return nil, errors.New("amounts must not be negative")
	}

	// Reservations are taken product by product in ascending ID order so
	// two multi-item orders sharing products cannot deadlock.
	items := append([]ItemInput(nil), in.Items...)
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	var reserved []ItemInput
	rollback := func() {
		for i := len(reserved) - 1; i >= 0; i-- {
			it := reserved[i]
			if err := s.ledger.Release(ctx, it.ProductID, it.Quantity); err != nil {
				s.logger.Printf("order service: rollback release product=%s qty=%d failed: %v", it.ProductID, it.Quantity, err)
			}
		}
	}

	orderItems := make([]domain.OrderItem, 0, len(items))
	for _, it := range items {
		product, err := s.productRepo.FindByID(ctx, it.ProductID)
		if err != nil {
			rollback()
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("product %s: %w", it.ProductID, domain.ErrNotFound)
			}
			return nil, err
		}
		if !product.Active {
			rollback()
			return nil, fmt.Errorf("product %s unavailable", it.ProductID)
		}
		if err := s.ledger.Reserve(ctx, it.ProductID, it.Quantity); err != nil {
			rollback()
			return nil, err
		}
		reserved = append(reserved, it)

		unitPrice := product.EffectivePriceCents()
		orderItems = append(orderItems, domain.OrderItem{
			ID:             uuid.NewString(),
			ProductID:      product.ID,
			ProductName:    product.Name,
			Quantity:       it.Quantity,
			UnitPriceCents: unitPrice,
			TotalCents:     unitPrice * int64(it.Quantity),
		})
	}

	priceItems := make([]pricing.Item, len(orderItems))
	for i, it := range orderItems {
		priceItems[i] = pricing.Item{UnitPriceCents: it.UnitPriceCents, Quantity: it.Quantity}
	}
	totals := pricing.ComputeTotals(priceItems, in.TaxRate, in.DiscountCents)

	now := s.now().UTC()
	order := &domain.Order{
		ID:                uuid.NewString(),
		Number:            newOrderNumber(now),
		UserID:            in.UserID,
		Status:            domain.OrderPending,
		PaymentStatus:     domain.PaymentPending,
		PaymentMethod:     in.PaymentMethod,
		ShippingMethod:    in.ShippingMethod,
		SubtotalCents:     totals.SubtotalCents,
		TaxCents:          totals.TaxCents,
		ShippingCents:     in.ShippingCents,
		DiscountCents:     totals.DiscountCents,
		TotalCents:        totals.TotalCents + in.ShippingCents,
		CouponCode:        in.CouponCode,
		ShippingAddress:   in.ShippingAddress,
		PlacedAt:          now,
		EstimatedDelivery: in.EstimatedDelivery,
		CustomerNote:      in.CustomerNote,
		Items:             orderItems,
	}

	if s.userRepo != nil {
		if user, err := s.userRepo.FindByID(ctx, in.UserID); err == nil {
			order.CustomerName = user.Name
			order.CustomerEmail = user.Email
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Printf("order service: user lookup %s failed: %v", in.UserID, err)
		}
	}

	if err := s.repo.Create(ctx, order); err != nil {
		rollback()
		return nil, err
	}

	s.publish(ctx, events.TypeOrderPlaced, order.ID, placedPayload(order))
	return order, nil
}

type CheckoutInput struct {
	ShippingAddress   domain.Address  `json:"shippingAddress"`
	PaymentMethod     string          `json:"paymentMethod"`
	ShippingMethod    string          `json:"shippingMethod"`
	TaxRate           decimal.Decimal `json:"taxRate"`
	ShippingCents     int64           `json:"shippingCents"`
	CustomerNote      string          `json:"customerNote,omitempty"`
	EstimatedDelivery *time.Time      `json:"estimatedDelivery,omitempty"`
}

// CheckoutCart converts an active cart into an order. The cart is
// claimed (ACTIVE -> CONVERTED) before creation so a double-submitted
// checkout cannot produce two orders; the claim is reverted if creation
// fails. Order items snapshot name and price independently of the cart.
func (s *Service) CheckoutCart(ctx context.Context, cartID, userID string, in CheckoutInput) (*domain.Order, error) {
	claimed, err := s.cartRepo.SetStatus(ctx, cartID, domain.CartActive, domain.CartConverted)
	if err != nil {
		return nil, err
	}
	if !claimed {
		if _, err := s.cartRepo.GetByID(ctx, cartID); err != nil {
			return nil, err
		}
		return nil, errors.New("cart is not active")
	}

	// Items are read after the claim so a concurrent AddItem either
	// lands before the claim and is included, or loses its own
	// active-cart check.
	cart, err := s.cartRepo.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		s.revertCartClaim(ctx, cartID)
		return nil, errors.New("cart is empty")
	}
	if userID == "" && cart.UserID != nil {
		userID = *cart.UserID
	}

	items := make([]ItemInput, len(cart.Items))
	for i, it := range cart.Items {
		items[i] = ItemInput{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	order, err := s.Create(ctx, CreateInput{
		UserID:            userID,
		Items:             items,
		ShippingAddress:   in.ShippingAddress,
		PaymentMethod:     in.PaymentMethod,
		ShippingMethod:    in.ShippingMethod,
		TaxRate:           in.TaxRate,
		CouponCode:        cart.CouponCode,
		DiscountCents:     cart.DiscountCents,
		ShippingCents:     in.ShippingCents,
		CustomerNote:      in.CustomerNote,
		EstimatedDelivery: in.EstimatedDelivery,
	})
	if err != nil {
		s.revertCartClaim(ctx, cartID)
		return nil, err
	}
	return order, nil
}

func (s *Service) revertCartClaim(ctx context.Context, cartID string) {
	if reverted, err := s.cartRepo.SetStatus(ctx, cartID, domain.CartConverted, domain.CartActive); err != nil || !reverted {
		s.logger.Printf("order service: revert cart %s claim failed: reverted=%v err=%v", cartID, reverted, err)
	}
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return s.repo.GetByNumber(ctx, number)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Confirm moves PENDING -> CONFIRMED.
func (s *Service) Confirm(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.transition(ctx, id, "confirm", domain.OrderPending, domain.OrderConfirmed, orderrepo.StatusPatch{})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TypeOrderConfirmed, order.ID, nil)
	return order, nil
}

// Process moves CONFIRMED -> PROCESSING.
func (s *Service) Process(ctx context.Context, id string) (*domain.Order, error) {
	return s.transition(ctx, id, "process", domain.OrderConfirmed, domain.OrderProcessing, orderrepo.StatusPatch{})
}

// Ship moves PROCESSING -> SHIPPED and finalizes every line item's
// reservation into a permanent stock decrement. The single-transition
// guard means a second Ship call cannot double-deduct.
func (s *Service) Ship(ctx context.Context, id, trackingNumber, carrier string) (*domain.Order, error) {
	if strings.TrimSpace(trackingNumber) == "" {
		return nil, errors.New("tracking number required")
	}
	if strings.TrimSpace(carrier) == "" {
		return nil, errors.New("carrier required")
	}
	shippedAt := s.now().UTC()
	order, err := s.transition(ctx, id, "ship", domain.OrderProcessing, domain.OrderShipped, orderrepo.StatusPatch{
		TrackingNumber: &trackingNumber,
		Carrier:        &carrier,
		ShippedAt:      &shippedAt,
	})
	if err != nil {
		return nil, err
	}

	var deductErr error
	for _, it := range order.Items {
		if err := s.ledger.Deduct(ctx, it.ProductID, it.Quantity); err != nil {
			s.logger.Printf("order service: deduct product=%s qty=%d for order %s failed: %v", it.ProductID, it.Quantity, order.ID, err)
			if deductErr == nil {
				deductErr = err
			}
		}
	}
	if deductErr != nil {
		return nil, deductErr
	}

	s.publish(ctx, events.TypeOrderShipped, order.ID, map[string]string{
		"tracking_number": trackingNumber,
		"carrier":         carrier,
	})
	return order, nil
}

// OutForDelivery moves SHIPPED -> OUT_FOR_DELIVERY.
func (s *Service) OutForDelivery(ctx context.Context, id string) (*domain.Order, error) {
	return s.transition(ctx, id, "outForDelivery", domain.OrderShipped, domain.OrderOutForDelivery, orderrepo.StatusPatch{})
}

// Deliver moves OUT_FOR_DELIVERY -> DELIVERED, or SHIPPED -> DELIVERED
// for carriers that never report the intermediate state.
func (s *Service) Deliver(ctx context.Context, id string) (*domain.Order, error) {
	deliveredAt := s.now().UTC()
	patch := orderrepo.StatusPatch{DeliveredAt: &deliveredAt}

	applied, err := s.repo.UpdateStatus(ctx, id, domain.OrderOutForDelivery, domain.OrderDelivered, patch)
	if err != nil {
		return nil, err
	}
	if !applied {
		applied, err = s.repo.UpdateStatus(ctx, id, domain.OrderShipped, domain.OrderDelivered, patch)
		if err != nil {
			return nil, err
		}
	}
	if !applied {
		return nil, s.invalidTransition(ctx, id, "deliver")
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TypeOrderDelivered, order.ID, nil)
	return order, nil
}

// Cancel aborts an order that has not shipped yet and releases every
// line item's reservation.
func (s *Service) Cancel(ctx context.Context, id, reason string) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanCancel(order.Status) {
		return nil, &domain.InvalidTransitionError{OrderID: id, Operation: "cancel", Current: string(order.Status)}
	}

	patch := orderrepo.StatusPatch{}
	if reason != "" {
		patch.CancelReason = &reason
	}
	applied, err := s.repo.UpdateStatus(ctx, id, order.Status, domain.OrderCancelled, patch)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost a race; the order moved since we loaded it. Retry once
		// from the fresh status in case it only advanced within the
		// cancellable window (e.g. PENDING -> CONFIRMED).
		fresh, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !domain.CanCancel(fresh.Status) {
			return nil, &domain.InvalidTransitionError{OrderID: id, Operation: "cancel", Current: string(fresh.Status)}
		}
		applied, err = s.repo.UpdateStatus(ctx, id, fresh.Status, domain.OrderCancelled, patch)
		if err != nil {
			return nil, err
		}
		if !applied {
			return nil, s.invalidTransition(ctx, id, "cancel")
		}
	}

	for _, it := range order.Items {
		if err := s.ledger.Release(ctx, it.ProductID, it.Quantity); err != nil {
			s.logger.Printf("order service: release product=%s qty=%d for order %s failed: %v", it.ProductID, it.Quantity, order.ID, err)
		}
	}

	cancelled, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TypeOrderCancelled, cancelled.ID, map[string]string{"reason": reason})
	return cancelled, nil
}

// MarkAsPaid records the payment gateway's confirmation. Idempotent: a
// repeat call with the same transaction ID returns the order unchanged.
func (s *Service) MarkAsPaid(ctx context.Context, id, transactionID string) (*domain.Order, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, errors.New("transaction id required")
	}

	applied, err := s.repo.UpdatePayment(ctx, id, domain.PaymentPending, domain.PaymentPaid, &transactionID)
	if err != nil {
		return nil, err
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !applied {
		if order.PaymentStatus == domain.PaymentPaid && order.TransactionID != nil && *order.TransactionID == transactionID {
			return order, nil
		}
		return nil, &domain.InvalidTransitionError{OrderID: id, Operation: "markAsPaid", Current: string(order.PaymentStatus)}
	}

	s.publish(ctx, events.TypePaymentReceived, order.ID, map[string]string{"transaction_id": transactionID})
	return order, nil
}

// MarkPaymentFailed moves the payment sub-state PENDING -> FAILED.
func (s *Service) MarkPaymentFailed(ctx context.Context, id string) (*domain.Order, error) {
	applied, err := s.repo.UpdatePayment(ctx, id, domain.PaymentPending, domain.PaymentFailed, nil)
	if err != nil {
		return nil, err
	}
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, &domain.InvalidTransitionError{OrderID: id, Operation: "markPaymentFailed", Current: string(order.PaymentStatus)}
	}
	return order, nil
}

// Refund records a (possibly partial) refund against a delivered, paid
// order. Cumulative refunds never exceed the order total.
func (s *Service) Refund(ctx context.Context, id string, amountCents int64, reason string) (*domain.Order, error) {
	if amountCents <= 0 {
		return nil, errors.New("refund amount must be positive")
	}

	applied, err := s.repo.AddRefund(ctx, id, amountCents, reason)
	if err != nil {
		return nil, err
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !applied {
		if order.Status != domain.OrderDelivered || order.PaymentStatus != domain.PaymentPaid {
			return nil, &domain.InvalidTransitionError{
				OrderID:   id,
				Operation: "refund",
				Current:   string(order.Status) + "/" + string(order.PaymentStatus),
			}
		}
		return nil, fmt.Errorf("refund of %d cents exceeds remaining paid amount %d", amountCents, order.TotalCents-order.RefundedCents)
	}

	s.publish(ctx, events.TypeOrderRefunded, order.ID, map[string]interface{}{
		"amount_cents": amountCents,
		"reason":       reason,
	})
	return order, nil
}

func (s *Service) transition(ctx context.Context, id, op string, from, to domain.OrderStatus, patch orderrepo.StatusPatch) (*domain.Order, error) {
	applied, err := s.repo.UpdateStatus(ctx, id, from, to, patch)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, s.invalidTransition(ctx, id, op)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) invalidTransition(ctx context.Context, id, op string) error {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return &domain.InvalidTransitionError{OrderID: id, Operation: op, Current: string(order.Status)}
}

func (s *Service) publish(ctx context.Context, eventType, orderID string, payload any) {
	env, err := events.NewEnvelope(eventType, "shopcore-api", orderID, payload)
	if err != nil {
		s.logger.Printf("order service: build %s event for order %s: %v", eventType, orderID, err)
		return
	}
	s.publisher.Publish(ctx, env)
}

func placedPayload(o *domain.Order) map[string]interface{} {
	items := make([]map[string]interface{}, len(o.Items))
	for i, it := range o.Items {
		items[i] = map[string]interface{}{
			"product_id":       it.ProductID,
			"quantity":         it.Quantity,
			"unit_price_cents": it.UnitPriceCents,
		}
	}
	return map[string]interface{}{
		"number":      o.Number,
		"user_id":     o.UserID,
		"total_cents": o.TotalCents,
		"items":       items,
	}
}

func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}

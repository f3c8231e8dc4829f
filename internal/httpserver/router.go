package httpserver

import (
	"context"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"shopcore/internal/domain"
	cartsvc "shopcore/internal/service/cart"
	ordersvc "shopcore/internal/service/order"
)

type cartService interface {
	Create(ctx context.Context, in cartsvc.CreateInput) (*domain.Cart, error)
	Get(ctx context.Context, id string) (*domain.Cart, error)
	GetActiveByUser(ctx context.Context, userID string) (*domain.Cart, error)
	GetActiveBySession(ctx context.Context, token string) (*domain.Cart, error)
	AddItem(ctx context.Context, cartID, productID string, qty int) (*domain.Cart, error)
	UpdateItemQuantity(ctx context.Context, cartID, productID string, qty int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, cartID, productID string) (*domain.Cart, error)
	Clear(ctx context.Context, cartID string) (*domain.Cart, error)
	ApplyCoupon(ctx context.Context, cartID, code string, discountCents int64) (*domain.Cart, error)
	Share(ctx context.Context, cartID string, ttl time.Duration) (*domain.Cart, error)
	Merge(ctx context.Context, guestCartID, userCartID string) (*domain.Cart, error)
	Validate(ctx context.Context, cartID string) (*cartsvc.ValidationResult, error)
}

type orderService interface {
	Create(ctx context.Context, in ordersvc.CreateInput) (*domain.Order, error)
	CheckoutCart(ctx context.Context, cartID, userID string, in ordersvc.CheckoutInput) (*domain.Order, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	Confirm(ctx context.Context, id string) (*domain.Order, error)
	Process(ctx context.Context, id string) (*domain.Order, error)
	Ship(ctx context.Context, id, trackingNumber, carrier string) (*domain.Order, error)
	OutForDelivery(ctx context.Context, id string) (*domain.Order, error)
	Deliver(ctx context.Context, id string) (*domain.Order, error)
	Cancel(ctx context.Context, id, reason string) (*domain.Order, error)
	MarkAsPaid(ctx context.Context, id, transactionID string) (*domain.Order, error)
	MarkPaymentFailed(ctx context.Context, id string) (*domain.Order, error)
	Refund(ctx context.Context, id string, amountCents int64, reason string) (*domain.Order, error)
}

type productRepo interface {
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	FindBySKU(ctx context.Context, sku string) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type stockReader interface {
	Query(ctx context.Context, productID string) (domain.StockLevel, error)
}

type stockAdjuster interface {
	SetOnHand(ctx context.Context, productID string, onHand int) error
}

// Deps carries the services the router exposes. TaxRate is applied to
// order creation and checkout when the request does not carry its own.
type Deps struct {
	Carts    cartService
	Orders   orderService
	Products productRepo
	Stock    stockReader
	Adjuster stockAdjuster
	TaxRate  decimal.Decimal
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	router.Use(cors.Default())

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{deps: deps, logger: logger}

	api := router.Group("/api/v1")
	{
		api.GET("/products", h.listProducts)
		api.GET("/products/:id", h.getProduct)
		api.POST("/products", h.upsertProduct)
		api.GET("/products/:id/stock", h.getStock)
		api.PUT("/products/:id/stock", h.setStock)

		api.POST("/carts", h.createCart)
		api.GET("/carts/:id", h.getCart)
		api.POST("/carts/:id/items", h.addCartItem)
		api.PATCH("/carts/:id/items/:productID", h.updateCartItem)
		api.DELETE("/carts/:id/items/:productID", h.removeCartItem)
		api.DELETE("/carts/:id/items", h.clearCart)
		api.POST("/carts/:id/coupon", h.applyCoupon)
		api.POST("/carts/:id/share", h.shareCart)
		api.POST("/carts/:id/merge", h.mergeCarts)
		api.GET("/carts/:id/validate", h.validateCart)
		api.POST("/carts/:id/checkout", h.checkoutCart)

		api.POST("/orders", h.createOrder)
		api.GET("/orders/:id", h.getOrder)
		api.GET("/users/:id/orders", h.listUserOrders)
		api.POST("/orders/:id/confirm", h.confirmOrder)
		api.POST("/orders/:id/process", h.processOrder)
		api.POST("/orders/:id/ship", h.shipOrder)
		api.POST("/orders/:id/out-for-delivery", h.outForDelivery)
		api.POST("/orders/:id/deliver", h.deliverOrder)
		api.POST("/orders/:id/cancel", h.cancelOrder)
		api.POST("/orders/:id/pay", h.payOrder)
		api.POST("/orders/:id/payment-failed", h.failPayment)
		api.POST("/orders/:id/refund", h.refundOrder)
	}

	return router
}

type handlers struct {
	deps   Deps
	logger *log.Logger
}

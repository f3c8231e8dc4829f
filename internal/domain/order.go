package domain

import "time"

type OrderStatus string

const (
	OrderPending        OrderStatus = "PENDING"
	OrderConfirmed      OrderStatus = "CONFIRMED"
	OrderProcessing     OrderStatus = "PROCESSING"
	OrderShipped        OrderStatus = "SHIPPED"
	OrderOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderDelivered      OrderStatus = "DELIVERED"
	OrderCancelled      OrderStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

var validNextStatus = map[OrderStatus]map[OrderStatus]bool{
	OrderPending:        {OrderConfirmed: true, OrderCancelled: true},
	OrderConfirmed:      {OrderProcessing: true, OrderCancelled: true},
	OrderProcessing:     {OrderShipped: true, OrderCancelled: true},
	OrderShipped:        {OrderOutForDelivery: true, OrderDelivered: true},
	OrderOutForDelivery: {OrderDelivered: true},
	OrderDelivered:      {},
	OrderCancelled:      {},
}

var validNextPayment = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentPending:  {PaymentPaid: true, PaymentFailed: true},
	PaymentPaid:     {PaymentRefunded: true},
	PaymentFailed:   {},
	PaymentRefunded: {},
}

// CanTransition reports whether the order status machine allows from -> to.
func CanTransition(from, to OrderStatus) bool {
	return validNextStatus[from][to]
}

// CanCancel reports whether an order in the given status may still be
// cancelled. Once goods leave the warehouse cancellation is replaced by
// the return/refund flow.
func CanCancel(s OrderStatus) bool {
	return s == OrderPending || s == OrderConfirmed || s == OrderProcessing
}

// CanPaymentTransition reports whether the payment sub-machine allows
// from -> to.
func CanPaymentTransition(from, to PaymentStatus) bool {
	return validNextPayment[from][to]
}

// Address is the shipping address snapshot stored on an order.
type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

type Order struct {
	ID                string        `json:"id"`
	Number            string        `json:"number"`
	UserID            string        `json:"userId"`
	CustomerName      string        `json:"customerName,omitempty"`
	CustomerEmail     string        `json:"customerEmail,omitempty"`
	Status            OrderStatus   `json:"status"`
	PaymentStatus     PaymentStatus `json:"paymentStatus"`
	PaymentMethod     string        `json:"paymentMethod,omitempty"`
	ShippingMethod    string        `json:"shippingMethod,omitempty"`
	SubtotalCents     int64         `json:"subtotalCents"`
	TaxCents          int64         `json:"taxCents"`
	ShippingCents     int64         `json:"shippingCents"`
	DiscountCents     int64         `json:"discountCents"`
	TotalCents        int64         `json:"totalCents"`
	RefundedCents     int64         `json:"refundedCents"`
	CouponCode        *string       `json:"couponCode,omitempty"`
	ShippingAddress   Address       `json:"shippingAddress"`
	TrackingNumber    *string       `json:"trackingNumber,omitempty"`
	Carrier           *string       `json:"carrier,omitempty"`
	PlacedAt          time.Time     `json:"placedAt"`
	ShippedAt         *time.Time    `json:"shippedAt,omitempty"`
	DeliveredAt       *time.Time    `json:"deliveredAt,omitempty"`
	EstimatedDelivery *time.Time    `json:"estimatedDelivery,omitempty"`
	CancelReason      *string       `json:"cancelReason,omitempty"`
	CustomerNote      string        `json:"customerNote,omitempty"`
	TransactionID     *string       `json:"transactionId,omitempty"`
	Items             []OrderItem   `json:"items,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// OrderItem is one immutable line of an order. Name and unit price are
// snapshots taken at creation so historical orders stay stable when the
// product record changes later.
type OrderItem struct {
	ID             string `json:"id"`
	OrderID        string `json:"orderId"`
	ProductID      string `json:"productId"`
	ProductName    string `json:"productName"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	TotalCents     int64  `json:"totalCents"`
}

package domain

import "time"

type CartStatus string

const (
	CartActive    CartStatus = "ACTIVE"
	CartAbandoned CartStatus = "ABANDONED"
	CartConverted CartStatus = "CONVERTED"
	CartExpired   CartStatus = "EXPIRED"
)

type Cart struct {
	ID             string     `json:"id"`
	UserID         *string    `json:"userId,omitempty"`
	SessionToken   *string    `json:"-"`
	Status         CartStatus `json:"status"`
	CouponCode     *string    `json:"couponCode,omitempty"`
	DiscountCents  int64      `json:"discountCents"`
	Items          []CartItem `json:"items,omitempty"`
	ShareToken     *string    `json:"shareToken,omitempty"`
	ShareExpiresAt *time.Time `json:"shareExpiresAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// CartItem is one line of a cart. A cart holds at most one item per
// product; quantity is always positive (a zero-quantity line is removed).
type CartItem struct {
	ID             string    `json:"id"`
	CartID         string    `json:"cartId"`
	ProductID      string    `json:"productId"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	TotalCents     int64     `json:"totalCents"`
	CreatedAt      time.Time `json:"createdAt"`
}

// SubtotalCents sums the line totals.
func (c Cart) SubtotalCents() int64 {
	var sum int64
	for _, it := range c.Items {
		sum += it.TotalCents
	}
	return sum
}

// Item returns the line for a product, if present.
func (c Cart) Item(productID string) (CartItem, bool) {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return CartItem{}, false
}

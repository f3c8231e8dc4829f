package domain

import "time"

type Product struct {
	ID                 string    `json:"id"`
	SKU                string    `json:"sku"`
	Name               string    `json:"name"`
	Description        string    `json:"description,omitempty"`
	PriceCents         int64     `json:"priceCents"`
	DiscountPriceCents *int64    `json:"discountPriceCents,omitempty"`
	Currency           string    `json:"currency"`
	Active             bool      `json:"active"`
	CreatedAt          time.Time `json:"createdAt"`
}

// EffectivePriceCents is the price a cart or order line snapshots: the
// discount price when one is set and lower, the list price otherwise.
func (p Product) EffectivePriceCents() int64 {
	if p.DiscountPriceCents != nil && *p.DiscountPriceCents < p.PriceCents {
		return *p.DiscountPriceCents
	}
	return p.PriceCents
}

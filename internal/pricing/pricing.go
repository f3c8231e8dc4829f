// Package pricing computes order totals from line items and applied
// adjustments. All arithmetic runs on fixed-point decimals; rounding to
// cents happens once, at the totals, never per line.
package pricing

import "github.com/shopspring/decimal"

// Item is one priced line: a unit price in cents and a quantity.
type Item struct {
	UnitPriceCents int64
	Quantity       int
}

// Totals is the monetary breakdown of an order before shipping.
// Shipping cost is added by the caller from the shipping estimate.
type Totals struct {
	SubtotalCents int64 `json:"subtotalCents"`
	TaxCents      int64 `json:"taxCents"`
	DiscountCents int64 `json:"discountCents"`
	TotalCents    int64 `json:"totalCents"`
}

var cents = decimal.NewFromInt(100)

// ComputeTotals derives subtotal, tax, discount and total from the given
// items. taxRate is a fraction (0.08 for 8%); tax is rounded half-up to
// whole cents. The discount is clamped to the subtotal and the total is
// floored at zero.
func ComputeTotals(items []Item, taxRate decimal.Decimal, couponDiscountCents int64) Totals {
	var subtotal int64
	for _, it := range items {
		subtotal += it.UnitPriceCents * int64(it.Quantity)
	}

	// subtotal_cents * rate, rounded half-up to a whole number of cents.
	// decimal.Round rounds half away from zero, which for non-negative
	// money is round-half-up.
	tax := decimal.NewFromInt(subtotal).Mul(taxRate).Round(0).IntPart()

	discount := couponDiscountCents
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}

	total := subtotal + tax - discount
	if total < 0 {
		total = 0
	}

	return Totals{
		SubtotalCents: subtotal,
		TaxCents:      tax,
		DiscountCents: discount,
		TotalCents:    total,
	}
}

// ParseTaxRate parses a decimal tax rate such as "0.08".
func ParseTaxRate(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// FormatCents renders a cent amount as a decimal string ("1999" -> "19.99").
func FormatCents(c int64) string {
	return decimal.NewFromInt(c).Div(cents).StringFixed(2)
}

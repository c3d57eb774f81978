// AngelaMos | 2026
// pricing.go

package order

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputeTotal applies a percentage discount to the gross amount and rounds
// to cents, half away from zero. The discount is clamped to [0, 100] and the
// result never goes below zero.
func ComputeTotal(gross, discountPercent decimal.Decimal) decimal.Decimal {
	d := discountPercent
	if d.IsNegative() {
		d = decimal.Zero
	}
	if d.GreaterThan(hundred) {
		d = hundred
	}

	total := gross.Mul(hundred.Sub(d)).Div(hundred).Round(2)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// LineSubtotal is unit price times quantity, rounded to cents.
func LineSubtotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

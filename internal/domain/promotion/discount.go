package promotion

import (
	"github.com/shopspring/decimal"
)

// EvaluationResult is the discount decision for an order.
type EvaluationResult struct {
	Discount decimal.Decimal
	Total    decimal.Decimal
	Code     string
}

// ComputeDiscount returns the discount and resulting total for subtotal.
// The discount is capped by MaxDiscount and never exceeds the subtotal. Both
// values are rounded half away from zero to 2 decimal places; the total is
// taken from the unrounded discount. A cap finer than a cent is floored to
// whole cents so rounding cannot lift the discount above it.
func ComputeDiscount(p *Promotion, subtotal decimal.Decimal) (discount, total decimal.Decimal) {
	if !subtotal.IsPositive() {
		return decimal.Zero, decimal.Zero
	}

	var raw decimal.Decimal
	switch p.DiscountType {
	case DiscountPercent:
		raw = subtotal.Mul(p.DiscountValue).Div(hundred)
	case DiscountFixed:
		raw = p.DiscountValue
	}

	if p.MaxDiscount.Valid {
		raw = decimal.Min(raw, p.MaxDiscount.Decimal.RoundFloor(2))
	}
	discount = floorAtZero(decimal.Min(raw, subtotal))
	total = subtotal.Sub(discount)

	return discount.Round(2), total.Round(2)
}

func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

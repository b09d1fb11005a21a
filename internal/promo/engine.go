package promo

import "math"

// Line is one catalog item's quantity within a sale, priced
// independently of any other line.
type Line struct {
	UnitPrice float64
	Qty       int
	Rule      Rule
}

// LineResult carries the priced outcome for a single line. All
// monetary fields are already rounded to two decimals; callers render
// them as-is and must not re-derive the discount.
type LineResult struct {
	Subtotal         float64 `json:"subtotal"`
	Total            float64 `json:"total"`
	Discount         float64 `json:"discount"`
	PaidQty          int     `json:"paidQty"`
	FreeQty          int     `json:"freeQty"`
	PromotionApplied bool    `json:"promotionApplied"`
}

// SaleTotals aggregates line results across a whole sale.
type SaleTotals struct {
	Subtotal float64 `json:"subtotal"`
	Total    float64 `json:"total"`
	Discount float64 `json:"discount"`
}

// Round2 rounds a monetary value half-up to two decimal places. It is
// applied once per computed value, never to unrounded intermediates.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// PriceLine computes what the customer owes for qty units of an item
// at unitPrice under an optional promotion rule. The call is pure:
// identical inputs always produce identical output and no state is
// kept between calls.
func PriceLine(unitPrice float64, qty int, rule Rule) (LineResult, error) {
	if !isFinite(unitPrice) {
		return LineResult{}, invalid("unitPrice", "must be a finite number")
	}
	if unitPrice < 0 {
		return LineResult{}, invalid("unitPrice", "must be nonnegative")
	}
	if qty <= 0 {
		return LineResult{}, invalid("quantity", "must be a positive integer")
	}
	if rule != nil {
		if err := rule.Validate(); err != nil {
			return LineResult{}, err
		}
	}

	subtotal := Round2(unitPrice * float64(qty))

	switch r := rule.(type) {
	case nil:
		return LineResult{
			Subtotal: subtotal,
			Total:    subtotal,
			PaidQty:  qty,
		}, nil
	case Bulk:
		bundles := qty / r.Threshold
		remainder := qty % r.Threshold
		total := Round2(float64(bundles)*r.Price + float64(remainder)*unitPrice)
		discount := Round2(math.Max(0, subtotal-total))
		// Bulk pricing has no paid/free unit split; the discount is a
		// pure price reduction and PaidQty stays at the input quantity.
		return LineResult{
			Subtotal:         subtotal,
			Total:            total,
			Discount:         discount,
			PaidQty:          qty,
			PromotionApplied: discount > 0,
		}, nil
	case BuyXGetY:
		setSize := r.Buy + r.Free
		fullSets := qty / setSize
		remainder := qty % setSize
		freeQty := fullSets * r.Free
		// The remainder never reaches a complete set, so it is paid in full.
		paidQty := fullSets*r.Buy + remainder
		total := Round2(float64(paidQty) * unitPrice)
		discount := Round2(math.Max(0, subtotal-total))
		return LineResult{
			Subtotal:         subtotal,
			Total:            total,
			Discount:         discount,
			PaidQty:          paidQty,
			FreeQty:          freeQty,
			PromotionApplied: freeQty > 0,
		}, nil
	default:
		return LineResult{}, invalid("rule", "unsupported promotion rule variant")
	}
}

// PriceSale prices each line independently and sums the three monetary
// components, rounding each sum once after full accumulation.
// Promotions never combine across lines. An empty sale totals to zero.
// A single invalid line fails the whole call with no partial result.
func PriceSale(lines []Line) (SaleTotals, error) {
	var totals SaleTotals
	for _, line := range lines {
		result, err := PriceLine(line.UnitPrice, line.Qty, line.Rule)
		if err != nil {
			return SaleTotals{}, err
		}
		totals.Subtotal += result.Subtotal
		totals.Total += result.Total
		totals.Discount += result.Discount
	}
	totals.Subtotal = Round2(totals.Subtotal)
	totals.Total = Round2(totals.Total)
	totals.Discount = Round2(totals.Discount)
	return totals, nil
}

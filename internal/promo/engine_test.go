package promo

import (
	"errors"
	"math"
	"testing"
)

func TestPriceLineNoRule(t *testing.T) {
	result, err := PriceLine(40, 3, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Subtotal != 120 || result.Total != 120 || result.Discount != 0 {
		t.Fatalf("unexpected totals: %+v", result)
	}
	if result.PaidQty != 3 || result.FreeQty != 0 || result.PromotionApplied {
		t.Fatalf("unexpected quantities: %+v", result)
	}
}

func TestPriceLineBulk(t *testing.T) {
	rule := Bulk{Threshold: 3, Price: 100}

	cases := []struct {
		name     string
		qty      int
		subtotal float64
		total    float64
		discount float64
		applied  bool
	}{
		{name: "exact bundle", qty: 3, subtotal: 120, total: 100, discount: 20, applied: true},
		{name: "bundle plus remainder", qty: 5, subtotal: 200, total: 180, discount: 20, applied: true},
		{name: "below threshold", qty: 2, subtotal: 80, total: 80, discount: 0, applied: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := PriceLine(40, tc.qty, rule)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Subtotal != tc.subtotal || result.Total != tc.total || result.Discount != tc.discount {
				t.Fatalf("got %+v, want subtotal=%v total=%v discount=%v", result, tc.subtotal, tc.total, tc.discount)
			}
			if result.PromotionApplied != tc.applied {
				t.Fatalf("promotionApplied = %v, want %v", result.PromotionApplied, tc.applied)
			}
			if result.PaidQty != tc.qty || result.FreeQty != 0 {
				t.Fatalf("bulk rules keep paidQty at input qty, got %+v", result)
			}
		})
	}
}

func TestPriceLineBuyXGetY(t *testing.T) {
	rule := BuyXGetY{Buy: 2, Free: 1}

	cases := []struct {
		name     string
		qty      int
		subtotal float64
		total    float64
		paid     int
		free     int
		applied  bool
	}{
		{name: "one full set", qty: 3, subtotal: 150, total: 100, paid: 2, free: 1, applied: true},
		{name: "below set size", qty: 2, subtotal: 100, total: 100, paid: 2, free: 0, applied: false},
		{name: "two sets plus remainder", qty: 7, subtotal: 350, total: 250, paid: 5, free: 2, applied: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := PriceLine(50, tc.qty, rule)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Subtotal != tc.subtotal || result.Total != tc.total {
				t.Fatalf("got %+v, want subtotal=%v total=%v", result, tc.subtotal, tc.total)
			}
			if result.PaidQty != tc.paid || result.FreeQty != tc.free {
				t.Fatalf("got paid=%d free=%d, want paid=%d free=%d", result.PaidQty, result.FreeQty, tc.paid, tc.free)
			}
			if result.PromotionApplied != tc.applied {
				t.Fatalf("promotionApplied = %v, want %v", result.PromotionApplied, tc.applied)
			}
			if result.Discount != Round2(tc.subtotal-tc.total) {
				t.Fatalf("discount = %v, want %v", result.Discount, tc.subtotal-tc.total)
			}
			if result.PaidQty+result.FreeQty != tc.qty {
				t.Fatalf("paid+free != qty for buy_x_get_y: %+v", result)
			}
		})
	}
}

func TestPriceLineBoundaryTakesDiscountBranch(t *testing.T) {
	// qty exactly equal to threshold / setSize must discount.
	bulk, err := PriceLine(40, 3, Bulk{Threshold: 3, Price: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bulk.PromotionApplied || bulk.Total != 100 {
		t.Fatalf("bulk boundary not discounted: %+v", bulk)
	}

	bxgy, err := PriceLine(50, 3, BuyXGetY{Buy: 2, Free: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bxgy.PromotionApplied || bxgy.FreeQty != 1 {
		t.Fatalf("buy_x_get_y boundary not discounted: %+v", bxgy)
	}
}

func TestPriceLineMisconfiguredBulkKeepsComputedTotal(t *testing.T) {
	// Bundle price above plain pricing: the discount clamps at zero but
	// the computed bulk total is reported as-is, matching the catalog's
	// historical behavior for misconfigured rules.
	result, err := PriceLine(10, 3, Bulk{Threshold: 3, Price: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Discount != 0 {
		t.Fatalf("discount should clamp at zero, got %v", result.Discount)
	}
	if result.Total != 50 {
		t.Fatalf("total should reflect the bulk computation, got %v", result.Total)
	}
	if result.PromotionApplied {
		t.Fatalf("zero discount must not report promotionApplied")
	}
}

func TestPriceLineInvariants(t *testing.T) {
	prices := []float64{0, 0.01, 7.35, 40, 129.99}
	for _, price := range prices {
		rules := []Rule{
			nil,
			// Bundle of four for the price of three keeps the rule a
			// genuine discount at every unit price.
			Bulk{Threshold: 4, Price: Round2(price * 3)},
			BuyXGetY{Buy: 3, Free: 2},
		}
		for _, rule := range rules {
			for qty := 1; qty <= 25; qty++ {
				result, err := PriceLine(price, qty, rule)
				if err != nil {
					t.Fatalf("unexpected error for price=%v qty=%d: %v", price, qty, err)
				}
				if result.Total < 0 || result.Total > result.Subtotal {
					t.Fatalf("total out of range for price=%v qty=%d rule=%v: %+v", price, qty, rule, result)
				}
				if diff := math.Abs(result.Discount - Round2(result.Subtotal-result.Total)); diff > 0.01 {
					t.Fatalf("discount identity broken for price=%v qty=%d: %+v", price, qty, result)
				}
			}
		}
	}
}

func TestPriceLineIdempotent(t *testing.T) {
	first, err := PriceLine(7.35, 11, Bulk{Threshold: 4, Price: 25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := PriceLine(7.35, 11, Bulk{Threshold: 4, Price: 25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("identical inputs produced %+v and %+v", first, second)
	}
}

func TestPriceLineRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name  string
		price float64
		qty   int
		rule  Rule
		field string
	}{
		{name: "negative price", price: -1, qty: 1, field: "unitPrice"},
		{name: "nan price", price: math.NaN(), qty: 1, field: "unitPrice"},
		{name: "infinite price", price: math.Inf(1), qty: 1, field: "unitPrice"},
		{name: "zero quantity", price: 10, qty: 0, field: "quantity"},
		{name: "negative quantity", price: 10, qty: -3, field: "quantity"},
		{name: "zero threshold", price: 10, qty: 2, rule: Bulk{Threshold: 0, Price: 5}, field: "threshold"},
		{name: "negative bundle price", price: 10, qty: 2, rule: Bulk{Threshold: 2, Price: -5}, field: "price"},
		{name: "zero buy", price: 10, qty: 2, rule: BuyXGetY{Buy: 0, Free: 1}, field: "buy"},
		{name: "zero free", price: 10, qty: 2, rule: BuyXGetY{Buy: 2, Free: 0}, field: "free"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := PriceLine(tc.price, tc.qty, tc.rule)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("field = %q, want %q", verr.Field, tc.field)
			}
			if result != (LineResult{}) {
				t.Fatalf("failed call must not return a partial result: %+v", result)
			}
		})
	}
}

func TestPriceSaleSumsLines(t *testing.T) {
	lines := []Line{
		{UnitPrice: 40, Qty: 5, Rule: Bulk{Threshold: 3, Price: 100}},
		{UnitPrice: 50, Qty: 7, Rule: BuyXGetY{Buy: 2, Free: 1}},
		{UnitPrice: 12.5, Qty: 2},
	}
	totals, err := PriceSale(lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if totals.Subtotal != 575 {
		t.Fatalf("subtotal = %v, want 575", totals.Subtotal)
	}
	if totals.Total != 455 {
		t.Fatalf("total = %v, want 455", totals.Total)
	}
	if totals.Discount != 120 {
		t.Fatalf("discount = %v, want 120", totals.Discount)
	}
}

func TestPriceSaleAggregateLaw(t *testing.T) {
	a := Line{UnitPrice: 7.35, Qty: 4, Rule: Bulk{Threshold: 3, Price: 20}}
	b := Line{UnitPrice: 3.33, Qty: 5, Rule: BuyXGetY{Buy: 4, Free: 1}}

	totals, err := PriceSale([]Line{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ra, err := PriceLine(a.UnitPrice, a.Qty, a.Rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rb, err := PriceLine(b.UnitPrice, b.Qty, b.Rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := math.Abs(totals.Total - Round2(ra.Total+rb.Total)); diff > 0.01 {
		t.Fatalf("sale total %v disagrees with summed line totals %v", totals.Total, ra.Total+rb.Total)
	}
}

func TestPriceSaleEmpty(t *testing.T) {
	totals, err := PriceSale(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if totals != (SaleTotals{}) {
		t.Fatalf("empty sale should total zero, got %+v", totals)
	}
}

func TestPriceSaleFailsWholeCallOnInvalidLine(t *testing.T) {
	lines := []Line{
		{UnitPrice: 40, Qty: 2},
		{UnitPrice: -1, Qty: 1},
	}
	totals, err := PriceSale(lines)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if totals != (SaleTotals{}) {
		t.Fatalf("failed sale must not return partial totals: %+v", totals)
	}
}

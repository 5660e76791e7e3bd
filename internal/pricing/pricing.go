// Package pricing computes order totals. It is pure: same inputs, same
// output, byte for byte. All money is integer cents, all rates are integer
// basis points, and every derived field is rounded half-up to the cent the
// moment it is computed.
package pricing

type Line struct {
	Qty            int
	UnitPriceCents int
}

// Discount is either a percentage of the subtotal (basis points) or a fixed
// amount in cents. When both are set the percentage applies first.
type Discount struct {
	PercentBps  int
	AmountCents int
}

type Quote struct {
	SubtotalCents int `json:"subtotal_cents"`
	DiscountCents int `json:"discount_cents"`
	TaxCents      int `json:"tax_cents"`
	TipCents      int `json:"tip_cents"`
	TotalCents    int `json:"total_cents"`
}

// Compute applies discount to the subtotal, tax to the discounted subtotal,
// and tip after tax. The discount never drives the taxable base below zero.
func Compute(lines []Line, discount Discount, taxRateBps int, tipCents int) Quote {
	var subtotal int
	for _, l := range lines {
		subtotal += l.Qty * l.UnitPriceCents
	}

	disc := mulBps(subtotal, discount.PercentBps) + discount.AmountCents
	if disc > subtotal {
		disc = subtotal
	}
	if disc < 0 {
		disc = 0
	}

	taxable := subtotal - disc
	tax := mulBps(taxable, taxRateBps)
	if tipCents < 0 {
		tipCents = 0
	}

	return Quote{
		SubtotalCents: subtotal,
		DiscountCents: disc,
		TaxCents:      tax,
		TipCents:      tipCents,
		TotalCents:    taxable + tax + tipCents,
	}
}

// mulBps multiplies cents by a basis-point rate, rounding half-up.
func mulBps(cents, bps int) int {
	if cents <= 0 || bps <= 0 {
		return 0
	}
	return (cents*bps + 5000) / 10000
}

package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTaxAndTip(t *testing.T) {
	lines := []Line{{Qty: 2, UnitPriceCents: 1000}} // 20.00

	q := Compute(lines, Discount{}, 875, 0)
	assert.Equal(t, 2000, q.SubtotalCents)
	assert.Equal(t, 0, q.DiscountCents)
	assert.Equal(t, 175, q.TaxCents) // 8.75% of 20.00 = 1.75
	assert.Equal(t, 2175, q.TotalCents)

	withTip := Compute(lines, Discount{}, 875, 200)
	assert.Equal(t, 2375, withTip.TotalCents) // tip added after tax
}

func TestComputeDiscountBeforeTax(t *testing.T) {
	lines := []Line{{Qty: 1, UnitPriceCents: 1000}}

	// 10% off 10.00 = 1.00; tax 8.75% of 9.00 = 0.79 (78.75 rounds up)
	q := Compute(lines, Discount{PercentBps: 1000}, 875, 0)
	assert.Equal(t, 100, q.DiscountCents)
	assert.Equal(t, 79, q.TaxCents)
	assert.Equal(t, 979, q.TotalCents)
}

func TestComputeRoundHalfUp(t *testing.T) {
	// 3 * 3.33 = 9.99; 5% = 49.95 cents -> 50
	q := Compute([]Line{{Qty: 3, UnitPriceCents: 333}}, Discount{}, 500, 0)
	assert.Equal(t, 50, q.TaxCents)

	// exactly .5: 10.00 at 1.25% = 12.5 cents -> 13
	q = Compute([]Line{{Qty: 1, UnitPriceCents: 1000}}, Discount{}, 125, 0)
	assert.Equal(t, 13, q.TaxCents)
}

func TestComputeDeterministic(t *testing.T) {
	lines := []Line{
		{Qty: 2, UnitPriceCents: 475},
		{Qty: 1, UnitPriceCents: 325},
	}
	d := Discount{PercentBps: 1500, AmountCents: 25}

	first := Compute(lines, d, 875, 150)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, Compute(lines, d, 875, 150))
	}
}

func TestComputeEdges(t *testing.T) {
	t.Run("discount capped at subtotal", func(t *testing.T) {
		q := Compute([]Line{{Qty: 1, UnitPriceCents: 100}}, Discount{AmountCents: 500}, 875, 0)
		assert.Equal(t, 100, q.DiscountCents)
		assert.Equal(t, 0, q.TaxCents)
		assert.Equal(t, 0, q.TotalCents)
	})
	t.Run("negative tip ignored", func(t *testing.T) {
		q := Compute([]Line{{Qty: 1, UnitPriceCents: 100}}, Discount{}, 0, -50)
		assert.Equal(t, 0, q.TipCents)
		assert.Equal(t, 100, q.TotalCents)
	})
	t.Run("empty cart is zero", func(t *testing.T) {
		q := Compute(nil, Discount{}, 875, 0)
		assert.Equal(t, Quote{}, q)
	})
}

package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-cafe-fulfillment/internal/orders"
)

func milkLedger(stock int) *MemoryLedger {
	return NewMemoryLedger(Item{ID: "milk", Name: "Milk", QuantityInStock: stock, Unit: "g", IsAvailable: true})
}

func TestReserveAllOrNothing(t *testing.T) {
	ctx := context.Background()
	// two drinks needing 10g milk each against 15g in stock
	l := milkLedger(15)

	_, err := l.Reserve(ctx, "o1", []Line{{IngredientID: "milk", Qty: 20}})
	require.Error(t, err)

	var se *orders.InsufficientStockError
	require.True(t, errors.As(err, &se))
	require.Len(t, se.Shortfalls, 1)
	assert.Equal(t, "milk", se.Shortfalls[0].IngredientID)
	assert.Equal(t, 20, se.Shortfalls[0].Required)
	assert.Equal(t, 15, se.Shortfalls[0].Available)

	// nothing was decremented
	assert.Equal(t, 15, l.Stock("milk"))
}

func TestReserveReportsEveryShortfall(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(
		Item{ID: "milk", QuantityInStock: 5, IsAvailable: true},
		Item{ID: "beans", QuantityInStock: 100, IsAvailable: true},
		Item{ID: "oat", QuantityInStock: 0, IsAvailable: true},
	)

	_, err := l.Reserve(ctx, "o1", []Line{
		{IngredientID: "milk", Qty: 10},
		{IngredientID: "beans", Qty: 50},
		{IngredientID: "oat", Qty: 30},
	})
	var se *orders.InsufficientStockError
	require.ErrorAs(t, err, &se)
	require.Len(t, se.Shortfalls, 2) // milk and oat, not just the first

	// the line that would have fit was not touched either
	assert.Equal(t, 100, l.Stock("beans"))
}

func TestReserveUnavailableOverride(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(Item{ID: "syrup", QuantityInStock: 500, IsAvailable: false})

	_, err := l.Reserve(ctx, "o1", []Line{{IngredientID: "syrup", Qty: 10}})
	var se *orders.InsufficientStockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 0, se.Shortfalls[0].Available) // override wins over counted stock
}

func TestReleaseRestoresExactSnapshot(t *testing.T) {
	ctx := context.Background()
	l := milkLedger(100)

	resID, err := l.Reserve(ctx, "o1", []Line{{IngredientID: "milk", Qty: 40}})
	require.NoError(t, err)
	require.Equal(t, 60, l.Stock("milk"))

	require.NoError(t, l.Release(ctx, resID))
	assert.Equal(t, 100, l.Stock("milk"))

	// releasing again is a no-op, stock does not inflate
	require.NoError(t, l.Release(ctx, resID))
	assert.Equal(t, 100, l.Stock("milk"))
}

func TestNoOversellUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	const (
		stock    = 50
		writers  = 20
		required = 7 // 20*7 = 140 > 50
	)
	l := milkLedger(stock)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Reserve(ctx, "order", []Line{{IngredientID: "milk", Qty: required}})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, stock/required, succeeded)
	assert.Equal(t, stock-succeeded*required, l.Stock("milk"))
	assert.GreaterOrEqual(t, l.Stock("milk"), 0)
}

func TestAggregateLines(t *testing.T) {
	got := AggregateLines([]Line{
		{IngredientID: "milk", Qty: 10},
		{IngredientID: "beans", Qty: 18},
		{IngredientID: "milk", Qty: 10},
	})
	assert.Equal(t, []Line{
		{IngredientID: "milk", Qty: 20},
		{IngredientID: "beans", Qty: 18},
	}, got)
}

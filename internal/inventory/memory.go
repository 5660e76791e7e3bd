package inventory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-cafe-fulfillment/internal/orders"
)

// MemoryLedger implements Ledger in process with the same all-or-nothing
// semantics as PGLedger. Used by tests and local development.
type MemoryLedger struct {
	mu           sync.Mutex
	items        map[string]*Item
	reservations map[string]*memReservation
}

type memReservation struct {
	orderID  string
	lines    []Line
	released bool
}

func NewMemoryLedger(items ...Item) *MemoryLedger {
	l := &MemoryLedger{
		items:        make(map[string]*Item),
		reservations: make(map[string]*memReservation),
	}
	for _, it := range items {
		cp := it
		l.items[it.ID] = &cp
	}
	return l
}

func (l *MemoryLedger) Reserve(ctx context.Context, orderID string, lines []Line) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var shortfalls []orders.Shortfall
	for _, ln := range lines {
		it, ok := l.items[ln.IngredientID]
		if !ok {
			return "", fmt.Errorf("unknown ingredient: %s", ln.IngredientID)
		}
		if !it.IsAvailable {
			shortfalls = append(shortfalls, orders.Shortfall{
				IngredientID: ln.IngredientID, Required: ln.Qty, Available: 0,
			})
			continue
		}
		if it.QuantityInStock < ln.Qty {
			shortfalls = append(shortfalls, orders.Shortfall{
				IngredientID: ln.IngredientID, Required: ln.Qty, Available: it.QuantityInStock,
			})
		}
	}
	if len(shortfalls) > 0 {
		return "", &orders.InsufficientStockError{Shortfalls: shortfalls}
	}

	for _, ln := range lines {
		l.items[ln.IngredientID].QuantityInStock -= ln.Qty
	}
	id := uuid.NewString()
	snapshot := make([]Line, len(lines))
	copy(snapshot, lines)
	l.reservations[id] = &memReservation{orderID: orderID, lines: snapshot}
	return id, nil
}

func (l *MemoryLedger) Release(ctx context.Context, reservationID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.reservations[reservationID]
	if !ok || r.released {
		return nil
	}
	r.released = true
	for _, ln := range r.lines {
		if it, ok := l.items[ln.IngredientID]; ok {
			it.QuantityInStock += ln.Qty
		}
	}
	return nil
}

// Stock reports the current level of one ingredient.
func (l *MemoryLedger) Stock(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if it, ok := l.items[id]; ok {
		return it.QuantityInStock
	}
	return 0
}

// MemoryCatalog serves products from a fixed map.
type MemoryCatalog struct {
	mu       sync.Mutex
	products map[string]Product
}

func NewMemoryCatalog(products ...Product) *MemoryCatalog {
	c := &MemoryCatalog{products: make(map[string]Product)}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *MemoryCatalog) Product(ctx context.Context, id string) (*Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, fmt.Errorf("product not found: %s", id)
	}
	cp := p
	cp.Recipe = append([]Line(nil), p.Recipe...)
	return &cp, nil
}

func (c *MemoryCatalog) List(ctx context.Context) ([]Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	return out, nil
}

// SetRecipe swaps a product's recipe. Lets tests edit a recipe after an order
// reserved against the old one.
func (c *MemoryCatalog) SetRecipe(productID string, recipe []Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.products[productID]
	p.Recipe = recipe
	c.products[productID] = p
}

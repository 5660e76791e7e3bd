// Package inventory holds ingredient stock and the reservation ledger.
package inventory

import (
	"context"
	"time"
)

type Line struct {
	IngredientID string `json:"ingredient_id"`
	Qty          int    `json:"qty"`
}

type Item struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	QuantityInStock   int       `json:"quantity_in_stock"`
	Unit              string    `json:"unit"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	IsAvailable       bool      `json:"is_available"` // manual override, wins over stock level
	UpdatedAt         time.Time `json:"updated_at"`
}

// Ledger reserves and releases ingredient stock. Reserve is all-or-nothing:
// either every line is decremented in one atomic step or nothing changes and
// the error is *orders.InsufficientStockError listing every short line.
// Release restores exactly the recorded snapshot, never the live recipe.
type Ledger interface {
	Reserve(ctx context.Context, orderID string, lines []Line) (reservationID string, err error)
	Release(ctx context.Context, reservationID string) error
}

// Product is a menu item with its recipe. Recipes expand to ingredient lines
// at order time; the order itself snapshots name and price.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PriceCents  int    `json:"price_cents"`
	PrepMinutes int    `json:"prep_minutes"`
	Recipe      []Line `json:"recipe"`
}

type Catalog interface {
	Product(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]Product, error)
}

// AggregateLines sums quantities per ingredient across a whole cart so a
// shared ingredient is checked once against its total demand.
func AggregateLines(lines []Line) []Line {
	idx := make(map[string]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if i, ok := idx[l.IngredientID]; ok {
			out[i].Qty += l.Qty
			continue
		}
		idx[l.IngredientID] = len(out)
		out = append(out, l)
	}
	return out
}

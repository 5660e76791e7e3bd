package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-cafe-fulfillment/internal/orders"
)

type PGLedger struct{ DB *pgxpool.Pool }

// Reserve locks every ingredient row (FOR UPDATE), checks every line, and only
// commits when all of them fit. A single short line aborts the whole
// transaction, so no partial decrement is ever observable. Shortfalls are
// collected for every short line, not just the first.
func (l *PGLedger) Reserve(ctx context.Context, orderID string, lines []Line) (string, error) {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var shortfalls []orders.Shortfall

	for _, ln := range lines {
		var (
			stock     int
			available bool
		)
		err := tx.QueryRow(ctx,
			`SELECT quantity_in_stock, is_available FROM inventory_items WHERE id=$1 FOR UPDATE`,
			ln.IngredientID).Scan(&stock, &available)
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("unknown ingredient: %s", ln.IngredientID)
		}
		if err != nil {
			return "", err
		}
		if !available {
			// manual unavailability override wins over the counted stock
			shortfalls = append(shortfalls, orders.Shortfall{
				IngredientID: ln.IngredientID, Required: ln.Qty, Available: 0,
			})
			continue
		}
		if stock < ln.Qty {
			shortfalls = append(shortfalls, orders.Shortfall{
				IngredientID: ln.IngredientID, Required: ln.Qty, Available: stock,
			})
			continue
		}
		if _, err := tx.Exec(ctx,
			`UPDATE inventory_items SET quantity_in_stock = quantity_in_stock - $2, updated_at = now() WHERE id=$1`,
			ln.IngredientID, ln.Qty); err != nil {
			return "", err
		}
	}

	if len(shortfalls) > 0 {
		return "", &orders.InsufficientStockError{Shortfalls: shortfalls} // rollback via defer
	}

	reservationID := uuid.NewString()
	if _, err := tx.Exec(ctx,
		`INSERT INTO reservations(id, order_id, status) VALUES ($1,$2,'RESERVED')`,
		reservationID, orderID); err != nil {
		return "", err
	}
	for _, ln := range lines {
		if _, err := tx.Exec(ctx,
			`INSERT INTO reservation_lines(reservation_id, ingredient_id, qty) VALUES ($1,$2,$3)`,
			reservationID, ln.IngredientID, ln.Qty); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return reservationID, nil
}

// Release restores the quantities recorded at reservation time. Recipe edits
// made since creation are irrelevant: only the stored snapshot is read.
// Releasing an already released reservation is a no-op.
func (l *PGLedger) Release(ctx context.Context, reservationID string) error {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx,
		`UPDATE reservations SET status='RELEASED', released_at=now() WHERE id=$1 AND status='RESERVED'`,
		reservationID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return nil // already released, or never existed
	}

	rows, err := tx.Query(ctx,
		`SELECT ingredient_id, qty FROM reservation_lines WHERE reservation_id=$1`, reservationID)
	if err != nil {
		return err
	}
	var lines []Line
	for rows.Next() {
		var ln Line
		if err := rows.Scan(&ln.IngredientID, &ln.Qty); err != nil {
			rows.Close()
			return err
		}
		lines = append(lines, ln)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, ln := range lines {
		if _, err := tx.Exec(ctx,
			`UPDATE inventory_items SET quantity_in_stock = quantity_in_stock + $2, updated_at = now() WHERE id=$1`,
			ln.IngredientID, ln.Qty); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// PGCatalog reads menu products and their recipes.
type PGCatalog struct{ DB *pgxpool.Pool }

func (c *PGCatalog) Product(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := c.DB.QueryRow(ctx,
		`SELECT id, name, price_cents, prep_minutes FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.PriceCents, &p.PrepMinutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("product not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	rows, err := c.DB.Query(ctx,
		`SELECT ingredient_id, qty FROM recipes WHERE product_id=$1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ln Line
		if err := rows.Scan(&ln.IngredientID, &ln.Qty); err != nil {
			return nil, err
		}
		p.Recipe = append(p.Recipe, ln)
	}
	return &p, rows.Err()
}

func (c *PGCatalog) List(ctx context.Context) ([]Product, error) {
	rows, err := c.DB.Query(ctx,
		`SELECT id, name, price_cents, prep_minutes FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.PrepMinutes); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Package ledger owns the per-product stock counters and all mutation
// of them. No other code path writes products.stock.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

var ErrProductNotFound = errors.New("product not found")

type InsufficientStockError struct {
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

type Product struct {
	ID         string
	TenantID   string
	Name       string
	Stock      int
	PriceCents int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Ledger struct{}

// Reserve locks the product row (FOR UPDATE) for the remainder of the
// caller's transaction, so concurrent reservations against the same
// low-stock product serialize instead of overselling. The lookup is
// tenant-scoped: a product owned by another tenant reads as absent.
func (Ledger) Reserve(ctx context.Context, tx pgx.Tx, tenantID, productID string, qty int) (*Product, error) {
	var p Product
	err := tx.QueryRow(ctx, `
		SELECT id, tenant_id, name, stock, price_cents
		FROM products WHERE id=$1 AND tenant_id=$2
		FOR UPDATE`, productID, tenantID,
	).Scan(&p.ID, &p.TenantID, &p.Name, &p.Stock, &p.PriceCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	if err != nil {
		return nil, err
	}

	if p.Stock < qty {
		return nil, &InsufficientStockError{
			ProductName: p.Name, Requested: qty, Available: p.Stock,
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id=$1`, p.ID, qty); err != nil {
		return nil, err
	}
	p.Stock -= qty
	return &p, nil
}

// Restore puts qty back on the shelf during order removal. A product
// deleted after the sale makes this a no-op: historical orders stay
// removable regardless.
func (Ledger) Restore(ctx context.Context, tx pgx.Tx, productID string, qty int) error {
	_, err := tx.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id=$1`, productID, qty)
	return err
}

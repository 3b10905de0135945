package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kasirkit/poscore/internal/ledger"
)

type ItemInput struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type Repo struct {
	DB     *pgxpool.Pool
	Ledger ledger.Ledger
}

// CreateOrderTx converts a cart into a committed sale in one transaction:
// every item is reserved against the tenant's stock in input order, the
// sale price is snapshotted from the product row, and the header plus
// items are inserted together. Any failure rolls back every reservation
// already taken in this attempt.
func (r *Repo) CreateOrderTx(ctx context.Context, tenantID, sellerID string, items []ItemInput) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, it := range items {
		if it.Qty < 1 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidQuantity, it.ProductID)
		}
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o := &Order{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		SellerID: sellerID,
		Status:   StatusCompleted,
	}
	for _, it := range items {
		p, err := r.Ledger.Reserve(ctx, tx, tenantID, it.ProductID, it.Qty)
		if err != nil {
			return nil, err
		}
		o.Items = append(o.Items, OrderItem{
			ID:          uuid.NewString(),
			OrderID:     o.ID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Qty:         it.Qty,
			PriceCents:  p.PriceCents,
		})
		o.TotalCents += p.PriceCents * it.Qty
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, tenant_id, seller_id, status, total_cents)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		o.ID, o.TenantID, o.SellerID, o.Status, o.TotalCents,
	).Scan(&o.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, qty, price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			it.ID, it.OrderID, it.ProductID, it.Qty, it.PriceCents,
		); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

// RemoveOrderTx reverses a sale: stock goes back for every item whose
// product still exists, then items, any deletion request, and the header
// are deleted in that order inside one transaction. The storage layer has
// no declared cascades; deletion ordering is this function's job.
//
// The initial FOR UPDATE load makes concurrent removals of the same order
// mutually exclusive: the loser observes zero rows and gets ErrOrderNotFound,
// so stock is never restored twice.
func (r *Repo) RemoveOrderTx(ctx context.Context, orderID, tenantID string) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o := &Order{ID: orderID, TenantID: tenantID}
	err = tx.QueryRow(ctx, `
		SELECT seller_id, status, total_cents, created_at
		FROM orders WHERE id=$1 AND tenant_id=$2
		FOR UPDATE`, orderID, tenantID,
	).Scan(&o.SellerID, &o.Status, &o.TotalCents, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT oi.id, oi.product_id, oi.qty, oi.price_cents, COALESCE(p.name, '')
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		it := OrderItem{OrderID: orderID}
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Qty, &it.PriceCents, &it.ProductName); err != nil {
			rows.Close()
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, it := range o.Items {
		if err := r.Ledger.Restore(ctx, tx, it.ProductID, it.Qty); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, orderID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM deletion_requests WHERE order_id=$1`, orderID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, orderID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOrders returns the tenant's orders newest first with items, product
// names, and the seller resolved. Totals and item prices come straight
// from the stored snapshots; nothing is recomputed from products.
func (r *Repo) ListOrders(ctx context.Context, tenantID string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT o.id, o.seller_id, COALESCE(u.name, ''), o.status, o.total_cents, o.created_at
		FROM orders o
		LEFT JOIN users u ON u.id = o.seller_id
		WHERE o.tenant_id=$1
		ORDER BY o.created_at DESC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	idx := map[string]int{}
	for rows.Next() {
		o := Order{TenantID: tenantID}
		if err := rows.Scan(&o.ID, &o.SellerID, &o.SellerName, &o.Status, &o.TotalCents, &o.CreatedAt); err != nil {
			return nil, err
		}
		idx[o.ID] = len(out)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(out))
	for _, o := range out {
		ids = append(ids, o.ID)
	}
	irows, err := r.DB.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, oi.qty, oi.price_cents, COALESCE(p.name, '')
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer irows.Close()
	for irows.Next() {
		var it OrderItem
		if err := irows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Qty, &it.PriceCents, &it.ProductName); err != nil {
			return nil, err
		}
		i := idx[it.OrderID]
		out[i].Items = append(out[i].Items, it)
	}
	return out, irows.Err()
}

package approval

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kasirkit/poscore/internal/orders"
)

// PGStore backs the workflow with the same Postgres instance the order
// transactions run on. The partial unique index on
// deletion_requests(order_id) WHERE status='PENDING' is the authority
// for the at-most-one-pending invariant; concurrent inserts surface
// here as ErrPendingExists.
type PGStore struct{ DB *pgxpool.Pool }

func (s *PGStore) OrderTenant(ctx context.Context, orderID string) (string, error) {
	var tenantID string
	err := s.DB.QueryRow(ctx,
		`SELECT tenant_id FROM orders WHERE id=$1`, orderID).Scan(&tenantID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", orders.ErrOrderNotFound
	}
	if err != nil {
		return "", err
	}
	return tenantID, nil
}

func (s *PGStore) PendingByOrder(ctx context.Context, orderID string) (*orders.DeletionRequest, error) {
	var req orders.DeletionRequest
	err := s.DB.QueryRow(ctx, `
		SELECT id, tenant_id, order_id, requested_by, reason, status, created_at
		FROM deletion_requests
		WHERE order_id=$1 AND status=$2`, orderID, orders.RequestPending,
	).Scan(&req.ID, &req.TenantID, &req.OrderID, &req.RequestedBy, &req.Reason, &req.Status, &req.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *PGStore) Insert(ctx context.Context, req *orders.DeletionRequest) error {
	err := s.DB.QueryRow(ctx, `
		INSERT INTO deletion_requests(id, tenant_id, order_id, requested_by, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		req.ID, req.TenantID, req.OrderID, req.RequestedBy, req.Reason, req.Status,
	).Scan(&req.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrPendingExists
	}
	return err
}

func (s *PGStore) ListPending(ctx context.Context, tenantID string) ([]orders.DeletionRequest, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT dr.id, dr.tenant_id, dr.order_id, dr.requested_by, COALESCE(u.name, ''),
		       dr.reason, dr.status, dr.created_at
		FROM deletion_requests dr
		LEFT JOIN users u ON u.id = dr.requested_by
		WHERE dr.tenant_id=$1 AND dr.status=$2
		ORDER BY dr.created_at DESC`, tenantID, orders.RequestPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.DeletionRequest
	for rows.Next() {
		var req orders.DeletionRequest
		if err := rows.Scan(&req.ID, &req.TenantID, &req.OrderID, &req.RequestedBy,
			&req.RequesterName, &req.Reason, &req.Status, &req.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (s *PGStore) Get(ctx context.Context, requestID, tenantID string) (*orders.DeletionRequest, error) {
	var req orders.DeletionRequest
	err := s.DB.QueryRow(ctx, `
		SELECT id, tenant_id, order_id, requested_by, reason, status, created_at
		FROM deletion_requests
		WHERE id=$1 AND tenant_id=$2`, requestID, tenantID,
	).Scan(&req.ID, &req.TenantID, &req.OrderID, &req.RequestedBy, &req.Reason, &req.Status, &req.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *PGStore) MarkRejected(ctx context.Context, requestID string) error {
	ct, err := s.DB.Exec(ctx, `
		UPDATE deletion_requests SET status=$2
		WHERE id=$1 AND status=$3`,
		requestID, orders.RequestRejected, orders.RequestPending)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrRequestResolved
	}
	return nil
}

// Package approval implements the two-party deletion review that gates
// order reversal: anyone may file a request, an authorized actor later
// approves (order removed, stock restored) or rejects it.
package approval

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kasirkit/poscore/internal/orders"
)

type Action string

const (
	ActionApprove Action = "APPROVE"
	ActionReject  Action = "REJECT"
)

var (
	ErrInvalidAction = errors.New("invalid action")
	// ErrPendingExists is returned by Store.Insert when another request
	// for the same order won the race; the service resolves it by
	// returning the winner.
	ErrPendingExists = errors.New("pending request already exists")
	// ErrRequestResolved guards the terminal states: a rejected request
	// cannot be resolved again.
	ErrRequestResolved = errors.New("request already resolved")
)

// Store is the persistence surface the workflow needs.
type Store interface {
	// OrderTenant returns the owning tenant of an order, or
	// orders.ErrOrderNotFound.
	OrderTenant(ctx context.Context, orderID string) (string, error)
	// PendingByOrder returns the PENDING request for an order, or nil.
	PendingByOrder(ctx context.Context, orderID string) (*orders.DeletionRequest, error)
	Insert(ctx context.Context, req *orders.DeletionRequest) error
	ListPending(ctx context.Context, tenantID string) ([]orders.DeletionRequest, error)
	// Get loads a request scoped to the caller's tenant, or
	// orders.ErrRequestNotFound.
	Get(ctx context.Context, requestID, tenantID string) (*orders.DeletionRequest, error)
	MarkRejected(ctx context.Context, requestID string) error
}

// OrderRemover is satisfied by orders.Repo.
type OrderRemover interface {
	RemoveOrderTx(ctx context.Context, orderID, tenantID string) (*orders.Order, error)
}

type Resolution struct {
	Action       Action
	Request      *orders.DeletionRequest
	RemovedOrder *orders.Order // set only on APPROVE
}

type Service struct {
	Store   Store
	Remover OrderRemover
	Log     *zap.Logger
}

// Request files a deletion request for an order. At most one PENDING
// request exists per order: a second call before resolution returns the
// existing request (existed=true) instead of creating a duplicate, and
// a concurrent insert race is settled by the partial unique index
// underneath Store.Insert.
func (s *Service) Request(ctx context.Context, orderID, requestedBy, reason string) (req *orders.DeletionRequest, existed bool, err error) {
	tenantID, err := s.Store.OrderTenant(ctx, orderID)
	if err != nil {
		return nil, false, err
	}

	if existing, err := s.Store.PendingByOrder(ctx, orderID); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, true, nil
	}

	req = &orders.DeletionRequest{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		OrderID:     orderID,
		RequestedBy: requestedBy,
		Reason:      reason,
		Status:      orders.RequestPending,
	}
	if err := s.Store.Insert(ctx, req); err != nil {
		if errors.Is(err, ErrPendingExists) {
			// Lost the race; hand back the winner's request.
			winner, rerr := s.Store.PendingByOrder(ctx, orderID)
			if rerr != nil {
				return nil, false, rerr
			}
			if winner != nil {
				return winner, true, nil
			}
			return nil, false, err
		}
		return nil, false, err
	}
	s.Log.Info("deletion requested",
		zap.String("request_id", req.ID),
		zap.String("order_id", orderID),
		zap.String("tenant_id", tenantID),
		zap.String("requested_by", requestedBy))
	return req, false, nil
}

func (s *Service) ListPending(ctx context.Context, tenantID string) ([]orders.DeletionRequest, error) {
	return s.Store.ListPending(ctx, tenantID)
}

// Resolve settles a pending request. REJECT is terminal and keeps the
// row for audit. APPROVE removes the order under the order's own
// recorded tenant, not the resolver's, so the removal can never target
// another tenant's scope; the request row disappears with the order.
func (s *Service) Resolve(ctx context.Context, requestID, tenantID string, action Action) (*Resolution, error) {
	req, err := s.Store.Get(ctx, requestID, tenantID)
	if err != nil {
		return nil, err
	}

	switch action {
	case ActionReject:
		if !orders.CanTransition(req.Status, orders.RequestRejected) {
			return nil, ErrRequestResolved
		}
		if err := s.Store.MarkRejected(ctx, req.ID); err != nil {
			return nil, err
		}
		req.Status = orders.RequestRejected
		s.Log.Info("deletion rejected",
			zap.String("request_id", req.ID),
			zap.String("order_id", req.OrderID))
		return &Resolution{Action: ActionReject, Request: req}, nil

	case ActionApprove:
		if req.Status != orders.RequestPending {
			return nil, ErrRequestResolved
		}
		removed, err := s.Remover.RemoveOrderTx(ctx, req.OrderID, req.TenantID)
		if err != nil {
			return nil, err
		}
		s.Log.Info("deletion approved",
			zap.String("request_id", req.ID),
			zap.String("order_id", req.OrderID),
			zap.Int("restored_items", len(removed.Items)))
		return &Resolution{Action: ActionApprove, Request: req, RemovedOrder: removed}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidAction, action)
	}
}

package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kasirkit/poscore/internal/approval"
	"github.com/kasirkit/poscore/internal/orders"
	"github.com/kasirkit/poscore/internal/redisx"
)

// ApprovalService is satisfied by *approval.Service.
type ApprovalService interface {
	Request(ctx context.Context, orderID, requestedBy, reason string) (req *orders.DeletionRequest, existed bool, err error)
	ListPending(ctx context.Context, tenantID string) ([]orders.DeletionRequest, error)
	Resolve(ctx context.Context, requestID, tenantID string, action approval.Action) (*approval.Resolution, error)
}

type ApprovalHandler struct {
	Approvals ApprovalService
	Requested Publisher
	Resolved  Publisher
	Removed   Publisher
	Redis     *redis.Client
	Log       *zap.Logger
	Service   string
}

type requestDeletionReq struct {
	Reason string `json:"reason"`
}

type resolveReq struct {
	Action approval.Action `json:"action"`
}

type requestView struct {
	ID            string               `json:"id"`
	OrderID       string               `json:"order_id"`
	RequestedBy   string               `json:"requested_by"`
	RequesterName string               `json:"requester_name,omitempty"`
	Reason        string               `json:"reason"`
	Status        orders.RequestStatus `json:"status"`
	CreatedAt     time.Time            `json:"created_at"`
}

func requestViewOf(req *orders.DeletionRequest) requestView {
	return requestView{
		ID:            req.ID,
		OrderID:       req.OrderID,
		RequestedBy:   req.RequestedBy,
		RequesterName: req.RequesterName,
		Reason:        req.Reason,
		Status:        req.Status,
		CreatedAt:     req.CreatedAt,
	}
}

func (h *ApprovalHandler) Register(r *chi.Mux) {
	r.Post("/orders/{id}/deletion-requests", h.requestDeletion)
	r.Get("/deletion-requests", h.listPending)
	r.Post("/deletion-requests/{id}/resolve", h.resolve)
}

func (h *ApprovalHandler) requestDeletion(w http.ResponseWriter, r *http.Request) {
	requester := userID(r)
	orderID := chi.URLParam(r, "id")
	if requester == "" || orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user or order id"})
		return
	}
	var body requestDeletionReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	req, existed, err := h.Approvals.Request(ctx, orderID, requester, body.Reason)
	if err != nil {
		writeErr(w, h.Log, err, zap.String("order_id", orderID))
		return
	}
	if existed {
		writeJSON(w, http.StatusOK, requestViewOf(req))
		return
	}

	// Advisory fast-path marker; the partial unique index in Postgres
	// remains the authority for at-most-one-pending.
	guard := fmt.Sprintf(redisx.KeyPendingRequest, orderID)
	_ = h.Redis.SetNX(ctx, guard, req.ID, redisx.TTLPendingRequest).Err()

	publishEvent(h.Requested, h.Service, orders.EventDeletionRequested, req.OrderID, orders.DeletionRequestedPayload{
		RequestID:   req.ID,
		OrderID:     req.OrderID,
		TenantID:    req.TenantID,
		RequestedBy: req.RequestedBy,
		Reason:      req.Reason,
	}, r.Header.Get("X-Request-Id"))

	writeJSON(w, http.StatusCreated, requestViewOf(req))
}

func (h *ApprovalHandler) listPending(w http.ResponseWriter, r *http.Request) {
	tenant := tenantID(r)
	if tenant == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing tenant"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Approvals.ListPending(ctx, tenant)
	if err != nil {
		writeErr(w, h.Log, err, zap.String("tenant_id", tenant))
		return
	}
	views := make([]requestView, 0, len(list))
	for i := range list {
		views = append(views, requestViewOf(&list[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *ApprovalHandler) resolve(w http.ResponseWriter, r *http.Request) {
	tenant := tenantID(r)
	requestID := chi.URLParam(r, "id")
	if tenant == "" || requestID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing tenant or request id"})
		return
	}
	var body resolveReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Approvals.Resolve(ctx, requestID, tenant, body.Action)
	if err != nil {
		writeErr(w, h.Log, err, zap.String("request_id", requestID))
		return
	}

	trace := r.Header.Get("X-Request-Id")
	publishEvent(h.Resolved, h.Service, orders.EventDeletionResolved, res.Request.OrderID, orders.DeletionResolvedPayload{
		RequestID: res.Request.ID,
		OrderID:   res.Request.OrderID,
		TenantID:  res.Request.TenantID,
		Action:    string(res.Action),
	}, trace)

	if res.Action == approval.ActionApprove {
		o := res.RemovedOrder
		_ = h.Redis.Del(ctx,
			fmt.Sprintf(redisx.KeyOrdersByTenant, o.TenantID),
			fmt.Sprintf(redisx.KeyPendingRequest, o.ID),
		).Err()
		publishEvent(h.Removed, h.Service, orders.EventOrderRemoved, o.ID, orders.OrderRemovedPayload{
			OrderID:    o.ID,
			TenantID:   o.TenantID,
			Restored:   orders.Snapshots(o.Items),
			TotalCents: o.TotalCents,
		}, trace)
		writeJSON(w, http.StatusOK, map[string]string{"status": "approved", "order_id": o.ID})
		return
	}

	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyPendingRequest, res.Request.OrderID)).Err()
	writeJSON(w, http.StatusOK, requestViewOf(res.Request))
}

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

	"github.com/kasirkit/poscore/internal/orders"
	"github.com/kasirkit/poscore/internal/redisx"
)

// OrderStore is satisfied by *orders.Repo.
type OrderStore interface {
	CreateOrderTx(ctx context.Context, tenantID, sellerID string, items []orders.ItemInput) (*orders.Order, error)
	RemoveOrderTx(ctx context.Context, orderID, tenantID string) (*orders.Order, error)
	ListOrders(ctx context.Context, tenantID string) ([]orders.Order, error)
}

type OrdersHandler struct {
	Store   OrderStore
	Created Publisher
	Removed Publisher
	Redis   *redis.Client
	Log     *zap.Logger
	Service string
}

type CreateOrderReq struct {
	Items []orders.ItemInput `json:"items"`
}

type orderItemView struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Qty         int    `json:"qty"`
	PriceCents  int    `json:"price_cents"`
}

type orderView struct {
	ID         string          `json:"id"`
	SellerID   string          `json:"seller_id"`
	SellerName string          `json:"seller_name,omitempty"`
	Status     orders.Status   `json:"status"`
	TotalCents int             `json:"total_cents"`
	CreatedAt  time.Time       `json:"created_at"`
	Items      []orderItemView `json:"items"`
}

func viewOf(o *orders.Order) orderView {
	v := orderView{
		ID:         o.ID,
		SellerID:   o.SellerID,
		SellerName: o.SellerName,
		Status:     o.Status,
		TotalCents: o.TotalCents,
		CreatedAt:  o.CreatedAt,
		Items:      make([]orderItemView, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		v.Items = append(v.Items, orderItemView{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Qty:         it.Qty,
			PriceCents:  it.PriceCents,
		})
	}
	return v
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Delete("/orders/{id}", h.removeOrder)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	tenant, seller := tenantID(r), userID(r)
	if tenant == "" || seller == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing tenant or user"})
		return
	}
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Store.CreateOrderTx(ctx, tenant, seller, req.Items)
	if err != nil {
		writeErr(w, h.Log, err, zap.String("tenant_id", tenant))
		return
	}

	h.invalidateOrders(ctx, tenant)
	publishEvent(h.Created, h.Service, orders.EventOrderCreated, o.ID, orders.OrderCreatedPayload{
		OrderID:    o.ID,
		TenantID:   o.TenantID,
		SellerID:   o.SellerID,
		Items:      orders.Snapshots(o.Items),
		TotalCents: o.TotalCents,
	}, r.Header.Get("X-Request-Id"))

	writeJSON(w, http.StatusCreated, viewOf(o))
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	tenant := tenantID(r)
	if tenant == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing tenant"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrdersByTenant, tenant)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(s))
		return
	}

	list, err := h.Store.ListOrders(ctx, tenant)
	if err != nil {
		writeErr(w, h.Log, err, zap.String("tenant_id", tenant))
		return
	}
	views := make([]orderView, 0, len(list))
	for i := range list {
		views = append(views, viewOf(&list[i]))
	}
	b, _ := json.Marshal(views)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLOrdersCache).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *OrdersHandler) removeOrder(w http.ResponseWriter, r *http.Request) {
	tenant := tenantID(r)
	orderID := chi.URLParam(r, "id")
	if tenant == "" || orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing tenant or order id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Store.RemoveOrderTx(ctx, orderID, tenant)
	if err != nil {
		writeErr(w, h.Log, err, zap.String("tenant_id", tenant), zap.String("order_id", orderID))
		return
	}

	h.invalidateOrders(ctx, tenant)
	publishEvent(h.Removed, h.Service, orders.EventOrderRemoved, o.ID, orders.OrderRemovedPayload{
		OrderID:    o.ID,
		TenantID:   o.TenantID,
		Restored:   orders.Snapshots(o.Items),
		TotalCents: o.TotalCents,
	}, r.Header.Get("X-Request-Id"))

	writeJSON(w, http.StatusOK, map[string]string{"status": "removed", "order_id": o.ID})
}

func (h *OrdersHandler) invalidateOrders(ctx context.Context, tenant string) {
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrdersByTenant, tenant)).Err()
}

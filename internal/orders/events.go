package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated      = "OrderCreated"
	EventOrderRemoved      = "OrderRemoved"
	EventDeletionRequested = "DeletionRequested"
	EventDeletionResolved  = "DeletionResolved"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type ItemSnapshot struct {
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents"`
}

// OrderCreatedPayload carries the frozen prices and total; the reporting
// consumer treats them as the source of truth for revenue.
type OrderCreatedPayload struct {
	OrderID    string         `json:"order_id"`
	TenantID   string         `json:"tenant_id"`
	SellerID   string         `json:"seller_id"`
	Items      []ItemSnapshot `json:"items"`
	TotalCents int            `json:"total_cents"`
}

type OrderRemovedPayload struct {
	OrderID    string         `json:"order_id"`
	TenantID   string         `json:"tenant_id"`
	Restored   []ItemSnapshot `json:"restored"`
	TotalCents int            `json:"total_cents"`
}

type DeletionRequestedPayload struct {
	RequestID   string `json:"request_id"`
	OrderID     string `json:"order_id"`
	TenantID    string `json:"tenant_id"`
	RequestedBy string `json:"requested_by"`
	Reason      string `json:"reason"`
}

type DeletionResolvedPayload struct {
	RequestID string `json:"request_id"`
	OrderID   string `json:"order_id"`
	TenantID  string `json:"tenant_id"`
	Action    string `json:"action"` // APPROVE | REJECT
}

func Snapshots(items []OrderItem) []ItemSnapshot {
	out := make([]ItemSnapshot, 0, len(items))
	for _, it := range items {
		out = append(out, ItemSnapshot{ProductID: it.ProductID, Qty: it.Qty, PriceCents: it.PriceCents})
	}
	return out
}

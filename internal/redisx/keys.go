package redisx

import "time"

const (
	// Cached order list per tenant: orders:{tenant_id} -> JSON array.
	// Dropped on every create/remove so reads never see a stale total.
	KeyOrdersByTenant = "orders:%s"

	// Fast-path duplicate-pending guard: pending:order:{order_id} -> request_id.
	// Advisory only; the partial unique index in Postgres is the authority.
	KeyPendingRequest = "pending:order:%s"
)

var (
	TTLOrdersCache    = 5 * time.Minute
	TTLPendingRequest = 24 * time.Hour
)

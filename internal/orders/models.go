package orders

import "time"

type Order struct {
	ID         string
	TenantID   string
	SellerID   string
	SellerName string
	Status     Status
	TotalCents int
	CreatedAt  time.Time
	Items      []OrderItem
}

// OrderItem carries the price snapshot taken at sale time. It is never
// re-read from the product row, so later price changes leave historical
// totals untouched.
type OrderItem struct {
	ID          string
	OrderID     string
	ProductID   string
	ProductName string
	Qty         int
	PriceCents  int
}

type DeletionRequest struct {
	ID            string
	TenantID      string
	OrderID       string
	RequestedBy   string
	RequesterName string
	Reason        string
	Status        RequestStatus
	CreatedAt     time.Time
}

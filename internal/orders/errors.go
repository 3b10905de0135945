package orders

import "errors"

var (
	// ErrOrderNotFound covers both a missing row and a row owned by
	// another tenant; callers cannot tell the two apart.
	ErrOrderNotFound   = errors.New("order not found")
	ErrRequestNotFound = errors.New("deletion request not found")

	ErrEmptyOrder      = errors.New("order must contain at least one item")
	ErrInvalidQuantity = errors.New("item quantity must be positive")
)

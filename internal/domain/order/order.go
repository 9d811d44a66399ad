package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPlaced    Status = "placed"
	StatusCancelled Status = "cancelled"
)

var (
	// ErrNotFound is returned when no order matches the ID.
	ErrNotFound = errors.New("order not found")
	// ErrStatusChanged is returned by Repository.UpdateStatus when the order is
	// no longer in the expected status.
	ErrStatusChanged = errors.New("order status changed")
)

// Order is a placed customer order with pricing and promotion details.
type Order struct {
	ID        string
	UserID    string
	BranchID  string
	Items     []Item
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	Total     decimal.Decimal
	PromoCode string
	Status    Status
	CreatedAt time.Time
}

// Item is a single line of an order, priced at placement time.
type Item struct {
	MenuItemID string
	Quantity   int
	UnitPrice  decimal.Decimal
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// UpdateStatus moves the order from one status to another, returning
	// ErrStatusChanged if it is not in the from status.
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	// CountUserOrders counts the user's non-cancelled orders placed with the
	// given promotion code.
	CountUserOrders(ctx context.Context, userID, code string) (int, error)
}

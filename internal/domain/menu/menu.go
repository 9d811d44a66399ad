// Package menu describes the items a branch sells.
package menu

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested menu item does not exist.
var ErrNotFound = errors.New("menu item not found")

// Item is a sellable dish or drink. An empty BranchID means the item is on
// every branch's menu.
type Item struct {
	ID        string
	BranchID  string
	Name      string
	Category  string
	Price     decimal.Decimal
	Available bool
}

// ServedAt reports whether the item can be ordered at branchID.
func (i Item) ServedAt(branchID string) bool {
	return i.Available && (i.BranchID == "" || i.BranchID == branchID)
}

// Repository defines read operations for the menu.
type Repository interface {
	// List returns the items served at branchID, or every item when branchID
	// is empty.
	List(ctx context.Context, branchID string) ([]Item, error)
	GetByIDs(ctx context.Context, ids []string) ([]Item, error)
}

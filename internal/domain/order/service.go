// Package order implements order placement and cancellation.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/foodhub-promotions/internal/domain/menu"
	"github.com/xenking/foodhub-promotions/internal/domain/promotion"
)

// Sentinel errors for order validation.
var (
	ErrEmptyItems     = errors.New("items required")
	ErrNotCancellable = errors.New("order cannot be cancelled")
)

// ItemNotFoundError indicates a requested menu item does not exist or is not
// served at the order's branch.
type ItemNotFoundError struct {
	MenuItemID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("menu item %s not found", e.MenuItemID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	MenuItemID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for menu item %s", e.MenuItemID)
}

// Promotions applies a promotion code to an order being placed.
type Promotions interface {
	ApplyAndConsume(ctx context.Context, ec promotion.EvaluationContext) (*promotion.EvaluationResult, error)
}

// LineRequest is a requested order line.
type LineRequest struct {
	MenuItemID string
	Quantity   int
}

// PlaceOrderRequest holds the input for placing an order. UserID and
// BranchID may be empty.
type PlaceOrderRequest struct {
	UserID    string
	BranchID  string
	Items     []LineRequest
	PromoCode string
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order     *Order
	MenuItems []menu.Item
}

// Service encapsulates order placement business logic.
type Service struct {
	menu   menu.Repository
	promos Promotions
	orders Repository
	now    func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	items menu.Repository,
	promos Promotions,
	orders Repository,
) *Service {
	return &Service{
		menu:   items,
		promos: promos,
		orders: orders,
		now:    time.Now,
	}
}

// PlaceOrder prices the requested lines from the menu, applies and consumes
// the promotion code if one is given, and persists the order.
//
// The promotion use is consumed before the order is written. If the write
// fails the use stays consumed.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{MenuItemID: item.MenuItemID}
		}
		ids[i] = item.MenuItemID
	}

	fetched, err := s.menu.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get menu items")
	}
	byID := make(map[string]menu.Item, len(fetched))
	for _, it := range fetched {
		byID[it.ID] = it
	}

	var (
		lines     = make([]Item, len(req.Items))
		evalItems = make([]promotion.Item, len(req.Items))
		menuItems = make([]menu.Item, 0, len(req.Items))
		subtotal  = decimal.Zero
	)
	for i, item := range req.Items {
		mi, ok := byID[item.MenuItemID]
		if !ok || !mi.ServedAt(req.BranchID) {
			return nil, &ItemNotFoundError{MenuItemID: item.MenuItemID}
		}
		menuItems = append(menuItems, mi)

		lines[i] = Item{MenuItemID: mi.ID, Quantity: item.Quantity, UnitPrice: mi.Price}
		evalItems[i] = promotion.Item{ID: mi.ID, Quantity: item.Quantity, UnitPrice: mi.Price}
		subtotal = subtotal.Add(mi.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	subtotal = subtotal.Round(2)

	o := &Order{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		BranchID:  req.BranchID,
		Items:     lines,
		Subtotal:  subtotal,
		Discount:  decimal.Zero,
		Total:     subtotal,
		Status:    StatusPlaced,
		CreatedAt: s.now().UTC(),
	}

	if req.PromoCode != "" {
		ec, err := promotion.NewEvaluationContext(req.PromoCode, subtotal, evalItems, req.UserID, req.BranchID)
		if err != nil {
			return nil, err
		}
		res, err := s.promos.ApplyAndConsume(ctx, ec)
		if err != nil {
			return nil, errors.Wrap(err, "apply promotion")
		}
		o.PromoCode = res.Code
		o.Discount = res.Discount
		o.Total = res.Total
	}

	if err := s.orders.Create(ctx, o); err != nil {
		if o.PromoCode != "" {
			zctx.From(ctx).Error("Order not stored after promotion was consumed",
				zap.String("order_id", o.ID),
				zap.String("code", o.PromoCode),
				zap.Error(err),
			)
		}
		return nil, errors.Wrap(err, "create order")
	}

	return &PlaceOrderResult{
		Order:     o,
		MenuItems: menuItems,
	}, nil
}

// Cancel marks the order cancelled so it no longer counts toward per-user
// promotion limits. The promotion use it consumed is not returned. A user can
// only cancel their own orders; other users get ErrNotFound.
func (s *Service) Cancel(ctx context.Context, id, userID string) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	if o.UserID != "" && o.UserID != userID {
		return nil, ErrNotFound
	}
	if o.Status != StatusPlaced {
		return nil, ErrNotCancellable
	}

	if err := s.orders.UpdateStatus(ctx, id, StatusPlaced, StatusCancelled); err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return nil, ErrNotCancellable
		}
		return nil, errors.Wrap(err, "update order status")
	}
	o.Status = StatusCancelled

	zctx.From(ctx).Info("Order cancelled",
		zap.String("order_id", id),
		zap.String("code", o.PromoCode),
	)
	return o, nil
}

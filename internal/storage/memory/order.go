package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/xenking/foodhub-promotions/internal/domain/order"
	"github.com/xenking/foodhub-promotions/internal/domain/promotion"
)

var (
	_ order.Repository       = (*Orders)(nil)
	_ promotion.OrderHistory = (*Orders)(nil)
)

// Orders is an in-memory order.Repository.
type Orders struct {
	mu     sync.RWMutex
	orders map[string]order.Order
}

// NewOrders returns an empty Orders store.
func NewOrders() *Orders {
	return &Orders{orders: make(map[string]order.Order)}
}

func (s *Orders) Create(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *o
	cp.Items = slices.Clone(o.Items)
	s.orders[o.ID] = cp
	return nil
}

func (s *Orders) Get(_ context.Context, id string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o.Items = slices.Clone(o.Items)
	return &o, nil
}

func (s *Orders) UpdateStatus(_ context.Context, id string, from, to order.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	if o.Status != from {
		return order.ErrStatusChanged
	}
	o.Status = to
	s.orders[id] = o
	return nil
}

func (s *Orders) CountUserOrders(_ context.Context, userID, code string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	for _, o := range s.orders {
		if o.UserID == userID && o.PromoCode == code && o.Status != order.StatusCancelled {
			n++
		}
	}
	return n, nil
}

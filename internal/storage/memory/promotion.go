// Package memory implements the domain repositories in process memory. It
// backs local runs without a database and the service-level tests.
package memory

import (
	"context"
	"sync"

	"github.com/xenking/foodhub-promotions/internal/domain/promotion"
)

var _ promotion.Repository = (*Promotions)(nil)

// Promotions is an in-memory promotion.Repository.
type Promotions struct {
	mu     sync.RWMutex
	promos map[string]promotion.Promotion
}

// NewPromotions returns an empty Promotions store.
func NewPromotions() *Promotions {
	return &Promotions{promos: make(map[string]promotion.Promotion)}
}

func (s *Promotions) FindByCode(_ context.Context, code string) (*promotion.Promotion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.promos[code]
	if !ok {
		return nil, promotion.ErrNotFound
	}
	return &p, nil
}

func (s *Promotions) Create(_ context.Context, p *promotion.Promotion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.promos[p.Code]; ok {
		return promotion.ErrAlreadyExists
	}
	s.promos[p.Code] = *p
	return nil
}

// IncrementUsage applies the Consumed transition under the store lock.
func (s *Promotions) IncrementUsage(_ context.Context, code string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.promos[code]
	if !ok {
		return 0, promotion.ErrNotFound
	}
	next, err := p.Consumed()
	if err != nil {
		return 0, promotion.ErrExhausted
	}
	s.promos[code] = next
	return next.UsageCount, nil
}

func (s *Promotions) UpdateStatus(_ context.Context, code string, status promotion.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.promos[code]
	if !ok {
		return promotion.ErrNotFound
	}
	p.Status = status
	s.promos[code] = p
	return nil
}

package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/xenking/foodhub-promotions/internal/domain/menu"
)

var _ menu.Repository = (*Menu)(nil)

// Menu is an in-memory menu.Repository.
type Menu struct {
	mu    sync.RWMutex
	items map[string]menu.Item
}

// NewMenu returns a Menu holding items.
func NewMenu(items ...menu.Item) *Menu {
	m := &Menu{items: make(map[string]menu.Item, len(items))}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

func (s *Menu) List(_ context.Context, branchID string) ([]menu.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]menu.Item, 0, len(s.items))
	for _, it := range s.items {
		if branchID == "" || it.BranchID == "" || it.BranchID == branchID {
			out = append(out, it)
		}
	}
	slices.SortFunc(out, func(a, b menu.Item) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Menu) GetByIDs(_ context.Context, ids []string) ([]menu.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]menu.Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := s.items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

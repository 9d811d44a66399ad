package memory

import (
	"context"
	"sync"

	"github.com/xenking/foodhub-promotions/internal/domain/auth"
)

var _ auth.Repository = (*APIKeys)(nil)

// APIKeys is an in-memory auth.Repository keyed by hash.
type APIKeys struct {
	mu   sync.RWMutex
	keys map[string]auth.APIKeyInfo
}

// NewAPIKeys returns an APIKeys store holding keys.
func NewAPIKeys(keys ...auth.APIKeyInfo) *APIKeys {
	s := &APIKeys{keys: make(map[string]auth.APIKeyInfo, len(keys))}
	for _, k := range keys {
		s.keys[k.KeyHash] = k
	}
	return s
}

func (s *APIKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k, ok := s.keys[hash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &k, nil
}

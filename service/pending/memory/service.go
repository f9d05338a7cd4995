// Package memory provides an in-memory pending-case store, used as the
// default and in tests.
package memory

import (
	"context"
	"sync"

	"github.com/Luft21/owo-dac-laptop/model"
	"github.com/Luft21/owo-dac-laptop/service/pending"
)

// Service keeps the pending list in process memory.
type Service struct {
	mu    sync.RWMutex
	items []model.Item
}

// Ensure Service implements pending.Store
var _ pending.Store = (*Service)(nil)

// New creates an empty store.
func New() *Service {
	return &Service{}
}

// Replace overwrites the stored list with a copy of items.
func (s *Service) Replace(_ context.Context, items []model.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]model.Item(nil), items...)
	return nil
}

// List returns a copy of the pending cases.
func (s *Service) List(_ context.Context) ([]model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Item(nil), s.items...), nil
}

// Remove drops the first case matching the natural key.
func (s *Service) Remove(_ context.Context, key model.ItemKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.items {
		if item.Key() == key {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return nil
}

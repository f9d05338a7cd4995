// Package fs persists the pending-case list as a single JSON document at a
// storage URL (file, s3, gs, mem, anything afs can address).
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"

	"github.com/Luft21/owo-dac-laptop/model"
	"github.com/Luft21/owo-dac-laptop/service/pending"
)

// Service implements a storage-backed pending list.
type Service struct {
	url string
	fs  afs.Service
	mu  sync.Mutex
}

// Ensure Service implements pending.Store
var _ pending.Store = (*Service)(nil)

// New creates a store persisting to the supplied URL.
func New(url string) *Service {
	return &Service{url: url, fs: afs.New()}
}

// Replace overwrites the stored document.
func (s *Service) Replace(ctx context.Context, items []model.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upload(ctx, items)
}

// List loads the stored document; an absent document is an empty list.
func (s *Service) List(ctx context.Context) ([]model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Remove drops the first case matching the natural key and re-uploads the
// document. A missing key leaves the document untouched.
func (s *Service) Remove(ctx context.Context, key model.ItemKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i, item := range items {
		if item.Key() == key {
			items = append(items[:i], items[i+1:]...)
			return s.upload(ctx, items)
		}
	}
	return nil
}

func (s *Service) load(ctx context.Context) ([]model.Item, error) {
	exists, err := s.fs.Exists(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending list %s: %w", s.url, err)
	}
	if !exists {
		return nil, nil
	}
	data, err := s.fs.DownloadWithURL(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("failed to read pending list %s: %w", s.url, err)
	}
	var items []model.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode pending list %s: %w", s.url, err)
	}
	return items, nil
}

func (s *Service) upload(ctx context.Context, items []model.Item) error {
	if items == nil {
		items = []model.Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode pending list: %w", err)
	}
	if err := s.fs.Upload(ctx, s.url, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save pending list %s: %w", s.url, err)
	}
	return nil
}

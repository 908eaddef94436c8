package cache

import (
	"context"
	"sync"

	"chanfilter/internal/catalog/models"
)

// MemorySink holds entries in a map. It does not survive restarts.
type MemorySink struct {
	mu      sync.Mutex
	entries map[models.IdentityKey]Entry
}

func NewMemorySink() *MemorySink {
	return &MemorySink{entries: make(map[models.IdentityKey]Entry)}
}

func (s *MemorySink) Load(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		e.Categories = e.Categories.Clone()
		out = append(out, e)
	}
	return out, nil
}

func (s *MemorySink) Save(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Categories = entry.Categories.Clone()
	s.entries[entry.Key] = entry
	return nil
}

func (s *MemorySink) Delete(_ context.Context, keys []models.IdentityKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}

// Len returns the number of stored entries.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemorySink) Close() error {
	return nil
}

package greeting

import (
	"context"
	"slices"
	"sync"
	"time"
)

type key struct {
	scope string
	typ   Type
}

// MemoryStore is a Store backed by a map.
type MemoryStore struct {
	mu        sync.RWMutex
	templates map[key]Template
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{templates: make(map[key]Template)}
}

func (s *MemoryStore) Get(ctx context.Context, scope string, typ Type) (*Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tpl, ok := s.templates[key{scope, typ}]
	if !ok {
		return nil, ErrNotFound
	}
	tpl.Media = slices.Clone(tpl.Media)
	return &tpl, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, tpl *Template) error {
	stored := *tpl
	stored.Media = slices.Clone(tpl.Media)
	if stored.Kind == "" {
		stored.Kind = KindText
	}
	stored.UpdatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[key{tpl.Scope, tpl.Type}] = stored
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, scope string, typ Type) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.templates, key{scope, typ})
	return nil
}

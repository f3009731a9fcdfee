// Package cache provides the per-session result stores for fetched
// payloads. One store exists per data kind (monthly reports, daily
// reports), keyed by canonical ISO date strings. There is no eviction:
// a session visits a bounded number of distinct months and days, so the
// stores are allowed to grow for the session's lifetime.
package cache

import (
	"sort"
	"sync"
)

// Store is a keyed cache of the last successfully fetched payload per key.
type Store[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

// NewStore creates an empty Store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{items: make(map[string]T)}
}

// Get retrieves the cached payload for key.
func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Set stores the payload for key, replacing any previous value.
func (s *Store[T]) Set(key string, value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

// Delete invalidates the entry for key.
func (s *Store[T]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// Len returns the current number of cached entries.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Keys returns the cached keys in ascending order, for diagnostics.
func (s *Store[T]) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.items))
	for k := range s.items {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

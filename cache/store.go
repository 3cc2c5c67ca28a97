package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultTTL is used when a Store is created without a positive TTL
const DefaultTTL = 10 * time.Minute

// Store is a typed, process-local TTL cache keyed by video id.
// Expired entries are reported as absent on read and are left in place;
// there is no janitor goroutine sweeping them.
type Store[T any] struct {
	name  string
	ttl   time.Duration
	items *gocache.Cache
}

// Entry is a live cache entry as returned by Snapshot
type Entry[T any] struct {
	Value     T         `json:"value"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewStore creates a new store with the given default TTL
func NewStore[T any](name string, ttl time.Duration) *Store[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store[T]{
		name:  name,
		ttl:   ttl,
		items: gocache.New(ttl, 0),
	}
}

// Name returns the cache kind (e.g. "metadata", "audio")
func (s *Store[T]) Name() string {
	return s.name
}

// TTL returns the default time-to-live of the store
func (s *Store[T]) TTL() time.Duration {
	return s.ttl
}

// Get returns the value for id, or false when missing or expired
func (s *Store[T]) Get(id string) (T, bool) {
	var zero T
	item, found := s.items.Get(id)
	if !found {
		return zero, false
	}
	value, ok := item.(T)
	if !ok {
		return zero, false
	}
	return value, true
}

// Put replaces the entry for id. A non-positive ttl uses the store default.
func (s *Store[T]) Put(id string, value T, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	s.items.Set(id, value, ttl)
}

// Delete removes the entry for id
func (s *Store[T]) Delete(id string) {
	s.items.Delete(id)
}

// Len returns the number of stored entries, including expired ones not yet overwritten
func (s *Store[T]) Len() int {
	return s.items.ItemCount()
}

// Snapshot returns all live entries
func (s *Store[T]) Snapshot() map[string]Entry[T] {
	items := s.items.Items()
	out := make(map[string]Entry[T], len(items))
	for id, item := range items {
		value, ok := item.Object.(T)
		if !ok {
			continue
		}
		out[id] = Entry[T]{
			Value:     value,
			ExpiresAt: time.Unix(0, item.Expiration),
		}
	}
	return out
}

// Flush removes every entry
func (s *Store[T]) Flush() {
	s.items.Flush()
}

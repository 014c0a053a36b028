// Package registry provides the process-wide map from shard name to its
// replicated database. Publication and unpublication are single-instant;
// readers on other stripes never block writers.
package registry

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const stripeCount = 16

// Map is a lock-striped concurrent map keyed by shard name.
type Map[V any] struct {
	stripes [stripeCount]stripe[V]
}

type stripe[V any] struct {
	mu sync.RWMutex
	m  map[string]V
}

func NewMap[V any]() *Map[V] {
	r := &Map[V]{}
	for i := range r.stripes {
		r.stripes[i].m = make(map[string]V)
	}
	return r
}

func (r *Map[V]) stripeFor(name string) *stripe[V] {
	return &r.stripes[xxhash.Sum64String(name)%stripeCount]
}

// Add publishes value under name. It returns false iff the name is taken.
func (r *Map[V]) Add(name string, value V) bool {
	s := r.stripeFor(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.m[name]; exists {
		return false
	}
	s.m[name] = value
	return true
}

func (r *Map[V]) Get(name string) (V, bool) {
	s := r.stripeFor(name)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[name]
	return v, ok
}

// Remove unpublishes name and returns the value that was registered, so
// the caller can drain any remaining holders.
func (r *Map[V]) Remove(name string) (V, bool) {
	s := r.stripeFor(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[name]
	if ok {
		delete(s.m, name)
	}
	return v, ok
}

// Clear unpublishes everything and returns the removed values.
func (r *Map[V]) Clear() []V {
	var removed []V
	for i := range r.stripes {
		s := &r.stripes[i]
		s.mu.Lock()
		for name, v := range s.m {
			removed = append(removed, v)
			delete(s.m, name)
		}
		s.mu.Unlock()
	}
	return removed
}

// Range calls fn for every entry. fn must not mutate the map.
func (r *Map[V]) Range(fn func(name string, value V)) {
	for i := range r.stripes {
		s := &r.stripes[i]
		s.mu.RLock()
		for name, v := range s.m {
			fn(name, v)
		}
		s.mu.RUnlock()
	}
}

func (r *Map[V]) Len() int {
	n := 0
	for i := range r.stripes {
		s := &r.stripes[i]
		s.mu.RLock()
		n += len(s.m)
		s.mu.RUnlock()
	}
	return n
}

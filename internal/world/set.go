package world

import (
	"reflect"
	"sync"
)

// Set is an unordered collection of Objects plus a unique-kinds index:
// adding a Unique object removes any existing instance of the same
// concrete type first. The world-frame loop iterates a snapshot of Set
// each frame and reaps objects whose Freed() is true. mu guards objects
// and unique: the world-frame goroutine calls Snapshot/ReapFreed while a
// state handler may concurrently call Add/Discard via Handle.World.
type Set struct {
	mu      sync.RWMutex
	objects map[Object]struct{}
	unique  map[reflect.Type]Object
}

// NewSet returns an empty world object set.
func NewSet() *Set {
	return &Set{
		objects: make(map[Object]struct{}),
		unique:  make(map[reflect.Type]Object),
	}
}

// GetUnique returns the sole instance of the unique kind matching sample's
// concrete type, if one has been added.
func (s *Set) GetUnique(sample Object) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.unique[reflect.TypeOf(sample)]
	return o, ok
}

// Add inserts obj. If obj implements Unique and reports UniqueKind() true,
// any existing object of the same concrete type is removed first.
func (s *Set) Add(obj Object) {
	if obj == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := obj.(Unique); ok && u.UniqueKind() {
		t := reflect.TypeOf(obj)
		if prev, exists := s.unique[t]; exists {
			delete(s.objects, prev)
		}
		s.unique[t] = obj
	}
	s.objects[obj] = struct{}{}
}

// Discard removes obj, clearing its unique-kind slot if applicable.
func (s *Set) Discard(obj Object) {
	if obj == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discardLocked(obj)
}

// discardLocked is Discard's body without acquiring mu, for callers (namely
// ReapFreed) that already hold the write lock.
func (s *Set) discardLocked(obj Object) {
	delete(s.objects, obj)
	if u, ok := obj.(Unique); ok && u.UniqueKind() {
		if s.unique[reflect.TypeOf(obj)] == obj {
			delete(s.unique, reflect.TypeOf(obj))
		}
	}
}

// Snapshot returns the current set of objects as a slice. Safe to call
// concurrently with Add/Discard from any goroutine; the returned slice is a
// point-in-time copy and does not itself update as the set changes (the
// world-frame loop takes one such snapshot per frame before updating, per
// spec.md §4.6: "iterate a snapshot of the world object set").
func (s *Set) Snapshot() []Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Object, 0, len(s.objects))
	for o := range s.objects {
		out = append(out, o)
	}
	return out
}

// Len reports the number of tracked objects.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// ReapFreed removes every object whose Freed() is true. Called by the
// world-frame loop between frames.
func (s *Set) ReapFreed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for o := range s.objects {
		if o.Freed() {
			s.discardLocked(o)
		}
	}
}

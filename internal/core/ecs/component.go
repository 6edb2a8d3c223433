package ecs

import "fmt"

// Releaser is implemented by components that own resources outside the
// store (scene nodes, geometry buffers). Release is called exactly once,
// when the owning entity is removed at a flush point.
type Releaser interface {
	Release()
}

// Storage is the type-erased view of a component store used by the
// Registry and by Selectors.
type Storage interface {
	Name() string
	Has(id EntityID) bool
	Len() int
	Remove(id EntityID)
	Compact()

	// entities returns the dense ID slice. Holes left by Remove are zero IDs
	// until the next Compact.
	entities() []EntityID
}

// Store is a sparse-set component store: a dense slice in attachment order
// plus an index map. Component pointers stay stable for the entity's life.
// No reflect, no interface{} on the hot path.
type Store[T any] struct {
	world *World
	name  string
	index map[EntityID]int
	ids   []EntityID
	data  []*T
	holes int
}

// NewStore creates a store for T and registers it with the world so
// ejected entities are cleared from it on flush.
func NewStore[T any](w *World) *Store[T] {
	var zero T
	s := &Store[T]{
		world: w,
		name:  fmt.Sprintf("%T", zero),
		index: make(map[EntityID]int, 256),
		ids:   make([]EntityID, 0, 256),
		data:  make([]*T, 0, 256),
	}
	w.registry.Register(s)
	return s
}

func (s *Store[T]) Name() string { return s.name }

// Set attaches c to id. Only entities created in the current tick (not yet
// flushed) accept components.
func (s *Store[T]) Set(id EntityID, c *T) error {
	if !s.world.pool.Alive(id) {
		return fmt.Errorf("set %s: %w", s.name, ErrStaleEntity)
	}
	if !s.world.IsPending(id) {
		return fmt.Errorf("set %s: %w", s.name, ErrLiveAttach)
	}
	if i, ok := s.index[id]; ok {
		s.data[i] = c
		return nil
	}
	s.index[id] = len(s.ids)
	s.ids = append(s.ids, id)
	s.data = append(s.data, c)
	return nil
}

func (s *Store[T]) Get(id EntityID) (*T, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.data[i], true
}

// MustGet returns the component or panics with *ComponentNotFoundError.
// Systems call it only for components implied by their selector.
func (s *Store[T]) MustGet(id EntityID) *T {
	i, ok := s.index[id]
	if !ok {
		panic(&ComponentNotFoundError{Entity: id, Component: s.name})
	}
	return s.data[i]
}

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.index[id]
	return ok
}

func (s *Store[T]) Len() int {
	return len(s.index)
}

// Remove drops id's component, running its Release hook. The dense slot is
// left as a hole so in-flight traversals keep their positions.
func (s *Store[T]) Remove(id EntityID) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	if r, ok := any(s.data[i]).(Releaser); ok {
		r.Release()
	}
	delete(s.index, id)
	s.ids[i] = 0
	s.data[i] = nil
	s.holes++
}

// Compact closes holes while preserving attachment order.
func (s *Store[T]) Compact() {
	if s.holes == 0 {
		return
	}
	n := 0
	for i, id := range s.ids {
		if id.IsZero() {
			continue
		}
		s.ids[n] = id
		s.data[n] = s.data[i]
		s.index[id] = n
		n++
	}
	clear(s.data[n:])
	s.ids = s.ids[:n]
	s.data = s.data[:n]
	s.holes = 0
}

func (s *Store[T]) entities() []EntityID {
	return s.ids
}

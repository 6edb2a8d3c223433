package ecs

import "iter"

// Selector yields the entities holding every one of a fixed set of component
// types. It is built once per system and may be traversed any number of times.
//
// A traversal walks the dense slice of the smallest store as it was when the
// traversal started, so components attached during the traversal are not
// visited. Pending and ejected entities are skipped, which makes ejection
// from inside the callback safe: no other entity is skipped or visited twice.
// Order is attachment order of the driving store, stable within a tick.
type Selector struct {
	world  *World
	stores []Storage
}

// NewSelector fixes the required component set.
func NewSelector(w *World, stores ...Storage) *Selector {
	if len(stores) == 0 {
		panic("ecs: selector needs at least one store")
	}
	return &Selector{world: w, stores: stores}
}

// All returns a lazy, restartable sequence of matching entities.
func (s *Selector) All() iter.Seq[EntityID] {
	return func(yield func(EntityID) bool) {
		drive := s.stores[0]
		for _, st := range s.stores[1:] {
			if st.Len() < drive.Len() {
				drive = st
			}
		}
		ids := drive.entities()
		n := len(ids)

		s.world.beginIteration()
		defer s.world.endIteration()

		for i := 0; i < n; i++ {
			id := ids[i]
			if id.IsZero() || !s.world.Visible(id) {
				continue
			}
			if !s.matches(id, drive) {
				continue
			}
			if !yield(id) {
				return
			}
		}
	}
}

// Each calls fn for every matching entity.
func (s *Selector) Each(fn func(EntityID)) {
	for id := range s.All() {
		fn(id)
	}
}

// Count returns the number of matching entities right now.
func (s *Selector) Count() int {
	n := 0
	for range s.All() {
		n++
	}
	return n
}

func (s *Selector) matches(id EntityID, skip Storage) bool {
	for _, st := range s.stores {
		if st == skip {
			continue
		}
		if !st.Has(id) {
			return false
		}
	}
	return true
}

// Query2 iterates over entities that have both component A and B.
type Query2[A, B any] struct {
	sel *Selector
	sa  *Store[A]
	sb  *Store[B]
}

func NewQuery2[A, B any](w *World, sa *Store[A], sb *Store[B]) *Query2[A, B] {
	return &Query2[A, B]{sel: NewSelector(w, sa, sb), sa: sa, sb: sb}
}

func (q *Query2[A, B]) Selector() *Selector { return q.sel }

func (q *Query2[A, B]) Each(fn func(EntityID, *A, *B)) {
	for id := range q.sel.All() {
		fn(id, q.sa.MustGet(id), q.sb.MustGet(id))
	}
}

// Query3 iterates over entities that have components A, B, and C.
type Query3[A, B, C any] struct {
	sel *Selector
	sa  *Store[A]
	sb  *Store[B]
	sc  *Store[C]
}

func NewQuery3[A, B, C any](w *World, sa *Store[A], sb *Store[B], sc *Store[C]) *Query3[A, B, C] {
	return &Query3[A, B, C]{sel: NewSelector(w, sa, sb, sc), sa: sa, sb: sb, sc: sc}
}

func (q *Query3[A, B, C]) Selector() *Selector { return q.sel }

func (q *Query3[A, B, C]) Each(fn func(EntityID, *A, *B, *C)) {
	for id := range q.sel.All() {
		fn(id, q.sa.MustGet(id), q.sb.MustGet(id), q.sc.MustGet(id))
	}
}

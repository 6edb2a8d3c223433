package ecs

// World is the top-level ECS container. It owns the entity pool, the component
// registry, and the deferred creation and ejection queues flushed between systems.
//
// Entities created during a tick are pending: they accept components but are
// invisible to selectors until the next Flush. Ejected entities are invisible
// immediately and removed from every store at the next Flush.
type World struct {
	pool     *EntityPool
	registry *Registry

	pending      map[EntityID]struct{}
	pendingQueue []EntityID
	ejected      map[EntityID]struct{}
	destroyQueue []EntityID

	iterating int
	stats     Stats
}

// Stats are cumulative lifecycle counters.
type Stats struct {
	Created  uint64
	Ejected  uint64
	Flushes  uint64
	Deferred uint64 // flushes skipped because a traversal was in progress
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		registry:     NewRegistry(),
		pending:      make(map[EntityID]struct{}, 64),
		pendingQueue: make([]EntityID, 0, 64),
		ejected:      make(map[EntityID]struct{}, 64),
		destroyQueue: make([]EntityID, 0, 64),
	}
}

func (w *World) Stats() Stats { return w.stats }

// Create allocates a new entity with no components. It becomes visible to
// selectors after the next Flush.
func (w *World) Create() EntityID {
	id := w.pool.Create()
	w.pending[id] = struct{}{}
	w.pendingQueue = append(w.pendingQueue, id)
	w.stats.Created++
	return id
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// Eject queues an entity for removal at the next flush point. Repeated calls
// are no-ops.
func (w *World) Eject(id EntityID) {
	if !w.pool.Alive(id) {
		return
	}
	if _, ok := w.ejected[id]; ok {
		return
	}
	w.ejected[id] = struct{}{}
	w.destroyQueue = append(w.destroyQueue, id)
}

func (w *World) IsPending(id EntityID) bool {
	_, ok := w.pending[id]
	return ok
}

// Visible reports whether selectors may yield id right now.
func (w *World) Visible(id EntityID) bool {
	if !w.pool.Alive(id) {
		return false
	}
	if _, ok := w.pending[id]; ok {
		return false
	}
	_, ok := w.ejected[id]
	return !ok
}

// Live returns the number of allocated entities, pending ones included.
func (w *World) Live() int {
	return w.pool.Len()
}

// Flush destroys all ejected entities, releasing their components, then
// makes pending entities visible. It returns false without doing anything
// when called from inside a traversal.
func (w *World) Flush() bool {
	if w.iterating > 0 {
		w.stats.Deferred++
		return false
	}
	w.stats.Flushes++
	if len(w.destroyQueue) > 0 {
		for _, id := range w.destroyQueue {
			w.registry.RemoveAll(id)
			w.pool.Destroy(id)
			delete(w.pending, id)
			delete(w.ejected, id)
			w.stats.Ejected++
		}
		w.destroyQueue = w.destroyQueue[:0]
		w.registry.CompactAll()
	}
	for _, id := range w.pendingQueue {
		delete(w.pending, id)
	}
	w.pendingQueue = w.pendingQueue[:0]
	return true
}

func (w *World) beginIteration() { w.iterating++ }
func (w *World) endIteration()   { w.iterating-- }

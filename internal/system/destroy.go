package system

import (
	"time"

	"github.com/citydefense/server/internal/component"
	"github.com/citydefense/server/internal/core/ecs"
	"github.com/citydefense/server/internal/core/event"
	coresys "github.com/citydefense/server/internal/core/system"
	"github.com/citydefense/server/internal/world"
)

// DestroyOnCollisionSystem kills every DestroyOnCollision entity whose
// collider reported a hit this tick: its hook runs, an EntityDestroyed event
// carrying its Scorable value is emitted, and the entity is ejected.
// Phase 4 (PostUpdate).
type DestroyOnCollisionSystem struct {
	ws *world.State
	q  *ecs.Query2[component.Collider, component.DestroyOnCollision]
}

func NewDestroyOnCollisionSystem(ws *world.State) *DestroyOnCollisionSystem {
	return &DestroyOnCollisionSystem{
		ws: ws,
		q:  ecs.NewQuery2(ws.ECS, ws.Colliders, ws.Destroys),
	}
}

func (s *DestroyOnCollisionSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *DestroyOnCollisionSystem) Update(_ time.Duration) {
	s.q.Each(func(id ecs.EntityID, c *component.Collider, d *component.DestroyOnCollision) {
		if c.Collides.IsZero() {
			return
		}
		if d.OnDestroy != nil {
			d.OnDestroy(id)
		}

		ev := event.EntityDestroyed{Entity: id, Frame: s.ws.Frame, Partner: c.Collides}
		if tr, ok := s.ws.Transforms.Get(id); ok {
			ev.Position = tr.Position
		}
		if sc, ok := s.ws.Scorables.Get(id); ok {
			ev.Points = sc.Points
			ev.Scorable = true
		}
		// The partner may already be ejected this tick; its components stay
		// readable until the flush.
		if sc, ok := s.ws.Scorables.Get(c.Collides); ok {
			ev.PartnerPoints = sc.Points
		}
		event.Emit(s.ws.Bus, ev)
		s.ws.ECS.Eject(id)
	})
}

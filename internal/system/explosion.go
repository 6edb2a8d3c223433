package system

import (
	"time"

	"github.com/citydefense/server/internal/component"
	"github.com/citydefense/server/internal/core/ecs"
	coresys "github.com/citydefense/server/internal/core/system"
	"github.com/citydefense/server/internal/world"
	"github.com/go-gl/mathgl/mgl64"
)

// ExplosionSystem advances every fireball's phase and copies its radius to
// the collider and the visual scale. Damage is left to Collision and
// DestroyOnCollision. The entity is ejected on the first tick its phase
// passes 1.
// Phase 2 (Update).
type ExplosionSystem struct {
	ws *world.State
	q  *ecs.Query2[component.Explosion, component.Collider]
}

func NewExplosionSystem(ws *world.State) *ExplosionSystem {
	return &ExplosionSystem{
		ws: ws,
		q:  ecs.NewQuery2(ws.ECS, ws.Explosions, ws.Colliders),
	}
}

func (s *ExplosionSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *ExplosionSystem) Update(dt time.Duration) {
	step := dt.Seconds() * component.ExplosionRate
	s.q.Each(func(id ecs.EntityID, e *component.Explosion, c *component.Collider) {
		e.T += step
		if e.Done() {
			s.ws.ECS.Eject(id)
			return
		}
		r := e.Radius()
		c.Radius = r
		if rd, ok := s.ws.Renderers.Get(id); ok {
			rd.Scale = mgl64.Vec3{r, r, r}
		}
	})
}

package system

import (
	"time"

	"github.com/citydefense/server/internal/component"
	"github.com/citydefense/server/internal/core/ecs"
	"github.com/citydefense/server/internal/core/event"
	coresys "github.com/citydefense/server/internal/core/system"
	"github.com/citydefense/server/internal/world"
)

// ProjectileSystem flies projectiles in a straight line. A projectile whose
// step would reach its destination lands exactly on it, runs its arrival
// hook and is ejected, so it never overshoots and arrives once.
// Phase 2 (Update).
type ProjectileSystem struct {
	ws *world.State
	q  *ecs.Query2[component.Transform, component.Projectile]
}

func NewProjectileSystem(ws *world.State) *ProjectileSystem {
	return &ProjectileSystem{
		ws: ws,
		q:  ecs.NewQuery2(ws.ECS, ws.Transforms, ws.Projectiles),
	}
}

func (s *ProjectileSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *ProjectileSystem) Update(dt time.Duration) {
	sec := dt.Seconds()
	frame := s.ws.Frame
	s.q.Each(func(id ecs.EntityID, tr *component.Transform, p *component.Projectile) {
		dir := p.Destination.Sub(tr.Position)
		move := p.Speed * sec
		if move >= dir.Len() {
			tr.MoveTo(p.Destination, frame)
			event.Emit(s.ws.Bus, event.ProjectileArrived{Entity: id, Position: p.Destination, Frame: frame})
			if p.OnArrival != nil {
				p.OnArrival(id, p.Destination)
			}
			s.ws.ECS.Eject(id)
			return
		}
		heading := dir.Normalize()
		tr.MoveBy(heading.Mul(move), frame)
		if r, ok := s.ws.Renderers.Get(id); ok {
			r.Heading = heading
		}
	})
}

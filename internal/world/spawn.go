package world

import (
	"fmt"

	"github.com/citydefense/server/internal/component"
	"github.com/citydefense/server/internal/core/ecs"
	"github.com/citydefense/server/internal/data"
	"github.com/citydefense/server/internal/render"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// Every spawn creates a pending entity and attaches its whole bundle before
// returning, so systems see it complete from the next flush on.

// Fire launches a player shot. It explodes on arrival with the arsenal's
// shot explosion size. A non-positive speed uses the arsenal speed.
func (s *State) Fire(start, dest mgl64.Vec3, speed float64) ecs.EntityID {
	t := s.Arsenal.Get(data.Shot)
	return s.spawnProjectile(t, render.KindShot, start, dest, speed, false)
}

// LaunchMissile launches an enemy missile: the Fire bundle plus a Scorable
// worth the arsenal's points when it is destroyed in flight.
func (s *State) LaunchMissile(start, dest mgl64.Vec3, speed float64) ecs.EntityID {
	t := s.Arsenal.Get(data.Missile)
	return s.spawnProjectile(t, render.KindMissile, start, dest, speed, true)
}

// Explode spawns a fireball at pos that grows to size and collapses.
func (s *State) Explode(pos mgl64.Vec3, size float64) ecs.EntityID {
	id := s.ECS.Create()
	node := s.allocNode()
	s.attach(id,
		s.Transforms.Set(id, component.NewTransform(pos)),
		s.Colliders.Set(id, &component.Collider{}),
		s.Explosions.Set(id, &component.Explosion{Size: size}),
		s.Renderers.Set(id, component.NewRenderer(s.Scene, node, render.KindExplosion, mgl64.Vec3{})),
	)
	return id
}

// SpawnBuilding places a building standing on the ground at (pos.x, pos.z).
// Its collider is a vertical capsule covering [0, height]; losing it costs
// the arsenal's (negative) building points.
func (s *State) SpawnBuilding(pos mgl64.Vec3, width, height float64) ecs.EntityID {
	b := s.Arsenal.Building
	center := mgl64.Vec3{pos.X(), height / 2, pos.Z()}
	half := height/2 - width
	if half < 0 {
		half = 0
	}

	id := s.ECS.Create()
	node := s.allocNode()
	s.attach(id,
		s.Transforms.Set(id, component.NewTransform(center)),
		s.Colliders.Set(id, &component.Collider{Radius: width, Height: half}),
		s.Destroys.Set(id, &component.DestroyOnCollision{OnDestroy: s.explodeHere(b.ExplosionSize)}),
		s.Scorables.Set(id, &component.Scorable{Points: b.Points}),
		s.Renderers.Set(id, component.NewRenderer(s.Scene, node, render.KindBuilding, mgl64.Vec3{width, height, b.Depth})),
	)
	if b.Points < 0 {
		s.Score.AddRescuable(-b.Points)
	}
	return id
}

func (s *State) spawnProjectile(t *data.ProjectileTemplate, kind render.Kind, start, dest mgl64.Vec3, speed float64, scorable bool) ecs.EntityID {
	if speed <= 0 {
		speed = t.Speed
	}
	size := t.ExplosionSize
	heading := dest.Sub(start)
	if heading.Len() > 0 {
		heading = heading.Normalize()
	}

	id := s.ECS.Create()
	r := component.NewRenderer(s.Scene, s.allocNode(), kind, mgl64.Vec3{t.Scale, t.Scale, t.Scale})
	r.Heading = heading
	trail := component.NewTrail(s.Scene, s.allocNode(), t.TrailPoints)
	trail.Record(start)
	s.attach(id,
		s.Transforms.Set(id, component.NewTransform(start)),
		s.Colliders.Set(id, &component.Collider{}),
		s.Projectiles.Set(id, &component.Projectile{
			Start:       start,
			Destination: dest,
			Speed:       speed,
			OnArrival:   func(_ ecs.EntityID, pos mgl64.Vec3) { s.Explode(pos, size) },
		}),
		s.Destroys.Set(id, &component.DestroyOnCollision{OnDestroy: s.explodeHere(size)}),
		s.Renderers.Set(id, r),
		s.Trails.Set(id, trail),
	)
	if scorable {
		s.attach(id, s.Scorables.Set(id, &component.Scorable{Points: t.Points}))
	}
	return id
}

// explodeHere returns a destroy hook spawning an explosion where the dying
// entity stands.
func (s *State) explodeHere(size float64) func(ecs.EntityID) {
	return func(id ecs.EntityID) {
		tr, ok := s.Transforms.Get(id)
		if !ok {
			return
		}
		s.Explode(tr.Position, size)
	}
}

// attach panics on the first failed Set. Spawn helpers only attach to the
// entity they just created, so a failure is a programming error.
func (s *State) attach(id ecs.EntityID, errs ...error) {
	for _, err := range errs {
		if err != nil {
			s.log.Error("attach component", zap.Stringer("entity", id), zap.Error(err))
			panic(fmt.Errorf("spawn %v: %w", id, err))
		}
	}
}

package system

import (
	"time"

	"github.com/citydefense/server/internal/component"
	"github.com/citydefense/server/internal/core/ecs"
	coresys "github.com/citydefense/server/internal/core/system"
	"github.com/citydefense/server/internal/spatial"
	"github.com/citydefense/server/internal/world"
	"github.com/go-gl/mathgl/mgl64"
)

type pairKey struct {
	lo, hi ecs.EntityID
}

// CollisionSystem rebuilds the broad-phase grid from every Transform+Collider
// entity, then tests each pair sharing a cell. A hit links both colliders
// to each other through Collides.
//
// With dedupe on, a pair sharing several cells is tested once per tick;
// otherwise it is retested in every shared cell, which only repeats the
// same result.
// Phase 3 (Physics).
type CollisionSystem struct {
	ws      *world.State
	q       *ecs.Query2[component.Transform, component.Collider]
	grid    *spatial.Grid
	dedupe  bool
	visited map[pairKey]struct{}
}

func NewCollisionSystem(ws *world.State, cellSize float64, dedupe bool) *CollisionSystem {
	return &CollisionSystem{
		ws:      ws,
		q:       ecs.NewQuery2(ws.ECS, ws.Transforms, ws.Colliders),
		grid:    spatial.NewGrid(cellSize),
		dedupe:  dedupe,
		visited: make(map[pairKey]struct{}, 1024),
	}
}

func (s *CollisionSystem) Phase() coresys.Phase { return coresys.PhasePhysics }

func (s *CollisionSystem) Update(_ time.Duration) {
	s.grid.Clear()
	clear(s.visited)
	s.q.Each(func(id ecs.EntityID, tr *component.Transform, c *component.Collider) {
		c.Reset()
		s.grid.Insert(id, tr.Position, c.Radius, c.Height)
	})

	var stats world.Stats
	stats.CellsOccupied = s.grid.Occupied()
	s.grid.EachCell(func(_ spatial.CellKey, ids []ecs.EntityID) {
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				a, b := ids[i], ids[j]
				if a == b {
					continue
				}
				if s.dedupe {
					k := pairKey{a, b}
					if b < a {
						k = pairKey{b, a}
					}
					if _, seen := s.visited[k]; seen {
						stats.PairsSkipped++
						continue
					}
					s.visited[k] = struct{}{}
				}
				stats.CollisionsChecked++
				if s.test(a, b) {
					stats.CollisionsFound++
				}
			}
		}
	})
	s.ws.Stats = stats
}

func (s *CollisionSystem) test(a, b ecs.EntityID) bool {
	ta, ca := s.ws.Transforms.MustGet(a), s.ws.Colliders.MustGet(a)
	tb, cb := s.ws.Transforms.MustGet(b), s.ws.Colliders.MustGet(b)
	if !Overlaps(ta.Position, ca, tb.Position, cb) {
		return false
	}
	ca.Collides = b
	ca.Contacts++
	cb.Collides = a
	cb.Contacts++
	return true
}

// Overlaps is the narrow-phase test between two colliders. Points never
// collide with points. The pair is ordered so a is the higher one; when
// their vertical segments overlap the test is a circle test on the ground
// plane, otherwise a sphere test between a's bottom and b's top.
func Overlaps(pa mgl64.Vec3, ca *component.Collider, pb mgl64.Vec3, cb *component.Collider) bool {
	minDist := ca.Radius + cb.Radius
	if minDist == 0 {
		return false
	}
	if pa.Y() < pb.Y() {
		pa, pb = pb, pa
		ca, cb = cb, ca
	}
	ha, hb := ca.Height, cb.Height

	dx := pa.X() - pb.X()
	dz := pa.Z() - pb.Z()
	dy := 0.0
	if !(pa.Y()+ha >= pb.Y()-hb && pb.Y()+hb >= pa.Y()-ha) {
		dy = (pa.Y() - ha) - (pb.Y() + hb)
	}
	return dx*dx+dy*dy+dz*dz < minDist*minDist
}

package system

import (
	"time"

	"github.com/citydefense/server/internal/component"
	"github.com/citydefense/server/internal/core/ecs"
	coresys "github.com/citydefense/server/internal/core/system"
	"github.com/citydefense/server/internal/render"
	"github.com/citydefense/server/internal/world"
)

// RenderSyncSystem copies final transforms and changed trails into the
// scene. Node removal is not its job: Renderer and Trail release their nodes
// when the entity is flushed.
// Phase 5 (Output).
type RenderSyncSystem struct {
	ws     *world.State
	poses  *ecs.Query2[component.Transform, component.Renderer]
	trails *ecs.Selector
}

func NewRenderSyncSystem(ws *world.State) *RenderSyncSystem {
	return &RenderSyncSystem{
		ws:     ws,
		poses:  ecs.NewQuery2(ws.ECS, ws.Transforms, ws.Renderers),
		trails: ecs.NewSelector(ws.ECS, ws.Trails),
	}
}

func (s *RenderSyncSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *RenderSyncSystem) Update(_ time.Duration) {
	s.poses.Each(func(_ ecs.EntityID, tr *component.Transform, r *component.Renderer) {
		if r.Scene != nil {
			r.Scene.SetPose(r.Node, r.Pose(tr.Position))
		}
	})
	for id := range s.trails.All() {
		t := s.ws.Trails.MustGet(id)
		if !t.Dirty || t.Scene == nil {
			continue
		}
		t.Scene.SetLine(t.Node, t.Points())
		t.Dirty = false
	}
}

// DebugCollidersSystem draws every collider while the debug toggle is on,
// and clears the overlay once when it is switched off.
// Phase 5 (Output).
type DebugCollidersSystem struct {
	ws     *world.State
	q      *ecs.Query2[component.Transform, component.Collider]
	shapes []render.DebugShape
	shown  bool
}

func NewDebugCollidersSystem(ws *world.State) *DebugCollidersSystem {
	return &DebugCollidersSystem{
		ws: ws,
		q:  ecs.NewQuery2(ws.ECS, ws.Transforms, ws.Colliders),
	}
}

func (s *DebugCollidersSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *DebugCollidersSystem) Update(_ time.Duration) {
	if !s.ws.Debug() {
		if s.shown {
			s.ws.Scene.DrawDebug(nil)
			s.shown = false
		}
		return
	}
	s.shapes = s.shapes[:0]
	s.q.Each(func(_ ecs.EntityID, tr *component.Transform, c *component.Collider) {
		s.shapes = append(s.shapes, render.DebugShape{
			Shape:     c.Shape(),
			Center:    tr.Position,
			Radius:    c.Radius,
			Height:    c.Height,
			Colliding: !c.Collides.IsZero(),
		})
	})
	s.ws.Scene.DrawDebug(s.shapes)
	s.shown = true
}

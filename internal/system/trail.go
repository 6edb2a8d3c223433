package system

import (
	"time"

	"github.com/citydefense/server/internal/component"
	"github.com/citydefense/server/internal/core/ecs"
	coresys "github.com/citydefense/server/internal/core/system"
	"github.com/citydefense/server/internal/world"
)

// TrailSystem records the position of every trailed entity that moved this
// tick. Full trails stop recording.
// Phase 4 (PostUpdate).
type TrailSystem struct {
	ws *world.State
	q  *ecs.Query2[component.Transform, component.Trail]
}

func NewTrailSystem(ws *world.State) *TrailSystem {
	return &TrailSystem{
		ws: ws,
		q:  ecs.NewQuery2(ws.ECS, ws.Transforms, ws.Trails),
	}
}

func (s *TrailSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *TrailSystem) Update(_ time.Duration) {
	frame := s.ws.Frame
	s.q.Each(func(_ ecs.EntityID, tr *component.Transform, t *component.Trail) {
		if t.Len() > 0 && !tr.HasMoved(frame) {
			return
		}
		t.Record(tr.Position)
	})
}

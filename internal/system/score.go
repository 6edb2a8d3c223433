package system

import (
	"time"

	"github.com/citydefense/server/internal/core/event"
	coresys "github.com/citydefense/server/internal/core/system"
	"github.com/citydefense/server/internal/world"
)

// ScoreSystem applies the points of destroyed scorable entities and
// advances survival time and the score burst window. A scorable that dies
// by striking a rescuable asset (a missile hitting a building) earns
// nothing; only the asset's loss counts.
// Destroyed events arrive one tick after the kill, via EventDispatchSystem.
// Phase 4 (PostUpdate).
type ScoreSystem struct {
	ws *world.State
}

func NewScoreSystem(ws *world.State) *ScoreSystem {
	s := &ScoreSystem{ws: ws}
	event.Subscribe(ws.Bus, func(ev event.EntityDestroyed) {
		if !ev.Scorable {
			return
		}
		if ev.Points > 0 && ev.PartnerPoints < 0 {
			return
		}
		ws.Score.Apply(ev.Points)
	})
	return s
}

func (s *ScoreSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *ScoreSystem) Update(dt time.Duration) {
	s.ws.Score.Advance(dt)
}

package system

import (
	"time"

	coresys "github.com/citydefense/server/internal/core/system"
	"github.com/citydefense/server/internal/world"
)

// CleanupSystem closes the tick: a last flush of the deferred queues, then
// the frame counter advances.
// Phase 6 (Cleanup).
type CleanupSystem struct {
	ws *world.State
}

func NewCleanupSystem(ws *world.State) *CleanupSystem {
	return &CleanupSystem{ws: ws}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.ws.Flush()
	s.ws.Frame++
}

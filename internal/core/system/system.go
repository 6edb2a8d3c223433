package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: spawners, external commands
	PhasePreUpdate               // 1: dispatch last tick's events
	PhaseUpdate                  // 2: projectiles, explosions
	PhasePhysics                 // 3: broad + narrow phase collision
	PhasePostUpdate              // 4: react to collisions, trails, score
	PhaseOutput                  // 5: renderer sync, debug shapes
	PhaseCleanup                 // 6: end-of-tick housekeeping
)

var phaseNames = [...]string{"input", "pre-update", "update", "physics", "post-update", "output", "cleanup"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// System is the interface every ECS system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Flusher applies deferred structural changes. The Runner calls it after
// every system so the next system sees a consistent entity set.
type Flusher interface {
	Flush() bool
}

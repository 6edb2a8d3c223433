package component

import "github.com/citydefense/server/internal/core/ecs"

// DestroyOnCollision ejects its entity the first tick its Collider reports a
// hit. OnDestroy, when set, runs just before the ejection.
type DestroyOnCollision struct {
	OnDestroy func(id ecs.EntityID)
}

// Scorable is added to the global score when the entity is destroyed.
// Negative values are rescuable assets (buildings) the player loses.
type Scorable struct {
	Points int
}

// Rescuable reports whether losing this entity counts against the city.
func (s *Scorable) Rescuable() bool { return s.Points < 0 }

package event

import (
	"github.com/citydefense/server/internal/core/ecs"
	"github.com/go-gl/mathgl/mgl64"
)

// EntityDestroyed is emitted when a DestroyOnCollision entity dies from a hit.
type EntityDestroyed struct {
	Entity   ecs.EntityID
	Position mgl64.Vec3
	Points   int  // Scorable value, 0 when the entity had none
	Scorable bool // entity carried a Scorable component
	Frame    uint64

	// The entity that hit it, and that entity's Scorable value (0 if none).
	Partner       ecs.EntityID
	PartnerPoints int
}

// ProjectileArrived is emitted when a projectile reaches its destination.
type ProjectileArrived struct {
	Entity   ecs.EntityID
	Position mgl64.Vec3
	Frame    uint64
}

// ScoreBurst is a combined, user-facing score delta.
type ScoreBurst struct {
	Delta int
	Count int
	Text  string
}

// GameOver is emitted once, when remaining rescuable points drop below the threshold.
type GameOver struct {
	Score     int
	Survived  float64 // seconds
	Remaining int
	Initial   int
}

package component

import (
	"github.com/citydefense/server/internal/core/ecs"
	"github.com/go-gl/mathgl/mgl64"
)

// ArrivalFunc runs once when a projectile lands on its destination.
type ArrivalFunc func(id ecs.EntityID, pos mgl64.Vec3)

// Projectile flies in a straight line from Start to Destination.
type Projectile struct {
	Start       mgl64.Vec3
	Destination mgl64.Vec3
	Speed       float64 // units per second
	OnArrival   ArrivalFunc
}

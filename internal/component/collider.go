package component

import (
	"github.com/citydefense/server/internal/core/ecs"
	"github.com/citydefense/server/internal/render"
)

// Collider is a point (no radius, no height), a sphere (radius only) or a
// vertical capsule (radius and height). Height is the half-length of the
// capsule's vertical segment: the capsule spans y ± (Height + Radius).
type Collider struct {
	Radius float64
	Height float64

	// Collides is the partner found this tick, zero when none. It is a
	// lookup key, never ownership, and is recomputed every tick.
	Collides ecs.EntityID
	// Contacts counts partners found this tick; Collides keeps only the last.
	Contacts int
}

func (c *Collider) IsPoint() bool { return c.Radius == 0 && c.Height == 0 }

func (c *Collider) Shape() render.ShapeKind {
	switch {
	case c.Height > 0:
		return render.ShapeCapsule
	case c.Radius > 0:
		return render.ShapeSphere
	default:
		return render.ShapePoint
	}
}

// Reset clears the per-tick collision result.
func (c *Collider) Reset() {
	c.Collides = 0
	c.Contacts = 0
}

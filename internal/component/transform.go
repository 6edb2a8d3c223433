package component

import "github.com/go-gl/mathgl/mgl64"

// Transform stores an entity's world position and its last movement.
// No scale or rotation; those live on Renderer.
type Transform struct {
	Position       mgl64.Vec3
	Delta          mgl64.Vec3
	LastMovedFrame int64 // -1 until the first move
}

func NewTransform(pos mgl64.Vec3) *Transform {
	return &Transform{Position: pos, LastMovedFrame: -1}
}

func (t *Transform) MoveBy(delta mgl64.Vec3, frame uint64) {
	t.Position = t.Position.Add(delta)
	t.Delta = delta
	t.LastMovedFrame = int64(frame)
}

// MoveTo lands exactly on pos; Delta records the step taken.
func (t *Transform) MoveTo(pos mgl64.Vec3, frame uint64) {
	t.Delta = pos.Sub(t.Position)
	t.Position = pos
	t.LastMovedFrame = int64(frame)
}

func (t *Transform) HasMoved(frame uint64) bool {
	return t.LastMovedFrame == int64(frame)
}

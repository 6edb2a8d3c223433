package component

import (
	"github.com/citydefense/server/internal/render"
	"github.com/go-gl/mathgl/mgl64"
)

// TrailTolerance is the largest deviation from a straight line, relative to
// segment length, at which the last point is replaced instead of appended.
const TrailTolerance = 0.01

// Trail records an entity's path into a fixed-capacity buffer it owns.
// Once the buffer is full the trail freezes; old points are never evicted.
type Trail struct {
	Scene render.Scene
	Node  render.NodeID
	Dirty bool

	points []mgl64.Vec3
	count  int
}

func NewTrail(scene render.Scene, node render.NodeID, maxPoints int) *Trail {
	if maxPoints < 1 {
		maxPoints = 1
	}
	scene.Add(node, render.KindTrail)
	return &Trail{
		Scene:  scene,
		Node:   node,
		points: make([]mgl64.Vec3, maxPoints),
	}
}

// Record appends p, or overwrites the last point when the last segment and p
// are nearly collinear. It returns false once the buffer is full.
func (t *Trail) Record(p mgl64.Vec3) bool {
	if t.count >= len(t.points) {
		return false
	}
	c := t.count
	if c >= 2 {
		a, b := t.points[c-2], t.points[c-1]
		seg := p.Sub(a)
		if l := seg.Len(); l > 0 {
			if closestOnSegment(a, p, b).Sub(b).Len()/l < TrailTolerance {
				c--
			}
		}
	}
	t.points[c] = p
	t.count = c + 1
	t.Dirty = true
	return true
}

// Points returns the recorded prefix of the buffer. The slice aliases the
// trail's storage and is valid until the next Record.
func (t *Trail) Points() []mgl64.Vec3 { return t.points[:t.count] }

func (t *Trail) Len() int      { return t.count }
func (t *Trail) Capacity() int { return len(t.points) }
func (t *Trail) Full() bool    { return t.count >= len(t.points) }

func (t *Trail) Release() {
	if t.Scene != nil {
		t.Scene.Remove(t.Node)
		t.Scene = nil
	}
	t.points = nil
	t.count = 0
}

// closestOnSegment projects q onto segment a-b, clamped to the endpoints.
func closestOnSegment(a, b, q mgl64.Vec3) mgl64.Vec3 {
	ab := b.Sub(a)
	den := ab.Dot(ab)
	if den == 0 {
		return a
	}
	u := q.Sub(a).Dot(ab) / den
	switch {
	case u < 0:
		u = 0
	case u > 1:
		u = 1
	}
	return a.Add(ab.Mul(u))
}

// Package render is the boundary between the simulation and whatever draws
// it. The simulation pushes poses, trail polylines and debug shapes through
// Scene; implementations own the actual scene graph.
package render

import "github.com/go-gl/mathgl/mgl64"

// NodeID names a scene node. IDs are allocated by the simulation, so several
// scenes can mirror the same node set.
type NodeID uint32

// Kind selects the visual prefab for a node.
type Kind uint8

const (
	KindBuilding Kind = iota + 1
	KindMissile
	KindShot
	KindExplosion
	KindTrail
)

var kindNames = map[Kind]string{
	KindBuilding:  "building",
	KindMissile:   "missile",
	KindShot:      "shot",
	KindExplosion: "explosion",
	KindTrail:     "trail",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Pose is what the renderer copies into its own node each tick.
type Pose struct {
	Position mgl64.Vec3 `msgpack:"p"`
	Scale    mgl64.Vec3 `msgpack:"s"`
	Heading  mgl64.Vec3 `msgpack:"h"` // unit direction the node faces, zero when undefined
}

// ShapeKind is the collider shape drawn by the debug overlay.
type ShapeKind uint8

const (
	ShapePoint ShapeKind = iota
	ShapeSphere
	ShapeCapsule
)

// DebugShape outlines one collider.
type DebugShape struct {
	Shape     ShapeKind  `msgpack:"k"`
	Center    mgl64.Vec3 `msgpack:"c"`
	Radius    float64    `msgpack:"r"`
	Height    float64    `msgpack:"h"`
	Colliding bool       `msgpack:"x"`
}

// Scene is implemented by external renderers.
type Scene interface {
	Add(id NodeID, kind Kind)
	SetPose(id NodeID, p Pose)
	SetLine(id NodeID, points []mgl64.Vec3)
	Remove(id NodeID)
	DrawDebug(shapes []DebugShape)
}

// Tee fans every call out to several scenes.
type Tee []Scene

func (t Tee) Add(id NodeID, kind Kind) {
	for _, s := range t {
		s.Add(id, kind)
	}
}

func (t Tee) SetPose(id NodeID, p Pose) {
	for _, s := range t {
		s.SetPose(id, p)
	}
}

func (t Tee) SetLine(id NodeID, points []mgl64.Vec3) {
	for _, s := range t {
		s.SetLine(id, points)
	}
}

func (t Tee) Remove(id NodeID) {
	for _, s := range t {
		s.Remove(id)
	}
}

func (t Tee) DrawDebug(shapes []DebugShape) {
	for _, s := range t {
		s.DrawDebug(shapes)
	}
}

// Discard is a Scene that drops everything.
type Discard struct{}

func (Discard) Add(NodeID, Kind)             {}
func (Discard) SetPose(NodeID, Pose)         {}
func (Discard) SetLine(NodeID, []mgl64.Vec3) {}
func (Discard) Remove(NodeID)                {}
func (Discard) DrawDebug([]DebugShape)       {}

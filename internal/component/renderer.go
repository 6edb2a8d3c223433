package component

import (
	"github.com/citydefense/server/internal/render"
	"github.com/go-gl/mathgl/mgl64"
)

// Renderer owns one scene node. The node is removed from the scene when the
// entity is flushed.
type Renderer struct {
	Scene   render.Scene
	Node    render.NodeID
	Kind    render.Kind
	Scale   mgl64.Vec3
	Heading mgl64.Vec3
}

func NewRenderer(scene render.Scene, node render.NodeID, kind render.Kind, scale mgl64.Vec3) *Renderer {
	scene.Add(node, kind)
	return &Renderer{Scene: scene, Node: node, Kind: kind, Scale: scale}
}

func (r *Renderer) Pose(pos mgl64.Vec3) render.Pose {
	return render.Pose{Position: pos, Scale: r.Scale, Heading: r.Heading}
}

func (r *Renderer) Release() {
	if r.Scene != nil {
		r.Scene.Remove(r.Node)
		r.Scene = nil
	}
}

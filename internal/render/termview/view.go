// Package termview draws the scene top down in a terminal. Columns are the
// world X axis, rows the world Z axis; height is ignored except for the
// building glyph.
package termview

import (
	"math"

	"github.com/citydefense/server/internal/render"
	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
)

// Terminal cells are roughly twice as tall as they are wide.
const aspect = 2.0

var (
	styleHUD       = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleBuilding  = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleMissile   = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleShot      = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleExplosion = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleTrail     = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
	styleDebug     = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleHit       = tcell.StyleDefault.Foreground(tcell.ColorRed).Reverse(true)
)

// View is a render.Scene backed by a tcell screen. Scene calls only update
// the node mirror; Draw paints it.
type View struct {
	screen tcell.Screen
	nodes  *render.Memory
	scale  float64 // cells per world unit along Z
}

var _ render.Scene = (*View)(nil)

func New(screen tcell.Screen, scale float64) *View {
	if scale <= 0 {
		scale = 4
	}
	return &View{screen: screen, nodes: render.NewMemory(), scale: scale}
}

func (v *View) Add(id render.NodeID, kind render.Kind)         { v.nodes.Add(id, kind) }
func (v *View) SetPose(id render.NodeID, p render.Pose)        { v.nodes.SetPose(id, p) }
func (v *View) SetLine(id render.NodeID, points []mgl64.Vec3)  { v.nodes.SetLine(id, points) }
func (v *View) Remove(id render.NodeID)                        { v.nodes.Remove(id) }
func (v *View) DrawDebug(shapes []render.DebugShape)           { v.nodes.DrawDebug(shapes) }
func (v *View) Node(id render.NodeID) (render.NodeState, bool) { return v.nodes.Node(id) }

// ToCell projects a world position onto the screen.
func (v *View) ToCell(p mgl64.Vec3) (x, y int) {
	w, h := v.screen.Size()
	x = w/2 + int(math.Round(p.X()*v.scale*aspect))
	y = h/2 + int(math.Round(p.Z()*v.scale))
	return x, y
}

// FromCell maps a screen cell back to the ground plane.
func (v *View) FromCell(x, y int) mgl64.Vec3 {
	w, h := v.screen.Size()
	return mgl64.Vec3{
		float64(x-w/2) / (v.scale * aspect),
		0,
		float64(y-h/2) / v.scale,
	}
}

// Draw repaints the whole screen with hud on the first row.
func (v *View) Draw(hud string) {
	v.screen.Clear()
	nodes := v.nodes.Nodes()
	// Footprints first so moving objects stay visible above them.
	for _, n := range nodes {
		switch n.Kind {
		case render.KindBuilding:
			v.disc(n.Pose.Position, n.Pose.Scale.X(), '█', styleBuilding)
		case render.KindTrail:
			for _, p := range n.Line {
				v.put(p, '·', styleTrail)
			}
		}
	}
	for _, n := range nodes {
		switch n.Kind {
		case render.KindExplosion:
			v.disc(n.Pose.Position, n.Pose.Scale.X(), '*', styleExplosion)
		case render.KindMissile:
			v.put(n.Pose.Position, 'v', styleMissile)
		case render.KindShot:
			v.put(n.Pose.Position, '^', styleShot)
		}
	}
	for _, d := range v.nodes.Debug() {
		st := styleDebug
		if d.Colliding {
			st = styleHit
		}
		v.put(d.Center, '+', st)
	}
	v.text(0, 0, hud, styleHUD)
	v.screen.Show()
}

func (v *View) put(p mgl64.Vec3, r rune, st tcell.Style) {
	x, y := v.ToCell(p)
	w, h := v.screen.Size()
	if x < 0 || y < 1 || x >= w || y >= h {
		return
	}
	v.screen.SetContent(x, y, r, nil, st)
}

// disc fills every cell whose center lies within radius of c.
func (v *View) disc(c mgl64.Vec3, radius float64, r rune, st tcell.Style) {
	v.put(c, r, st)
	if radius <= 0 {
		return
	}
	rx := int(math.Ceil(radius * v.scale * aspect))
	rz := int(math.Ceil(radius * v.scale))
	cx, cy := v.ToCell(c)
	for dy := -rz; dy <= rz; dy++ {
		for dx := -rx; dx <= rx; dx++ {
			p := v.FromCell(cx+dx, cy+dy)
			ex, ez := p.X()-c.X(), p.Z()-c.Z()
			if ex*ex+ez*ez > radius*radius {
				continue
			}
			v.put(mgl64.Vec3{c.X() + ex, 0, c.Z() + ez}, r, st)
		}
	}
}

func (v *View) text(x, y int, s string, st tcell.Style) {
	for _, r := range s {
		v.screen.SetContent(x, y, r, nil, st)
		x++
	}
}

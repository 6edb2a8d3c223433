package termview

import (
	"testing"

	"github.com/citydefense/server/internal/render"
	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newView(t *testing.T) (*View, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(80, 24)
	t.Cleanup(screen.Fini)
	return New(screen, 2), screen
}

func runeAt(s tcell.SimulationScreen, x, y int) rune {
	r, _, _, _ := s.GetContent(x, y)
	return r
}

func TestProjectionRoundTrip(t *testing.T) {
	v, _ := newView(t)
	x, y := v.ToCell(mgl64.Vec3{0, 5, 0})
	assert.Equal(t, 40, x)
	assert.Equal(t, 12, y)

	x, y = v.ToCell(mgl64.Vec3{1, 0, -2})
	assert.Equal(t, 44, x)
	assert.Equal(t, 8, y)
	assert.Equal(t, mgl64.Vec3{1, 0, -2}, v.FromCell(x, y))
}

func TestDrawNodes(t *testing.T) {
	v, screen := newView(t)
	var s render.Scene = v

	s.Add(1, render.KindMissile)
	s.SetPose(1, render.Pose{Position: mgl64.Vec3{1, 7, 1}})
	s.Add(2, render.KindShot)
	s.SetPose(2, render.Pose{Position: mgl64.Vec3{-1, 1, 0}})
	s.Add(3, render.KindTrail)
	s.SetLine(3, []mgl64.Vec3{{2, 0, 2}})
	v.Draw("score 0")

	assert.Equal(t, 'v', runeAt(screen, 44, 14))
	assert.Equal(t, '^', runeAt(screen, 36, 12))
	assert.Equal(t, '·', runeAt(screen, 48, 16))
	assert.Equal(t, 's', runeAt(screen, 0, 0))

	s.Remove(1)
	v.Draw("")
	assert.Equal(t, ' ', runeAt(screen, 44, 14))
	_, ok := v.Node(1)
	assert.False(t, ok)
}

func TestDrawBuildingFootprint(t *testing.T) {
	v, screen := newView(t)
	v.Add(1, render.KindBuilding)
	v.SetPose(1, render.Pose{Position: mgl64.Vec3{0, 1, 0}, Scale: mgl64.Vec3{1, 2, 1}})
	v.Draw("")

	assert.Equal(t, '█', runeAt(screen, 40, 12))
	assert.Equal(t, '█', runeAt(screen, 43, 12))
	assert.Equal(t, '█', runeAt(screen, 40, 14))
	assert.Equal(t, ' ', runeAt(screen, 40, 15))
	assert.Equal(t, ' ', runeAt(screen, 45, 12))
}

func TestDrawOffscreenIgnored(t *testing.T) {
	v, _ := newView(t)
	v.Add(1, render.KindMissile)
	v.SetPose(1, render.Pose{Position: mgl64.Vec3{100, 0, 100}})
	assert.NotPanics(t, func() { v.Draw("") })
}

func TestDrawDebugShapes(t *testing.T) {
	v, screen := newView(t)
	v.DrawDebug([]render.DebugShape{{Center: mgl64.Vec3{0, 0, 1}, Colliding: true}})
	v.Draw("")
	r, _, st, _ := screen.GetContent(40, 14)
	assert.Equal(t, '+', r)
	assert.Equal(t, styleHit, st)

	v.DrawDebug(nil)
	v.Draw("")
	assert.Equal(t, ' ', runeAt(screen, 40, 14))
}

package system

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/citydefense/server/internal/component"
	"github.com/citydefense/server/internal/core/ecs"
	"github.com/citydefense/server/internal/core/event"
	coresys "github.com/citydefense/server/internal/core/system"
	"github.com/citydefense/server/internal/data"
	"github.com/citydefense/server/internal/render"
	"github.com/citydefense/server/internal/scripting"
	"github.com/citydefense/server/internal/world"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type rig struct {
	ws        *world.State
	scene     *render.Memory
	runner    *coresys.Runner
	collision *CollisionSystem
}

func newRig(t *testing.T, dedupe bool) *rig {
	t.Helper()
	scene := render.NewMemory()
	ws := world.NewState(scene, data.DefaultArsenal(), event.NewBus(), zap.NewNop(), world.Options{Seed: 1})
	r := coresys.NewRunner(ws, zap.NewNop())
	col := NewCollisionSystem(ws, 1, dedupe)
	r.Register(NewEventDispatchSystem(ws.Bus))
	r.Register(NewProjectileSystem(ws))
	r.Register(NewExplosionSystem(ws))
	r.Register(col)
	r.Register(NewDestroyOnCollisionSystem(ws))
	r.Register(NewTrailSystem(ws))
	r.Register(NewScoreSystem(ws))
	r.Register(NewRenderSyncSystem(ws))
	r.Register(NewDebugCollidersSystem(ws))
	r.Register(NewCleanupSystem(ws))
	return &rig{ws: ws, scene: scene, runner: r, collision: col}
}

func spawnBody(t *testing.T, ws *world.State, pos mgl64.Vec3, radius, height float64) ecs.EntityID {
	t.Helper()
	id := ws.ECS.Create()
	require.NoError(t, ws.Transforms.Set(id, component.NewTransform(pos)))
	require.NoError(t, ws.Colliders.Set(id, &component.Collider{Radius: radius, Height: height}))
	return id
}

func TestProjectileLandsExactlyAndEjects(t *testing.T) {
	rg := newRig(t, true)
	id := rg.ws.Fire(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{10, 0, 0}, 10)
	rg.ws.Flush()
	tr := rg.ws.Transforms.MustGet(id)

	rg.runner.Tick(time.Second)

	assert.Equal(t, mgl64.Vec3{10, 0, 0}, tr.Position)
	assert.False(t, rg.ws.ECS.Alive(id))
	assert.False(t, rg.ws.Projectiles.Has(id))
	require.Equal(t, 1, rg.ws.Explosions.Len(), "arrival explodes once")
}

func TestProjectileNeverOvershoots(t *testing.T) {
	rg := newRig(t, true)
	id := rg.ws.LaunchMissile(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 0, 10}, 3)
	rg.ws.Flush()
	tr := rg.ws.Transforms.MustGet(id)

	for i, want := range []float64{3, 6, 9} {
		rg.runner.Tick(time.Second)
		require.True(t, rg.ws.ECS.Alive(id), "tick %d", i)
		assert.InDelta(t, want, tr.Position.Z(), 1e-12)
		assert.Equal(t, mgl64.Vec3{0, 0, 1}, rg.ws.Renderers.MustGet(id).Heading)
	}
	rg.runner.Tick(time.Second)
	assert.Equal(t, mgl64.Vec3{0, 0, 10}, tr.Position)
	assert.False(t, rg.ws.ECS.Alive(id))
}

func TestProjectileArrivalEvent(t *testing.T) {
	rg := newRig(t, true)
	var arrived []event.ProjectileArrived
	event.Subscribe(rg.ws.Bus, func(ev event.ProjectileArrived) { arrived = append(arrived, ev) })

	id := rg.ws.Fire(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, 5)
	rg.ws.Flush()
	rg.runner.Tick(time.Second)
	rg.runner.Tick(time.Second)

	require.Len(t, arrived, 1)
	assert.Equal(t, id, arrived[0].Entity)
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, arrived[0].Position)
}

func TestExplosionLifecycle(t *testing.T) {
	scene := render.NewMemory()
	ws := world.NewState(scene, nil, nil, nil, world.Options{})
	r := coresys.NewRunner(ws, zap.NewNop())
	r.Register(NewExplosionSystem(ws))
	r.Register(NewRenderSyncSystem(ws))

	id := ws.Explode(mgl64.Vec3{1, 0, 1}, 1)
	ws.Flush()
	c := ws.Colliders.MustGet(id)

	r.Tick(300 * time.Millisecond)
	want := math.Sin(math.Pi * 0.15)
	assert.InDelta(t, want, c.Radius, 1e-12)
	node, ok := scene.Node(ws.Renderers.MustGet(id).Node)
	require.True(t, ok)
	assert.InDelta(t, want, node.Pose.Scale.X(), 1e-12)

	for i := 2; i <= 6; i++ {
		r.Tick(300 * time.Millisecond)
		require.True(t, ws.ECS.Alive(id), "t <= 1 after tick %d", i)
	}
	r.Tick(300 * time.Millisecond)
	assert.False(t, ws.ECS.Alive(id), "ejected on the first tick past 1")
	assert.Equal(t, 0, scene.Len(), "renderer node released")
}

func TestCollisionIsSymmetric(t *testing.T) {
	rg := newRig(t, true)
	a := spawnBody(t, rg.ws, mgl64.Vec3{0, 0, 0}, 0.5, 0)
	b := spawnBody(t, rg.ws, mgl64.Vec3{0.8, 0.1, 0}, 0.5, 0)
	far := spawnBody(t, rg.ws, mgl64.Vec3{5, 0, 0}, 0.5, 0)
	rg.ws.Flush()

	rg.runner.Tick(10 * time.Millisecond)

	assert.Equal(t, b, rg.ws.Colliders.MustGet(a).Collides)
	assert.Equal(t, a, rg.ws.Colliders.MustGet(b).Collides)
	assert.True(t, rg.ws.Colliders.MustGet(far).Collides.IsZero())
	assert.Equal(t, 1, rg.ws.Stats.CollisionsFound)
}

func TestCollisionClearsEveryTick(t *testing.T) {
	rg := newRig(t, true)
	a := spawnBody(t, rg.ws, mgl64.Vec3{0, 0, 0}, 0.5, 0)
	b := spawnBody(t, rg.ws, mgl64.Vec3{0.5, 0, 0}, 0.5, 0)
	rg.ws.Flush()
	rg.runner.Tick(10 * time.Millisecond)
	require.Equal(t, b, rg.ws.Colliders.MustGet(a).Collides)

	rg.ws.Transforms.MustGet(b).MoveTo(mgl64.Vec3{4, 0, 0}, rg.ws.Frame)
	rg.runner.Tick(10 * time.Millisecond)
	assert.True(t, rg.ws.Colliders.MustGet(a).Collides.IsZero())
	assert.True(t, rg.ws.Colliders.MustGet(b).Collides.IsZero())
}

func TestTouchingSpheresDoNotCollide(t *testing.T) {
	rg := newRig(t, true)
	a := spawnBody(t, rg.ws, mgl64.Vec3{0, 0, 0}, 0.5, 0)
	spawnBody(t, rg.ws, mgl64.Vec3{1, 0, 0}, 0.5, 0)
	rg.ws.Flush()
	rg.runner.Tick(10 * time.Millisecond)
	assert.True(t, rg.ws.Colliders.MustGet(a).Collides.IsZero())
	assert.Equal(t, 1, rg.ws.Stats.CollisionsChecked)
}

func TestPointCollidersNeverCollide(t *testing.T) {
	rg := newRig(t, true)
	a := spawnBody(t, rg.ws, mgl64.Vec3{1, 1, 1}, 0, 0)
	b := spawnBody(t, rg.ws, mgl64.Vec3{1, 1, 1}, 0, 0)
	rg.ws.Flush()
	rg.runner.Tick(10 * time.Millisecond)
	assert.True(t, rg.ws.Colliders.MustGet(a).Collides.IsZero())
	assert.True(t, rg.ws.Colliders.MustGet(b).Collides.IsZero())
	assert.Zero(t, rg.ws.Stats.CollisionsFound)
}

func TestOverlapsShapes(t *testing.T) {
	point := &component.Collider{}
	sphere := &component.Collider{Radius: 0.5}
	capsule := &component.Collider{Radius: 0.1, Height: 0.4} // y in [0, 1] around 0.5

	cases := []struct {
		name   string
		pa     mgl64.Vec3
		ca     *component.Collider
		pb     mgl64.Vec3
		cb     *component.Collider
		expect bool
	}{
		{"point point same spot", mgl64.Vec3{}, point, mgl64.Vec3{}, point, false},
		{"point inside sphere", mgl64.Vec3{0.2, 0, 0}, point, mgl64.Vec3{}, sphere, true},
		{"point outside sphere", mgl64.Vec3{0, 0.6, 0}, point, mgl64.Vec3{}, sphere, false},
		{"point beside capsule wall", mgl64.Vec3{0.05, 0.5, 0}, point, mgl64.Vec3{0, 0.5, 0}, capsule, true},
		{"point just off capsule wall", mgl64.Vec3{0.15, 0.5, 0}, point, mgl64.Vec3{0, 0.5, 0}, capsule, false},
		{"point in capsule cap", mgl64.Vec3{0.05, 0.95, 0}, point, mgl64.Vec3{0, 0.5, 0}, capsule, true},
		{"point above capsule cap", mgl64.Vec3{0, 1.05, 0}, point, mgl64.Vec3{0, 0.5, 0}, capsule, false},
		{"capsule below point, reversed order", mgl64.Vec3{0, 0.5, 0}, capsule, mgl64.Vec3{0.05, 0.95, 0}, point, true},
		{"sphere on capsule side", mgl64.Vec3{0.55, 0.8, 0}, sphere, mgl64.Vec3{0, 0.5, 0}, capsule, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, Overlaps(tc.pa, tc.ca, tc.pb, tc.cb))
			assert.Equal(t, tc.expect, Overlaps(tc.pb, tc.cb, tc.pa, tc.ca), "argument order")
		})
	}
}

func TestPairDedupeAcrossCells(t *testing.T) {
	for _, dedupe := range []bool{true, false} {
		rg := newRig(t, dedupe)
		a := spawnBody(t, rg.ws, mgl64.Vec3{1, 1, 1}, 0.5, 0)
		b := spawnBody(t, rg.ws, mgl64.Vec3{1.2, 1, 1}, 0.5, 0)
		rg.ws.Flush()
		rg.runner.Tick(10 * time.Millisecond)

		st := rg.ws.Stats
		assert.Equal(t, 8, st.CellsOccupied)
		assert.Equal(t, b, rg.ws.Colliders.MustGet(a).Collides)
		if dedupe {
			assert.Equal(t, 1, st.CollisionsChecked)
			assert.Equal(t, 7, st.PairsSkipped)
			assert.Equal(t, 1, rg.ws.Colliders.MustGet(a).Contacts)
		} else {
			assert.Equal(t, 8, st.CollisionsChecked)
			assert.Equal(t, 8, st.CollisionsFound)
			assert.Zero(t, st.PairsSkipped)
		}
	}
}

func TestExplosionDestroysBuildingAndScores(t *testing.T) {
	rg := newRig(t, true)
	var destroyed []event.EntityDestroyed
	event.Subscribe(rg.ws.Bus, func(ev event.EntityDestroyed) { destroyed = append(destroyed, ev) })

	b := rg.ws.SpawnBuilding(mgl64.Vec3{0, 0, 0}, 0.1, 1)
	rg.ws.Flush()
	rg.ws.Explode(mgl64.Vec3{0.2, 0.5, 0}, 1)
	rg.ws.Flush()

	rg.runner.Tick(100 * time.Millisecond)
	assert.False(t, rg.ws.ECS.Alive(b))
	assert.Equal(t, 0, rg.ws.Score.Value(), "score lands next tick")
	assert.Equal(t, 2, rg.ws.Explosions.Len(), "the building blew up too")

	rg.runner.Tick(100 * time.Millisecond)
	require.Len(t, destroyed, 1)
	assert.Equal(t, b, destroyed[0].Entity)
	assert.Equal(t, -10, destroyed[0].Points)
	assert.True(t, destroyed[0].Scorable)
	assert.Equal(t, -10, rg.ws.Score.Value())
	assert.Equal(t, 1, rg.ws.Score.BuildingsLost())
	assert.True(t, rg.ws.Score.Over())
}

func TestMissileHittingBuildingEarnsNothing(t *testing.T) {
	rg := newRig(t, true)
	var destroyed []event.EntityDestroyed
	event.Subscribe(rg.ws.Bus, func(ev event.EntityDestroyed) { destroyed = append(destroyed, ev) })

	b := rg.ws.SpawnBuilding(mgl64.Vec3{0, 0, 0}, 0.1, 1)
	for i := 1; i < 10; i++ {
		rg.ws.SpawnBuilding(mgl64.Vec3{float64(i) * 10, 0, 0}, 0.1, 1)
	}
	m := rg.ws.LaunchMissile(mgl64.Vec3{0, 1.5, 0}, mgl64.Vec3{0, 0, 0}, 1)
	rg.ws.Flush()

	for i := 0; i < 30; i++ {
		rg.runner.Tick(100 * time.Millisecond)
	}
	assert.False(t, rg.ws.ECS.Alive(b))
	assert.False(t, rg.ws.ECS.Alive(m))

	byEntity := map[ecs.EntityID]event.EntityDestroyed{}
	for _, ev := range destroyed {
		byEntity[ev.Entity] = ev
	}
	require.Contains(t, byEntity, m)
	assert.Equal(t, b, byEntity[m].Partner)
	assert.Equal(t, -10, byEntity[m].PartnerPoints)

	assert.Equal(t, -10, rg.ws.Score.Value())
	assert.Equal(t, 0, rg.ws.Score.MissilesDestroyed())
	assert.Equal(t, 1, rg.ws.Score.BuildingsLost())
	assert.Equal(t, 90, rg.ws.Score.Remaining())
	assert.False(t, rg.ws.Score.Over())
}

func TestMissileShotDownEarnsPoints(t *testing.T) {
	rg := newRig(t, true)
	rg.ws.SpawnBuilding(mgl64.Vec3{10, 0, 0}, 0.1, 1)
	rg.ws.Explode(mgl64.Vec3{0, 5, 0}, 1)
	m := rg.ws.LaunchMissile(mgl64.Vec3{0.2, 5, 0}, mgl64.Vec3{0.2, 0, 0}, 1)
	rg.ws.Flush()

	for i := 0; i < 10; i++ {
		rg.runner.Tick(100 * time.Millisecond)
	}
	assert.False(t, rg.ws.ECS.Alive(m))
	assert.Equal(t, 10, rg.ws.Score.Value())
	assert.Equal(t, 1, rg.ws.Score.MissilesDestroyed())
	assert.Equal(t, 0, rg.ws.Score.BuildingsLost())
}

func TestTrailFollowsProjectile(t *testing.T) {
	rg := newRig(t, true)
	id := rg.ws.Fire(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 1, 10}, 1)
	rg.ws.Flush()
	trail := rg.ws.Trails.MustGet(id)
	node := trail.Node

	for i := 0; i < 3; i++ {
		rg.runner.Tick(time.Second)
	}
	assert.Equal(t, []mgl64.Vec3{{0, 1, 0}, {0, 1, 3}}, trail.Points(), "straight flight collapses to two points")
	assert.False(t, trail.Dirty)

	n, ok := rg.scene.Node(node)
	require.True(t, ok)
	assert.Equal(t, render.KindTrail, n.Kind)
	assert.Equal(t, trail.Points(), n.Line)
}

func TestRenderSyncCopiesPose(t *testing.T) {
	rg := newRig(t, true)
	id := rg.ws.LaunchMissile(mgl64.Vec3{0, 5, 0}, mgl64.Vec3{0, 0, 0}, 1)
	rg.ws.Flush()
	r := rg.ws.Renderers.MustGet(id)

	rg.runner.Tick(time.Second)
	n, ok := rg.scene.Node(r.Node)
	require.True(t, ok)
	assert.Equal(t, render.KindMissile, n.Kind)
	assert.Equal(t, mgl64.Vec3{0, 4, 0}, n.Pose.Position)
	assert.Equal(t, mgl64.Vec3{0, -1, 0}, n.Pose.Heading)
}

func TestDebugCollidersToggle(t *testing.T) {
	rg := newRig(t, true)
	spawnBody(t, rg.ws, mgl64.Vec3{0, 0, 0}, 0.5, 0)
	spawnBody(t, rg.ws, mgl64.Vec3{0.5, 0, 0}, 0.5, 0)
	spawnBody(t, rg.ws, mgl64.Vec3{9, 0, 0}, 0.2, 1)
	rg.ws.Flush()

	rg.runner.Tick(10 * time.Millisecond)
	assert.Empty(t, rg.scene.Debug())

	rg.ws.SetDebug(true)
	rg.runner.Tick(10 * time.Millisecond)
	shapes := rg.scene.Debug()
	require.Len(t, shapes, 3)
	assert.True(t, shapes[0].Colliding)
	assert.Equal(t, render.ShapeSphere, shapes[1].Shape)
	assert.Equal(t, render.ShapeCapsule, shapes[2].Shape)
	assert.False(t, shapes[2].Colliding)

	rg.ws.SetDebug(false)
	rg.runner.Tick(10 * time.Millisecond)
	assert.Empty(t, rg.scene.Debug())
}

func TestCleanupAdvancesFrame(t *testing.T) {
	rg := newRig(t, true)
	rg.runner.Tick(10 * time.Millisecond)
	rg.runner.Tick(10 * time.Millisecond)
	assert.Equal(t, uint64(2), rg.ws.Frame)
	assert.Equal(t, rg.runner.Frame(), rg.ws.Frame)
}

type brokenSystem struct{ ws *world.State }

func (s *brokenSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *brokenSystem) Update(time.Duration) {
	s.ws.Projectiles.MustGet(ecs.NewEntityID(999, 0))
}

func TestMissingComponentIsIsolated(t *testing.T) {
	rg := newRig(t, true)
	rg.runner.Register(&brokenSystem{ws: rg.ws})
	id := rg.ws.Fire(mgl64.Vec3{}, mgl64.Vec3{10, 0, 0}, 1)
	rg.ws.Flush()

	rg.runner.Tick(time.Second)
	assert.Equal(t, uint64(1), rg.runner.Faults())
	assert.Equal(t, 1.0, rg.ws.Transforms.MustGet(id).Position.X(), "other systems still ran")
	assert.Equal(t, uint64(1), rg.ws.Frame)
}

type scriptedDirector struct {
	waves []scripting.Wave
	err   error
	calls []scripting.WaveContext
}

func (d *scriptedDirector) NextWave(ctx scripting.WaveContext) (scripting.Wave, error) {
	d.calls = append(d.calls, ctx)
	if d.err != nil {
		return scripting.Wave{}, d.err
	}
	w := d.waves[0]
	if len(d.waves) > 1 {
		d.waves = d.waves[1:]
	}
	return w, nil
}

func missiles(ws *world.State) int {
	return ecs.NewSelector(ws.ECS, ws.Projectiles, ws.Scorables).Count()
}

func TestWaveFallbackEverySecond(t *testing.T) {
	ws := world.NewState(nil, nil, nil, nil, world.Options{Seed: 4})
	r := coresys.NewRunner(ws, zap.NewNop())
	waves := NewWaveSystem(ws, nil, WaveConfig{Fallback: time.Second, CitySize: 5})
	r.Register(waves)

	r.Tick(time.Second)
	assert.Equal(t, 1, waves.Wave())
	assert.Equal(t, 1, missiles(ws))

	r.Tick(500 * time.Millisecond)
	assert.Equal(t, 1, waves.Wave())
	r.Tick(500 * time.Millisecond)
	assert.Equal(t, 2, waves.Wave())
	assert.Equal(t, uint64(2), waves.Launched())

	for id := range ecs.NewSelector(ws.ECS, ws.Projectiles).All() {
		p := ws.Projectiles.MustGet(id)
		assert.GreaterOrEqual(t, p.Start.Y(), ws.Arsenal.Launch.HeightMin)
		assert.Equal(t, 0.0, p.Destination.Y())
		assert.GreaterOrEqual(t, p.Speed, 1.0)
	}
}

func TestWaveUsesDirector(t *testing.T) {
	ws := world.NewState(nil, nil, nil, nil, world.Options{})
	r := coresys.NewRunner(ws, zap.NewNop())
	d := &scriptedDirector{waves: []scripting.Wave{{
		Cooldown: 2 * time.Second,
		Missiles: []scripting.Launch{
			{From: [3]float64{0, 8, 0}, To: [3]float64{1, 0, 1}, Speed: 2},
			{From: [3]float64{1, 8, 0}, To: [3]float64{1, 0, 2}},
			{From: [3]float64{2, 8, 0}, To: [3]float64{1, 0, 3}},
		},
	}}}
	waves := NewWaveSystem(ws, d, WaveConfig{CitySize: 5, Seed: 9, FirstDelay: time.Second})
	r.Register(waves)

	r.Tick(500 * time.Millisecond)
	assert.Empty(t, d.calls, "first delay")
	r.Tick(500 * time.Millisecond)
	require.Len(t, d.calls, 1)
	assert.Equal(t, scripting.WaveContext{Wave: 1, CitySize: 5, Seed: 9}, d.calls[0])
	assert.Equal(t, 3, missiles(ws))

	r.Tick(time.Second)
	assert.Len(t, d.calls, 1, "cooldown from the director")
	r.Tick(time.Second)
	assert.Len(t, d.calls, 2)
}

func TestWaveDirectorErrorFallsBack(t *testing.T) {
	ws := world.NewState(nil, nil, nil, nil, world.Options{})
	r := coresys.NewRunner(ws, zap.NewNop())
	d := &scriptedDirector{err: errors.New("boom")}
	r.Register(NewWaveSystem(ws, d, WaveConfig{Fallback: time.Second, CitySize: 5}))

	r.Tick(time.Second)
	assert.Len(t, d.calls, 1)
	assert.Equal(t, 1, missiles(ws))
}

func TestWaveStopsAfterGameOver(t *testing.T) {
	ws := world.NewState(nil, nil, nil, nil, world.Options{})
	ws.Score.AddRescuable(10)
	ws.Score.Apply(-10)
	require.True(t, ws.Score.Over())

	r := coresys.NewRunner(ws, zap.NewNop())
	waves := NewWaveSystem(ws, nil, WaveConfig{})
	r.Register(waves)
	r.Tick(5 * time.Second)
	assert.Zero(t, waves.Wave())
}

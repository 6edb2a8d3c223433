// Package game wires the simulation together: arsenal, scripts, world state,
// systems and the city. The driver calls Update once per frame.
package game

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"sync/atomic"
	"time"

	"github.com/citydefense/server/internal/config"
	"github.com/citydefense/server/internal/core/ecs"
	"github.com/citydefense/server/internal/core/event"
	coresys "github.com/citydefense/server/internal/core/system"
	"github.com/citydefense/server/internal/data"
	"github.com/citydefense/server/internal/persist"
	"github.com/citydefense/server/internal/render"
	"github.com/citydefense/server/internal/scripting"
	"github.com/citydefense/server/internal/system"
	"github.com/citydefense/server/internal/telemetry"
	"github.com/citydefense/server/internal/world"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

const saveTimeout = 5 * time.Second

// ResultStore records finished runs.
type ResultStore interface {
	Save(ctx context.Context, row *persist.RunRow) error
}

// Options are the collaborators a Game does not build itself. All optional.
type Options struct {
	Scene    render.Scene // external renderer, mirrored next to the in-memory scene
	Results  ResultStore
	Director system.Director // overrides the Lua director
	Arsenal  *data.Arsenal   // overrides cfg.Arsenal.Path
}

// Game owns the world and the system runner. Update and the spawn methods
// belong to the game loop goroutine; Snapshot is safe from any goroutine.
type Game struct {
	cfg     *config.Config
	log     *zap.Logger
	state   *world.State
	runner  *coresys.Runner
	memory  *render.Memory
	engine  *scripting.Engine
	waves   *system.WaveSystem
	events  *system.EventDispatchSystem
	results ResultStore
	city    world.CityReport

	over   atomic.Bool
	result *event.GameOver
	notice string
	header atomic.Pointer[telemetry.Frame]
	saves  sync.WaitGroup
}

func New(cfg *config.Config, log *zap.Logger, opts Options) (*Game, error) {
	if log == nil {
		log = zap.NewNop()
	}
	arsenal := opts.Arsenal
	if arsenal == nil {
		var err error
		arsenal, err = loadArsenal(cfg.Arsenal.Path, log)
		if err != nil {
			return nil, err
		}
	}
	if cfg.City.BuildingPoints != 0 {
		arsenal.Building.Points = cfg.City.BuildingPoints
	}

	g := &Game{
		cfg:     cfg,
		log:     log,
		memory:  render.NewMemory(),
		results: opts.Results,
	}
	var scene render.Scene = g.memory
	if opts.Scene != nil {
		scene = render.Tee{g.memory, opts.Scene}
	}
	g.state = world.NewState(scene, arsenal, event.NewBus(), log, world.Options{
		Seed:         cfg.Sim.Seed,
		BurstWindow:  cfg.Score.BurstWindow,
		GameOverAt:   cfg.Score.GameOverRatio,
		DebugEnabled: cfg.Sim.DebugColliders,
	})

	director := opts.Director
	if director == nil {
		eng, err := scripting.NewEngine(cfg.Waves.ScriptDir, log)
		if err != nil {
			return nil, fmt.Errorf("wave scripts: %w", err)
		}
		g.engine = eng
		// Only a script defining next_wave directs waves.
		if eng.HasDirector() {
			director = eng
		} else {
			log.Warn("no wave director script, using built-in waves", zap.String("dir", cfg.Waves.ScriptDir))
		}
	}

	g.runner = coresys.NewRunner(g.state, log)
	g.runner.SetMaxDt(cfg.Sim.MaxDt)
	g.waves = system.NewWaveSystem(g.state, director, system.WaveConfig{
		Fallback:   cfg.Waves.FallbackCooldown,
		FirstDelay: cfg.Waves.FirstDelay,
		CitySize:   cfg.City.Size,
		Seed:       cfg.Sim.Seed,
	})
	g.runner.Register(g.waves)
	g.events = system.NewEventDispatchSystem(g.state.Bus)
	g.runner.Register(g.events)
	g.runner.Register(system.NewProjectileSystem(g.state))
	g.runner.Register(system.NewExplosionSystem(g.state))
	g.runner.Register(system.NewCollisionSystem(g.state, cfg.Sim.CellSize, cfg.Sim.DedupePairs))
	g.runner.Register(system.NewDestroyOnCollisionSystem(g.state))
	g.runner.Register(system.NewTrailSystem(g.state))
	g.runner.Register(system.NewScoreSystem(g.state))
	g.runner.Register(system.NewRenderSyncSystem(g.state))
	g.runner.Register(system.NewDebugCollidersSystem(g.state))
	g.runner.Register(system.NewCleanupSystem(g.state))

	event.Subscribe(g.state.Bus, func(ev event.ScoreBurst) {
		g.notice = ev.Text
	})
	event.Subscribe(g.state.Bus, g.onGameOver)

	g.city = g.state.GenerateCity(g.state.Rand, world.CityConfig{
		Size:     cfg.City.Size,
		Attempts: cfg.City.Attempts,
	})
	g.state.Flush()
	g.publish()
	return g, nil
}

func loadArsenal(path string, log *zap.Logger) (*data.Arsenal, error) {
	a, err := data.LoadArsenal(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("arsenal file missing, using built-in templates", zap.String("path", path))
		return data.DefaultArsenal(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("arsenal: %w", err)
	}
	return a, nil
}

// Update advances the simulation by dt. A dt above sim.max_dt is clamped to
// it (zero disables the clamp), so one long frame never moves anything
// further than max_dt would. After game over only the output systems run,
// so viewers keep the final picture.
func (g *Game) Update(dt time.Duration) {
	if g.over.Load() {
		g.runner.TickPhase(coresys.PhaseOutput, dt)
	} else {
		g.runner.Tick(dt)
	}
	g.publish()
}

func (g *Game) onGameOver(ev event.GameOver) {
	if g.over.Swap(true) {
		return
	}
	g.result = &ev
	sc := g.state.Score
	g.log.Info("game over",
		zap.Int("score", ev.Score),
		zap.Float64("survived", ev.Survived),
		zap.Int("remaining", ev.Remaining),
		zap.Int("initial", ev.Initial),
		zap.Int("waves", g.waves.Wave()),
	)
	if g.results == nil {
		return
	}
	row := &persist.RunRow{
		Seed:              g.cfg.Sim.Seed,
		Score:             ev.Score,
		SurvivedSeconds:   ev.Survived,
		BuildingsLost:     sc.BuildingsLost(),
		MissilesDestroyed: sc.MissilesDestroyed(),
	}
	g.saves.Add(1)
	go func() {
		defer g.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := g.results.Save(ctx, row); err != nil {
			g.log.Error("save run result", zap.Error(err))
			return
		}
		g.log.Info("run saved", zap.Stringer("id", row.ID))
	}()
}

func (g *Game) publish() {
	sc := g.state.Score
	g.header.Store(&telemetry.Frame{
		Frame:     g.state.Frame,
		Score:     sc.Value(),
		ScoreText: sc.Format(sc.Value()),
		Remaining: sc.Remaining(),
		Over:      sc.Over(),
		Stats:     g.state.Stats,
		Events:    g.events.Delivered(),
	})
}

// Snapshot returns the last published frame with the current scene nodes.
func (g *Game) Snapshot() telemetry.Frame {
	f := *g.header.Load()
	f.Nodes = g.memory.Nodes()
	return f
}

// Fire launches a player shot from start towards dest.
func (g *Game) Fire(start, dest mgl64.Vec3, speed float64) ecs.EntityID {
	return g.state.Fire(start, dest, speed)
}

// Turret is where player shots leave from: outside the city on +Z, above the
// tallest building the arsenal can generate.
func (g *Game) Turret() mgl64.Vec3 {
	return mgl64.Vec3{0, g.shotAltitude(), g.cfg.City.Size}
}

// FireAt shoots from the turret at the point above target at shot altitude,
// so the shot and its explosion clear every rooftop.
func (g *Game) FireAt(target mgl64.Vec3) ecs.EntityID {
	return g.state.Fire(g.Turret(), mgl64.Vec3{target.X(), g.shotAltitude(), target.Z()}, 0)
}

func (g *Game) shotAltitude() float64 {
	b := g.state.Arsenal.Building
	return b.HeightMin + b.HeightRange + b.WidthMin + b.WidthRange + 1
}

// Explode spawns an explosion at pos.
func (g *Game) Explode(pos mgl64.Vec3, size float64) ecs.EntityID {
	return g.state.Explode(pos, size)
}

// LaunchMissile launches an enemy missile from start towards dest.
func (g *Game) LaunchMissile(start, dest mgl64.Vec3, speed float64) ecs.EntityID {
	return g.state.LaunchMissile(start, dest, speed)
}

// HUD is the one-line status shown by viewers.
func (g *Game) HUD() string {
	sc := g.state.Score
	pct := 0
	if sc.Initial() > 0 {
		pct = sc.Remaining() * 100 / sc.Initial()
	}
	s := fmt.Sprintf("score %s  city %d%%  wave %d  %.0fs", sc.Format(sc.Value()), pct, g.waves.Wave(), sc.Elapsed().Seconds())
	if g.state.Debug() {
		s += fmt.Sprintf("  checked %d found %d", g.state.Stats.CollisionsChecked, g.state.Stats.CollisionsFound)
	}
	if g.notice != "" {
		s += "  " + g.notice
	}
	if g.over.Load() {
		s += "  GAME OVER"
	}
	return s
}

func (g *Game) State() *world.State       { return g.state }
func (g *Game) Runner() *coresys.Runner   { return g.runner }
func (g *Game) Memory() *render.Memory    { return g.memory }
func (g *Game) City() world.CityReport    { return g.city }
func (g *Game) Stats() world.Stats        { return g.state.Stats }
func (g *Game) Waves() *system.WaveSystem { return g.waves }
func (g *Game) Over() bool                { return g.over.Load() }
func (g *Game) Result() *event.GameOver   { return g.result }
func (g *Game) SetDebug(on bool)          { g.state.SetDebug(on) }
func (g *Game) ToggleDebug()              { g.state.SetDebug(!g.state.Debug()) }

// Close waits for pending result saves and shuts the script VM down.
func (g *Game) Close() {
	g.saves.Wait()
	if g.engine != nil {
		g.engine.Close()
	}
}

package world

import (
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/citydefense/server/internal/component"
	"github.com/citydefense/server/internal/core/ecs"
	"github.com/citydefense/server/internal/core/event"
	"github.com/citydefense/server/internal/data"
	"github.com/citydefense/server/internal/render"
	"go.uber.org/zap"
)

// Stats are the collision counters of the last completed tick.
type Stats struct {
	CollisionsChecked int `json:"collisions_checked" msgpack:"checked"`
	CollisionsFound   int `json:"collisions_found" msgpack:"found"`
	CellsOccupied     int `json:"cells_occupied" msgpack:"cells"`
	PairsSkipped      int `json:"pairs_skipped" msgpack:"skipped"`
}

// State is the simulation context handed to every system constructor.
// It replaces global scene and clock access: systems reach the ECS, the
// scene and the score only through it.
// Single-goroutine access only (game loop), except the debug toggle.
type State struct {
	ECS *ecs.World

	Transforms  *ecs.Store[component.Transform]
	Colliders   *ecs.Store[component.Collider]
	Projectiles *ecs.Store[component.Projectile]
	Explosions  *ecs.Store[component.Explosion]
	Trails      *ecs.Store[component.Trail]
	Destroys    *ecs.Store[component.DestroyOnCollision]
	Scorables   *ecs.Store[component.Scorable]
	Renderers   *ecs.Store[component.Renderer]

	Bus     *event.Bus
	Scene   render.Scene
	Arsenal *data.Arsenal
	Score   *Score
	Rand    *rand.Rand

	Stats Stats
	Frame uint64

	nextNode render.NodeID
	debug    atomic.Bool
	log      *zap.Logger
}

// Options tune a new State.
type Options struct {
	Seed         int64
	BurstWindow  time.Duration
	GameOverAt   float64 // fraction of the initial rescuable total
	DebugEnabled bool
}

func NewState(scene render.Scene, arsenal *data.Arsenal, bus *event.Bus, log *zap.Logger, opts Options) *State {
	if scene == nil {
		scene = render.Discard{}
	}
	if arsenal == nil {
		arsenal = data.DefaultArsenal()
	}
	if bus == nil {
		bus = event.NewBus()
	}
	if log == nil {
		log = zap.NewNop()
	}
	w := ecs.NewWorld()
	s := &State{
		ECS:         w,
		Transforms:  ecs.NewStore[component.Transform](w),
		Colliders:   ecs.NewStore[component.Collider](w),
		Projectiles: ecs.NewStore[component.Projectile](w),
		Explosions:  ecs.NewStore[component.Explosion](w),
		Trails:      ecs.NewStore[component.Trail](w),
		Destroys:    ecs.NewStore[component.DestroyOnCollision](w),
		Scorables:   ecs.NewStore[component.Scorable](w),
		Renderers:   ecs.NewStore[component.Renderer](w),
		Bus:         bus,
		Scene:       scene,
		Arsenal:     arsenal,
		Score:       NewScore(bus, opts.BurstWindow, opts.GameOverAt),
		Rand:        rand.New(rand.NewSource(opts.Seed)),
		log:         log,
	}
	s.debug.Store(opts.DebugEnabled)
	return s
}

// Flush applies deferred creations and ejections.
func (s *State) Flush() bool { return s.ECS.Flush() }

func (s *State) Log() *zap.Logger { return s.log }

// Debug reports whether collider visualization is on. Safe from any goroutine.
func (s *State) Debug() bool { return s.debug.Load() }

func (s *State) SetDebug(on bool) { s.debug.Store(on) }

func (s *State) allocNode() render.NodeID {
	s.nextNode++
	return s.nextNode
}

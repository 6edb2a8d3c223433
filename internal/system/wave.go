package system

import (
	"time"

	coresys "github.com/citydefense/server/internal/core/system"
	"github.com/citydefense/server/internal/data"
	"github.com/citydefense/server/internal/scripting"
	"github.com/citydefense/server/internal/world"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// Director decides what each missile wave looks like.
type Director interface {
	NextWave(ctx scripting.WaveContext) (scripting.Wave, error)
}

// WaveConfig tunes the WaveSystem.
type WaveConfig struct {
	Fallback   time.Duration // cooldown of the built-in director, and of scripted waves without one
	FirstDelay time.Duration // wait before the first wave
	CitySize   float64
	Seed       int64
}

// WaveSystem launches enemy missiles. When the cooldown of the previous wave
// runs out it asks the director for the next one; without a director, or
// when the script fails, a single missile flies from a random point in the
// sky to a random point in the city.
// Phase 0 (Input).
type WaveSystem struct {
	ws       *world.State
	director Director
	cfg      WaveConfig
	log      *zap.Logger

	wait     time.Duration
	wave     int
	launched uint64
}

func NewWaveSystem(ws *world.State, director Director, cfg WaveConfig) *WaveSystem {
	if cfg.Fallback <= 0 {
		cfg.Fallback = time.Second
	}
	return &WaveSystem{
		ws:       ws,
		director: director,
		cfg:      cfg,
		log:      ws.Log(),
		wait:     cfg.FirstDelay,
	}
}

func (s *WaveSystem) Phase() coresys.Phase { return coresys.PhaseInput }

// Wave returns the number of waves launched so far.
func (s *WaveSystem) Wave() int { return s.wave }

// Launched returns the number of missiles launched so far.
func (s *WaveSystem) Launched() uint64 { return s.launched }

func (s *WaveSystem) Update(dt time.Duration) {
	if s.ws.Score.Over() {
		return
	}
	s.wait -= dt
	if s.wait > 0 {
		return
	}
	s.wave++

	w := s.next()
	for _, m := range w.Missiles {
		s.ws.LaunchMissile(mgl64.Vec3(m.From), mgl64.Vec3(m.To), m.Speed)
		s.launched++
	}
	cd := w.Cooldown
	if cd <= 0 {
		cd = s.cfg.Fallback
	}
	s.wait += cd
	if s.wait <= 0 {
		s.wait = cd
	}
}

func (s *WaveSystem) next() scripting.Wave {
	if s.director == nil {
		return s.fallbackWave()
	}
	sc := s.ws.Score
	w, err := s.director.NextWave(scripting.WaveContext{
		Wave:      s.wave,
		Elapsed:   sc.Elapsed().Seconds(),
		Score:     sc.Value(),
		Remaining: sc.Remaining(),
		Initial:   sc.Initial(),
		CitySize:  s.cfg.CitySize,
		Seed:      s.cfg.Seed,
	})
	if err != nil {
		s.log.Warn("wave director failed, using fallback", zap.Int("wave", s.wave), zap.Error(err))
		return s.fallbackWave()
	}
	return w
}

func (s *WaveSystem) fallbackWave() scripting.Wave {
	rng := s.ws.Rand
	l := s.ws.Arsenal.Launch
	t := s.ws.Arsenal.Get(data.Missile)
	return scripting.Wave{
		Cooldown: s.cfg.Fallback,
		Missiles: []scripting.Launch{{
			From: [3]float64{
				world.RandomNormal(rng, l.Spread, 0),
				world.Random(rng, l.HeightRange, l.HeightMin, 1),
				world.RandomNormal(rng, l.Spread, 0),
			},
			To: [3]float64{
				world.RandomNormal(rng, s.cfg.CitySize, 0),
				0,
				world.RandomNormal(rng, s.cfg.CitySize, 0),
			},
			Speed: t.Speed + rng.Float64()*t.SpeedJitter,
		}},
	}
}


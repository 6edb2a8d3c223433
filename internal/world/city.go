package world

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// Placement is a footprint on the ground plane.
type Placement struct {
	X, Z   float64
	Radius float64
}

// Placer accepts footprints by rejection sampling: a candidate closer than
// the sum of radii to any accepted footprint is refused.
type Placer struct {
	accepted []Placement
}

// Try accepts c if it overlaps no accepted footprint.
func (p *Placer) Try(c Placement) bool {
	for _, a := range p.accepted {
		dx, dz := a.X-c.X, a.Z-c.Z
		r := a.Radius + c.Radius
		if dx*dx+dz*dz < r*r {
			return false
		}
	}
	p.accepted = append(p.accepted, c)
	return true
}

func (p *Placer) Accepted() []Placement { return p.accepted }

// CityConfig bounds city generation. Attempts is the number of candidates
// drawn, so generation always terminates.
type CityConfig struct {
	Size     float64
	Attempts int
}

// CityReport summarizes one GenerateCity run.
type CityReport struct {
	Accepted  int
	Rejected  int
	Rescuable int
}

// GenerateCity scatters buildings around the origin with a normal-ish
// distribution, refusing overlapping footprints.
func (s *State) GenerateCity(rng *rand.Rand, cfg CityConfig) CityReport {
	if rng == nil {
		rng = s.Rand
	}
	b := s.Arsenal.Building
	before := s.Score.Initial()

	var placer Placer
	var rep CityReport
	for i := 0; i < cfg.Attempts; i++ {
		height := Random(rng, b.HeightRange, b.HeightMin, b.HeightPow)
		width := Random(rng, b.WidthRange, b.WidthMin, 1)
		c := Placement{
			X:      RandomNormal(rng, cfg.Size, 0),
			Z:      RandomNormal(rng, cfg.Size, 0),
			Radius: width,
		}
		if !placer.Try(c) {
			rep.Rejected++
			continue
		}
		s.SpawnBuilding(mgl64.Vec3{c.X, 0, c.Z}, width, height)
		rep.Accepted++
	}
	rep.Rescuable = s.Score.Initial() - before

	s.log.Info("city generated",
		zap.Int("buildings", rep.Accepted),
		zap.Int("rejected", rep.Rejected),
		zap.Int("rescuable", rep.Rescuable),
	)
	return rep
}

// Random returns base + u^pow * scale for u uniform in [0,1).
func Random(rng *rand.Rand, scale, base, pow float64) float64 {
	return base + math.Pow(rng.Float64(), pow)*scale
}

// RandomNormal approximates a normal distribution centred on base with the
// mean of five uniform samples, spanning base ± scale/2.
func RandomNormal(rng *rand.Rand, scale, base float64) float64 {
	sum := 0.0
	for i := 0; i < 5; i++ {
		sum += rng.Float64()
	}
	return base + (sum-2.5)/5*scale
}

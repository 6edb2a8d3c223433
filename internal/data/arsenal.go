package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProjectileTemplate holds static data for one projectile type loaded from YAML.
type ProjectileTemplate struct {
	Name          string  `yaml:"name"`
	Speed         float64 `yaml:"speed"`          // units per second
	SpeedJitter   float64 `yaml:"speed_jitter"`   // random extra speed, [0, jitter)
	Points        int     `yaml:"points"`         // score when destroyed in flight, 0 = not scorable
	ExplosionSize float64 `yaml:"explosion_size"` // blast size on arrival or destruction
	TrailPoints   int     `yaml:"trail_points"`
	Scale         float64 `yaml:"scale"`
}

// BuildingTemplate drives city generation. Sizes follow base + rand^pow * range.
type BuildingTemplate struct {
	Points        int     `yaml:"points"` // negative: a loss for the player
	WidthMin      float64 `yaml:"width_min"`
	WidthRange    float64 `yaml:"width_range"`
	HeightMin     float64 `yaml:"height_min"`
	HeightRange   float64 `yaml:"height_range"`
	HeightPow     float64 `yaml:"height_pow"`
	Depth         float64 `yaml:"depth"`
	ExplosionSize float64 `yaml:"explosion_size"`
}

// LaunchTemplate describes where enemy missiles come from.
type LaunchTemplate struct {
	HeightMin   float64 `yaml:"height_min"`
	HeightRange float64 `yaml:"height_range"`
	Spread      float64 `yaml:"spread"`
}

type arsenalFile struct {
	Projectiles []ProjectileTemplate `yaml:"projectiles"`
	Building    BuildingTemplate     `yaml:"building"`
	Launch      LaunchTemplate       `yaml:"launch"`
}

// Arsenal holds every spawnable template.
type Arsenal struct {
	projectiles map[string]*ProjectileTemplate
	Building    BuildingTemplate
	Launch      LaunchTemplate
}

const (
	Missile = "missile"
	Shot    = "shot"
)

// LoadArsenal loads arsenal.yaml. Missile and shot templates are required.
func LoadArsenal(path string) (*Arsenal, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read arsenal: %w", err)
	}
	return ParseArsenal(raw)
}

// ParseArsenal decodes arsenal YAML on top of the built-in defaults.
func ParseArsenal(raw []byte) (*Arsenal, error) {
	def := DefaultArsenal()
	f := arsenalFile{Building: def.Building, Launch: def.Launch}
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse arsenal: %w", err)
	}
	a := &Arsenal{
		projectiles: make(map[string]*ProjectileTemplate, len(f.Projectiles)),
		Building:    f.Building,
		Launch:      f.Launch,
	}
	for i := range f.Projectiles {
		p := &f.Projectiles[i]
		if p.Name == "" {
			return nil, fmt.Errorf("parse arsenal: projectile %d has no name", i)
		}
		if p.Speed <= 0 {
			return nil, fmt.Errorf("parse arsenal: projectile %q: speed must be positive", p.Name)
		}
		a.projectiles[p.Name] = p
	}
	for _, name := range []string{Missile, Shot} {
		if _, ok := a.projectiles[name]; !ok {
			return nil, fmt.Errorf("parse arsenal: missing projectile %q", name)
		}
	}
	return a, nil
}

// DefaultArsenal mirrors data/yaml/arsenal.yaml.
func DefaultArsenal() *Arsenal {
	return &Arsenal{
		projectiles: map[string]*ProjectileTemplate{
			Missile: {Name: Missile, Speed: 1, SpeedJitter: 0.5, Points: 10, ExplosionSize: 0.5, TrailPoints: 500, Scale: 0.1},
			Shot:    {Name: Shot, Speed: 10, ExplosionSize: 0.5, TrailPoints: 500, Scale: 0.05},
		},
		Building: BuildingTemplate{
			Points:        -10,
			WidthMin:      0.1,
			WidthRange:    0.1,
			HeightMin:     0.2,
			HeightRange:   1,
			HeightPow:     3,
			Depth:         0.1,
			ExplosionSize: 0.15,
		},
		Launch: LaunchTemplate{HeightMin: 5, HeightRange: 3, Spread: 8},
	}
}

// Get returns the projectile template by name, or nil if none.
func (a *Arsenal) Get(name string) *ProjectileTemplate {
	return a.projectiles[name]
}

// Count returns the number of projectile templates loaded.
func (a *Arsenal) Count() int {
	return len(a.projectiles)
}

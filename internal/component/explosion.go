package component

import "math"

// ExplosionRate is how fast Explosion.T advances per second; a full
// grow-and-collapse cycle takes 1/ExplosionRate seconds.
const ExplosionRate = 0.5

// Explosion is a fireball that grows and collapses over its phase T in [0,1].
// It does not move; its lethality comes from its Collider.
type Explosion struct {
	Size float64
	T    float64
}

// Radius is sin(pi*T)*Size: zero at both ends of the phase.
func (e *Explosion) Radius() float64 {
	return math.Sin(math.Pi*e.T) * e.Size
}

func (e *Explosion) Done() bool { return e.T > 1 }

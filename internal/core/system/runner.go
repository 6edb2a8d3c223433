package system

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Runner executes systems in phase order each tick. Systems sharing a phase
// run in registration order. A panicking system is logged and skipped for
// the rest of that tick; the remaining systems still run.
type Runner struct {
	systems []System
	sorted  bool
	flusher Flusher
	log     *zap.Logger

	maxDt  time.Duration
	frame  uint64
	faults uint64
}

func NewRunner(flusher Flusher, log *zap.Logger) *Runner {
	return &Runner{
		systems: make([]System, 0, 16),
		flusher: flusher,
		log:     log,
	}
}

// SetMaxDt clamps the dt passed to systems. Zero disables clamping.
func (r *Runner) SetMaxDt(d time.Duration) { r.maxDt = d }

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Frame returns the number of completed ticks.
func (r *Runner) Frame() uint64 { return r.frame }

// Faults returns how many system updates have panicked so far.
func (r *Runner) Faults() uint64 { return r.faults }

func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	if r.maxDt > 0 && dt > r.maxDt {
		dt = r.maxDt
	}
	for _, s := range r.systems {
		r.run(s, dt)
	}
	r.frame++
}

// TickPhase runs only the systems of the given phase.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	r.ensureSorted()
	for _, s := range r.systems {
		if s.Phase() == phase {
			r.run(s, dt)
		}
	}
}

func (r *Runner) run(s System, dt time.Duration) {
	defer func() {
		if p := recover(); p != nil {
			r.faults++
			r.log.Error("system panicked",
				zap.String("system", fmt.Sprintf("%T", s)),
				zap.Stringer("phase", s.Phase()),
				zap.Uint64("frame", r.frame),
				zap.Any("panic", p),
			)
		}
		if r.flusher != nil {
			r.flusher.Flush()
		}
	}()
	s.Update(dt)
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}

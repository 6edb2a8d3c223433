package world

import (
	"time"

	"github.com/citydefense/server/internal/core/event"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	DefaultBurstWindow = 2 * time.Second
	DefaultGameOverAt  = 0.25
)

// Score tracks survival time, the running score and the city's remaining
// rescuable points. Same-signed deltas arriving within the burst window are
// combined into one ScoreBurst notice.
type Score struct {
	bus     *event.Bus
	window  time.Duration
	ratio   float64
	printer *message.Printer

	value     int
	elapsed   time.Duration
	initial   int
	remaining int
	lost      int
	destroyed int
	over      bool

	burstDelta int
	burstCount int
	burstAge   time.Duration
}

func NewScore(bus *event.Bus, window time.Duration, ratio float64) *Score {
	if window <= 0 {
		window = DefaultBurstWindow
	}
	if ratio <= 0 {
		ratio = DefaultGameOverAt
	}
	return &Score{
		bus:     bus,
		window:  window,
		ratio:   ratio,
		printer: message.NewPrinter(language.English),
	}
}

// AddRescuable registers assets the player must protect.
func (s *Score) AddRescuable(points int) {
	s.initial += points
	s.remaining += points
}

// Apply adds a destroyed entity's points. Negative points are rescuable
// assets and reduce what is left of the city.
func (s *Score) Apply(points int) {
	if s.over || points == 0 {
		return
	}
	s.value += points
	if points < 0 {
		s.remaining += points
		s.lost++
	} else {
		s.destroyed++
	}

	if s.burstCount > 0 && (s.burstDelta < 0) != (points < 0) {
		s.flushBurst()
	}
	if s.burstCount == 0 {
		s.burstAge = 0
	}
	s.burstDelta += points
	s.burstCount++

	if s.initial > 0 && float64(s.remaining) < s.ratio*float64(s.initial) {
		s.flushBurst()
		s.over = true
		event.Emit(s.bus, event.GameOver{
			Score:     s.value,
			Survived:  s.elapsed.Seconds(),
			Remaining: s.remaining,
			Initial:   s.initial,
		})
	}
}

// Advance adds survival time and closes an expired burst.
func (s *Score) Advance(dt time.Duration) {
	if s.over {
		return
	}
	s.elapsed += dt
	if s.burstCount == 0 {
		return
	}
	s.burstAge += dt
	if s.burstAge >= s.window {
		s.flushBurst()
	}
}

func (s *Score) flushBurst() {
	if s.burstCount == 0 {
		return
	}
	event.Emit(s.bus, event.ScoreBurst{
		Delta: s.burstDelta,
		Count: s.burstCount,
		Text:  s.Format(s.burstDelta),
	})
	s.burstDelta = 0
	s.burstCount = 0
	s.burstAge = 0
}

// Format renders a signed delta with digit grouping, e.g. "+1,250".
func (s *Score) Format(delta int) string {
	if delta > 0 {
		return "+" + s.printer.Sprintf("%d", delta)
	}
	return s.printer.Sprintf("%d", delta)
}

func (s *Score) Value() int             { return s.value }
func (s *Score) Elapsed() time.Duration { return s.elapsed }
func (s *Score) Initial() int           { return s.initial }
func (s *Score) Remaining() int         { return s.remaining }
func (s *Score) BuildingsLost() int     { return s.lost }
func (s *Score) MissilesDestroyed() int { return s.destroyed }
func (s *Score) Over() bool             { return s.over }

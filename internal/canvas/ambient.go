package canvas

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

const (
	ZenInterval       = 100 * time.Millisecond
	BreathingInterval = 50 * time.Millisecond

	zenAlpha       = 0.15
	zenStep        = 0.1
	breathAlpha    = 0.3
	breathWidth    = 2
	breathMin      = 50
	breathMax      = 150
	breathStepSize = 2
)

var breathColor = mustColor("#A8E6CF")

// Ambient draws the relaxation animations on a layer of their own, so they
// never touch the strokes or the undo history.
type Ambient struct {
	layer *Layer
	rng   *rand.Rand

	zen   bool
	angle float64

	breathing bool
	size      float64
	growing   bool
}

func newAmbient(width, height int, rng *rand.Rand) *Ambient {
	return &Ambient{layer: NewLayer(width, height), rng: rng}
}

func (a *Ambient) center() Point {
	b := a.layer.Bounds()
	return Point{X: float64(b.Dx()) / 2, Y: float64(b.Dy()) / 2}
}

func (a *Ambient) setZen(on bool) {
	if on && !a.zen {
		a.angle = 0
	}
	a.zen = on
}

func (a *Ambient) setBreathing(on bool) {
	if on && !a.breathing {
		a.size, a.growing = breathMin, true
	}
	a.breathing = on
}

// zenDot drops one soft dot on the orbit and advances the angle.
func (a *Ambient) zenDot() {
	if !a.zen {
		return
	}
	c := a.center()
	radius := math.Abs(math.Sin(a.angle)*200) + 50
	p := Point{X: c.X + math.Cos(a.angle)*radius, Y: c.Y + math.Sin(a.angle)*radius}
	size := a.rng.Float64()*15 + 2
	col := mustColor(ambientPalette[a.rng.IntN(len(ambientPalette))])

	a.layer.FillDisc(p, size, withAlpha(col, zenAlpha))
	a.angle += zenStep
}

// breath draws the ring at the current size, then grows or shrinks it.
func (a *Ambient) breath() {
	if !a.breathing {
		return
	}
	c := a.center()
	pts := ellipsePoints(c, a.size, a.size)
	a.layer.Stroke(pts, true, breathWidth, withAlpha(breathColor, breathAlpha))

	if a.growing {
		a.size += breathStepSize
	} else {
		a.size -= breathStepSize
	}
	if a.size >= breathMax {
		a.growing = false
	}
	if a.size <= breathMin {
		a.growing = true
	}
}

// SetZen toggles the zen partner. Turning it on restarts the orbit.
func (s *Session) SetZen(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambient.setZen(on)
}

// SetBreathing toggles the breathing ring. Turning it on restarts the ring
// at its smallest size.
func (s *Session) SetBreathing(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambient.setBreathing(on)
}

// TickZen advances the zen partner by one frame. Nothing is drawn while a
// gesture is in progress.
func (s *Session) TickZen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.painting {
		return
	}
	s.ambient.zenDot()
}

// TickBreathing advances the breathing ring by one frame.
func (s *Session) TickBreathing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambient.breath()
}

// RunAmbient drives the enabled ambient modes until ctx is done.
func (s *Session) RunAmbient(ctx context.Context) {
	zen := time.NewTicker(ZenInterval)
	defer zen.Stop()
	breathing := time.NewTicker(BreathingInterval)
	defer breathing.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-zen.C:
			s.TickZen()
		case <-breathing.C:
			s.TickBreathing()
		}
	}
}

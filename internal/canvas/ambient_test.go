package canvas

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestZenDrawsOnAmbientLayerOnly(t *testing.T) {
	s := newTestSession(t, nil)
	s.SetZen(true)
	s.TickZen()

	if !s.strokes.Blank() {
		t.Error("zen dot landed on the stroke layer")
	}
	if s.ambient.layer.Blank() {
		t.Fatal("zen tick drew nothing")
	}
	if bytes.Equal(s.Image().Pix, s.Strokes().Pix) {
		t.Error("ambient layer not composited")
	}
	if step, n := s.HistoryState(); step != 0 || n != 1 {
		t.Errorf("ambient frame touched history: step=%d len=%d", step, n)
	}
	if got := s.ambient.angle; got != zenStep {
		t.Errorf("angle = %v after one tick", got)
	}
}

func TestZenPausesWhilePainting(t *testing.T) {
	s := newTestSession(t, nil)
	s.SetZen(true)
	s.PointerDown(10, 10)
	s.TickZen()
	if !s.ambient.layer.Blank() {
		t.Error("zen dot drawn during a gesture")
	}
	s.PointerUp(10, 10)
	s.TickZen()
	if s.ambient.layer.Blank() {
		t.Error("zen did not resume after the gesture")
	}
}

func TestZenDisabledDrawsNothing(t *testing.T) {
	s := newTestSession(t, nil)
	s.TickZen()
	s.TickBreathing()
	if !s.ambient.layer.Blank() {
		t.Error("disabled ambient modes drew")
	}
}

func TestBreathingOscillates(t *testing.T) {
	s := newTestSession(t, nil)
	s.SetBreathing(true)

	s.TickBreathing()
	if a := s.ambient.layer.Image().RGBAAt(DefaultWidth/2+50, DefaultHeight/2).A; a == 0 {
		t.Error("first ring not drawn at radius 50")
	}

	for i := 1; i < 50; i++ {
		s.TickBreathing()
	}
	if s.ambient.size != breathMax || s.ambient.growing {
		t.Fatalf("size=%v growing=%v after reaching the top", s.ambient.size, s.ambient.growing)
	}
	for i := 0; i < 50; i++ {
		s.TickBreathing()
	}
	if s.ambient.size != breathMin || !s.ambient.growing {
		t.Errorf("size=%v growing=%v after shrinking back", s.ambient.size, s.ambient.growing)
	}
}

func TestClearWipesAmbientLayer(t *testing.T) {
	s := newTestSession(t, nil)
	s.SetBreathing(true)
	s.TickBreathing()
	s.Clear()
	if !s.ambient.layer.Blank() {
		t.Error("clear left ambient drawing")
	}
}

func TestRunAmbientStopsWithContext(t *testing.T) {
	s := newTestSession(t, nil)
	s.SetBreathing(true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunAmbient(ctx)
		close(done)
	}()

	time.Sleep(3 * BreathingInterval)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunAmbient did not return")
	}
	if s.ambient.layer.Blank() {
		t.Error("no breathing frame rendered")
	}
}

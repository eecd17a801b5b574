package gesture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"mindful-paint/internal/canvas"
	"mindful-paint/internal/protocol"
)

type countingEmitter struct {
	mu     sync.Mutex
	events map[string]int
}

func (e *countingEmitter) Emit(event string, _ any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.events == nil {
		e.events = make(map[string]int)
	}
	e.events[event]++
	return nil
}

func (e *countingEmitter) count(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.events[event]
}

func newSession(t *testing.T, em canvas.Emitter) *canvas.Session {
	t.Helper()
	s, err := canvas.NewSession(canvas.Options{
		Width:   200,
		Height:  200,
		Emitter: em,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

const sample = `
steps:
  - tool: marker
    color: "#6C5CE7"
    width: 8
    stroke: [[20, 20], [60, 20], [100, 20]]
  - tool: rectangle
    stroke: [[20, 100], [80, 140], [120, 180]]
  - undo: true
  - redo: true
`

func TestRunDrivesSession(t *testing.T) {
	sc, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}
	em := &countingEmitter{}
	s := newSession(t, em)
	if err := s.JoinRoom("r"); err != nil {
		t.Fatal(err)
	}

	if err := sc.Run(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	if got := em.count(protocol.EventDrawStart); got != 1 {
		t.Errorf("draw-start emitted %d times", got)
	}
	if got := em.count(protocol.EventDraw); got != 3 {
		t.Errorf("draw emitted %d times, want one per point", got)
	}
	if got := em.count(protocol.EventDrawShape); got != 1 {
		t.Errorf("draw-shape emitted %d times", got)
	}
	if s.Tool() != canvas.ToolRectangle {
		t.Errorf("tool = %s", s.Tool())
	}
	if a := s.Strokes().RGBAAt(60, 20).A; a == 0 {
		t.Error("marker stroke missing")
	}
	if a := s.Strokes().RGBAAt(20, 160).A; a == 0 {
		t.Error("redone rectangle missing")
	}
	if step, n := s.HistoryState(); step != 2 || n != 3 {
		t.Errorf("history = step %d of %d", step, n)
	}
}

func TestClearStep(t *testing.T) {
	sc, err := Parse(strings.NewReader(`
steps:
  - stroke: [[10, 10], [50, 50]]
  - clear: true
`))
	if err != nil {
		t.Fatal(err)
	}
	em := &countingEmitter{}
	s := newSession(t, em)
	s.JoinRoom("r")
	if err := sc.Run(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	if a := s.Strokes().RGBAAt(30, 30).A; a != 0 {
		t.Error("clear left the stroke")
	}
	if em.count(protocol.EventClear) != 1 {
		t.Error("clear-canvas not emitted")
	}
}

func TestParseRejects(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
	}{
		{"short point", "steps:\n  - stroke: [[1, 2], [3]]\n"},
		{"unknown field", "steps:\n  - brush: true\n"},
		{"negative pause", "steps:\n  - pause: -1s\n"},
		{"not yaml", "steps: [\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tc.doc)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRunStopsOnBadTool(t *testing.T) {
	sc, err := Parse(strings.NewReader("steps:\n  - tool: laser\n"))
	if err != nil {
		t.Fatal(err)
	}
	err = sc.Run(context.Background(), newSession(t, nil))
	if !errors.Is(err, canvas.ErrUnknownTool) {
		t.Errorf("Run() = %v, want ErrUnknownTool", err)
	}
}

func TestRunHonoursContext(t *testing.T) {
	sc, err := Parse(strings.NewReader("steps:\n  - stroke: [[1, 1], [2, 2], [3, 3]]\n    interval: 1h\n"))
	if err != nil {
		t.Fatal(err)
	}
	s := newSession(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := sc.Run(ctx, s); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() = %v", err)
	}
	// the gesture was closed, so history is usable again
	if _, err := s.Undo(); err != nil {
		t.Error(err)
	}
	if step, _ := s.HistoryState(); step != 0 {
		t.Errorf("interrupted stroke was not recorded and undone, step %d", step)
	}
}

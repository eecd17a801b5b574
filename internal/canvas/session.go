package canvas

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"mindful-paint/internal/protocol"
)

var (
	ErrEmptyRoom        = errors.New("room id must not be empty")
	ErrUnsupportedEvent = errors.New("event is not rendered by the canvas")
)

const (
	DefaultWidth  = 800
	DefaultHeight = 600

	sprayDensity = 20
	markerAlpha  = 0.6
	initialWidth = 5
)

// Emitter sends a message to the relay. Implementations must not block.
type Emitter interface {
	Emit(event string, data any) error
}

// Options configures a Session. Zero values select the defaults.
type Options struct {
	Width, Height int
	HistoryLimit  int
	Emitter       Emitter
	Logger        *slog.Logger
	Rand          *rand.Rand
}

// Session owns the drawing state of one client: the stroke and ambient
// layers, the selected tool, and the undo history. All methods are safe for
// concurrent use; pointer input, network arrivals and ambient ticks are
// serialised on one mutex.
type Session struct {
	mu sync.Mutex

	width, height int
	strokes       *Layer
	ambient       *Ambient
	history       *History
	emitter       Emitter
	log           *slog.Logger
	rng           *rand.Rand

	tool      Tool
	colorName string
	color     color.NRGBA
	lineWidth float64
	symmetry  bool
	roomID    string

	painting bool
	start    Point
	last     Point
	stroke   string
	preview  []byte

	// remote pen positions by stroke id
	pens map[string]Point
}

// NewSession returns a blank canvas with the pen selected. The blank
// raster is the first history entry.
func NewSession(opts Options) (*Session, error) {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	s := &Session{
		width:     opts.Width,
		height:    opts.Height,
		strokes:   NewLayer(opts.Width, opts.Height),
		ambient:   newAmbient(opts.Width, opts.Height, opts.Rand),
		history:   NewHistory(opts.HistoryLimit),
		emitter:   opts.Emitter,
		log:       opts.Logger,
		rng:       opts.Rand,
		tool:      ToolPen,
		colorName: DefaultColor,
		color:     mustColor(DefaultColor),
		lineWidth: initialWidth,
		pens:      make(map[string]Point),
	}
	if err := s.record(); err != nil {
		return nil, err
	}
	return s, nil
}

// SetTool selects a tool and its default width.
func (s *Session) SetTool(name string) error {
	t, err := ParseTool(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tool = t
	if w, ok := t.DefaultWidth(); ok {
		s.lineWidth = w
	}
	return nil
}

func (s *Session) SetColor(hex string) error {
	c, err := ParseColor(hex)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.colorName, s.color = hex, c
	return nil
}

func (s *Session) SetLineWidth(w float64) error {
	if err := validWidth(w); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lineWidth = w
	return nil
}

// SetSymmetry toggles mirrored freehand drawing. Mirrored samples are never
// sent to the room.
func (s *Session) SetSymmetry(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symmetry = on
}

func (s *Session) Tool() Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool
}

func (s *Session) LineWidth() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lineWidth
}

func (s *Session) Room() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// HistoryState returns the history cursor and length.
func (s *Session) HistoryState() (step, length int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Step(), s.history.Len()
}

// JoinRoom starts sharing the canvas with the members of a room.
func (s *Session) JoinRoom(roomID string) error {
	if roomID == "" {
		return ErrEmptyRoom
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = roomID
	if s.emitter == nil {
		return nil
	}
	return s.emitter.Emit(protocol.EventJoinRoom, roomID)
}

// CreateRoom joins a freshly generated short room id and returns it.
func (s *Session) CreateRoom() (string, error) {
	id := uuid.NewString()[:8]
	return id, s.JoinRoom(id)
}

// PointerDown starts a gesture. Shape tools save the raster so the preview
// can be redrawn on every move.
func (s *Session) PointerDown(x, y float64) error {
	p, err := s.point(x, y)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.painting = true
	s.start, s.last = p, p
	switch {
	case s.tool.IsShape():
		s.preview = s.strokes.save()
	case s.tool.IsFreehand():
		s.stroke = uuid.NewString()
		s.send(protocol.EventDrawStart, protocol.StrokeEvent{RoomID: s.roomID, Stroke: s.stroke})
	}
	s.paint(p)
	return nil
}

// PointerMove continues the gesture. It is ignored outside a gesture.
func (s *Session) PointerMove(x, y float64) error {
	p, err := s.point(x, y)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.painting {
		return nil
	}
	s.paint(p)
	return nil
}

// PointerUp ends the gesture. A shape is committed at the release point and
// sent once; every gesture adds one history entry.
func (s *Session) PointerUp(x, y float64) error {
	p, err := s.point(x, y)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.painting {
		return nil
	}
	s.painting = false

	switch {
	case s.tool.IsShape():
		if err := s.strokes.load(s.preview); err != nil {
			return err
		}
		s.preview = nil
		s.drawShape(s.tool, s.start, p, s.color, s.lineWidth)
		s.send(protocol.EventDrawShape, protocol.ShapeEvent{
			RoomID: s.roomID,
			Type:   string(s.tool),
			StartX: s.start.X,
			StartY: s.start.Y,
			EndX:   p.X,
			EndY:   p.Y,
			Color:  s.colorName,
			Width:  s.lineWidth,
		})
	case s.tool.IsFreehand():
		s.send(protocol.EventDrawEnd, protocol.StrokeEvent{RoomID: s.roomID, Stroke: s.stroke})
		s.stroke = ""
	}
	return s.record()
}

// paint renders one local sample of the active tool.
func (s *Session) paint(p Point) {
	switch {
	case s.tool.IsShape():
		if err := s.strokes.load(s.preview); err != nil {
			s.log.Error("restore shape preview", "err", err)
			return
		}
		s.drawShape(s.tool, s.start, p, s.color, s.lineWidth)
	case s.tool == ToolSpray:
		s.spray(p, s.color, s.lineWidth)
		s.send(protocol.EventDraw, s.drawEvent(p))
	default:
		s.segment(s.tool, s.last, p, s.color, s.lineWidth)
		s.send(protocol.EventDraw, s.drawEvent(p))
		if s.symmetry {
			w := float64(s.width)
			s.segment(s.tool, s.last.Mirror(w), p.Mirror(w), s.color, s.lineWidth)
		}
	}
	s.last = p
}

func (s *Session) drawEvent(p Point) protocol.DrawEvent {
	return protocol.DrawEvent{
		RoomID: s.roomID,
		X:      p.X,
		Y:      p.Y,
		Color:  s.colorName,
		Width:  s.lineWidth,
		Tool:   string(s.tool),
		Stroke: s.stroke,
	}
}

// send emits to the room, if any. Delivery is best effort.
func (s *Session) send(event string, data any) {
	if s.emitter == nil || s.roomID == "" {
		return
	}
	if err := s.emitter.Emit(event, data); err != nil {
		s.log.Warn("emit failed", "event", event, "err", err)
	}
}

// Clear wipes both layers, records the blank canvas, and tells the room.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.wipe()
	if s.roomID != "" {
		s.send(protocol.EventClear, s.roomID)
	}
	return s.record()
}

func (s *Session) wipe() {
	s.strokes.Clear()
	s.ambient.layer.Clear()
	clear(s.pens)
	if s.preview != nil {
		clear(s.preview)
	}
}

// Undo restores the previous history entry. It reports false when there is
// nothing to undo or a gesture is in progress.
func (s *Session) Undo() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.painting {
		return false, nil
	}
	snap, ok := s.history.Undo()
	if !ok {
		return false, nil
	}
	return true, s.strokes.Restore(snap)
}

// Redo re-applies the entry undone last. Like Undo it is refused during a
// gesture.
func (s *Session) Redo() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.painting {
		return false, nil
	}
	snap, ok := s.history.Redo()
	if !ok {
		return false, nil
	}
	return true, s.strokes.Restore(snap)
}

func (s *Session) record() error {
	snap, err := s.strokes.Snapshot()
	if err != nil {
		return err
	}
	s.history.Record(snap)
	return nil
}

// Apply renders a message received from the relay.
func (s *Session) Apply(msg protocol.Message) error {
	switch msg.Type {
	case protocol.EventDraw:
		var ev protocol.DrawEvent
		if err := msg.Decode(&ev); err != nil {
			return err
		}
		return s.ApplyDraw(ev)
	case protocol.EventDrawShape:
		var ev protocol.ShapeEvent
		if err := msg.Decode(&ev); err != nil {
			return err
		}
		return s.ApplyShape(ev)
	case protocol.EventDrawStart, protocol.EventDrawEnd:
		var ev protocol.StrokeEvent
		if err := msg.Decode(&ev); err != nil {
			return err
		}
		s.liftPen(ev.Stroke)
		return nil
	case protocol.EventClear:
		return s.applyClear()
	case protocol.EventUserJoined:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedEvent, msg.Type)
}

// ApplyDraw renders a remote freehand or spray sample. Samples of the same
// stroke are joined; unknown and shape tools are rejected.
func (s *Session) ApplyDraw(ev protocol.DrawEvent) error {
	tool, err := ParseTool(ev.Tool)
	if err != nil {
		return err
	}
	if tool.IsShape() {
		return fmt.Errorf("%w: %q is a shape", ErrUnknownTool, ev.Tool)
	}
	col, err := ParseColor(ev.Color)
	if err != nil {
		return err
	}
	if err := validWidth(ev.Width); err != nil {
		return err
	}
	p, err := s.point(ev.X, ev.Y)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.remote(func() {
		if tool == ToolSpray {
			s.spray(p, col, ev.Width)
			return
		}
		last, ok := s.pens[ev.Stroke]
		if !ok {
			last = p
		}
		s.segment(tool, last, p, col, ev.Width)
		s.pens[ev.Stroke] = p
	})
	return nil
}

// ApplyShape renders a remote shape.
func (s *Session) ApplyShape(ev protocol.ShapeEvent) error {
	shape, err := ParseShape(ev.Type)
	if err != nil {
		return err
	}
	col, err := ParseColor(ev.Color)
	if err != nil {
		return err
	}
	if err := validWidth(ev.Width); err != nil {
		return err
	}
	start, err := s.point(ev.StartX, ev.StartY)
	if err != nil {
		return err
	}
	end, err := s.point(ev.EndX, ev.EndY)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.remote(func() {
		s.drawShape(shape, start, end, col, ev.Width)
	})
	return nil
}

func (s *Session) liftPen(stroke string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pens, stroke)
}

// applyClear handles the relay's clear signal. The history only grows when
// something was actually wiped, so the echo of a local clear adds nothing.
func (s *Session) applyClear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.preview != nil {
		if err := s.strokes.load(s.preview); err != nil {
			return err
		}
	}
	blank := s.strokes.Blank()
	s.wipe()

	var err error
	if !blank {
		err = s.record()
	}
	if s.preview != nil {
		s.drawShape(s.tool, s.start, s.last, s.color, s.lineWidth)
	}
	return err
}

// remote runs a remote render. During a local shape preview it draws below
// the preview so the next preview frame does not erase it.
func (s *Session) remote(render func()) {
	if s.preview == nil {
		render()
		return
	}
	if err := s.strokes.load(s.preview); err != nil {
		s.log.Error("restore shape preview", "err", err)
		return
	}
	render()
	s.preview = s.strokes.save()
	s.drawShape(s.tool, s.start, s.last, s.color, s.lineWidth)
}

func (s *Session) segment(tool Tool, a, b Point, col color.NRGBA, width float64) {
	pts := []Point{a, b}
	switch tool {
	case ToolBrush:
		s.strokes.Stroke(pts, false, width+20, withAlpha(col, 0.08))
		s.strokes.Stroke(pts, false, width+10, withAlpha(col, 0.15))
		s.strokes.Stroke(pts, false, width, col)
	case ToolMarker:
		s.strokes.Stroke(pts, false, width, withAlpha(col, markerAlpha))
	case ToolEraser:
		s.strokes.Erase(pts, width)
	default:
		s.strokes.Stroke(pts, false, width, col)
	}
}

// spray scatters single pixel dots over a square of side 2*width.
func (s *Session) spray(p Point, col color.NRGBA, width float64) {
	offset := width * 2
	for range sprayDensity {
		dx := s.rng.Float64()*offset - offset/2
		dy := s.rng.Float64()*offset - offset/2
		s.strokes.Dot(Point{X: p.X + dx, Y: p.Y + dy}, col)
	}
}

func (s *Session) drawShape(shape Tool, start, end Point, col color.NRGBA, width float64) {
	pts, closed, err := Outline(shape, start, end)
	if err != nil {
		s.log.Error("draw shape", "shape", shape, "err", err)
		return
	}
	s.strokes.Stroke(pts, closed, width, col)
}

// point validates a coordinate and clamps it to the canvas.
func (s *Session) point(x, y float64) (Point, error) {
	if !finite(x) || !finite(y) {
		return Point{}, fmt.Errorf("%w: (%v, %v)", ErrNotFinite, x, y)
	}
	return Point{
		X: math.Max(0, math.Min(x, float64(s.width))),
		Y: math.Max(0, math.Min(y, float64(s.height))),
	}, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Image returns the ambient layer composited over the strokes.
func (s *Session) Image() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.strokes.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, s.strokes.Image(), b.Min, draw.Src)
	draw.Draw(out, b, s.ambient.layer.Image(), b.Min, draw.Over)
	return out
}

// Strokes returns a copy of the stroke layer alone.
func (s *Session) Strokes() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.strokes.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, s.strokes.Image(), b.Min, draw.Src)
	return out
}

// WritePNG encodes the composited canvas.
func (s *Session) WritePNG(w io.Writer) error {
	return png.Encode(w, s.Image())
}

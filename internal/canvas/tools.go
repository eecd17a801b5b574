package canvas

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTool  = errors.New("unknown tool")
	ErrUnknownShape = errors.New("unknown shape")
	ErrInvalidColor = errors.New("invalid color")
	ErrInvalidWidth = errors.New("invalid stroke width")
	ErrNotFinite    = errors.New("coordinate is not a finite number")
)

// Tool names a drawing tool. The string values are the wire names.
type Tool string

const (
	ToolPen       Tool = "pen"
	ToolBrush     Tool = "brush"
	ToolMarker    Tool = "marker"
	ToolEraser    Tool = "eraser"
	ToolSpray     Tool = "spray"
	ToolLine      Tool = "line"
	ToolRectangle Tool = "rectangle"
	ToolCircle    Tool = "circle"
	ToolEllipse   Tool = "ellipse"
	ToolTriangle  Tool = "triangle"
	ToolStar      Tool = "star"
)

// MaxWidth bounds the stroke width accepted from the network.
const MaxWidth = 200

// ParseTool validates a wire tool name.
func ParseTool(name string) (Tool, error) {
	t := Tool(name)
	switch t {
	case ToolPen, ToolBrush, ToolMarker, ToolEraser, ToolSpray,
		ToolLine, ToolRectangle, ToolCircle, ToolEllipse, ToolTriangle, ToolStar:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
}

// ParseShape validates a draw-shape type.
func ParseShape(name string) (Tool, error) {
	t := Tool(name)
	if !t.IsShape() {
		return "", fmt.Errorf("%w: %q", ErrUnknownShape, name)
	}
	return t, nil
}

// IsShape reports whether the tool is committed once on gesture end.
func (t Tool) IsShape() bool {
	switch t {
	case ToolLine, ToolRectangle, ToolCircle, ToolEllipse, ToolTriangle, ToolStar:
		return true
	}
	return false
}

// IsFreehand reports whether the tool draws connected segments.
func (t Tool) IsFreehand() bool {
	switch t {
	case ToolPen, ToolBrush, ToolMarker, ToolEraser:
		return true
	}
	return false
}

// DefaultWidth is the width selected together with the tool. The eraser
// keeps whatever width was active.
func (t Tool) DefaultWidth() (float64, bool) {
	switch {
	case t == ToolPen:
		return 2, true
	case t == ToolBrush:
		return 15, true
	case t == ToolMarker:
		return 10, true
	case t == ToolSpray:
		return 20, true
	case t.IsShape():
		return 3, true
	}
	return 0, false
}

func validWidth(w float64) error {
	if !finite(w) || w <= 0 || w > MaxWidth {
		return fmt.Errorf("%w: %v", ErrInvalidWidth, w)
	}
	return nil
}

package canvas

import (
	"errors"
	"image/color"
	"math"
	"testing"
)

func TestToolDefaults(t *testing.T) {
	testCases := []struct {
		tool  string
		width float64
		ok    bool
	}{
		{"pen", 2, true},
		{"brush", 15, true},
		{"marker", 10, true},
		{"spray", 20, true},
		{"eraser", 0, false},
		{"line", 3, true},
		{"star", 3, true},
	}
	for _, tc := range testCases {
		t.Run(tc.tool, func(t *testing.T) {
			tool, err := ParseTool(tc.tool)
			if err != nil {
				t.Fatal(err)
			}
			w, ok := tool.DefaultWidth()
			if w != tc.width || ok != tc.ok {
				t.Errorf("DefaultWidth() = %v, %v", w, ok)
			}
		})
	}
}

func TestParseToolRejectsUnknown(t *testing.T) {
	for _, name := range []string{"", "Pen", "crayon", "kaleidoscope"} {
		if _, err := ParseTool(name); !errors.Is(err, ErrUnknownTool) {
			t.Errorf("%q: expected ErrUnknownTool, got %v", name, err)
		}
	}
	if _, err := ParseShape("spray"); !errors.Is(err, ErrUnknownShape) {
		t.Errorf("spray is not a shape, got %v", err)
	}
}

func TestToolKinds(t *testing.T) {
	if !ToolEraser.IsFreehand() || ToolEraser.IsShape() {
		t.Error("eraser is freehand")
	}
	if ToolSpray.IsFreehand() || ToolSpray.IsShape() {
		t.Error("spray is neither freehand nor shape")
	}
	if !ToolEllipse.IsShape() {
		t.Error("ellipse is a shape")
	}
}

func TestParseColor(t *testing.T) {
	testCases := []struct {
		in   string
		want color.NRGBA
	}{
		{"#2D3436", color.NRGBA{0x2d, 0x34, 0x36, 0xff}},
		{"#a8e6cf", color.NRGBA{0xa8, 0xe6, 0xcf, 0xff}},
		{"#fff", color.NRGBA{0xff, 0xff, 0xff, 0xff}},
		{"#f00", color.NRGBA{0xff, 0, 0, 0xff}},
	}
	for _, tc := range testCases {
		got, err := ParseColor(tc.in)
		if err != nil {
			t.Errorf("%s: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "red", "#zzzzzz", "2D3436", "#12345", "#123456zz", "#12g", "#1234"} {
		if _, err := ParseColor(bad); !errors.Is(err, ErrInvalidColor) {
			t.Errorf("%q: expected ErrInvalidColor, got %v", bad, err)
		}
	}
}

func TestValidWidth(t *testing.T) {
	for _, w := range []float64{0, -1, math.NaN(), math.Inf(1), MaxWidth + 1} {
		if err := validWidth(w); !errors.Is(err, ErrInvalidWidth) {
			t.Errorf("%v: expected ErrInvalidWidth, got %v", w, err)
		}
	}
	if err := validWidth(0.5); err != nil {
		t.Error(err)
	}
}

package canvas

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultColor is the initial stroke colour.
const DefaultColor = "#2D3436"

// ambientPalette holds the soft colours of the zen partner dots.
var ambientPalette = []string{"#A8E6CF", "#DCEDC1", "#FFD3B6", "#FFAAA5", "#6C5B7B"}

// ParseColor parses a "#rgb" or "#rrggbb" colour.
func ParseColor(s string) (color.NRGBA, error) {
	if !isHexColor(s) {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// isHexColor checks the form colorful.Hex does not: its scanner accepts
// trailing garbage and a short last digit pair.
func isHexColor(s string) bool {
	if (len(s) != 4 && len(s) != 7) || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

func withAlpha(c color.NRGBA, alpha float64) color.NRGBA {
	c.A = uint8(alpha*255 + 0.5)
	return c
}

func mustColor(s string) color.NRGBA {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

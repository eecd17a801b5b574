package canvas

import (
	"fmt"
	"math"
)

// Point is a canvas position in pixels.
type Point struct {
	X, Y float64
}

func (p Point) Mirror(width float64) Point {
	return Point{X: width - p.X, Y: p.Y}
}

func midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// Circle is centred on the drag start and passes through the drag end.
type Circle struct {
	Center Point
	Radius float64
}

func CircleGeometry(start, end Point) Circle {
	return Circle{Center: start, Radius: math.Hypot(end.X-start.X, end.Y-start.Y)}
}

// Rect has its origin at the drag start. Width and Height are signed.
type Rect struct {
	Origin        Point
	Width, Height float64
}

func RectGeometry(start, end Point) Rect {
	return Rect{Origin: start, Width: end.X - start.X, Height: end.Y - start.Y}
}

// Ellipse is inscribed in the drag box.
type Ellipse struct {
	Center Point
	RX, RY float64
}

func EllipseGeometry(start, end Point) Ellipse {
	return Ellipse{
		Center: midpoint(start, end),
		RX:     math.Abs(end.X-start.X) / 2,
		RY:     math.Abs(end.Y-start.Y) / 2,
	}
}

// TriangleVertices returns the apex at the top middle of the drag box
// followed by the two base corners.
func TriangleVertices(start, end Point) [3]Point {
	return [3]Point{
		{X: (start.X + end.X) / 2, Y: start.Y},
		{X: end.X, Y: end.Y},
		{X: start.X, Y: end.Y},
	}
}

const starSpikes = 5

// StarVertices alternates outer and inner points around the drag midpoint,
// starting straight up. The inner radius is half the outer one.
func StarVertices(start, end Point) [2 * starSpikes]Point {
	c := midpoint(start, end)
	outer := math.Hypot(end.X-c.X, end.Y-c.Y)
	inner := outer / 2

	var pts [2 * starSpikes]Point
	for i := range pts {
		r := outer
		if i%2 == 1 {
			r = inner
		}
		angle := float64(i)*math.Pi/starSpikes - math.Pi/2
		pts[i] = Point{X: c.X + math.Cos(angle)*r, Y: c.Y + math.Sin(angle)*r}
	}
	return pts
}

// Outline returns the polyline traced by a shape tool and whether it is
// closed.
func Outline(shape Tool, start, end Point) ([]Point, bool, error) {
	switch shape {
	case ToolLine:
		return []Point{start, end}, false, nil
	case ToolRectangle:
		r := RectGeometry(start, end)
		o := r.Origin
		return []Point{
			o,
			{X: o.X + r.Width, Y: o.Y},
			{X: o.X + r.Width, Y: o.Y + r.Height},
			{X: o.X, Y: o.Y + r.Height},
		}, true, nil
	case ToolCircle:
		c := CircleGeometry(start, end)
		return ellipsePoints(c.Center, c.Radius, c.Radius), true, nil
	case ToolEllipse:
		e := EllipseGeometry(start, end)
		return ellipsePoints(e.Center, e.RX, e.RY), true, nil
	case ToolTriangle:
		v := TriangleVertices(start, end)
		return v[:], true, nil
	case ToolStar:
		v := StarVertices(start, end)
		return v[:], true, nil
	}
	return nil, false, fmt.Errorf("%w: %q", ErrUnknownShape, shape)
}

// ellipsePoints approximates an axis aligned ellipse with roughly one
// vertex every two pixels of circumference.
func ellipsePoints(c Point, rx, ry float64) []Point {
	n := int(math.Ceil(math.Pi * math.Max(rx, ry)))
	n = max(16, min(n, 512))
	pts := make([]Point, n)
	for i := range pts {
		theta := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = Point{X: c.X + rx*math.Cos(theta), Y: c.Y + ry*math.Sin(theta)}
	}
	return pts
}

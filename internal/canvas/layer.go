package canvas

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// Layer is one transparent RGBA raster the canvas draws on.
type Layer struct {
	img *image.RGBA
}

func NewLayer(width, height int) *Layer {
	return &Layer{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

func (l *Layer) Image() *image.RGBA      { return l.img }
func (l *Layer) Bounds() image.Rectangle { return l.img.Bounds() }

// Clear makes every pixel transparent.
func (l *Layer) Clear() {
	clear(l.img.Pix)
}

// Blank reports whether every pixel is transparent.
func (l *Layer) Blank() bool {
	for _, b := range l.img.Pix {
		if b != 0 {
			return false
		}
	}
	return true
}

// Snapshot returns a compressed copy of the raster.
func (l *Layer) Snapshot() ([]byte, error) {
	return compress(l.img.Pix)
}

// Restore replaces the raster with a snapshot taken from a layer of the
// same size. The layer is unchanged on error.
func (l *Layer) Restore(snapshot []byte) error {
	pix := make([]byte, len(l.img.Pix))
	if err := decompress(pix, snapshot); err != nil {
		return err
	}
	copy(l.img.Pix, pix)
	return nil
}

func (l *Layer) save() []byte {
	return append([]byte(nil), l.img.Pix...)
}

func (l *Layer) load(pix []byte) error {
	if len(pix) != len(l.img.Pix) {
		return fmt.Errorf("raster size mismatch: %d != %d", len(pix), len(l.img.Pix))
	}
	copy(l.img.Pix, pix)
	return nil
}

// Stroke draws the polyline with round caps and joins.
func (l *Layer) Stroke(pts []Point, closed bool, width float64, c color.Color) {
	mask, r := rasterize(strokePolygons(pts, closed, width/2))
	if mask == nil {
		return
	}
	draw.DrawMask(l.img, r, image.NewUniform(c), image.Point{}, mask, image.Point{}, draw.Over)
}

// Erase clears the pixels under the polyline to transparent.
func (l *Layer) Erase(pts []Point, width float64) {
	mask, r := rasterize(strokePolygons(pts, false, width/2))
	if mask == nil {
		return
	}
	area := r.Intersect(l.img.Bounds())
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			a := mask.AlphaAt(x-r.Min.X, y-r.Min.Y).A
			if a == 0 {
				continue
			}
			keep := uint32(0xff - a)
			i := l.img.PixOffset(x, y)
			px := l.img.Pix[i : i+4 : i+4]
			for k := range px {
				px[k] = uint8(uint32(px[k]) * keep / 0xff)
			}
		}
	}
}

// FillDisc fills a circle.
func (l *Layer) FillDisc(center Point, radius float64, c color.Color) {
	mask, r := rasterize([][]Point{disc(center, radius)})
	if mask == nil {
		return
	}
	draw.DrawMask(l.img, r, image.NewUniform(c), image.Point{}, mask, image.Point{}, draw.Over)
}

// Dot paints the single pixel containing p.
func (l *Layer) Dot(p Point, c color.Color) {
	x, y := int(math.Floor(p.X)), int(math.Floor(p.Y))
	draw.Draw(l.img, image.Rect(x, y, x+1, y+1), image.NewUniform(c), image.Point{}, draw.Over)
}

// strokePolygons covers a polyline of half-width r with a disc at every
// vertex and a quad along every edge. All polygons share one winding so
// that overlaps add up instead of cancelling out.
func strokePolygons(pts []Point, closed bool, r float64) [][]Point {
	if len(pts) == 0 || r <= 0 {
		return nil
	}
	polys := make([][]Point, 0, 2*len(pts))
	for _, p := range pts {
		polys = append(polys, disc(p, r))
	}
	edges := len(pts) - 1
	if closed && len(pts) > 2 {
		edges = len(pts)
	}
	for i := 0; i < edges; i++ {
		a, b := pts[i], pts[(i+1)%len(pts)]
		if q, ok := quad(a, b, r); ok {
			polys = append(polys, q)
		}
	}
	return polys
}

func disc(c Point, r float64) []Point {
	n := int(math.Ceil(math.Pi * r))
	n = max(8, min(n, 128))
	pts := make([]Point, n)
	for i := range pts {
		theta := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = Point{X: c.X + r*math.Cos(theta), Y: c.Y + r*math.Sin(theta)}
	}
	return pts
}

func quad(a, b Point, r float64) ([]Point, bool) {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return nil, false
	}
	nx, ny := -dy/length*r, dx/length*r
	return []Point{
		{X: a.X + nx, Y: a.Y + ny},
		{X: a.X - nx, Y: a.Y - ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: b.X + nx, Y: b.Y + ny},
	}, true
}

// rasterize returns the coverage mask of the union of the polygons and the
// canvas rectangle the mask origin maps to.
func rasterize(polys [][]Point) (*image.Alpha, image.Rectangle) {
	if len(polys) == 0 {
		return nil, image.Rectangle{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, poly := range polys {
		for _, p := range poly {
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
	}
	r := image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX)), int(math.Ceil(maxY)),
	)
	if r.Empty() {
		return nil, image.Rectangle{}
	}

	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	z := vector.NewRasterizer(r.Dx(), r.Dy())
	for _, poly := range polys {
		z.MoveTo(float32(poly[0].X-ox), float32(poly[0].Y-oy))
		for _, p := range poly[1:] {
			z.LineTo(float32(p.X-ox), float32(p.Y-oy))
		}
		z.ClosePath()
	}
	mask := image.NewAlpha(image.Rect(0, 0, r.Dx(), r.Dy()))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask, r
}

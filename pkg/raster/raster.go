// Package raster converts normalized annotation shapes into filled label
// regions on a canvas matching the source frame's pixel dimensions, and
// composites the per-shape fills of one frame into a single mask.
//
// The canvas coordinate system is the image's own: origin top-left,
// x = column, y = row, with pixel centers at (x+0.5, y+0.5). Polygon
// interiors follow the even-odd rule evaluated against pixel centers along
// horizontal scanlines, so self-intersecting polygons may produce holes.
package raster

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/afmlab/maskgen/pkg/annotation"
	"github.com/afmlab/maskgen/pkg/types"
)

// Foreground is the label value used for binary masks.
const Foreground uint8 = 255

// Canvas is a single-channel label grid. Zero is background.
type Canvas struct {
	W   int
	H   int
	Pix []uint8 // row-major, len W*H
}

// NewCanvas returns an all-background canvas of the given dimensions.
func NewCanvas(w, h int) *Canvas {
	return &Canvas{W: w, H: h, Pix: make([]uint8, w*h)}
}

// At returns the label at (x, y). Out-of-bounds positions read as background.
func (c *Canvas) At(x, y int) uint8 {
	if x < 0 || x >= c.W || y < 0 || y >= c.H {
		return 0
	}
	return c.Pix[y*c.W+x]
}

// Gray wraps the canvas as an 8-bit grayscale image sharing the same pixel
// buffer.
func (c *Canvas) Gray() *image.Gray {
	return &image.Gray{Pix: c.Pix, Stride: c.W, Rect: image.Rect(0, 0, c.W, c.H)}
}

// Foreground counts the non-background pixels.
func (c *Canvas) Foreground() int {
	n := 0
	for _, v := range c.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Labels counts the distinct non-background label values present.
func (c *Canvas) Labels() int {
	var seen [256]bool
	n := 0
	for _, v := range c.Pix {
		if v != 0 && !seen[v] {
			seen[v] = true
			n++
		}
	}
	return n
}

// Fill rasterizes one shape onto the canvas with the given label value,
// overwriting whatever labels the covered pixels held before. The fill is
// clipped to the canvas bounds. Returns the number of pixels written and,
// for degenerate or entirely out-of-bounds shapes, a warning; neither case
// is an error.
func (c *Canvas) Fill(s annotation.Shape, value uint8) (int, *types.Warning) {
	switch s.Kind {
	case annotation.Polygon:
		if len(s.Points) < 3 {
			return 0, warnf(types.WarnDegenerateShape, "polygon has %d vertices, need at least 3", len(s.Points))
		}
		if out, ok := c.outOfBounds(polygonBounds(s.Points)); out {
			return 0, ok
		}
		if n := c.fillPolygon(s.Points, value); n > 0 {
			return n, nil
		}
		return 0, warnf(types.WarnDegenerateShape, "polygon covers no pixel centers")
	case annotation.Circle:
		if s.Radius <= 0 {
			return 0, warnf(types.WarnDegenerateShape, "circle has radius %g", s.Radius)
		}
		b := bounds{s.Center.X - s.Radius, s.Center.Y - s.Radius, s.Center.X + s.Radius, s.Center.Y + s.Radius}
		if out, ok := c.outOfBounds(b); out {
			return 0, ok
		}
		if n := c.fillCircle(s.Center.X, s.Center.Y, s.Radius, value); n > 0 {
			return n, nil
		}
		return 0, warnf(types.WarnDegenerateShape, "circle covers no pixel centers")
	case annotation.Rectangle:
		if s.Max.X < s.Min.X || s.Max.Y < s.Min.Y {
			return 0, warnf(types.WarnDegenerateShape, "rectangle corners are inverted")
		}
		if out, ok := c.outOfBounds(bounds{s.Min.X, s.Min.Y, s.Max.X, s.Max.Y}); out {
			return 0, ok
		}
		if n := c.fillRectangle(s.Min, s.Max, value); n > 0 {
			return n, nil
		}
		return 0, warnf(types.WarnDegenerateShape, "rectangle contains no pixels")
	default:
		return 0, warnf(types.WarnUnknownShapeType, "cannot rasterize shape kind %q", s.Kind)
	}
}

type bounds struct {
	minX, minY, maxX, maxY float64
}

func polygonBounds(pts []annotation.Point) bounds {
	b := bounds{pts[0].X, pts[0].Y, pts[0].X, pts[0].Y}
	for _, p := range pts[1:] {
		b.minX = math.Min(b.minX, p.X)
		b.minY = math.Min(b.minY, p.Y)
		b.maxX = math.Max(b.maxX, p.X)
		b.maxY = math.Max(b.maxY, p.Y)
	}
	return b
}

// outOfBounds reports whether the shape's bounding box misses the canvas
// entirely. Such a shape contributes nothing and is logged, not rejected.
// The lower bounds compare with >= so a box starting exactly on the far
// edge (for example minY == H) counts as outside: no pixel lies at or
// beyond that edge.
func (c *Canvas) outOfBounds(b bounds) (bool, *types.Warning) {
	if b.maxX < 0 || b.maxY < 0 || b.minX >= float64(c.W) || b.minY >= float64(c.H) {
		return true, warnf(types.WarnOutOfBoundsShape,
			"shape bounds [%g,%g]x[%g,%g] fall entirely outside %dx%d frame",
			b.minX, b.maxX, b.minY, b.maxY, c.W, c.H)
	}
	return false, nil
}

// fillPolygon fills the even-odd interior of the polygon. For each scanline
// through the pixel centers of row y it collects the crossings of the
// polygon edges and fills between alternate pairs.
func (c *Canvas) fillPolygon(pts []annotation.Point, value uint8) int {
	b := polygonBounds(pts)
	y0 := clampInt(int(math.Ceil(b.minY-0.5)), 0, c.H-1)
	y1 := clampInt(int(math.Floor(b.maxY-0.5)), 0, c.H-1)

	n := 0
	xs := make([]float64, 0, 8)
	for y := y0; y <= y1; y++ {
		cy := float64(y) + 0.5
		xs = xs[:0]
		for i := range pts {
			a := pts[i]
			b := pts[(i+1)%len(pts)]
			// Half-open crossing test so a vertex exactly on the scanline is
			// counted for exactly one of its two edges.
			if (a.Y <= cy) == (b.Y <= cy) {
				continue
			}
			t := (cy - a.Y) / (b.Y - a.Y)
			xs = append(xs, a.X+t*(b.X-a.X))
		}
		sort.Float64s(xs)
		for k := 0; k+1 < len(xs); k += 2 {
			// Pixel center x+0.5 lies in [xs[k], xs[k+1]).
			n += c.setSpan(int(math.Ceil(xs[k]-0.5)), int(math.Ceil(xs[k+1]-0.5))-1, y, value)
		}
	}
	return n
}

// fillCircle fills every pixel whose center lies within radius r of (cx, cy),
// boundary inclusive.
func (c *Canvas) fillCircle(cx, cy, r float64, value uint8) int {
	y0 := clampInt(int(math.Ceil(cy-r-0.5)), 0, c.H-1)
	y1 := clampInt(int(math.Floor(cy+r-0.5)), 0, c.H-1)

	n := 0
	for y := y0; y <= y1; y++ {
		dy := float64(y) + 0.5 - cy
		d := r*r - dy*dy
		if d < 0 {
			continue
		}
		half := math.Sqrt(d)
		n += c.setSpan(int(math.Ceil(cx-half-0.5)), int(math.Floor(cx+half-0.5)), y, value)
	}
	return n
}

// fillRectangle fills the inclusive [min.X, max.X] x [min.Y, max.Y] pixel
// range. The row range is computed before clamping: a rectangle whose
// integer rows all lie off-canvas fills nothing, it must not be pulled
// back onto the edge row.
func (c *Canvas) fillRectangle(min, max annotation.Point, value uint8) int {
	y0 := int(math.Ceil(min.Y))
	y1 := int(math.Floor(max.Y))
	if y0 >= c.H || y1 < 0 || y0 > y1 {
		return 0
	}
	y0 = clampInt(y0, 0, c.H-1)
	y1 = clampInt(y1, 0, c.H-1)

	n := 0
	for y := y0; y <= y1; y++ {
		n += c.setSpan(int(math.Ceil(min.X)), int(math.Floor(max.X)), y, value)
	}
	return n
}

// setSpan writes value to pixels [x0, x1] of row y, clipped to the canvas.
// Returns the number of pixels written.
func (c *Canvas) setSpan(x0, x1, y int, value uint8) int {
	if y < 0 || y >= c.H || x1 < 0 || x0 >= c.W {
		return 0
	}
	x0 = clampInt(x0, 0, c.W-1)
	x1 = clampInt(x1, 0, c.W-1)
	if x1 < x0 {
		return 0
	}
	row := c.Pix[y*c.W : y*c.W+c.W]
	for x := x0; x <= x1; x++ {
		row[x] = value
	}
	return x1 - x0 + 1
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func warnf(kind types.WarningKind, format string, args ...interface{}) *types.Warning {
	return &types.Warning{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

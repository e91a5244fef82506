package raster

import (
	"math"
	"testing"

	"github.com/afmlab/maskgen/pkg/annotation"
	"github.com/afmlab/maskgen/pkg/types"
)

func polygon(pts ...[2]float64) annotation.Shape {
	s := annotation.Shape{Kind: annotation.Polygon}
	for _, p := range pts {
		s.Points = append(s.Points, annotation.Point{X: p[0], Y: p[1]})
	}
	return s
}

func circle(cx, cy, r float64) annotation.Shape {
	return annotation.Shape{Kind: annotation.Circle, Center: annotation.Point{X: cx, Y: cy}, Radius: r}
}

func rectangle(x0, y0, x1, y1 float64) annotation.Shape {
	return annotation.Shape{
		Kind: annotation.Rectangle,
		Min:  annotation.Point{X: x0, Y: y0},
		Max:  annotation.Point{X: x1, Y: y1},
	}
}

func TestFillRectangleInclusive(t *testing.T) {
	c := NewCanvas(100, 100)
	n, warn := c.Fill(rectangle(10, 10, 30, 30), Foreground)
	if warn != nil {
		t.Fatalf("unexpected warning: %v", warn)
	}

	// [10,30] x [10,30] inclusive = 21*21 pixels
	if n != 441 {
		t.Errorf("expected 441 filled pixels, got %d", n)
	}
	if c.At(10, 10) != Foreground || c.At(30, 30) != Foreground {
		t.Error("inclusive corners must be foreground")
	}
	if c.At(9, 10) != 0 || c.At(31, 30) != 0 || c.At(10, 31) != 0 {
		t.Error("pixels outside the rectangle must be background")
	}
}

func TestFillCircleMatchesPixelCenterDistance(t *testing.T) {
	c := NewCanvas(100, 100)
	cx, cy, r := 70.0, 70.0, 10.0
	if _, warn := c.Fill(circle(cx, cy, r), Foreground); warn != nil {
		t.Fatalf("unexpected warning: %v", warn)
	}

	// Foreground iff Euclidean distance from the pixel center to the circle
	// center is <= r; verify against the definition pixel by pixel.
	want := 0
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			inside := dx*dx+dy*dy <= r*r
			if inside {
				want++
			}
			got := c.At(x, y) == Foreground
			if got != inside {
				t.Fatalf("pixel (%d,%d): got foreground=%v, want %v", x, y, got, inside)
			}
		}
	}
	if got := c.Foreground(); got != want {
		t.Errorf("foreground count %d, want %d", got, want)
	}
	// sanity: area must be in the ballpark of pi*r^2
	if f := float64(c.Foreground()); math.Abs(f-math.Pi*r*r) > 20 {
		t.Errorf("circle area %f too far from %f", f, math.Pi*r*r)
	}
}

func TestFillPolygonContainment(t *testing.T) {
	c := NewCanvas(50, 50)
	// Simple convex quad well inside the canvas.
	if _, warn := c.Fill(polygon([2]float64{10, 10}, [2]float64{40, 10}, [2]float64{40, 40}, [2]float64{10, 40}), Foreground); warn != nil {
		t.Fatalf("unexpected warning: %v", warn)
	}

	if c.At(25, 25) != Foreground {
		t.Error("interior pixel must be foreground")
	}
	if c.At(5, 25) != 0 || c.At(45, 25) != 0 {
		t.Error("exterior pixels must be background")
	}
}

func TestFillPolygonEvenOddHole(t *testing.T) {
	c := NewCanvas(40, 20)
	// Self-intersecting bowtie: two triangles joined at (20,10). Pixel
	// centers inside either lobe are foreground under the even-odd rule.
	n, warn := c.Fill(polygon([2]float64{2, 2}, [2]float64{38, 18}, [2]float64{38, 2}, [2]float64{2, 18}), Foreground)
	if warn != nil {
		t.Fatalf("unexpected warning: %v", warn)
	}
	if n == 0 {
		t.Fatal("bowtie polygon should fill its lobes")
	}
	if c.At(5, 10) != Foreground || c.At(35, 10) != Foreground {
		t.Error("lobe interiors must be foreground")
	}
	// The crossing point itself has zero width; nearby top/bottom center
	// columns are outside both lobes.
	if c.At(20, 2) != 0 || c.At(20, 17) != 0 {
		t.Error("pixels outside both lobes must be background")
	}
}

func TestFillClipsPartialShapes(t *testing.T) {
	c := NewCanvas(20, 20)
	n, warn := c.Fill(rectangle(-10, -10, 5, 5), Foreground)
	if warn != nil {
		t.Fatalf("straddling shape should be clipped, not warned: %v", warn)
	}

	// only the in-bounds [0,5]x[0,5] portion contributes
	if n != 36 {
		t.Errorf("expected 36 in-bounds pixels, got %d", n)
	}
	if c.At(0, 0) != Foreground || c.At(5, 5) != Foreground {
		t.Error("in-bounds portion must be filled")
	}
}

func TestFillRectangleBeyondBottomEdge(t *testing.T) {
	c := NewCanvas(100, 100)

	// entirely below the frame, starting exactly on the far edge
	n, warn := c.Fill(rectangle(10, 100, 20, 105), Foreground)
	if n != 0 {
		t.Errorf("below-frame rectangle filled %d pixels", n)
	}
	if warn == nil || warn.Kind != types.WarnOutOfBoundsShape {
		t.Errorf("expected out-of-bounds warning, got %v", warn)
	}

	// fractional ymin past the last row: no integer row lies in [99.5, 105]
	n, warn = c.Fill(rectangle(10, 99.5, 20, 105), Foreground)
	if n != 0 {
		t.Errorf("rectangle with no in-frame rows filled %d pixels", n)
	}
	if warn == nil {
		t.Error("empty fill must carry a warning")
	}

	if c.Foreground() != 0 {
		t.Error("canvas must stay background")
	}
}

func TestFillEdgeSliverIsOutOfBounds(t *testing.T) {
	c := NewCanvas(100, 100)

	// bounding boxes starting exactly on the far edges
	cases := []annotation.Shape{
		circle(50, 110, 10),        // cy - r == H
		rectangle(100, 10, 105, 20), // xmin == W
	}
	for i, s := range cases {
		n, warn := c.Fill(s, Foreground)
		if n != 0 {
			t.Errorf("case %d: edge shape filled %d pixels", i, n)
		}
		if warn == nil || warn.Kind != types.WarnOutOfBoundsShape {
			t.Errorf("case %d: expected out-of-bounds warning, got %v", i, warn)
		}
	}
}

func TestFillOutOfBoundsShape(t *testing.T) {
	c := NewCanvas(20, 20)
	n, warn := c.Fill(rectangle(100, 100, 120, 120), Foreground)
	if n != 0 {
		t.Errorf("out-of-bounds shape filled %d pixels", n)
	}
	if warn == nil || warn.Kind != types.WarnOutOfBoundsShape {
		t.Fatalf("expected out-of-bounds warning, got %v", warn)
	}
	if c.Foreground() != 0 {
		t.Error("canvas must stay background")
	}
}

func TestFillDegenerateShapes(t *testing.T) {
	c := NewCanvas(20, 20)

	cases := []annotation.Shape{
		polygon([2]float64{5, 5}, [2]float64{10, 10}),             // two vertices
		polygon([2]float64{5, 5}, [2]float64{10, 5}, [2]float64{15, 5}), // collinear, zero area
		circle(10, 10, 0),
		circle(10, 10, -3),
		rectangle(15, 15, 5, 5), // inverted corners
	}
	for i, s := range cases {
		n, warn := c.Fill(s, Foreground)
		if n != 0 {
			t.Errorf("case %d: degenerate shape filled %d pixels", i, n)
		}
		if warn == nil || warn.Kind != types.WarnDegenerateShape {
			t.Errorf("case %d: expected degenerate warning, got %v", i, warn)
		}
	}
	if c.Foreground() != 0 {
		t.Error("canvas must stay background after degenerate fills")
	}
}

func TestCanvasGraySharesPixels(t *testing.T) {
	c := NewCanvas(8, 4)
	c.Fill(rectangle(1, 1, 2, 2), Foreground)

	gray := c.Gray()
	if gray.Bounds().Dx() != 8 || gray.Bounds().Dy() != 4 {
		t.Errorf("gray bounds %v do not match canvas", gray.Bounds())
	}
	if gray.GrayAt(1, 1).Y != 255 || gray.GrayAt(0, 0).Y != 0 {
		t.Error("gray view must reflect canvas labels")
	}
}

func BenchmarkFillPolygon(b *testing.B) {
	c := NewCanvas(512, 512)
	s := polygon([2]float64{50, 50}, [2]float64{450, 80}, [2]float64{400, 460}, [2]float64{60, 400})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Fill(s, Foreground)
	}
}

// Package overlay renders visual sanity-check composites: the raw frame
// darkened under a red tint wherever the mask marks a cell, with the
// annotated shape outlines stroked on top.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/llgcode/draw2d/draw2dimg"

	"github.com/afmlab/maskgen/internal/utils"
	"github.com/afmlab/maskgen/pkg/annotation"
)

var outlineColor = color.RGBA{255, 0, 0, 255}

// OverlayPath derives the canonical overlay filename for a frame key.
func OverlayPath(dir, key, suffix string) string {
	return filepath.Join(dir, key+suffix+".png")
}

// Render composites frame, mask, and shape outlines into one image. Masked
// pixels keep half their original intensity with the red channel saturated,
// the same tint the annotation review sessions used.
func Render(frameImg image.Image, mask *image.Gray, shapes []annotation.Shape, strokeWidth float64) *image.RGBA {
	bounds := frameImg.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), frameImg, bounds.Min, draw.Src)

	w, h := canvas.Bounds().Dx(), canvas.Bounds().Dy()
	for y := 0; y < h && y < mask.Bounds().Dy(); y++ {
		for x := 0; x < w && x < mask.Bounds().Dx(); x++ {
			if mask.GrayAt(x, y).Y == 0 {
				continue
			}
			i := canvas.PixOffset(x, y)
			canvas.Pix[i] = 255
			canvas.Pix[i+1] /= 2
			canvas.Pix[i+2] /= 2
		}
	}

	if strokeWidth > 0 && len(shapes) > 0 {
		strokeShapes(canvas, shapes, strokeWidth)
	}
	return canvas
}

// strokeShapes draws the annotated geometry outlines.
func strokeShapes(canvas *image.RGBA, shapes []annotation.Shape, width float64) {
	gc := draw2dimg.NewGraphicContext(canvas)
	gc.SetStrokeColor(outlineColor)
	gc.SetLineWidth(width)

	for _, s := range shapes {
		switch s.Kind {
		case annotation.Polygon:
			if len(s.Points) < 2 {
				continue
			}
			gc.BeginPath()
			gc.MoveTo(s.Points[0].X, s.Points[0].Y)
			for _, p := range s.Points[1:] {
				gc.LineTo(p.X, p.Y)
			}
			gc.Close()
			gc.Stroke()
		case annotation.Rectangle:
			gc.BeginPath()
			gc.MoveTo(s.Min.X, s.Min.Y)
			gc.LineTo(s.Max.X, s.Min.Y)
			gc.LineTo(s.Max.X, s.Max.Y)
			gc.LineTo(s.Min.X, s.Max.Y)
			gc.Close()
			gc.Stroke()
		case annotation.Circle:
			if s.Radius <= 0 {
				continue
			}
			gc.BeginPath()
			gc.ArcTo(s.Center.X, s.Center.Y, s.Radius, s.Radius, 0, 2*math.Pi)
			gc.Close()
			gc.Stroke()
		}
	}
}

// Save writes the overlay image, creating any missing parent directory.
func Save(img image.Image, path string) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create overlay directory: %w", err)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save overlay: %w", err)
	}
	return nil
}

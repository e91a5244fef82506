package raster

import (
	"github.com/afmlab/maskgen/pkg/annotation"
	"github.com/afmlab/maskgen/pkg/types"
)

// Composite merges all shapes of one frame into a single binary mask of the
// given dimensions: the union of the shape fills, 255 foreground on 0
// background. Overlapping shapes simply merge; the result is independent of
// input order. Warnings from individual shapes are collected, never raised.
func Composite(w, h int, shapes []annotation.Shape) (*Canvas, []types.Warning) {
	canvas := NewCanvas(w, h)
	var warnings []types.Warning
	for _, s := range shapes {
		if _, warn := canvas.Fill(s, Foreground); warn != nil {
			warnings = append(warnings, *warn)
		}
	}
	return canvas, warnings
}

// CompositeInstances merges all shapes of one frame into a labeled
// multi-instance mask. Each shape stamps its 1-based input-order index (or
// its explicit instance label, when set) over its fill; where two shapes
// overlap the later shape in input order wins. This overwrite tie-break is
// the one place the composite depends on authoring order.
func CompositeInstances(w, h int, shapes []annotation.Shape) (*Canvas, []types.Warning) {
	canvas := NewCanvas(w, h)
	var warnings []types.Warning
	for i, s := range shapes {
		label := s.Label
		if label <= 0 {
			label = i + 1
		}
		if label > 255 {
			// 8-bit canvas; frames carry a handful of cells in practice.
			label = 255
		}
		if _, warn := canvas.Fill(s, uint8(label)); warn != nil {
			warnings = append(warnings, *warn)
		}
	}
	return canvas, warnings
}

package annotation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/afmlab/maskgen/pkg/types"
)

func TestParseBareArray(t *testing.T) {
	data := []byte(`[
		{"type": "polygon", "points": [[10, 10], [40, 10], [25, 35]]},
		{"type": "circle", "center": [70, 70], "radius": 10},
		{"type": "rectangle", "bbox": [5, 5, 20, 30], "label": 3}
	]`)

	shapes, warnings, err := Parse(data, 100, 100)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(shapes) != 3 {
		t.Fatalf("expected 3 shapes, got %d", len(shapes))
	}

	if shapes[0].Kind != Polygon || len(shapes[0].Points) != 3 {
		t.Errorf("shape 0: got %v", shapes[0])
	}
	if shapes[1].Kind != Circle || shapes[1].Center.X != 70 || shapes[1].Radius != 10 {
		t.Errorf("shape 1: got %v", shapes[1])
	}
	if shapes[2].Kind != Rectangle || shapes[2].Label != 3 {
		t.Errorf("shape 2: got %v", shapes[2])
	}
}

func TestParsePreservesInputOrder(t *testing.T) {
	data := []byte(`[
		{"type": "rectangle", "bbox": [0, 0, 1, 1]},
		{"type": "rectangle", "bbox": [2, 2, 3, 3]},
		{"type": "rectangle", "bbox": [4, 4, 5, 5]}
	]`)
	shapes, _, err := Parse(data, 10, 10)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	for i, s := range shapes {
		if s.Min.X != float64(2*i) {
			t.Errorf("shape %d out of order: min.x=%g", i, s.Min.X)
		}
	}
}

func TestParseNormalizedHeuristic(t *testing.T) {
	// All coordinates <= 1.0: treated as normalized and scaled by the frame
	// dimensions (x by width, y by height).
	data := []byte(`[
		{"type": "polygon", "points": [[0.1, 0.2], [0.9, 0.2], [0.5, 0.8]]}
	]`)
	shapes, _, err := Parse(data, 200, 100)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	p := shapes[0].Points
	if p[0].X != 20 || p[0].Y != 20 {
		t.Errorf("vertex 0 scaled to (%g,%g), want (20,20)", p[0].X, p[0].Y)
	}
	if p[1].X != 180 || p[2].Y != 80 {
		t.Errorf("vertices scaled to (%g,_),(_,%g), want (180,_),(_,80)", p[1].X, p[2].Y)
	}
}

func TestParseExplicitConventionWins(t *testing.T) {
	// All coordinates <= 1.0 but declared pixel space: a tiny shape in the
	// top-left corner must not be blown up by the heuristic.
	data := []byte(`{
		"coordinates": "pixel",
		"shapes": [{"type": "rectangle", "bbox": [0.0, 0.0, 1.0, 1.0]}]
	}`)
	shapes, _, err := Parse(data, 200, 100)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if shapes[0].Max.X != 1.0 {
		t.Errorf("pixel-space bbox was rescaled: max.x=%g", shapes[0].Max.X)
	}

	data = []byte(`{
		"coordinates": "normalized",
		"shapes": [{"type": "circle", "center": [0.5, 0.5], "radius": 0.1}]
	}`)
	shapes, _, err = Parse(data, 200, 100)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if shapes[0].Center.X != 100 || shapes[0].Center.Y != 50 {
		t.Errorf("center scaled to (%g,%g), want (100,50)", shapes[0].Center.X, shapes[0].Center.Y)
	}
	// radius scales by the smaller frame side
	if shapes[0].Radius != 10 {
		t.Errorf("radius scaled to %g, want 10", shapes[0].Radius)
	}
}

func TestParseUnknownShapeTypeSkipped(t *testing.T) {
	data := []byte(`[
		{"type": "spline", "points": [[1, 1], [2, 2]]},
		{"type": "rectangle", "bbox": [5, 5, 10, 10]}
	]`)
	shapes, warnings, err := Parse(data, 100, 100)
	if err != nil {
		t.Fatalf("unknown type must not be fatal: %v", err)
	}
	if len(shapes) != 1 || shapes[0].Kind != Rectangle {
		t.Fatalf("expected the rectangle to survive, got %v", shapes)
	}
	if len(warnings) != 1 || warnings[0].Kind != types.WarnUnknownShapeType {
		t.Errorf("expected one unknown-type warning, got %v", warnings)
	}
}

func TestParseMalformed(t *testing.T) {
	cases := [][]byte{
		[]byte(`{not json`),
		[]byte(`{"coordinates": "pixel"}`),                       // no shapes field
		[]byte(`[{"type": "polygon"}]`),                          // missing points
		[]byte(`[{"type": "circle", "radius": 5}]`),              // missing center
		[]byte(`[{"type": "rectangle", "bbox": [1, 2, 3]}]`),     // short bbox
		[]byte(`[{"type": "polygon", "points": [[1], [2, 2]]}]`), // bad vertex
	}
	for i, data := range cases {
		if _, _, err := Parse(data, 100, 100); err == nil {
			t.Errorf("case %d: expected error for %s", i, data)
		}
	}
}

func TestParseFileMissingIsNotError(t *testing.T) {
	shapes, warnings, err := ParseFile(filepath.Join(t.TempDir(), "nope.json"), 100, 100)
	if err != nil {
		t.Fatalf("missing annotation must not be an error: %v", err)
	}
	if len(shapes) != 0 {
		t.Errorf("expected empty shape list, got %d", len(shapes))
	}
	if len(warnings) != 1 || warnings[0].Kind != types.WarnMissingAnnotation {
		t.Errorf("expected missing-annotation warning, got %v", warnings)
	}
}

func TestIsNormalized(t *testing.T) {
	norm := []Shape{{Kind: Polygon, Points: []Point{{0.1, 0.2}, {0.9, 0.8}, {0.5, 0.5}}}}
	if !IsNormalized(norm) {
		t.Error("all-in-[0,1] shapes must be detected as normalized")
	}

	pixel := []Shape{{Kind: Polygon, Points: []Point{{0.5, 0.5}, {12, 30}, {40, 2}}}}
	if IsNormalized(pixel) {
		t.Error("coordinates above 1.0 must be detected as pixel space")
	}

	if IsNormalized(nil) {
		t.Error("empty shape list must not be treated as normalized")
	}
}

func TestParseLegacyFile(t *testing.T) {
	doc := `{
		"('03', '0001')": {"selection": "manual", "clickData": [[[10, 10], [50, 10], [30, 40]]]},
		"('01', '0000')": {"selection": "manual", "clickData": [[[1, 1], [5, 1], [3, 4]], [[8, 8], [12, 8], [10, 12]]]},
		"('02', '0004')": {"selection": "exclude"},
		"not a tuple key": {"selection": "manual"},
		"('04', '0002')": true
	}`
	path := filepath.Join(t.TempDir(), "DN1-rapid_im_annotations.json")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	entries, err := ParseLegacyFile(path)
	if err != nil {
		t.Fatalf("ParseLegacyFile failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 tuple entries, got %d", len(entries))
	}

	// sorted by (cell, meas)
	if entries[0].Cell != 1 || entries[1].Cell != 2 || entries[2].Cell != 3 {
		t.Errorf("entries not sorted: %v", entries)
	}
	if !entries[0].Manual || entries[1].Manual || !entries[2].Manual {
		t.Error("manual flags wrong")
	}
	if len(entries[0].Shapes) != 2 {
		t.Errorf("expected 2 contours for cell 1, got %d", len(entries[0].Shapes))
	}
	if entries[0].Shapes[0].Kind != Polygon {
		t.Error("contours must become polygons")
	}
	if got := entries[2].FrameStem(); got != "cell03meas0001" {
		t.Errorf("FrameStem = %q, want cell03meas0001", got)
	}
}

func TestLegacyStem(t *testing.T) {
	if got := LegacyStem(7, 12); got != "cell07meas0012" {
		t.Errorf("LegacyStem = %q", got)
	}
}

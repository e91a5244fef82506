// Package annotation loads per-frame JSON annotation documents and yields
// normalized shape geometries in image pixel coordinates.
//
// Two document forms are accepted: a bare top-level array of shape objects,
// or an object wrapping the array together with an explicit coordinate
// convention:
//
//	{"coordinates": "pixel", "shapes": [...]}
//
// Each shape object carries a "type" discriminator (polygon, circle/point,
// rectangle) plus type-specific coordinate fields and an optional integer
// instance label.
package annotation

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/afmlab/maskgen/pkg/types"
)

// Kind identifies a shape variant. The variant set is closed and small, so
// shapes are a tagged union with one rasterization case per variant rather
// than an interface hierarchy.
type Kind string

const (
	Polygon   Kind = "polygon"
	Circle    Kind = "circle"
	Rectangle Kind = "rectangle"
)

// Coordinate conventions accepted in the document "coordinates" field.
const (
	CoordsPixel      = "pixel"
	CoordsNormalized = "normalized"
)

// Point is one (x, y) position. X is the column, Y the row, origin top-left.
type Point struct {
	X float64
	Y float64
}

// Shape is a single annotated region in image pixel coordinates.
type Shape struct {
	Kind   Kind
	Points []Point // polygon vertices, input order preserved
	Center Point   // circle center
	Radius float64 // circle radius
	Min    Point   // rectangle corner (x_min, y_min)
	Max    Point   // rectangle corner (x_max, y_max)
	Label  int     // optional instance label, 0 = unset
}

// shapeRecord is the wire form of one shape object.
type shapeRecord struct {
	Type   string      `json:"type"`
	Points [][]float64 `json:"points,omitempty"`
	Center []float64   `json:"center,omitempty"`
	Radius float64     `json:"radius,omitempty"`
	BBox   []float64   `json:"bbox,omitempty"`
	Label  int         `json:"label,omitempty"`
}

// document is the wrapped wire form with an explicit coordinate convention.
type document struct {
	Coordinates string        `json:"coordinates,omitempty"`
	Shapes      []shapeRecord `json:"shapes"`
}

// ParseFile loads and parses the annotation document at path for a frame of
// the given pixel dimensions. A missing file is not an error: it yields an
// empty shape sequence plus a missing-annotation warning, which produces a
// valid all-background mask downstream.
func ParseFile(path string, width, height int) ([]Shape, []types.Warning, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		w := types.Warning{Kind: types.WarnMissingAnnotation, Message: fmt.Sprintf("no annotation file at %s", path)}
		return nil, []types.Warning{w}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read annotation file: %w", err)
	}
	return Parse(data, width, height)
}

// Parse parses an annotation document and returns shapes scaled to pixel
// space for a frame of the given dimensions. Unsupported shape types are
// skipped with a warning; unparsable JSON or missing required coordinate
// fields are an error.
func Parse(data []byte, width, height int) ([]Shape, []types.Warning, error) {
	records, convention, err := decodeDocument(data)
	if err != nil {
		return nil, nil, err
	}

	shapes := make([]Shape, 0, len(records))
	var warnings []types.Warning
	for i, rec := range records {
		s, err := convertRecord(rec)
		if err != nil {
			if err == errUnknownType {
				warnings = append(warnings, types.Warning{
					Kind:    types.WarnUnknownShapeType,
					Message: fmt.Sprintf("shape %d: unsupported type %q", i, rec.Type),
				})
				continue
			}
			return nil, nil, fmt.Errorf("shape %d: %w", i, err)
		}
		shapes = append(shapes, s)
	}

	switch convention {
	case CoordsPixel:
		// already pixel space
	case CoordsNormalized:
		scaleToPixels(shapes, width, height)
	default:
		if IsNormalized(shapes) {
			scaleToPixels(shapes, width, height)
		}
	}
	return shapes, warnings, nil
}

// errUnknownType marks a shape record with an unsupported type discriminator.
var errUnknownType = fmt.Errorf("unknown shape type")

func decodeDocument(data []byte) ([]shapeRecord, string, error) {
	var records []shapeRecord
	if err := json.Unmarshal(data, &records); err == nil {
		return records, "", nil
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, "", fmt.Errorf("failed to parse annotation JSON: %w", err)
	}
	if doc.Shapes == nil {
		return nil, "", fmt.Errorf("annotation document has no shapes field")
	}
	if doc.Coordinates != "" && doc.Coordinates != CoordsPixel && doc.Coordinates != CoordsNormalized {
		return nil, "", fmt.Errorf("invalid coordinates convention %q", doc.Coordinates)
	}
	return doc.Shapes, doc.Coordinates, nil
}

func convertRecord(rec shapeRecord) (Shape, error) {
	switch rec.Type {
	case "polygon":
		if rec.Points == nil {
			return Shape{}, fmt.Errorf("polygon missing points field")
		}
		pts := make([]Point, len(rec.Points))
		for i, p := range rec.Points {
			if len(p) != 2 {
				return Shape{}, fmt.Errorf("polygon vertex %d has %d coordinates, want 2", i, len(p))
			}
			pts[i] = Point{X: p[0], Y: p[1]}
		}
		return Shape{Kind: Polygon, Points: pts, Label: rec.Label}, nil
	case "circle", "point":
		if len(rec.Center) != 2 {
			return Shape{}, fmt.Errorf("circle missing center field")
		}
		return Shape{
			Kind:   Circle,
			Center: Point{X: rec.Center[0], Y: rec.Center[1]},
			Radius: rec.Radius,
			Label:  rec.Label,
		}, nil
	case "rectangle":
		if len(rec.BBox) != 4 {
			return Shape{}, fmt.Errorf("rectangle missing bbox field")
		}
		return Shape{
			Kind:  Rectangle,
			Min:   Point{X: rec.BBox[0], Y: rec.BBox[1]},
			Max:   Point{X: rec.BBox[2], Y: rec.BBox[3]},
			Label: rec.Label,
		}, nil
	default:
		return Shape{}, errUnknownType
	}
}

// IsNormalized reports whether every coordinate value in shapes (vertices,
// centers, radii, rectangle corners) lies within [0, 1], in which case the
// document is assumed to use normalized coordinates.
//
// This is the documented fallback heuristic for documents without an explicit
// "coordinates" field. It misfires for shapes legitimately confined to the
// top-left pixel of the image; annotation tools should therefore write the
// explicit field, which always wins.
func IsNormalized(shapes []Shape) bool {
	if len(shapes) == 0 {
		return false
	}
	in01 := func(v float64) bool { return v >= 0 && v <= 1.0 }
	for _, s := range shapes {
		switch s.Kind {
		case Polygon:
			for _, p := range s.Points {
				if !in01(p.X) || !in01(p.Y) {
					return false
				}
			}
		case Circle:
			if !in01(s.Center.X) || !in01(s.Center.Y) || !in01(s.Radius) {
				return false
			}
		case Rectangle:
			if !in01(s.Min.X) || !in01(s.Min.Y) || !in01(s.Max.X) || !in01(s.Max.Y) {
				return false
			}
		}
	}
	return true
}

// scaleToPixels converts normalized [0,1] coordinates to pixel space in
// place. X scales by width, Y by height; circle radii scale by the smaller
// frame side so a normalized circle stays inscribed in the frame.
func scaleToPixels(shapes []Shape, width, height int) {
	fw, fh := float64(width), float64(height)
	rscale := fw
	if fh < fw {
		rscale = fh
	}
	for i := range shapes {
		s := &shapes[i]
		for j := range s.Points {
			s.Points[j].X *= fw
			s.Points[j].Y *= fh
		}
		s.Center.X *= fw
		s.Center.Y *= fh
		s.Radius *= rscale
		s.Min.X *= fw
		s.Min.Y *= fh
		s.Max.X *= fw
		s.Max.Y *= fh
	}
}

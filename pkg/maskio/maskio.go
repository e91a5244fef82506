// Package maskio persists composite masks as lossless single-channel PNG
// files and reads them back for the overlay renderer and summarizer.
//
// Masks are derived, regenerable artifacts owned by the pipeline run: each
// run overwrites them in place, and identical inputs produce byte-identical
// files.
package maskio

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/afmlab/maskgen/internal/utils"
	"github.com/afmlab/maskgen/pkg/raster"
)

// MaskPath derives the canonical mask filename for a frame key:
// <dir>/<key><suffix>.png.
func MaskPath(dir, key, suffix string) string {
	return filepath.Join(dir, key+suffix+".png")
}

// Write encodes the canvas as an 8-bit grayscale PNG at path, creating any
// missing parent directory first. The stdlib PNG encoder keeps the image
// single-channel and is deterministic, so re-running overwrites with
// identical bytes.
func Write(path string, canvas *raster.Canvas) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create mask directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create mask file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, canvas.Gray()); err != nil {
		return fmt.Errorf("failed to encode mask: %w", err)
	}
	return nil
}

// Read loads a mask file back as a grayscale image. Masks written by this
// package decode directly as *image.Gray; anything else is converted.
func Read(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mask file: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mask %s: %w", path, err)
	}
	if gray, ok := img.(*image.Gray); ok {
		return gray, nil
	}

	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}
	return gray, nil
}

// ForegroundCount counts the non-background pixels of a mask image.
func ForegroundCount(mask *image.Gray) int {
	n := 0
	for _, v := range mask.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// InstanceCount counts the distinct non-background labels of a mask image.
// For binary masks this is 1 whenever any cell is present.
func InstanceCount(mask *image.Gray) int {
	var seen [256]bool
	n := 0
	for _, v := range mask.Pix {
		if v != 0 && !seen[v] {
			seen[v] = true
			n++
		}
	}
	return n
}

// PruneStale removes mask files in maskDir whose frame stem is not in the
// allowed set. Stale masks accumulate when annotations are withdrawn between
// runs. Returns the removed filenames.
func PruneStale(maskDir, suffix string, allowed map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(maskDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read mask directory: %w", err)
	}

	var removed []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, suffix+".png") {
			continue
		}
		stem := strings.ToLower(strings.TrimSuffix(name, suffix+".png"))
		if allowed[stem] {
			continue
		}
		path := filepath.Join(maskDir, name)
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("failed to remove stale mask %s: %w", name, err)
		}
		removed = append(removed, name)
	}
	return removed, nil
}

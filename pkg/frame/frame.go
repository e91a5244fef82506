// Package frame reads raw AFM image frames. Frames are immutable pipeline
// inputs; this package only ever opens them for decoding or header
// inspection and never writes them.
package frame

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Load decodes the frame at path. Decoding goes through imaging's registered
// decoders (TIFF, PNG, JPEG, GIF, BMP) with an explicit WebP fallback.
func Load(path string) (image.Image, error) {
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame: %w", err)
	}
	defer f.Close()

	if strings.HasSuffix(strings.ToLower(path), ".webp") {
		if img, err := webp.Decode(f); err == nil {
			return img, nil
		}
		if _, err := f.Seek(0, 0); err != nil {
			return nil, err
		}
	}
	if img, _, err := image.Decode(f); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown format for %s", path)
}

// Dimensions reads the frame's pixel dimensions from the file header without
// decoding the pixel data. Mask canvases are sized from this.
func Dimensions(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open frame: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read frame header of %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

// Stem returns the frame's stable key: the base filename without extension,
// lowercased. Masks, overlays, and annotations are tied to frames by this
// key.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

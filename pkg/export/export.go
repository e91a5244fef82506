// Package export flattens frame+mask pairs across datasets into a single
// training-ready folder, with dataset-prefixed filenames and the _masks
// suffix the downstream segmentation trainer expects.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/afmlab/maskgen/internal/utils"
	"github.com/afmlab/maskgen/pkg/walker"
)

// Result reports what an export run produced.
type Result struct {
	Pairs   int // frame+mask pairs copied
	Missing int // frames with no mask
}

var maskExts = []string{".png", ".tif", ".tiff"}

// Flatten copies every frame with a mask from the given datasets into
// outDir. imageGlob optionally filters frames by base filename (shell glob,
// e.g. "*meas0000.tif"); empty means all TIFF frames.
func Flatten(datasets []walker.Dataset, maskDirName, outDir, imageGlob string) (*Result, error) {
	if err := utils.EnsureDir(outDir); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	res := &Result{}
	for _, d := range datasets {
		maskDir := filepath.Join(d.Dir, maskDirName)
		if !utils.DirExists(maskDir) {
			continue
		}

		entries, err := os.ReadDir(d.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset %s: %w", d.Name, err)
		}
		for _, e := range entries {
			if e.IsDir() || !utils.IsTIFF(e.Name()) {
				continue
			}
			if imageGlob != "" {
				if ok, _ := filepath.Match(imageGlob, e.Name()); !ok {
					continue
				}
			}

			base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
			maskPath := findMask(maskDir, base)
			if maskPath == "" {
				res.Missing++
				continue
			}

			outFrame := filepath.Join(outDir, d.Name+"_"+e.Name())
			outMask := filepath.Join(outDir, d.Name+"_"+base+"_masks"+filepath.Ext(maskPath))
			if err := copyFile(filepath.Join(d.Dir, e.Name()), outFrame); err != nil {
				return res, err
			}
			if err := copyFile(maskPath, outMask); err != nil {
				return res, err
			}
			res.Pairs++
		}
	}
	return res, nil
}

// findMask locates the mask file for a frame base name, preferring the
// _masks suffix over _mask and exact matches over wildcards. Anything with
// "overlay" in its name is never a mask.
func findMask(maskDir, base string) string {
	for _, suffix := range []string{"_masks", "_mask"} {
		for _, ext := range maskExts {
			p := filepath.Join(maskDir, base+suffix+ext)
			if utils.FileExists(p) && !strings.Contains(strings.ToLower(filepath.Base(p)), "overlay") {
				return p
			}
		}
	}

	var hits []string
	for _, ext := range maskExts {
		for _, pat := range []string{base + "*masks*" + ext, base + "*mask*" + ext} {
			if found, _ := filepath.Glob(filepath.Join(maskDir, pat)); len(found) > 0 {
				hits = append(hits, found...)
			}
		}
	}
	best := ""
	for _, h := range hits {
		if strings.Contains(strings.ToLower(filepath.Base(h)), "overlay") {
			continue
		}
		if best == "" || len(h) < len(best) || (len(h) == len(best) && h < best) {
			best = h
		}
	}
	return best
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}

// Package walker enumerates frame/annotation pairs across dataset folders.
//
// Two annotation layouts are supported. The preferred layout keeps one JSON
// document per frame, named <stem>.json next to the image. The legacy pyrtz
// layout keeps one document per dataset (*_im_annotations.json) keyed by
// ("<cell>", "<meas>") tuples; its entries are matched to frame files by the
// cellNNmeasNNNN stem convention with tolerant measurement-offset fallbacks,
// because annotation keys and capture filenames drifted by one or two
// measurements in several recorded sessions.
package walker

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/afmlab/maskgen/internal/utils"
	"github.com/afmlab/maskgen/pkg/annotation"
	"github.com/afmlab/maskgen/pkg/frame"
)

// Dataset is one folder of frames under the dataset root.
type Dataset struct {
	Name string
	Dir  string
}

// Pair is one frame/annotation unit of work. FramePath is empty when an
// annotation references a frame with no matching image file; the pipeline
// reports that pair as a missing-frame failure.
type Pair struct {
	Dataset   string
	Key       string             // frame stem, or the annotation key when unmatched
	FramePath string             // "" = missing frame
	AnnPath   string             // per-frame annotation path, "" when absent
	Shapes    []annotation.Shape // pre-parsed legacy shapes in pixel space
	Legacy    bool
}

// Listing is the result of walking one dataset.
type Listing struct {
	Dataset  string
	Pairs    []Pair
	Manual   int             // legacy entries selected for masking
	Excluded int             // legacy entries reviewed and excluded
	Allowed  map[string]bool // frame stems a mask may legitimately exist for
}

// DatasetInfo is the per-dataset inventory reported by Inspect.
type DatasetInfo struct {
	Name        string
	Frames      int
	Annotations int
}

// skip directories that hold pipeline outputs or sibling annotation files
func isAuxiliaryDir(name string) bool {
	low := strings.ToLower(name)
	return low == "masks" || low == "overlays" || low == "results" ||
		low == "annotations" || strings.HasSuffix(low, "_annotations")
}

// Datasets lists the dataset folders under root: every subdirectory holding
// at least one frame image. A root that itself holds frames directly is
// treated as a single dataset. A missing root is the one run-aborting
// condition of the pipeline.
func Datasets(root string) ([]Dataset, error) {
	if !utils.DirExists(root) {
		return nil, fmt.Errorf("dataset root does not exist: %s", root)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset root: %w", err)
	}

	var datasets []Dataset
	for _, e := range entries {
		if !e.IsDir() || isAuxiliaryDir(e.Name()) {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if len(indexFrames(dir)) == 0 {
			continue
		}
		datasets = append(datasets, Dataset{Name: e.Name(), Dir: dir})
	}

	if len(datasets) == 0 && len(indexFrames(root)) > 0 {
		datasets = append(datasets, Dataset{Name: filepath.Base(root), Dir: root})
	}
	return datasets, nil
}

// indexFrames maps lowercase frame stems to file paths for one dataset
// folder, skipping generated overlay images.
func indexFrames(dir string) map[string]string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	idx := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !utils.IsFrameFile(e.Name()) {
			continue
		}
		stem := frame.Stem(e.Name())
		if strings.Contains(stem, "overlay") || strings.Contains(stem, "mask") {
			continue
		}
		idx[stem] = filepath.Join(dir, e.Name())
	}
	return idx
}

// List walks one dataset and returns its frame/annotation pairs.
func (d Dataset) List() (*Listing, error) {
	idx := indexFrames(d.Dir)

	if annPath := d.legacyAnnotationFile(); annPath != "" {
		return d.listLegacy(annPath, idx)
	}

	listing := &Listing{Dataset: d.Name, Allowed: make(map[string]bool)}
	for stem, path := range idx {
		annPath := filepath.Join(d.Dir, stem+".json")
		if !utils.FileExists(annPath) {
			annPath = ""
		}
		listing.Pairs = append(listing.Pairs, Pair{
			Dataset:   d.Name,
			Key:       stem,
			FramePath: path,
			AnnPath:   annPath,
		})
		listing.Allowed[stem] = true
		if annPath != "" {
			listing.Manual++
		}
	}

	// annotations referencing a frame that was never captured become pairs
	// too, so the run reports them as missing-frame failures
	hits, _ := filepath.Glob(filepath.Join(d.Dir, "*.json"))
	for _, annPath := range hits {
		stem := frame.Stem(annPath)
		if _, ok := idx[stem]; ok {
			continue
		}
		listing.Pairs = append(listing.Pairs, Pair{
			Dataset: d.Name,
			Key:     stem,
			AnnPath: annPath,
		})
		listing.Manual++
	}
	sortPairs(listing.Pairs)
	return listing, nil
}

// legacyAnnotationFile resolves the dataset-level annotation document, in
// the order the recorded sessions used: inside the dataset folder, under an
// annotations/ subfolder, or in a sibling <dataset>_annotations folder.
func (d Dataset) legacyAnnotationFile() string {
	direct := filepath.Join(d.Dir, d.Name+"_im_annotations.json")
	if utils.FileExists(direct) {
		return direct
	}
	for _, dir := range []string{
		filepath.Join(d.Dir, "annotations"),
		filepath.Join(filepath.Dir(d.Dir), d.Name+"_annotations"),
	} {
		if hits, _ := filepath.Glob(filepath.Join(dir, "*_im_annotations.json")); len(hits) > 0 {
			return hits[0]
		}
		if hits, _ := filepath.Glob(filepath.Join(dir, "*.json")); len(hits) > 0 {
			return hits[0]
		}
	}
	return ""
}

func (d Dataset) listLegacy(annPath string, idx map[string]string) (*Listing, error) {
	entries, err := annotation.ParseLegacyFile(annPath)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", d.Name, err)
	}

	listing := &Listing{Dataset: d.Name, Allowed: AllowedStems(entries)}
	for _, entry := range entries {
		if !entry.Manual {
			listing.Excluded++
			continue
		}
		listing.Manual++

		pair := Pair{
			Dataset: d.Name,
			Key:     entry.FrameStem(),
			Shapes:  entry.Shapes,
			Legacy:  true,
		}
		if path := matchFrame(idx, entry.Cell, entry.Meas); path != "" {
			pair.Key = frame.Stem(path)
			pair.FramePath = path
		}
		listing.Pairs = append(listing.Pairs, pair)
	}
	return listing, nil
}

// matchFrame finds the image file for a (cell, meas) annotation key:
// exact stem, then meas-1, meas-2, meas+1 (the off-by patterns seen in the
// capture tooling), then the nearest measurement recorded for that cell.
func matchFrame(idx map[string]string, cell, meas int) string {
	for _, delta := range []int{0, -1, -2, +1} {
		if path, ok := idx[annotation.LegacyStem(cell, meas+delta)]; ok {
			return path
		}
	}

	prefix := fmt.Sprintf("cell%02dmeas", cell)
	best := ""
	bestDist := -1
	for stem, path := range idx {
		if !strings.HasPrefix(stem, prefix) {
			continue
		}
		var m int
		if _, err := fmt.Sscanf(stem[len(prefix):], "%d", &m); err != nil {
			continue
		}
		dist := m - meas
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist || (dist == bestDist && path < best) {
			best = path
			bestDist = dist
		}
	}
	return best
}

// AllowedStems collects the frame stems a mask may exist for: every manual
// entry's exact stem plus the common meas-1 fallback. Pruning removes masks
// outside this set.
func AllowedStems(entries []annotation.LegacyEntry) map[string]bool {
	allowed := make(map[string]bool)
	for _, e := range entries {
		if !e.Manual {
			continue
		}
		allowed[annotation.LegacyStem(e.Cell, e.Meas)] = true
		allowed[annotation.LegacyStem(e.Cell, e.Meas-1)] = true
	}
	return allowed
}

// Inspect scans the dataset root and reports per-dataset frame and
// annotation counts, the quick sanity check run before mask generation.
func Inspect(root string) ([]DatasetInfo, error) {
	datasets, err := Datasets(root)
	if err != nil {
		return nil, err
	}

	infos := make([]DatasetInfo, 0, len(datasets))
	for _, d := range datasets {
		info := DatasetInfo{Name: d.Name, Frames: len(indexFrames(d.Dir))}
		if hits, _ := filepath.Glob(filepath.Join(d.Dir, "*.json")); len(hits) > 0 {
			info.Annotations = len(hits)
		} else if d.legacyAnnotationFile() != "" {
			info.Annotations = 1
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func sortPairs(pairs []Pair) {
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
}

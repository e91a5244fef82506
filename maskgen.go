// Package maskgen converts AFM image frames plus human-drawn polygon
// annotations into binary segmentation masks, visual overlays, and
// per-dataset summary statistics, for reproducible cell-segmentation
// dataset preparation.
//
// Basic usage:
//
//	package main
//
//	import (
//		"log"
//
//		"github.com/afmlab/maskgen"
//	)
//
//	func main() {
//		pipeline := maskgen.New()
//		report, err := pipeline.Run("data")
//		if err != nil {
//			log.Fatal(err)
//		}
//		log.Printf("run finished: %s", report)
//	}
//
// The pipeline walks the dataset root, pairs each frame with its annotation
// document, rasterizes the annotated shapes into a mask matching the frame's
// pixel dimensions, and writes the mask under the dataset's masks/ folder.
// Failures on one frame/annotation pair are collected in the run report and
// never abort processing of the other pairs.
//
// The package consists of the core components:
//
//  1. Annotation parser (pkg/annotation): shape geometry from JSON
//  2. Rasterizer and compositor (pkg/raster): pixel-exact shape fills
//  3. Mask writer (pkg/maskio): lossless single-channel PNG persistence
//  4. Dataset walker (pkg/walker): frame/annotation pair enumeration
//
// plus the downstream consumers: overlay rendering (pkg/overlay), summary
// CSVs (pkg/summary), and training-set export (pkg/export).
package maskgen

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/afmlab/maskgen/internal/config"
	"github.com/afmlab/maskgen/pkg/annotation"
	"github.com/afmlab/maskgen/pkg/export"
	"github.com/afmlab/maskgen/pkg/frame"
	"github.com/afmlab/maskgen/pkg/maskio"
	"github.com/afmlab/maskgen/pkg/overlay"
	"github.com/afmlab/maskgen/pkg/raster"
	"github.com/afmlab/maskgen/pkg/summary"
	"github.com/afmlab/maskgen/pkg/types"
	"github.com/afmlab/maskgen/pkg/walker"
)

// Version of the maskgen library
const Version = "1.0.0"

// Pipeline runs the batch mask-generation transformation over a dataset
// root. It is a pure function of its inputs: re-running over the same frames
// and annotations rewrites byte-identical masks.
type Pipeline struct {
	cfg *config.Config
	log *logrus.Logger
}

// New creates a Pipeline with default configuration and a default logger.
func New() *Pipeline {
	return NewWithConfig(config.Default(), logrus.New())
}

// NewWithConfig creates a Pipeline with custom configuration.
func NewWithConfig(cfg *config.Config, log *logrus.Logger) *Pipeline {
	if log == nil {
		log = logrus.New()
	}
	return &Pipeline{cfg: cfg, log: log}
}

// job is one unit of work dispatched to the worker pool.
type job struct {
	pair        walker.Pair
	withOverlay bool
}

// Run processes every frame/annotation pair under root and returns the run
// report. Only a bad dataset root is an error; per-pair failures are
// recorded in the report and the run always completes.
func (p *Pipeline) Run(root string) (*types.RunReport, error) {
	datasets, err := walker.Datasets(root)
	if err != nil {
		return nil, err
	}

	manual := make(map[string]int)
	excluded := make(map[string]int)
	var jobs []job
	var unwalkable []types.PairResult
	for _, d := range datasets {
		listing, err := d.List()
		if err != nil {
			// an unparsable dataset-level annotation document; the dataset is
			// skipped but the failure must surface in the report and exit status
			p.log.WithField("dataset", d.Name).WithError(err).Error("failed to walk dataset")
			unwalkable = append(unwalkable, types.PairResult{
				Dataset: d.Name,
				Key:     d.Name,
				Failure: types.NewFailure(types.FailureMalformedAnnotation, d.Name, "%v", err),
			})
			continue
		}
		manual[listing.Dataset] = listing.Manual
		excluded[listing.Dataset] = listing.Excluded

		budget := 0
		if p.cfg.Overlays.Enabled {
			budget = p.cfg.Overlays.SampleLimit
		}
		for i, pair := range listing.Pairs {
			jobs = append(jobs, job{pair: pair, withOverlay: i < budget})
		}
		p.log.WithFields(logrus.Fields{
			"dataset": d.Name,
			"pairs":   len(listing.Pairs),
		}).Info("dataset walked")
	}

	report := &types.RunReport{}
	for _, res := range unwalkable {
		report.Add(res)
	}
	for res := range p.dispatch(jobs) {
		p.logResult(res)
		report.Add(res)
	}

	if p.cfg.Summary.Enabled {
		if err := p.writeSummaries(root, report, manual, excluded); err != nil {
			p.log.WithError(err).Error("failed to write summaries")
		}
	}

	p.log.WithFields(logrus.Fields{
		"processed": report.Processed,
		"skipped":   report.Skipped,
		"warned":    report.Warned,
	}).Info("run finished")
	return report, nil
}

// dispatch fans the jobs out over a bounded worker pool and returns the
// result channel. Pairs share no mutable state, so the only coordination is
// the append-only result stream.
func (p *Pipeline) dispatch(jobs []job) <-chan types.PairResult {
	jobCh := make(chan job)
	resCh := make(chan types.PairResult)

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.WorkerCount(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				resCh <- p.processPair(j.pair, j.withOverlay)
			}
		}()
	}

	go func() {
		for _, j := range jobs {
			jobCh <- j
		}
		close(jobCh)
		wg.Wait()
		close(resCh)
	}()
	return resCh
}

// ProcessPair generates the mask for a single frame/annotation pair.
func (p *Pipeline) ProcessPair(pair walker.Pair) types.PairResult {
	return p.processPair(pair, false)
}

func (p *Pipeline) processPair(pair walker.Pair, withOverlay bool) types.PairResult {
	res := types.PairResult{Dataset: pair.Dataset, Key: pair.Key, FramePath: pair.FramePath}

	if pair.FramePath == "" {
		res.Failure = types.NewFailure(types.FailureMissingFrame, pair.Key,
			"no image file matches annotation key")
		return res
	}

	width, height, err := frame.Dimensions(pair.FramePath)
	if err != nil {
		res.Failure = types.NewFailure(types.FailureMissingFrame, pair.Key,
			"unreadable frame: %v", err)
		return res
	}

	shapes, err := p.pairShapes(pair, width, height, &res)
	if err != nil {
		res.Failure = types.NewFailure(types.FailureMalformedAnnotation, pair.Key, "%v", err)
		return res
	}

	var canvas *raster.Canvas
	var warnings []types.Warning
	suffix := p.cfg.Masks.Suffix
	if p.cfg.Masks.InstanceMode {
		canvas, warnings = raster.CompositeInstances(width, height, shapes)
		suffix = p.cfg.Masks.InstanceSuffix
	} else {
		canvas, warnings = raster.Composite(width, height, shapes)
	}
	res.Warnings = append(res.Warnings, warnings...)

	maskDir := filepath.Join(filepath.Dir(pair.FramePath), p.cfg.Masks.DirName)
	maskPath := maskio.MaskPath(maskDir, pair.Key, suffix)
	if err := maskio.Write(maskPath, canvas); err != nil {
		res.Failure = types.NewFailure(types.FailureWrite, pair.Key, "%v", err)
		return res
	}
	res.MaskPath = maskPath
	res.Foreground = canvas.Foreground()
	res.Instances = canvas.Labels()

	if withOverlay {
		p.renderOverlay(pair, canvas, shapes)
	}
	return res
}

// pairShapes resolves the shape list for a pair: pre-parsed legacy contours,
// a per-frame annotation document, or the empty no-cell case.
func (p *Pipeline) pairShapes(pair walker.Pair, width, height int, res *types.PairResult) ([]annotation.Shape, error) {
	if pair.Legacy {
		return pair.Shapes, nil
	}
	if pair.AnnPath == "" {
		res.Warn(types.WarnMissingAnnotation, "no annotation for frame %s", pair.Key)
		return nil, nil
	}
	shapes, warnings, err := annotation.ParseFile(pair.AnnPath, width, height)
	if err != nil {
		return nil, err
	}
	res.Warnings = append(res.Warnings, warnings...)
	return shapes, nil
}

// renderOverlay writes the sanity-check overlay for a pair. Overlay problems
// are logged, never failures: the mask is already on disk.
func (p *Pipeline) renderOverlay(pair walker.Pair, canvas *raster.Canvas, shapes []annotation.Shape) {
	frameImg, err := frame.Load(pair.FramePath)
	if err != nil {
		p.log.WithField("key", pair.Key).WithError(err).Warn("overlay: frame decode failed")
		return
	}
	img := overlay.Render(frameImg, canvas.Gray(), shapes, p.cfg.Overlays.StrokeWidth)
	dir := filepath.Join(filepath.Dir(pair.FramePath), p.cfg.Overlays.DirName)
	path := overlay.OverlayPath(dir, pair.Key, p.cfg.Overlays.Suffix)
	if err := overlay.Save(img, path); err != nil {
		p.log.WithField("key", pair.Key).WithError(err).Warn("overlay: save failed")
	}
}

// writeSummaries emits the per-dataset and per-mask CSV reports under the
// dataset root.
func (p *Pipeline) writeSummaries(root string, report *types.RunReport, manual, excluded map[string]int) error {
	dir := filepath.Join(root, p.cfg.Summary.DirName)
	sums := summary.Build(report.Results, manual, excluded)
	if err := summary.WriteDatasetCSV(filepath.Join(dir, p.cfg.Summary.DatasetFile), sums); err != nil {
		return err
	}
	stats := summary.Stats(report.Results)
	return summary.WriteMaskCSV(filepath.Join(dir, p.cfg.Summary.MaskFile), stats)
}

// logResult emits structured log entries for a pair outcome, detailed enough
// for the CLI layer to report counts per warning kind.
func (p *Pipeline) logResult(res types.PairResult) {
	fields := logrus.Fields{"dataset": res.Dataset, "key": res.Key}
	if res.Failure != nil {
		p.log.WithFields(fields).WithField("kind", res.Failure.Kind).Error(res.Failure.Message)
		return
	}
	for _, w := range res.Warnings {
		p.log.WithFields(fields).WithField("kind", w.Kind).Warn(w.Message)
	}
	p.log.WithFields(fields).WithFields(logrus.Fields{
		"foreground": res.Foreground,
		"instances":  res.Instances,
	}).Debug("mask written")
}

// Inspect scans the dataset root and reports per-dataset frame and
// annotation counts without generating anything.
func (p *Pipeline) Inspect(root string) ([]walker.DatasetInfo, error) {
	return walker.Inspect(root)
}

// Prune removes mask files that no longer correspond to a manual annotation
// entry. Returns the number of masks removed.
func (p *Pipeline) Prune(root string) (int, error) {
	datasets, err := walker.Datasets(root)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, d := range datasets {
		listing, err := d.List()
		if err != nil {
			return removed, err
		}
		maskDir := filepath.Join(d.Dir, p.cfg.Masks.DirName)
		names, err := maskio.PruneStale(maskDir, p.cfg.Masks.Suffix, listing.Allowed)
		if err != nil {
			continue // no masks generated for this dataset yet
		}
		for _, name := range names {
			p.log.WithFields(logrus.Fields{"dataset": d.Name, "mask": name}).Info("pruned stale mask")
		}
		removed += len(names)
	}
	return removed, nil
}

// Export flattens frame+mask pairs from every dataset under root into
// outDir for training. imageGlob optionally filters frames by filename.
func (p *Pipeline) Export(root, outDir, imageGlob string) (*export.Result, error) {
	datasets, err := walker.Datasets(root)
	if err != nil {
		return nil, err
	}
	res, err := export.Flatten(datasets, p.cfg.Masks.DirName, outDir, imageGlob)
	if err != nil {
		return nil, fmt.Errorf("export failed: %w", err)
	}
	return res, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}

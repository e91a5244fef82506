// Package summary aggregates run results into the per-dataset and per-mask
// CSV reports consumed by downstream training setup.
package summary

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"github.com/afmlab/maskgen/internal/utils"
	"github.com/afmlab/maskgen/pkg/types"
)

// DatasetSummary is one row of the per-dataset report.
type DatasetSummary struct {
	Dataset       string
	MasksWritten  int
	ManualInJSON  int
	ExcludeInJSON int
}

// MaskStat is one row of the per-mask report.
type MaskStat struct {
	Dataset    string
	Key        string
	MaskPath   string
	Foreground int
	Instances  int
}

// Build aggregates pair results into per-dataset summaries. manual and
// excluded carry the annotation-entry counts collected while walking each
// dataset.
func Build(results []types.PairResult, manual, excluded map[string]int) []DatasetSummary {
	written := make(map[string]int)
	for _, r := range results {
		if r.Failure == nil && r.MaskPath != "" {
			written[r.Dataset]++
		}
	}

	names := make(map[string]bool)
	for ds := range written {
		names[ds] = true
	}
	for ds := range manual {
		names[ds] = true
	}

	sums := make([]DatasetSummary, 0, len(names))
	for ds := range names {
		sums = append(sums, DatasetSummary{
			Dataset:       ds,
			MasksWritten:  written[ds],
			ManualInJSON:  manual[ds],
			ExcludeInJSON: excluded[ds],
		})
	}
	sort.Slice(sums, func(i, j int) bool { return sums[i].Dataset < sums[j].Dataset })
	return sums
}

// Stats extracts the per-mask rows from successful pair results.
func Stats(results []types.PairResult) []MaskStat {
	stats := make([]MaskStat, 0, len(results))
	for _, r := range results {
		if r.Failure != nil || r.MaskPath == "" {
			continue
		}
		stats = append(stats, MaskStat{
			Dataset:    r.Dataset,
			Key:        r.Key,
			MaskPath:   r.MaskPath,
			Foreground: r.Foreground,
			Instances:  r.Instances,
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Dataset != stats[j].Dataset {
			return stats[i].Dataset < stats[j].Dataset
		}
		return stats[i].Key < stats[j].Key
	})
	return stats
}

// WriteDatasetCSV writes the per-dataset summary report.
func WriteDatasetCSV(path string, sums []DatasetSummary) error {
	records := [][]string{{"dataset", "masks_written", "manual_in_json", "exclude_in_json"}}
	for _, s := range sums {
		records = append(records, []string{
			s.Dataset,
			strconv.Itoa(s.MasksWritten),
			strconv.Itoa(s.ManualInJSON),
			strconv.Itoa(s.ExcludeInJSON),
		})
	}
	return writeCSV(path, records)
}

// WriteMaskCSV writes the per-mask statistics report.
func WriteMaskCSV(path string, stats []MaskStat) error {
	records := [][]string{{"dataset", "key", "mask_path", "foreground_pixels", "instances"}}
	for _, s := range stats {
		records = append(records, []string{
			s.Dataset,
			s.Key,
			s.MaskPath,
			strconv.Itoa(s.Foreground),
			strconv.Itoa(s.Instances),
		})
	}
	return writeCSV(path, records)
}

func writeCSV(path string, records [][]string) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	// gota cannot represent a zero-row frame; emit a bare header instead.
	if len(records) == 1 {
		return os.WriteFile(path, []byte(strings.Join(records[0], ",")+"\n"), 0644)
	}

	df := dataframe.LoadRecords(records)
	if df.Err != nil {
		return fmt.Errorf("failed to build summary frame: %w", df.Err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer f.Close()

	if err := df.WriteCSV(f); err != nil {
		return fmt.Errorf("failed to write summary CSV: %w", err)
	}
	return nil
}

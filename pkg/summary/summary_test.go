package summary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/afmlab/maskgen/pkg/types"
)

func sampleResults() []types.PairResult {
	return []types.PairResult{
		{Dataset: "DN2-slow", Key: "cell01meas0000", MaskPath: "DN2-slow/masks/cell01meas0000_mask.png", Foreground: 120, Instances: 1},
		{Dataset: "DN1-rapid", Key: "cell02meas0001", MaskPath: "DN1-rapid/masks/cell02meas0001_mask.png", Foreground: 441, Instances: 1},
		{Dataset: "DN1-rapid", Key: "cell01meas0000", MaskPath: "DN1-rapid/masks/cell01meas0000_mask.png", Foreground: 10, Instances: 2},
		{Dataset: "DN1-rapid", Key: "cell03meas0000",
			Failure: types.NewFailure(types.FailureMissingFrame, "cell03meas0000", "no image file matches annotation key")},
	}
}

func TestBuild(t *testing.T) {
	manual := map[string]int{"DN1-rapid": 3, "DN2-slow": 1, "DN3-empty": 2}
	excluded := map[string]int{"DN1-rapid": 1}

	sums := Build(sampleResults(), manual, excluded)
	if len(sums) != 3 {
		t.Fatalf("expected 3 dataset rows, got %v", sums)
	}
	// sorted by dataset name
	if sums[0].Dataset != "DN1-rapid" || sums[1].Dataset != "DN2-slow" || sums[2].Dataset != "DN3-empty" {
		t.Errorf("rows not sorted: %v", sums)
	}
	if sums[0].MasksWritten != 2 || sums[0].ManualInJSON != 3 || sums[0].ExcludeInJSON != 1 {
		t.Errorf("DN1-rapid row wrong: %+v", sums[0])
	}
	// a dataset with annotations but no successful masks still gets a row
	if sums[2].MasksWritten != 0 || sums[2].ManualInJSON != 2 {
		t.Errorf("DN3-empty row wrong: %+v", sums[2])
	}
}

func TestStatsSkipsFailures(t *testing.T) {
	stats := Stats(sampleResults())
	if len(stats) != 3 {
		t.Fatalf("failed pairs must not produce stat rows, got %v", stats)
	}
	// sorted by (dataset, key)
	if stats[0].Key != "cell01meas0000" || stats[0].Dataset != "DN1-rapid" {
		t.Errorf("rows not sorted: %v", stats)
	}
	if stats[1].Foreground != 441 {
		t.Errorf("foreground count not carried: %+v", stats[1])
	}
	if stats[2].Dataset != "DN2-slow" {
		t.Errorf("rows not sorted by dataset: %v", stats)
	}
}

func TestWriteDatasetCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results", "mask_summary.csv")
	sums := Build(sampleResults(), map[string]int{"DN1-rapid": 3}, nil)

	if err := WriteDatasetCSV(path, sums); err != nil {
		t.Fatalf("WriteDatasetCSV failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "dataset,masks_written,manual_in_json,exclude_in_json" {
		t.Errorf("wrong header: %q", lines[0])
	}
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "DN1-rapid,2,3,0") {
		t.Errorf("DN1-rapid row = %q", lines[1])
	}
}

func TestWriteMaskCSVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mask_stats.csv")
	if err := WriteMaskCSV(path, nil); err != nil {
		t.Fatalf("WriteMaskCSV failed on empty stats: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := strings.TrimSpace(string(data))
	if got != "dataset,key,mask_path,foreground_pixels,instances" {
		t.Errorf("empty report must still carry the header, got %q", got)
	}
}

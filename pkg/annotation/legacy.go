package annotation

// Legacy pyrtz-style dataset annotations: a single JSON object per dataset
// whose keys are stringified ("<cell>", "<meas>") tuples and whose entries
// hold hand-clicked polygon contours under "clickData". Only entries with
// "selection": "manual" carry usable geometry; the rest were reviewed and
// excluded by the annotator.

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
)

// tupleKeyRe matches keys like "('03', '0001')".
var tupleKeyRe = regexp.MustCompile(`^\('(\d+)',\s*'(\d+)'\)$`)

// LegacyEntry is one annotated (cell, meas) pair from a dataset-level
// annotation document. Contour coordinates are already in pixel space.
type LegacyEntry struct {
	Key    string // original tuple key, e.g. "('03', '0001')"
	Cell   int
	Meas   int
	Manual bool
	Shapes []Shape // one polygon per clickData contour
}

type legacyRecord struct {
	Selection string        `json:"selection"`
	ClickData [][][]float64 `json:"clickData"`
}

// ParseLegacyFile loads a dataset-level annotation document. Keys that do
// not look like cell/meas tuples and entries that are not objects are
// skipped, matching the tolerant behavior of the original annotation tool.
// Entries are returned sorted by (cell, meas) so downstream processing and
// instance labels are deterministic.
func ParseLegacyFile(path string) ([]LegacyEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read annotation file: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse annotation JSON: %w", err)
	}

	entries := make([]LegacyEntry, 0, len(raw))
	for key, msg := range raw {
		m := tupleKeyRe.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		var rec legacyRecord
		if err := json.Unmarshal(msg, &rec); err != nil {
			continue
		}
		cell, _ := strconv.Atoi(m[1])
		meas, _ := strconv.Atoi(m[2])
		entry := LegacyEntry{
			Key:    key,
			Cell:   cell,
			Meas:   meas,
			Manual: rec.Selection == "manual",
		}
		for _, contour := range rec.ClickData {
			pts := make([]Point, 0, len(contour))
			for _, p := range contour {
				if len(p) < 2 {
					continue
				}
				pts = append(pts, Point{X: p[0], Y: p[1]})
			}
			entry.Shapes = append(entry.Shapes, Shape{Kind: Polygon, Points: pts})
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Cell != entries[j].Cell {
			return entries[i].Cell < entries[j].Cell
		}
		return entries[i].Meas < entries[j].Meas
	})
	return entries, nil
}

// FrameStem formats the canonical frame filename stem for a (cell, meas)
// pair, e.g. cell03meas0001.
func (e LegacyEntry) FrameStem() string {
	return LegacyStem(e.Cell, e.Meas)
}

// LegacyStem formats a cellNNmeasNNNN frame stem.
func LegacyStem(cell, meas int) string {
	return fmt.Sprintf("cell%02dmeas%04d", cell, meas)
}

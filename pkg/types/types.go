package types

import "fmt"

// FailureKind classifies a per-pair failure. A failure skips the pair but
// never aborts the run.
type FailureKind string

const (
	// FailureMissingFrame means an annotation references a frame key with no
	// corresponding image file.
	FailureMissingFrame FailureKind = "missing_frame"
	// FailureMalformedAnnotation means the annotation JSON was unparsable or
	// missing required fields.
	FailureMalformedAnnotation FailureKind = "malformed_annotation"
	// FailureWrite means the mask output path was not writable.
	FailureWrite FailureKind = "write_failure"
)

// WarningKind classifies a recoverable per-shape or per-pair condition.
type WarningKind string

const (
	// WarnDegenerateShape marks zero-area or otherwise invalid geometry that
	// contributed an empty fill.
	WarnDegenerateShape WarningKind = "degenerate_shape"
	// WarnOutOfBoundsShape marks a shape entirely outside the frame bounds.
	WarnOutOfBoundsShape WarningKind = "out_of_bounds_shape"
	// WarnUnknownShapeType marks an annotation entry with an unsupported type
	// discriminator.
	WarnUnknownShapeType WarningKind = "unknown_shape_type"
	// WarnMissingAnnotation marks a frame with no annotation file; the frame
	// gets an all-background mask.
	WarnMissingAnnotation WarningKind = "missing_annotation"
)

// Warning is a recoverable condition recorded while processing one pair.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// Failure is a fatal per-pair condition. It carries enough context to
// reconstruct a run report.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Key     string      `json:"key"`
	Message string      `json:"message"`
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s: %s", f.Key, f.Kind, f.Message)
}

// NewFailure builds a Failure for the given pair key.
func NewFailure(kind FailureKind, key, format string, args ...interface{}) *Failure {
	return &Failure{Kind: kind, Key: key, Message: fmt.Sprintf(format, args...)}
}

// PairResult is the outcome of processing one frame/annotation pair.
// It is an explicit collector value: workers produce PairResults and the run
// report aggregates them, with no shared mutable state in between.
type PairResult struct {
	Dataset    string    `json:"dataset"`
	Key        string    `json:"key"`
	FramePath  string    `json:"frame_path"`
	MaskPath   string    `json:"mask_path,omitempty"`
	Foreground int       `json:"foreground"`
	Instances  int       `json:"instances"`
	Warnings   []Warning `json:"warnings,omitempty"`
	Failure    *Failure  `json:"failure,omitempty"`
}

// Warn appends a warning to the result.
func (r *PairResult) Warn(kind WarningKind, format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, Warning{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// RunReport aggregates the outcomes of a whole pipeline run.
type RunReport struct {
	Processed int          `json:"processed"`
	Skipped   int          `json:"skipped"`
	Warned    int          `json:"warned"`
	Failures  []Failure    `json:"failures,omitempty"`
	Results   []PairResult `json:"results"`
}

// Add records one pair result in the report.
func (r *RunReport) Add(res PairResult) {
	r.Results = append(r.Results, res)
	if res.Failure != nil {
		r.Skipped++
		r.Failures = append(r.Failures, *res.Failure)
		return
	}
	r.Processed++
	if len(res.Warnings) > 0 {
		r.Warned++
	}
}

// OK reports whether the run completed without any per-pair failure.
func (r *RunReport) OK() bool {
	return len(r.Failures) == 0
}

// String renders the one-line run summary printed at the end of a run.
func (r *RunReport) String() string {
	return fmt.Sprintf("processed=%d skipped=%d warned=%d", r.Processed, r.Skipped, r.Warned)
}

package datasets

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// IndexPair is a half-open [Start, End) window into a sequence.
type IndexPair struct {
	Start int
	End   int
}

// Len returns End - Start.
func (p IndexPair) Len() int { return p.End - p.Start }

// Instance is one recording: its raw signal, its labels and the window
// boundaries cut from both. Instances are read-only once built.
type Instance struct {
	// Filename identifies the recording and is the lookup key used by the
	// extractors. It must be unique within one Stream call.
	Filename string

	// Data is the raw signal (e.g. audio samples or feature frames).
	Data []float32

	// Labels is aligned in time with Data but may be sampled differently.
	// Values are narrowed to int16 when batched.
	Labels []int

	DataWindowSize   int
	LabelsWindowSize int

	// CuttedDataIndexes and CuttedLabelsIndexes have the same row count;
	// row i of one pairs with row i of the other.
	CuttedDataIndexes   []IndexPair
	CuttedLabelsIndexes []IndexPair
}

// NewInstance builds an Instance and computes both window-index tables with
// CutIndexes. The data and label cuts must produce the same number of
// windows.
func NewInstance(filename string, data []float32, labels []int, dataWindow, dataStep, labelsWindow, labelsStep int) (*Instance, error) {
	dataIdx, err := CutIndexes(len(data), dataWindow, dataStep)
	if err != nil {
		return nil, fmt.Errorf("cut data indexes for %s: %w", filename, err)
	}
	labelIdx, err := CutIndexes(len(labels), labelsWindow, labelsStep)
	if err != nil {
		return nil, fmt.Errorf("cut label indexes for %s: %w", filename, err)
	}
	if len(dataIdx) != len(labelIdx) {
		return nil, fmt.Errorf("%w: %s has %d data windows but %d label windows",
			ErrPrecondition, filename, len(dataIdx), len(labelIdx))
	}

	return &Instance{
		Filename:            filename,
		Data:                data,
		Labels:              labels,
		DataWindowSize:      dataWindow,
		LabelsWindowSize:    labelsWindow,
		CuttedDataIndexes:   dataIdx,
		CuttedLabelsIndexes: labelIdx,
	}, nil
}

// WindowCount returns the number of windows cut from this instance.
func (in *Instance) WindowCount() int {
	return len(in.CuttedDataIndexes)
}

// Validate checks the window-index invariants and reports every violation
// found. The returned error wraps ErrPrecondition.
func (in *Instance) Validate() error {
	var errs *multierror.Error

	if len(in.CuttedDataIndexes) != len(in.CuttedLabelsIndexes) {
		errs = multierror.Append(errs, fmt.Errorf("%w: %s has %d data index rows but %d label index rows",
			ErrPrecondition, in.Filename, len(in.CuttedDataIndexes), len(in.CuttedLabelsIndexes)))
	}
	for i, p := range in.CuttedDataIndexes {
		if err := checkPair(p, in.DataWindowSize, len(in.Data)); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%w: %s data row %d: %v", ErrPrecondition, in.Filename, i, err))
		}
	}
	for i, p := range in.CuttedLabelsIndexes {
		if err := checkPair(p, in.LabelsWindowSize, len(in.Labels)); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%w: %s label row %d: %v", ErrPrecondition, in.Filename, i, err))
		}
	}

	return errs.ErrorOrNil()
}

func checkPair(p IndexPair, window, length int) error {
	if p.Start < 0 || p.End > length || p.Start > p.End {
		return fmt.Errorf("window [%d, %d) outside [0, %d]", p.Start, p.End, length)
	}
	if p.Len() != window {
		return fmt.Errorf("window [%d, %d) has length %d, want %d", p.Start, p.End, p.Len(), window)
	}
	return nil
}

// CutIndexes computes the windows of size windowSize taken every step
// samples from a sequence of the given length. When the regular stride does
// not end exactly at length, one more window aligned to the end of the
// sequence is added, so the tail is always covered. For example length 8,
// size 4, step 3 gives [0,4) [3,7) [4,8).
func CutIndexes(length, windowSize, step int) ([]IndexPair, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be > 0, got %d", windowSize)
	}
	if step <= 0 {
		return nil, fmt.Errorf("window step must be > 0, got %d", step)
	}
	if length < windowSize {
		return nil, nil
	}

	n := (length-windowSize)/step + 1
	out := make([]IndexPair, 0, n+1)
	for start := 0; start+windowSize <= length; start += step {
		out = append(out, IndexPair{Start: start, End: start + windowSize})
	}
	if last := out[len(out)-1]; last.End != length {
		out = append(out, IndexPair{Start: length - windowSize, End: length})
	}
	return out, nil
}

package datasets

import "fmt"

// Field selects which sequence of an Instance a window is cut from.
type Field int

const (
	FieldData Field = iota
	FieldLabels
)

func (f Field) String() string {
	switch f {
	case FieldData:
		return "data"
	case FieldLabels:
		return "labels"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// Dense is a row-major array stored in one contiguous buffer. The first
// dimension of Shape is the row count.
type Dense[T float32 | int16] struct {
	Data  []T
	Shape []int
}

// Rows returns Shape[0].
func (d *Dense[T]) Rows() int {
	if len(d.Shape) == 0 {
		return 0
	}
	return d.Shape[0]
}

// RowSize returns the number of values per row.
func (d *Dense[T]) RowSize() int {
	return rowSize(d.Shape)
}

// Row returns row i as a sub-slice of Data.
func (d *Dense[T]) Row(i int) []T {
	n := d.RowSize()
	return d.Data[i*n : (i+1)*n]
}

func newDense[T float32 | int16](shape []int) (*Dense[T], error) {
	if len(shape) == 0 {
		return nil, fmt.Errorf("%w: empty output shape", ErrShape)
	}
	total := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("%w: negative dimension in %v", ErrShape, shape)
		}
		total *= d
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return &Dense[T]{Data: make([]T, total), Shape: s}, nil
}

func rowSize(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape[1:] {
		n *= d
	}
	return n
}

// IndexRow is a single window request: the [Start, End) slice of one field
// of the named instance.
type IndexRow struct {
	Filename string
	Start    int
	End      int
}

// ExtractValues copies the window of field described by each row into the
// matching row of a new array of the given shape. shape[0] must equal
// len(rows) and every window must hold exactly prod(shape[1:]) values.
func ExtractValues(rows []IndexRow, lookup map[string]*Instance, shape []int, field Field) (*Dense[float32], error) {
	out, err := newDense[float32](shape)
	if err != nil {
		return nil, err
	}
	if out.Rows() != len(rows) {
		return nil, fmt.Errorf("%w: output shape %v has %d rows, got %d index rows", ErrShape, shape, out.Rows(), len(rows))
	}

	n := out.RowSize()
	for i, r := range rows {
		in, ok := lookup[r.Filename]
		if !ok || in == nil {
			return nil, fmt.Errorf("%w: %q (row %d)", ErrUnknownFile, r.Filename, i)
		}
		dst := out.Data[i*n : (i+1)*n]
		switch field {
		case FieldData:
			src, err := window(in.Data, r.Start, r.End, n)
			if err != nil {
				return nil, fmt.Errorf("%s row %d (%s): %w", field, i, r.Filename, err)
			}
			copy(dst, src)
		case FieldLabels:
			src, err := window(in.Labels, r.Start, r.End, n)
			if err != nil {
				return nil, fmt.Errorf("%s row %d (%s): %w", field, i, r.Filename, err)
			}
			for j, v := range src {
				dst[j] = float32(v)
			}
		default:
			return nil, fmt.Errorf("unknown field %v", field)
		}
	}
	return out, nil
}

// WindowIndexRow is one row of the combined index table: a data window and
// a label window cut from the same instance.
type WindowIndexRow struct {
	Filename string
	Data     IndexPair
	Labels   IndexPair
}

// ExtractJoint fills a float32 data array and an int16 label array in
// lockstep, row i of each from row i of rows. Label values are narrowed to
// int16 without range checks.
func ExtractJoint(rows []WindowIndexRow, lookup map[string]*Instance, dataShape, labelShape []int) (*Dense[float32], *Dense[int16], error) {
	data, err := newDense[float32](dataShape)
	if err != nil {
		return nil, nil, fmt.Errorf("data: %w", err)
	}
	labels, err := newDense[int16](labelShape)
	if err != nil {
		return nil, nil, fmt.Errorf("labels: %w", err)
	}
	if data.Rows() != len(rows) || labels.Rows() != len(rows) {
		return nil, nil, fmt.Errorf("%w: shapes %v and %v do not both have %d rows",
			ErrShape, dataShape, labelShape, len(rows))
	}

	dn, ln := data.RowSize(), labels.RowSize()
	for i, r := range rows {
		in, ok := lookup[r.Filename]
		if !ok || in == nil {
			return nil, nil, fmt.Errorf("%w: %q (row %d)", ErrUnknownFile, r.Filename, i)
		}

		src, err := window(in.Data, r.Data.Start, r.Data.End, dn)
		if err != nil {
			return nil, nil, fmt.Errorf("data row %d (%s): %w", i, r.Filename, err)
		}
		copy(data.Data[i*dn:(i+1)*dn], src)

		lsrc, err := window(in.Labels, r.Labels.Start, r.Labels.End, ln)
		if err != nil {
			return nil, nil, fmt.Errorf("labels row %d (%s): %w", i, r.Filename, err)
		}
		dst := labels.Data[i*ln : (i+1)*ln]
		for j, v := range lsrc {
			dst[j] = int16(v)
		}
	}
	return data, labels, nil
}

// window returns seq[start:end) after checking it is in range and holds
// exactly want values.
func window[T any](seq []T, start, end, want int) ([]T, error) {
	if start < 0 || end > len(seq) || start > end {
		return nil, fmt.Errorf("%w: window [%d, %d) outside sequence of length %d", ErrShape, start, end, len(seq))
	}
	if end-start != want {
		return nil, fmt.Errorf("%w: window [%d, %d) has %d values, row holds %d", ErrShape, start, end, end-start, want)
	}
	return seq[start:end], nil
}

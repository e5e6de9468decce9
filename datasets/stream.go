package datasets

import (
	"fmt"
	"io"
	"iter"
	"math/rand"
	"time"

	"github.com/hashicorp/go-multierror"
)

// DefaultBatchSize is used when StreamConfig.BatchSize is zero.
const DefaultBatchSize = 32

// IndexTable is the concatenation of every instance's window rows.
// Filenames repeat across rows; rows are addressed by position only.
type IndexTable []WindowIndexRow

// BuildIndexTable concatenates the window rows of all instances in input
// order, pairing each instance's data and label index rows one to one.
func BuildIndexTable(instances []*Instance) (IndexTable, error) {
	total := 0
	for i, in := range instances {
		if in == nil {
			return nil, fmt.Errorf("%w: nil instance at position %d", ErrPrecondition, i)
		}
		total += in.WindowCount()
	}

	table := make(IndexTable, 0, total)
	for _, in := range instances {
		if len(in.CuttedDataIndexes) != len(in.CuttedLabelsIndexes) {
			return nil, fmt.Errorf("%w: %s has %d data index rows but %d label index rows",
				ErrPrecondition, in.Filename, len(in.CuttedDataIndexes), len(in.CuttedLabelsIndexes))
		}
		for i, d := range in.CuttedDataIndexes {
			table = append(table, WindowIndexRow{
				Filename: in.Filename,
				Data:     d,
				Labels:   in.CuttedLabelsIndexes[i],
			})
		}
	}
	return table, nil
}

// Shuffle applies a uniform random permutation to the rows in place.
func (t IndexTable) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(t), func(i, j int) {
		t[i], t[j] = t[j], t[i]
	})
}

// StreamConfig controls batching. Zero values select the defaults.
type StreamConfig struct {
	// BatchSize is the number of windows per batch (default 32). The last
	// batch holds the remainder.
	BatchSize int

	// Shuffle permutes the combined index table once before batching.
	Shuffle bool

	// Seed for the shuffle. If zero, a time-based seed is used.
	Seed int64
}

// BatchStream yields the batches of one pass over a combined index table.
// It is single-use: once exhausted (or failed) it keeps returning the same
// terminal error. Call Stream again for a new pass.
type BatchStream struct {
	table     IndexTable
	lookup    map[string]*Instance
	batchSize int
	dataWin   int
	labelWin  int

	pos int
	err error
}

// Stream validates instances, builds their combined index table, shuffles
// it when requested and returns a stream of batches over it. Nothing is
// materialized until Next is called.
//
// Every instance must share the window sizes of the first one, and each
// instance must have as many label index rows as data index rows.
func Stream(instances []*Instance, cfg StreamConfig) (*BatchStream, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}
	if cfg.BatchSize < 0 {
		return nil, fmt.Errorf("batch size must be > 0, got %d", cfg.BatchSize)
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	if err := checkInstances(instances); err != nil {
		return nil, err
	}

	table, err := BuildIndexTable(instances)
	if err != nil {
		return nil, err
	}

	if cfg.Shuffle {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		table.Shuffle(rand.New(rand.NewSource(seed)))
	}

	lookup := make(map[string]*Instance, len(instances))
	for _, in := range instances {
		lookup[in.Filename] = in
	}

	return &BatchStream{
		table:     table,
		lookup:    lookup,
		batchSize: cfg.BatchSize,
		dataWin:   instances[0].DataWindowSize,
		labelWin:  instances[0].LabelsWindowSize,
	}, nil
}

// checkInstances reports every instance whose window sizes differ from the
// first instance's or whose index tables have different row counts.
func checkInstances(instances []*Instance) error {
	var errs *multierror.Error

	first := instances[0]
	if first == nil {
		return fmt.Errorf("%w: nil instance", ErrPrecondition)
	}
	seen := make(map[string]bool, len(instances))
	for _, in := range instances {
		if in == nil {
			errs = multierror.Append(errs, fmt.Errorf("%w: nil instance", ErrPrecondition))
			continue
		}
		if seen[in.Filename] {
			errs = multierror.Append(errs, fmt.Errorf("%w: duplicate filename %q", ErrPrecondition, in.Filename))
		}
		seen[in.Filename] = true

		if in.DataWindowSize != first.DataWindowSize || in.LabelsWindowSize != first.LabelsWindowSize {
			errs = multierror.Append(errs, fmt.Errorf("%w: %s has window sizes (%d, %d), expected (%d, %d)",
				ErrPrecondition, in.Filename, in.DataWindowSize, in.LabelsWindowSize,
				first.DataWindowSize, first.LabelsWindowSize))
		}
		if len(in.CuttedDataIndexes) != len(in.CuttedLabelsIndexes) {
			errs = multierror.Append(errs, fmt.Errorf("%w: %s has %d data index rows but %d label index rows",
				ErrPrecondition, in.Filename, len(in.CuttedDataIndexes), len(in.CuttedLabelsIndexes)))
		}
	}
	return errs.ErrorOrNil()
}

// BatchGenerator is Stream with positional arguments.
func BatchGenerator(instances []*Instance, batchSize int, shuffle bool) (*BatchStream, error) {
	return Stream(instances, StreamConfig{BatchSize: batchSize, Shuffle: shuffle})
}

// Len returns the total number of windows the stream yields.
func (s *BatchStream) Len() int { return len(s.table) }

// NumBatches returns ceil(Len() / batch size).
func (s *BatchStream) NumBatches() int {
	return (len(s.table) + s.batchSize - 1) / s.batchSize
}

// Table returns the stream's combined index table in yield order.
func (s *BatchStream) Table() IndexTable { return s.table }

// Next materializes and returns the next batch. It returns io.EOF after the
// last batch. An extraction error ends the stream.
func (s *BatchStream) Next() (*Batch, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.pos >= len(s.table) {
		s.err = io.EOF
		return nil, s.err
	}

	end := min(s.pos+s.batchSize, len(s.table))
	rows := s.table[s.pos:end]
	n := len(rows)

	data, labels, err := ExtractJoint(rows, s.lookup, []int{n, s.dataWin, 1}, []int{n, s.labelWin})
	if err != nil {
		s.err = fmt.Errorf("batch at row %d: %w", s.pos, err)
		return nil, s.err
	}
	s.pos = end
	return &Batch{Data: data, Labels: labels}, nil
}

// All returns the remaining batches as a sequence. Iteration stops after
// the first error, which is yielded with a nil batch.
func (s *BatchStream) All() iter.Seq2[*Batch, error] {
	return func(yield func(*Batch, error) bool) {
		for {
			b, err := s.Next()
			if err == io.EOF {
				return
			}
			if !yield(b, err) || err != nil {
				return
			}
		}
	}
}

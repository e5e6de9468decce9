package datasets

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collect drains a stream, failing the test on any error other than io.EOF.
func collect(t *testing.T, s *BatchStream) []*Batch {
	t.Helper()
	var out []*Batch
	for {
		b, err := s.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, b)
	}
}

// rampInstance returns an instance whose data values encode the filename
// index and position, so every window is distinguishable.
func rampInstance(t *testing.T, id, length int) *Instance {
	t.Helper()
	data := make([]float32, length)
	labels := make([]int, length)
	for i := range data {
		data[i] = float32(id*1000 + i)
		labels[i] = id*100 + i
	}
	in, err := NewInstance(fmt.Sprintf("rec%d", id), data, labels, 4, 2, 4, 2)
	require.NoError(t, err)
	return in
}

func TestStream_WorkedExample(t *testing.T) {
	a := exampleInstance(t, "a")

	s, err := BatchGenerator([]*Instance{a}, 2, false)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 2, s.NumBatches())

	batches := collect(t, s)
	require.Len(t, batches, 2)

	first := batches[0]
	assert.Equal(t, []int{2, 4, 1}, first.Data.Shape)
	assert.Equal(t, []int{2, 2}, first.Labels.Shape)
	assert.Equal(t, []float32{1, 2, 3, 4, 4, 5, 6, 7}, first.Data.Data)
	assert.Equal(t, []int16{10, 20, 20, 30}, first.Labels.Data)

	second := batches[1]
	assert.Equal(t, []int{1, 4, 1}, second.Data.Shape)
	assert.Equal(t, []float32{5, 6, 7, 8}, second.Data.Data)
	assert.Equal(t, []int16{30, 40}, second.Labels.Data)

	// exhausted streams stay exhausted
	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestStream_RowCountsAndBatchSizes(t *testing.T) {
	instances := []*Instance{rampInstance(t, 1, 20), rampInstance(t, 2, 7), rampInstance(t, 3, 13)}
	total := 0
	for _, in := range instances {
		total += in.WindowCount()
	}

	for _, batchSize := range []int{1, 3, 5, total, total + 4} {
		t.Run(fmt.Sprintf("batch=%d", batchSize), func(t *testing.T) {
			s, err := Stream(instances, StreamConfig{BatchSize: batchSize})
			require.NoError(t, err)

			batches := collect(t, s)
			wantBatches := (total + batchSize - 1) / batchSize
			require.Len(t, batches, wantBatches)
			assert.Equal(t, wantBatches, s.NumBatches())

			sum := 0
			for i, b := range batches {
				sum += b.Rows()
				assert.Equal(t, b.Rows(), b.Labels.Rows())
				if i < len(batches)-1 {
					assert.Equal(t, batchSize, b.Rows())
				}
			}
			last := batches[len(batches)-1].Rows()
			assert.Equal(t, total-batchSize*(wantBatches-1), last)
			assert.Greater(t, last, 0)
			assert.Equal(t, total, sum)
		})
	}
}

func TestStream_DefaultBatchSize(t *testing.T) {
	// 49 windows: one batch of 32 and one of 17
	in := rampInstance(t, 1, 100)
	s, err := Stream([]*Instance{in}, StreamConfig{})
	require.NoError(t, err)

	batches := collect(t, s)
	require.Len(t, batches, 2)
	assert.Equal(t, DefaultBatchSize, batches[0].Rows())
	assert.Equal(t, in.WindowCount()-DefaultBatchSize, batches[1].Rows())
}

// windowKeys identifies each yielded window by its first data value, which
// rampInstance makes unique.
func windowKeys(batches []*Batch) []float32 {
	var keys []float32
	for _, b := range batches {
		for i := range b.Rows() {
			keys = append(keys, b.Data.Row(i)[0])
		}
	}
	return keys
}

func TestStream_NoShufflePreservesOrder(t *testing.T) {
	instances := []*Instance{rampInstance(t, 1, 10), rampInstance(t, 2, 8)}
	s, err := Stream(instances, StreamConfig{BatchSize: 3})
	require.NoError(t, err)

	var want []float32
	for id, in := range instances {
		for _, p := range in.CuttedDataIndexes {
			want = append(want, float32((id+1)*1000+p.Start))
		}
	}
	assert.Equal(t, want, windowKeys(collect(t, s)))
}

func TestStream_ShuffleIsPermutation(t *testing.T) {
	instances := []*Instance{rampInstance(t, 1, 40), rampInstance(t, 2, 30), rampInstance(t, 3, 25)}

	plain, err := Stream(instances, StreamConfig{BatchSize: 4})
	require.NoError(t, err)
	shuffled, err := Stream(instances, StreamConfig{BatchSize: 4, Shuffle: true, Seed: 7})
	require.NoError(t, err)

	plainKeys := windowKeys(collect(t, plain))
	shuffledKeys := windowKeys(collect(t, shuffled))

	assert.ElementsMatch(t, plainKeys, shuffledKeys)
	assert.NotEqual(t, plainKeys, shuffledKeys)

	// labels travel with their data window
	s, err := Stream(instances, StreamConfig{BatchSize: 5, Shuffle: true, Seed: 11})
	require.NoError(t, err)
	for b, err := range s.All() {
		require.NoError(t, err)
		for i := range b.Rows() {
			d := int(b.Data.Row(i)[0])
			l := int(b.Labels.Row(i)[0])
			assert.Equal(t, d/1000, l/100, "label window from another recording")
			assert.Equal(t, d%1000, l%100, "label window not aligned with data window")
		}
	}
}

func TestStream_ShuffleDiffersBetweenCalls(t *testing.T) {
	instances := []*Instance{rampInstance(t, 1, 60), rampInstance(t, 2, 60)}

	s1, err := Stream(instances, StreamConfig{BatchSize: 8, Shuffle: true, Seed: 1})
	require.NoError(t, err)
	s2, err := Stream(instances, StreamConfig{BatchSize: 8, Shuffle: true, Seed: 2})
	require.NoError(t, err)
	assert.NotEqual(t, s1.Table(), s2.Table())

	// same seed replays the same permutation
	s3, err := Stream(instances, StreamConfig{BatchSize: 8, Shuffle: true, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, s1.Table(), s3.Table())
}

func TestStream_NoInstances(t *testing.T) {
	_, err := Stream(nil, StreamConfig{})
	assert.True(t, errors.Is(err, ErrNoInstances))
}

func TestStream_InconsistentWindowSizes(t *testing.T) {
	a := exampleInstance(t, "a")
	b, err := NewInstance("b", make([]float32, 10), make([]int, 4), 5, 5, 2, 2)
	require.NoError(t, err)

	_, err = Stream([]*Instance{a, b}, StreamConfig{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPrecondition))
}

func TestStream_MismatchedIndexRows(t *testing.T) {
	a := exampleInstance(t, "a")
	a.CuttedLabelsIndexes = a.CuttedLabelsIndexes[:2]

	_, err := Stream([]*Instance{a}, StreamConfig{})
	assert.True(t, errors.Is(err, ErrPrecondition))

	_, err = BuildIndexTable([]*Instance{a})
	assert.True(t, errors.Is(err, ErrPrecondition))
}

func TestStream_ExtractionErrorEndsStream(t *testing.T) {
	good := rampInstance(t, 1, 10)
	bad := rampInstance(t, 2, 10)
	bad.CuttedDataIndexes[1] = IndexPair{Start: 8, End: 12}

	s, err := Stream([]*Instance{good, bad}, StreamConfig{BatchSize: 4})
	require.NoError(t, err)

	// the first batch only touches the good recording
	_, err = s.Next()
	require.NoError(t, err)

	_, err = s.Next()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShape))

	_, again := s.Next()
	assert.Equal(t, err, again)

	var yielded int
	for _, err := range s.All() {
		yielded++
		assert.Error(t, err)
	}
	assert.Equal(t, 1, yielded)
}

func TestIndexTable_Concatenation(t *testing.T) {
	a := exampleInstance(t, "a")
	b := exampleInstance(t, "b")

	table, err := BuildIndexTable([]*Instance{a, b})
	require.NoError(t, err)
	require.Len(t, table, 6)

	assert.Equal(t, WindowIndexRow{Filename: "a", Data: IndexPair{0, 4}, Labels: IndexPair{0, 2}}, table[0])
	assert.Equal(t, WindowIndexRow{Filename: "b", Data: IndexPair{4, 8}, Labels: IndexPair{2, 4}}, table[5])
}

func TestIndexTable_NilInstance(t *testing.T) {
	_, err := BuildIndexTable([]*Instance{exampleInstance(t, "a"), nil})
	assert.True(t, errors.Is(err, ErrPrecondition))
}

func TestStream_NoWindows(t *testing.T) {
	// shorter than the data window: no index rows at all
	in, err := NewInstance("short", []float32{1, 2}, []int{1}, 4, 1, 2, 1)
	require.NoError(t, err)
	require.Equal(t, 0, in.WindowCount())

	s, err := Stream([]*Instance{in}, StreamConfig{BatchSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.NumBatches())

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
	assert.Empty(t, collect(t, s))
}

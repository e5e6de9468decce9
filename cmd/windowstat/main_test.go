package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Noofbiz/seqwindows/datasets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"
)

func TestApplyFileConfig_FlagsWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "windowstat.json")
	require.NoError(t, ensureConfigFile(path))
	fc, err := readConfig(path)
	require.NoError(t, err)

	cfg := Config{DataWindow: 4, DataStep: 2, BatchSize: 8}
	set := map[string]bool{"batch-size": true}
	ttl := applyFileConfig(&cfg, fc, set, time.Second)

	assert.Equal(t, 16000, cfg.DataWindow)
	assert.Equal(t, 8000, cfg.DataStep)
	assert.Equal(t, 50, cfg.LabelsWindow)
	assert.Equal(t, 25, cfg.LabelsStep)
	assert.Equal(t, 8, cfg.BatchSize, "explicit flag must not be overridden")
	assert.Equal(t, 300*time.Second, ttl)
	assert.Equal(t, "recordings", cfg.Dir)
}

func TestEnsureConfigFile_KeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "windowstat.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"stream":{"batch_size":3}}`), 0644))
	require.NoError(t, ensureConfigFile(path))

	fc, err := readConfig(path)
	require.NoError(t, err)
	require.NotNil(t, fc.Stream)
	assert.Equal(t, 3, *fc.Stream.BatchSize)
	assert.Nil(t, fc.Windows)
}

func TestDrain(t *testing.T) {
	in, err := datasets.NewInstance("a", []float32{1, 2, 3, 4, 5, 6, 7, 8}, []int{10, -20, 30, 40}, 4, 3, 2, 1)
	require.NoError(t, err)
	s, err := datasets.Stream([]*datasets.Instance{in}, datasets.StreamConfig{BatchSize: 2})
	require.NoError(t, err)

	st, err := drain(s, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, epochStats{Batches: 2, Windows: 3, MinLabel: -20, MaxLabel: 40, MinBatch: 1, MaxBatch: 2}, st)
}

func TestDrain_NoBatches(t *testing.T) {
	in, err := datasets.NewInstance("short", []float32{1, 2}, []int{1}, 4, 1, 2, 1)
	require.NoError(t, err)
	s, err := datasets.Stream([]*datasets.Instance{in}, datasets.StreamConfig{BatchSize: 2})
	require.NoError(t, err)
	require.Equal(t, 0, s.NumBatches())

	type result struct {
		st  epochStats
		err error
	}
	done := make(chan result, 1)
	go func() {
		st, err := drain(s, io.Discard)
		done <- result{st, err}
	}()

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, epochStats{}, r.st)
	case <-time.After(3 * time.Second):
		t.Fatal("drain did not return for an empty stream")
	}
}

func TestApplyFileConfig_Paths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "windowstat.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"dir":"clips","plot_dir":"out"}`), 0644))
	fc, err := readConfig(path)
	require.NoError(t, err)

	cfg := Config{Dir: "recordings"}
	applyFileConfig(&cfg, fc, map[string]bool{}, time.Second)
	assert.Equal(t, "clips", cfg.Dir)
	assert.Equal(t, "out", cfg.PlotDir)

	cfg = Config{Dir: "flagdir"}
	applyFileConfig(&cfg, fc, map[string]bool{"dir": true}, time.Second)
	assert.Equal(t, "flagdir", cfg.Dir)
	assert.Equal(t, "out", cfg.PlotDir)
}

func TestPlotWindowCounts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plots")
	out, err := plotWindowCounts(dir, plotter.Values{3, 5, 5, 9})
	require.NoError(t, err)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image/color"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/Noofbiz/seqwindows/datasets"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// defaultConfigJSON is written to -config when that file does not exist yet,
// so the defaults are available on disk for editing.
const defaultConfigJSON = `{
  "dir": "recordings",
  "plot_dir": "",
  "windows": {
    "data_window": 16000,
    "data_step": 8000,
    "labels_window": 50,
    "labels_step": 25
  },
  "stream": {
    "batch_size": 32,
    "shuffle": false,
    "seed": 0
  },
  "loader": {
    "cache_ttl_seconds": 300
  }
}
`

// Config is the effective configuration after merging the JSON file and the
// command-line flags.
type Config struct {
	Dir          string `json:"dir"`
	DataWindow   int    `json:"data_window"`
	DataStep     int    `json:"data_step"`
	LabelsWindow int    `json:"labels_window"`
	LabelsStep   int    `json:"labels_step"`
	BatchSize    int    `json:"batch_size"`
	Shuffle      bool   `json:"shuffle"`
	Seed         int64  `json:"seed"`
	CacheTTL     string `json:"cache_ttl"`
	PlotDir      string `json:"plot_dir"`
}

// fileConfig mirrors defaultConfigJSON. Pointer fields tell "absent" from
// zero.
type fileConfig struct {
	Dir     *string `json:"dir"`
	PlotDir *string `json:"plot_dir"`
	Windows *struct {
		DataWindow   *int `json:"data_window"`
		DataStep     *int `json:"data_step"`
		LabelsWindow *int `json:"labels_window"`
		LabelsStep   *int `json:"labels_step"`
	} `json:"windows"`
	Stream *struct {
		BatchSize *int   `json:"batch_size"`
		Shuffle   *bool  `json:"shuffle"`
		Seed      *int64 `json:"seed"`
	} `json:"stream"`
	Loader *struct {
		CacheTTLSeconds *int `json:"cache_ttl_seconds"`
	} `json:"loader"`
}

func main() {
	dir := flag.String("dir", "recordings", "directory holding <name>.wav and <name>.csv pairs")
	configPath := flag.String("config", "", "path to JSON configuration file (optional). Created with defaults if missing")
	dataWindow := flag.Int("data-window", 16000, "samples per data window")
	dataStep := flag.Int("data-step", 8000, "samples between consecutive data windows")
	labelsWindow := flag.Int("labels-window", 50, "labels per label window")
	labelsStep := flag.Int("labels-step", 25, "labels between consecutive label windows")
	batchSize := flag.Int("batch-size", datasets.DefaultBatchSize, "windows per batch")
	shuffle := flag.Bool("shuffle", false, "shuffle windows across all recordings before batching")
	seed := flag.Int64("seed", 0, "shuffle seed (0 = time based)")
	cacheTTL := flag.Duration("cache-ttl", 5*time.Minute, "how long decoded recordings stay cached")
	plotDir := flag.String("plot-dir", "", "if set, write a histogram of windows per recording to this directory")
	printEffectiveConfig := flag.Bool("print-effective-config", false, "print the effective (JSON+CLI merged) configuration and exit")

	flag.Parse()

	cfg := Config{
		Dir:          *dir,
		DataWindow:   *dataWindow,
		DataStep:     *dataStep,
		LabelsWindow: *labelsWindow,
		LabelsStep:   *labelsStep,
		BatchSize:    *batchSize,
		Shuffle:      *shuffle,
		Seed:         *seed,
		CacheTTL:     cacheTTL.String(),
		PlotDir:      *plotDir,
	}
	ttl := *cacheTTL

	if *configPath != "" {
		if err := ensureConfigFile(*configPath); err != nil {
			log.Fatalf("failed to write default config %s: %v", *configPath, err)
		}
		fc, err := readConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to read config %s: %v", *configPath, err)
		}
		// JSON values apply only where the flag was left unset.
		set := make(map[string]bool)
		flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
		ttl = applyFileConfig(&cfg, fc, set, ttl)
		cfg.CacheTTL = ttl.String()
	}

	if *printEffectiveConfig {
		out, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			log.Fatalf("failed to marshal config: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	if err := run(cfg, ttl); err != nil {
		log.Fatalf("windowstat: %v", err)
	}
}

func ensureConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigJSON), 0644)
}

func readConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, err
	}
	return &fc, nil
}

// applyFileConfig copies values from fc into cfg for every option whose
// flag is not in set, and returns the resulting cache TTL.
func applyFileConfig(cfg *Config, fc *fileConfig, set map[string]bool, ttl time.Duration) time.Duration {
	if fc.Dir != nil && !set["dir"] {
		cfg.Dir = *fc.Dir
	}
	if fc.PlotDir != nil && !set["plot-dir"] {
		cfg.PlotDir = *fc.PlotDir
	}
	if w := fc.Windows; w != nil {
		if w.DataWindow != nil && !set["data-window"] {
			cfg.DataWindow = *w.DataWindow
		}
		if w.DataStep != nil && !set["data-step"] {
			cfg.DataStep = *w.DataStep
		}
		if w.LabelsWindow != nil && !set["labels-window"] {
			cfg.LabelsWindow = *w.LabelsWindow
		}
		if w.LabelsStep != nil && !set["labels-step"] {
			cfg.LabelsStep = *w.LabelsStep
		}
	}
	if s := fc.Stream; s != nil {
		if s.BatchSize != nil && !set["batch-size"] {
			cfg.BatchSize = *s.BatchSize
		}
		if s.Shuffle != nil && !set["shuffle"] {
			cfg.Shuffle = *s.Shuffle
		}
		if s.Seed != nil && !set["seed"] {
			cfg.Seed = *s.Seed
		}
	}
	if l := fc.Loader; l != nil && l.CacheTTLSeconds != nil && !set["cache-ttl"] {
		ttl = time.Duration(*l.CacheTTLSeconds) * time.Second
	}
	return ttl
}

// epochStats summarizes one pass over the batch stream.
type epochStats struct {
	Batches  int
	Windows  int
	MinLabel int16
	MaxLabel int16
	MinBatch int
	MaxBatch int
}

func run(cfg Config, ttl time.Duration) error {
	loader := datasets.NewLoader(cfg.Dir, cfg.DataWindow, cfg.DataStep, cfg.LabelsWindow, cfg.LabelsStep)
	loader.TTL = ttl

	start := time.Now()
	instances, err := loader.LoadAll()
	if err != nil {
		return err
	}
	log.Printf("loaded %d recordings from %s in %s", len(instances), cfg.Dir, time.Since(start).Round(time.Millisecond))

	stream, err := datasets.Stream(instances, datasets.StreamConfig{
		BatchSize: cfg.BatchSize,
		Shuffle:   cfg.Shuffle,
		Seed:      cfg.Seed,
	})
	if err != nil {
		return err
	}

	stats, err := drain(stream, os.Stderr)
	if err != nil {
		return err
	}
	log.Printf("windows=%d batches=%d batch rows min=%d max=%d labels min=%d max=%d",
		stats.Windows, stats.Batches, stats.MinBatch, stats.MaxBatch, stats.MinLabel, stats.MaxLabel)

	if cfg.PlotDir != "" {
		counts := make(plotter.Values, len(instances))
		for i, in := range instances {
			counts[i] = float64(in.WindowCount())
		}
		out, err := plotWindowCounts(cfg.PlotDir, counts)
		if err != nil {
			return fmt.Errorf("failed to generate plot: %w", err)
		}
		log.Printf("wrote %s", out)
	}
	return nil
}

// drain consumes every batch of s, drawing a progress bar to w.
func drain(s *datasets.BatchStream, w io.Writer) (epochStats, error) {
	p := mpb.New(mpb.WithWidth(64), mpb.WithOutput(w))
	bar := p.AddBar(int64(s.NumBatches()),
		mpb.PrependDecorators(
			decor.Name("Batches: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)

	var st epochStats
	for b, err := range s.All() {
		if err != nil {
			bar.Abort(false)
			p.Wait()
			return st, err
		}
		st.add(b)
		bar.Increment()
	}
	// A zero total never completes on its own.
	bar.SetTotal(-1, true)
	p.Wait()
	return st, nil
}

func (st *epochStats) add(b *datasets.Batch) {
	rows := b.Rows()
	if st.Batches == 0 {
		st.MinBatch, st.MaxBatch = rows, rows
		if len(b.Labels.Data) > 0 {
			st.MinLabel, st.MaxLabel = b.Labels.Data[0], b.Labels.Data[0]
		}
	}
	st.Batches++
	st.Windows += rows
	st.MinBatch = min(st.MinBatch, rows)
	st.MaxBatch = max(st.MaxBatch, rows)
	for _, v := range b.Labels.Data {
		st.MinLabel = min(st.MinLabel, v)
		st.MaxLabel = max(st.MaxLabel, v)
	}
}

// plotWindowCounts writes a histogram of windows per recording and returns
// the output path.
func plotWindowCounts(outDir string, counts plotter.Values) (string, error) {
	p := plot.New()
	p.Title.Text = "Windows per recording"
	p.X.Label.Text = "windows"
	p.Y.Label.Text = "recordings"

	bins := min(len(counts), 20)
	h, err := plotter.NewHist(counts, max(bins, 1))
	if err != nil {
		return "", err
	}
	h.FillColor = color.RGBA{R: 20, G: 80, B: 200, A: 200}
	p.Add(h)
	p.Add(plotter.NewGrid())

	if err := ensureDir(outDir); err != nil {
		return "", err
	}
	outPath := filepath.Join(outDir, "window_counts.png")
	if err := p.Save(8*vg.Inch, 6*vg.Inch, outPath); err != nil {
		return "", err
	}
	return outPath, nil
}

func ensureDir(path string) error {
	if path == "" {
		return nil
	}
	return os.MkdirAll(path, 0755)
}

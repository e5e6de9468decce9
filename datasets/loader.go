package datasets

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/wav"
	"github.com/patrickmn/go-cache"
)

// LabelColumn is the CSV header cell holding per-sample labels.
const LabelColumn = "label"

// Loader builds Instances from a directory of recordings. Each recording
// <name> is a pair of files: <name>.wav holding the signal and <name>.csv
// holding one label per row under a "label" column.
//
// Decoded instances are cached for TTL so repeated epochs do not re-read
// the files. The cache key covers Dir and the window parameters, and a
// changed TTL starts a fresh cache, so the fields may be edited between
// loads.
type Loader struct {
	Dir string

	DataWindow   int
	DataStep     int
	LabelsWindow int
	LabelsStep   int

	// TTL of cached instances. Zero means 5 minutes.
	TTL time.Duration

	cache    *cache.Cache
	cacheTTL time.Duration
}

// NewLoader creates a Loader for dir with the given window parameters.
func NewLoader(dir string, dataWindow, dataStep, labelsWindow, labelsStep int) *Loader {
	return &Loader{
		Dir:          dir,
		DataWindow:   dataWindow,
		DataStep:     dataStep,
		LabelsWindow: labelsWindow,
		LabelsStep:   labelsStep,
	}
}

func (l *Loader) instances() *cache.Cache {
	ttl := l.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if l.cache == nil || l.cacheTTL != ttl {
		l.cache = cache.New(ttl, 2*ttl)
		l.cacheTTL = ttl
	}
	return l.cache
}

func (l *Loader) key(name string) string {
	return fmt.Sprintf("%s|%d/%d|%d/%d|%s",
		filepath.Clean(l.Dir), l.DataWindow, l.DataStep, l.LabelsWindow, l.LabelsStep, name)
}

// Load returns the Instance for the named recording, from cache when
// present.
func (l *Loader) Load(name string) (*Instance, error) {
	c := l.instances()
	key := l.key(name)
	if v, ok := c.Get(key); ok {
		return v.(*Instance), nil
	}

	data, err := LoadWAV(filepath.Join(l.Dir, name+".wav"))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	labels, err := LoadLabels(filepath.Join(l.Dir, name+".csv"))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	in, err := NewInstance(name, data, labels, l.DataWindow, l.DataStep, l.LabelsWindow, l.LabelsStep)
	if err != nil {
		return nil, err
	}
	c.Set(key, in, cache.DefaultExpiration)
	return in, nil
}

// LoadAll loads every recording in Dir in name order.
func (l *Loader) LoadAll() ([]*Instance, error) {
	names, err := FindWAVInDir(l.Dir)
	if err != nil {
		return nil, err
	}
	out := make([]*Instance, 0, len(names))
	for _, name := range names {
		in, err := l.Load(name)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

// Forget drops a cached instance so the next Load re-reads its files.
func (l *Loader) Forget(name string) {
	l.instances().Delete(l.key(name))
}

// getAudioDivisor returns the divisor that maps PCM integers of the given
// bit depth into [-1, 1).
func getAudioDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}
}

// LoadWAV decodes a PCM WAV file into normalized float32 samples. Only the
// first channel of multichannel files is kept.
func LoadWAV(path string) ([]float32, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, errors.New("invalid WAV file format")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("error reading WAV data: %w", err)
	}

	divisor, err := getAudioDivisor(int(decoder.BitDepth))
	if err != nil {
		return nil, err
	}

	channels := int(decoder.NumChans)
	if channels < 1 {
		channels = 1
	}
	samples := make([]float32, len(buf.Data)/channels)
	for i := range samples {
		samples[i] = float32(buf.Data[i*channels]) / divisor
	}
	return samples, nil
}

// LoadLabels reads the "label" column of a CSV file.
func LoadLabels(path string) ([]int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open labels CSV %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	col := -1
	for i, name := range header {
		if normalizedColumn(name) == LabelColumn {
			col = i
			break
		}
	}
	if col == -1 {
		return nil, fmt.Errorf("required column %q not found in %s", LabelColumn, path)
	}

	var labels []int
	for row := 0; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", row, err)
		}
		v, err := parseInt(record[col])
		if err != nil {
			return nil, fmt.Errorf("failed to parse label in row %d: %w", row, err)
		}
		labels = append(labels, v)
	}
	return labels, nil
}

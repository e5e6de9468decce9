package datasets

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty string")
	}
	// labels are sometimes written as floats ("3.0")
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("label %q is not an integer", s)
	}
	return int(f), nil
}

// FindWAVInDir returns the recording names (file base names without the
// .wav extension) found in dir, sorted.
func FindWAVInDir(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.wav"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no WAV files found in %s", dir)
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = strings.TrimSuffix(filepath.Base(m), filepath.Ext(m))
	}
	sort.Strings(names)
	return names, nil
}

// normalizedColumn lowercases and trims a CSV header cell.
func normalizedColumn(col string) string {
	return strings.TrimSpace(strings.ToLower(col))
}

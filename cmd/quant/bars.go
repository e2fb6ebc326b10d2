package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
)

// readBars decodes a JSON array of bars and sorts it by time.
func readBars(path string) ([]models.PriceBar, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bars: %w", err)
	}
	var bars []models.PriceBar
	if err := json.Unmarshal(b, &bars); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// tickerFromPath maps "bars/aapl.json" to "AAPL".
func tickerFromPath(path string) string {
	base := filepath.Base(path)
	return strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
}

// dirSource serves <dir>/<TICKER>.json files as a bar source.
type dirSource struct {
	files map[string]string
}

func newDirSource(dir string) (*dirSource, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no *.json bar files in %s", dir)
	}
	s := &dirSource{files: make(map[string]string, len(paths))}
	for _, p := range paths {
		s.files[tickerFromPath(p)] = p
	}
	return s, nil
}

func (s *dirSource) Tickers() []string {
	out := make([]string, 0, len(s.files))
	for t := range s.files {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (s *dirSource) GetBars(_ context.Context, symbol string, from, to time.Time, _ domrepo.Interval) ([]models.PriceBar, error) {
	bars, err := s.load(symbol)
	if err != nil {
		return nil, err
	}
	out := bars[:0:0]
	for _, b := range bars {
		if (from.IsZero() || !b.Time.Before(from)) && (to.IsZero() || !b.Time.After(to)) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *dirSource) GetLatestBars(_ context.Context, symbol string, n int, _ domrepo.Interval) ([]models.PriceBar, error) {
	bars, err := s.load(symbol)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	return bars, nil
}

func (s *dirSource) load(symbol string) ([]models.PriceBar, error) {
	p, ok := s.files[strings.ToUpper(symbol)]
	if !ok {
		return nil, domrepo.ErrNoBars
	}
	bars, err := readBars(p)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, domrepo.ErrNoBars
	}
	return bars, nil
}

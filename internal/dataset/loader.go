package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Options controls which columns become features.
type Options struct {
	LabelColumn    string
	ExcludeColumns []string
}

// Selection is the outcome of partitioning a header.
type Selection struct {
	Features   []string
	FeatureIdx []int
	LabelIdx   int
}

// SelectFeatures keeps every column except the label and the excluded
// metadata columns, preserving header order.
func SelectFeatures(header []string, opts Options) (Selection, error) {
	excluded := make(map[string]bool, len(opts.ExcludeColumns)+1)
	excluded[opts.LabelColumn] = true
	for _, c := range opts.ExcludeColumns {
		excluded[c] = true
	}

	sel := Selection{LabelIdx: -1}
	for i, col := range header {
		col = strings.TrimSpace(col)
		if col == opts.LabelColumn {
			sel.LabelIdx = i
		}
		if excluded[col] {
			continue
		}
		sel.Features = append(sel.Features, col)
		sel.FeatureIdx = append(sel.FeatureIdx, i)
	}

	if sel.LabelIdx < 0 {
		return Selection{}, fmt.Errorf("%w '%s' in dataset", ErrMissingLabel, opts.LabelColumn)
	}
	if len(sel.Features) == 0 {
		return Selection{}, ErrNoFeatures
	}
	return sel, nil
}

// LoadCSV reads a header-first CSV of numeric features and a 0/1 label.
func LoadCSV(path string, opts Options) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, path)
		}
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	d, err := Read(file, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	legit, fraud := d.ClassCounts()
	log.Info().
		Str("path", path).
		Int("rows", d.Len()).
		Int("features", len(d.Features)).
		Int("legit", legit).
		Int("fraud", fraud).
		Msg("Dataset loaded")

	return d, nil
}

// Read parses a dataset from any CSV stream.
func Read(r io.Reader, opts Options) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDataset
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	sel, err := SelectFeatures(header, opts)
	if err != nil {
		return nil, err
	}

	d := &Dataset{Features: sel.Features}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}

		label, err := parseLabel(record[sel.LabelIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := make([]float64, len(sel.FeatureIdx))
		for j, idx := range sel.FeatureIdx {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, sel.Features[j], ErrInvalidValue)
			}
			row[j] = v
		}

		d.Rows = append(d.Rows, row)
		d.Labels = append(d.Labels, label)
	}

	if d.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	return d, nil
}

func parseLabel(raw string) (int, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w, got %q", ErrInvalidLabel, raw)
	}
	switch v {
	case 0:
		return 0, nil
	case 1:
		return 1, nil
	}
	return 0, fmt.Errorf("%w, got %q", ErrInvalidLabel, raw)
}

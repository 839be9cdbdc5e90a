// Package dataset holds labeled feature tables and the helpers that load,
// split and fold them.
package dataset

import "fmt"

// Dataset is a dense numeric feature table with binary labels.
// Rows, Labels and Weights (when set) always have the same length.
type Dataset struct {
	Features []string
	Rows     [][]float64
	Labels   []int     // 0 = legit, 1 = fraud
	Weights  []float64 // nil means every row weighs 1.0

	index map[string]int
}

// New validates the shapes and builds a dataset.
func New(features []string, rows [][]float64, labels []int) (*Dataset, error) {
	d := &Dataset{Features: features, Rows: rows, Labels: labels}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dataset) Len() int {
	return len(d.Rows)
}

func (d *Dataset) Validate() error {
	if len(d.Features) == 0 {
		return ErrNoFeatures
	}
	if len(d.Rows) != len(d.Labels) || (d.Weights != nil && len(d.Weights) != len(d.Rows)) {
		return ErrLengthMismatch
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Features) {
			return fmt.Errorf("row %d has %d values, expected %d: %w", i, len(row), len(d.Features), ErrLengthMismatch)
		}
	}
	for i, y := range d.Labels {
		if y != 0 && y != 1 {
			return fmt.Errorf("row %d: %w", i, ErrInvalidLabel)
		}
	}
	return nil
}

// FeatureIndex resolves a feature name to its column position.
func (d *Dataset) FeatureIndex(name string) (int, bool) {
	if d.index == nil {
		d.index = make(map[string]int, len(d.Features))
		for i, f := range d.Features {
			d.index[f] = i
		}
	}
	i, ok := d.index[name]
	return i, ok
}

// Column copies out one feature column.
func (d *Dataset) Column(name string) ([]float64, bool) {
	idx, ok := d.FeatureIndex(name)
	if !ok {
		return nil, false
	}
	col := make([]float64, len(d.Rows))
	for i, row := range d.Rows {
		col[i] = row[idx]
	}
	return col, true
}

// Weight returns the weight of row i.
func (d *Dataset) Weight(i int) float64 {
	if d.Weights == nil {
		return 1.0
	}
	return d.Weights[i]
}

// ClassCounts returns the number of legit and fraud rows.
func (d *Dataset) ClassCounts() (legit, fraud int) {
	for _, y := range d.Labels {
		if y == 1 {
			fraud++
		} else {
			legit++
		}
	}
	return legit, fraud
}

// Subset returns a dataset view over the given row indices. Row slices are
// shared with the receiver.
func (d *Dataset) Subset(indices []int) *Dataset {
	sub := &Dataset{
		Features: d.Features,
		Rows:     make([][]float64, len(indices)),
		Labels:   make([]int, len(indices)),
	}
	if d.Weights != nil {
		sub.Weights = make([]float64, len(indices))
	}
	for j, i := range indices {
		sub.Rows[j] = d.Rows[i]
		sub.Labels[j] = d.Labels[i]
		if d.Weights != nil {
			sub.Weights[j] = d.Weights[i]
		}
	}
	return sub
}

// WithWeights returns a shallow copy carrying the given weight vector.
func (d *Dataset) WithWeights(weights []float64) (*Dataset, error) {
	if weights != nil && len(weights) != len(d.Rows) {
		return nil, ErrLengthMismatch
	}
	return &Dataset{Features: d.Features, Rows: d.Rows, Labels: d.Labels, Weights: weights}, nil
}

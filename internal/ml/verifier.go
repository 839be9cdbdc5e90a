package ml

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
)

// EncodedForest scores rows with decoded artifact trees only, the way the
// deployed runtime does.
type EncodedForest struct {
	trees Forest
	index map[string]int
}

// NewEncodedForest binds decoded trees to a feature order and checks that
// every split feature resolves.
func NewEncodedForest(trees Forest, features []string) (*EncodedForest, error) {
	if len(trees) == 0 {
		return nil, ErrNoTrees
	}
	index := make(map[string]int, len(features))
	for i, f := range features {
		index[f] = i
	}

	for i, root := range trees {
		stack := []Node{root}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			switch v := n.(type) {
			case *Leaf:
			case *Split:
				if _, ok := index[v.Feature]; !ok {
					return nil, fmt.Errorf("tree %d: %w: %s", i, ErrUnknownFeature, v.Feature)
				}
				stack = append(stack, v.Left, v.Right)
			default:
				return nil, fmt.Errorf("tree %d: %w", i, ErrUnknownNode)
			}
		}
	}

	return &EncodedForest{trees: trees, index: index}, nil
}

// PredictProba averages the leaf probabilities of every tree.
func (e *EncodedForest) PredictProba(row []float64) float64 {
	var sum float64
	for _, root := range e.trees {
		p, err := Evaluate(root, row, e.index)
		if err != nil {
			// Features were resolved at construction; only a short row gets here.
			return math.NaN()
		}
		sum += p
	}
	return sum / float64(len(e.trees))
}

// VerifyReport compares the artifact against the in-memory model.
type VerifyReport struct {
	Rows       int
	Mismatches int
	MaxDelta   float64
}

// Passed reports whether every row got the same class at 0.5.
func (r VerifyReport) Passed() bool {
	return r.Mismatches == 0
}

// VerifyArtifact scores rows through the decoded artifact and the
// reference model and counts disagreements at the 0.5 decision boundary.
func VerifyArtifact(a *ForestArtifact, reference Scorer, rows [][]float64) (VerifyReport, error) {
	encoded, err := NewEncodedForest(a.Forest, a.Meta.Features)
	if err != nil {
		return VerifyReport{}, err
	}

	report := VerifyReport{Rows: len(rows)}
	for _, row := range rows {
		got := encoded.PredictProba(row)
		want := reference.PredictProba(row)
		if d := math.Abs(got - want); d > report.MaxDelta || math.IsNaN(d) {
			report.MaxDelta = d
		}
		if (got >= 0.5) != (want >= 0.5) {
			report.Mismatches++
		}
	}

	event := log.Info()
	if !report.Passed() {
		event = log.Warn()
	}
	event.
		Int("rows", report.Rows).
		Int("mismatches", report.Mismatches).
		Float64("max_delta", report.MaxDelta).
		Msg("Artifact parity check")

	return report, nil
}

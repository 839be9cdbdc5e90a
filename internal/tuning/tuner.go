// Package tuning runs a seeded randomized hyperparameter search for the
// random forest using stratified k-fold cross-validation.
package tuning

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"fraud-forest/internal/dataset"
	"fraud-forest/internal/forest"
	"fraud-forest/internal/ml"

	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidRange   = errors.New("invalid search range")
	ErrInvalidScoring = errors.New("unsupported scoring metric")
	ErrInvalidIter    = errors.New("iteration count must be positive")
)

// IntRange is an inclusive integer interval.
type IntRange struct {
	Min int
	Max int
}

func (r IntRange) sample(rng *rand.Rand) int {
	return r.Min + rng.Intn(r.Max-r.Min+1)
}

// SearchSpace bounds the three tuned hyperparameters.
type SearchSpace struct {
	NEstimators    IntRange
	MaxDepth       IntRange
	MinSamplesLeaf IntRange
}

func DefaultSearchSpace() SearchSpace {
	return SearchSpace{
		NEstimators:    IntRange{Min: 25, Max: 250},
		MaxDepth:       IntRange{Min: 4, Max: 18},
		MinSamplesLeaf: IntRange{Min: 1, Max: 50},
	}
}

func (s SearchSpace) Validate() error {
	checks := []struct {
		name string
		r    IntRange
	}{
		{"n-estimators", s.NEstimators},
		{"max-depth", s.MaxDepth},
		{"min-samples-leaf", s.MinSamplesLeaf},
	}
	for _, c := range checks {
		if c.r.Min >= c.r.Max {
			return fmt.Errorf("%w: --%s-min must be < --%s-max", ErrInvalidRange, c.name, c.name)
		}
		if c.r.Min <= 0 {
			return fmt.Errorf("%w: --%s-min must be positive", ErrInvalidRange, c.name)
		}
	}
	return nil
}

// Scoring names a cross-validation metric.
type Scoring string

const (
	ScoringROCAUC    Scoring = "roc_auc"
	ScoringAccuracy  Scoring = "accuracy"
	ScoringPrecision Scoring = "precision"
	ScoringRecall    Scoring = "recall"
	ScoringF1        Scoring = "f1"
)

func ParseScoring(s string) (Scoring, error) {
	switch Scoring(s) {
	case ScoringROCAUC, ScoringAccuracy, ScoringPrecision, ScoringRecall, ScoringF1:
		return Scoring(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidScoring, s)
}

// Score evaluates predictions. Class metrics use a 0.5 cut.
func (s Scoring) Score(labels []int, scores []float64) (float64, error) {
	if s == ScoringROCAUC {
		return ml.ROCAUC(labels, scores)
	}
	c, err := ml.NewConfusion(labels, scores, 0.5)
	if err != nil {
		return 0, err
	}
	switch s {
	case ScoringAccuracy:
		return c.Accuracy(), nil
	case ScoringPrecision:
		return c.Precision(), nil
	case ScoringRecall:
		return c.Recall(), nil
	case ScoringF1:
		return c.F1(), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidScoring, s)
}

// Params is one sampled hyperparameter set.
type Params struct {
	NEstimators    int `json:"n_estimators"`
	MaxDepth       int `json:"max_depth"`
	MinSamplesLeaf int `json:"min_samples_leaf"`
}

// Candidate is a scored parameter set.
type Candidate struct {
	Params     Params
	MeanScore  float64
	FoldScores []float64
	Rank       int
}

type Options struct {
	Space   SearchSpace
	NIter   int
	CV      int
	Scoring Scoring
	Seed    int64
}

// Result holds every candidate sorted best first.
type Result struct {
	Candidates []Candidate
}

func (r *Result) Best() Candidate {
	return r.Candidates[0]
}

// Top returns up to n best candidates.
func (r *Result) Top(n int) []Candidate {
	if n > len(r.Candidates) {
		n = len(r.Candidates)
	}
	return r.Candidates[:n]
}

// Search samples NIter parameter sets and cross-validates each one on the
// same folds.
func Search(ctx context.Context, d *dataset.Dataset, opts Options) (*Result, error) {
	if err := opts.Space.Validate(); err != nil {
		return nil, err
	}
	if opts.NIter <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidIter, opts.NIter)
	}
	if _, err := ParseScoring(string(opts.Scoring)); err != nil {
		return nil, err
	}

	folds, err := dataset.StratifiedKFold(d.Labels, opts.CV, opts.Seed)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	candidates := make([]Candidate, 0, opts.NIter)

	for iter := 0; iter < opts.NIter; iter++ {
		p := Params{
			NEstimators:    opts.Space.NEstimators.sample(rng),
			MaxDepth:       opts.Space.MaxDepth.sample(rng),
			MinSamplesLeaf: opts.Space.MinSamplesLeaf.sample(rng),
		}

		c := Candidate{Params: p, FoldScores: make([]float64, 0, len(folds))}
		for k, fold := range folds {
			score, err := evaluateFold(ctx, d, fold, p, opts)
			if err != nil {
				return nil, fmt.Errorf("candidate %d fold %d: %w", iter+1, k+1, err)
			}
			c.FoldScores = append(c.FoldScores, score)
			c.MeanScore += score
		}
		c.MeanScore /= float64(len(folds))
		candidates = append(candidates, c)

		log.Info().
			Int("candidate", iter+1).
			Int("of", opts.NIter).
			Int("n_estimators", p.NEstimators).
			Int("max_depth", p.MaxDepth).
			Int("min_samples_leaf", p.MinSamplesLeaf).
			Float64("score", c.MeanScore).
			Msg("Candidate evaluated")
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].MeanScore > candidates[j].MeanScore
	})
	for i := range candidates {
		candidates[i].Rank = i + 1
	}

	return &Result{Candidates: candidates}, nil
}

func evaluateFold(ctx context.Context, d *dataset.Dataset, fold dataset.Fold, p Params, opts Options) (float64, error) {
	train := d.Subset(fold.Train)
	test := d.Subset(fold.Test)

	f, err := forest.Fit(ctx, train, forest.Params{
		NTrees:         p.NEstimators,
		MaxDepth:       p.MaxDepth,
		MinSamplesLeaf: p.MinSamplesLeaf,
		Seed:           opts.Seed,
	})
	if err != nil {
		return 0, err
	}
	return opts.Scoring.Score(test.Labels, f.PredictAll(test.Rows))
}

// SuggestedCommand renders a train-forest invocation for the best candidate.
func SuggestedCommand(p Params) string {
	return fmt.Sprintf("forestkit train-forest --n-trees %d --max-depth %d --min-samples-leaf %d",
		p.NEstimators, p.MaxDepth, p.MinSamplesLeaf)
}

package forest

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"fraud-forest/internal/dataset"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Params controls forest training.
type Params struct {
	NTrees         int
	MaxDepth       int
	MinSamplesLeaf int
	MaxFeatures    int // 0 selects sqrt(n_features)
	Seed           int64
	Workers        int // 0 selects runtime.NumCPU()
}

// Forest is an ordered collection of bagged trees.
type Forest struct {
	Trees     []*Tree
	NFeatures int
}

// SqrtFeatures is the default per-node feature draw.
func SqrtFeatures(n int) int {
	k := int(math.Sqrt(float64(n)))
	if k < 1 {
		k = 1
	}
	return k
}

// Fit trains NTrees bootstrapped trees in parallel. Tree i is seeded with
// Seed+i and stored at index i, so the result does not depend on scheduling.
func Fit(ctx context.Context, d *dataset.Dataset, p Params) (*Forest, error) {
	if p.NTrees <= 0 {
		return nil, fmt.Errorf("%w: tree count must be positive, got %d", ErrInvalidParams, p.NTrees)
	}
	if d.Len() == 0 {
		return nil, ErrEmptyDataset
	}

	maxFeatures := p.MaxFeatures
	if maxFeatures == 0 {
		maxFeatures = SqrtFeatures(len(d.Features))
	}
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	log.Info().
		Int("trees", p.NTrees).
		Int("max_depth", p.MaxDepth).
		Int("min_samples_leaf", p.MinSamplesLeaf).
		Int("max_features", maxFeatures).
		Int("workers", workers).
		Msg("Training random forest")

	trees := make([]*Tree, p.NTrees)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < p.NTrees; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tree, err := FitTree(d, TreeParams{
				MaxDepth:       p.MaxDepth,
				MinSamplesLeaf: p.MinSamplesLeaf,
				MaxFeatures:    maxFeatures,
				Bootstrap:      true,
				Seed:           p.Seed + int64(i),
			})
			if err != nil {
				return fmt.Errorf("tree %d: %w", i, err)
			}
			trees[i] = tree
			if (i+1)%5 == 0 || i == 0 {
				log.Debug().Int("tree", i+1).Int("of", p.NTrees).Int("nodes", tree.NodeCount()).Msg("Tree trained")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Forest{Trees: trees, NFeatures: len(d.Features)}, nil
}

// PredictProba averages the tree probabilities for one row.
func (f *Forest) PredictProba(row []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var sum float64
	for _, t := range f.Trees {
		sum += t.PredictProba(row)
	}
	return sum / float64(len(f.Trees))
}

// PredictAll scores every row.
func (f *Forest) PredictAll(rows [][]float64) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = f.PredictProba(row)
	}
	return out
}

// Importances averages the per-tree importances over trees that split at
// least once and renormalizes the result to sum to 1.
func (f *Forest) Importances() []float64 {
	out := make([]float64, f.NFeatures)
	used := 0
	for _, t := range f.Trees {
		if t.NodeCount() <= 1 {
			continue
		}
		used++
		for j, v := range t.importances {
			out[j] += v
		}
	}
	if used == 0 {
		return out
	}
	for j := range out {
		out[j] /= float64(used)
	}
	normalize(out)
	return out
}

// Stats summarizes tree sizes for logging and metrics.
type Stats struct {
	Nodes    int
	Leaves   int
	MaxDepth int
}

func (f *Forest) Stats() Stats {
	var s Stats
	for _, t := range f.Trees {
		s.Nodes += t.NodeCount()
		s.Leaves += t.LeafCount()
		if t.Depth > s.MaxDepth {
			s.MaxDepth = t.Depth
		}
	}
	return s
}

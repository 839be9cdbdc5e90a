package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Fold is one train/test partition of row indices.
type Fold struct {
	Train []int
	Test  []int
}

// classIndices groups row indices by label, shuffled with the given rng.
func classIndices(labels []int, rng *rand.Rand) [2][]int {
	var groups [2][]int
	for i, y := range labels {
		groups[y] = append(groups[y], i)
	}
	for c := range groups {
		g := groups[c]
		rng.Shuffle(len(g), func(i, j int) { g[i], g[j] = g[j], g[i] })
	}
	return groups
}

// StratifiedSplit holds out testSize of each class. The same seed always
// yields the same partition.
func StratifiedSplit(d *Dataset, testSize float64, seed int64) (train, test *Dataset, err error) {
	if !(testSize > 0 && testSize < 1) {
		return nil, nil, fmt.Errorf("%w, got %f", ErrInvalidTestSize, testSize)
	}
	if d.Len() < 2 {
		return nil, nil, ErrTooFewSamples
	}

	rng := rand.New(rand.NewSource(seed))
	groups := classIndices(d.Labels, rng)

	var trainIdx, testIdx []int
	for _, g := range groups {
		nTest := int(math.Round(float64(len(g)) * testSize))
		if nTest == 0 && len(g) > 1 {
			nTest = 1
		}
		if nTest == len(g) && nTest > 0 {
			nTest--
		}
		testIdx = append(testIdx, g[:nTest]...)
		trainIdx = append(trainIdx, g[nTest:]...)
	}

	if len(testIdx) == 0 || len(trainIdx) == 0 {
		return nil, nil, ErrTooFewSamples
	}

	sort.Ints(trainIdx)
	sort.Ints(testIdx)
	return d.Subset(trainIdx), d.Subset(testIdx), nil
}

// StratifiedKFold deals each class round-robin across k folds so every
// fold keeps roughly the overall class balance.
func StratifiedKFold(labels []int, k int, seed int64) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidFoldCount, k)
	}

	rng := rand.New(rand.NewSource(seed))
	groups := classIndices(labels, rng)
	for c, g := range groups {
		if len(g) < k {
			return nil, fmt.Errorf("class %d has %d rows for %d folds: %w", c, len(g), k, ErrTooFewSamples)
		}
	}

	assignment := make([]int, len(labels))
	for _, g := range groups {
		for pos, i := range g {
			assignment[i] = pos % k
		}
	}

	folds := make([]Fold, k)
	for i, f := range assignment {
		for j := range folds {
			if j == f {
				folds[j].Test = append(folds[j].Test, i)
			} else {
				folds[j].Train = append(folds[j].Train, i)
			}
		}
	}
	return folds, nil
}

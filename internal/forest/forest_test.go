package forest

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"fraud-forest/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// separable builds 100 rows where x >= 50 is fraud and z is constant.
func separable(t *testing.T) *dataset.Dataset {
	t.Helper()
	rows := make([][]float64, 100)
	labels := make([]int, 100)
	for i := range rows {
		rows[i] = []float64{float64(i), 0}
		if i >= 50 {
			labels[i] = 1
		}
	}
	d, err := dataset.New([]string{"x", "z"}, rows, labels)
	require.NoError(t, err)
	return d
}

// noisy builds a seeded dataset with an informative and a noise feature.
func noisy(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	rng := rand.New(rand.NewSource(3))
	rows := make([][]float64, n)
	labels := make([]int, n)
	for i := range rows {
		signal := rng.Float64()
		rows[i] = []float64{signal + rng.NormFloat64()*0.1, rng.Float64(), rng.Float64()}
		if signal > 0.6 {
			labels[i] = 1
		}
	}
	d, err := dataset.New([]string{"signal", "noise_a", "noise_b"}, rows, labels)
	require.NoError(t, err)
	return d
}

func TestFitTree_Separable(t *testing.T) {
	tree, err := FitTree(separable(t), TreeParams{MaxDepth: 3, MinSamplesLeaf: 1})
	require.NoError(t, err)

	assert.Equal(t, []int{0, LeafFeature, LeafFeature}, tree.Feature)
	assert.Equal(t, []int{1, NoChild, NoChild}, tree.ChildrenLeft)
	assert.Equal(t, []int{2, NoChild, NoChild}, tree.ChildrenRight)
	assert.Equal(t, 49.5, tree.Threshold[0])
	assert.Equal(t, [2]float64{50, 50}, tree.Value[0])
	assert.Equal(t, [2]float64{50, 0}, tree.Value[1])
	assert.Equal(t, [2]float64{0, 50}, tree.Value[2])
	assert.Equal(t, []float64{1, 0}, tree.Importances())
	assert.Equal(t, 1, tree.Depth)
	assert.Equal(t, 2, tree.LeafCount())

	assert.Equal(t, 0.0, tree.PredictProba([]float64{10, 0}))
	assert.Equal(t, 1.0, tree.PredictProba([]float64{49.5, 0})+tree.PredictProba([]float64{80, 0}))
}

func TestFitTree_StoppingRules(t *testing.T) {
	t.Run("too few rows for two leaves", func(t *testing.T) {
		tree, err := FitTree(separable(t), TreeParams{MaxDepth: 5, MinSamplesLeaf: 51})
		require.NoError(t, err)
		assert.Equal(t, 1, tree.NodeCount())
		assert.Equal(t, 0.5, tree.PredictProba([]float64{0, 0}))
	})

	t.Run("min leaf respected", func(t *testing.T) {
		tree, err := FitTree(noisy(t, 400), TreeParams{MaxDepth: 10, MinSamplesLeaf: 30})
		require.NoError(t, err)
		for id, f := range tree.Feature {
			if f == LeafFeature {
				v := tree.Value[id]
				assert.GreaterOrEqual(t, v[0]+v[1], 30.0)
			}
		}
	})

	t.Run("depth limit", func(t *testing.T) {
		tree, err := FitTree(noisy(t, 400), TreeParams{MaxDepth: 2, MinSamplesLeaf: 1})
		require.NoError(t, err)
		assert.LessOrEqual(t, tree.Depth, 2)
		assert.LessOrEqual(t, tree.NodeCount(), 7)
	})

	t.Run("invalid params", func(t *testing.T) {
		_, err := FitTree(separable(t), TreeParams{MaxDepth: 0, MinSamplesLeaf: 1})
		assert.ErrorIs(t, err, ErrInvalidParams)
	})
}

func TestFitTree_PreorderIDs(t *testing.T) {
	tree, err := FitTree(noisy(t, 300), TreeParams{MaxDepth: 4, MinSamplesLeaf: 5})
	require.NoError(t, err)

	for id, f := range tree.Feature {
		if f == LeafFeature {
			continue
		}
		assert.Equal(t, id+1, tree.ChildrenLeft[id], "left child follows parent in preorder")
		assert.Greater(t, tree.ChildrenRight[id], tree.ChildrenLeft[id])
	}
}

func TestMidpoint(t *testing.T) {
	assert.Equal(t, 1.5, midpoint(1, 2))
	next := math.Nextafter(1, 2)
	assert.Equal(t, 1.0, midpoint(1, next))
}

func TestFit_Deterministic(t *testing.T) {
	d := noisy(t, 300)
	p := Params{NTrees: 6, MaxDepth: 5, MinSamplesLeaf: 3, Seed: 42, Workers: 1}

	a, err := Fit(context.Background(), d, p)
	require.NoError(t, err)

	p.Workers = 4
	b, err := Fit(context.Background(), d, p)
	require.NoError(t, err)

	require.Len(t, a.Trees, 6)
	for i := range a.Trees {
		assert.Equal(t, a.Trees[i].TreeStructure, b.Trees[i].TreeStructure, "tree %d", i)
	}
}

func TestFit_BootstrapAndImportances(t *testing.T) {
	d := noisy(t, 300)
	f, err := Fit(context.Background(), d, Params{NTrees: 5, MaxDepth: 4, MinSamplesLeaf: 5, Seed: 1})
	require.NoError(t, err)

	for _, tree := range f.Trees {
		root := tree.Value[0]
		assert.Equal(t, 300.0, root[0]+root[1], "bootstrap counts sum to the row count")
	}

	imp := f.Importances()
	require.Len(t, imp, 3)
	var sum float64
	for _, v := range imp {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, imp[0], imp[1])
	assert.Greater(t, imp[0], imp[2])

	stats := f.Stats()
	assert.Greater(t, stats.Nodes, 5)
	assert.LessOrEqual(t, stats.MaxDepth, 4)

	p := f.PredictAll(d.Rows[:10])
	for _, v := range p {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestFit_Errors(t *testing.T) {
	d := separable(t)

	_, err := Fit(context.Background(), d, Params{NTrees: 0, MaxDepth: 3, MinSamplesLeaf: 1})
	assert.ErrorIs(t, err, ErrInvalidParams)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Fit(ctx, d, Params{NTrees: 3, MaxDepth: 3, MinSamplesLeaf: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSqrtFeatures(t *testing.T) {
	assert.Equal(t, 1, SqrtFeatures(1))
	assert.Equal(t, 1, SqrtFeatures(3))
	assert.Equal(t, 4, SqrtFeatures(17))
}

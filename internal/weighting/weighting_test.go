package weighting

import (
	"testing"

	"fraud-forest/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	d, err := dataset.New(
		[]string{"bigram_entropy", "domain_reputation_score", "length"},
		[][]float64{
			{3.5, 0.6, 10}, // in zone: reputation boundary is inclusive
			{3.0, 0.9, 11}, // entropy boundary is strict
			{4.0, 0.59, 12},
			{4.2, 0.95, 13},
		},
		[]int{1, 0, 0, 1},
	)
	require.NoError(t, err)

	weights, report := Compute(d, DefaultPolicy())

	assert.Equal(t, []float64{20, 1, 1, 20}, weights)
	assert.True(t, report.Applied)
	assert.Equal(t, 2, report.ZoneRows)
	assert.InDelta(t, 0.5, report.ZoneShare, 1e-12)
	assert.Empty(t, report.Missing)
}

func TestCompute_MissingFeature(t *testing.T) {
	d, err := dataset.New(
		[]string{"bigram_entropy", "length"},
		[][]float64{{5, 1}, {6, 2}},
		[]int{0, 1},
	)
	require.NoError(t, err)

	weights, report := Compute(d, DefaultPolicy())

	assert.Equal(t, []float64{1, 1}, weights)
	assert.False(t, report.Applied)
	assert.Equal(t, []string{"domain_reputation_score"}, report.Missing)
}

func TestCompute_CustomPolicy(t *testing.T) {
	d, err := dataset.New(
		[]string{"e", "r"},
		[][]float64{{1.5, 0.2}, {0.5, 0.2}},
		[]int{0, 1},
	)
	require.NoError(t, err)

	policy := Policy{EntropyFeature: "e", ReputationFeature: "r", EntropyAbove: 1, ReputationAtLeast: 0.1, Weight: 7}
	w := New(policy, d)
	assert.True(t, w.InZone(d.Rows[0]))
	assert.False(t, w.InZone(d.Rows[1]))

	weights, _ := w.Weights(d)
	assert.Equal(t, []float64{7, 1}, weights)

	// Same input, same output
	again, _ := w.Weights(d)
	assert.Equal(t, weights, again)
}

func TestCompute_UnitWeightIsIdentity(t *testing.T) {
	d, err := dataset.New(
		[]string{"bigram_entropy", "domain_reputation_score"},
		[][]float64{{3.5, 0.9}, {1, 0.1}, {4, 0.7}},
		[]int{1, 0, 1},
	)
	require.NoError(t, err)

	policy := DefaultPolicy()
	policy.Weight = 1.0
	weights, report := Compute(d, policy)

	var total float64
	for _, w := range weights {
		total += w
	}
	assert.Equal(t, float64(d.Len()), total)
	assert.Equal(t, 2, report.ZoneRows)
}

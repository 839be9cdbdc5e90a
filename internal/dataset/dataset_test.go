package dataset

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultOptions() Options {
	return Options{
		LabelColumn:    "label",
		ExcludeColumns: []string{"id", "email", "timestamp", "created_at"},
	}
}

func TestSelectFeatures(t *testing.T) {
	tests := []struct {
		name     string
		header   []string
		want     []string
		wantErr  error
		labelIdx int
	}{
		{
			name:     "metadata excluded in order",
			header:   []string{"id", "email", "bigram_entropy", "label", "timestamp", "domain_reputation_score", "created_at"},
			want:     []string{"bigram_entropy", "domain_reputation_score"},
			labelIdx: 3,
		},
		{
			name:    "missing label",
			header:  []string{"id", "bigram_entropy"},
			wantErr: ErrMissingLabel,
		},
		{
			name:    "no features left",
			header:  []string{"id", "email", "label"},
			wantErr: ErrNoFeatures,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := SelectFeatures(tt.header, defaultOptions())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, sel.Features)
			assert.Equal(t, tt.labelIdx, sel.LabelIdx)
		})
	}
}

func TestRead(t *testing.T) {
	t.Run("parses rows and labels", func(t *testing.T) {
		input := "id,f1,f2,label\n1,0.5,2,0\n2,1.5,3,1\n3,2.5,4,1.0\n"
		d, err := Read(strings.NewReader(input), defaultOptions())
		require.NoError(t, err)

		assert.Equal(t, []string{"f1", "f2"}, d.Features)
		assert.Equal(t, 3, d.Len())
		assert.Equal(t, []int{0, 1, 1}, d.Labels)
		assert.Equal(t, []float64{1.5, 3}, d.Rows[1])

		col, ok := d.Column("f2")
		require.True(t, ok)
		assert.Equal(t, []float64{2, 3, 4}, col)
		_, ok = d.Column("missing")
		assert.False(t, ok)
	})

	t.Run("bad label", func(t *testing.T) {
		_, err := Read(strings.NewReader("f1,label\n1,2\n"), defaultOptions())
		assert.ErrorIs(t, err, ErrInvalidLabel)
	})

	t.Run("unparsable value", func(t *testing.T) {
		_, err := Read(strings.NewReader("f1,label\nabc,1\n"), defaultOptions())
		assert.ErrorIs(t, err, ErrInvalidValue)
	})

	t.Run("header only", func(t *testing.T) {
		_, err := Read(strings.NewReader("f1,label\n"), defaultOptions())
		assert.ErrorIs(t, err, ErrEmptyDataset)
	})
}

func TestLoadCSV(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), defaultOptions())
	assert.ErrorIs(t, err, ErrDatasetNotFound)

	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("email,x,label\na@b.c,1,0\nd@e.f,2,1\n"), 0o644))

	d, err := LoadCSV(path, defaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, d.Features)
	legit, fraud := d.ClassCounts()
	assert.Equal(t, 1, legit)
	assert.Equal(t, 1, fraud)
}

func TestSubsetAndWeights(t *testing.T) {
	d, err := New([]string{"a"}, [][]float64{{1}, {2}, {3}}, []int{0, 1, 0})
	require.NoError(t, err)

	assert.Equal(t, 1.0, d.Weight(2))

	weighted, err := d.WithWeights([]float64{1, 5, 1})
	require.NoError(t, err)
	sub := weighted.Subset([]int{1, 2})
	assert.Equal(t, []int{1, 0}, sub.Labels)
	assert.Equal(t, []float64{5, 1}, sub.Weights)

	_, err = d.WithWeights([]float64{1})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = New([]string{"a"}, [][]float64{{1}}, []int{2})
	assert.ErrorIs(t, err, ErrInvalidLabel)
}

func makeLabels(legit, fraud int) ([][]float64, []int) {
	rows := make([][]float64, 0, legit+fraud)
	labels := make([]int, 0, legit+fraud)
	for i := 0; i < legit; i++ {
		rows = append(rows, []float64{float64(i)})
		labels = append(labels, 0)
	}
	for i := 0; i < fraud; i++ {
		rows = append(rows, []float64{float64(1000 + i)})
		labels = append(labels, 1)
	}
	return rows, labels
}

func TestStratifiedSplit(t *testing.T) {
	rows, labels := makeLabels(80, 20)
	d, err := New([]string{"x"}, rows, labels)
	require.NoError(t, err)

	train, test, err := StratifiedSplit(d, 0.2, 42)
	require.NoError(t, err)

	assert.Equal(t, 80, train.Len())
	assert.Equal(t, 20, test.Len())

	trainLegit, trainFraud := train.ClassCounts()
	testLegit, testFraud := test.ClassCounts()
	assert.Equal(t, 64, trainLegit)
	assert.Equal(t, 16, trainFraud)
	assert.Equal(t, 16, testLegit)
	assert.Equal(t, 4, testFraud)

	train2, test2, err := StratifiedSplit(d, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, train.Rows, train2.Rows)
	assert.Equal(t, test.Rows, test2.Rows)

	for _, size := range []float64{0, 1.0, -0.1, math.NaN(), math.Inf(1)} {
		_, _, err = StratifiedSplit(d, size, 42)
		assert.ErrorIs(t, err, ErrInvalidTestSize, "test size %v", size)
	}
}

func TestStratifiedKFold(t *testing.T) {
	_, labels := makeLabels(50, 10)

	folds, err := StratifiedKFold(labels, 5, 7)
	require.NoError(t, err)
	require.Len(t, folds, 5)

	seen := make(map[int]int)
	for _, f := range folds {
		assert.Len(t, f.Test, 12)
		assert.Len(t, f.Train, 48)
		fraud := 0
		for _, i := range f.Test {
			seen[i]++
			fraud += labels[i]
		}
		assert.Equal(t, 2, fraud)
	}
	assert.Len(t, seen, 60)

	_, err = StratifiedKFold(labels, 1, 7)
	assert.ErrorIs(t, err, ErrInvalidFoldCount)

	_, err = StratifiedKFold(labels, 11, 7)
	assert.ErrorIs(t, err, ErrTooFewSamples)
}

// Package forest grows weighted CART trees and bagged random forests over
// a dataset.Dataset. Trees are stored as flat parallel node arrays.
package forest

import (
	"errors"
	"math/rand"

	"fraud-forest/internal/dataset"
)

const (
	// LeafFeature marks a node without a split.
	LeafFeature = -2
	// NoChild marks an absent child index.
	NoChild = -1
)

var (
	ErrEmptyDataset  = errors.New("cannot fit on an empty dataset")
	ErrInvalidParams = errors.New("invalid tree parameters")
)

// TreeStructure is the flat node layout of one fitted tree. Node 0 is the
// root and node ids follow preorder.
type TreeStructure struct {
	Feature       []int
	Threshold     []float64
	ChildrenLeft  []int
	ChildrenRight []int
	Value         [][2]float64 // weighted class counts: legit, fraud
}

// NodeCount returns the number of nodes.
func (s *TreeStructure) NodeCount() int {
	return len(s.Feature)
}

func (s *TreeStructure) addNode(counts [2]float64) int {
	s.Feature = append(s.Feature, LeafFeature)
	s.Threshold = append(s.Threshold, 0)
	s.ChildrenLeft = append(s.ChildrenLeft, NoChild)
	s.ChildrenRight = append(s.ChildrenRight, NoChild)
	s.Value = append(s.Value, counts)
	return len(s.Feature) - 1
}

// TreeParams controls the growth of a single tree.
type TreeParams struct {
	MaxDepth       int
	MinSamplesLeaf int
	MaxFeatures    int // features drawn per node; 0 or >= n_features uses all of them
	Bootstrap      bool
	Seed           int64
}

// Tree is a fitted decision tree.
type Tree struct {
	TreeStructure
	NFeatures   int
	Depth       int
	importances []float64
}

// FitTree grows one tree on the dataset. Row weights come from d.Weights
// and are multiplied by the bootstrap draw count when Bootstrap is set.
func FitTree(d *dataset.Dataset, p TreeParams) (*Tree, error) {
	if d.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	if p.MaxDepth <= 0 || p.MinSamplesLeaf <= 0 || p.MaxFeatures < 0 {
		return nil, ErrInvalidParams
	}

	rng := rand.New(rand.NewSource(p.Seed))
	weights := make([]float64, d.Len())
	if p.Bootstrap {
		n := d.Len()
		for k := 0; k < n; k++ {
			weights[rng.Intn(n)]++
		}
	} else {
		for i := range weights {
			weights[i] = 1
		}
	}

	root := make([]int, 0, d.Len())
	for i := range weights {
		weights[i] *= d.Weight(i)
		if weights[i] > 0 {
			root = append(root, i)
		}
	}

	g := newGrower(d, weights, p, rng)
	g.grow(root)
	return g.tree, nil
}

// Leaf walks a row down to its leaf node id.
func (t *Tree) Leaf(row []float64) int {
	node := 0
	for t.Feature[node] != LeafFeature {
		if row[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return node
}

// PredictProba returns the fraud share of the row's leaf.
func (t *Tree) PredictProba(row []float64) float64 {
	v := t.Value[t.Leaf(row)]
	total := v[0] + v[1]
	if total == 0 {
		return 0
	}
	return v[1] / total
}

// Importances returns the normalized weighted impurity decrease per
// feature. All zeros when the tree never split.
func (t *Tree) Importances() []float64 {
	out := make([]float64, len(t.importances))
	copy(out, t.importances)
	return out
}

// LeafCount returns the number of leaves.
func (t *Tree) LeafCount() int {
	n := 0
	for _, f := range t.Feature {
		if f == LeafFeature {
			n++
		}
	}
	return n
}

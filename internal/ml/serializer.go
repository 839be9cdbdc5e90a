package ml

import (
	"fmt"
	"math"

	"fraud-forest/internal/forest"
)

// SerializeTree converts flat tree arrays into a Node tree. Traversal uses
// an explicit stack so depth is bounded by memory, not the goroutine stack.
func SerializeTree(s *forest.TreeStructure, features []string) (Node, error) {
	n := len(s.Feature)
	if n == 0 {
		return nil, ErrEmptyTree
	}
	if len(s.Threshold) != n || len(s.ChildrenLeft) != n || len(s.ChildrenRight) != n || len(s.Value) != n {
		return nil, fmt.Errorf("%w: feature=%d threshold=%d left=%d right=%d value=%d",
			ErrShapeMismatch, n, len(s.Threshold), len(s.ChildrenLeft), len(s.ChildrenRight), len(s.Value))
	}

	type frame struct {
		id   int
		slot *Node
	}

	var root Node
	visited := make([]bool, n)
	stack := []frame{{id: 0, slot: &root}}

	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[fr.id] {
			return nil, fmt.Errorf("%w: node %d", ErrNodeRevisited, fr.id)
		}
		visited[fr.id] = true

		f := s.Feature[fr.id]
		if f == forest.LeafFeature {
			*fr.slot = leafFromCounts(s.Value[fr.id])
			continue
		}
		if f < 0 || f >= len(features) {
			return nil, fmt.Errorf("%w: node %d uses feature %d of %d", ErrFeatureIndex, fr.id, f, len(features))
		}

		left, right := s.ChildrenLeft[fr.id], s.ChildrenRight[fr.id]
		if left < 0 || left >= n || right < 0 || right >= n {
			return nil, fmt.Errorf("%w: node %d has children %d/%d of %d", ErrChildIndex, fr.id, left, right, n)
		}

		split := &Split{Feature: features[f], Threshold: s.Threshold[fr.id]}
		*fr.slot = split
		stack = append(stack,
			frame{id: right, slot: &split.Right},
			frame{id: left, slot: &split.Left},
		)
	}

	return root, nil
}

// SerializeForest serializes every tree in order.
func SerializeForest(f *forest.Forest, features []string) (Forest, error) {
	if len(f.Trees) == 0 {
		return nil, ErrNoTrees
	}
	out := make(Forest, len(f.Trees))
	for i, t := range f.Trees {
		root, err := SerializeTree(&t.TreeStructure, features)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		out[i] = root
	}
	return out, nil
}

func leafFromCounts(v [2]float64) *Leaf {
	total := v[0] + v[1]
	p := 0.0
	if total > 0 {
		p = math.Max(0, math.Min(1, v[1]/total))
	}
	return &Leaf{Probability: p, Positive: v[1], Total: total}
}

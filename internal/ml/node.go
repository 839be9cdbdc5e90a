package ml

import (
	"encoding/json"
	"fmt"
	"math"
)

// Node is one decision-tree node: either a *Leaf or a *Split.
type Node interface {
	isNode()
}

// Leaf holds the fraud probability of a terminal node. Positive and Total
// carry the weighted class counts it was derived from and are not encoded.
type Leaf struct {
	Probability float64
	Positive    float64
	Total       float64
}

// Split routes a row left when row[Feature] <= Threshold, right otherwise.
type Split struct {
	Feature   string
	Threshold float64
	Left      Node
	Right     Node
}

func (*Leaf) isNode()  {}
func (*Split) isNode() {}

const (
	tagSplit = "n"
	tagLeaf  = "l"
)

// Round4 rounds to the four decimals used by the compact encoding.
func Round4(x float64) float64 {
	r := math.Round(x*1e4) / 1e4
	if r == 0 {
		return 0 // no negative zero
	}
	return r
}

type leafJSON struct {
	T string  `json:"t"`
	V float64 `json:"v"`
}

type splitJSON struct {
	T string  `json:"t"`
	F string  `json:"f"`
	V float64 `json:"v"`
	L Node    `json:"l"`
	R Node    `json:"r"`
}

// wireNode is the compact encoding of either node kind. A whole tree
// decodes into it with a single json.Unmarshal pass.
type wireNode struct {
	T string    `json:"t"`
	F string    `json:"f"`
	V float64   `json:"v"`
	L *wireNode `json:"l"`
	R *wireNode `json:"r"`
}

// build converts the wire tree with an explicit stack, so its cost is
// linear in the node count. The JSON decoder itself caps nesting at
// 10000 levels, well past MaxTreeDepth.
func (w *wireNode) build() (Node, error) {
	type frame struct {
		w   *wireNode
		dst *Node
	}
	var root Node
	stack := []frame{{w, &root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.w == nil {
			return nil, fmt.Errorf("%w: split is missing a child", ErrUnknownNode)
		}
		switch f.w.T {
		case tagLeaf:
			*f.dst = &Leaf{Probability: f.w.V}
		case tagSplit:
			s := &Split{Feature: f.w.F, Threshold: f.w.V}
			*f.dst = s
			stack = append(stack, frame{f.w.R, &s.Right}, frame{f.w.L, &s.Left})
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownNode, f.w.T)
		}
	}
	return root, nil
}

func (l *Leaf) MarshalJSON() ([]byte, error) {
	return json.Marshal(leafJSON{T: tagLeaf, V: Round4(l.Probability)})
}

func (s *Split) MarshalJSON() ([]byte, error) {
	if s.Left == nil || s.Right == nil {
		return nil, fmt.Errorf("split on %s is missing a child", s.Feature)
	}
	return json.Marshal(splitJSON{T: tagSplit, F: s.Feature, V: Round4(s.Threshold), L: s.Left, R: s.Right})
}

func (l *Leaf) UnmarshalJSON(data []byte) error {
	var aux leafJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.T != tagLeaf {
		return fmt.Errorf("%w: expected leaf tag, got %q", ErrUnknownNode, aux.T)
	}
	l.Probability = aux.V
	return nil
}

func (s *Split) UnmarshalJSON(data []byte) error {
	n, err := DecodeNode(data)
	if err != nil {
		return err
	}
	split, ok := n.(*Split)
	if !ok {
		return fmt.Errorf("%w: expected split tag", ErrUnknownNode)
	}
	*s = *split
	return nil
}

// DecodeNode reads one compact-encoded tree, dispatching on each "t" tag.
func DecodeNode(data []byte) (Node, error) {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return w.build()
}

// Forest is an ordered list of tree roots.
type Forest []Node

func (f *Forest) UnmarshalJSON(data []byte) error {
	var raw []*wireNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Forest, len(raw))
	for i, w := range raw {
		n, err := w.build()
		if err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
		out[i] = n
	}
	*f = out
	return nil
}

// Evaluate walks a row down the tree and returns the leaf probability.
// index maps feature names to row positions.
func Evaluate(root Node, row []float64, index map[string]int) (float64, error) {
	n := root
	for {
		switch v := n.(type) {
		case *Leaf:
			return v.Probability, nil
		case *Split:
			i, ok := index[v.Feature]
			if !ok || i >= len(row) {
				return 0, fmt.Errorf("%w: %s", ErrUnknownFeature, v.Feature)
			}
			if row[i] <= v.Threshold {
				n = v.Left
			} else {
				n = v.Right
			}
		default:
			return 0, ErrUnknownNode
		}
	}
}

// CountNodes returns the number of splits and leaves under root.
func CountNodes(root Node) (splits, leaves int) {
	stack := []Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch v := n.(type) {
		case *Leaf:
			leaves++
		case *Split:
			splits++
			stack = append(stack, v.Right, v.Left)
		}
	}
	return splits, leaves
}

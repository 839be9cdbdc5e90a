package ml

import (
	"encoding/json"
	"fmt"
)

// VerboseNode is the human-readable single-tree encoding. Thresholds and
// values keep full precision.
type VerboseNode struct {
	Type      string       `json:"type"`
	Feature   string       `json:"feature,omitempty"`
	Threshold *float64     `json:"threshold,omitempty"`
	Operator  string       `json:"operator,omitempty"`
	Left      *VerboseNode `json:"left,omitempty"`
	Right     *VerboseNode `json:"right,omitempty"`
	Value     *float64     `json:"value,omitempty"`
	Reason    string       `json:"reason,omitempty"`
}

// ToVerbose converts a Node tree into its verbose form.
func ToVerbose(root Node) (*VerboseNode, error) {
	type frame struct {
		node Node
		slot **VerboseNode
	}

	var out *VerboseNode
	stack := []frame{{node: root, slot: &out}}
	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch v := fr.node.(type) {
		case *Leaf:
			p := v.Probability
			*fr.slot = &VerboseNode{Type: "leaf", Value: &p, Reason: leafReason(v)}
		case *Split:
			t := v.Threshold
			vn := &VerboseNode{Type: "node", Feature: v.Feature, Threshold: &t, Operator: "<="}
			*fr.slot = vn
			stack = append(stack,
				frame{node: v.Right, slot: &vn.Right},
				frame{node: v.Left, slot: &vn.Left},
			)
		default:
			return nil, ErrUnknownNode
		}
	}
	return out, nil
}

func leafReason(l *Leaf) string {
	if l.Total <= 0 {
		return "leaf"
	}
	return fmt.Sprintf("p=%.2f (%d/%d)", l.Probability, int(l.Positive), int(l.Total))
}

// MarshalVerbose renders a tree as indented verbose JSON.
func MarshalVerbose(root Node) ([]byte, error) {
	v, err := ToVerbose(root)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(v, "", "  ")
}

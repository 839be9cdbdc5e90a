package forest

import (
	"math"
	"math/rand"
	"sort"

	"fraud-forest/internal/dataset"
)

const minGain = 1e-12

type frame struct {
	rows   []int
	depth  int
	parent int
	left   bool
}

type split struct {
	feature   int
	threshold float64
	gain      float64 // weighted impurity decrease, unnormalized
}

type grower struct {
	d           *dataset.Dataset
	weights     []float64
	p           TreeParams
	rng         *rand.Rand
	tree        *Tree
	nFeatures   int
	maxFeatures int
	totalWeight float64
	sortBuf     []int
}

func newGrower(d *dataset.Dataset, weights []float64, p TreeParams, rng *rand.Rand) *grower {
	n := len(d.Features)
	mf := p.MaxFeatures
	if mf <= 0 || mf > n {
		mf = n
	}
	var total float64
	for _, w := range weights {
		total += w
	}
	return &grower{
		d:           d,
		weights:     weights,
		p:           p,
		rng:         rng,
		tree:        &Tree{NFeatures: n, importances: make([]float64, n)},
		nFeatures:   n,
		maxFeatures: mf,
		totalWeight: total,
	}
}

// grow builds the tree depth-first with an explicit stack. The left child
// is pushed last so it is popped first, which keeps ids in preorder.
func (g *grower) grow(root []int) {
	stack := []frame{{rows: root, depth: 0, parent: NoChild}}
	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		counts := g.classCounts(fr.rows)
		id := g.tree.addNode(counts)
		if fr.parent != NoChild {
			if fr.left {
				g.tree.ChildrenLeft[fr.parent] = id
			} else {
				g.tree.ChildrenRight[fr.parent] = id
			}
		}
		if fr.depth > g.tree.Depth {
			g.tree.Depth = fr.depth
		}

		s, ok := g.bestSplit(fr, counts)
		if !ok {
			continue
		}

		g.tree.Feature[id] = s.feature
		g.tree.Threshold[id] = s.threshold
		if g.totalWeight > 0 {
			g.tree.importances[s.feature] += s.gain / g.totalWeight
		}

		var left, right []int
		for _, r := range fr.rows {
			if g.d.Rows[r][s.feature] <= s.threshold {
				left = append(left, r)
			} else {
				right = append(right, r)
			}
		}
		stack = append(stack,
			frame{rows: right, depth: fr.depth + 1, parent: id, left: false},
			frame{rows: left, depth: fr.depth + 1, parent: id, left: true},
		)
	}

	normalize(g.tree.importances)
}

func (g *grower) classCounts(rows []int) [2]float64 {
	var c [2]float64
	for _, r := range rows {
		c[g.d.Labels[r]] += g.weights[r]
	}
	return c
}

func (g *grower) candidateFeatures() []int {
	if g.maxFeatures >= g.nFeatures {
		all := make([]int, g.nFeatures)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return g.rng.Perm(g.nFeatures)[:g.maxFeatures]
}

func (g *grower) bestSplit(fr frame, counts [2]float64) (split, bool) {
	minLeaf := g.p.MinSamplesLeaf
	if fr.depth >= g.p.MaxDepth || len(fr.rows) < 2*minLeaf || counts[0] == 0 || counts[1] == 0 {
		return split{}, false
	}

	parentWeight := counts[0] + counts[1]
	parentImpurity := gini(counts)

	if cap(g.sortBuf) < len(fr.rows) {
		g.sortBuf = make([]int, len(fr.rows))
	}
	buf := g.sortBuf[:len(fr.rows)]

	best := split{gain: minGain}
	found := false
	for _, f := range g.candidateFeatures() {
		copy(buf, fr.rows)
		rows := g.d.Rows
		sort.Slice(buf, func(i, j int) bool {
			a, b := rows[buf[i]][f], rows[buf[j]][f]
			if a != b {
				return a < b
			}
			return buf[i] < buf[j]
		})

		var left [2]float64
		for i := 0; i < len(buf)-1; i++ {
			r := buf[i]
			left[g.d.Labels[r]] += g.weights[r]

			nLeft := i + 1
			if nLeft < minLeaf {
				continue
			}
			if len(buf)-nLeft < minLeaf {
				break
			}

			lo, hi := rows[r][f], rows[buf[i+1]][f]
			if hi <= lo {
				continue
			}

			right := [2]float64{counts[0] - left[0], counts[1] - left[1]}
			wl, wr := left[0]+left[1], right[0]+right[1]
			if wl <= 0 || wr <= 0 {
				continue
			}

			gain := parentWeight*parentImpurity - wl*gini(left) - wr*gini(right)
			if gain > best.gain {
				best = split{feature: f, threshold: midpoint(lo, hi), gain: gain}
				found = true
			}
		}
	}
	return best, found
}

// midpoint falls back to the lower value when rounding lands on the upper
// one, so the lower value always goes left.
func midpoint(lo, hi float64) float64 {
	t := lo/2 + hi/2
	if t >= hi || math.IsInf(t, 0) {
		return lo
	}
	return t
}

func gini(c [2]float64) float64 {
	total := c[0] + c[1]
	if total <= 0 {
		return 0
	}
	p0, p1 := c[0]/total, c[1]/total
	return 1 - p0*p0 - p1*p1
}

func normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x
	}
	if sum <= 0 {
		return
	}
	for i := range v {
		v[i] /= sum
	}
}

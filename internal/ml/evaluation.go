package ml

import (
	"errors"
	"sort"
)

var ErrScoreShape = errors.New("labels and scores differ in length")

// Confusion is a binary confusion matrix at one threshold.
type Confusion struct {
	TP, FP, TN, FN int
}

// NewConfusion counts outcomes, predicting fraud when score >= threshold.
func NewConfusion(labels []int, scores []float64, threshold float64) (Confusion, error) {
	if len(labels) != len(scores) {
		return Confusion{}, ErrScoreShape
	}
	var c Confusion
	for i, y := range labels {
		predicted := scores[i] >= threshold
		switch {
		case predicted && y == 1:
			c.TP++
		case predicted:
			c.FP++
		case y == 1:
			c.FN++
		default:
			c.TN++
		}
	}
	return c, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func (c Confusion) Precision() float64 { return ratio(c.TP, c.TP+c.FP) }
func (c Confusion) Recall() float64    { return ratio(c.TP, c.TP+c.FN) }
func (c Confusion) FPR() float64       { return ratio(c.FP, c.FP+c.TN) }
func (c Confusion) FNR() float64       { return ratio(c.FN, c.FN+c.TP) }

func (c Confusion) Accuracy() float64 {
	return ratio(c.TP+c.TN, c.TP+c.TN+c.FP+c.FN)
}

func (c Confusion) F1() float64 {
	p, r := c.Precision(), c.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// Positives and Negatives return the class supports.
func (c Confusion) Positives() int { return c.TP + c.FN }
func (c Confusion) Negatives() int { return c.TN + c.FP }

// ROCAUC computes the area under the ROC curve via the rank statistic,
// averaging ranks across tied scores. Returns 0.5 when one class is absent.
func ROCAUC(labels []int, scores []float64) (float64, error) {
	if len(labels) != len(scores) {
		return 0, ErrScoreShape
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return scores[order[a]] < scores[order[b]] })

	var rankSumPos float64
	nPos, nNeg := 0, 0
	for i := 0; i < len(order); {
		j := i
		for j+1 < len(order) && scores[order[j+1]] == scores[order[i]] {
			j++
		}
		avgRank := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			if labels[order[k]] == 1 {
				rankSumPos += avgRank
			}
		}
		i = j + 1
	}
	for _, y := range labels {
		if y == 1 {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0.5, nil
	}

	u := rankSumPos - float64(nPos*(nPos+1))/2
	return u / float64(nPos*nNeg), nil
}

// Package threshold sweeps decision thresholds over scored rows and
// reports confusion-matrix metrics at each operating point.
package threshold

import (
	"fmt"
	"math"

	"fraud-forest/internal/ml"
)

// Metric is the confusion matrix and derived rates at one threshold.
type Metric struct {
	Threshold       float64 `json:"threshold"`
	TP              int     `json:"tp"`
	FP              int     `json:"fp"`
	TN              int     `json:"tn"`
	FN              int     `json:"fn"`
	Precision       float64 `json:"precision"`
	Recall          float64 `json:"recall"`
	FPR             float64 `json:"fpr"`
	FNR             float64 `json:"fnr"`
	SupportPositive int     `json:"support_positive"`
	SupportNegative int     `json:"support_negative"`
}

// Range bounds a sweep. Max is included.
type Range struct {
	Min  float64
	Max  float64
	Step float64
}

// Thresholds are rounded to 10 decimals, so steps below minStep would
// collapse into repeated points.
const (
	minStep   = 1e-9
	maxPoints = 1_000_000
)

func (r Range) Validate() error {
	if !(r.Step >= minStep) || math.IsInf(r.Step, 0) {
		return fmt.Errorf("%w, got %g", ErrInvalidStep, r.Step)
	}
	if !finite(r.Min) || !finite(r.Max) || !(r.Max >= r.Min) {
		return fmt.Errorf("%w: min=%g max=%g", ErrInvalidRange, r.Min, r.Max)
	}
	if n := r.count(); !(n <= maxPoints) {
		return fmt.Errorf("%w: %g points", ErrTooManyPoints, n)
	}
	return nil
}

// count is the number of points t_i = min + i*step with t_i <= max + step/10.
func (r Range) count() float64 {
	return math.Floor((r.Max-r.Min)/r.Step+0.1) + 1
}

// Thresholds lists min, min+step, ... up to max. Each point is computed as
// min + i*step rather than by repeated addition, rounded to 10 decimals,
// and the upper bound gets a step/10 tolerance so max itself is kept.
func (r Range) Thresholds() ([]float64, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	n := int(r.count())
	out := make([]float64, n)
	for i := range out {
		out[i] = roundTo(r.Min+float64(i)*r.Step, 10)
	}
	return out, nil
}

// Scan evaluates every threshold in the range. A row is predicted
// positive when its score is >= the threshold.
func Scan(scores []float64, labels []int, r Range) ([]Metric, error) {
	thresholds, err := r.Thresholds()
	if err != nil {
		return nil, err
	}
	if len(scores) != len(labels) {
		return nil, ml.ErrScoreShape
	}

	out := make([]Metric, 0, len(thresholds))
	for _, t := range thresholds {
		c, err := ml.NewConfusion(labels, scores, t)
		if err != nil {
			return nil, err
		}
		out = append(out, Metric{
			Threshold:       t,
			TP:              c.TP,
			FP:              c.FP,
			TN:              c.TN,
			FN:              c.FN,
			Precision:       ml.Round4(c.Precision()),
			Recall:          ml.Round4(c.Recall()),
			FPR:             ml.Round4(c.FPR()),
			FNR:             ml.Round4(c.FNR()),
			SupportPositive: c.Positives(),
			SupportNegative: c.Negatives(),
		})
	}
	return out, nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func roundTo(x float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(x*p) / p
}

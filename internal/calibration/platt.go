// Package calibration fits Platt scaling on raw forest scores and reads
// and writes calibration datasets.
package calibration

import (
	"fmt"
	"math"

	"fraud-forest/internal/common"

	"github.com/rs/zerolog/log"
)

// Mode records which rows the calibration was fitted on.
type Mode string

const (
	ModeHoldout  Mode = "holdout"
	ModeTraining Mode = "training"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeHoldout, ModeTraining:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w, got %q", ErrInvalidMode, s)
}

// probability clamp for saturated logits
const epsilon = 1e-15

// Model maps a raw score s to 1/(1+exp(-(Intercept + Coefficient*s))).
type Model struct {
	Intercept   float64
	Coefficient float64
}

// Predict returns the calibrated probability, always strictly inside (0,1).
func (m Model) Predict(score float64) float64 {
	p := sigmoid(m.Intercept + m.Coefficient*score)
	return math.Min(1-epsilon, math.Max(epsilon, p))
}

// PredictAll calibrates every score.
func (m Model) PredictAll(scores []float64) []float64 {
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = m.Predict(s)
	}
	return out
}

// Inverted reports a non-positive slope: higher raw scores would not mean
// higher fraud probability.
func (m Model) Inverted() bool {
	return m.Coefficient <= 0
}

// Options tune the regularized fit.
type Options struct {
	C       float64 // inverse L2 strength on the coefficient
	MaxIter int
	Tol     float64
}

func DefaultOptions() Options {
	return Options{C: common.DefaultCalibrationC, MaxIter: 100, Tol: 1e-10}
}

// Result is a fitted model with fit diagnostics.
type Result struct {
	Model
	Samples    int
	Mode       Mode
	Iterations int
	Converged  bool
}

// Fit runs Newton-Raphson with step halving on the L2-penalized logistic
// loss 0.5*w^2 + C*sum(logloss). The intercept is not penalized.
func Fit(scores []float64, labels []int, opts Options) (Result, error) {
	if err := validate(scores, labels); err != nil {
		return Result{}, err
	}
	if opts.C <= 0 {
		opts.C = common.DefaultCalibrationC
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = 100
	}
	if opts.Tol <= 0 {
		opts.Tol = 1e-10
	}

	var pos float64
	for _, y := range labels {
		pos += float64(y)
	}
	n := float64(len(labels))

	b := math.Log(pos / (n - pos))
	w := 0.0
	c := opts.C
	loss := objective(scores, labels, b, w, c)

	res := Result{Samples: len(scores)}
	for iter := 1; iter <= opts.MaxIter; iter++ {
		res.Iterations = iter

		var gb, gw, hbb, hbw, hww float64
		for i, s := range scores {
			p := sigmoid(b + w*s)
			r := p - float64(labels[i])
			v := p * (1 - p)
			gb += r
			gw += r * s
			hbb += v
			hbw += v * s
			hww += v * s * s
		}
		gb *= c
		gw = w + c*gw
		hbb = c*hbb + 1e-12
		hbw *= c
		hww = 1 + c*hww

		det := hbb*hww - hbw*hbw
		if det <= 0 {
			break
		}
		db := (hww*gb - hbw*gw) / det
		dw := (hbb*gw - hbw*gb) / det

		// rounding slack near the optimum
		slack := 1e-12 * (1 + math.Abs(loss))
		step := 1.0
		nb, nw := b-db, w-dw
		newLoss := objective(scores, labels, nb, nw, c)
		for halvings := 0; newLoss > loss+slack && halvings < 50; halvings++ {
			step /= 2
			nb, nw = b-step*db, w-step*dw
			newLoss = objective(scores, labels, nb, nw, c)
		}
		if newLoss > loss+slack {
			res.Converged = true // no descent direction left
			break
		}

		moved := math.Max(math.Abs(nb-b), math.Abs(nw-w))
		b, w, loss = nb, nw, newLoss
		if moved < opts.Tol {
			res.Converged = true
			break
		}
	}

	res.Model = Model{Intercept: b, Coefficient: w}
	if !res.Converged {
		log.Warn().Int("iterations", res.Iterations).Msg("Platt scaling did not converge")
	}
	return res, nil
}

// FitMode fits and tags the result with the rows it was fitted on.
func FitMode(scores []float64, labels []int, mode Mode, opts Options) (Result, error) {
	res, err := Fit(scores, labels, opts)
	if err != nil {
		return Result{}, err
	}
	res.Mode = mode

	log.Info().
		Str("mode", string(mode)).
		Int("samples", res.Samples).
		Float64("intercept", res.Intercept).
		Float64("coef", res.Coefficient).
		Int("iterations", res.Iterations).
		Msg("Platt scaling coefficients")

	if res.Inverted() {
		log.Warn().
			Float64("coef", res.Coefficient).
			Msg("Calibration coefficient is not positive, higher scores do not mean higher fraud probability")
	}
	return res, nil
}

func validate(scores []float64, labels []int) error {
	if len(scores) != len(labels) {
		return fmt.Errorf("%w: %d scores, %d labels", ErrLengthMismatch, len(scores), len(labels))
	}
	if len(scores) == 0 {
		return ErrEmptyInput
	}
	var seen [2]bool
	for i, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return fmt.Errorf("row %d: %w", i, ErrNonFiniteScore)
		}
		y := labels[i]
		if y != 0 && y != 1 {
			return fmt.Errorf("row %d: %w, got %d", i, ErrInvalidLabel, y)
		}
		seen[y] = true
	}
	if !seen[0] || !seen[1] {
		return ErrSingleClass
	}
	return nil
}

func objective(scores []float64, labels []int, b, w, c float64) float64 {
	var sum float64
	for i, s := range scores {
		z := b + w*s
		sum += softplus(z) - float64(labels[i])*z
	}
	return 0.5*w*w + c*sum
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus computes log(1+exp(z)) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

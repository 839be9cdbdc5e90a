package calibration

import "errors"

var (
	ErrSingleClass    = errors.New("calibration requires both classes")
	ErrLengthMismatch = errors.New("scores and labels differ in length")
	ErrEmptyInput     = errors.New("no calibration samples")
	ErrNonFiniteScore = errors.New("score is not finite")
	ErrInvalidLabel   = errors.New("label must be 0 or 1")
	ErrMissingColumn  = errors.New("calibration CSV must contain 'score' and 'label' columns")
	ErrInputNotFound  = errors.New("calibration input file not found")
	ErrInvalidMode    = errors.New("calibration mode must be holdout or training")
)

package threshold

import "errors"

var (
	ErrInvalidStep   = errors.New("scan step must be positive and at least 1e-9")
	ErrInvalidRange  = errors.New("scan bounds must be finite with max not below min")
	ErrTooManyPoints = errors.New("scan range yields too many thresholds")
)

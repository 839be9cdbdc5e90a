package dataset

import "errors"

var (
	ErrDatasetNotFound  = errors.New("dataset not found")
	ErrMissingLabel     = errors.New("missing label column")
	ErrNoFeatures       = errors.New("dataset does not contain feature columns")
	ErrInvalidValue     = errors.New("invalid numeric value")
	ErrInvalidLabel     = errors.New("label must be 0 or 1")
	ErrEmptyDataset     = errors.New("dataset has no rows")
	ErrLengthMismatch   = errors.New("rows, labels and weights differ in length")
	ErrInvalidTestSize  = errors.New("test size must be between 0 and 1")
	ErrInvalidFoldCount = errors.New("fold count must be at least 2")
	ErrTooFewSamples    = errors.New("not enough samples per class")
)

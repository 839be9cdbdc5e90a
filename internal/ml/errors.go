package ml

import "errors"

var (
	ErrUnknownNode     = errors.New("unknown node type")
	ErrUnknownFeature  = errors.New("unknown feature")
	ErrFeatureIndex    = errors.New("feature index out of range")
	ErrChildIndex      = errors.New("child index out of range")
	ErrNodeRevisited   = errors.New("node reached twice")
	ErrShapeMismatch   = errors.New("tree arrays differ in length")
	ErrEmptyTree       = errors.New("tree has no nodes")
	ErrNoTrees         = errors.New("forest has no trees")
	ErrImportanceShape = errors.New("importances do not match features")
)

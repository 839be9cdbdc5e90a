package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"fraud-forest/internal/forest"
	"fraud-forest/internal/ml"

	"github.com/rs/zerolog/log"
)

// TreeOptions configures a single-tree export.
type TreeOptions struct {
	Output         string
	MaxDepth       int
	MinSamplesLeaf int
}

// TreeResult describes an exported tree.
type TreeResult struct {
	Path   string
	Nodes  int
	Leaves int
	Depth  int
}

// ExportTree fits one unweighted tree on every feature and writes its
// verbose JSON encoding.
func (p *Pipeline) ExportTree(ctx context.Context, opts TreeOptions) (*TreeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d, err := p.loadDataset()
	if err != nil {
		return nil, err
	}

	tree, err := forest.FitTree(d, forest.TreeParams{
		MaxDepth:       opts.MaxDepth,
		MinSamplesLeaf: opts.MinSamplesLeaf,
		Seed:           p.settings.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("fit tree: %w", err)
	}

	root, err := ml.SerializeTree(&tree.TreeStructure, d.Features)
	if err != nil {
		return nil, fmt.Errorf("serialize tree: %w", err)
	}
	data, err := ml.MarshalVerbose(root)
	if err != nil {
		return nil, fmt.Errorf("encode tree: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.Output), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write tree: %w", err)
	}

	res := &TreeResult{
		Path:   opts.Output,
		Nodes:  tree.NodeCount(),
		Leaves: tree.LeafCount(),
		Depth:  tree.Depth,
	}
	log.Info().
		Str("path", res.Path).
		Int("nodes", res.Nodes).
		Int("leaves", res.Leaves).
		Int("depth", res.Depth).
		Msg("Decision tree saved")
	return res, nil
}

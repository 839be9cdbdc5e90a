package main

import (
	"fmt"

	"fraud-forest/internal/cfg"
	"fraud-forest/internal/common"

	"github.com/spf13/cobra"
)

type trainForestCmdConfig struct {
	*rootCmdConfig
	dataset           string
	labelColumn       string
	output            string
	nTrees            int
	maxDepth          int
	minSamplesLeaf    int
	maxFeatures       int
	conflictWeight    float64
	noSplit           bool
	testSize          float64
	calibrationOutput string
	runID             string
	runIDSuffix       bool
	seed              int64
}

func trainForestCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &trainForestCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "train-forest",
		Short: "Train a conflict-weighted random forest and export the artifact",
		Long: `Train a random forest with conflict zone sample weights, evaluate it on a
stratified holdout split, fit Platt calibration and write the minified
forest artifact.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := config.apply(cmd)
			if settings.DatasetPath == "" {
				return fmt.Errorf("required dataset flag was not set")
			}

			sess, err := newSession(&settings)
			if err != nil {
				return err
			}
			defer sess.Close()

			ctx, cancel := signalContext()
			defer cancel()

			_, err = sess.newPipeline().TrainForest(ctx)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&config.dataset, "dataset", "d", "", "CSV with engineered features and a label column (overrides DATASET_PATH)")
	f.StringVar(&config.labelColumn, "label-column", common.DefaultLabelColumn, "name of the target column")
	f.StringVarP(&config.output, "output", "o", common.DefaultArtifactOutput, "output artifact path")
	f.IntVar(&config.nTrees, "n-trees", common.DefaultNTrees, "number of trees")
	f.IntVar(&config.maxDepth, "max-depth", common.DefaultMaxDepth, "maximum tree depth")
	f.IntVar(&config.minSamplesLeaf, "min-samples-leaf", common.DefaultMinSamplesLeaf, "minimum samples per leaf")
	f.IntVar(&config.maxFeatures, "max-features", 0, "features drawn per split (0 selects sqrt of the feature count)")
	f.Float64Var(&config.conflictWeight, "conflict-weight", common.DefaultConflictWeight, "weight for conflict zone samples")
	f.BoolVar(&config.noSplit, "no-split", false, "train on all rows without a holdout split")
	f.Float64Var(&config.testSize, "test-size", common.DefaultTestSize, "holdout fraction per class")
	f.StringVar(&config.calibrationOutput, "calibration-output", common.DefaultCalibrationOutput, "CSV path for calibration scores and labels")
	f.StringVar(&config.runID, "run-id", "", "training run id (defaults to the current time in milliseconds)")
	f.BoolVar(&config.runIDSuffix, "run-id-suffix", false, "append a random suffix to generated run ids")
	f.Int64Var(&config.seed, "seed", common.DefaultSeed, "random seed for the split and the forest")
	return cmd
}

// apply returns the loaded settings with explicitly set flags on top.
func (c *trainForestCmdConfig) apply(cmd *cobra.Command) (s cfg.Settings) {
	s = c.settings
	f := cmd.Flags()
	if f.Changed("dataset") {
		s.DatasetPath = c.dataset
	}
	if f.Changed("label-column") {
		s.LabelColumn = c.labelColumn
	}
	if f.Changed("output") {
		s.ArtifactOutput = c.output
	}
	if f.Changed("n-trees") {
		s.NTrees = c.nTrees
	}
	if f.Changed("max-depth") {
		s.MaxDepth = c.maxDepth
	}
	if f.Changed("min-samples-leaf") {
		s.MinSamplesLeaf = c.minSamplesLeaf
	}
	if f.Changed("max-features") {
		s.MaxFeatures = c.maxFeatures
	}
	if f.Changed("conflict-weight") {
		s.ConflictWeight = c.conflictWeight
	}
	if f.Changed("no-split") {
		s.NoSplit = c.noSplit
	}
	if f.Changed("test-size") {
		s.TestSize = c.testSize
	}
	if f.Changed("calibration-output") {
		s.CalibrationOutput = c.calibrationOutput
	}
	if f.Changed("run-id") {
		s.RunID = c.runID
	}
	if f.Changed("run-id-suffix") {
		s.RunIDSuffix = c.runIDSuffix
	}
	if f.Changed("seed") {
		s.Seed = c.seed
	}
	return s
}

package main

import (
	"fmt"

	"fraud-forest/internal/cfg"
	"fraud-forest/internal/common"
	"fraud-forest/internal/dataset"
	"fraud-forest/internal/tuning"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type tuneCmdConfig struct {
	*rootCmdConfig
	dataset     string
	labelColumn string
	nIter       int
	cv          int
	scoring     string
	seed        int64
	space       tuning.SearchSpace
	output      string
}

func tuneCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &tuneCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "Randomized hyperparameter search with stratified cross-validation",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := config.settings
			if cmd.Flags().Changed("dataset") {
				settings.DatasetPath = config.dataset
			}
			if cmd.Flags().Changed("label-column") {
				settings.LabelColumn = config.labelColumn
			}
			if settings.DatasetPath == "" {
				return fmt.Errorf("required dataset flag was not set")
			}
			return config.run(&settings)
		},
	}
	def := tuning.DefaultSearchSpace()
	f := cmd.Flags()
	f.StringVarP(&config.dataset, "dataset", "d", "", "CSV with engineered features and a label column (overrides DATASET_PATH)")
	f.StringVar(&config.labelColumn, "label-column", common.DefaultLabelColumn, "name of the target column")
	f.IntVar(&config.nIter, "n-iter", 25, "number of sampled parameter sets")
	f.IntVar(&config.cv, "cv", 5, "number of stratified folds")
	f.StringVar(&config.scoring, "scoring", string(tuning.ScoringROCAUC), "roc_auc, accuracy, precision, recall or f1")
	f.Int64Var(&config.seed, "seed", common.DefaultSeed, "random seed for sampling, folds and forests")
	f.IntVar(&config.space.NEstimators.Min, "n-estimators-min", def.NEstimators.Min, "lower bound for the number of trees")
	f.IntVar(&config.space.NEstimators.Max, "n-estimators-max", def.NEstimators.Max, "upper bound for the number of trees")
	f.IntVar(&config.space.MaxDepth.Min, "max-depth-min", def.MaxDepth.Min, "lower bound for max depth")
	f.IntVar(&config.space.MaxDepth.Max, "max-depth-max", def.MaxDepth.Max, "upper bound for max depth")
	f.IntVar(&config.space.MinSamplesLeaf.Min, "min-samples-leaf-min", def.MinSamplesLeaf.Min, "lower bound for min samples per leaf")
	f.IntVar(&config.space.MinSamplesLeaf.Max, "min-samples-leaf-max", def.MinSamplesLeaf.Max, "upper bound for min samples per leaf")
	f.StringVarP(&config.output, "output", "o", "", "optional JSON summary path")
	return cmd
}

func (c *tuneCmdConfig) run(settings *cfg.Settings) error {
	scoring, err := tuning.ParseScoring(c.scoring)
	if err != nil {
		return err
	}
	sess, err := newSession(settings)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, cancel := signalContext()
	defer cancel()

	d, err := dataset.LoadCSV(settings.DatasetPath, dataset.Options{
		LabelColumn:    settings.LabelColumn,
		ExcludeColumns: settings.ExcludeColumns,
	})
	if err != nil {
		return err
	}
	legit, fraud := d.ClassCounts()
	log.Info().
		Str("dataset", settings.DatasetPath).
		Int("rows", d.Len()).
		Int("features", len(d.Features)).
		Int("legit", legit).
		Int("fraud", fraud).
		Msg("Loaded dataset for tuning")

	opts := tuning.Options{
		Space:   c.space,
		NIter:   c.nIter,
		CV:      c.cv,
		Scoring: scoring,
		Seed:    c.seed,
	}
	res, err := tuning.Search(ctx, d, opts)
	if err != nil {
		return err
	}

	for _, cand := range res.Top(5) {
		log.Info().
			Int("rank", cand.Rank).
			Float64("mean_score", cand.MeanScore).
			Int("n_estimators", cand.Params.NEstimators).
			Int("max_depth", cand.Params.MaxDepth).
			Int("min_samples_leaf", cand.Params.MinSamplesLeaf).
			Msg("Candidate")
	}
	best := res.Best()
	log.Info().
		Str("scoring", string(scoring)).
		Float64("best_score", best.MeanScore).
		Str("command", tuning.SuggestedCommand(best.Params)).
		Msg("Tuning complete")

	if c.output == "" {
		return nil
	}
	summary := tuning.NewSummary(tuning.SummaryInput{
		Dataset:      settings.DatasetPath,
		Rows:         d.Len(),
		LabelColumn:  settings.LabelColumn,
		FeatureCount: len(d.Features),
		Options:      opts,
	}, res)
	return summary.Write(c.output)
}

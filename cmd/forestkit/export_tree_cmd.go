package main

import (
	"fmt"

	"fraud-forest/internal/common"
	"fraud-forest/internal/pipeline"

	"github.com/spf13/cobra"
)

type exportTreeCmdConfig struct {
	*rootCmdConfig
	dataset        string
	labelColumn    string
	output         string
	maxDepth       int
	minSamplesLeaf int
}

func exportTreeCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &exportTreeCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "export-tree",
		Short: "Train a single decision tree and export it as verbose JSON",
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

			sess, err := newSession(&settings)
			if err != nil {
				return err
			}
			defer sess.Close()

			ctx, cancel := signalContext()
			defer cancel()

			_, err = sess.newPipeline().ExportTree(ctx, pipeline.TreeOptions{
				Output:         config.output,
				MaxDepth:       config.maxDepth,
				MinSamplesLeaf: config.minSamplesLeaf,
			})
			return err
		},
	}
	cmd.Flags().StringVarP(&config.dataset, "dataset", "d", "", "CSV with engineered features and a label column (overrides DATASET_PATH)")
	cmd.Flags().StringVar(&config.labelColumn, "label-column", common.DefaultLabelColumn, "name of the target column")
	cmd.Flags().StringVarP(&config.output, "output", "o", common.DefaultTreeOutput, "output JSON path")
	cmd.Flags().IntVar(&config.maxDepth, "max-depth", common.DefaultMaxDepth, "maximum tree depth")
	cmd.Flags().IntVar(&config.minSamplesLeaf, "min-samples-leaf", common.DefaultTreeMinLeaf, "minimum samples per leaf")
	return cmd
}

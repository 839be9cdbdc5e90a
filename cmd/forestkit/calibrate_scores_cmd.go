package main

import (
	"fraud-forest/internal/calibration"
	"fraud-forest/internal/common"
	"fraud-forest/internal/pipeline"

	"github.com/spf13/cobra"
)

const defaultCalibratedOutput = "data/calibration/calibrated.csv"

type calibrateScoresCmdConfig struct {
	*rootCmdConfig
	input    string
	output   string
	mode     string
	scanMin  float64
	scanMax  float64
	scanStep float64
	scanJSON string
	scanCSV  string
	scanRaw  bool
}

func calibrateScoresCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &calibrateScoresCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "calibrate-scores",
		Short: "Fit Platt scaling on a score,label CSV and sweep thresholds",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := calibration.ParseMode(config.mode)
			if err != nil {
				return err
			}
			settings := config.settings
			f := cmd.Flags()
			if f.Changed("scan-min") {
				settings.Scan.Min = config.scanMin
			}
			if f.Changed("scan-max") {
				settings.Scan.Max = config.scanMax
			}
			if f.Changed("scan-step") {
				settings.Scan.Step = config.scanStep
			}

			sess, err := newSession(&settings)
			if err != nil {
				return err
			}
			defer sess.Close()

			ctx, cancel := signalContext()
			defer cancel()

			_, err = sess.newPipeline().CalibrateScores(ctx, pipeline.CalibrateOptions{
				Input:    config.input,
				Output:   config.output,
				Mode:     mode,
				ScanJSON: config.scanJSON,
				ScanCSV:  config.scanCSV,
				ScanRaw:  config.scanRaw,
			})
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&config.input, "input", "i", common.DefaultCalibrationOutput, "CSV with score and label columns")
	f.StringVarP(&config.output, "output", "o", defaultCalibratedOutput, "CSV path for calibrated scores")
	f.StringVar(&config.mode, "mode", string(calibration.ModeHoldout), "where the scores came from: holdout or training")
	f.Float64Var(&config.scanMin, "scan-min", common.DefaultScanMin, "lowest threshold to evaluate")
	f.Float64Var(&config.scanMax, "scan-max", common.DefaultScanMax, "highest threshold to evaluate")
	f.Float64Var(&config.scanStep, "scan-step", common.DefaultScanStep, "threshold increment")
	f.StringVar(&config.scanJSON, "scan-json", "", "optional JSON report path")
	f.StringVar(&config.scanCSV, "scan-csv", "", "optional CSV report path")
	f.BoolVar(&config.scanRaw, "scan-raw", false, "sweep raw scores instead of calibrated probabilities")
	return cmd
}

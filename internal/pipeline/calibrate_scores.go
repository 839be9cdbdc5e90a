package pipeline

import (
	"context"
	"fmt"

	"fraud-forest/internal/calibration"
	"fraud-forest/internal/storage"
	"fraud-forest/internal/threshold"

	"github.com/rs/zerolog/log"
)

// CalibrateOptions configures calibrate-scores.
type CalibrateOptions struct {
	Input    string
	Output   string
	Mode     calibration.Mode // recorded on the fit; defaults to holdout
	ScanJSON string           // optional
	ScanCSV  string           // optional
	ScanRaw  bool             // scan raw scores instead of calibrated ones
}

// CalibrateResult summarizes a calibrate-scores run.
type CalibrateResult struct {
	Calibration calibration.Result
	Report      *threshold.Report
}

// CalibrateScores fits Platt scaling on a score,label CSV, writes the
// calibrated copy and sweeps thresholds over the chosen scores.
func (p *Pipeline) CalibrateScores(ctx context.Context, opts CalibrateOptions) (res *CalibrateResult, err error) {
	defer func() { p.recorder.RunFinished(err) }()

	scan := threshold.Range{Min: p.settings.Scan.Min, Max: p.settings.Scan.Max, Step: p.settings.Scan.Step}
	if err := scan.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table, err := calibration.ReadCSV(opts.Input)
	if err != nil {
		return nil, err
	}

	mode := opts.Mode
	if mode == "" {
		mode = calibration.ModeHoldout
	}
	fitOpts := calibration.DefaultOptions()
	fitOpts.C = p.settings.CalibrationC

	fit, err := calibration.FitMode(table.Scores, table.Labels, mode, fitOpts)
	if err != nil {
		return nil, fmt.Errorf("calibration failed: %w", err)
	}
	p.recorder.Calibration(fit.Intercept, fit.Coefficient)

	calibrated := fit.PredictAll(table.Scores)
	if err := calibration.WriteCSV(opts.Output, table, calibrated); err != nil {
		return nil, err
	}
	log.Info().Str("path", opts.Output).Int("rows", len(calibrated)).Msg("Saved calibrated scores")

	source, scores := threshold.SourceCalibrated, calibrated
	if opts.ScanRaw {
		source, scores = threshold.SourceRaw, table.Scores
	}
	points, err := threshold.Scan(scores, table.Labels, scan)
	if err != nil {
		return nil, err
	}

	report := threshold.NewReport(opts.Input, opts.Output, source, points)
	report.LogSummary()

	if opts.ScanJSON != "" {
		if err := report.WriteJSON(opts.ScanJSON); err != nil {
			return nil, err
		}
	}
	if opts.ScanCSV != "" {
		if err := report.WriteCSV(opts.ScanCSV); err != nil {
			return nil, err
		}
	}

	p.saveScan(opts, fit, report)
	return &CalibrateResult{Calibration: fit, Report: report}, nil
}

func (p *Pipeline) saveScan(opts CalibrateOptions, fit calibration.Result, report *threshold.Report) {
	if p.store == nil {
		return
	}
	record := storage.ScanRecord{
		CreatedAt:   p.now().UTC(),
		Input:       opts.Input,
		Output:      opts.Output,
		ScoreSource: report.ScoreSource,
		Samples:     fit.Samples,
		Intercept:   fit.Intercept,
		Coefficient: fit.Coefficient,
		Points:      len(report.Points),
	}
	if best, ok := report.Best(); ok {
		record.BestThreshold = best.Threshold
		record.BestPrecision = best.Precision
		record.BestRecall = best.Recall
	}
	if err := p.store.SaveScan(record); err != nil {
		log.Warn().Err(err).Msg("Failed to record scan")
	}
}

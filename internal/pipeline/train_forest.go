package pipeline

import (
	"context"
	"fmt"
	"time"

	"fraud-forest/internal/calibration"
	"fraud-forest/internal/dataset"
	"fraud-forest/internal/forest"
	"fraud-forest/internal/ml"
	"fraud-forest/internal/storage"
	"fraud-forest/internal/weighting"

	"github.com/rs/zerolog/log"
)

// Evaluation holds classification metrics at the 0.5 boundary.
type Evaluation struct {
	Rows      int
	Confusion ml.Confusion
	ROCAUC    float64
}

// TrainResult summarizes a train-forest run.
type TrainResult struct {
	RunID       string
	Artifact    ml.WriteResult
	Trees       int
	Stats       forest.Stats
	Weighting   weighting.Report
	Train       *Evaluation // nil with NoSplit
	Holdout     *Evaluation // nil with NoSplit
	Zone        *Evaluation // nil without a split or zone rows
	Calibration *calibration.Result
	Ranks       []ml.FeatureRank
	Parity      ml.VerifyReport
}

const topFeatures = 15

// TrainForest runs the full export: load, weight, split, train, evaluate,
// calibrate, serialize, write, verify and record.
func (p *Pipeline) TrainForest(ctx context.Context) (res *TrainResult, err error) {
	defer func() { p.recorder.RunFinished(err) }()

	s := p.settings
	d, err := p.loadDataset()
	if err != nil {
		return nil, err
	}

	legit, fraud := d.ClassCounts()
	log.Info().
		Int("rows", d.Len()).
		Int("features", len(d.Features)).
		Int("legit", legit).
		Int("fraud", fraud).
		Msg("Class distribution")

	res = &TrainResult{}

	weighter := weighting.New(p.policy(), d)
	weights, wrep := weighter.Weights(d)
	res.Weighting = wrep
	p.recorder.ZoneRows(wrep.ZoneRows)
	if d, err = d.WithWeights(weights); err != nil {
		return nil, err
	}

	train, test := d, (*dataset.Dataset)(nil)
	if s.NoSplit {
		log.Warn().Int("rows", d.Len()).Msg("Training on all rows, no evaluation split")
	} else {
		if train, test, err = dataset.StratifiedSplit(d, s.TestSize, s.Seed); err != nil {
			return nil, err
		}
		log.Info().Int("train", train.Len()).Int("test", test.Len()).Msg("Train/test split")
	}

	started := time.Now()
	f, err := forest.Fit(ctx, train, forest.Params{
		NTrees:         s.NTrees,
		MaxDepth:       s.MaxDepth,
		MinSamplesLeaf: s.MinSamplesLeaf,
		MaxFeatures:    s.MaxFeatures,
		Seed:           s.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("train forest: %w", err)
	}
	res.Trees = len(f.Trees)
	res.Stats = f.Stats()
	p.recorder.TrainingFinished(time.Since(started), res.Trees, res.Stats.Nodes)

	var (
		calScores []float64
		calLabels []int
		calMode   calibration.Mode
	)
	if test != nil {
		res.Train, err = evaluate(train.Labels, ml.ScoreAll(f, train.Rows))
		if err != nil {
			return nil, err
		}
		testScores := ml.ScoreAll(f, test.Rows)
		res.Holdout, err = evaluate(test.Labels, testScores)
		if err != nil {
			return nil, err
		}
		logEvaluation("train", res.Train)
		logEvaluation("test", res.Holdout)
		p.recorder.Holdout(res.Holdout.ROCAUC, res.Holdout.Confusion.Precision(), res.Holdout.Confusion.Recall())

		res.Zone = zoneEvaluation(weighter, test, testScores)
		calScores, calLabels, calMode = testScores, test.Labels, calibration.ModeHoldout
	} else {
		calScores, calLabels, calMode = ml.ScoreAll(f, train.Rows), train.Labels, calibration.ModeTraining
	}

	res.Calibration = p.calibrate(calScores, calLabels, calMode)

	importances := f.Importances()
	res.Ranks, err = ml.RankFeatures(d.Features, importances)
	if err != nil {
		return nil, err
	}
	ml.LogTopFeatures(res.Ranks, topFeatures)
	if r, ok := ml.FindFeature(res.Ranks, s.EntropyFeature); ok {
		log.Info().
			Str("feature", r.Name).
			Int("rank", r.Rank).
			Int("of", len(res.Ranks)).
			Float64("importance", ml.Round4(r.Importance)).
			Msg("Conflict feature rank")
	}

	trees, err := ml.SerializeForest(f, d.Features)
	if err != nil {
		return nil, fmt.Errorf("serialize forest: %w", err)
	}

	runCfg := ml.RunConfig{
		NTrees:         s.NTrees,
		MaxDepth:       s.MaxDepth,
		MinSamplesLeaf: s.MinSamplesLeaf,
		ConflictWeight: s.ConflictWeight,
		NoSplit:        s.NoSplit,
		Seed:           s.Seed,
	}
	var calBlock *ml.Calibration
	if res.Calibration != nil {
		calBlock = &ml.Calibration{
			Method:    "platt",
			Intercept: res.Calibration.Intercept,
			Coef:      res.Calibration.Coefficient,
			Samples:   res.Calibration.Samples,
			Mode:      string(res.Calibration.Mode),
		}
	}

	artifact, err := ml.BuildArtifact(ml.ArtifactInput{
		Trees:       trees,
		Features:    d.Features,
		Importances: importances,
		Config:      runCfg,
		Calibration: calBlock,
		Version:     s.ArtifactVersion,
		RunID:       s.RunID,
		RunIDSuffix: s.RunIDSuffix,
		Now:         p.now,
	})
	if err != nil {
		return nil, err
	}
	res.RunID = artifact.Meta.RunID

	res.Artifact, err = ml.WriteArtifact(artifact, s.ArtifactOutput, s.ArtifactLimitBytes())
	if err != nil {
		return nil, err
	}
	p.recorder.Artifact(res.Artifact.Bytes, res.Artifact.OverLimit)

	decoded, _, err := ml.LoadArtifact(res.Artifact.Path)
	if err != nil {
		return nil, fmt.Errorf("reload artifact: %w", err)
	}
	res.Parity, err = ml.VerifyArtifact(decoded, f, d.Rows)
	if err != nil {
		return nil, fmt.Errorf("verify artifact: %w", err)
	}
	p.recorder.Parity(res.Parity.Mismatches)

	p.saveRun(d, runCfg, res)
	return res, nil
}

// calibrate fits Platt scaling and writes the calibration set. Failures
// are logged and leave the artifact uncalibrated.
func (p *Pipeline) calibrate(scores []float64, labels []int, mode calibration.Mode) *calibration.Result {
	opts := calibration.DefaultOptions()
	opts.C = p.settings.CalibrationC

	fit, err := calibration.FitMode(scores, labels, mode, opts)
	if err != nil {
		log.Warn().Err(err).Str("mode", string(mode)).Msg("Calibration skipped, exporting without calibration block")
		p.recorder.CalibrationSkipped()
		return nil
	}
	p.recorder.Calibration(fit.Intercept, fit.Coefficient)

	if path := p.settings.CalibrationOutput; path != "" {
		if err := calibration.WriteCalibrationSet(path, scores, labels, fit.PredictAll(scores)); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to save calibration dataset")
		} else {
			log.Info().Str("path", path).Int("samples", len(scores)).Msg("Saved calibration dataset")
		}
	}
	return &fit
}

func (p *Pipeline) saveRun(d *dataset.Dataset, runCfg ml.RunConfig, res *TrainResult) {
	if p.store == nil {
		return
	}
	record := storage.RunRecord{
		RunID:         res.RunID,
		Version:       p.settings.ArtifactVersion,
		CreatedAt:     p.now().UTC(),
		Dataset:       p.settings.DatasetPath,
		Rows:          d.Len(),
		Features:      len(d.Features),
		Trees:         res.Trees,
		Config:        runCfg,
		ArtifactPath:  res.Artifact.Path,
		ArtifactBytes: res.Artifact.Bytes,
		Digest:        res.Artifact.Digest,
		Calibrated:    res.Calibration != nil,
		ParityPassed:  res.Parity.Passed(),
	}
	if res.Holdout != nil {
		record.HoldoutAUC = res.Holdout.ROCAUC
	}
	if err := p.store.SaveRun(record); err != nil {
		log.Warn().Err(err).Str("run_id", res.RunID).Msg("Failed to record run")
	}
}

func evaluate(labels []int, scores []float64) (*Evaluation, error) {
	c, err := ml.NewConfusion(labels, scores, 0.5)
	if err != nil {
		return nil, err
	}
	auc, err := ml.ROCAUC(labels, scores)
	if err != nil {
		return nil, err
	}
	return &Evaluation{Rows: len(labels), Confusion: c, ROCAUC: auc}, nil
}

// zoneEvaluation restricts holdout metrics to conflict-zone rows.
func zoneEvaluation(w *weighting.Weighter, test *dataset.Dataset, scores []float64) *Evaluation {
	if !w.Enabled() {
		return nil
	}
	var (
		labels []int
		zone   []float64
	)
	for i, row := range test.Rows {
		if w.InZone(row) {
			labels = append(labels, test.Labels[i])
			zone = append(zone, scores[i])
		}
	}
	log.Info().Int("rows", len(labels)).Msg("Conflict zone holdout rows")
	if len(labels) == 0 {
		return nil
	}

	c, err := ml.NewConfusion(labels, zone, 0.5)
	if err != nil {
		return nil
	}
	ev := &Evaluation{Rows: len(labels), Confusion: c}
	log.Info().
		Float64("precision", ml.Round4(c.Precision())).
		Float64("recall", ml.Round4(c.Recall())).
		Int("fraud", c.Positives()).
		Int("legit", c.Negatives()).
		Msg("Conflict zone performance")
	return ev
}

func logEvaluation(set string, e *Evaluation) {
	c := e.Confusion
	log.Info().
		Str("set", set).
		Int("rows", e.Rows).
		Float64("precision", ml.Round4(c.Precision())).
		Float64("recall", ml.Round4(c.Recall())).
		Float64("roc_auc", ml.Round4(e.ROCAUC)).
		Int("tp", c.TP).
		Int("fp", c.FP).
		Int("tn", c.TN).
		Int("fn", c.FN).
		Msg("Evaluation")
}

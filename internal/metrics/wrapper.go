package metrics

import "time"

// MetricsWrapper adapts Metrics to the recorder interface the pipeline
// reports through.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) TrainingFinished(d time.Duration, trees, nodes int) {
	w.m.TrainingDuration.Observe(d.Seconds())
	w.m.TreesTrained.Set(float64(trees))
	w.m.TreeNodes.Set(float64(nodes))
}

func (w *MetricsWrapper) ZoneRows(n int) {
	w.m.ZoneRows.Set(float64(n))
}

func (w *MetricsWrapper) Holdout(auc, precision, recall float64) {
	w.m.HoldoutROCAUC.Set(auc)
	w.m.HoldoutPrecision.Set(precision)
	w.m.HoldoutRecall.Set(recall)
}

func (w *MetricsWrapper) Calibration(intercept, coefficient float64) {
	w.m.CalibrationIntercept.Set(intercept)
	w.m.CalibrationCoefficient.Set(coefficient)
}

func (w *MetricsWrapper) CalibrationSkipped() {
	w.m.CalibrationFailures.Inc()
}

func (w *MetricsWrapper) Artifact(bytes int64, overLimit bool) {
	w.m.ArtifactBytes.Set(float64(bytes))
	if overLimit {
		w.m.ArtifactOverLimit.Inc()
	}
}

func (w *MetricsWrapper) Parity(mismatches int) {
	w.m.ParityMismatches.Set(float64(mismatches))
}

func (w *MetricsWrapper) RunFinished(err error) {
	w.m.RunsTotal.Inc()
	if err != nil {
		w.m.RunFailures.Inc()
	}
}

func (w *MetricsWrapper) Published(err error) {
	w.m.PublishTotal.Inc()
	if err != nil {
		w.m.PublishFailures.Inc()
	}
}

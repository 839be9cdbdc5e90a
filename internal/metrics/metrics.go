// Package metrics provides Prometheus metrics for forest export runs.
// Runs are short-lived batch jobs, so metrics are gathered into a private
// registry and written to a node-exporter textfile at the end of a run
// instead of being served over HTTP.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the export pipeline.
type Metrics struct {
	// Run metrics
	RunsTotal        prometheus.Counter   // Completed pipeline runs
	RunFailures      prometheus.Counter   // Runs that ended with an error
	TrainingDuration prometheus.Histogram // Wall time of forest training

	// Model metrics
	TreesTrained prometheus.Gauge // Trees in the last forest
	TreeNodes    prometheus.Gauge // Total nodes across the last forest
	ZoneRows     prometheus.Gauge // Training rows inside the conflict zone

	// Holdout metrics
	HoldoutROCAUC    prometheus.Gauge
	HoldoutPrecision prometheus.Gauge
	HoldoutRecall    prometheus.Gauge

	// Calibration metrics
	CalibrationIntercept   prometheus.Gauge
	CalibrationCoefficient prometheus.Gauge
	CalibrationFailures    prometheus.Counter

	// Artifact metrics
	ArtifactBytes     prometheus.Gauge
	ArtifactOverLimit prometheus.Counter
	ParityMismatches  prometheus.Gauge

	// Publish metrics
	PublishTotal    prometheus.Counter
	PublishFailures prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates metrics on a fresh private registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates metrics on the given registry, which is also used
// when writing the textfile.
func NewWithRegistry(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		RunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "forest_runs_total",
			Help: "Total number of pipeline runs",
		}),
		RunFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "forest_run_failures_total",
			Help: "Total number of failed pipeline runs",
		}),
		TrainingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "forest_training_duration_seconds",
			Help:    "Forest training duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
		}),
		TreesTrained: factory.NewGauge(prometheus.GaugeOpts{
			Name: "forest_trees",
			Help: "Number of trees in the last trained forest",
		}),
		TreeNodes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "forest_nodes",
			Help: "Total node count of the last trained forest",
		}),
		ZoneRows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "forest_conflict_zone_rows",
			Help: "Training rows inside the conflict zone",
		}),
		HoldoutROCAUC: factory.NewGauge(prometheus.GaugeOpts{
			Name: "forest_holdout_roc_auc",
			Help: "ROC AUC on the holdout split",
		}),
		HoldoutPrecision: factory.NewGauge(prometheus.GaugeOpts{
			Name: "forest_holdout_precision",
			Help: "Precision at 0.5 on the holdout split",
		}),
		HoldoutRecall: factory.NewGauge(prometheus.GaugeOpts{
			Name: "forest_holdout_recall",
			Help: "Recall at 0.5 on the holdout split",
		}),
		CalibrationIntercept: factory.NewGauge(prometheus.GaugeOpts{
			Name: "forest_calibration_intercept",
			Help: "Platt intercept of the last calibration",
		}),
		CalibrationCoefficient: factory.NewGauge(prometheus.GaugeOpts{
			Name: "forest_calibration_coefficient",
			Help: "Platt coefficient of the last calibration",
		}),
		CalibrationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "forest_calibration_failures_total",
			Help: "Total number of skipped calibrations",
		}),
		ArtifactBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "forest_artifact_bytes",
			Help: "Size of the last written artifact in bytes",
		}),
		ArtifactOverLimit: factory.NewCounter(prometheus.CounterOpts{
			Name: "forest_artifact_over_limit_total",
			Help: "Total number of artifacts written above the size limit",
		}),
		ParityMismatches: factory.NewGauge(prometheus.GaugeOpts{
			Name: "forest_parity_mismatches",
			Help: "Rows where the encoded artifact disagreed with the trained forest",
		}),
		PublishTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "forest_publish_total",
			Help: "Total number of artifact uploads",
		}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "forest_publish_failures_total",
			Help: "Total number of failed artifact uploads",
		}),
		gatherer: registry,
	}
}

// FailureRate returns failed runs over all runs, or 0 when nothing ran.
func (m *Metrics) FailureRate() float64 {
	var total, failed float64

	families, err := m.gatherer.Gather()
	if err != nil {
		return 0
	}
	for _, mf := range families {
		switch mf.GetName() {
		case "forest_runs_total":
			for _, metric := range mf.Metric {
				total = metric.GetCounter().GetValue()
			}
		case "forest_run_failures_total":
			for _, metric := range mf.Metric {
				failed = metric.GetCounter().GetValue()
			}
		}
	}

	if total == 0 {
		return 0
	}
	return failed / total
}

// WriteTextfile writes every gathered metric in text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

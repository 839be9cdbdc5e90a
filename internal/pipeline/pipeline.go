// Package pipeline wires the dataset, learner, serializer, calibrator and
// threshold scanner into the batch jobs exposed by the forestkit CLI.
package pipeline

import (
	"time"

	"fraud-forest/internal/cfg"
	"fraud-forest/internal/dataset"
	"fraud-forest/internal/storage"
	"fraud-forest/internal/weighting"
)

// Recorder receives run measurements. metrics.MetricsWrapper implements it.
type Recorder interface {
	TrainingFinished(d time.Duration, trees, nodes int)
	ZoneRows(n int)
	Holdout(auc, precision, recall float64)
	Calibration(intercept, coefficient float64)
	CalibrationSkipped()
	Artifact(bytes int64, overLimit bool)
	Parity(mismatches int)
	RunFinished(err error)
}

// RunStore persists run and scan summaries. storage.Store implements it.
type RunStore interface {
	SaveRun(r storage.RunRecord) error
	SaveScan(r storage.ScanRecord) error
}

type nopRecorder struct{}

func (nopRecorder) TrainingFinished(time.Duration, int, int) {}
func (nopRecorder) ZoneRows(int)                             {}
func (nopRecorder) Holdout(float64, float64, float64)        {}
func (nopRecorder) Calibration(float64, float64)             {}
func (nopRecorder) CalibrationSkipped()                      {}
func (nopRecorder) Artifact(int64, bool)                     {}
func (nopRecorder) Parity(int)                               {}
func (nopRecorder) RunFinished(error)                        {}

// Pipeline runs jobs against one set of validated settings.
type Pipeline struct {
	settings *cfg.Settings
	recorder Recorder
	store    RunStore
	now      func() time.Time
}

type Option func(*Pipeline)

// WithRecorder reports measurements to r.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithStore records finished runs and scans in s.
func WithStore(s RunStore) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithClock overrides the wall clock used for run ids and records.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func New(settings *cfg.Settings, opts ...Option) *Pipeline {
	p := &Pipeline{
		settings: settings,
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) loadDataset() (*dataset.Dataset, error) {
	return dataset.LoadCSV(p.settings.DatasetPath, dataset.Options{
		LabelColumn:    p.settings.LabelColumn,
		ExcludeColumns: p.settings.ExcludeColumns,
	})
}

func (p *Pipeline) policy() weighting.Policy {
	return weighting.Policy{
		EntropyFeature:    p.settings.EntropyFeature,
		ReputationFeature: p.settings.ReputationFeature,
		EntropyAbove:      p.settings.EntropyAbove,
		ReputationAtLeast: p.settings.ReputationAtLeast,
		Weight:            p.settings.ConflictWeight,
	}
}

// Package weighting up-weights the "conflict zone": rows with high bigram
// entropy on a reputable-looking domain, where fraud and legitimate
// addresses overlap most.
package weighting

import (
	"fraud-forest/internal/common"
	"fraud-forest/internal/dataset"

	"github.com/rs/zerolog/log"
)

// Policy describes which rows fall in the conflict zone and how much they weigh.
type Policy struct {
	EntropyFeature    string
	ReputationFeature string
	EntropyAbove      float64 // strict
	ReputationAtLeast float64 // inclusive
	Weight            float64
}

func DefaultPolicy() Policy {
	return Policy{
		EntropyFeature:    common.FeatureBigramEntropy,
		ReputationFeature: common.FeatureDomainReputation,
		EntropyAbove:      common.DefaultEntropyAbove,
		ReputationAtLeast: common.DefaultReputationAtLeast,
		Weight:            common.DefaultConflictWeight,
	}
}

// Report summarizes one weighting pass.
type Report struct {
	Applied   bool
	Missing   []string
	ZoneRows  int
	ZoneShare float64
	Weight    float64
}

// Weighter resolves the policy against a dataset's feature order once.
type Weighter struct {
	policy     Policy
	entropyIdx int
	repIdx     int
	missing    []string
}

func New(policy Policy, d *dataset.Dataset) *Weighter {
	w := &Weighter{policy: policy, entropyIdx: -1, repIdx: -1}
	if i, ok := d.FeatureIndex(policy.EntropyFeature); ok {
		w.entropyIdx = i
	} else {
		w.missing = append(w.missing, policy.EntropyFeature)
	}
	if i, ok := d.FeatureIndex(policy.ReputationFeature); ok {
		w.repIdx = i
	} else {
		w.missing = append(w.missing, policy.ReputationFeature)
	}
	return w
}

// Enabled reports whether both zone features are present.
func (w *Weighter) Enabled() bool {
	return len(w.missing) == 0
}

// InZone reports whether a row falls inside the conflict zone. It is always
// false when a zone feature is missing.
func (w *Weighter) InZone(row []float64) bool {
	if !w.Enabled() {
		return false
	}
	return row[w.entropyIdx] > w.policy.EntropyAbove && row[w.repIdx] >= w.policy.ReputationAtLeast
}

// Weights returns one weight per row: the policy weight inside the zone and
// 1.0 elsewhere.
func (w *Weighter) Weights(d *dataset.Dataset) ([]float64, Report) {
	weights := make([]float64, d.Len())
	for i := range weights {
		weights[i] = 1.0
	}

	report := Report{Weight: w.policy.Weight, Missing: w.missing}
	if !w.Enabled() {
		log.Warn().
			Strs("missing", w.missing).
			Msg("Conflict zone features missing, skipping conflict weighting")
		return weights, report
	}

	report.Applied = true
	for i, row := range d.Rows {
		if w.InZone(row) {
			weights[i] = w.policy.Weight
			report.ZoneRows++
		}
	}
	if d.Len() > 0 {
		report.ZoneShare = float64(report.ZoneRows) / float64(d.Len())
	}

	log.Info().
		Int("zone_rows", report.ZoneRows).
		Float64("zone_share", report.ZoneShare).
		Float64("weight", w.policy.Weight).
		Msg("Applied conflict zone weighting")

	return weights, report
}

// Compute is a convenience wrapper for one-shot weighting.
func Compute(d *dataset.Dataset, policy Policy) ([]float64, Report) {
	return New(policy, d).Weights(d)
}

package ml

import (
	"sort"

	"github.com/rs/zerolog/log"
)

// FeatureRank is one feature's position in the importance ranking.
type FeatureRank struct {
	Name       string
	Importance float64
	Rank       int // 1-based
}

// RankFeatures sorts features by descending importance. Ties keep the
// original feature order.
func RankFeatures(names []string, importances []float64) ([]FeatureRank, error) {
	if len(names) != len(importances) {
		return nil, ErrImportanceShape
	}

	ranks := make([]FeatureRank, len(names))
	for i, name := range names {
		ranks[i] = FeatureRank{Name: name, Importance: importances[i]}
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].Importance > ranks[j].Importance
	})
	for i := range ranks {
		ranks[i].Rank = i + 1
	}
	return ranks, nil
}

// TopFeatures returns the first n entries of a ranking.
func TopFeatures(ranks []FeatureRank, n int) []FeatureRank {
	if n > len(ranks) {
		n = len(ranks)
	}
	return ranks[:n]
}

// FindFeature looks up a feature's rank by name.
func FindFeature(ranks []FeatureRank, name string) (FeatureRank, bool) {
	for _, r := range ranks {
		if r.Name == name {
			return r, true
		}
	}
	return FeatureRank{}, false
}

// LogTopFeatures logs the n most important features.
func LogTopFeatures(ranks []FeatureRank, n int) {
	for _, r := range TopFeatures(ranks, n) {
		log.Info().
			Int("rank", r.Rank).
			Str("feature", r.Name).
			Float64("importance", Round4(r.Importance)).
			Msg("Feature importance")
	}
}

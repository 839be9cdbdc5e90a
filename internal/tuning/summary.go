package tuning

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// Summary is the persisted record of a tuning run.
type Summary struct {
	Timestamp     string           `json:"timestamp"`
	Dataset       string           `json:"dataset"`
	Rows          int              `json:"rows"`
	LabelColumn   string           `json:"label_column"`
	FeatureCount  int              `json:"feature_count"`
	Scoring       Scoring          `json:"scoring"`
	CV            int              `json:"cv"`
	NIter         int              `json:"n_iter"`
	SearchSpace   map[string][]int `json:"search_space"`
	BestScore     float64          `json:"best_score"`
	BestParams    Params           `json:"best_params"`
	TopCandidates []TopCandidate   `json:"top_candidates"`
}

type TopCandidate struct {
	MeanTestScore float64 `json:"mean_test_score"`
	Rank          int     `json:"rank"`
	Params        Params  `json:"params"`
}

// SummaryInput describes the run being summarized.
type SummaryInput struct {
	Dataset      string
	Rows         int
	LabelColumn  string
	FeatureCount int
	Options      Options
}

// NewSummary builds a summary with the five best candidates.
func NewSummary(in SummaryInput, r *Result) *Summary {
	best := r.Best()
	s := &Summary{
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
		Dataset:      in.Dataset,
		Rows:         in.Rows,
		LabelColumn:  in.LabelColumn,
		FeatureCount: in.FeatureCount,
		Scoring:      in.Options.Scoring,
		CV:           in.Options.CV,
		NIter:        in.Options.NIter,
		SearchSpace: map[string][]int{
			"n_estimators":     {in.Options.Space.NEstimators.Min, in.Options.Space.NEstimators.Max},
			"max_depth":        {in.Options.Space.MaxDepth.Min, in.Options.Space.MaxDepth.Max},
			"min_samples_leaf": {in.Options.Space.MinSamplesLeaf.Min, in.Options.Space.MinSamplesLeaf.Max},
		},
		BestScore:  best.MeanScore,
		BestParams: best.Params,
	}
	for _, c := range r.Top(5) {
		s.TopCandidates = append(s.TopCandidates, TopCandidate{
			MeanTestScore: c.MeanScore,
			Rank:          c.Rank,
			Params:        c.Params,
		})
	}
	return s
}

// Write saves the summary as indented JSON.
func (s *Summary) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	log.Info().Str("file", path).Msg("Saved tuning summary")
	return nil
}

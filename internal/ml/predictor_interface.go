// Package ml turns fitted trees into the portable decision-node encoding,
// assembles and verifies the forest artifact, and provides the evaluation
// metrics shared by training, tuning and threshold scans.
package ml

// Scorer produces a fraud probability for one feature row.
// Implemented by the in-memory forest and by a decoded artifact.
type Scorer interface {
	PredictProba(row []float64) float64
}

// ScoreAll scores every row.
func ScoreAll(s Scorer, rows [][]float64) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = s.PredictProba(row)
	}
	return out
}

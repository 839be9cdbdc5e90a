package threshold

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// Score sources
const (
	SourceRaw        = "raw"
	SourceCalibrated = "calibrated"
)

// Report is a complete threshold scan with its provenance.
type Report struct {
	GeneratedAt       time.Time `json:"generated_at"`
	Input             string    `json:"input"`
	CalibrationOutput string    `json:"calibration_output"`
	ScoreSource       string    `json:"score_source"`
	Points            []Metric  `json:"thresholds"`
}

// NewReport wraps scan points with provenance.
func NewReport(input, calibrationOutput, source string, points []Metric) *Report {
	return &Report{
		GeneratedAt:       time.Now().UTC(),
		Input:             input,
		CalibrationOutput: calibrationOutput,
		ScoreSource:       source,
		Points:            points,
	}
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", path).Int("thresholds", len(r.Points)).Msg("Threshold scan JSON generated")
	return nil
}

// WriteCSV writes one row per threshold.
func (r *Report) WriteCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create threshold CSV: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"threshold", "tp", "fp", "tn", "fn", "precision", "recall",
		"fpr", "fnr", "support_positive", "support_negative",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, m := range r.Points {
		record := []string{
			formatFloat(m.Threshold),
			strconv.Itoa(m.TP),
			strconv.Itoa(m.FP),
			strconv.Itoa(m.TN),
			strconv.Itoa(m.FN),
			formatFloat(m.Precision),
			formatFloat(m.Recall),
			formatFloat(m.FPR),
			formatFloat(m.FNR),
			strconv.Itoa(m.SupportPositive),
			strconv.Itoa(m.SupportNegative),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write threshold CSV: %w", err)
	}

	log.Info().Str("file", path).Msg("Threshold scan CSV generated")
	return nil
}

// Best returns the point with the highest F1 score, breaking ties toward
// the lower threshold. ok is false for an empty report.
func (r *Report) Best() (Metric, bool) {
	var best Metric
	bestF1 := -1.0
	for _, m := range r.Points {
		f1 := 0.0
		if m.Precision+m.Recall > 0 {
			f1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		if f1 > bestF1 {
			best, bestF1 = m, f1
		}
	}
	return best, bestF1 >= 0
}

// LogSummary logs each operating point.
func (r *Report) LogSummary() {
	for _, m := range r.Points {
		log.Info().
			Float64("threshold", m.Threshold).
			Float64("precision", m.Precision).
			Float64("recall", m.Recall).
			Float64("fpr", m.FPR).
			Float64("fnr", m.FNR).
			Msg("Threshold")
	}
	if best, ok := r.Best(); ok {
		log.Info().
			Float64("threshold", best.Threshold).
			Float64("precision", best.Precision).
			Float64("recall", best.Recall).
			Str("source", r.ScoreSource).
			Msg("Best F1 operating point")
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

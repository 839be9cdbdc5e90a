package calibration

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	ColumnScore      = "score"
	ColumnLabel      = "label"
	ColumnCalibrated = "calibrated_score"
)

// Table is a calibration CSV: every original column plus parsed scores and
// labels.
type Table struct {
	Header  []string
	Records [][]string
	Scores  []float64
	Labels  []int
}

// ReadCSV loads a calibration dataset. The score and label columns are
// required; any other columns are carried through untouched.
func ReadCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("failed to open calibration CSV: %w", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrMissingColumn
	}

	header := records[0]
	scoreIdx, labelIdx := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case ColumnScore:
			scoreIdx = i
		case ColumnLabel:
			labelIdx = i
		}
	}
	if scoreIdx < 0 || labelIdx < 0 {
		return nil, ErrMissingColumn
	}

	t := &Table{Header: header, Records: records[1:]}
	for i, rec := range t.Records {
		s, err := strconv.ParseFloat(strings.TrimSpace(rec[scoreIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid score %q: %w", i+2, rec[scoreIdx], err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(rec[labelIdx]), 64)
		if err != nil || (y != 0 && y != 1) {
			return nil, fmt.Errorf("line %d: %w, got %q", i+2, ErrInvalidLabel, rec[labelIdx])
		}
		t.Scores = append(t.Scores, s)
		t.Labels = append(t.Labels, int(y))
	}
	return t, nil
}

// WriteCSV writes the table with a calibrated_score column, replacing the
// column when it already exists.
func WriteCSV(path string, t *Table, calibrated []float64) error {
	if len(calibrated) != len(t.Records) {
		return fmt.Errorf("%w: %d calibrated scores for %d rows", ErrLengthMismatch, len(calibrated), len(t.Records))
	}

	calIdx := -1
	for i, col := range t.Header {
		if strings.TrimSpace(col) == ColumnCalibrated {
			calIdx = i
		}
	}

	header := append([]string(nil), t.Header...)
	if calIdx < 0 {
		header = append(header, ColumnCalibrated)
		calIdx = len(header) - 1
	}

	rows := make([][]string, 0, len(t.Records)+1)
	rows = append(rows, header)
	for i, rec := range t.Records {
		row := make([]string, len(header))
		copy(row, rec)
		row[calIdx] = formatFloat(calibrated[i])
		rows = append(rows, row)
	}
	return writeRows(path, rows)
}

// WriteCalibrationSet writes score,label,calibrated_score rows.
func WriteCalibrationSet(path string, scores []float64, labels []int, calibrated []float64) error {
	if len(scores) != len(labels) || len(scores) != len(calibrated) {
		return ErrLengthMismatch
	}
	rows := make([][]string, 0, len(scores)+1)
	rows = append(rows, []string{ColumnScore, ColumnLabel, ColumnCalibrated})
	for i := range scores {
		rows = append(rows, []string{
			formatFloat(scores[i]),
			strconv.Itoa(labels[i]),
			formatFloat(calibrated[i]),
		})
	}
	return writeRows(path, rows)
}

func writeRows(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// ScanRecord summarizes one calibrate-scores run.
type ScanRecord struct {
	CreatedAt     time.Time `json:"created_at"`
	Input         string    `json:"input"`
	Output        string    `json:"output"`
	ScoreSource   string    `json:"score_source"`
	Samples       int       `json:"samples"`
	Intercept     float64   `json:"intercept"`
	Coefficient   float64   `json:"coefficient"`
	Points        int       `json:"points"`
	BestThreshold float64   `json:"best_threshold"`
	BestPrecision float64   `json:"best_precision"`
	BestRecall    float64   `json:"best_recall"`
}

// Keys are zero padded so byte order matches time order.
func scanKey(t time.Time) []byte {
	return []byte(fmt.Sprintf("%020d", t.UnixNano()))
}

// SaveScan stores a scan record keyed by its creation time.
func (s *Store) SaveScan(r ScanRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(scansBucket))

		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal scan: %w", err)
		}
		return b.Put(scanKey(r.CreatedAt), data)
	})
}

// GetScansInRange returns scans created within [start, end], oldest first.
func (s *Store) GetScansInRange(start, end time.Time) ([]ScanRecord, error) {
	var scans []ScanRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(scansBucket)).Cursor()
		endKey := scanKey(end)

		for k, v := c.Seek(scanKey(start)); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			var r ScanRecord
			if err := json.Unmarshal(v, &r); err != nil {
				continue // Skip malformed records
			}
			scans = append(scans, r)
		}
		return nil
	})

	return scans, err
}

// LatestScan returns the most recent scan, if any.
func (s *Store) LatestScan() (ScanRecord, bool, error) {
	var (
		r     ScanRecord
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		_, v := tx.Bucket([]byte(scansBucket)).Cursor().Last()
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &r)
	})
	return r, found, err
}

// Package storage keeps a local registry of training runs and threshold
// scans in BoltDB, so exported artifacts can be traced back to the
// settings and data that produced them.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"fraud-forest/internal/ml"

	"go.etcd.io/bbolt"
)

const (
	runsBucket  = "runs"  // Bucket name for run records keyed by run id
	scansBucket = "scans" // Bucket name for scan records keyed by time
)

// DBFile is the registry file name inside the data path.
const DBFile = "forest-runs.db"

var ErrRunNotFound = errors.New("run not found")

// Store provides persistent storage for run and scan records using BoltDB.
type Store struct {
	db *bbolt.DB
}

// RunRecord describes one train-forest invocation and its artifact.
type RunRecord struct {
	RunID         string       `json:"run_id"`
	Version       string       `json:"version"`
	CreatedAt     time.Time    `json:"created_at"`
	Dataset       string       `json:"dataset"`
	Rows          int          `json:"rows"`
	Features      int          `json:"features"`
	Trees         int          `json:"trees"`
	Config        ml.RunConfig `json:"config"`
	ArtifactPath  string       `json:"artifact_path"`
	ArtifactBytes int64        `json:"artifact_bytes"`
	Digest        string       `json:"digest"`
	Calibrated    bool         `json:"calibrated"`
	HoldoutAUC    float64      `json:"holdout_auc,omitempty"`
	ParityPassed  bool         `json:"parity_passed"`
}

// New opens the registry under dataPath and creates its buckets.
// The lock wait is bounded at one second.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, DBFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(runsBucket)); err != nil {
			return fmt.Errorf("create runs bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(scansBucket)); err != nil {
			return fmt.Errorf("create scans bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database. Closing twice is safe.
func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// SaveRun stores or replaces a run record.
func (s *Store) SaveRun(r RunRecord) error {
	if r.RunID == "" {
		return fmt.Errorf("save run: empty run id")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))

		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal run: %w", err)
		}
		return b.Put([]byte(r.RunID), data)
	})
}

// GetRun loads a run by id.
func (s *Store) GetRun(runID string) (RunRecord, error) {
	var r RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(runsBucket)).Get([]byte(runID))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return json.Unmarshal(data, &r)
	})
	return r, err
}

// ListRuns returns every run ordered by creation time, oldest first.
func (s *Store) ListRuns() ([]RunRecord, error) {
	var runs []RunRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(runsBucket)).ForEach(func(_, v []byte) error {
			var r RunRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return nil // Skip malformed records
			}
			runs = append(runs, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.Before(runs[j].CreatedAt)
	})
	return runs, nil
}

// DeleteRun removes a run. Deleting an unknown id is not an error.
func (s *Store) DeleteRun(runID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(runsBucket)).Delete([]byte(runID))
	})
}

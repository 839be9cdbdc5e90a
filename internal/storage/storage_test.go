package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fraud-forest/internal/ml"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRun(id string, created time.Time) RunRecord {
	return RunRecord{
		RunID:     id,
		Version:   "3.0.0-forest",
		CreatedAt: created,
		Dataset:   "data/train.csv",
		Rows:      1000,
		Features:  12,
		Trees:     10,
		Config: ml.RunConfig{
			NTrees:         10,
			MaxDepth:       6,
			MinSamplesLeaf: 20,
			ConflictWeight: 20,
			Seed:           42,
		},
		ArtifactPath:  "random-forest.json",
		ArtifactBytes: 48213,
		Digest:        "ab12",
		Calibrated:    true,
		HoldoutAUC:    0.94,
		ParityPassed:  true,
	}
}

func TestNew(t *testing.T) {
	tempDir := t.TempDir()

	store, err := New(tempDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if store.db == nil {
		t.Error("Store database is nil")
	}

	dbPath := filepath.Join(tempDir, DBFile)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNew_InvalidPath(t *testing.T) {
	invalidPath := filepath.Join(t.TempDir(), "nonexistent", "path")

	_, err := New(invalidPath)
	if err == nil {
		t.Error("Expected error for invalid path, got nil")
	}
}

func TestNew_LockTimeout(t *testing.T) {
	dir := t.TempDir()
	first, err := New(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer first.Close()

	start := time.Now()
	if _, err := New(dir); err == nil {
		t.Fatal("Expected lock error while another handle is open")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Lock wait not bounded, took %v", elapsed)
	}
}

func TestStore_Close(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Errorf("Error closing store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Error closing already closed store: %v", err)
	}
}

func TestStore_CloseNilDB(t *testing.T) {
	store := &Store{db: nil}
	if err := store.Close(); err != nil {
		t.Errorf("Expected no error for nil db, got: %v", err)
	}
}

func TestSaveAndGetRun(t *testing.T) {
	store := openStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := sampleRun("1772366400000", created)

	if err := store.SaveRun(run); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}

	got, err := store.GetRun(run.RunID)
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("Expected created_at %v, got %v", created, got.CreatedAt)
	}
	got.CreatedAt = created
	if got != run {
		t.Errorf("Run mismatch:\nwant %+v\ngot  %+v", run, got)
	}
}

func TestSaveRun_EmptyID(t *testing.T) {
	store := openStore(t)
	if err := store.SaveRun(RunRecord{}); err == nil {
		t.Error("Expected error for empty run id")
	}
}

func TestGetRun_NotFound(t *testing.T) {
	store := openStore(t)
	_, err := store.GetRun("missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	store := openStore(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// Inserted out of order on purpose
	ids := []string{"c", "a", "b"}
	offsets := []time.Duration{2 * time.Hour, 0, time.Hour}
	for i, id := range ids {
		if err := store.SaveRun(sampleRun(id, base.Add(offsets[i]))); err != nil {
			t.Fatalf("Failed to save run %s: %v", id, err)
		}
	}

	runs, err := store.ListRuns()
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(runs))
	}
	for i, want := range []string{"a", "b", "c"} {
		if runs[i].RunID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, runs[i].RunID)
		}
	}
}

func TestSaveRun_Replace(t *testing.T) {
	store := openStore(t)
	run := sampleRun("r1", time.Now().UTC())
	if err := store.SaveRun(run); err != nil {
		t.Fatal(err)
	}
	run.Digest = "ffff"
	if err := store.SaveRun(run); err != nil {
		t.Fatal(err)
	}

	runs, err := store.ListRuns()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Digest != "ffff" {
		t.Errorf("Expected single replaced run, got %+v", runs)
	}
}

func TestDeleteRun(t *testing.T) {
	store := openStore(t)
	if err := store.SaveRun(sampleRun("r1", time.Now().UTC())); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteRun("r1"); err != nil {
		t.Fatalf("Failed to delete run: %v", err)
	}
	if err := store.DeleteRun("r1"); err != nil {
		t.Errorf("Deleting twice should not fail: %v", err)
	}
	if _, err := store.GetRun("r1"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound after delete, got %v", err)
	}
}

func TestRunsPersistAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SaveRun(sampleRun("persist", time.Now().UTC())); err != nil {
		t.Fatal(err)
	}
	store.Close()

	reopened, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	if _, err := reopened.GetRun("persist"); err != nil {
		t.Errorf("Run lost after reopen: %v", err)
	}
}

func TestScans(t *testing.T) {
	store := openStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	scans := []ScanRecord{
		{CreatedAt: now, Input: "a.csv", ScoreSource: "calibrated", Points: 19, BestThreshold: 0.35},
		{CreatedAt: now.Add(time.Second), Input: "b.csv", ScoreSource: "raw", Points: 19, BestThreshold: 0.4},
		{CreatedAt: now.Add(10 * time.Second), Input: "c.csv", ScoreSource: "calibrated", Points: 5, BestThreshold: 0.5},
	}
	for _, s := range scans {
		if err := store.SaveScan(s); err != nil {
			t.Fatalf("Failed to save scan: %v", err)
		}
	}

	got, err := store.GetScansInRange(now.Add(-time.Second), now.Add(5*time.Second))
	if err != nil {
		t.Fatalf("Failed to get scans: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 scans in range, got %d", len(got))
	}
	if got[0].Input != "a.csv" || got[1].Input != "b.csv" {
		t.Errorf("Unexpected scan order: %s, %s", got[0].Input, got[1].Input)
	}

	latest, ok, err := store.LatestScan()
	if err != nil || !ok {
		t.Fatalf("Expected latest scan, got ok=%v err=%v", ok, err)
	}
	if latest.Input != "c.csv" {
		t.Errorf("Expected latest c.csv, got %s", latest.Input)
	}
}

func TestLatestScan_Empty(t *testing.T) {
	store := openStore(t)
	_, ok, err := store.LatestScan()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("Expected no scan in empty store")
	}
}

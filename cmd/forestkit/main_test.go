package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fraud-forest/internal/calibration"
	"fraud-forest/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate clears the environment keys the CLI reads so host settings do
// not leak into a run.
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		common.EnvConfigFile, common.EnvDatasetPath, common.EnvDataPath,
		common.EnvMetricsFile, common.EnvPublishBaseURL, common.EnvLogLevel,
	} {
		t.Setenv(key, "")
	}
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	cmd := cliParser()
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	return cmd.Execute()
}

func writeCSV(t *testing.T, rows int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("id,bigram_entropy,domain_reputation_score,label\n")
	for i := 0; i < rows; i++ {
		label := i % 2
		entropy := 1.5 + float64(label)*2 + float64(i%7)*0.05
		fmt.Fprintf(&b, "%d,%.3f,%.3f,%d\n", i, entropy, 0.9-float64(label)*0.5, label)
	}
	path := filepath.Join(t.TempDir(), "features.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestCommandsRegistered(t *testing.T) {
	root := cliParser()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"export-tree", "train-forest", "tune", "calibrate-scores", "publish", "runs"} {
		assert.Contains(t, names, want)
	}
}

func TestFlagDefaults(t *testing.T) {
	root := cliParser()

	exp, _, err := root.Find([]string{"export-tree"})
	require.NoError(t, err)
	assert.Equal(t, common.DefaultTreeOutput, exp.Flags().Lookup("output").DefValue)
	assert.Equal(t, "50", exp.Flags().Lookup("min-samples-leaf").DefValue)

	cal, _, err := root.Find([]string{"calibrate-scores"})
	require.NoError(t, err)
	assert.Equal(t, common.DefaultCalibrationOutput, cal.Flags().Lookup("input").DefValue)
	assert.Equal(t, defaultCalibratedOutput, cal.Flags().Lookup("output").DefValue)
	assert.Equal(t, string(calibration.ModeHoldout), cal.Flags().Lookup("mode").DefValue)

	tune, _, err := root.Find([]string{"tune"})
	require.NoError(t, err)
	assert.Equal(t, "25", tune.Flags().Lookup("n-iter").DefValue)
	assert.Equal(t, "roc_auc", tune.Flags().Lookup("scoring").DefValue)
}

func TestMissingDataset(t *testing.T) {
	isolate(t)
	for _, name := range []string{"export-tree", "train-forest", "tune"} {
		err := execute(t, name)
		require.Error(t, err, name)
		assert.Contains(t, err.Error(), "dataset", name)
	}
}

func TestRunsRequiresRegistry(t *testing.T) {
	isolate(t)
	assert.ErrorIs(t, execute(t, "runs"), errNoRegistry)

	t.Setenv(common.EnvDataPath, t.TempDir())
	assert.NoError(t, execute(t, "runs"))
}

func TestPublishRequiresKey(t *testing.T) {
	isolate(t)
	err := execute(t, "publish")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key")
}

func TestCalibrateRejectsMode(t *testing.T) {
	isolate(t)
	err := execute(t, "calibrate-scores", "--mode", "bogus")
	assert.ErrorIs(t, err, calibration.ErrInvalidMode)
}

func TestTuneRejectsScoring(t *testing.T) {
	isolate(t)
	err := execute(t, "tune", "-d", writeCSV(t, 40), "--scoring", "mse")
	require.Error(t, err)
}

func TestExportTreeWritesFile(t *testing.T) {
	isolate(t)
	out := filepath.Join(t.TempDir(), "tree.json")
	require.NoError(t, execute(t, "export-tree", "-d", writeCSV(t, 200), "-o", out, "--min-samples-leaf", "10"))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var node map[string]any
	require.NoError(t, json.Unmarshal(raw, &node))
	assert.Equal(t, "node", node["type"])
}

func TestTrainForestOverrides(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	artifact := filepath.Join(dir, "forest.json")
	t.Setenv(common.EnvDataPath, filepath.Join(dir, "registry"))
	t.Setenv(common.EnvMetricsFile, filepath.Join(dir, "forest.prom"))

	require.NoError(t, execute(t, "train-forest",
		"-d", writeCSV(t, 300),
		"-o", artifact,
		"--n-trees", "3",
		"--max-depth", "3",
		"--min-samples-leaf", "5",
		"--calibration-output", filepath.Join(dir, "cal.csv"),
		"--run-id", "cli-run",
	))

	assert.FileExists(t, artifact)
	assert.FileExists(t, filepath.Join(dir, "cal.csv"))
	prom, err := os.ReadFile(filepath.Join(dir, "forest.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), "forest_runs_total 1")
}

func TestNonFiniteFlagsRejected(t *testing.T) {
	isolate(t)
	data := writeCSV(t, 40)
	for name, args := range map[string][]string{
		"scan step":   {"calibrate-scores", "--scan-step", "NaN"},
		"scan max":    {"calibrate-scores", "--scan-max", "NaN"},
		"test size":   {"train-forest", "-d", data, "--test-size", "NaN"},
		"conflict wt": {"train-forest", "-d", data, "--conflict-weight", "+Inf"},
	} {
		err := execute(t, args...)
		require.Error(t, err, name)
		assert.Contains(t, err.Error(), "invalid settings", name)
	}
}

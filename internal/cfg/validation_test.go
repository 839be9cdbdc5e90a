package cfg

import (
	"math"
	"testing"
	"time"
)

// createValidSettings creates a valid Settings struct for testing
func createValidSettings() *Settings {
	s := Defaults()
	s.DatasetPath = "data/emails.csv"
	return &s
}

func TestValidate_ValidConfig(t *testing.T) {
	settings := createValidSettings()

	if err := Validate(settings); err != nil {
		t.Errorf("Expected valid config to pass, got error: %v", err)
	}
}

func TestValidate_EmptyLabelColumn(t *testing.T) {
	settings := createValidSettings()
	settings.LabelColumn = ""

	err := Validate(settings)
	if err == nil {
		t.Fatal("Expected error for empty label column")
	}
	if err.Error() != "label column cannot be empty" {
		t.Errorf("Expected specific error message, got: %v", err)
	}
}

func TestValidate_TreeCount(t *testing.T) {
	tests := []struct {
		name    string
		nTrees  int
		wantErr bool
	}{
		{"zero", 0, true},
		{"negative", -3, true},
		{"one", 1, false},
		{"max", 10000, false},
		{"too many", 10001, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := createValidSettings()
			settings.NTrees = tt.nTrees

			err := Validate(settings)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_MaxDepth(t *testing.T) {
	for _, depth := range []int{0, -1, 65} {
		settings := createValidSettings()
		settings.MaxDepth = depth
		if err := Validate(settings); err == nil {
			t.Errorf("Expected error for max depth %d", depth)
		}
	}
}

func TestValidate_MinSamplesLeaf(t *testing.T) {
	settings := createValidSettings()
	settings.MinSamplesLeaf = 0

	if err := Validate(settings); err == nil {
		t.Error("Expected error for zero min samples leaf")
	}
}

func TestValidate_ConflictWeight(t *testing.T) {
	for _, w := range []float64{0, -1, math.Inf(1), math.NaN()} {
		settings := createValidSettings()
		settings.ConflictWeight = w
		if err := Validate(settings); err == nil {
			t.Errorf("Expected error for conflict weight %v", w)
		}
	}
}

func TestValidate_CalibrationC(t *testing.T) {
	settings := createValidSettings()
	settings.CalibrationC = 0

	if err := Validate(settings); err == nil {
		t.Error("Expected error for zero calibration C")
	}
}

func TestValidate_ArtifactLimit(t *testing.T) {
	settings := createValidSettings()
	settings.ArtifactLimitMB = 0
	if err := Validate(settings); err == nil {
		t.Error("Expected error for zero artifact limit")
	}

	settings.ArtifactLimitMB = 2048
	if err := Validate(settings); err == nil {
		t.Error("Expected error for artifact limit above maximum")
	}

	settings.ArtifactLimitMB = math.NaN()
	if err := Validate(settings); err == nil {
		t.Error("Expected error for NaN artifact limit")
	}
}

func TestValidate_TestSize(t *testing.T) {
	tests := []struct {
		name     string
		testSize float64
		noSplit  bool
		wantErr  bool
	}{
		{"default", 0.2, false, false},
		{"zero", 0, false, true},
		{"one", 1, false, true},
		{"NaN", math.NaN(), false, true},
		{"infinite", math.Inf(1), false, true},
		{"ignored without split", math.NaN(), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := createValidSettings()
			settings.TestSize = tt.testSize
			settings.NoSplit = tt.noSplit

			err := Validate(settings)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_NonFiniteNumbers(t *testing.T) {
	mutate := map[string]func(s *Settings){
		"calibration C NaN": func(s *Settings) { s.CalibrationC = math.NaN() },
		"calibration C Inf": func(s *Settings) { s.CalibrationC = math.Inf(1) },
		"entropy above NaN": func(s *Settings) { s.EntropyAbove = math.NaN() },
		"reputation NaN":    func(s *Settings) { s.ReputationAtLeast = math.NaN() },
	}
	for name, fn := range mutate {
		t.Run(name, func(t *testing.T) {
			settings := createValidSettings()
			fn(settings)
			if err := Validate(settings); err == nil {
				t.Errorf("Expected error for %s", name)
			}
		})
	}
}

func TestValidate_ScanRange(t *testing.T) {
	tests := []struct {
		name    string
		scan    ScanRange
		wantErr bool
	}{
		{"default", DefaultScanRange(), false},
		{"single point", ScanRange{Min: 0.5, Max: 0.5, Step: 0.1}, false},
		{"zero step", ScanRange{Min: 0.1, Max: 0.9, Step: 0}, true},
		{"inverted", ScanRange{Min: 0.9, Max: 0.1, Step: 0.1}, true},
		{"above one", ScanRange{Min: 0.1, Max: 1.5, Step: 0.1}, true},
		{"NaN step", ScanRange{Min: 0.05, Max: 0.95, Step: math.NaN()}, true},
		{"infinite step", ScanRange{Min: 0.05, Max: 0.95, Step: math.Inf(1)}, true},
		{"NaN min", ScanRange{Min: math.NaN(), Max: 0.95, Step: 0.05}, true},
		{"NaN max", ScanRange{Min: 0.05, Max: math.NaN(), Step: 0.05}, true},
		{"negative infinite min", ScanRange{Min: math.Inf(-1), Max: 0.95, Step: 0.05}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := createValidSettings()
			settings.Scan = tt.scan

			err := Validate(settings)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_PublishTimeout(t *testing.T) {
	settings := createValidSettings()
	settings.Publish.Timeout = 500 * time.Millisecond
	if err := Validate(settings); err == nil {
		t.Error("Expected error for publish timeout below 1s")
	}

	settings.Publish.Timeout = time.Hour
	if err := Validate(settings); err == nil {
		t.Error("Expected error for publish timeout above 10m")
	}
}

// Package cfg loads and validates the settings shared by every forestkit
// command. Settings come from a YAML file named by CONFIG_FILE, with
// environment variables taking precedence, or from the environment alone.
package cfg

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"fraud-forest/internal/common"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	// Dataset
	DatasetPath    string
	LabelColumn    string
	ExcludeColumns []string

	// Forest hyperparameters
	NTrees         int
	MaxDepth       int
	MinSamplesLeaf int
	MaxFeatures    int // 0 selects sqrt(n_features)
	Seed           int64

	// Conflict zone weighting
	ConflictWeight    float64
	EntropyFeature    string
	ReputationFeature string
	EntropyAbove      float64
	ReputationAtLeast float64

	// Training run
	NoSplit           bool
	TestSize          float64
	CalibrationOutput string
	CalibrationC      float64
	RunID             string
	RunIDSuffix       bool

	// Artifact
	ArtifactOutput  string
	ArtifactVersion string
	ArtifactLimitMB float64

	Scan ScanRange

	// System
	DataPath    string // bbolt run registry directory, optional
	MetricsFile string // prometheus textfile, optional
	LogLevel    string

	Publish PublishSettings
}

// PublishSettings configures the key-value store upload.
type PublishSettings struct {
	BaseURL string
	Token   string
	Secret  string
	Timeout time.Duration
}

type ConfigFile struct {
	Dataset struct {
		Path           string   `yaml:"path"`
		LabelColumn    string   `yaml:"labelColumn"`
		ExcludeColumns []string `yaml:"excludeColumns"`
	} `yaml:"dataset"`

	Forest struct {
		NTrees         int   `yaml:"nTrees"`
		MaxDepth       int   `yaml:"maxDepth"`
		MinSamplesLeaf int   `yaml:"minSamplesLeaf"`
		MaxFeatures    int   `yaml:"maxFeatures"`
		Seed           int64 `yaml:"seed"`
	} `yaml:"forest"`

	Weighting struct {
		ConflictWeight    float64 `yaml:"conflictWeight"`
		EntropyFeature    string  `yaml:"entropyFeature"`
		ReputationFeature string  `yaml:"reputationFeature"`
		EntropyAbove      float64 `yaml:"entropyAbove"`
		ReputationAtLeast float64 `yaml:"reputationAtLeast"`
	} `yaml:"weighting"`

	Training struct {
		NoSplit           bool    `yaml:"noSplit"`
		TestSize          float64 `yaml:"testSize"`
		CalibrationOutput string  `yaml:"calibrationOutput"`
		CalibrationC      float64 `yaml:"calibrationC"`
		RunID             string  `yaml:"runId"`
		RunIDSuffix       bool    `yaml:"runIdSuffix"`
	} `yaml:"training"`

	Artifact struct {
		Output  string  `yaml:"output"`
		Version string  `yaml:"version"`
		LimitMB float64 `yaml:"limitMB"`
	} `yaml:"artifact"`

	Scan struct {
		Min  float64 `yaml:"min"`
		Max  float64 `yaml:"max"`
		Step float64 `yaml:"step"`
	} `yaml:"scan"`

	System struct {
		DataPath    string `yaml:"dataPath"`
		MetricsFile string `yaml:"metricsFile"`
		LogLevel    string `yaml:"logLevel"`
	} `yaml:"system"`

	Publish struct {
		BaseURL string `yaml:"baseURL"`
		Token   string `yaml:"token"`
		Secret  string `yaml:"secret"`
		Timeout string `yaml:"timeout"`
	} `yaml:"publish"`
}

func Load() (Settings, error) {
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	timeout, _ := time.ParseDuration(common.DefaultPublishTimeout)
	return Settings{
		LabelColumn:       common.DefaultLabelColumn,
		ExcludeColumns:    common.DefaultExcludeColumns(),
		NTrees:            common.DefaultNTrees,
		MaxDepth:          common.DefaultMaxDepth,
		MinSamplesLeaf:    common.DefaultMinSamplesLeaf,
		Seed:              common.DefaultSeed,
		ConflictWeight:    common.DefaultConflictWeight,
		EntropyFeature:    common.FeatureBigramEntropy,
		ReputationFeature: common.FeatureDomainReputation,
		EntropyAbove:      common.DefaultEntropyAbove,
		ReputationAtLeast: common.DefaultReputationAtLeast,
		TestSize:          common.DefaultTestSize,
		CalibrationOutput: common.DefaultCalibrationOutput,
		CalibrationC:      common.DefaultCalibrationC,
		ArtifactOutput:    common.DefaultArtifactOutput,
		ArtifactVersion:   common.DefaultArtifactVersion,
		ArtifactLimitMB:   common.DefaultArtifactLimitMB,
		Scan:              DefaultScanRange(),
		LogLevel:          common.DefaultLogLevel,
		Publish:           PublishSettings{Timeout: timeout},
	}
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	def := Defaults()

	timeout, err := time.ParseDuration(config.Publish.Timeout)
	if err != nil {
		timeout = def.Publish.Timeout
	}

	excluded := config.Dataset.ExcludeColumns
	if len(excluded) == 0 {
		excluded = def.ExcludeColumns
	}

	// Environment variables override the file
	settings := Settings{
		DatasetPath:       getEnvOrDefault(common.EnvDatasetPath, config.Dataset.Path),
		LabelColumn:       getEnvOrDefault(common.EnvLabelColumn, orString(config.Dataset.LabelColumn, def.LabelColumn)),
		ExcludeColumns:    splitOrDefault(os.Getenv(common.EnvExcludeColumns), excluded),
		NTrees:            getIntFromEnvOrConfig(common.EnvNTrees, config.Forest.NTrees, def.NTrees),
		MaxDepth:          getIntFromEnvOrConfig(common.EnvMaxDepth, config.Forest.MaxDepth, def.MaxDepth),
		MinSamplesLeaf:    getIntFromEnvOrConfig(common.EnvMinSamplesLeaf, config.Forest.MinSamplesLeaf, def.MinSamplesLeaf),
		MaxFeatures:       getIntFromEnvOrConfig(common.EnvMaxFeatures, config.Forest.MaxFeatures, 0),
		Seed:              int64(getIntFromEnvOrConfig(common.EnvSeed, int(config.Forest.Seed), int(def.Seed))),
		ConflictWeight:    getFloatFromEnvOrConfig(common.EnvConflictWeight, config.Weighting.ConflictWeight, def.ConflictWeight),
		EntropyFeature:    getEnvOrDefault(common.EnvEntropyFeature, orString(config.Weighting.EntropyFeature, def.EntropyFeature)),
		ReputationFeature: getEnvOrDefault(common.EnvReputationFeature, orString(config.Weighting.ReputationFeature, def.ReputationFeature)),
		EntropyAbove:      getFloatFromEnvOrConfig(common.EnvEntropyAbove, config.Weighting.EntropyAbove, def.EntropyAbove),
		ReputationAtLeast: getFloatFromEnvOrConfig(common.EnvReputationAtLeast, config.Weighting.ReputationAtLeast, def.ReputationAtLeast),
		NoSplit:           getBoolFromEnvOrConfig(common.EnvNoSplit, config.Training.NoSplit),
		TestSize:          getFloatFromEnvOrConfig(common.EnvTestSize, config.Training.TestSize, def.TestSize),
		CalibrationOutput: getEnvOrDefault(common.EnvCalibrationOutput, orString(config.Training.CalibrationOutput, def.CalibrationOutput)),
		CalibrationC:      getFloatFromEnvOrConfig(common.EnvCalibrationC, config.Training.CalibrationC, def.CalibrationC),
		RunID:             getEnvOrDefault(common.EnvRunID, config.Training.RunID),
		RunIDSuffix:       getBoolFromEnvOrConfig(common.EnvRunIDSuffix, config.Training.RunIDSuffix),
		ArtifactOutput:    getEnvOrDefault(common.EnvArtifactOutput, orString(config.Artifact.Output, def.ArtifactOutput)),
		ArtifactVersion:   getEnvOrDefault(common.EnvArtifactVersion, orString(config.Artifact.Version, def.ArtifactVersion)),
		ArtifactLimitMB:   getFloatFromEnvOrConfig(common.EnvArtifactLimitMB, config.Artifact.LimitMB, def.ArtifactLimitMB),
		Scan:              scanRangeFromEnvOrConfig(config.Scan.Min, config.Scan.Max, config.Scan.Step),
		DataPath:          getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		MetricsFile:       getEnvOrDefault(common.EnvMetricsFile, config.System.MetricsFile),
		LogLevel:          getEnvOrDefault(common.EnvLogLevel, orString(config.System.LogLevel, def.LogLevel)),
		Publish: PublishSettings{
			BaseURL: getEnvOrDefault(common.EnvPublishBaseURL, config.Publish.BaseURL),
			Token:   getEnvOrDefault(common.EnvPublishToken, config.Publish.Token),
			Secret:  getEnvOrDefault(common.EnvPublishSecret, config.Publish.Secret),
			Timeout: getDurationOrDefault(common.EnvPublishTimeout, timeout),
		},
	}

	if err := Validate(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	def := Defaults()

	settings := Settings{
		DatasetPath:       os.Getenv(common.EnvDatasetPath),
		LabelColumn:       getEnvOrDefault(common.EnvLabelColumn, def.LabelColumn),
		ExcludeColumns:    splitOrDefault(os.Getenv(common.EnvExcludeColumns), def.ExcludeColumns),
		NTrees:            getIntOrDefault(common.EnvNTrees, def.NTrees),
		MaxDepth:          getIntOrDefault(common.EnvMaxDepth, def.MaxDepth),
		MinSamplesLeaf:    getIntOrDefault(common.EnvMinSamplesLeaf, def.MinSamplesLeaf),
		MaxFeatures:       getIntOrDefault(common.EnvMaxFeatures, 0),
		Seed:              int64(getIntOrDefault(common.EnvSeed, int(def.Seed))),
		ConflictWeight:    getFloatOrDefault(common.EnvConflictWeight, def.ConflictWeight),
		EntropyFeature:    getEnvOrDefault(common.EnvEntropyFeature, def.EntropyFeature),
		ReputationFeature: getEnvOrDefault(common.EnvReputationFeature, def.ReputationFeature),
		EntropyAbove:      getFloatOrDefault(common.EnvEntropyAbove, def.EntropyAbove),
		ReputationAtLeast: getFloatOrDefault(common.EnvReputationAtLeast, def.ReputationAtLeast),
		NoSplit:           getBoolOrDefault(common.EnvNoSplit, false),
		TestSize:          getFloatOrDefault(common.EnvTestSize, def.TestSize),
		CalibrationOutput: getEnvOrDefault(common.EnvCalibrationOutput, def.CalibrationOutput),
		CalibrationC:      getFloatOrDefault(common.EnvCalibrationC, def.CalibrationC),
		RunID:             os.Getenv(common.EnvRunID),
		RunIDSuffix:       getBoolOrDefault(common.EnvRunIDSuffix, false),
		ArtifactOutput:    getEnvOrDefault(common.EnvArtifactOutput, def.ArtifactOutput),
		ArtifactVersion:   getEnvOrDefault(common.EnvArtifactVersion, def.ArtifactVersion),
		ArtifactLimitMB:   getFloatOrDefault(common.EnvArtifactLimitMB, def.ArtifactLimitMB),
		Scan:              scanRangeFromEnvOrConfig(0, 0, 0),
		DataPath:          os.Getenv(common.EnvDataPath), // optional
		MetricsFile:       os.Getenv(common.EnvMetricsFile),
		LogLevel:          getEnvOrDefault(common.EnvLogLevel, def.LogLevel),
		Publish: PublishSettings{
			BaseURL: os.Getenv(common.EnvPublishBaseURL),
			Token:   os.Getenv(common.EnvPublishToken),
			Secret:  os.Getenv(common.EnvPublishSecret),
			Timeout: getDurationOrDefault(common.EnvPublishTimeout, def.Publish.Timeout),
		},
	}

	if err := Validate(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// ArtifactLimitBytes returns the soft deployment limit in bytes.
func (s *Settings) ArtifactLimitBytes() int64 {
	return int64(s.ArtifactLimitMB * common.BytesPerMegabyte)
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitOrDefault(v string, def []string) []string {
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func orString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getBoolFromEnvOrConfig(key string, configValue bool) bool {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseBool(env); err == nil {
			return val
		}
	}
	return configValue
}

// Validate checks settings after every override has been applied.
// Commands call it again once CLI flags are merged in.
func Validate(settings *Settings) error {
	if settings.LabelColumn == "" {
		return fmt.Errorf("label column cannot be empty")
	}

	if settings.NTrees <= 0 || settings.NTrees > common.MaxTrees {
		return fmt.Errorf("tree count must be between 1 and %d, got %d", common.MaxTrees, settings.NTrees)
	}
	if settings.MaxDepth <= 0 || settings.MaxDepth > common.MaxTreeDepth {
		return fmt.Errorf("max depth must be between 1 and %d, got %d", common.MaxTreeDepth, settings.MaxDepth)
	}
	if settings.MinSamplesLeaf <= 0 {
		return fmt.Errorf("min samples per leaf must be positive, got %d", settings.MinSamplesLeaf)
	}
	if settings.MaxFeatures < 0 {
		return fmt.Errorf("max features cannot be negative, got %d", settings.MaxFeatures)
	}

	if settings.ConflictWeight <= 0 || math.IsInf(settings.ConflictWeight, 0) || math.IsNaN(settings.ConflictWeight) {
		return fmt.Errorf("conflict weight must be a positive finite number, got %f", settings.ConflictWeight)
	}
	if settings.EntropyFeature == "" || settings.ReputationFeature == "" {
		return fmt.Errorf("conflict zone feature names cannot be empty")
	}
	if math.IsNaN(settings.EntropyAbove) || math.IsNaN(settings.ReputationAtLeast) {
		return fmt.Errorf("conflict zone thresholds must be numbers")
	}

	if !settings.NoSplit && !(settings.TestSize > 0 && settings.TestSize < 1) {
		return fmt.Errorf("test size must be between 0 and 1 (exclusive), got %f", settings.TestSize)
	}
	if !(settings.CalibrationC >= common.MinCalibrationC) || math.IsInf(settings.CalibrationC, 0) {
		return fmt.Errorf("calibration C must be at least %g, got %g", common.MinCalibrationC, settings.CalibrationC)
	}

	if settings.ArtifactVersion == "" {
		return fmt.Errorf("artifact version cannot be empty")
	}
	if !(settings.ArtifactLimitMB > 0 && settings.ArtifactLimitMB <= common.MaxArtifactMB) {
		return fmt.Errorf("artifact size limit must be between 0 and %.0f MB, got %f", common.MaxArtifactMB, settings.ArtifactLimitMB)
	}

	if err := settings.Scan.Validate(); err != nil {
		return err
	}

	if settings.Publish.Timeout < time.Second || settings.Publish.Timeout > 10*time.Minute {
		return fmt.Errorf("publish timeout must be between 1s and 10m, got %v", settings.Publish.Timeout)
	}

	return nil
}

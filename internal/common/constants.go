package common

// Dataset columns that are never features
const (
	DefaultLabelColumn = "label"
	ColumnID           = "id"
	ColumnEmail        = "email"
	ColumnTimestamp    = "timestamp"
	ColumnCreatedAt    = "created_at"
)

// Conflict zone features
const (
	FeatureBigramEntropy    = "bigram_entropy"
	FeatureDomainReputation = "domain_reputation_score"
)

// Environment variable keys
const (
	EnvConfigFile        = "CONFIG_FILE"
	EnvDatasetPath       = "DATASET_PATH"
	EnvLabelColumn       = "LABEL_COLUMN"
	EnvExcludeColumns    = "EXCLUDE_COLUMNS"
	EnvNTrees            = "N_TREES"
	EnvMaxDepth          = "MAX_DEPTH"
	EnvMinSamplesLeaf    = "MIN_SAMPLES_LEAF"
	EnvMaxFeatures       = "MAX_FEATURES"
	EnvSeed              = "SEED"
	EnvConflictWeight    = "CONFLICT_WEIGHT"
	EnvEntropyFeature    = "ENTROPY_FEATURE"
	EnvReputationFeature = "REPUTATION_FEATURE"
	EnvEntropyAbove      = "ENTROPY_ABOVE"
	EnvReputationAtLeast = "REPUTATION_AT_LEAST"
	EnvNoSplit           = "NO_SPLIT"
	EnvTestSize          = "TEST_SIZE"
	EnvCalibrationOutput = "CALIBRATION_OUTPUT"
	EnvCalibrationC      = "CALIBRATION_C"
	EnvRunID             = "RUN_ID"
	EnvRunIDSuffix       = "RUN_ID_SUFFIX"
	EnvArtifactOutput    = "ARTIFACT_OUTPUT"
	EnvArtifactVersion   = "ARTIFACT_VERSION"
	EnvArtifactLimitMB   = "ARTIFACT_LIMIT_MB"
	EnvScanMin           = "SCAN_MIN"
	EnvScanMax           = "SCAN_MAX"
	EnvScanStep          = "SCAN_STEP"
	EnvDataPath          = "DATA_PATH"
	EnvMetricsFile       = "METRICS_FILE"
	EnvLogLevel          = "LOG_LEVEL"
	EnvPublishBaseURL    = "PUBLISH_BASE_URL"
	EnvPublishToken      = "PUBLISH_TOKEN"
	EnvPublishSecret     = "PUBLISH_SECRET"
	EnvPublishTimeout    = "PUBLISH_TIMEOUT"
)

// Configuration defaults
const (
	DefaultNTrees            = 10
	DefaultMaxDepth          = 6
	DefaultMinSamplesLeaf    = 20
	DefaultTreeMinLeaf       = 50
	DefaultSeed              = 42
	DefaultConflictWeight    = 20.0
	DefaultEntropyAbove      = 3.0
	DefaultReputationAtLeast = 0.6
	DefaultTestSize          = 0.2
	DefaultCalibrationC      = 1.0
	DefaultCalibrationOutput = "data/calibration/latest.csv"
	DefaultArtifactOutput    = "random-forest.json"
	DefaultTreeOutput        = "decision-tree.json"
	DefaultArtifactVersion   = "3.0.0-forest"
	DefaultArtifactLimitMB   = 25.0
	DefaultScanMin           = 0.05
	DefaultScanMax           = 0.95
	DefaultScanStep          = 0.05
	DefaultLogLevel          = "info"
	DefaultPublishTimeout    = "30s"
)

// Validation constants
const (
	MaxTrees          = 10000
	MaxTreeDepth      = 64
	MaxArtifactMB     = 1024.0
	MinCalibrationC   = 1e-6
	BytesPerMegabyte  = 1024 * 1024
	ProbabilityDigits = 4
)

// DefaultExcludeColumns returns the metadata columns dropped from the feature set.
func DefaultExcludeColumns() []string {
	return []string{ColumnID, ColumnEmail, ColumnTimestamp, ColumnCreatedAt}
}

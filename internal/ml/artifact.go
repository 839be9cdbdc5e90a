package ml

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"fraud-forest/internal/common"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Calibration is the Platt scaling block embedded in the artifact meta.
type Calibration struct {
	Method    string  `json:"method"`
	Intercept float64 `json:"intercept"`
	Coef      float64 `json:"coef"`
	Samples   int     `json:"samples"`
	Mode      string  `json:"mode,omitempty"`
}

// RunConfig records the hyperparameters a forest was trained with.
type RunConfig struct {
	NTrees         int     `json:"n_trees"`
	MaxDepth       int     `json:"max_depth"`
	MinSamplesLeaf int     `json:"min_samples_leaf"`
	ConflictWeight float64 `json:"conflict_weight"`
	NoSplit        bool    `json:"no_split"`
	Seed           int64   `json:"seed"`
}

type Meta struct {
	Version           string             `json:"version"`
	RunID             string             `json:"runId"`
	NTrees            int                `json:"nTrees"`
	MaxDepth          int                `json:"maxDepth"`
	Features          []string           `json:"features"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	TreeCount         int                `json:"tree_count"`
	Config            RunConfig          `json:"config"`
	Calibration       *Calibration       `json:"calibration,omitempty"`
}

// ForestArtifact is the deployable model document.
type ForestArtifact struct {
	Meta   Meta   `json:"meta"`
	Forest Forest `json:"forest"`
}

// ArtifactInput gathers everything needed to assemble an artifact.
type ArtifactInput struct {
	Trees       Forest
	Features    []string
	Importances []float64
	Config      RunConfig
	Calibration *Calibration
	Version     string
	RunID       string
	RunIDSuffix bool
	Now         func() time.Time
}

// NewRunID derives a run id from wall-clock milliseconds, optionally with
// a short random suffix to avoid collisions between parallel runs.
func NewRunID(now time.Time, suffix bool) string {
	id := strconv.FormatInt(now.UnixMilli(), 10)
	if suffix {
		id += "-" + uuid.NewString()[:8]
	}
	return id
}

// BuildArtifact assembles the artifact in one step.
func BuildArtifact(in ArtifactInput) (*ForestArtifact, error) {
	if len(in.Trees) == 0 {
		return nil, ErrNoTrees
	}
	if len(in.Importances) != len(in.Features) {
		return nil, fmt.Errorf("%w: %d importances for %d features", ErrImportanceShape, len(in.Importances), len(in.Features))
	}

	version := in.Version
	if version == "" {
		version = common.DefaultArtifactVersion
	}

	runID := in.RunID
	if runID == "" {
		now := time.Now
		if in.Now != nil {
			now = in.Now
		}
		runID = NewRunID(now(), in.RunIDSuffix)
	}

	importance := make(map[string]float64, len(in.Features))
	for i, f := range in.Features {
		importance[f] = in.Importances[i]
	}

	features := make([]string, len(in.Features))
	copy(features, in.Features)

	return &ForestArtifact{
		Meta: Meta{
			Version:           version,
			RunID:             runID,
			NTrees:            in.Config.NTrees,
			MaxDepth:          in.Config.MaxDepth,
			Features:          features,
			FeatureImportance: importance,
			TreeCount:         len(in.Trees),
			Config:            in.Config,
			Calibration:       in.Calibration,
		},
		Forest: in.Trees,
	}, nil
}

// Encode renders the artifact as minified JSON.
func (a *ForestArtifact) Encode() ([]byte, error) {
	return json.Marshal(a)
}

// WriteResult describes a written artifact.
type WriteResult struct {
	Path      string
	Bytes     int64
	Digest    string // hex sha256 of the written bytes
	Limit     int64
	OverLimit bool
}

// WriteArtifact writes the minified artifact. Exceeding limit only logs a
// warning; the file is written regardless.
func WriteArtifact(a *ForestArtifact, path string, limit int64) (WriteResult, error) {
	data, err := a.Encode()
	if err != nil {
		return WriteResult{}, fmt.Errorf("failed to encode artifact: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return WriteResult{}, fmt.Errorf("failed to create artifact directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return WriteResult{}, fmt.Errorf("failed to write artifact: %w", err)
	}

	sum := sha256.Sum256(data)
	res := WriteResult{
		Path:      path,
		Bytes:     int64(len(data)),
		Digest:    hex.EncodeToString(sum[:]),
		Limit:     limit,
		OverLimit: int64(len(data)) > limit,
	}

	sizeKB := float64(res.Bytes) / 1024
	log.Info().
		Str("path", path).
		Str("size_kb", fmt.Sprintf("%.2f", sizeKB)).
		Str("size_mb", fmt.Sprintf("%.2f", sizeKB/1024)).
		Str("sha256", res.Digest).
		Int("trees", a.Meta.TreeCount).
		Msg("Random forest artifact saved")

	if res.OverLimit {
		log.Warn().
			Int64("bytes", res.Bytes).
			Int64("limit", limit).
			Msg("Artifact exceeds the KV size limit, reduce n_trees or max_depth")
	}

	return res, nil
}

// LoadArtifact reads and decodes an artifact file.
func LoadArtifact(path string) (*ForestArtifact, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	var a ForestArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, nil, fmt.Errorf("failed to decode artifact: %w", err)
	}
	return &a, data, nil
}

package cfg

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"fraud-forest/internal/common"
)

// ScanRange bounds the threshold scan. Thresholds run from Min to Max
// inclusive in increments of Step.
type ScanRange struct {
	Min  float64
	Max  float64
	Step float64
}

func DefaultScanRange() ScanRange {
	return ScanRange{
		Min:  common.DefaultScanMin,
		Max:  common.DefaultScanMax,
		Step: common.DefaultScanStep,
	}
}

func (r ScanRange) Validate() error {
	if !(r.Step > 0) || math.IsInf(r.Step, 0) {
		return fmt.Errorf("scan step must be a positive finite number, got %f", r.Step)
	}
	if !(r.Max >= r.Min) {
		return fmt.Errorf("scan max (%f) must not be below scan min (%f)", r.Max, r.Min)
	}
	if !(r.Min >= 0 && r.Max <= 1) {
		return fmt.Errorf("scan range must lie within [0, 1], got [%f, %f]", r.Min, r.Max)
	}
	return nil
}

func scanRangeFromEnvOrConfig(minV, maxV, step float64) ScanRange {
	def := DefaultScanRange()
	r := ScanRange{Min: def.Min, Max: def.Max, Step: def.Step}
	// A zero min is legal, so the file value only applies when the file set a range.
	if maxV != 0 || minV != 0 {
		r.Min, r.Max = minV, maxV
	}
	if step != 0 {
		r.Step = step
	}
	r.Min = getEnvAsFloat(common.EnvScanMin, r.Min)
	r.Max = getEnvAsFloat(common.EnvScanMax, r.Max)
	r.Step = getEnvAsFloat(common.EnvScanStep, r.Step)
	return r
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsFloat(name string, defaultVal float64) float64 {
	if v, err := strconv.ParseFloat(getEnv(name, ""), 64); err == nil {
		return v
	}
	return defaultVal
}

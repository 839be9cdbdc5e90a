package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"fraud-forest/internal/common"
	"fraud-forest/internal/dataset"
)

func main() {
	var (
		output    = flag.String("output", "data/features/sample.csv", "Output CSV path")
		rows      = flag.Int("rows", 5000, "Number of rows to generate")
		fraudRate = flag.Float64("fraud-rate", 0.15, "Fraction of fraudulent rows outside the conflict zone")
		seed      = flag.Int64("seed", 42, "Random seed")
	)
	flag.Parse()

	fmt.Printf("Generating synthetic fraud dataset...\n")
	fmt.Printf("  Rows: %d\n", *rows)
	fmt.Printf("  Fraud rate: %.2f\n", *fraudRate)
	fmt.Printf("  Output: %s\n", *output)

	if err := generate(*output, *rows, *fraudRate, *seed); err != nil {
		log.Fatalf("Failed to generate data: %v", err)
	}

	// Read it back through the training loader so a bad file fails here.
	d, err := dataset.LoadCSV(*output, dataset.Options{
		LabelColumn:    common.DefaultLabelColumn,
		ExcludeColumns: common.DefaultExcludeColumns(),
	})
	if err != nil {
		log.Fatalf("Generated file does not load: %v", err)
	}
	legit, fraud := d.ClassCounts()
	fmt.Printf("✓ Wrote %d rows (%d legit, %d fraud) with %d features\n", d.Len(), legit, fraud, len(d.Features))
}

func generate(path string, n int, fraudRate float64, seed int64) error {
	rng := rand.New(rand.NewSource(seed))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		common.ColumnID,
		common.ColumnEmail,
		common.FeatureBigramEntropy,
		common.FeatureDomainReputation,
		"digit_ratio",
		"local_length",
		"has_plus_alias",
		common.DefaultLabelColumn,
	}
	if err := w.Write(header); err != nil {
		return err
	}

	zone := 0
	for i := 0; i < n; i++ {
		fraud := rng.Float64() < fraudRate

		// Fraudulent addresses skew toward random-looking local parts on
		// low reputation domains.
		entropy := clamp(2.2+rng.NormFloat64()*0.5, 0, 5)
		reputation := clamp(0.75+rng.NormFloat64()*0.15, 0, 1)
		digits := clamp(0.05+math.Abs(rng.NormFloat64())*0.05, 0, 1)
		length := 6 + rng.Intn(10)
		if fraud {
			entropy = clamp(3.4+rng.NormFloat64()*0.5, 0, 5)
			reputation = clamp(0.35+rng.NormFloat64()*0.2, 0, 1)
			digits = clamp(0.3+math.Abs(rng.NormFloat64())*0.15, 0, 1)
			length = 10 + rng.Intn(16)
		}

		// High entropy on a reputable domain is ambiguous: label it by coin flip.
		if entropy > common.DefaultEntropyAbove && reputation >= common.DefaultReputationAtLeast {
			fraud = rng.Float64() < 0.5
			zone++
		}

		alias := 0
		if rng.Float64() < 0.08 {
			alias = 1
		}
		label := 0
		if fraud {
			label = 1
		}

		record := []string{
			strconv.Itoa(i + 1),
			fmt.Sprintf("user%d@example%d.com", i+1, rng.Intn(40)),
			formatFloat(entropy),
			formatFloat(reputation),
			formatFloat(digits),
			strconv.Itoa(length),
			strconv.Itoa(alias),
			strconv.Itoa(label),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	fmt.Printf("  Conflict zone rows: %d\n", zone)
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

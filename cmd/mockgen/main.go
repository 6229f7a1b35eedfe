package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"audit-analytics/cmd/mockgen/engine"
	"audit-analytics/internal/dataset"
)

func main() {
	hotel := flag.String("hotel", "HOTELTEST_0", "Hotel id to generate")
	scenario := flag.String("scenario", "mild", "Scenario to generate: mild, chaos, drift")
	distribution := flag.String("distribution", "uniform", "Distribution to use: uniform, weibull")
	outDir := flag.String("out", "./.cache", "Output directory for mock files")
	count := flag.Int("count", 400, "Number of audit runs to generate")
	seed := flag.Int64("seed", 1, "Random seed")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		HotelID:      *hotel,
		Scenario:     *scenario,
		Distribution: *distribution,
		Count:        *count,
		Seed:         *seed,
		Now:          time.Now(),
	}

	fmt.Printf("Generating scenario '%s' (Distribution: %s, Count: %d) to %s...\n", cfg.Scenario, cfg.Distribution, cfg.Count, *outDir)

	snap, err := engine.Generate(cfg)
	if err != nil {
		fmt.Printf("Failed to generate mock data: %v\n", err)
		os.Exit(1)
	}

	store := dataset.NewStore()
	store.Put(snap)
	if err := store.Save(*outDir, cfg.HotelID); err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Done.")
}

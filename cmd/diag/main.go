package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/skytrack/skytrack/internal/elements"
	"github.com/skytrack/skytrack/internal/orbital"
	"github.com/skytrack/skytrack/internal/passes"
	"github.com/skytrack/skytrack/internal/transform"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if len(os.Args) < 2 {
		fmt.Println("usage: diag <tle-file>")
		os.Exit(1)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Println("ERROR reading element file:", err)
		os.Exit(1)
	}

	sets, err := elements.Parse(bytes.NewReader(data), logger)
	if err != nil {
		fmt.Println("ERROR parsing elements:", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d element sets\n", len(sets))

	for _, set := range sets {
		params, err := orbital.Derive(set, 0)
		if err != nil {
			fmt.Printf("  %s (catalog %d): ERROR %v\n", set.Name, set.CatalogID, err)
			continue
		}
		fmt.Printf("  %s (catalog %d): %s period=%.1fmin apogee=%.0fkm perigee=%.0fkm v=%.2fkm/s eclipse=%.2f\n",
			set.Name, set.CatalogID, params.Class, params.PeriodMinutes,
			params.ApogeeKm, params.PerigeeKm, params.MeanVelocityKmS, params.EclipseFraction)
	}

	obs, err := transform.NewObserverPosition(41.0, 29.0, 0)
	if err != nil {
		fmt.Println("ERROR building observer:", err)
		os.Exit(1)
	}

	now := time.Now().UTC()
	fmt.Printf("\nPrediction start: %v (observer 41.0N 29.0E)\n", now)

	req := passes.Request{
		Observer:     obs,
		Sets:         sets,
		Start:        now,
		End:          now.Add(24 * time.Hour),
		Step:         30 * time.Second,
		MinElevation: 10,
		MaxPasses:    10,
	}

	results := passes.Predict(context.Background(), req)

	totalPasses := 0
	for _, sat := range results {
		if sat.Error != "" {
			fmt.Printf("  catalog %d: ERROR %s\n", sat.CatalogID, sat.Error)
			continue
		}
		fmt.Printf("  catalog %d (%s): %d passes\n", sat.CatalogID, sat.Name, len(sat.Passes))
		totalPasses += len(sat.Passes)
		for j, p := range sat.Passes {
			fmt.Printf("    pass %d: aos=%v los=%v maxEl=%.1f dur=%.0fs partial=%v\n",
				j, p.AOS.Format(time.RFC3339), p.LOS.Format(time.RFC3339),
				p.MaxElevation, p.DurationSeconds, p.Partial)
		}
	}
	fmt.Printf("\nTotal passes found: %d\n", totalPasses)
}

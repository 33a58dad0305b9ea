package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ChristopherRabotin/fuelopt"
	kitlog "github.com/go-kit/kit/log"
)

// Reads the configuration, optimizes the mission, and prints the summary.

var (
	confPath string
	csvOut   string
	jsonOut  string
	compare  bool
	verbose  bool
)

func init() {
	flag.StringVar(&confPath, "config", "", "directory holding fuelopt.toml (defaults to $FUELOPT_CONFIG)")
	flag.StringVar(&csvOut, "csv", "", "write the optimized trajectory to this CSV file")
	flag.StringVar(&jsonOut, "json", "", "write the optimization result to this JSON file")
	flag.BoolVar(&compare, "compare", false, "also compare all propulsion systems for this mission")
	flag.BoolVar(&verbose, "verbose", false, "log optimization progress")
}

func main() {
	flag.Parse()
	cfg, err := fuelopt.LoadConfig(confPath)
	if err != nil {
		log.Fatalf("configuration: %s", err)
	}

	logger := kitlog.NewNopLogger()
	if verbose {
		logger = kitlog.NewLogfmtLogger(os.Stderr)
	}

	optimizer := fuelopt.NewFuelOptimizer(logger)
	optimizer.Trajectory.GA = cfg.GA

	result, err := optimizer.OptimizeMission(cfg.Mission, nil)
	if err != nil {
		log.Fatalf("optimization: %s", err)
	}

	fmt.Printf("method:     %s\n", result.Summary.Method)
	fmt.Printf("propulsion: %s\n", result.Summary.System)
	fmt.Printf("Δv:         %.4f km/s\n", result.Summary.TotalΔv)
	fmt.Printf("fuel:       %.2f kg (%.2f kg -> %.2f kg)\n", result.Summary.FuelUsed, result.Summary.InitialMass, result.Summary.FinalMass)
	fmt.Printf("duration:   %s over %d maneuver(s)\n", result.Summary.Duration, result.Summary.Maneuvers)

	analysis := optimizer.AnalyzeFuelEfficiency(result)
	fmt.Printf("Δv vs Hohmann minimum: %.3f (min %.4f km/s)\n", analysis.ΔvEfficiency, analysis.TheoreticalMinΔv)

	if compare {
		rows, err := optimizer.ComparePropulsionSystems(cfg.Mission, nil)
		if err != nil {
			log.Fatalf("comparison: %s", err)
		}
		fmt.Println("\npropulsion comparison:")
		for name, row := range rows {
			if row.Err != nil {
				fmt.Printf("  %-16s unusable: %s\n", name, row.Err)
				continue
			}
			fmt.Printf("  %-16s fuel=%7.2f kg  burn=%-14s score=%.3f\n", name, row.FuelMass, row.BurnTime, row.Score)
		}
	}

	if csvOut != "" {
		if err := fuelopt.ExportTrajectoryCSV(result.Trajectory, csvOut); err != nil {
			log.Fatalf("CSV export: %s", err)
		}
	}
	if jsonOut != "" {
		if err := fuelopt.ExportResultJSON(result, jsonOut); err != nil {
			log.Fatalf("JSON export: %s", err)
		}
	}
}

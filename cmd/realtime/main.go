package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ChristopherRabotin/fuelopt"
	kitlog "github.com/go-kit/kit/log"
)

// Runs a real-time optimization session against simulated telemetry until
// the duration elapses or the process is interrupted.

var (
	confPath string
	duration time.Duration
	seed     int64
)

func init() {
	flag.StringVar(&confPath, "config", "", "directory holding fuelopt.toml (defaults to $FUELOPT_CONFIG)")
	flag.DurationVar(&duration, "duration", 5*time.Minute, "how long to run the session")
	flag.Int64Var(&seed, "seed", 0, "telemetry simulation seed (0 draws from the clock)")
}

func main() {
	flag.Parse()
	cfg, err := fuelopt.LoadConfig(confPath)
	if err != nil {
		log.Fatalf("configuration: %s", err)
	}

	logger := kitlog.NewLogfmtLogger(os.Stderr)
	telemetry := fuelopt.NewSimulatedTelemetry(seed)
	session := fuelopt.NewSession(cfg.Mission, &cfg.RealTime, telemetry, logger)
	session.OnAlert(func(event fuelopt.Event) {
		fmt.Printf("[%s] %s %s (value %g)\n", event.Severity, event.Timestamp.Format(time.RFC3339), event.Description, event.Value)
	})

	initial := fuelopt.NewOrbitFromOE(fuelopt.Earth.Radius+cfg.Mission.InitialAltitude, 0, 45, 0, 0, 0, fuelopt.Earth)
	sys, found := fuelopt.NewPropulsionModel().Get("bipropellant")
	if !found {
		log.Fatal("reference propulsion system missing from catalog")
	}
	if err := session.Start(initial, sys); err != nil {
		log.Fatalf("session: %s", err)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(duration):
	case <-interrupt:
		fmt.Println("interrupted")
	}
	if metrics, ok := session.Status(); ok {
		fmt.Printf("final status: %s, fuel %.2f kg, altitude %.1f km, score %.3f\n",
			metrics.Status, metrics.FuelMass, metrics.Altitude, metrics.PerformanceScore)
	}
	session.Stop()

	stats := session.PerformanceStatistics()
	fmt.Printf("optimizations: %d, success rate %.2f, mean cycle %s\n",
		stats.TotalOptimizations, stats.SuccessRate, stats.AverageOptimizationTime)
}

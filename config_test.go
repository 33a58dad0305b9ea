package fuelopt

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "fuelopt.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := writeConfig(t, `
[general]
output_path = "/tmp/fuelopt"

[mission]
initial_altitude = 500.0
target_altitude = 900.0
max_mission_time = 43200.0
max_fuel_mass = 150.0
max_total_mass = 1200.0
max_power = 3000.0
priority = "balanced"

[ga]
population_size = 30
seed = 7

[realtime]
min_fuel_mass = 15.0
optimization_interval = 120.0
`)
	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OutputDir != "/tmp/fuelopt" {
		t.Fatalf("output dir %q", cfg.OutputDir)
	}
	if cfg.Mission.InitialAltitude != 500 || cfg.Mission.TargetAltitude != 900 {
		t.Fatalf("altitudes %f/%f", cfg.Mission.InitialAltitude, cfg.Mission.TargetAltitude)
	}
	if cfg.Mission.MaxMissionTime != 12*time.Hour {
		t.Fatalf("mission time %s", cfg.Mission.MaxMissionTime)
	}
	if cfg.Mission.Priority != PriorityBalanced {
		t.Fatalf("priority %s", cfg.Mission.Priority)
	}
	if cfg.GA.PopulationSize != 30 || cfg.GA.Seed != 7 {
		t.Fatalf("GA %+v", cfg.GA)
	}
	// Unset keys keep their defaults.
	if cfg.GA.MutationRate != 0.1 {
		t.Fatalf("mutation rate %f", cfg.GA.MutationRate)
	}
	if cfg.RealTime.MinFuelMass != 15 {
		t.Fatalf("min fuel %f", cfg.RealTime.MinFuelMass)
	}
	if cfg.RealTime.OptimizationInterval != 2*time.Minute {
		t.Fatalf("optimization interval %s", cfg.RealTime.OptimizationInterval)
	}
	if cfg.RealTime.ConstraintCheckInterval != 10*time.Second {
		t.Fatalf("check interval default %s", cfg.RealTime.ConstraintCheckInterval)
	}
}

func TestLoadConfigUnknownKey(t *testing.T) {
	dir := writeConfig(t, `
[mission]
initial_altitude = 500.0
warp_factor = 9.0
`)
	if _, err := LoadConfig(dir); err == nil {
		t.Fatal("unknown key must be rejected")
	}
}

func TestLoadConfigBadPriority(t *testing.T) {
	dir := writeConfig(t, `
[mission]
priority = "warp"
`)
	if _, err := LoadConfig(dir); err == nil {
		t.Fatal("unknown priority must be rejected")
	}
}

func TestLoadConfigMissingPath(t *testing.T) {
	t.Setenv("FUELOPT_CONFIG", "")
	if _, err := LoadConfig(""); err == nil {
		t.Fatal("missing path must be an error")
	}
}

func TestLoadConfigEnvFallback(t *testing.T) {
	dir := writeConfig(t, `
[mission]
target_altitude = 750.0
`)
	t.Setenv("FUELOPT_CONFIG", dir)
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Mission.TargetAltitude != 750 {
		t.Fatalf("target altitude %f", cfg.Mission.TargetAltitude)
	}
}

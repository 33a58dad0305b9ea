package fuelopt

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config is the on-disk configuration, read from fuelopt.toml. Every knob is
// an explicit field; unknown keys in the file are a load error rather than
// being silently ignored.
type Config struct {
	OutputDir string
	Mission   MissionRequirements
	GA        GAConfig
	RealTime  RealTimeConstraints
}

// DefaultConfig returns the reference configuration: a LEO raise from 400 km
// to 800 km on a one-tonne bus, fuel priority.
func DefaultConfig() Config {
	return Config{
		Mission: MissionRequirements{
			InitialAltitude: 400,
			TargetAltitude:  800,
			MaxMissionTime:  24 * time.Hour,
			MaxFuelMass:     100,
			MaxTotalMass:    1000,
			MaxPower:        5000,
			Priority:        PriorityFuel,
		},
		GA:       DefaultGAConfig(),
		RealTime: DefaultRealTimeConstraints(),
	}
}

var knownConfigKeys = map[string]bool{
	"general.output_path":                 true,
	"mission.initial_altitude":            true,
	"mission.target_altitude":             true,
	"mission.max_mission_time":            true,
	"mission.max_fuel_mass":               true,
	"mission.max_total_mass":              true,
	"mission.max_power":                   true,
	"mission.priority":                    true,
	"ga.population_size":                  true,
	"ga.max_generations":                  true,
	"ga.stall_limit":                      true,
	"ga.tournament_size":                  true,
	"ga.mutation_rate":                    true,
	"ga.mutation_sigma":                   true,
	"ga.seed":                             true,
	"realtime.min_fuel_mass":              true,
	"realtime.min_power_level":            true,
	"realtime.max_orbital_decay_rate":     true,
	"realtime.max_collision_probability":  true,
	"realtime.max_temperature":            true,
	"realtime.min_communication_quality":  true,
	"realtime.optimization_interval":      true,
	"realtime.constraint_check_interval":  true,
	"realtime.alert_threshold":            true,
}

// LoadConfig reads fuelopt.toml from the given directory. An empty path
// falls back to the FUELOPT_CONFIG environment variable. Durations are in
// seconds in the file.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = os.Getenv("FUELOPT_CONFIG")
		if path == "" {
			return Config{}, fmt.Errorf("no configuration path given and `FUELOPT_CONFIG` is missing or empty")
		}
	}
	v := viper.New()
	v.SetConfigName("fuelopt")
	v.SetConfigType("toml")
	v.AddConfigPath(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("could not read %s/fuelopt.toml: %v", path, err)
	}
	for _, key := range v.AllKeys() {
		if !knownConfigKeys[key] {
			return Config{}, fmt.Errorf("unknown configuration key %q", key)
		}
	}

	cfg := DefaultConfig()
	cfg.OutputDir = v.GetString("general.output_path")

	seconds := func(key string) time.Duration {
		return time.Duration(v.GetFloat64(key) * float64(time.Second))
	}
	setFloat := func(key string, dst *float64) {
		if v.IsSet(key) {
			*dst = v.GetFloat64(key)
		}
	}
	setInt := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v.IsSet(key) {
			*dst = seconds(key)
		}
	}

	setFloat("mission.initial_altitude", &cfg.Mission.InitialAltitude)
	setFloat("mission.target_altitude", &cfg.Mission.TargetAltitude)
	setDuration("mission.max_mission_time", &cfg.Mission.MaxMissionTime)
	setFloat("mission.max_fuel_mass", &cfg.Mission.MaxFuelMass)
	setFloat("mission.max_total_mass", &cfg.Mission.MaxTotalMass)
	setFloat("mission.max_power", &cfg.Mission.MaxPower)
	if v.IsSet("mission.priority") {
		priority, err := ParsePriority(v.GetString("mission.priority"))
		if err != nil {
			return Config{}, err
		}
		cfg.Mission.Priority = priority
	}

	setInt("ga.population_size", &cfg.GA.PopulationSize)
	setInt("ga.max_generations", &cfg.GA.MaxGenerations)
	setInt("ga.stall_limit", &cfg.GA.StallLimit)
	setInt("ga.tournament_size", &cfg.GA.TournamentSize)
	setFloat("ga.mutation_rate", &cfg.GA.MutationRate)
	setFloat("ga.mutation_sigma", &cfg.GA.MutationSigma)
	if v.IsSet("ga.seed") {
		cfg.GA.Seed = v.GetInt64("ga.seed")
	}

	setFloat("realtime.min_fuel_mass", &cfg.RealTime.MinFuelMass)
	setFloat("realtime.min_power_level", &cfg.RealTime.MinPowerLevel)
	setFloat("realtime.max_orbital_decay_rate", &cfg.RealTime.MaxOrbitalDecayRate)
	setFloat("realtime.max_collision_probability", &cfg.RealTime.MaxCollisionProbability)
	setFloat("realtime.max_temperature", &cfg.RealTime.MaxTemperature)
	setFloat("realtime.min_communication_quality", &cfg.RealTime.MinCommunicationQuality)
	setDuration("realtime.optimization_interval", &cfg.RealTime.OptimizationInterval)
	setDuration("realtime.constraint_check_interval", &cfg.RealTime.ConstraintCheckInterval)
	setFloat("realtime.alert_threshold", &cfg.RealTime.AlertThreshold)

	if err := cfg.Mission.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

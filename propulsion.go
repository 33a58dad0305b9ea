package fuelopt

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// g0 is the standard gravitational acceleration in m/s².
const g0 = 9.80665

// PropulsionType defines an enum of propulsion technologies.
type PropulsionType uint8

const (
	// Chemical covers mono and bipropellant thrusters.
	Chemical PropulsionType = iota + 1
	// Electric is generic electric propulsion.
	Electric
	// Ion is gridded ion propulsion.
	Ion
	// HallEffect is Hall-effect propulsion.
	HallEffect
	// SolarSail is propellant-less solar sailing.
	SolarSail
	// Nuclear is nuclear-thermal propulsion.
	Nuclear
)

func (t PropulsionType) String() string {
	switch t {
	case Chemical:
		return "chemical"
	case Electric:
		return "electric"
	case Ion:
		return "ion"
	case HallEffect:
		return "hall-effect"
	case SolarSail:
		return "solar-sail"
	case Nuclear:
		return "nuclear"
	}
	panic("cannot stringify unknown propulsion type")
}

// powerLimited returns whether this technology trades power for thrust.
func (t PropulsionType) powerLimited() bool {
	return t == Electric || t == Ion || t == HallEffect
}

// PropulsionSystem defines a propulsion system and its performance figures.
type PropulsionSystem struct {
	Name       string
	Type       PropulsionType
	Thrust     float64 // N
	Isp        float64 // s
	Power      float64 // W
	Efficiency float64 // dimensionless, in [0, 1]
	DryMass    float64 // kg
	FuelMass   float64 // kg
}

// Validate returns an error if this system is physically inconsistent.
func (p PropulsionSystem) Validate() error {
	if p.Efficiency < 0 || p.Efficiency > 1 {
		return fmt.Errorf("%s: efficiency must be between 0 and 1, got %f", p.Name, p.Efficiency)
	}
	return nil
}

func (p PropulsionSystem) String() string {
	return fmt.Sprintf("%s (%s) F=%.3fN Isp=%.0fs", p.Name, p.Type, p.Thrust, p.Isp)
}

// NewPropulsionSystem returns a validated propulsion system.
func NewPropulsionSystem(name string, ptype PropulsionType, thrust, isp, power, efficiency, dryMass, fuelMass float64) (*PropulsionSystem, error) {
	sys := &PropulsionSystem{name, ptype, thrust, isp, power, efficiency, dryMass, fuelMass}
	if err := sys.Validate(); err != nil {
		return nil, err
	}
	return sys, nil
}

// FuelConsumption holds the derived cost of a maneuver. Never mutated after
// computation.
type FuelConsumption struct {
	Δv       float64 // km/s
	FuelMass float64 // kg
	BurnTime time.Duration
	Energy   float64 // J
}

// Errors surfaced by propulsion selection and budgeting.
var (
	ErrNoFeasibleSystem = errors.New("no suitable propulsion system found for given constraints")
	ErrMassDepleted     = errors.New("fuel mass exceeds available vehicle mass")
)

// SelectionConstraints bounds and weights propulsion selection. A zero bound
// disables that constraint. Every recognized knob is a field: there is no
// pass-through parameter map, and unknown configuration keys are rejected at
// load time (see config.go).
type SelectionConstraints struct {
	MaxTotalMass    float64       // kg, dry + carried fuel + consumed fuel
	MaxPower        float64       // W
	MaxBurnTime     time.Duration // per-maneuver burn time bound
	MaxFuelMass     float64       // kg of consumed fuel
	MassWeight      float64
	PowerWeight     float64
	TimeWeight      float64
	EfficiencyBonus float64
}

// DefaultSelectionConstraints returns the reference weights: mass 1.0,
// power 0.1, time 0.01, efficiency bonus 0.5, and a one-hour burn bound.
func DefaultSelectionConstraints() SelectionConstraints {
	return SelectionConstraints{
		MaxBurnTime:     time.Hour,
		MassWeight:      1.0,
		PowerWeight:     0.1,
		TimeWeight:      0.01,
		EfficiencyBonus: 0.5,
	}
}

// PropulsionModel maintains the catalog of propulsion systems and the
// consumption math. Stateless past construction and safe for concurrent
// read-only use.
type PropulsionModel struct {
	systems map[string]*PropulsionSystem
}

// NewPropulsionModel returns a model seeded with the four reference systems:
// two chemical and two electric.
func NewPropulsionModel() *PropulsionModel {
	pm := &PropulsionModel{systems: make(map[string]*PropulsionSystem)}
	pm.systems["monopropellant"] = &PropulsionSystem{"Monopropellant Hydrazine", Chemical, 22.0, 230.0, 0.0, 0.95, 2.5, 10.0}
	pm.systems["bipropellant"] = &PropulsionSystem{"Bipropellant N2O4/MMH", Chemical, 490.0, 310.0, 0.0, 0.98, 8.0, 25.0}
	pm.systems["ion_thruster"] = &PropulsionSystem{"Ion Thruster XIPS-25", Ion, 0.165, 3500.0, 4500.0, 0.65, 15.0, 5.0}
	pm.systems["hall_thruster"] = &PropulsionSystem{"Hall Effect Thruster", HallEffect, 0.83, 1600.0, 1350.0, 0.55, 8.0, 3.0}
	return pm
}

// Add registers a custom propulsion system under the given key after
// validation.
func (pm *PropulsionModel) Add(key string, sys *PropulsionSystem) error {
	if err := sys.Validate(); err != nil {
		return err
	}
	pm.systems[key] = sys
	return nil
}

// Get returns the propulsion system registered under the given key.
func (pm *PropulsionModel) Get(key string) (*PropulsionSystem, bool) {
	sys, found := pm.systems[key]
	return sys, found
}

// Names returns the sorted catalog keys.
func (pm *PropulsionModel) Names() []string {
	names := make([]string, 0, len(pm.systems))
	for name := range pm.systems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FuelConsumption computes the cost of a Δv (km/s) burn from an initial
// vehicle mass (kg) via the Tsiolkovsky equation. Electric systems use an
// effective specific impulse capped by the available power. A zero Δv costs
// nothing.
func (pm *PropulsionModel) FuelConsumption(sys *PropulsionSystem, Δv, mass float64) FuelConsumption {
	ΔvMs := Δv * 1000
	var fuelMass, burnSec, energy float64
	switch {
	case sys.Type == Chemical:
		fuelMass = mass * (1 - math.Exp(-ΔvMs/(sys.Isp*g0)))
		burnSec = fuelMass * sys.Isp * g0 / sys.Thrust
		// Approximate chemical energy density, J/kg.
		energy = fuelMass * 1e6
	case sys.Type.powerLimited():
		powerAvailable := sys.Power * sys.Efficiency
		thrustPower := sys.Thrust * sys.Isp * g0 / 2
		effectiveIsp := sys.Isp * math.Min(1.0, powerAvailable/thrustPower)
		fuelMass = mass * (1 - math.Exp(-ΔvMs/(effectiveIsp*g0)))
		burnSec = fuelMass * effectiveIsp * g0 / sys.Thrust
		energy = powerAvailable * burnSec
	default:
		// Solar sails and the like carry no expendable propellant.
	}
	return FuelConsumption{
		Δv:       Δv,
		FuelMass: fuelMass,
		BurnTime: time.Duration(burnSec * float64(time.Second)),
		Energy:   energy,
	}
}

// meetsConstraints reports whether a system and its consumption satisfy every
// bound of the constraint set.
func (pm *PropulsionModel) meetsConstraints(sys *PropulsionSystem, c FuelConsumption, cons SelectionConstraints) bool {
	if cons.MaxTotalMass > 0 && sys.DryMass+sys.FuelMass+c.FuelMass > cons.MaxTotalMass {
		return false
	}
	if cons.MaxPower > 0 && sys.Power > 0 && sys.Power > cons.MaxPower {
		return false
	}
	if cons.MaxBurnTime > 0 && c.BurnTime > cons.MaxBurnTime {
		return false
	}
	if cons.MaxFuelMass > 0 && c.FuelMass > cons.MaxFuelMass {
		return false
	}
	return true
}

// score rates a candidate, lower being better.
func (pm *PropulsionModel) score(sys *PropulsionSystem, c FuelConsumption, cons SelectionConstraints) float64 {
	score := cons.MassWeight * (sys.DryMass + c.FuelMass)
	score += cons.PowerWeight * sys.Power
	score += cons.TimeWeight * c.BurnTime.Seconds()
	score -= cons.EfficiencyBonus * sys.Efficiency
	return score
}

// OptimalPropulsion exhaustively scores every catalog entry against the
// constraints and returns the minimum-score candidate along with its
// consumption. Candidates failing any bound are excluded; if none qualifies
// the call fails with ErrNoFeasibleSystem.
func (pm *PropulsionModel) OptimalPropulsion(Δv, mass float64, cons SelectionConstraints) (*PropulsionSystem, FuelConsumption, error) {
	var best *PropulsionSystem
	var bestConsumption FuelConsumption
	bestScore := math.Inf(1)
	for _, name := range pm.Names() {
		sys := pm.systems[name]
		c := pm.FuelConsumption(sys, Δv, mass)
		if !pm.meetsConstraints(sys, c, cons) {
			continue
		}
		if s := pm.score(sys, c, cons); s < bestScore {
			bestScore = s
			best = sys
			bestConsumption = c
		}
	}
	if best == nil {
		return nil, FuelConsumption{}, ErrNoFeasibleSystem
	}
	return best, bestConsumption, nil
}

// MultiBurnConsumption sequentially applies the rocket equation to a burn
// sequence, reducing the available mass after each burn. Depleting the
// vehicle mass is an error surfaced to the caller, never silently clamped.
func (pm *PropulsionModel) MultiBurnConsumption(sys *PropulsionSystem, Δvs []float64, mass float64) ([]FuelConsumption, error) {
	consumptions := make([]FuelConsumption, 0, len(Δvs))
	currentMass := mass
	for i, Δv := range Δvs {
		c := pm.FuelConsumption(sys, Δv, currentMass)
		currentMass -= c.FuelMass
		if currentMass <= 0 {
			return nil, fmt.Errorf("burn %d: %w", i+1, ErrMassDepleted)
		}
		consumptions = append(consumptions, c)
	}
	return consumptions, nil
}

// MissionPhase is one Δv phase of a mission profile.
type MissionPhase struct {
	Name string
	Δv   float64 // km/s
}

// PhaseConsumption is the realized cost of one mission phase.
type PhaseConsumption struct {
	Phase      string
	Δv         float64
	FuelMass   float64
	BurnTime   time.Duration
	Energy     float64
	MassBefore float64
	MassAfter  float64
}

// MissionConsumption aggregates the cost of a full mission profile.
type MissionConsumption struct {
	TotalFuelMass float64
	TotalEnergy   float64
	TotalBurnTime time.Duration
	FinalMass     float64
	Phases        []PhaseConsumption
	System        string
}

// TotalMissionConsumption runs a mission profile through the consumption
// model phase by phase, carrying the shrinking vehicle mass forward.
func (pm *PropulsionModel) TotalMissionConsumption(sys *PropulsionSystem, phases []MissionPhase, initialMass float64) (MissionConsumption, error) {
	total := MissionConsumption{System: sys.Name, Phases: make([]PhaseConsumption, 0, len(phases))}
	currentMass := initialMass
	for i, phase := range phases {
		name := phase.Name
		if name == "" {
			name = fmt.Sprintf("phase-%d", i+1)
		}
		c := pm.FuelConsumption(sys, phase.Δv, currentMass)
		if currentMass-c.FuelMass <= 0 {
			return MissionConsumption{}, fmt.Errorf("%s: %w", name, ErrMassDepleted)
		}
		total.Phases = append(total.Phases, PhaseConsumption{
			Phase:      name,
			Δv:         phase.Δv,
			FuelMass:   c.FuelMass,
			BurnTime:   c.BurnTime,
			Energy:     c.Energy,
			MassBefore: currentMass,
			MassAfter:  currentMass - c.FuelMass,
		})
		total.TotalFuelMass += c.FuelMass
		total.TotalEnergy += c.Energy
		total.TotalBurnTime += c.BurnTime
		currentMass -= c.FuelMass
	}
	total.FinalMass = currentMass
	return total, nil
}

// IspFromThrustPower returns the specific impulse of an electric system from
// its thrust (N), power (W) and efficiency.
func IspFromThrustPower(thrust, power, efficiency float64) (float64, error) {
	if thrust <= 0 || power <= 0 || efficiency <= 0 {
		return 0, errors.New("thrust, power, and efficiency must be positive")
	}
	return (2 * power * efficiency) / (thrust * g0), nil
}

// ThrustFromIspPower returns the thrust of an electric system from its
// specific impulse (s), power (W) and efficiency.
func ThrustFromIspPower(isp, power, efficiency float64) (float64, error) {
	if isp <= 0 || power <= 0 || efficiency <= 0 {
		return 0, errors.New("specific impulse, power, and efficiency must be positive")
	}
	return (2 * power * efficiency) / (isp * g0), nil
}

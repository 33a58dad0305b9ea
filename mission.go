package fuelopt

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-kit/kit/log"
)

// Priority selects which objective a mission optimization favors.
type Priority uint8

const (
	// PriorityFuel minimizes fuel consumption.
	PriorityFuel Priority = iota + 1
	// PriorityTime minimizes mission duration.
	PriorityTime
	// PriorityMass minimizes total vehicle mass.
	PriorityMass
	// PriorityBalanced trades off fuel, time, and complexity.
	PriorityBalanced
)

func (p Priority) String() string {
	switch p {
	case PriorityFuel:
		return "fuel"
	case PriorityTime:
		return "time"
	case PriorityMass:
		return "mass"
	case PriorityBalanced:
		return "balanced"
	}
	panic("cannot stringify unknown optimization priority")
}

// ParsePriority returns the priority named by s. Unknown names are an error,
// not a silent default.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "fuel":
		return PriorityFuel, nil
	case "time":
		return PriorityTime, nil
	case "mass":
		return PriorityMass, nil
	case "balanced":
		return PriorityBalanced, nil
	}
	return 0, fmt.Errorf("optimization priority must be one of fuel, time, mass, balanced (got %q)", s)
}

// MissionRequirements bounds a mission optimization.
type MissionRequirements struct {
	InitialAltitude float64 // km
	TargetAltitude  float64 // km
	MaxMissionTime  time.Duration
	MaxFuelMass     float64 // kg
	MaxTotalMass    float64 // kg
	MaxPower        float64 // W
	Priority        Priority
}

// Validate rejects inconsistent requirements.
func (m MissionRequirements) Validate() error {
	switch m.Priority {
	case PriorityFuel, PriorityTime, PriorityMass, PriorityBalanced:
	default:
		return fmt.Errorf("invalid optimization priority %d", m.Priority)
	}
	if m.InitialAltitude <= 0 || m.TargetAltitude <= 0 {
		return fmt.Errorf("altitudes must be positive, got initial=%.1f target=%.1f", m.InitialAltitude, m.TargetAltitude)
	}
	if m.MaxTotalMass <= 0 {
		return fmt.Errorf("max total mass must be positive, got %.1f", m.MaxTotalMass)
	}
	return nil
}

// MissionSummary is the human-facing digest of an optimization.
type MissionSummary struct {
	InitialMass float64 // kg
	FinalMass   float64 // kg
	FuelUsed    float64 // kg
	Duration    time.Duration
	TotalΔv     float64 // km/s
	Maneuvers   int
	System      string
	Method      string
}

// OptimizationMetrics are the machine-facing figures of merit.
type OptimizationMetrics struct {
	FuelEfficiency       float64 // kg per km/s
	TimeEfficiency       float64 // seconds per km/s
	MassEfficiency       float64 // final over initial mass fraction
	PropulsionEfficiency float64
	Complexity           int
	Converged            bool
	Iterations           int
}

// OptimizationResult is the full output of a mission optimization.
type OptimizationResult struct {
	Trajectory  Trajectory
	System      *PropulsionSystem
	Consumption FuelConsumption
	Summary     MissionSummary
	Metrics     OptimizationMetrics
	Timestamp   time.Time
}

// EfficiencyAnalysis relates an optimized trajectory to its theoretical
// optimum.
type EfficiencyAnalysis struct {
	ΔvEfficiency     float64 // actual over theoretical minimum
	FuelEfficiency   float64 // kg per km/s
	IspEfficiency    float64 // realized over rated specific impulse
	Overall          float64
	TheoreticalMinΔv float64 // km/s
	ActualΔv         float64 // km/s
	EfficiencyLoss   float64
}

// PropulsionComparison is one row of a catalog-wide comparison.
type PropulsionComparison struct {
	System      *PropulsionSystem
	FuelMass    float64
	Energy      float64
	BurnTime    time.Duration
	MissionTime time.Duration
	TotalMass   float64
	Power       float64
	Score       float64
	Err         error
}

// ConstellationConfig describes a multi-satellite deployment. A zero
// SpacingAngle spreads the planes evenly over 360 degrees.
type ConstellationConfig struct {
	NumSatellites      int
	DeploymentAltitude float64 // km
	SpacingAngle       float64 // degrees of RAAN between adjacent planes
}

// FuelOptimizer is the mission-level facade tying propulsion selection,
// trajectory optimization, and reporting together.
type FuelOptimizer struct {
	Propulsion *PropulsionModel
	Trajectory *TrajectoryOptimizer
	Body       CelestialObject
	// MaxImpulses bounds the multi-impulse search, default 5.
	MaxImpulses int
	// Selection seeds the propulsion selection weights; the per-mission
	// bounds come from the MissionRequirements.
	Selection SelectionConstraints
	logger    log.Logger
}

// NewFuelOptimizer returns an optimizer about Earth with the default catalog.
// A nil logger logs to stdout in logfmt.
func NewFuelOptimizer(logger log.Logger) *FuelOptimizer {
	if logger == nil {
		logger = log.NewLogfmtLogger(os.Stdout)
	}
	pm := NewPropulsionModel()
	return &FuelOptimizer{
		Propulsion:  pm,
		Trajectory:  NewTrajectoryOptimizer(pm),
		Body:        Earth,
		MaxImpulses: 5,
		Selection:   DefaultSelectionConstraints(),
		logger:      log.With(logger, "subsys", "mission"),
	}
}

// OptimizeMission optimizes a full mission per the requirements. When initial
// is nil a circular 45 degree inclined orbit at the initial altitude is
// assumed; the target is the circular orbit at the target altitude in the
// same plane.
func (o *FuelOptimizer) OptimizeMission(req MissionRequirements, initial *Orbit) (OptimizationResult, error) {
	if err := req.Validate(); err != nil {
		return OptimizationResult{}, err
	}
	if initial == nil {
		initial = o.defaultOrbit(req.InitialAltitude)
	}
	return o.optimize(req, initial, o.defaultOrbit(req.TargetAltitude))
}

func (o *FuelOptimizer) optimize(req MissionRequirements, initial, target *Orbit) (OptimizationResult, error) {
	epoch := time.Now().UTC()
	initialState := initial.StateAt(epoch)
	targetState := target.StateAt(epoch)

	estimatedΔv := estimateΔv(initialState, targetState)
	sel := o.Selection
	sel.MaxTotalMass = req.MaxTotalMass
	sel.MaxPower = req.MaxPower
	sel.MaxFuelMass = req.MaxFuelMass
	sys, _, err := o.Propulsion.OptimalPropulsion(estimatedΔv, req.MaxTotalMass, sel)
	if err != nil {
		return OptimizationResult{}, fmt.Errorf("mission infeasible: %w", err)
	}
	o.logger.Log("level", "info", "msg", "propulsion selected", "system", sys.Name, "estΔv", fmt.Sprintf("%.4f", estimatedΔv))

	var traj Trajectory
	switch req.Priority {
	case PriorityFuel:
		traj = o.Trajectory.MultiImpulse(initialState, targetState, sys, o.MaxImpulses, 0)
	case PriorityTime:
		traj = o.Trajectory.HohmannTransfer(initialState, norm(targetState.R)-o.Body.Radius, sys)
	case PriorityMass:
		traj = o.Trajectory.ContinuousThrust(initialState, targetState, sys, 24*time.Hour)
	case PriorityBalanced:
		traj = o.balanced(initialState, targetState, sys)
	}

	consumption := o.Propulsion.FuelConsumption(sys, traj.TotalΔv, req.MaxTotalMass)
	o.logger.Log("level", "info", "msg", "mission optimized", "method", traj.Method, "Δv", fmt.Sprintf("%.4f", traj.TotalΔv), "fuel", fmt.Sprintf("%.2f", traj.TotalFuel))

	return OptimizationResult{
		Trajectory:  traj,
		System:      sys,
		Consumption: consumption,
		Summary:     o.summarize(traj, sys, req),
		Metrics:     o.metrics(traj, sys, req),
		Timestamp:   time.Now().UTC(),
	}, nil
}

// balanced runs every strategy and keeps the lowest weighted score of fuel,
// duration, and maneuver count.
func (o *FuelOptimizer) balanced(initial, target State, sys *PropulsionSystem) Trajectory {
	candidates := []Trajectory{
		o.Trajectory.HohmannTransfer(initial, norm(target.R)-o.Body.Radius, sys),
		o.Trajectory.MultiImpulse(initial, target, sys, 3, 0),
		o.Trajectory.ContinuousThrust(initial, target, sys, 24*time.Hour),
	}
	best := candidates[0]
	bestScore := math.Inf(1)
	for _, traj := range candidates {
		if score := balancedScore(traj); score < bestScore {
			bestScore = score
			best = traj
		}
	}
	return best
}

// balancedScore normalizes fuel to 100 kg, time to a day, and complexity to
// ten segments, then combines them 0.4/0.3/0.3.
func balancedScore(traj Trajectory) float64 {
	fuelScore := traj.TotalFuel / 100.0
	timeScore := traj.TotalTime.Seconds() / 86400.0
	complexityScore := float64(len(traj.Segments)) / 10.0
	return 0.4*fuelScore + 0.3*timeScore + 0.3*complexityScore
}

// OptimizeConstellation optimizes each satellite of a constellation. Every
// plane gets the deployment altitude and an ascending node offset by the
// spacing angle, so the targets actually differ per satellite.
func (o *FuelOptimizer) OptimizeConstellation(cfg ConstellationConfig, req MissionRequirements) ([]OptimizationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if cfg.NumSatellites < 1 {
		return nil, fmt.Errorf("constellation must have at least one satellite, got %d", cfg.NumSatellites)
	}
	spacing := cfg.SpacingAngle
	if spacing == 0 {
		spacing = 360.0 / float64(cfg.NumSatellites)
	}
	results := make([]OptimizationResult, 0, cfg.NumSatellites)
	for i := 0; i < cfg.NumSatellites; i++ {
		initial := o.defaultOrbit(req.InitialAltitude)
		target := NewOrbitFromOE(o.Body.Radius+cfg.DeploymentAltitude, 0, 45, float64(i)*spacing, 0, 0, o.Body)
		result, err := o.optimize(req, initial, target)
		if err != nil {
			return nil, fmt.Errorf("satellite %d: %w", i+1, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// AnalyzeFuelEfficiency relates an optimization result to the Hohmann
// theoretical minimum between its boundary states.
func (o *FuelOptimizer) AnalyzeFuelEfficiency(result OptimizationResult) EfficiencyAnalysis {
	first := result.Trajectory.Segments[0].StartState
	last := result.Trajectory.Segments[len(result.Trajectory.Segments)-1].EndState
	theoretical := Hohmann(norm(first.R), norm(last.R), o.Body).TotalΔv

	var ΔvEff float64
	if theoretical > 0 {
		ΔvEff = result.Trajectory.TotalΔv / theoretical
	}
	var fuelEff float64
	if result.Trajectory.TotalΔv > 0 {
		fuelEff = result.Consumption.FuelMass / result.Trajectory.TotalΔv
	}
	var ispEff float64
	if ratio := result.Summary.InitialMass / result.Summary.FinalMass; ratio > 1 && result.System.Isp > 0 {
		actualIsp := (result.Trajectory.TotalΔv * 1000) / (g0 * math.Log(ratio))
		ispEff = actualIsp / result.System.Isp
	}

	return EfficiencyAnalysis{
		ΔvEfficiency:     ΔvEff,
		FuelEfficiency:   fuelEff,
		IspEfficiency:    ispEff,
		Overall:          (ΔvEff + fuelEff + ispEff) / 3,
		TheoreticalMinΔv: theoretical,
		ActualΔv:         result.Trajectory.TotalΔv,
		EfficiencyLoss:   1 - ΔvEff,
	}
}

// ComparePropulsionSystems runs the whole catalog against a mission and
// returns one row per system. Rows for systems that fail validation carry
// the error instead of aborting the comparison.
func (o *FuelOptimizer) ComparePropulsionSystems(req MissionRequirements, initial *Orbit) (map[string]PropulsionComparison, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if initial == nil {
		initial = o.defaultOrbit(req.InitialAltitude)
	}
	epoch := time.Now().UTC()
	initialState := initial.StateAt(epoch)
	targetState := o.defaultOrbit(req.TargetAltitude).StateAt(epoch)
	estimatedΔv := estimateΔv(initialState, targetState)

	comparison := make(map[string]PropulsionComparison, len(o.Propulsion.Names()))
	for _, name := range o.Propulsion.Names() {
		sys, _ := o.Propulsion.Get(name)
		if err := sys.Validate(); err != nil {
			comparison[name] = PropulsionComparison{System: sys, Err: err}
			continue
		}
		consumption := o.Propulsion.FuelConsumption(sys, estimatedΔv, req.MaxTotalMass)
		comparison[name] = PropulsionComparison{
			System:      sys,
			FuelMass:    consumption.FuelMass,
			Energy:      consumption.Energy,
			BurnTime:    consumption.BurnTime,
			MissionTime: estimateMissionTime(sys, estimatedΔv),
			TotalMass:   sys.DryMass + consumption.FuelMass,
			Power:       sys.Power,
			Score:       efficiencyScore(sys, consumption, req),
		}
	}
	return comparison, nil
}

// defaultOrbit is the reference parking orbit: circular at 45 degrees
// inclination.
func (o *FuelOptimizer) defaultOrbit(altitude float64) *Orbit {
	return NewOrbitFromOE(o.Body.Radius+altitude, 0, 45, 0, 0, 0, o.Body)
}

// estimateΔv is the coarse planning estimate: the norm of the velocity gap.
func estimateΔv(initial, target State) float64 {
	return norm([]float64{
		target.V[0] - initial.V[0],
		target.V[1] - initial.V[1],
		target.V[2] - initial.V[2],
	})
}

// estimateMissionTime is a rule of thumb: electric systems take an hour per
// km/s, chemical ten minutes.
func estimateMissionTime(sys *PropulsionSystem, Δv float64) time.Duration {
	if sys.Type.powerLimited() {
		return time.Duration(Δv * float64(time.Hour))
	}
	return time.Duration(Δv * 600 * float64(time.Second))
}

// efficiencyScore rates a system for comparison, higher being better:
// 0.4 fuel margin, 0.4 mass margin, 0.2 power margin.
func efficiencyScore(sys *PropulsionSystem, c FuelConsumption, req MissionRequirements) float64 {
	fuelScore := 1.0
	if req.MaxFuelMass > 0 {
		fuelScore = 1.0 - c.FuelMass/req.MaxFuelMass
	}
	massScore := 1.0 - (sys.DryMass+c.FuelMass)/req.MaxTotalMass
	powerScore := 1.0
	if req.MaxPower > 0 {
		powerScore = 1.0 - sys.Power/req.MaxPower
	}
	return 0.4*fuelScore + 0.4*massScore + 0.2*powerScore
}

func (o *FuelOptimizer) summarize(traj Trajectory, sys *PropulsionSystem, req MissionRequirements) MissionSummary {
	return MissionSummary{
		InitialMass: req.MaxTotalMass,
		FinalMass:   req.MaxTotalMass - traj.TotalFuel,
		FuelUsed:    traj.TotalFuel,
		Duration:    traj.TotalTime,
		TotalΔv:     traj.TotalΔv,
		Maneuvers:   len(traj.Segments),
		System:      sys.Name,
		Method:      traj.Method,
	}
}

func (o *FuelOptimizer) metrics(traj Trajectory, sys *PropulsionSystem, req MissionRequirements) OptimizationMetrics {
	var fuelEff, timeEff float64
	if traj.TotalΔv > 0 {
		fuelEff = traj.TotalFuel / traj.TotalΔv
		timeEff = traj.TotalTime.Seconds() / traj.TotalΔv
	}
	return OptimizationMetrics{
		FuelEfficiency:       fuelEff,
		TimeEfficiency:       timeEff,
		MassEfficiency:       (req.MaxTotalMass - traj.TotalFuel) / req.MaxTotalMass,
		PropulsionEfficiency: sys.Efficiency,
		Complexity:           len(traj.Segments),
		Converged:            traj.Converged,
		Iterations:           traj.Iterations,
	}
}

package fuelopt

import (
	"time"
)

// Segment is one leg of a trajectory: an impulsive burn (Start == End) or a
// finite thrust arc. Times are offsets from the start of the trajectory.
type Segment struct {
	Start      time.Duration
	End        time.Duration
	StartState State
	EndState   State
	Δv         float64 // km/s
	FuelMass   float64 // kg
	System     *PropulsionSystem
}

// Trajectory is the output of an optimization strategy. The totals always
// equal the sums over the segments.
type Trajectory struct {
	Segments   []Segment
	TotalΔv    float64 // km/s
	TotalFuel  float64 // kg
	TotalTime  time.Duration
	Method     string
	Iterations int
	Converged  bool
}

// TrajectoryOptimizer bundles the optimization strategies. Mass is the
// vehicle mass at the start of any optimized trajectory and defaults to a
// one-tonne smallsat bus.
type TrajectoryOptimizer struct {
	Propulsion *PropulsionModel
	Body       CelestialObject
	Mass       float64 // kg
	GA         GAConfig
}

// NewTrajectoryOptimizer returns an optimizer about Earth with the default
// catalog and GA settings.
func NewTrajectoryOptimizer(pm *PropulsionModel) *TrajectoryOptimizer {
	if pm == nil {
		pm = NewPropulsionModel()
	}
	return &TrajectoryOptimizer{Propulsion: pm, Body: Earth, Mass: 1000.0, GA: DefaultGAConfig()}
}

// HohmannTransfer builds a two-burn transfer from the initial state to a
// circular orbit at the target altitude. Both burns are instantaneous; the
// second burn consumes fuel from the mass remaining after the first.
func (t *TrajectoryOptimizer) HohmannTransfer(initial State, targetAltitude float64, sys *PropulsionSystem) Trajectory {
	elements := NewOrbitFromRV(initial.R, initial.V, t.Body)
	targetRadius := t.Body.Radius + targetAltitude
	xfer := Hohmann(elements.a, targetRadius, t.Body)

	burn1 := t.Propulsion.FuelConsumption(sys, xfer.ΔvInit, t.Mass)
	burn2 := t.Propulsion.FuelConsumption(sys, xfer.ΔvFinal, t.Mass-burn1.FuelMass)

	seg1 := Segment{
		Start:      0,
		End:        0,
		StartState: initial,
		EndState:   t.applyΔv(initial, xfer.ΔvInit),
		Δv:         xfer.ΔvInit,
		FuelMass:   burn1.FuelMass,
		System:     sys,
	}
	coast := Propagate(seg1.EndState, xfer.TOF, t.Body)
	seg2 := Segment{
		Start:      xfer.TOF,
		End:        xfer.TOF,
		StartState: coast,
		EndState:   t.applyΔv(coast, xfer.ΔvFinal),
		Δv:         xfer.ΔvFinal,
		FuelMass:   burn2.FuelMass,
		System:     sys,
	}

	return Trajectory{
		Segments:   []Segment{seg1, seg2},
		TotalΔv:    xfer.TotalΔv,
		TotalFuel:  burn1.FuelMass + burn2.FuelMass,
		TotalTime:  xfer.TOF,
		Method:     "Hohmann Transfer",
		Iterations: 1,
		Converged:  true,
	}
}

// ContinuousThrust discretizes a low-thrust arc into twenty equal-duration
// segments. Each segment's Δv is the velocity change of the coasting dynamics
// over the step, costed at the initial vehicle mass.
func (t *TrajectoryOptimizer) ContinuousThrust(initial, target State, sys *PropulsionSystem, maxTime time.Duration) Trajectory {
	const numSegments = 20
	step := maxTime / numSegments

	segments := make([]Segment, 0, numSegments)
	current := initial
	var totalΔv, totalFuel float64
	for i := 0; i < numSegments; i++ {
		next := Propagate(current, step, t.Body)
		Δv := norm([]float64{
			next.V[0] - current.V[0],
			next.V[1] - current.V[1],
			next.V[2] - current.V[2],
		})
		burn := t.Propulsion.FuelConsumption(sys, Δv, t.Mass)
		segments = append(segments, Segment{
			Start:      time.Duration(i) * step,
			End:        time.Duration(i+1) * step,
			StartState: current,
			EndState:   next,
			Δv:         Δv,
			FuelMass:   burn.FuelMass,
			System:     sys,
		})
		totalΔv += Δv
		totalFuel += burn.FuelMass
		current = next
	}

	return Trajectory{
		Segments:   segments,
		TotalΔv:    totalΔv,
		TotalFuel:  totalFuel,
		TotalTime:  maxTime,
		Method:     "Continuous Thrust",
		Iterations: numSegments,
		Converged:  true,
	}
}

// twoImpulse is the degenerate fallback transfer: a single burn closing the
// velocity gap between the two states.
func (t *TrajectoryOptimizer) twoImpulse(initial, target State, sys *PropulsionSystem) Trajectory {
	Δv := norm([]float64{
		target.V[0] - initial.V[0],
		target.V[1] - initial.V[1],
		target.V[2] - initial.V[2],
	})
	burn := t.Propulsion.FuelConsumption(sys, Δv, t.Mass)
	seg := Segment{
		StartState: initial,
		EndState:   target,
		Δv:         Δv,
		FuelMass:   burn.FuelMass,
		System:     sys,
	}
	return Trajectory{
		Segments:   []Segment{seg},
		TotalΔv:    Δv,
		TotalFuel:  burn.FuelMass,
		Method:     "Simple Two-Impulse",
		Iterations: 1,
		Converged:  true,
	}
}

// applyΔv applies an impulsive burn along the velocity direction and returns
// the post-burn state at the same epoch.
func (t *TrajectoryOptimizer) applyΔv(s State, Δv float64) State {
	vHat := unit(s.V)
	newV := make([]float64, 3)
	for j := 0; j < 3; j++ {
		newV[j] = s.V[j] + vHat[j]*Δv
	}
	return State{R: s.R, V: newV, Epoch: s.Epoch}
}

// DeployConstellation optimizes each satellite of a constellation
// independently via the multi-impulse strategy. Both slices must have the
// same length.
func (t *TrajectoryOptimizer) DeployConstellation(initials, targets []State, sys *PropulsionSystem, maxImpulses int) []Trajectory {
	if len(initials) != len(targets) {
		panic("constellation deployment requires one target state per initial state")
	}
	trajectories := make([]Trajectory, len(initials))
	for i := range initials {
		trajectories[i] = t.MultiImpulse(initials[i], targets[i], sys, maxImpulses, 0)
	}
	return trajectories
}

// Robustness scores a trajectory's sensitivity to execution errors in (0, 1],
// higher being better. High total Δv, many segments, and long mission times
// each apply a multiplicative penalty.
func (t *TrajectoryOptimizer) Robustness(traj Trajectory) float64 {
	robustness := 1.0
	if traj.TotalΔv > 5.0 {
		robustness *= 0.8
	}
	if len(traj.Segments) > 5 {
		robustness *= 0.9
	}
	if traj.TotalTime > 24*time.Hour {
		robustness *= 0.95
	}
	return robustness
}

package fuelopt

import (
	"math/rand"
	"testing"
	"time"

	"github.com/gonum/floats"
)

func leoState(altitude float64) State {
	return NewOrbitFromOE(Earth.Radius+altitude, 0, 45, 0, 0, 0, Earth).StateAt(time.Date(2017, 3, 1, 0, 0, 0, 0, time.UTC))
}

func TestHohmannTrajectory(t *testing.T) {
	opt := NewTrajectoryOptimizer(nil)
	biprop, _ := opt.Propulsion.Get("bipropellant")
	traj := opt.HohmannTransfer(leoState(400), 800, biprop)

	if len(traj.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(traj.Segments))
	}
	for i, seg := range traj.Segments {
		if seg.Start != seg.End {
			t.Fatalf("segment %d must be impulsive", i)
		}
	}
	expected := Hohmann(Earth.Radius+400, Earth.Radius+800, Earth)
	if !floats.EqualWithinAbs(traj.TotalΔv, expected.TotalΔv, 1e-9) {
		t.Fatalf("Δv %f != %f", traj.TotalΔv, expected.TotalΔv)
	}
	if traj.TotalTime != expected.TOF {
		t.Fatalf("TOF %s != %s", traj.TotalTime, expected.TOF)
	}
	// Second burn runs on the post-burn mass, so it must cost less fuel per
	// km/s than a burn at the full mass would.
	full := opt.Propulsion.FuelConsumption(biprop, traj.Segments[1].Δv, opt.Mass)
	if traj.Segments[1].FuelMass >= full.FuelMass {
		t.Fatalf("second burn not mass staged: %f >= %f", traj.Segments[1].FuelMass, full.FuelMass)
	}
	if !traj.Converged || traj.Method != "Hohmann Transfer" {
		t.Fatalf("unexpected bookkeeping: %+v", traj)
	}
}

func TestTrajectoryTotalsMatchSegments(t *testing.T) {
	opt := NewTrajectoryOptimizer(nil)
	mono, _ := opt.Propulsion.Get("monopropellant")
	for _, traj := range []Trajectory{
		opt.HohmannTransfer(leoState(400), 600, mono),
		opt.ContinuousThrust(leoState(400), leoState(600), mono, 2*time.Hour),
	} {
		var Δv, fuel float64
		for _, seg := range traj.Segments {
			Δv += seg.Δv
			fuel += seg.FuelMass
		}
		if !floats.EqualWithinAbs(traj.TotalΔv, Δv, 1e-9) {
			t.Fatalf("%s: total Δv %f != segment sum %f", traj.Method, traj.TotalΔv, Δv)
		}
		if !floats.EqualWithinAbs(traj.TotalFuel, fuel, 1e-9) {
			t.Fatalf("%s: total fuel %f != segment sum %f", traj.Method, traj.TotalFuel, fuel)
		}
	}
}

func TestContinuousThrust(t *testing.T) {
	opt := NewTrajectoryOptimizer(nil)
	ion, _ := opt.Propulsion.Get("ion_thruster")
	maxTime := 4 * time.Hour
	traj := opt.ContinuousThrust(leoState(400), leoState(800), ion, maxTime)

	if len(traj.Segments) != 20 {
		t.Fatalf("expected 20 segments, got %d", len(traj.Segments))
	}
	if traj.TotalTime != maxTime {
		t.Fatalf("total time %s", traj.TotalTime)
	}
	for i := 1; i < len(traj.Segments); i++ {
		if traj.Segments[i].Start != traj.Segments[i-1].End {
			t.Fatalf("segment %d does not start where %d ends", i, i-1)
		}
		if !vectorsEqual(traj.Segments[i].StartState.R, traj.Segments[i-1].EndState.R) {
			t.Fatalf("segment %d state discontinuity", i)
		}
	}
}

func TestApplyΔvAlongVelocity(t *testing.T) {
	opt := NewTrajectoryOptimizer(nil)
	s := leoState(400)
	burned := opt.applyΔv(s, 0.5)
	if !floats.EqualWithinAbs(norm(burned.V), norm(s.V)+0.5, 1e-9) {
		t.Fatalf("speed %f, expected %f", norm(burned.V), norm(s.V)+0.5)
	}
	if !vectorsEqual(unit(burned.V), unit(s.V)) {
		t.Fatal("burn must not change the velocity direction")
	}
	if !vectorsEqual(burned.R, s.R) {
		t.Fatal("impulsive burn must not move the vehicle")
	}
}

func TestRobustness(t *testing.T) {
	opt := NewTrajectoryOptimizer(nil)
	clean := Trajectory{TotalΔv: 1, Segments: make([]Segment, 2), TotalTime: time.Hour}
	if opt.Robustness(clean) != 1.0 {
		t.Fatalf("clean trajectory score %f", opt.Robustness(clean))
	}
	risky := Trajectory{TotalΔv: 6, Segments: make([]Segment, 6), TotalTime: 25 * time.Hour}
	if !floats.EqualWithinAbs(opt.Robustness(risky), 0.8*0.9*0.95, 1e-12) {
		t.Fatalf("risky trajectory score %f", opt.Robustness(risky))
	}
}

func TestMultiImpulseDeterminism(t *testing.T) {
	run := func() Trajectory {
		opt := NewTrajectoryOptimizer(nil)
		opt.GA.Seed = 42
		opt.GA.MaxGenerations = 60 // keep the test fast
		biprop, _ := opt.Propulsion.Get("bipropellant")
		return opt.MultiImpulse(leoState(400), leoState(800), biprop, 3, 0)
	}
	first := run()
	second := run()
	if first.TotalΔv != second.TotalΔv || len(first.Segments) != len(second.Segments) {
		t.Fatalf("seeded runs differ: %f/%d vs %f/%d", first.TotalΔv, len(first.Segments), second.TotalΔv, len(second.Segments))
	}
	if first.Method != "Genetic Algorithm" {
		t.Fatalf("method %s", first.Method)
	}
	if len(first.Segments) < 1 || len(first.Segments) > 3 {
		t.Fatalf("impulse count out of range: %d", len(first.Segments))
	}
}

func TestMultiImpulseTimeConstraintFallback(t *testing.T) {
	opt := NewTrajectoryOptimizer(nil)
	opt.GA.Seed = 7
	opt.GA.MaxGenerations = 60
	biprop, _ := opt.Propulsion.Get("bipropellant")
	// Every decoded trajectory carries at least the one hour final coast, so
	// a 30 minute bound leaves no feasible individual.
	traj := opt.MultiImpulse(leoState(400), leoState(800), biprop, 3, 30*time.Minute)
	if traj.Method != "Simple Two-Impulse" {
		t.Fatalf("expected the fallback, got %s", traj.Method)
	}
	if len(traj.Segments) != 1 {
		t.Fatalf("fallback has %d segments", len(traj.Segments))
	}
}

func TestCrossoverTruncation(t *testing.T) {
	opt := NewTrajectoryOptimizer(nil)
	rng := rand.New(rand.NewSource(1))
	short := individual{0.1, 0.2, 0.5, 0.6}          // 2 impulses
	long := individual{0.1, 0.2, 0.3, 0.5, 0.6, 0.7} // 3 impulses
	for i := 0; i < 20; i++ {
		child := opt.crossover(rng, short, long)
		if len(child) != len(short) {
			t.Fatalf("child length %d, expected %d", len(child), len(short))
		}
		child = opt.crossover(rng, long, short)
		if len(child) != len(short) {
			t.Fatalf("argument order must not matter, got length %d", len(child))
		}
	}
}

func TestMutateStaysInRange(t *testing.T) {
	opt := NewTrajectoryOptimizer(nil)
	opt.GA.MutationRate = 1.0 // force every gene to mutate
	rng := rand.New(rand.NewSource(3))
	ind := individual{0, 0.5, 1, 0.99}
	for i := 0; i < 50; i++ {
		ind = opt.mutate(rng, ind)
		for j, gene := range ind {
			if gene < 0 || gene > 1 {
				t.Fatalf("gene %d out of range: %f", j, gene)
			}
		}
	}
}

func TestDeployConstellation(t *testing.T) {
	opt := NewTrajectoryOptimizer(nil)
	opt.GA.Seed = 11
	opt.GA.MaxGenerations = 30
	biprop, _ := opt.Propulsion.Get("bipropellant")
	initials := []State{leoState(400), leoState(400)}
	targets := []State{leoState(600), leoState(700)}
	trajectories := opt.DeployConstellation(initials, targets, biprop, 2)
	if len(trajectories) != 2 {
		t.Fatalf("expected 2 trajectories, got %d", len(trajectories))
	}
	assertPanic(t, func() {
		opt.DeployConstellation(initials, targets[:1], biprop, 2)
	})
}

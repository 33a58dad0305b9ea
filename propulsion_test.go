package fuelopt

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/gonum/floats"
)

func TestCatalog(t *testing.T) {
	pm := NewPropulsionModel()
	names := pm.Names()
	expected := []string{"bipropellant", "hall_thruster", "ion_thruster", "monopropellant"}
	if len(names) != len(expected) {
		t.Fatalf("catalog has %d entries", len(names))
	}
	for i, name := range expected {
		if names[i] != name {
			t.Fatalf("catalog[%d]=%s, expected %s", i, names[i], name)
		}
		if _, found := pm.Get(name); !found {
			t.Fatalf("%s missing from catalog", name)
		}
	}
	if _, found := pm.Get("warp_drive"); found {
		t.Fatal("unknown key must not resolve")
	}
}

func TestPropulsionValidation(t *testing.T) {
	if _, err := NewPropulsionSystem("bad", Chemical, 10, 200, 0, 1.5, 1, 1); err == nil {
		t.Fatal("efficiency above 1 must be rejected")
	}
	if _, err := NewPropulsionSystem("bad", Chemical, 10, 200, 0, -0.1, 1, 1); err == nil {
		t.Fatal("negative efficiency must be rejected")
	}
	pm := NewPropulsionModel()
	if err := pm.Add("bad", &PropulsionSystem{Name: "bad", Type: Chemical, Efficiency: 2}); err == nil {
		t.Fatal("Add must validate")
	}
	custom, err := NewPropulsionSystem("cold gas", Chemical, 0.5, 60, 0, 0.9, 0.5, 1)
	if err != nil {
		t.Fatalf("valid system rejected: %v", err)
	}
	if err := pm.Add("cold_gas", custom); err != nil {
		t.Fatalf("valid system rejected by Add: %v", err)
	}
	if len(pm.Names()) != 5 {
		t.Fatal("custom system not registered")
	}
}

func TestPropulsionTypeString(t *testing.T) {
	if Chemical.String() != "chemical" || HallEffect.String() != "hall-effect" {
		t.Fatal("wrong type names")
	}
	assertPanic(t, func() {
		_ = PropulsionType(255).String()
	})
}

func TestZeroΔvCostsNothing(t *testing.T) {
	pm := NewPropulsionModel()
	for _, name := range pm.Names() {
		sys, _ := pm.Get(name)
		c := pm.FuelConsumption(sys, 0, 1000)
		if c.FuelMass != 0 || c.BurnTime != 0 || c.Energy != 0 {
			t.Fatalf("%s: zero Δv must cost nothing, got %+v", name, c)
		}
	}
}

func TestChemicalVsElectricBurnTimes(t *testing.T) {
	pm := NewPropulsionModel()
	biprop, _ := pm.Get("bipropellant")
	ion, _ := pm.Get("ion_thruster")
	Δv := 0.1 // km/s

	chemical := pm.FuelConsumption(biprop, Δv, 1000)
	electric := pm.FuelConsumption(ion, Δv, 1000)

	// Chemical burns fast and heavy, electric slow and lean.
	if chemical.BurnTime > 10*time.Minute {
		t.Fatalf("chemical burn too long: %s", chemical.BurnTime)
	}
	if electric.BurnTime < 10*chemical.BurnTime {
		t.Fatalf("electric burn not orders slower: %s vs %s", electric.BurnTime, chemical.BurnTime)
	}
	if electric.FuelMass >= chemical.FuelMass {
		t.Fatalf("electric must be leaner: %f >= %f", electric.FuelMass, chemical.FuelMass)
	}
	if electric.Energy <= 0 || chemical.Energy <= 0 {
		t.Fatal("energy must be positive for a non-zero burn")
	}
}

func TestPowerStarvedEffectiveIsp(t *testing.T) {
	pm := NewPropulsionModel()
	hall, _ := pm.Get("hall_thruster")
	Δv := 0.05

	// The Hall thruster is power starved: available electrical power is below
	// the jet power at rated Isp, so the realized Isp drops and fuel use
	// exceeds the rated-Isp ideal.
	ideal := 1000 * (1 - math.Exp(-Δv*1000/(hall.Isp*g0)))
	c := pm.FuelConsumption(hall, Δv, 1000)
	if c.FuelMass <= ideal {
		t.Fatalf("power starved thruster must consume more than ideal: %f <= %f", c.FuelMass, ideal)
	}

	// The ion thruster has power margin, so it realizes its rated Isp.
	ion, _ := pm.Get("ion_thruster")
	idealIon := 1000 * (1 - math.Exp(-Δv*1000/(ion.Isp*g0)))
	cIon := pm.FuelConsumption(ion, Δv, 1000)
	if !floats.EqualWithinRel(cIon.FuelMass, idealIon, 1e-9) {
		t.Fatalf("ion thruster should realize rated Isp: %f != %f", cIon.FuelMass, idealIon)
	}
}

func TestOptimalPropulsion(t *testing.T) {
	pm := NewPropulsionModel()
	cons := DefaultSelectionConstraints()

	// The one-hour burn bound leaves only chemical systems for a fast raise.
	sys, c, err := pm.OptimalPropulsion(0.2, 1000, cons)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sys.Type != Chemical {
		t.Fatalf("expected a chemical system, got %s", sys)
	}
	if c.FuelMass <= 0 {
		t.Fatal("consumption must be populated")
	}

	// An impossible mass budget leaves nothing.
	cons.MaxTotalMass = 1.0
	if _, _, err := pm.OptimalPropulsion(0.2, 1000, cons); !errors.Is(err, ErrNoFeasibleSystem) {
		t.Fatalf("expected ErrNoFeasibleSystem, got %v", err)
	}
}

func TestOptimalPropulsionPowerBound(t *testing.T) {
	pm := NewPropulsionModel()
	cons := DefaultSelectionConstraints()
	cons.MaxBurnTime = 0 // unconstrained
	cons.MaxPower = 2000 // excludes the ion thruster, keeps the Hall

	sys, _, err := pm.OptimalPropulsion(0.05, 1000, cons)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sys.Power > 2000 {
		t.Fatalf("selected system busts the power bound: %s", sys)
	}
}

func TestMultiBurnConsumption(t *testing.T) {
	pm := NewPropulsionModel()
	biprop, _ := pm.Get("bipropellant")
	burns := []float64{0.1, 0.1, 0.1}
	consumptions, err := pm.MultiBurnConsumption(biprop, burns, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(consumptions) != 3 {
		t.Fatalf("expected 3 consumptions, got %d", len(consumptions))
	}
	// Same Δv off a shrinking mass costs less each time.
	if !(consumptions[0].FuelMass > consumptions[1].FuelMass && consumptions[1].FuelMass > consumptions[2].FuelMass) {
		t.Fatalf("fuel per burn must decrease: %+v", consumptions)
	}
	var total float64
	for _, c := range consumptions {
		total += c.FuelMass
	}
	if total >= 1000 {
		t.Fatal("total fuel must stay below the vehicle mass")
	}

	if _, err := pm.MultiBurnConsumption(biprop, []float64{1.0}, 0); !errors.Is(err, ErrMassDepleted) {
		t.Fatalf("expected ErrMassDepleted, got %v", err)
	}
}

func TestTotalMissionConsumption(t *testing.T) {
	pm := NewPropulsionModel()
	mono, _ := pm.Get("monopropellant")
	phases := []MissionPhase{
		{Name: "orbit raise", Δv: 0.2},
		{Δv: 0.05}, // unnamed, gets a default
		{Name: "deorbit", Δv: 0.1},
	}
	mission, err := pm.TotalMissionConsumption(mono, phases, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mission.Phases) != 3 {
		t.Fatalf("expected 3 phases, got %d", len(mission.Phases))
	}
	if mission.Phases[1].Phase != "phase-2" {
		t.Fatalf("default phase name: %s", mission.Phases[1].Phase)
	}
	if !floats.EqualWithinAbs(mission.FinalMass+mission.TotalFuelMass, 500, 1e-9) {
		t.Fatalf("mass not conserved: final %f + fuel %f", mission.FinalMass, mission.TotalFuelMass)
	}
	for i, phase := range mission.Phases {
		if !floats.EqualWithinAbs(phase.MassBefore-phase.MassAfter, phase.FuelMass, 1e-9) {
			t.Fatalf("phase %d mass bookkeeping broken: %+v", i, phase)
		}
	}
}

func TestIspThrustHelpers(t *testing.T) {
	isp, err := IspFromThrustPower(0.165, 4500, 0.65)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	thrust, err := ThrustFromIspPower(isp, 4500, 0.65)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !floats.EqualWithinRel(thrust, 0.165, 1e-9) {
		t.Fatalf("round trip failed: %f", thrust)
	}
	if _, err := IspFromThrustPower(0, 4500, 0.65); err == nil {
		t.Fatal("zero thrust must be rejected")
	}
	if _, err := ThrustFromIspPower(3500, 4500, 0); err == nil {
		t.Fatal("zero efficiency must be rejected")
	}
}

package fuelopt

import (
	"fmt"
	"math"
	"time"

	"github.com/gonum/floats"
	"github.com/soniakeys/meeus/julian"
)

const (
	eccentricityε = 5e-5                         // 0.00005
	angleε        = (5e-3 / 360) * (2 * math.Pi) // 0.005 degrees
	distanceε     = 2e1                          // 20 km
	velocityε     = 1e-6                         // in km/s
)

// State defines the Cartesian state of an orbiting vehicle: position and
// velocity vectors in the inertial frame, and the epoch of validity.
// States are immutable: propagation returns a new value.
type State struct {
	R     []float64 // km
	V     []float64 // km/s
	Epoch time.Time
}

// NewState returns a state from the provided vectors. The slices are copied.
func NewState(R, V []float64, epoch time.Time) State {
	r := make([]float64, 3)
	v := make([]float64, 3)
	copy(r, R)
	copy(v, V)
	return State{r, v, epoch}
}

// RNorm returns the norm of the radius vector.
func (s State) RNorm() float64 {
	return norm(s.R)
}

// VNorm returns the norm of the velocity vector.
func (s State) VNorm() float64 {
	return norm(s.V)
}

// Altitude returns the altitude above the surface of the given body.
func (s State) Altitude(c CelestialObject) float64 {
	return s.RNorm() - c.Radius
}

// Energyξ returns the specific mechanical energy ξ about the given body.
func (s State) Energyξ(c CelestialObject) float64 {
	return math.Pow(s.VNorm(), 2)/2 - c.μ/s.RNorm()
}

// H returns the specific angular momentum vector.
func (s State) H() []float64 {
	return cross(s.R, s.V)
}

// JD returns the epoch of this state as a Julian date.
func (s State) JD() float64 {
	return julian.TimeToJD(s.Epoch)
}

func (s State) String() string {
	return fmt.Sprintf("R=%+v km\tV=%+v km/s\t@%s", s.R, s.V, s.Epoch)
}

// Orbit defines an orbit via its classical orbital elements.
// Angles are stored in radians in [0, 2π). For hyperbolic orbits the
// semi-major axis is stored as a positive magnitude with e > 1.
type Orbit struct {
	a, e, i, Ω, ω, ν float64
	Origin           CelestialObject
}

// NewOrbit creates an orbit from elements with angles in radians. As in the
// reference data sets, any angle whose magnitude exceeds 2π is assumed to be
// in degrees and converted; all angles are then wrapped into [0, 2π).
func NewOrbit(a, e, i, Ω, ω, ν float64, c CelestialObject) *Orbit {
	fix := func(angle float64) float64 {
		if math.Abs(angle) > 2*math.Pi {
			angle *= deg2rad
		}
		return normAngle(angle)
	}
	return &Orbit{a, e, fix(i), fix(Ω), fix(ω), fix(ν), c}
}

// NewOrbitFromOE creates an orbit from the orbital elements.
// WARNING: Angles must be in degrees not radian.
func NewOrbitFromOE(a, e, i, Ω, ω, ν float64, c CelestialObject) *Orbit {
	return &Orbit{a, e, Deg2rad(i), Deg2rad(Ω), Deg2rad(ω), Deg2rad(ν), c}
}

// NewOrbitFromRV returns orbital elements from the R and V vectors.
// From Vallado's RV2COE, page 113. Degenerate geometries (circular and/or
// equatorial orbits) default the undefined angles to zero instead of failing.
func NewOrbitFromRV(R, V []float64, c CelestialObject) *Orbit {
	hVec := cross(R, V)
	n := cross([]float64{0, 0, 1}, hVec)
	v := norm(V)
	r := norm(R)
	ξ := (v*v)/2 - c.μ/r
	var a float64
	if ξ < 0 {
		a = -c.μ / (2 * ξ)
	} else if ξ > 0 {
		// Hyperbolic: store the magnitude.
		a = c.μ / (2 * ξ)
	} else {
		a = math.Inf(1)
	}
	eVec := make([]float64, 3)
	for j := 0; j < 3; j++ {
		eVec[j] = ((v*v-c.μ/r)*R[j] - dot(R, V)*V[j]) / c.μ
	}
	e := norm(eVec)
	i := math.Acos(hVec[2] / norm(hVec))

	var Ω, ω, ν float64
	if nNorm := norm(n); nNorm > velocityε {
		Ω = math.Acos(n[0] / nNorm)
		if n[1] < 0 {
			Ω = 2*math.Pi - Ω
		}
		if e > eccentricityε {
			ω = math.Acos(dot(n, eVec) / (nNorm * e))
			if math.IsNaN(ω) {
				ω = 0
			}
			if eVec[2] < 0 {
				ω = 2*math.Pi - ω
			}
		}
	}
	if e > eccentricityε {
		cosν := dot(eVec, R) / (e * r)
		if abscosν := math.Abs(cosν); abscosν > 1 && floats.EqualWithinAbs(abscosν, 1, 1e-12) {
			// Rounding can push cosν barely out of [-1, 1], and Acos returns NaN.
			cosν = sign(cosν)
		}
		ν = math.Acos(cosν)
		if dot(R, V) < 0 {
			ν = 2*math.Pi - ν
		}
	}

	return &Orbit{a, e, normAngle(i), normAngle(Ω), normAngle(ω), normAngle(ν), c}
}

// Elements returns the six classical orbital elements.
func (o Orbit) Elements() (a, e, i, Ω, ω, ν float64) {
	return o.a, o.e, o.i, o.Ω, o.ω, o.ν
}

// Hyperbolic returns whether this orbit is hyperbolic (or parabolic).
func (o Orbit) Hyperbolic() bool {
	return o.e >= 1
}

// SemiParameter returns the semi parameter p.
func (o Orbit) SemiParameter() float64 {
	if o.Hyperbolic() {
		return o.a * (o.e*o.e - 1)
	}
	return o.a * (1 - o.e*o.e)
}

// RNorm returns the norm of the radius vector without computing the vector.
func (o Orbit) RNorm() float64 {
	return o.SemiParameter() / (1 + o.e*math.Cos(o.ν))
}

// VNorm returns the norm of the velocity vector without computing the vector.
func (o Orbit) VNorm() float64 {
	if o.Hyperbolic() {
		return math.Sqrt(2 * (o.Origin.μ/o.RNorm() + o.Origin.μ/(2*o.a)))
	}
	return math.Sqrt(2 * (o.Origin.μ/o.RNorm() - o.Origin.μ/(2*o.a)))
}

// Period returns the period of this orbit. Panics on hyperbolic orbits, which
// have no period: check Hyperbolic() before calling.
func (o Orbit) Period() time.Duration {
	if o.Hyperbolic() {
		panic("hyperbolic orbits do not have a period")
	}
	seconds := 2 * math.Pi * math.Sqrt(math.Pow(o.a, 3)/o.Origin.μ)
	duration, _ := time.ParseDuration(fmt.Sprintf("%.6fs", seconds))
	return duration
}

// StateAt returns the Cartesian state of this orbit at the given epoch.
// Builds the perifocal position and velocity then applies the 3-1-3 rotation
// to the inertial frame. Supports both elliptical and hyperbolic branches.
func (o Orbit) StateAt(epoch time.Time) State {
	p := o.SemiParameter()
	sinν, cosν := math.Sincos(o.ν)
	rMag := p / (1 + o.e*cosν)
	R := []float64{rMag * cosν, rMag * sinν, 0}
	vFact := math.Sqrt(o.Origin.μ / p)
	V := []float64{-vFact * sinν, vFact * (o.e + cosν), 0}
	return State{
		R:     PQW2ECI(o.i, o.ω, o.Ω, R),
		V:     PQW2ECI(o.i, o.ω, o.Ω, V),
		Epoch: epoch,
	}
}

// String implements the stringer interface (hence the value receiver).
func (o Orbit) String() string {
	return fmt.Sprintf("a=%.1f e=%.4f i=%.3f Ω=%.3f ω=%.3f ν=%.3f", o.a, o.e, Rad2deg(o.i), Rad2deg(o.Ω), Rad2deg(o.ω), Rad2deg(o.ν))
}

// Equals returns whether two orbits are identical with free true anomaly.
func (o Orbit) Equals(o1 Orbit) (bool, error) {
	if !o.Origin.Equals(o1.Origin) {
		return false, fmt.Errorf("different origin")
	}
	if !floats.EqualWithinAbs(o.a, o1.a, distanceε) {
		return false, fmt.Errorf("semi major axis invalid")
	}
	if !floats.EqualWithinAbs(o.e, o1.e, eccentricityε) {
		return false, fmt.Errorf("eccentricity invalid")
	}
	if !floats.EqualWithinAbs(o.i, o1.i, angleε) {
		return false, fmt.Errorf("inclination invalid")
	}
	if !floats.EqualWithinAbs(o.Ω, o1.Ω, angleε) {
		return false, fmt.Errorf("RAAN invalid")
	}
	if o.e > eccentricityε && !floats.EqualWithinAbs(o.ω, o1.ω, angleε) {
		return false, fmt.Errorf("argument of perigee invalid")
	}
	return true, nil
}

// Radii2ae returns the semi major axis and the eccentricity from the radii.
func Radii2ae(rA, rP float64) (a, e float64) {
	if rA < rP {
		panic("periapsis cannot be greater than apoapsis")
	}
	a = (rP + rA) / 2
	e = (rA - rP) / (rA + rP)
	return
}

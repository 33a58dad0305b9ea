package fuelopt

import (
	"math"
	"time"
)

// kepler iteration count. The reference solver runs a fixed number of
// fixed-point iterations rather than a tolerance-checked Newton loop, and
// downstream numbers depend on that behavior.
const keplerIterations = 10

// Propagate advances the state by Δt along its two-body orbit about the given
// body: converts to elements, advances the mean anomaly by the mean motion,
// solves Kepler's equation (or its hyperbolic analog), and converts back.
func Propagate(s State, Δt time.Duration, c CelestialObject) State {
	o := NewOrbitFromRV(s.R, s.V, c)
	n := math.Sqrt(c.μ / math.Pow(o.a, 3))

	var M0 float64
	if !o.Hyperbolic() {
		E := 2 * math.Atan(math.Sqrt((1-o.e)/(1+o.e))*math.Tan(o.ν/2))
		M0 = E - o.e*math.Sin(E)
	} else {
		H := 2 * math.Atanh(math.Sqrt((o.e-1)/(o.e+1))*math.Tan(o.ν/2))
		M0 = o.e*math.Sinh(H) - H
	}
	M := M0 + n*Δt.Seconds()

	var ν float64
	if !o.Hyperbolic() {
		E := M
		for iter := 0; iter < keplerIterations; iter++ {
			E = M + o.e*math.Sin(E)
		}
		ν = 2 * math.Atan(math.Sqrt((1+o.e)/(1-o.e))*math.Tan(E/2))
	} else {
		H := M / o.e
		for iter := 0; iter < keplerIterations; iter++ {
			H = (M + o.e*math.Sinh(H)) / o.e
		}
		ν = 2 * math.Atan(math.Sqrt((o.e+1)/(o.e-1))*math.Tanh(H/2))
	}
	o.ν = normAngle(ν)
	return o.StateAt(s.Epoch.Add(Δt))
}

// J2Perturb applies the first-order J2 secular drift to the argument of
// periapsis and the ascending node over Δt. Only elliptical orbits are
// affected: hyperbolic states pass through unchanged.
func J2Perturb(s State, Δt time.Duration, c CelestialObject) State {
	o := NewOrbitFromRV(s.R, s.V, c)
	if o.Hyperbolic() {
		return s
	}
	n := math.Sqrt(c.μ / math.Pow(o.a, 3))
	cosi := math.Cos(o.i)
	fact := 1.5 * c.J2 * n * math.Pow(c.Radius/o.a, 2) / math.Pow(1-o.e*o.e, 2)
	ωDot := fact * (2.5*cosi*cosi - 0.5)
	ΩDot := -fact * cosi
	o.ω = normAngle(o.ω + ωDot*Δt.Seconds())
	o.Ω = normAngle(o.Ω + ΩDot*Δt.Seconds())
	return o.StateAt(s.Epoch.Add(Δt))
}

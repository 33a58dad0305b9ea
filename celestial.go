package fuelopt

// CelestialObject defines a celestial object around which the vehicle orbits.
// Only Earth is seeded: this planner is an Earth-orbit tool, but keeping the
// body explicit means none of the math hard-codes μ.
type CelestialObject struct {
	Name   string
	Radius float64 // km
	μ      float64 // km³/s²
	J2     float64
}

// GM returns the gravitational parameter of this object.
func (c CelestialObject) GM() float64 {
	return c.μ
}

// Equals returns whether the provided object is the same.
func (c CelestialObject) Equals(b CelestialObject) bool {
	return c.Name == b.Name && c.Radius == b.Radius && c.μ == b.μ
}

func (c CelestialObject) String() string {
	return c.Name
}

// Earth is the central body of every mission in this package.
var Earth = CelestialObject{"Earth", 6371.0, 398600.4418, 0.00108263}

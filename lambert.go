package fuelopt

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gonum/matrix/mat64"
)

// ErrTransferTooShort is returned by Lambert when the requested time of
// flight is below the shortest transfer the solver can reach.
var ErrTransferTooShort = errors.New("transfer time is too short")

const (
	lambertε     = 1e-4 // general epsilon
	lambertTimeε = 1e-4 // time epsilon, in seconds
	lambertMaxIt = 10000
)

// HohmannTransfer holds the closed-form parameters of a two-burn transfer
// between two circular coplanar orbits.
type HohmannTransfer struct {
	ΔvInit    float64 // km/s, departure burn
	ΔvFinal   float64 // km/s, arrival burn
	TotalΔv   float64 // km/s
	TOF       time.Duration
	ATransfer float64 // km, semi-major axis of the transfer ellipse
}

// Hohmann computes a Hohmann transfer between circular orbits of radii rI and
// rF about the given body. The total Δv is symmetric in the radii.
func Hohmann(rI, rF float64, body CelestialObject) HohmannTransfer {
	aTransfer := 0.5 * (rI + rF)
	vICirc := math.Sqrt(body.GM() / rI)
	vITransfer := math.Sqrt(body.GM() * (2/rI - 1/aTransfer))
	ΔvInit := math.Abs(vITransfer - vICirc)
	vFTransfer := math.Sqrt(body.GM() * (2/rF - 1/aTransfer))
	vFCirc := math.Sqrt(body.GM() / rF)
	ΔvFinal := math.Abs(vFCirc - vFTransfer)
	tof := math.Pi * math.Sqrt(math.Pow(aTransfer, 3)/body.GM())
	return HohmannTransfer{
		ΔvInit:    ΔvInit,
		ΔvFinal:   ΔvFinal,
		TotalΔv:   ΔvInit + ΔvFinal,
		TOF:       time.Duration(tof * float64(time.Second)),
		ATransfer: aTransfer,
	}
}

// Lambert solves the Lambert boundary problem: given the initial and final
// radii and a time of flight about the given body, it returns the needed
// initial and final velocities. Universal variable formulation, bisection on
// φ (the square of the difference in eccentric anomaly), zero revolutions.
// The prograde flag selects the direction of motion matching counterclockwise
// travel; an infeasible time of flight is an error, never a panic.
func Lambert(Ri, Rf *mat64.Vector, Δt0 time.Duration, prograde bool, body CelestialObject) (Vi, Vf *mat64.Vector, err error) {
	if r, _ := Ri.Dims(); r != 3 {
		return nil, nil, errors.New("initial and final radii must be 3x1 vectors")
	}
	if r, _ := Rf.Dims(); r != 3 {
		return nil, nil, errors.New("initial and final radii must be 3x1 vectors")
	}
	Δt0Sec := Δt0.Seconds()
	rI := mat64.Norm(Ri, 2)
	rF := mat64.Norm(Rf, 2)
	cosΔν := mat64.Dot(Ri, Rf) / (rI * rF)

	// Direction of motion from the in-plane transfer angle.
	Δν := math.Atan2(Rf.At(1, 0), Rf.At(0, 0)) - math.Atan2(Ri.At(1, 0), Ri.At(0, 0))
	if Δν < 0 {
		Δν += 2 * math.Pi
	}
	dm := 1.0
	if Δν > math.Pi {
		dm = -1.0
	}
	if !prograde {
		dm = -dm
	}

	A := dm * math.Sqrt(rI*rF*(1+cosΔν))
	if math.Abs(A) < lambertε {
		return nil, nil, errors.New("cannot compute trajectory: the transfer angle is degenerate")
	}

	φ := 0.0
	φup := 4 * math.Pow(math.Pi, 2)
	φlow := -4 * math.Pi
	c2 := 1 / 2.
	c3 := 1 / 6.
	var Δt, y float64
	var iteration uint
	for math.Abs(Δt-Δt0Sec) > lambertTimeε {
		if iteration > lambertMaxIt {
			if Δt > Δt0Sec {
				return nil, nil, fmt.Errorf("%w: requested %.1f s", ErrTransferTooShort, Δt0Sec)
			}
			return nil, nil, fmt.Errorf("did not converge after %d iterations", lambertMaxIt)
		}
		iteration++
		y = rI + rF + A*(φ*c3-1)/math.Sqrt(c2)
		if A > 0 && y < 0 {
			tmpIt := 0
			for y < 0 {
				φ += 0.1
				y = rI + rF + A*(φ*c3-1)/math.Sqrt(c2)
				if tmpIt > lambertMaxIt {
					return nil, nil, errors.New("did not converge while increasing φ")
				}
				tmpIt++
			}
		}
		χ := math.Sqrt(y / c2)
		Δt = (math.Pow(χ, 3)*c3 + A*math.Sqrt(y)) / math.Sqrt(body.μ)
		if Δt <= Δt0Sec {
			φlow = φ
		} else {
			φup = φ
		}
		φ = (φup + φlow) / 2
		if φ > lambertε {
			sφ := math.Sqrt(φ)
			ssφ, csφ := math.Sincos(sφ)
			c2 = (1 - csφ) / φ
			c3 = (sφ - ssφ) / math.Sqrt(math.Pow(φ, 3))
		} else if φ < -lambertε {
			sφ := math.Sqrt(-φ)
			c2 = (1 - math.Cosh(sφ)) / φ
			c3 = (math.Sinh(sφ) - sφ) / math.Sqrt(math.Pow(-φ, 3))
		} else {
			c2 = 1 / 2.
			c3 = 1 / 6.
		}
	}
	f := 1 - y/rI
	gDot := 1 - y/rF
	g := A * math.Sqrt(y/body.μ)

	Vi = mat64.NewVector(3, nil)
	Vf = mat64.NewVector(3, nil)
	Vi.AddScaledVec(Rf, -f, Ri)
	Vi.ScaleVec(1/g, Vi)
	RfScaled := mat64.NewVector(3, nil)
	RfScaled.ScaleVec(gDot, Rf)
	Vf.AddScaledVec(RfScaled, -1, Ri)
	Vf.ScaleVec(1/g, Vf)
	return Vi, Vf, nil
}

package fuelopt

import (
	"math"
	"testing"

	"github.com/gonum/floats"
)

func TestCross(t *testing.T) {
	i := []float64{1, 0, 0}
	j := []float64{0, 1, 0}
	k := []float64{0, 0, 1}
	if !vectorsEqual(cross(i, j), k) {
		t.Fatal("i x j != k")
	}
	if !vectorsEqual(cross(j, k), i) {
		t.Fatal("j x k != i")
	}
	if !vectorsEqual(cross([]float64{2, 3, 4}, []float64{5, 6, 7}), []float64{-3, 6, -3}) {
		t.Fatal("cross fail")
	}
}

func TestDot(t *testing.T) {
	if dot([]float64{1, 2, 3}, []float64{4, 5, 6}) != 32 {
		t.Fatal("dot fail")
	}
	if dot([]float64{1, 0, 0}, []float64{0, 1, 0}) != 0 {
		t.Fatal("orthogonal dot not zero")
	}
}

func TestAngleConversions(t *testing.T) {
	for deg := 0.5; deg < 360; deg += 0.5 {
		if ok, err := anglesEqual(Deg2rad(deg), deg*math.Pi/180); !ok {
			t.Fatalf("%f deg: %s", deg, err)
		}
	}
	if ok, _ := anglesEqual(Deg2rad(-90), 3*math.Pi/2); !ok {
		t.Fatal("negative degrees must wrap")
	}
	if !floats.EqualWithinAbs(normAngle(-math.Pi/2), 3*math.Pi/2, 1e-12) {
		t.Fatal("normAngle must wrap into [0, 2π)")
	}
	if !floats.EqualWithinAbs(normAngle(5*math.Pi), math.Pi, 1e-12) {
		t.Fatal("normAngle must reduce multiples of 2π")
	}
}

func TestMisc(t *testing.T) {
	if sign(10) != 1 || sign(-10) != -1 || sign(0) != 1 {
		t.Fatal("sign fail")
	}
	nilVec := []float64{0, 0, 0}
	if norm(nilVec) != 0 {
		t.Fatal("norm of a nil vector was not nil")
	}
	uNilVec := unit(nilVec)
	for i := 0; i < 3; i++ {
		if uNilVec[i] != 0 {
			t.Fatal("unit of a nil vector must be nil")
		}
	}
	if !floats.EqualWithinAbs(norm(unit([]float64{3, 4, 12})), 1, 1e-12) {
		t.Fatal("unit vector norm != 1")
	}
}

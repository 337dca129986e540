package coord

import (
	"math"
	"testing"
)

func TestPolarMotion_IdentityAtZero(t *testing.T) {
	m := PolarMotion(0, 0)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(m[i][j]-want) > 1e-15 {
				t.Fatalf("PolarMotion(0,0) = %v, want identity", m)
			}
		}
	}
}

func TestICRFToITRS_PreservesMagnitude(t *testing.T) {
	posICRF := [3]float64{7000, 0, 0}
	jdUT1 := 2451545.0
	out := ICRFToITRS(posICRF, jdUT1, 0.15, 0.25)
	gotLen := math.Sqrt(out[0]*out[0] + out[1]*out[1] + out[2]*out[2])
	wantLen := 7000.0
	if math.Abs(gotLen-wantLen) > 1e-6 {
		t.Errorf("ICRFToITRS changed vector magnitude: got %v, want %v", gotLen, wantLen)
	}
}

func TestICRFToITRS_ZeroPolarMotionMatchesNoPM(t *testing.T) {
	posICRF := [3]float64{1000, 2000, 3000}
	jdUT1 := 2460000.0
	withZeroPM := ICRFToITRS(posICRF, jdUT1, 0, 0)

	// With x=y=0 the polar motion matrix is the identity, so this must equal
	// the plain Earth-rotation-only transform used internally by Altaz.
	_, _, dist := Altaz(posICRF, 0, 0, jdUT1)
	gotLen := math.Sqrt(withZeroPM[0]*withZeroPM[0] + withZeroPM[1]*withZeroPM[1] + withZeroPM[2]*withZeroPM[2])
	if math.Abs(gotLen-dist) > 1e-6 {
		t.Errorf("distance mismatch: ICRFToITRS length=%v Altaz dist=%v", gotLen, dist)
	}
	noPM := icrfToTIRS(posICRF, jdUT1)
	for i := 0; i < 3; i++ {
		if math.Abs(withZeroPM[i]-noPM[i]) > 1e-9 {
			t.Errorf("component %d: ICRFToITRS=%v, Earth-rotation-only=%v", i, withZeroPM[i], noPM[i])
		}
	}
}

func TestICRFToITRSVelocity_ZeroVelocityGivesRotationRateOnly(t *testing.T) {
	// A stationary ICRF point (zero inertial velocity) still has nonzero
	// ITRS velocity, entirely from Earth's own rotation: |ω×r|.
	posICRF := [3]float64{7000, 0, 0}
	jdUT1 := 2451545.0
	const omega = 7.292115e-5

	v := ICRFToITRSVelocity(posICRF, [3]float64{0, 0, 0}, jdUT1, 0, 0, omega)
	got := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	want := omega * 7000.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("ICRFToITRSVelocity magnitude = %v, want ~%v", got, want)
	}
}

func TestICRFToITRSVelocity_PolarPositionHasNoRotationalComponent(t *testing.T) {
	// A point on the rotation axis has ω×r = 0, so ITRS velocity should equal
	// the rotated inertial velocity alone. Precession and nutation tilt the
	// ICRF z axis off the pole of date, so the position is built as the ICRF
	// vector that icrfToTIRS maps onto the TIRS z axis (row 2 of its matrix).
	jdUT1 := 2451545.0
	var posICRF [3]float64
	for i := 0; i < 3; i++ {
		var e [3]float64
		e[i] = 1
		posICRF[i] = 7000 * icrfToTIRS(e, jdUT1)[2]
	}
	velICRF := [3]float64{1, 0, 0}
	const omega = 7.292115e-5

	v := ICRFToITRSVelocity(posICRF, velICRF, jdUT1, 0, 0, omega)
	got := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	want := math.Sqrt(velICRF[0]*velICRF[0] + velICRF[1]*velICRF[1] + velICRF[2]*velICRF[2])
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("ICRFToITRSVelocity magnitude = %v, want ~%v (rotation invariant)", got, want)
	}
}

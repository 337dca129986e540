package coord

import "math"

// InertialFrame is a fixed-orientation reference frame defined by a rotation
// matrix from ICRF. XYZ rotates an ICRF vector into the frame; LatLon reports
// the same rotation as spherical coordinates.
type InertialFrame struct {
	Name   string
	Matrix [3][3]float64
}

// XYZ rotates an ICRF Cartesian vector into the frame.
func (f InertialFrame) XYZ(posICRF [3]float64) [3]float64 {
	m := f.Matrix
	return [3]float64{
		m[0][0]*posICRF[0] + m[0][1]*posICRF[1] + m[0][2]*posICRF[2],
		m[1][0]*posICRF[0] + m[1][1]*posICRF[1] + m[1][2]*posICRF[2],
		m[2][0]*posICRF[0] + m[2][1]*posICRF[1] + m[2][2]*posICRF[2],
	}
}

// LatLon returns the frame-relative latitude/longitude (degrees) of an ICRF
// Cartesian vector. Longitude is in [0, 360).
func (f InertialFrame) LatLon(posICRF [3]float64) (latDeg, lonDeg float64) {
	v := f.XYZ(posICRF)
	r := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if r == 0 {
		return 0, 0
	}
	latDeg = math.Asin(v[2]/r) * rad2deg
	lonDeg = math.Atan2(v[1], v[0]) * rad2deg
	lonDeg = math.Mod(lonDeg+360.0, 360.0)
	return latDeg, lonDeg
}

// eclipticMatrix rotates ICRF into the J2000 mean ecliptic frame, the same
// rotation ICRFToEcliptic applies inline.
var eclipticMatrix = [3][3]float64{
	{1, 0, 0},
	{0, obliquityCos, obliquitySin},
	{0, -obliquitySin, obliquityCos},
}

// Ecliptic is the J2000 mean ecliptic InertialFrame, consistent with
// ICRFToEcliptic.
var Ecliptic = InertialFrame{Name: "Ecliptic", Matrix: eclipticMatrix}

// Galactic is the IAU 1958 Galactic System II InertialFrame, consistent with
// ICRFToGalactic.
var Galactic = InertialFrame{Name: "Galactic", Matrix: GalacticMatrix}

// TimeBasedFrame is a reference frame whose orientation relative to ICRF
// depends on time, such as the Earth-fixed terrestrial frame.
type TimeBasedFrame struct {
	name string
	xyz  func(posICRF [3]float64, jdUT1 float64) [3]float64
}

// XYZ rotates an ICRF Cartesian vector into the frame at the given UT1
// Julian date.
func (f TimeBasedFrame) XYZ(posICRF [3]float64, jdUT1 float64) [3]float64 {
	return f.xyz(posICRF, jdUT1)
}

// ITRFFrame returns the Earth-fixed terrestrial frame (ICRF rotated by GAST
// about the pole; polar motion is applied separately by PolarMotion, since
// that correction needs live EOP data rather than a fixed formula).
func ITRFFrame() TimeBasedFrame {
	return TimeBasedFrame{
		name: "ITRF",
		xyz: func(posICRF [3]float64, jdUT1 float64) [3]float64 {
			gastRad := GAST(jdUT1) * deg2rad
			sinG, cosG := math.Sincos(gastRad)
			return [3]float64{
				cosG*posICRF[0] + sinG*posICRF[1],
				-sinG*posICRF[0] + cosG*posICRF[1],
				posICRF[2],
			}
		},
	}
}

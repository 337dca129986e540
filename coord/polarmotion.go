package coord

import (
	"math"

	"github.com/ntn-leo/satpool/eop"
)

// PolarMotion returns the IAU W = R1(y) R2(x) polar-motion rotation for
// polar-motion coordinates x, y in arcseconds. The matrix itself is built by
// eop.PolarMotionMatrixFromArcsec so there is exactly one implementation of
// it in the module; this wrapper keeps the call site in the coord transform
// chain where Altaz and GeodeticToICRF already live.
func PolarMotion(xArcsec, yArcsec float64) [3][3]float64 {
	return eop.PolarMotionMatrixFromArcsec(xArcsec, yArcsec)
}

// ICRFToITRS converts a geocentric ICRF position (km) to ITRS by applying,
// in order, frame bias, precession, nutation, Earth rotation (GAST from
// jdUT1), and polar motion W(xArcsec, yArcsec). Altaz and GeodeticToICRF
// stop at the Earth-rotation step (sub-arcsecond polar wander is below their
// sky-pointing noise floor); this generalizes the same rotation chain with
// the one additional leg LEO topocentric range/elevation needs.
func ICRFToITRS(posICRF [3]float64, jdUT1, xArcsec, yArcsec float64) [3]float64 {
	tirs := icrfToTIRS(posICRF, jdUT1)
	return applyMatrix(PolarMotion(xArcsec, yArcsec), tirs)
}

// icrfToTIRS applies frame bias, precession, nutation, and Earth rotation
// (GAST) to an ICRF vector, stopping one step short of polar motion. It is
// the shared first stage of both ICRFToITRS and ICRFToITRSVelocity: valid
// for any instantaneous direction-cosine rotation of a vector at a fixed
// jdUT1, position or velocity alike.
func icrfToTIRS(vICRF [3]float64, jdUT1 float64) [3]float64 {
	T := (jdUT1 - j2000JD) / 36525.0

	vJ2000 := applyMatrix(ICRSToJ2000Matrix, vICRF)
	vMean := applyMatrixTranspose(precessionMatrixInverse(T), vJ2000)

	dpsiRad, depsRad := nutationAngles(T)
	epsM := meanObliquity(T)
	vTrue := applyMatrixTranspose(nutationMatrixTranspose(dpsiRad, depsRad, epsM), vMean)

	gastRad := GAST(jdUT1) * deg2rad
	sinG, cosG := math.Sincos(gastRad)
	return [3]float64{
		cosG*vTrue[0] + sinG*vTrue[1],
		-sinG*vTrue[0] + cosG*vTrue[1],
		vTrue[2],
	}
}

// ICRFToITRSVelocity converts a geocentric ICRF velocity (km/s), alongside
// its paired ICRF position (km), into ITRS by rotating it through the same
// bias/precession/nutation/Earth-rotation chain as ICRFToITRS and then
// subtracting the rotating-frame term ω×r_TIRS that a velocity (unlike a
// position) picks up from Earth's own rotation rate, before applying polar
// motion. omegaRadPerSec is Earth's nominal angular velocity
// (constants.WGS84.OmegaRadPerSec).
func ICRFToITRSVelocity(posICRF, velICRF [3]float64, jdUT1, xArcsec, yArcsec, omegaRadPerSec float64) [3]float64 {
	tirsPos := icrfToTIRS(posICRF, jdUT1)
	tirsVelRotatedOnly := icrfToTIRS(velICRF, jdUT1)

	omegaCrossR := [3]float64{
		-omegaRadPerSec * tirsPos[1],
		omegaRadPerSec * tirsPos[0],
		0,
	}
	tirsVel := sub3(tirsVelRotatedOnly, omegaCrossR)
	return applyMatrix(PolarMotion(xArcsec, yArcsec), tirsVel)
}

func applyMatrix(m [3][3]float64, v [3]float64) [3]float64 {
	return [3]float64{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

func applyMatrixTranspose(m [3][3]float64, v [3]float64) [3]float64 {
	return [3]float64{
		m[0][0]*v[0] + m[1][0]*v[1] + m[2][0]*v[2],
		m[0][1]*v[0] + m[1][1]*v[1] + m[2][1]*v[2],
		m[0][2]*v[0] + m[1][2]*v[1] + m[2][2]*v[2],
	}
}

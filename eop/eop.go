// Package eop provides IERS Earth Orientation Parameters: polar motion,
// UT1-UTC, length-of-day, and celestial pole offsets, read from a
// finals2000A.all Bulletin A snapshot. There is no unit-matrix or
// zero-offset fallback when data is missing — every accessor fails loudly
// instead, since a silently wrong polar-motion matrix is worse than an
// aborted sample.
package eop

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/ntn-leo/satpool/units"
)

// Record is one day's IERS Earth Orientation Parameters.
type Record struct {
	MJD           float64
	XPolarArcsec  float64
	YPolarArcsec  float64
	UT1MinusUTCs  float64
	LODms         float64
	DXNutArcsec   float64
	DYNutArcsec   float64
	SigmaXArcsec  float64
	SigmaYArcsec  float64
	SigmaUT1s     float64
	SourceTag     string // "final" or "predicted", per finals2000A.all's columns; "interpolated" for records At builds between two rows
}

// Provider is a memory-resident, MJD-sorted table of Records parsed from a
// finals2000A.all file.
type Provider struct {
	records []Record
}

// Load parses a finals2000A.all file (IERS rapid-service/prediction
// Bulletin A format, fixed-width columns) into a Provider. It returns an
// error, never a partially usable Provider, if the file cannot be opened
// or contains no parseable rows.
func Load(path string) (*Provider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("eop: opening %s: %w", path, err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if len(line) < 68 {
			continue // short/trailer lines carry no usable columns
		}
		rec, ok := parseLine(line)
		if !ok {
			continue // predicted-only row missing the fields we need
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("eop: reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("eop: %s contains no usable EOP rows", path)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].MJD < records[j].MJD })
	return &Provider{records: records}, nil
}

// parseLine decodes one finals2000A.all data row. Column offsets match the
// IERS fixed-width format (see the finals2000A.all README): MJD at 7-15,
// PM flag at 16, x at 18-27, x-error at 27-36, y at 37-46, y-error at
// 46-55, UT1-UTC flag at 57, UT1-UTC at 58-68, its error at 68-78, LOD at
// 79-86. Rows missing the Bulletin A UT1-UTC column (char 58 blank) are
// reported as unusable.
func parseLine(line string) (Record, bool) {
	get := func(lo, hi int) (float64, bool) {
		if hi > len(line) {
			return 0, false
		}
		s := line[lo:hi]
		blank := true
		for _, c := range s {
			if c != ' ' {
				blank = false
				break
			}
		}
		if blank {
			return 0, false
		}
		var v float64
		if _, err := fmt.Sscanf(s, "%f", &v); err != nil {
			return 0, false
		}
		return v, true
	}

	mjd, ok := get(7, 15)
	if !ok {
		return Record{}, false
	}
	x, ok := get(18, 27)
	if !ok {
		return Record{}, false
	}
	xErr, _ := get(27, 36)
	y, ok := get(37, 46)
	if !ok {
		return Record{}, false
	}
	yErr, _ := get(46, 55)
	ut1, ok := get(58, 68)
	if !ok {
		return Record{}, false
	}
	ut1Err, _ := get(68, 78)
	lod, _ := get(79, 86)
	dx, _ := get(97, 106)
	dy, _ := get(116, 125)

	source := "predicted"
	if len(line) > 57 && line[57] == 'I' {
		source = "final"
	}

	return Record{
		MJD:          mjd,
		XPolarArcsec: x,
		YPolarArcsec: y,
		UT1MinusUTCs: ut1,
		LODms:        lod,
		DXNutArcsec:  dx,
		DYNutArcsec:  dy,
		SigmaXArcsec: xErr,
		SigmaYArcsec: yErr,
		SigmaUT1s:    ut1Err,
		SourceTag:    source,
	}, true
}

const mjdEpochJD = 2400000.5

// mjdFromUTC converts a UTC time.Time to a Modified Julian Date.
func mjdFromUTC(t time.Time) float64 {
	t = t.UTC()
	unixEpochJD := 2440587.5
	jd := unixEpochJD + float64(t.Unix())/86400.0
	return jd - mjdEpochJD
}

// ErrNoData is returned when no EOP record lies within interpolation range
// of the requested instant. There is never a fallback value.
type ErrNoData struct {
	MJD float64
}

func (e *ErrNoData) Error() string {
	return fmt.Sprintf("eop: no EOP data within ±2d of MJD %.4f", e.MJD)
}

// At returns the EOP record for a UTC instant: the cached record if its MJD
// distance is within 0.5 d, otherwise linearly interpolated between the two
// nearest records if both lie within 2 d, otherwise an *ErrNoData error.
// The returned bool reports whether the nearest available record is more
// than 7 d away from the request; every such request fails with
// *ErrNoData, so the bool is false whenever the error is nil.
func (p *Provider) At(t time.Time) (Record, bool, error) {
	mjd := mjdFromUTC(t)
	return p.AtMJD(mjd)
}

// AtMJD is At expressed directly in Modified Julian Date.
func (p *Provider) AtMJD(mjd float64) (Record, bool, error) {
	n := len(p.records)
	idx := sort.Search(n, func(i int) bool { return p.records[i].MJD >= mjd })

	var nearest Record
	nearestDist := math.Inf(1)
	if idx < n {
		d := math.Abs(p.records[idx].MJD - mjd)
		if d < nearestDist {
			nearest, nearestDist = p.records[idx], d
		}
	}
	if idx > 0 {
		d := math.Abs(p.records[idx-1].MJD - mjd)
		if d < nearestDist {
			nearest, nearestDist = p.records[idx-1], d
		}
	}
	if math.IsInf(nearestDist, 1) {
		return Record{}, false, &ErrNoData{MJD: mjd}
	}

	stale := nearestDist > 7.0

	if nearestDist <= 0.5 {
		return nearest, stale, nil
	}

	// Need two bracketing records within 2 d to interpolate.
	if idx == 0 || idx == n {
		return Record{}, false, &ErrNoData{MJD: mjd}
	}
	lo, hi := p.records[idx-1], p.records[idx]
	if mjd-lo.MJD > 2.0 || hi.MJD-mjd > 2.0 {
		return Record{}, false, &ErrNoData{MJD: mjd}
	}

	frac := (mjd - lo.MJD) / (hi.MJD - lo.MJD)
	interp := Record{
		MJD:          mjd,
		XPolarArcsec: lerp(lo.XPolarArcsec, hi.XPolarArcsec, frac),
		YPolarArcsec: lerp(lo.YPolarArcsec, hi.YPolarArcsec, frac),
		UT1MinusUTCs: lerp(lo.UT1MinusUTCs, hi.UT1MinusUTCs, frac),
		LODms:        lerp(lo.LODms, hi.LODms, frac),
		DXNutArcsec:  lerp(lo.DXNutArcsec, hi.DXNutArcsec, frac),
		DYNutArcsec:  lerp(lo.DYNutArcsec, hi.DYNutArcsec, frac),
		SigmaXArcsec: math.Max(lo.SigmaXArcsec, hi.SigmaXArcsec),
		SigmaYArcsec: math.Max(lo.SigmaYArcsec, hi.SigmaYArcsec),
		SigmaUT1s:    math.Max(lo.SigmaUT1s, hi.SigmaUT1s),
		SourceTag:    "interpolated",
	}
	return interp, stale, nil
}

func lerp(a, b, frac float64) float64 { return a + frac*(b-a) }

// UT1UTC returns UT1-UTC in seconds for a UTC instant, or an error if no
// EOP data is available — the live counterpart to timescale.TTToUT1's
// static ΔT fallback.
func (p *Provider) UT1UTC(t time.Time) (float64, error) {
	rec, _, err := p.At(t)
	if err != nil {
		return 0, err
	}
	return rec.UT1MinusUTCs, nil
}

// PolarMotionMatrix builds the IAU W = R1(y) R2(x) polar-motion rotation
// (arcsec arguments converted to radians internally) for a UTC instant, or
// fails if no EOP data is available for it.
func (p *Provider) PolarMotionMatrix(t time.Time) ([3][3]float64, error) {
	rec, _, err := p.At(t)
	if err != nil {
		return [3][3]float64{}, err
	}
	return PolarMotionMatrixFromArcsec(rec.XPolarArcsec, rec.YPolarArcsec), nil
}

// PolarMotionMatrixFromArcsec builds W = R1(y) R2(x) from polar-motion
// coordinates x, y given directly in arcseconds. Exposed separately from
// PolarMotionMatrix so coord.PolarMotion can compose it without requiring a
// live Provider when the caller already has an EOP record.
func PolarMotionMatrixFromArcsec(xArcsec, yArcsec float64) [3][3]float64 {
	x := units.AngleFromDegrees(xArcsec / 3600.0).Radians()
	y := units.AngleFromDegrees(yArcsec / 3600.0).Radians()
	sx, cx := math.Sincos(x)
	sy, cy := math.Sincos(y)

	// R2(x) rotates about the Y axis by x; R1(y) rotates about the X axis
	// by y. W = R1(y) * R2(x).
	r2 := [3][3]float64{
		{cx, 0, -sx},
		{0, 1, 0},
		{sx, 0, cx},
	}
	r1 := [3][3]float64{
		{1, 0, 0},
		{0, cy, sy},
		{0, -sy, cy},
	}
	return matMul(r1, r2)
}

func matMul(a, b [3][3]float64) [3][3]float64 {
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = a[i][0]*b[0][j] + a[i][1]*b[1][j] + a[i][2]*b[2][j]
		}
	}
	return out
}

// Package pool selects a time-varying, multi-objective-optimal subset of
// visible satellites at each planning instant: a Pareto-based planner over
// signal quality, sky-coverage diversity, and expected handover rate,
// subject to hard cardinality and constellation-mix constraints.
package pool

import (
	"math"
	"math/cmplx"
	"time"
)

// Candidate is one Satellite Candidate (§3 Data Model): a satellite
// visible at the planning instant, with the scalar features the
// objectives are computed from.
type Candidate struct {
	SatelliteID     int
	Constellation   string
	RSRPdBm         float64
	AzimuthDeg      float64
	ElevationDeg    float64
	WindowEndUTC    time.Time // current visibility window's end, for handover-rate estimation
}

// Constraints are the §4.6 hard constraints; a plan violating any is
// rejected.
type Constraints struct {
	NMin, NMax             int
	StarlinkShareMin, StarlinkShareMax float64
	UsabilityRSRPdBm       float64
}

// DefaultConstraints reflects the §4.6 documented defaults.
func DefaultConstraints() Constraints {
	return Constraints{
		NMin: 8, NMax: 20,
		StarlinkShareMin: 0.3, StarlinkShareMax: 0.7,
		UsabilityRSRPdBm: -110.0,
	}
}

// RLWeights are the configurable scalar weights for the "rl_driven"
// strategy's composite score and the weighted-sum objective combination.
// Per §9's Open Question decision, the learning procedure that would
// produce these weights is out of scope; they are a plain input.
type RLWeights struct {
	O1, O2, O3 float64 // objective weights
}

// DefaultRLWeights gives each objective equal weight.
func DefaultRLWeights() RLWeights {
	return RLWeights{O1: 1.0 / 3, O2: 1.0 / 3, O3: 1.0 / 3}
}

// azimuthSectors/elevationBands are the §4.6 diversity-formula granularity
// ("12 sectors and elevation bands of 6 bands").
const azimuthSectors = 12
const elevationBands = 6

// ObjectiveO1 returns mean RSRP of s, mapped to [0,1] via (RSRP+110)/50.
func ObjectiveO1(s []Candidate) float64 {
	if len(s) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range s {
		sum += c.RSRPdBm
	}
	mean := sum / float64(len(s))
	return clamp01((mean + 110.0) / 50.0)
}

// ObjectiveO2 is the engine's `_calculate_angular_distribution_diversity`
// formula: 1 - |Σ e^{iθ_k}|/N, applied over the combined azimuth-sector and
// elevation-band angular position of each candidate, so that a pool
// clustered in one part of the sky scores low and one spread across
// sectors/bands scores near 1.
func ObjectiveO2(s []Candidate) float64 {
	if len(s) == 0 {
		return 0
	}
	var sum complex128
	for _, c := range s {
		theta := angularPosition(c)
		sum += cmplx.Exp(complex(0, theta))
	}
	n := float64(len(s))
	return clamp01(1.0 - cmplx.Abs(sum)/n)
}

// angularPosition maps a candidate's (azimuth sector, elevation band) onto
// a single angle on the unit circle, combining both into one diversity
// measure per the formula's single Σ e^{iθ_k} sum.
func angularPosition(c Candidate) float64 {
	azSector := math.Mod(c.AzimuthDeg, 360.0) / 360.0 * azimuthSectors
	elBand := math.Min(c.ElevationDeg/90.0, 1.0) * elevationBands
	combined := azSector + elBand/elevationBands // elevation nudges within-sector phase
	return combined / azimuthSectors * 2 * math.Pi
}

// ObjectiveO3 returns 1 - expected_handover_rate(s), where the expected
// handover rate is the fraction of s whose current visibility window ends
// within the look-ahead horizon of "now".
func ObjectiveO3(s []Candidate, now time.Time, lookAhead time.Duration) float64 {
	if len(s) == 0 {
		return 1
	}
	endingSoon := 0
	horizon := now.Add(lookAhead)
	for _, c := range s {
		if !c.WindowEndUTC.IsZero() && !c.WindowEndUTC.After(horizon) {
			endingSoon++
		}
	}
	rate := float64(endingSoon) / float64(len(s))
	return clamp01(1.0 - rate)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// WeightedScore combines the three objectives (each already in [0,1]) via
// the configured weights, plus the §4.6 temporal-coherence soft bonus
// folded into O3's weight when prev is non-nil.
func WeightedScore(s []Candidate, prev []Candidate, now time.Time, lookAhead time.Duration, w RLWeights) float64 {
	o1 := ObjectiveO1(s)
	o2 := ObjectiveO2(s)
	o3 := ObjectiveO3(s, now, lookAhead)
	if prev != nil {
		o3 = clamp01(o3 + 0.1*temporalOverlap(s, prev))
	}
	return w.O1*o1 + w.O2*o2 + w.O3*o3
}

// temporalOverlap is the fraction of s's members also present in prev,
// the soft bonus input for "successive pools SHOULD share >= 70% of
// members" (§4.6).
func temporalOverlap(s, prev []Candidate) float64 {
	if len(s) == 0 || len(prev) == 0 {
		return 0
	}
	prevIDs := make(map[int]bool, len(prev))
	for _, c := range prev {
		prevIDs[c.SatelliteID] = true
	}
	shared := 0
	for _, c := range s {
		if prevIDs[c.SatelliteID] {
			shared++
		}
	}
	return float64(shared) / float64(len(s))
}

// SatisfiesConstraints reports whether pool s passes every §4.6 hard
// constraint.
func SatisfiesConstraints(s []Candidate, c Constraints) bool {
	if len(s) < c.NMin || len(s) > c.NMax {
		return false
	}
	var starlink, oneweb, other int
	for _, cand := range s {
		if cand.RSRPdBm < c.UsabilityRSRPdBm {
			return false
		}
		switch cand.Constellation {
		case "starlink":
			starlink++
		case "oneweb":
			oneweb++
		default:
			other++
		}
	}
	if starlink > 0 && oneweb > 0 {
		share := float64(starlink) / float64(len(s))
		if share < c.StarlinkShareMin || share > c.StarlinkShareMax {
			return false
		}
	}
	return true
}

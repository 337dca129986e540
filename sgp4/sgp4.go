// Package sgp4 batch-propagates two-line element sets into TEME state
// vectors via the Hoots/Roehrich SGP4/SDP4 model, with the sanity bounds and
// time-base rule the core imposes on every sample.
package sgp4

import (
	"fmt"
	"math"
	"time"

	gosatellite "github.com/joshuaferrara/go-satellite"

	"github.com/ntn-leo/satpool/elements"
	"github.com/ntn-leo/satpool/tle"
)

// Flags is a bitset attached to every Sample.
type Flags uint8

const (
	// FlagDeepSpace marks a satellite whose orbital period requires the
	// SDP4 deep-space branch (period >= 225 min), per its own mean motion.
	FlagDeepSpace Flags = 1 << iota
	// FlagNumericalWarning marks a sample computed more than 7 days from
	// the TLE epoch. A state vector whose implied period diverges from the
	// TLE's own period is not flagged: it fails the whole satellite with
	// ReasonKeplerMismatch.
	FlagNumericalWarning
	// FlagDecayed is carried on a PropagationError, never on a successful
	// Sample: a sample failing the position sanity bound marks the whole
	// satellite failed rather than being emitted with this bit set.
	FlagDecayed
)

// Has reports whether f contains flag.
func (f Flags) Has(flag Flags) bool { return f&flag != 0 }

// Sample is one Propagation Sample: a satellite's TEME state vector at a
// single UTC instant, plus the propagator's own flags for that instant.
type Sample struct {
	TUTC               time.Time
	TFromEpochMin      float64
	PositionTEMEKm     [3]float64
	VelocityTEMEKmPerS [3]float64
	Flags              Flags
	// AgeWarning reports |t_from_epoch| > 3 d: a data-quality warning the
	// caller may surface, distinct from the 7 d propagator_flags bit.
	AgeWarning bool
}

// PropagationError reports why a satellite was dropped from the pipeline.
// Reason is one of the fixed failure-reason tags the run's failure list
// records (tle_epoch_stale, sgp4_decayed, sgp4_numerical_singularity,
// sanity_bound_violation, kepler_third_law_mismatch).
type PropagationError struct {
	NoradID int
	Reason  string
	Detail  string
}

func (e *PropagationError) Error() string {
	return fmt.Sprintf("sgp4: norad %d: %s: %s", e.NoradID, e.Reason, e.Detail)
}

// Failure reason tags, per §8 scenario 3 and the §4.2 failure-mode list.
const (
	ReasonEpochStale           = "tle_epoch_stale"
	ReasonDecayed              = "sgp4_decayed"
	ReasonNumericalSingularity = "sgp4_numerical_singularity"
	ReasonSanityBound          = "sanity_bound_violation"
	ReasonKeplerMismatch       = "kepler_third_law_mismatch"
)

// maxAgeDays is the hard bound on |t - epoch|: beyond this, SGP4's error
// growth is no longer bounded by any reasonable accuracy claim and the
// instant is rejected outright rather than silently propagated.
const maxAgeDays = 14.0

// warnAgeDays is the age past which samples carry FlagNumericalWarning but
// are still produced; ageWarnDays is the earlier, non-flag warning age.
const warnAgeDays = 7.0
const ageWarnDays = 3.0

// Sanity bounds on a LEO state vector (§8): any sample outside these is
// physically implausible (excludes GEO and decayed orbits) and fails the
// whole satellite, not just the sample.
const (
	minPositionKm = 6500.0
	maxPositionKm = 10000.0
	minSpeedKmS   = 6.0
	maxSpeedKmS   = 9.0
)

// keplerTolerance is the maximum fractional difference tolerated between
// the TLE's own orbital period and the period implied by the osculating
// elements of a single propagated state vector (Kepler's third law check,
// §8).
const keplerTolerance = 0.03

// Propagator wraps a single TLE record for repeated propagation.
type Propagator struct {
	rec  tle.Record
	sat  gosatellite.Satellite
	deep bool
	gm   float64 // km^3/s^2, for the Kepler's-third-law cross-check
}

// New builds a Propagator from a validated TLE record. gmKm3PerS2 is
// Earth's gravitational parameter (constants.WGS84.GMKm3PerS2); pass 0 to
// skip the Kepler's-third-law cross-check.
func New(rec tle.Record, gmKm3PerS2 float64) *Propagator {
	return &Propagator{
		rec:  rec,
		sat:  gosatellite.TLEToSat(rec.Line1, rec.Line2, gosatellite.GravityWGS84),
		deep: rec.IsDeepSpace(),
		gm:   gmKm3PerS2,
	}
}

// Propagate computes one Sample per UTC instant in ts, in the order given.
// Any instant that fails the time-base hard bound or the §8 sanity checks
// fails the whole call with a *PropagationError: the satellite is dropped
// from further pipeline stages rather than emitting partial, untrustworthy
// samples for it.
func (p *Propagator) Propagate(ts []time.Time) ([]Sample, error) {
	samples := make([]Sample, 0, len(ts))
	for _, t := range ts {
		s, err := p.propagateOne(t)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func (p *Propagator) propagateOne(t time.Time) (Sample, error) {
	ageDays := t.Sub(p.rec.EpochUTC).Hours() / 24.0
	if math.Abs(ageDays) > maxAgeDays {
		return Sample{}, &PropagationError{
			NoradID: p.rec.NoradID,
			Reason:  ReasonEpochStale,
			Detail:  fmt.Sprintf("|t_from_epoch|=%.2fd exceeds %.0fd hard bound", ageDays, maxAgeDays),
		}
	}

	tUTC := t.UTC()
	pos, vel := gosatellite.Propagate(p.sat, tUTC.Year(), int(tUTC.Month()), tUTC.Day(), tUTC.Hour(), tUTC.Minute(), tUTC.Second())
	posKm := [3]float64{pos.X, pos.Y, pos.Z}
	velKmS := [3]float64{vel.X, vel.Y, vel.Z}

	r := length3(posKm)
	v := length3(velKmS)
	if r < minPositionKm || r > maxPositionKm {
		reason := ReasonSanityBound
		if r < minPositionKm {
			reason = ReasonDecayed
		}
		return Sample{}, &PropagationError{
			NoradID: p.rec.NoradID,
			Reason:  reason,
			Detail:  fmt.Sprintf("position magnitude %.1fkm outside [%.0f,%.0f]", r, minPositionKm, maxPositionKm),
		}
	}
	if v < minSpeedKmS || v > maxSpeedKmS || math.IsNaN(v) {
		return Sample{}, &PropagationError{
			NoradID: p.rec.NoradID,
			Reason:  ReasonNumericalSingularity,
			Detail:  fmt.Sprintf("speed %.3fkm/s outside [%.1f,%.1f]", v, minSpeedKmS, maxSpeedKmS),
		}
	}

	var flags Flags
	if p.deep {
		flags |= FlagDeepSpace
	}
	if math.Abs(ageDays) > warnAgeDays {
		flags |= FlagNumericalWarning
	}
	if p.gm > 0 {
		if el := elements.FromStateVector(posKm, velKmS, p.gm); el.PeriodDays > 0 && !math.IsInf(el.PeriodDays, 0) {
			tSGP4 := p.rec.PeriodMinutes() / 1440.0 // days
			if frac := math.Abs(el.PeriodDays-tSGP4) / tSGP4; frac > keplerTolerance {
				return Sample{}, &PropagationError{
					NoradID: p.rec.NoradID,
					Reason:  ReasonKeplerMismatch,
					Detail:  fmt.Sprintf("osculating period %.4fd diverges from TLE period %.4fd by %.1f%%", el.PeriodDays, tSGP4, frac*100),
				}
			}
		}
	}

	return Sample{
		TUTC:               tUTC,
		TFromEpochMin:      ageDays * 1440.0,
		PositionTEMEKm:     posKm,
		VelocityTEMEKmPerS: velKmS,
		Flags:              flags,
		AgeWarning:         math.Abs(ageDays) > ageWarnDays,
	}, nil
}

func length3(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

package pipeline

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ntn-leo/satpool/coord"
	"github.com/ntn-leo/satpool/eop"
	"github.com/ntn-leo/satpool/linkbudget"
	"github.com/ntn-leo/satpool/sgp4"
	"github.com/ntn-leo/satpool/tle"
	"github.com/ntn-leo/satpool/timescale"
	"github.com/ntn-leo/satpool/visibility"
)

// maxSampleFailureFraction is the §7 sample-level-to-TLE-level escalation
// threshold: more than 1% of a satellite's samples failing drops the whole
// satellite rather than just the bad samples.
const maxSampleFailureFraction = 0.01

// SampleRecord is one satellite's fully transformed Topocentric + Signal
// Sample at a single shared-grid instant, kept (rather than folded
// straight into a Visibility Window) because C7 candidate-building needs
// azimuth/elevation/RSRP at a specific planning instant, not just the
// aggregated window statistics C6 produces.
type SampleRecord struct {
	TUTC              time.Time
	PositionITRSKm    [3]float64
	GeodeticLatDeg    float64
	GeodeticLonDeg    float64
	GeodeticHeightM   float64
	ElevationDeg      float64
	AzimuthDeg        float64
	RangeKm           float64
	RangeRateKmPerS   float64
	AccuracyEstimateM float64
	RSRPdBm           float64
	EventFlags        linkbudget.EventFlags
	IsVisible         bool
}

// SatelliteOutcome is one succeeded satellite's worker output.
type SatelliteOutcome struct {
	NoradID       int
	Constellation string
	Samples       []SampleRecord
	Windows       []visibility.Window
	SamplesFailed int
}

// InvariantViolation reports a §7 "invariant violation": a defect in the
// transform chain itself, not a data-quality issue, and therefore fatal
// for the whole run rather than just the one satellite.
type InvariantViolation struct {
	NoradID int
	Detail  string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("pipeline: invariant violation for satellite %d: %s", e.NoradID, e.Detail)
}

// workerDeps is the read-only, shared-by-reference state every worker
// reads from but never mutates (§5 shared-resource policy).
type workerDeps struct {
	cfg              Config
	eopProvider      *eop.Provider
	gmKm3PerS2       float64
	omegaRadPerSec   float64
	ephemerisPresent bool
	ts               []time.Time
}

// runSatellite executes the C3->C4->C5->C6 chain for one satellite. It
// returns exactly one of (outcome, failure, fatal): a fatal error means an
// invariant violation was detected and the whole run must abort.
func runSatellite(d *workerDeps, rec tle.Record) (SatelliteOutcome, *FailureRecord, error) {
	prop := sgp4.New(rec, d.gmKm3PerS2)
	samples, err := prop.Propagate(d.ts)
	if err != nil {
		var pe *sgp4.PropagationError
		if errors.As(err, &pe) {
			return SatelliteOutcome{}, &FailureRecord{NoradID: rec.NoradID, Stage: "C3", Reason: pe.Reason}, nil
		}
		return SatelliteOutcome{}, &FailureRecord{NoradID: rec.NoradID, Stage: "C3", Reason: "sgp4_error"}, nil
	}

	records := make([]SampleRecord, 0, len(samples))
	visSamples := make([]visibility.Sample, 0, len(samples))
	failed := 0

	// EventDetector is fed each satellite's own RSRP as both the "serving"
	// and the "neighbour" input, and the fixed D2FarKm threshold as the
	// serving range: the §5 per-satellite worker never sees a second
	// satellite's state, and no stage of this pipeline pairs satellites
	// for A4/A5/D2 (DESIGN.md records this as a scope decision). D2's
	// "serving range > D2FarKm" condition never holds, so D2 is always
	// false here.
	detector := linkbudget.NewEventDetector(d.cfg.EventThresholds)

	for _, s := range samples {
		eopRec, _, err := d.eopProvider.At(s.TUTC)
		if err != nil {
			failed++
			continue
		}

		jdUTC := timescale.TimeToJDUTC(s.TUTC)
		jdUT1 := jdUTC + eopRec.UT1MinusUTCs/timescale.SecPerDay

		posICRF := coord.TEMEToICRF(s.PositionTEMEKm, jdUT1)
		velICRF := coord.TEMEToICRF(s.VelocityTEMEKmPerS, jdUT1)

		posITRS := coord.ICRFToITRS(posICRF, jdUT1, eopRec.XPolarArcsec, eopRec.YPolarArcsec)
		velITRS := coord.ICRFToITRSVelocity(posICRF, velICRF, jdUT1, eopRec.XPolarArcsec, eopRec.YPolarArcsec, d.omegaRadPerSec)

		geoLatDeg, geoLonDeg, geoHeightKm := coord.ITRFToGeodetic(posITRS[0], posITRS[1], posITRS[2])

		elevationDeg, azimuthDeg, rangeKm, rangeRateKmPerS := coord.Topocentric(posITRS, velITRS, d.cfg.Observer.LatDeg, d.cfg.Observer.LonDeg, d.cfg.Observer.AltitudeKm())

		if elevationDeg < -90 || elevationDeg > 90 {
			return SatelliteOutcome{}, nil, &InvariantViolation{NoradID: rec.NoradID, Detail: fmt.Sprintf("elevation_deg=%.3f outside [-90,90]", elevationDeg)}
		}
		if azimuthDeg < 0 || azimuthDeg >= 360 {
			return SatelliteOutcome{}, nil, &InvariantViolation{NoradID: rec.NoradID, Detail: fmt.Sprintf("azimuth_deg=%.3f outside [0,360)", azimuthDeg)}
		}
		if rangeKm <= 0 || math.IsNaN(rangeKm) {
			return SatelliteOutcome{}, nil, &InvariantViolation{NoradID: rec.NoradID, Detail: fmt.Sprintf("range_km=%.3f not positive", rangeKm)}
		}

		interference := linkbudget.ElevationDependentInterferenceDBm(elevationDeg)
		lb := linkbudget.Evaluate(rangeKm, elevationDeg, d.cfg.FreqGHz, rec.Constellation, d.cfg.EIRP, d.cfg.LinkParams, interference)
		if !lb.Reliable {
			failed++
			continue
		}

		eventFlags := detector.Update(s.TUTC, lb.RSRPdBm, lb.RSRPdBm, d.cfg.EventThresholds.D2FarKm, rangeKm)

		ageDays := math.Abs(s.TUTC.Sub(rec.EpochUTC).Hours()) / 24.0
		accuracyM := coord.AccuracyEstimateM(eopRec.SigmaXArcsec, eopRec.SigmaYArcsec, eopRec.SigmaUT1s, ageDays, d.ephemerisPresent)

		isVisible := elevationDeg >= d.cfg.ElevationMaskDeg
		sr := SampleRecord{
			TUTC:              s.TUTC,
			PositionITRSKm:    posITRS,
			GeodeticLatDeg:    geoLatDeg,
			GeodeticLonDeg:    geoLonDeg,
			GeodeticHeightM:   geoHeightKm * 1000.0,
			ElevationDeg:      elevationDeg,
			AzimuthDeg:        azimuthDeg,
			RangeKm:           rangeKm,
			RangeRateKmPerS:   rangeRateKmPerS,
			AccuracyEstimateM: accuracyM,
			RSRPdBm:           lb.RSRPdBm,
			EventFlags:        eventFlags,
			IsVisible:         isVisible,
		}
		records = append(records, sr)
		visSamples = append(visSamples, visibility.Sample{TUTC: s.TUTC, ElevationDeg: elevationDeg, RSRPdBm: lb.RSRPdBm, IsVisible: isVisible})
	}

	if len(samples) > 0 && float64(failed)/float64(len(samples)) > maxSampleFailureFraction {
		return SatelliteOutcome{}, &FailureRecord{NoradID: rec.NoradID, Stage: "C4", Reason: "sample_failure_rate_exceeded"}, nil
	}

	windows := visibility.Sweep(rec.NoradID, visSamples, d.cfg.UsabilityRSRPdBm, d.cfg.HoldOffSamples, nil, nil)

	return SatelliteOutcome{
		NoradID:       rec.NoradID,
		Constellation: rec.Constellation,
		Samples:       records,
		Windows:       windows,
		SamplesFailed: failed,
	}, nil, nil
}

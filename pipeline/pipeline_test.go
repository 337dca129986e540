package pipeline

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ntn-leo/satpool/constants"
	"github.com/ntn-leo/satpool/eop"
	"github.com/ntn-leo/satpool/pool"
	"github.com/ntn-leo/satpool/tle"
	"github.com/ntn-leo/satpool/visibility"
)

const (
	issLine1 = "1 25544U 98067A   08264.51782528 -.00002182  00000-0 -11606-4 0  2927"
	issLine2 = "2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537"
)

func issRecord(t *testing.T) tle.Record {
	t.Helper()
	rec, err := tle.Parse("ISS (ZARYA)", "starlink", issLine1, issLine2, tle.ChecksumOfficial)
	if err != nil {
		t.Fatalf("tle.Parse: %v", err)
	}
	return rec
}

func mjdOf(t time.Time) float64 {
	t = t.UTC()
	const unixEpochJD = 2440587.5
	jd := unixEpochJD + float64(t.Unix())/86400.0
	return jd - 2400000.5
}

// buildEOPLine renders one finals2000A.all data row with the fields
// runSatellite actually reads, right-justified within eop.parseLine's
// fixed column offsets (7-15 MJD, 18-27/27-36 x/x-err, 37-46/46-55
// y/y-err, 58-68/68-78 UT1-UTC/its-err, 79-86 LOD). Column 57 carries the
// Bulletin-A flag that marks the row as "final" rather than "predicted".
func buildEOPLine(mjd, x, xErr, y, yErr, ut1, ut1Err, lod float64) []byte {
	buf := []byte(strings.Repeat(" ", 106))
	place := func(lo, hi int, s string) {
		if len(s) > hi-lo {
			s = s[len(s)-(hi-lo):]
		}
		copy(buf[hi-len(s):hi], s)
	}
	place(7, 15, strconv.FormatFloat(mjd, 'f', 2, 64))
	place(18, 27, strconv.FormatFloat(x, 'f', 6, 64))
	place(27, 36, strconv.FormatFloat(xErr, 'f', 6, 64))
	place(37, 46, strconv.FormatFloat(y, 'f', 6, 64))
	place(46, 55, strconv.FormatFloat(yErr, 'f', 6, 64))
	buf[57] = 'I'
	place(58, 68, strconv.FormatFloat(ut1, 'f', 7, 64))
	place(68, 78, strconv.FormatFloat(ut1Err, 'f', 7, 64))
	place(79, 86, strconv.FormatFloat(lod, 'f', 4, 64))
	return buf
}

// writeSyntheticEOPFile writes a finals2000A.all-shaped fixture bracketing
// centerUTC by a week either side, at 1-day spacing, so every instant
// tested against it resolves within At's +-2 d interpolation window.
func writeSyntheticEOPFile(t *testing.T, centerUTC time.Time) string {
	t.Helper()
	var sb strings.Builder
	for day := -7; day <= 7; day++ {
		mjd := mjdOf(centerUTC.AddDate(0, 0, day))
		sb.Write(buildEOPLine(mjd, 0.12, 0.000012, 0.23, 0.000013, -0.045, 0.0000123, 0.5))
		sb.WriteByte('\n')
	}
	f, err := os.CreateTemp("", "finals2000A_*.all")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(sb.String()); err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

// writeMinimalEphemeris writes a structurally valid, single-segment
// DAF/SPK file, the same minimal fixture constants_test.go uses, so
// constants.Provider.EphemerisPresent succeeds without a real de421.bsp.
func writeMinimalEphemeris(t *testing.T) string {
	t.Helper()
	const recordLen = 1024
	buf := make([]byte, 2*recordLen)
	copy(buf[0:8], "DAF/SPK ")
	binary.LittleEndian.PutUint32(buf[8:12], 2)
	binary.LittleEndian.PutUint32(buf[12:16], 6)
	binary.LittleEndian.PutUint32(buf[76:80], 2)

	off := recordLen
	binary.LittleEndian.PutUint64(buf[off+16:off+24], math.Float64bits(1.0))

	f, err := os.CreateTemp("", "ephem*.bsp")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(buf); err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

func testWGS84(t *testing.T) constants.WGS84 {
	t.Helper()
	p := constants.NewProvider("../constants/testdata/wgs84.json", "../constants/testdata/iau2012.json", writeMinimalEphemeris(t))
	w, err := p.WGS84()
	if err != nil {
		t.Fatalf("WGS84: %v", err)
	}
	return w
}

func ntpuObserver() Observer {
	return Observer{LatDeg: 24.9442, LonDeg: 121.3714, AltitudeM: 0}
}

func TestResolveWorkerCount_ExplicitOverrideWins(t *testing.T) {
	if got := resolveWorkerCount(4); got != 4 {
		t.Errorf("resolveWorkerCount(4) = %d, want 4", got)
	}
}

func TestResolveWorkerCount_EnvOverride(t *testing.T) {
	t.Setenv(workerCountEnvVar, "7")
	if got := resolveWorkerCount(0); got != 7 {
		t.Errorf("resolveWorkerCount(0) with env=7 = %d, want 7", got)
	}
}

func TestResolveWorkerCount_FallbackUsesCeilPointSevenFive(t *testing.T) {
	t.Setenv(workerCountEnvVar, "")
	want := int(math.Ceil(0.75 * float64(runtime.NumCPU())))
	if got := resolveWorkerCount(0); got != want {
		t.Errorf("resolveWorkerCount(0) = %d, want %d", got, want)
	}
}

func TestBuildGrid_StrictlyMonotonicBySampleStep(t *testing.T) {
	cfg := Config{StartUTC: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Sampling: SamplingProfile{SampleCount: 10, StepS: 30}}
	ts := buildGrid(cfg)
	if len(ts) != 10 {
		t.Fatalf("len(ts) = %d, want 10", len(ts))
	}
	for i := 1; i < len(ts); i++ {
		delta := ts[i].Sub(ts[i-1])
		if delta != 30*time.Second {
			t.Errorf("ts[%d]-ts[%d] = %v, want 30s", i, i-1, delta)
		}
	}
}

func TestGrade_Thresholds(t *testing.T) {
	cases := []struct {
		succeeded, total int
		want             string
	}{
		{100, 100, "A+"},
		{99, 100, "A+"},
		{96, 100, "A"},
		{86, 100, "B"},
		{71, 100, "C"},
		{50, 100, "F"},
		{0, 0, "F"},
	}
	for _, c := range cases {
		if got := grade(c.succeeded, c.total); got != c.want {
			t.Errorf("grade(%d,%d) = %q, want %q", c.succeeded, c.total, got, c.want)
		}
	}
}

func TestObserver_AltitudeKm(t *testing.T) {
	o := Observer{AltitudeM: 1500}
	if got := o.AltitudeKm(); got != 1.5 {
		t.Errorf("AltitudeKm() = %v, want 1.5", got)
	}
}

func TestWindowEndAt_FindsContainingWindow(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	windows := []visibility.Window{
		{StartUTC: start, EndUTC: start.Add(5 * time.Minute)},
		{StartUTC: start.Add(time.Hour), EndUTC: start.Add(65 * time.Minute)},
	}
	mid := start.Add(2 * time.Minute)
	if got := windowEndAt(windows, mid); !got.Equal(windows[0].EndUTC) {
		t.Errorf("windowEndAt = %v, want %v", got, windows[0].EndUTC)
	}
	outside := start.Add(20 * time.Minute)
	if got := windowEndAt(windows, outside); !got.Equal(outside) {
		t.Errorf("windowEndAt outside any window = %v, want itself (%v)", got, outside)
	}
}

func TestAllWindows_FlattensInOutcomeOrder(t *testing.T) {
	outcomes := []SatelliteOutcome{
		{NoradID: 1, Windows: []visibility.Window{{SatelliteID: 1}, {SatelliteID: 1}}},
		{NoradID: 2, Windows: []visibility.Window{{SatelliteID: 2}}},
	}
	all := allWindows(outcomes)
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	if all[0].SatelliteID != 1 || all[2].SatelliteID != 2 {
		t.Errorf("allWindows did not preserve outcome order: %+v", all)
	}
}

func TestRunSatellite_TopocentricInvariantsHold(t *testing.T) {
	rec := issRecord(t)
	eopPath := writeSyntheticEOPFile(t, rec.EpochUTC)
	eopProvider, err := eop.Load(eopPath)
	if err != nil {
		t.Fatalf("eop.Load: %v", err)
	}
	wgs84 := testWGS84(t)

	cfg := DefaultConfig(rec.EpochUTC)
	cfg.Sampling = SamplingProfile{SampleCount: 20, StepS: 30}
	cfg.Observer = ntpuObserver()

	deps := &workerDeps{
		cfg:              cfg,
		eopProvider:      eopProvider,
		gmKm3PerS2:       wgs84.GMKm3PerS2,
		omegaRadPerSec:   wgs84.OmegaRadPerSec,
		ephemerisPresent: true,
		ts:               buildGrid(cfg),
	}

	outcome, failure, err := runSatellite(deps, rec)
	if err != nil {
		t.Fatalf("runSatellite returned a fatal error (invariant violation): %v", err)
	}
	if failure != nil {
		t.Fatalf("runSatellite failed the satellite: %+v", *failure)
	}
	if len(outcome.Samples) == 0 {
		t.Fatal("expected at least one surviving sample")
	}
	for _, s := range outcome.Samples {
		if s.ElevationDeg < -90 || s.ElevationDeg > 90 {
			t.Errorf("elevation_deg = %v outside [-90,90]", s.ElevationDeg)
		}
		if s.AzimuthDeg < 0 || s.AzimuthDeg >= 360 {
			t.Errorf("azimuth_deg = %v outside [0,360)", s.AzimuthDeg)
		}
		if s.RangeKm <= 0 {
			t.Errorf("range_km = %v, want > 0", s.RangeKm)
		}
		if s.AccuracyEstimateM <= 0 {
			t.Errorf("accuracy_estimate_m = %v, want > 0", s.AccuracyEstimateM)
		}
		if s.GeodeticLatDeg < -90 || s.GeodeticLatDeg > 90 {
			t.Errorf("geodetic lat = %v outside [-90,90]", s.GeodeticLatDeg)
		}
		if s.GeodeticLonDeg < -180 || s.GeodeticLonDeg > 180 {
			t.Errorf("geodetic lon = %v outside [-180,180]", s.GeodeticLonDeg)
		}
		// ISS orbits ~400km up; a sub-pointed geodetic height well outside
		// that neighborhood would mean ITRFToGeodetic was fed the wrong
		// vector (e.g. the observer's ECEF position instead of the
		// satellite's).
		if s.GeodeticHeightM < 200000 || s.GeodeticHeightM > 2000000 {
			t.Errorf("geodetic height = %vm, want roughly LEO altitude", s.GeodeticHeightM)
		}
		if s.PositionITRSKm == ([3]float64{}) {
			t.Errorf("PositionITRSKm not populated")
		}
	}
}

func TestRunSatellite_DecayedTLEFailsAtC3(t *testing.T) {
	rec := issRecord(t)
	wgs84 := testWGS84(t)

	// A request 20 days from epoch exceeds sgp4's 14 d hard bound, so the
	// satellite is dropped at C3 before the transform chain ever runs a
	// sample — the §8 scenario-3 "decayed satellite" failure mode.
	cfg := DefaultConfig(rec.EpochUTC.AddDate(0, 0, 20))
	cfg.Sampling = SamplingProfile{SampleCount: 5, StepS: 30}
	cfg.Observer = ntpuObserver()

	deps := &workerDeps{
		cfg:            cfg,
		gmKm3PerS2:     wgs84.GMKm3PerS2,
		omegaRadPerSec: wgs84.OmegaRadPerSec,
		ts:             buildGrid(cfg),
	}

	_, failure, err := runSatellite(deps, rec)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if failure == nil {
		t.Fatal("expected a TLE-level failure for a 20-day-stale request window")
	}
	if failure.Reason != "tle_epoch_stale" {
		t.Errorf("failure.Reason = %q, want tle_epoch_stale", failure.Reason)
	}
	if failure.Stage != "C3" {
		t.Errorf("failure.Stage = %q, want C3", failure.Stage)
	}
}

func TestRun_SingleSatelliteIsAlwaysACoverageGap(t *testing.T) {
	rec := issRecord(t)
	eopPath := writeSyntheticEOPFile(t, rec.EpochUTC)
	eopProvider, err := eop.Load(eopPath)
	if err != nil {
		t.Fatalf("eop.Load: %v", err)
	}
	wgs84 := testWGS84(t)

	cfg := DefaultConfig(rec.EpochUTC)
	cfg.Sampling = SamplingProfile{SampleCount: 10, StepS: 30}
	cfg.Observer = ntpuObserver()
	cfg.WorkerCount = 2

	orch := New(cfg, eopProvider, wgs84, true)
	report, err := orch.Run([]tle.Record{rec})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.TotalSatellites != 1 {
		t.Errorf("TotalSatellites = %d, want 1", report.TotalSatellites)
	}
	// A single satellite can never reach the default N_min=8 pool floor,
	// so every planning instant must report a coverage gap rather than a
	// selection.
	for _, p := range report.Plans {
		if !p.CoverageGap {
			t.Errorf("plan at %v unexpectedly had no coverage gap (selected %d)", p.Timestamp, len(p.Selected))
		}
		if p.GapReason != "insufficient_candidates" {
			t.Errorf("GapReason = %q, want insufficient_candidates", p.GapReason)
		}
	}
}

func TestRun_DeterministicAcrossRepeatedRuns(t *testing.T) {
	rec := issRecord(t)
	eopPath := writeSyntheticEOPFile(t, rec.EpochUTC)
	wgs84 := testWGS84(t)

	cfg := DefaultConfig(rec.EpochUTC)
	cfg.Sampling = SamplingProfile{SampleCount: 8, StepS: 30}
	cfg.Observer = ntpuObserver()
	cfg.WorkerCount = 3

	run := func() Report {
		eopProvider, err := eop.Load(eopPath)
		if err != nil {
			t.Fatalf("eop.Load: %v", err)
		}
		orch := New(cfg, eopProvider, wgs84, true)
		report, err := orch.Run([]tle.Record{rec})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		report.GeneratedAtUTC = time.Time{} // excluded from the determinism claim
		return report
	}

	a := run()
	b := run()

	if a.SucceededCount != b.SucceededCount || a.FailedCount != b.FailedCount {
		t.Fatalf("non-deterministic succeeded/failed counts: %+v vs %+v", a, b)
	}
	if len(a.Windows) != len(b.Windows) {
		t.Fatalf("non-deterministic window count: %d vs %d", len(a.Windows), len(b.Windows))
	}
	for i := range a.Windows {
		if a.Windows[i] != b.Windows[i] {
			t.Errorf("window %d differs between runs: %+v vs %+v", i, a.Windows[i], b.Windows[i])
		}
	}
	if len(a.Plans) != len(b.Plans) {
		t.Fatalf("non-deterministic plan count: %d vs %d", len(a.Plans), len(b.Plans))
	}
}

func TestRun_FatalInvariantViolationAbortsTheRun(t *testing.T) {
	// A NaN latitude poisons every Topocentric computation with NaN
	// elevation/azimuth, which must be caught as a fatal invariant
	// violation rather than silently propagated into the report.
	rec := issRecord(t)
	eopPath := writeSyntheticEOPFile(t, rec.EpochUTC)
	eopProvider, err := eop.Load(eopPath)
	if err != nil {
		t.Fatalf("eop.Load: %v", err)
	}
	wgs84 := testWGS84(t)

	cfg := DefaultConfig(rec.EpochUTC)
	cfg.Sampling = SamplingProfile{SampleCount: 5, StepS: 30}
	cfg.Observer = Observer{LatDeg: math.NaN(), LonDeg: 0, AltitudeM: 0}

	orch := New(cfg, eopProvider, wgs84, true)
	_, err = orch.Run([]tle.Record{rec})
	if err == nil {
		t.Fatal("expected a fatal invariant-violation error")
	}
	var iv *InvariantViolation
	if !errors.As(err, &iv) {
		t.Errorf("error %v is not an *InvariantViolation", err)
	}
}

func TestPoolConstraintsDefaultNMinExceedsSingleSatellite(t *testing.T) {
	// Sanity check the assumption TestRun_SingleSatelliteIsAlwaysACoverageGap
	// relies on: the default floor really is above 1.
	if pool.DefaultConstraints().NMin <= 1 {
		t.Fatalf("NMin = %d, test assumption requires NMin > 1", pool.DefaultConstraints().NMin)
	}
}

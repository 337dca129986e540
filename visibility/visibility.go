// Package visibility reduces a satellite's per-sample time series into
// contiguous Visibility Windows: left-to-right sweep with hold-off and a
// minimum-duration floor, the same shape as the teacher's
// satellite.FindEvents pass-finding sweep, generalized from a rise/set
// event stream to an aggregate-statistics window stream.
package visibility

import (
	"time"

	"github.com/ntn-leo/satpool/search"
)

// Sample is the subset of a Signal Sample the sweep needs: elevation and
// RSRP at an instant, plus the visibility flag C4 already computed.
type Sample struct {
	TUTC        time.Time
	ElevationDeg float64
	RSRPdBm     float64
	IsVisible   bool
}

// Window is one Visibility Window (§3 Data Model).
type Window struct {
	SatelliteID     int
	StartUTC        time.Time
	EndUTC          time.Time
	DurationS       float64
	MaxElevationDeg float64
	MeanRSRPdBm     float64
	MinRSRPdBm      float64
	SampleCount     int
}

// DefaultUsabilityRSRPdBm is the §4.5 default usability threshold.
const DefaultUsabilityRSRPdBm = -110.0

// minWindowDurationS discards transient windows shorter than this.
const minWindowDurationS = 30.0

// Sweep reduces an ordered Signal Sample sequence for one satellite into
// Visibility Windows. holdOffSamples is the number of consecutive
// out-of-condition samples that closes a window (1 by default, per §4.5:
// the first such sample closes it; shorter runs are bridged and stay in
// the window); elevFunc, if non-nil, is a continuous elevation
// function (in degrees, indexed by UTC Julian date via timescale) used to
// refine max_elevation_deg between discrete samples via
// search.FindMaxima — the same sub-sample refinement
// satellite.FindEvents used for pass culmination.
func Sweep(satelliteID int, samples []Sample, usabilityRSRPdBm float64, holdOffSamples int, elevFunc func(jdUTC float64) float64, jdOf func(time.Time) float64) []Window {
	if holdOffSamples < 1 {
		holdOffSamples = 1
	}

	var windows []Window
	inWindow := false
	var start int
	badStreak := 0

	flush := func(endIdx int) {
		w := buildWindow(satelliteID, samples[start:endIdx])
		if w.DurationS >= minWindowDurationS {
			if elevFunc != nil && jdOf != nil {
				w.MaxElevationDeg = refineMaxElevation(w, elevFunc, jdOf)
			}
			windows = append(windows, w)
		}
	}

	for i, s := range samples {
		open := s.IsVisible && s.RSRPdBm >= usabilityRSRPdBm
		if open {
			badStreak = 0
			if !inWindow {
				inWindow = true
				start = i
			}
			continue
		}
		if inWindow {
			badStreak++
			if badStreak >= holdOffSamples {
				flush(i - badStreak + 1)
				inWindow = false
				badStreak = 0
			}
		}
	}
	if inWindow {
		flush(len(samples) - badStreak)
	}

	return windows
}

func buildWindow(satelliteID int, samples []Sample) Window {
	if len(samples) == 0 {
		return Window{}
	}
	w := Window{
		SatelliteID: satelliteID,
		StartUTC:    samples[0].TUTC,
		EndUTC:      samples[len(samples)-1].TUTC,
		SampleCount: len(samples),
		MinRSRPdBm:  samples[0].RSRPdBm,
	}
	sum := 0.0
	for _, s := range samples {
		if s.ElevationDeg > w.MaxElevationDeg {
			w.MaxElevationDeg = s.ElevationDeg
		}
		if s.RSRPdBm < w.MinRSRPdBm {
			w.MinRSRPdBm = s.RSRPdBm
		}
		sum += s.RSRPdBm
	}
	w.MeanRSRPdBm = sum / float64(len(samples))
	w.DurationS = w.EndUTC.Sub(w.StartUTC).Seconds()
	return w
}

func refineMaxElevation(w Window, elevFunc func(float64) float64, jdOf func(time.Time) float64) float64 {
	startJD := jdOf(w.StartUTC)
	endJD := jdOf(w.EndUTC)
	if endJD <= startJD {
		return w.MaxElevationDeg
	}
	const stepDays = 1.0 / 1440.0 // 1 minute, matching satellite.FindEvents' cadence
	maxima, err := search.FindMaxima(startJD, endJD, stepDays, elevFunc, 0)
	if err != nil || len(maxima) == 0 {
		return w.MaxElevationDeg
	}
	best := maxima[0].Value
	for _, m := range maxima[1:] {
		if m.Value > best {
			best = m.Value
		}
	}
	if best > w.MaxElevationDeg {
		return best
	}
	return w.MaxElevationDeg
}

package visibility

import (
	"testing"
	"time"
)

func mkSample(tOffsetS float64, elev, rsrp float64, visible bool) Sample {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return Sample{
		TUTC:         base.Add(time.Duration(tOffsetS * float64(time.Second))),
		ElevationDeg: elev,
		RSRPdBm:      rsrp,
		IsVisible:    visible,
	}
}

func TestSweep_SingleWindowAboveMask(t *testing.T) {
	var samples []Sample
	for i := 0; i < 10; i++ {
		samples = append(samples, mkSample(float64(i)*30, 20+float64(i), -90, true))
	}
	windows := Sweep(1, samples, DefaultUsabilityRSRPdBm, 1, nil, nil)
	if len(windows) != 1 {
		t.Fatalf("len(windows) = %d, want 1", len(windows))
	}
	w := windows[0]
	if w.SampleCount != 10 {
		t.Errorf("SampleCount = %d, want 10", w.SampleCount)
	}
	if w.MaxElevationDeg != 29 {
		t.Errorf("MaxElevationDeg = %v, want 29", w.MaxElevationDeg)
	}
	if w.DurationS != 270 {
		t.Errorf("DurationS = %v, want 270", w.DurationS)
	}
}

func TestSweep_DiscardsTransientBelowFloor(t *testing.T) {
	// Only 2 samples 30s apart: 30s duration is exactly at the floor, fine,
	// but a single sample (0s duration) must be discarded.
	samples := []Sample{mkSample(0, 20, -90, true)}
	windows := Sweep(1, samples, DefaultUsabilityRSRPdBm, 1, nil, nil)
	if len(windows) != 0 {
		t.Errorf("expected transient single-sample window discarded, got %d", len(windows))
	}
}

func TestSweep_ClosesOnLowRSRPEvenIfVisible(t *testing.T) {
	var samples []Sample
	for i := 0; i < 5; i++ {
		samples = append(samples, mkSample(float64(i)*30, 20, -90, true))
	}
	// Drops below usability threshold but stays geometrically visible.
	for i := 5; i < 8; i++ {
		samples = append(samples, mkSample(float64(i)*30, 20, -130, true))
	}
	windows := Sweep(1, samples, DefaultUsabilityRSRPdBm, 1, nil, nil)
	if len(windows) != 1 {
		t.Fatalf("len(windows) = %d, want 1", len(windows))
	}
	if windows[0].SampleCount != 5 {
		t.Errorf("SampleCount = %d, want 5 (window should close at RSRP drop)", windows[0].SampleCount)
	}
}

func TestSweep_HoldOffToleratesBriefDropout(t *testing.T) {
	var samples []Sample
	for i := 0; i < 5; i++ {
		samples = append(samples, mkSample(float64(i)*30, 20, -90, true))
	}
	samples = append(samples, mkSample(150, 20, -90, false)) // single bad sample
	for i := 6; i < 10; i++ {
		samples = append(samples, mkSample(float64(i)*30, 20, -90, true))
	}
	windows := Sweep(1, samples, DefaultUsabilityRSRPdBm, 2, nil, nil)
	if len(windows) != 1 {
		t.Fatalf("len(windows) = %d, want 1 (hold-off=2 should bridge a single bad sample)", len(windows))
	}
	if windows[0].SampleCount != 10 {
		t.Errorf("SampleCount = %d, want 10", windows[0].SampleCount)
	}
}

func TestSweep_MultipleWindowsOrderedByStartTime(t *testing.T) {
	var samples []Sample
	for i := 0; i < 5; i++ {
		samples = append(samples, mkSample(float64(i)*30, 20, -90, true))
	}
	for i := 5; i < 10; i++ {
		samples = append(samples, mkSample(float64(i)*30, 0, -200, false))
	}
	for i := 10; i < 15; i++ {
		samples = append(samples, mkSample(float64(i)*30, 20, -90, true))
	}
	windows := Sweep(1, samples, DefaultUsabilityRSRPdBm, 1, nil, nil)
	if len(windows) != 2 {
		t.Fatalf("len(windows) = %d, want 2", len(windows))
	}
	if !windows[0].StartUTC.Before(windows[1].StartUTC) {
		t.Error("windows must be ordered by start time")
	}
}

func TestSweep_EmptyInput(t *testing.T) {
	windows := Sweep(1, nil, DefaultUsabilityRSRPdBm, 1, nil, nil)
	if len(windows) != 0 {
		t.Errorf("expected no windows for empty input, got %d", len(windows))
	}
}

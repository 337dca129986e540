// Package pipeline is the C8 orchestrator: a bounded worker pool runs the
// C3 (propagation) -> C4 (coordinate transform) -> C5 (link budget) -> C6
// (visibility) chain for one satellite end-to-end per worker, then C7 (pool
// planning) runs on the calling goroutine once every worker has returned.
package pipeline

import (
	"time"

	"github.com/ntn-leo/satpool/linkbudget"
	"github.com/ntn-leo/satpool/pool"
)

// Observer is the ground station the whole run is evaluated against.
type Observer struct {
	LatDeg    float64
	LonDeg    float64
	AltitudeM float64
}

// AltitudeKm converts the observer's altitude to the kilometers coord
// expects.
func (o Observer) AltitudeKm() float64 { return o.AltitudeM / 1000.0 }

// SamplingProfile is the run's shared time grid: every satellite is
// propagated at the same SampleCount instants, StepS seconds apart,
// starting at Config.StartUTC. A shared grid (rather than one tailored to
// each satellite's own period) is what lets C7 compare satellites at a
// common instant without re-interpolating worker output.
type SamplingProfile struct {
	SampleCount int
	StepS       float64
}

// DefaultSamplingProfile is the §8 scenario-2 cadence: 192 samples at 30 s,
// a 96-minute window.
func DefaultSamplingProfile() SamplingProfile {
	return SamplingProfile{SampleCount: 192, StepS: 30.0}
}

// Config is every core-visible knob named in §6.
type Config struct {
	StartUTC         time.Time
	Sampling         SamplingProfile
	Observer         Observer
	ElevationMaskDeg float64
	FreqGHz          float64

	EIRP            linkbudget.EIRP
	LinkParams      linkbudget.Params
	EventThresholds linkbudget.EventThresholds

	UsabilityRSRPdBm float64
	HoldOffSamples   int

	PoolConstraints pool.Constraints
	PoolWeights     pool.RLWeights
	// PlanningEverySamples runs C7 once every N samples along the shared
	// grid (1 plans at every sample).
	PlanningEverySamples int
	LookAhead            time.Duration

	// WorkerCount overrides the §5 default (ceil(0.75*n_cpu), itself
	// overridable by the SATPOOL_WORKER_COUNT environment variable). Zero
	// defers to the environment/fallback.
	WorkerCount int
	// WatchdogTimeout is the per-satellite CPU-time cap (§5); zero uses
	// the 30 s default.
	WatchdogTimeout time.Duration
}

// DefaultConfig returns the §4.4/§4.5/§4.6/§6 documented defaults and the
// 192x30s sampling profile. Observer is left at its zero value (0°N, 0°E,
// 0 m); callers set it and override the other fields their run needs.
func DefaultConfig(start time.Time) Config {
	return Config{
		StartUTC:             start,
		Sampling:             DefaultSamplingProfile(),
		ElevationMaskDeg:     10.0,
		FreqGHz:              12.0,
		EIRP:                 linkbudget.DefaultEIRPdBm,
		LinkParams:           linkbudget.NewParams(),
		EventThresholds:      linkbudget.DefaultThresholds(),
		UsabilityRSRPdBm:     -110.0,
		HoldOffSamples:       1,
		PoolConstraints:      pool.DefaultConstraints(),
		PoolWeights:          pool.DefaultRLWeights(),
		PlanningEverySamples: 1,
		LookAhead:            5 * time.Minute,
		WatchdogTimeout:      30 * time.Second,
	}
}

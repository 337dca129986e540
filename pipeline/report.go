package pipeline

import (
	"time"

	"github.com/ntn-leo/satpool/pool"
	"github.com/ntn-leo/satpool/visibility"
)

// FailureRecord is one dropped satellite, per §7's TLE-level error kinds.
// Coverage gaps are not recorded here; they are flagged on the
// pool.PlanResult of the instant concerned.
type FailureRecord struct {
	NoradID int    `json:"norad_id,omitempty"`
	Stage   string `json:"stage"`
	Reason  string `json:"reason"`
}

// ValidationSnapshot is the §6 "counts, sampling rate actually achieved,
// and bounds checks" block.
type ValidationSnapshot struct {
	SamplesAttempted     int     `json:"samples_attempted"`
	SamplesFailed        int     `json:"samples_failed"`
	SamplingRateAchieved float64 `json:"sampling_rate_achieved"`
}

// ConfigSnapshot is the subset of Config recorded in run metadata.
type ConfigSnapshot struct {
	SampleCount          int     `json:"sample_count"`
	StepS                float64 `json:"step_s"`
	ElevationMaskDeg     float64 `json:"elevation_mask_deg"`
	UsabilityRSRPdBm     float64 `json:"usability_rsrp_dbm"`
	PlanningEverySamples int     `json:"planning_every_samples"`
}

// Report is the canonical JSON document handed to Stage 5 (§6): run
// metadata, per-satellite visibility windows, per-instant pool plans,
// per-run statistics, and a validation snapshot.
type Report struct {
	GeneratedAtUTC  time.Time           `json:"generated_at_utc"`
	Observer        Observer            `json:"observer"`
	Configuration   ConfigSnapshot      `json:"configuration"`
	TotalSatellites int                 `json:"total_satellites"`
	SucceededCount  int                 `json:"succeeded_satellites"`
	FailedCount     int                 `json:"failed_satellites"`
	Grade           string              `json:"grade"`
	Failures        []FailureRecord     `json:"failures"`
	Windows         []visibility.Window `json:"visibility_windows"`
	Plans           []pool.PlanResult   `json:"pool_plans"`
	Validation      ValidationSnapshot  `json:"validation"`
}

// grade maps succeeded/total to the §7 letter grade.
func grade(succeeded, total int) string {
	if total == 0 {
		return "F"
	}
	r := float64(succeeded) / float64(total)
	switch {
	case r >= 0.99:
		return "A+"
	case r >= 0.95:
		return "A"
	case r >= 0.85:
		return "B"
	case r >= 0.70:
		return "C"
	default:
		return "F"
	}
}

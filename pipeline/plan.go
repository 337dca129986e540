package pipeline

import (
	"time"

	"github.com/ntn-leo/satpool/pool"
	"github.com/ntn-leo/satpool/visibility"
)

// planAll runs C7 once per planning instant on the shared sample grid,
// carrying the previous instant's selection forward for §4.6's temporal-
// coherence bonus. It is the only place in the pipeline that looks across
// satellites at once, and it runs after every worker has returned (§5: C7
// runs on the main thread once the worker pool completes).
func (o *Orchestrator) planAll(outcomes []SatelliteOutcome, ts []time.Time) []pool.PlanResult {
	byTime := make([]map[time.Time]SampleRecord, len(outcomes))
	for i, out := range outcomes {
		m := make(map[time.Time]SampleRecord, len(out.Samples))
		for _, s := range out.Samples {
			m[s.TUTC] = s
		}
		byTime[i] = m
	}

	every := o.cfg.PlanningEverySamples
	if every < 1 {
		every = 1
	}

	var plans []pool.PlanResult
	var prevSelected []pool.Candidate
	for i := 0; i < len(ts); i += every {
		t := ts[i]
		var candidates []pool.Candidate
		for j, out := range outcomes {
			sr, ok := byTime[j][t]
			if !ok || !sr.IsVisible {
				continue
			}
			candidates = append(candidates, pool.Candidate{
				SatelliteID:   out.NoradID,
				Constellation: out.Constellation,
				RSRPdBm:       sr.RSRPdBm,
				AzimuthDeg:    sr.AzimuthDeg,
				ElevationDeg:  sr.ElevationDeg,
				WindowEndUTC:  windowEndAt(out.Windows, t),
			})
		}

		result := pool.Plan(t, candidates, o.cfg.PoolConstraints, o.cfg.PoolWeights, prevSelected, o.cfg.LookAhead)
		plans = append(plans, result)
		if !result.CoverageGap {
			prevSelected = result.Selected
		}
	}
	return plans
}

// windowEndAt finds the Visibility Window containing t and returns its end
// time, for the pool planner's look-ahead handover-rate objective (O3). If
// t falls in none (shouldn't happen for a sample already marked visible,
// but the window's 30 s minimum-duration floor can discard a transient one
// that produced a single visible sample), t itself is returned so the
// candidate reads as "ending now" rather than zero-value.
func windowEndAt(windows []visibility.Window, t time.Time) time.Time {
	for _, w := range windows {
		if !t.Before(w.StartUTC) && !t.After(w.EndUTC) {
			return w.EndUTC
		}
	}
	return t
}

// allWindows flattens every succeeded satellite's Visibility Windows into
// one satellite-sorted list (outcomes is already sorted by NoradID, so
// this preserves that ordering).
func allWindows(outcomes []SatelliteOutcome) []visibility.Window {
	var all []visibility.Window
	for _, out := range outcomes {
		all = append(all, out.Windows...)
	}
	return all
}

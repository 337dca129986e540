package pipeline

import (
	"math"
	"os"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ntn-leo/satpool/constants"
	"github.com/ntn-leo/satpool/eop"
	"github.com/ntn-leo/satpool/tle"
)

// workerCountEnvVar overrides the §5 scheduling-model worker count.
const workerCountEnvVar = "SATPOOL_WORKER_COUNT"

// Orchestrator runs the full pipeline over a batch of TLE records. All of
// its dependencies (EOP table, WGS-84 constants) are loaded once by the
// caller and held read-only for the run's duration, per §5.
type Orchestrator struct {
	cfg              Config
	eopProvider      *eop.Provider
	wgs84            constants.WGS84
	ephemerisPresent bool
}

// New builds an Orchestrator. ephemerisPresent should come from
// constants.Provider.EphemerisPresent (segmentCount > 0, err == nil) —
// Run needs only the boolean, not the provider itself, since it is used
// solely as an input to coord.AccuracyEstimateM.
func New(cfg Config, eopProvider *eop.Provider, wgs84 constants.WGS84, ephemerisPresent bool) *Orchestrator {
	return &Orchestrator{cfg: cfg, eopProvider: eopProvider, wgs84: wgs84, ephemerisPresent: ephemerisPresent}
}

// resolveWorkerCount applies the §5 scheduling model: an explicit override,
// then the environment variable, then ceil(0.75*n_cpu) — physical-core
// detection has no portable stdlib API, so the fallback ceil(0.75*n_cpu) is
// the one actually used whenever neither override is given.
func resolveWorkerCount(override int) int {
	if override > 0 {
		return override
	}
	if v := os.Getenv(workerCountEnvVar); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	n := runtime.NumCPU()
	return int(math.Ceil(0.75 * float64(n)))
}

// buildGrid lays out the shared sample-instant grid: StartUTC,
// StartUTC+StepS, StartUTC+2*StepS, ... Each step is built from a single
// fixed time.Duration rather than accumulated float seconds, so successive
// instants differ by exactly StepS (the §8 time-monotonicity property)
// with no float drift.
func buildGrid(cfg Config) []time.Time {
	step := time.Duration(cfg.Sampling.StepS * float64(time.Second))
	ts := make([]time.Time, cfg.Sampling.SampleCount)
	for i := range ts {
		ts[i] = cfg.StartUTC.Add(time.Duration(i) * step)
	}
	return ts
}

// fatalTrap latches the first invariant-violation/reference-data-missing
// error seen by any worker; subsequent trips are dropped, matching the
// "first defect wins" semantics a panicking assertion would have without
// actually unwinding goroutines mid-flight.
type fatalTrap struct {
	mu  sync.Mutex
	err error
}

func (f *fatalTrap) trip(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err == nil {
		f.err = err
	}
}

func (f *fatalTrap) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Run executes the pipeline over records and assembles the §6 Report. The
// only errors it returns are §7's fatal kinds (reference-data missing,
// invariant violation); every other failure mode is absorbed into the
// Report's failure list or coverage-gap records.
func (o *Orchestrator) Run(records []tle.Record) (Report, error) {
	ts := buildGrid(o.cfg)
	workers := resolveWorkerCount(o.cfg.WorkerCount)

	deps := &workerDeps{
		cfg:              o.cfg,
		eopProvider:      o.eopProvider,
		gmKm3PerS2:       o.wgs84.GMKm3PerS2,
		omegaRadPerSec:   o.wgs84.OmegaRadPerSec,
		ephemerisPresent: o.ephemerisPresent,
		ts:               ts,
	}

	jobs := make(chan tle.Record, len(records))
	for _, r := range records {
		jobs <- r
	}
	close(jobs)

	type result struct {
		outcome SatelliteOutcome
		failure *FailureRecord
		ok      bool
	}
	results := make(chan result, len(records))
	trap := &fatalTrap{}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				outcome, failure, err := runWithWatchdog(deps, rec, watchdogTimeout(o.cfg))
				if err != nil {
					trap.trip(err)
					continue
				}
				if failure != nil {
					results <- result{failure: failure}
					continue
				}
				results <- result{outcome: outcome, ok: true}
			}
		}()
	}
	wg.Wait()
	close(results)

	if err := trap.Err(); err != nil {
		return Report{}, err
	}

	var outcomes []SatelliteOutcome
	var failures []FailureRecord
	samplesAttempted, samplesFailed := 0, 0
	for r := range results {
		if r.ok {
			outcomes = append(outcomes, r.outcome)
			samplesAttempted += len(r.outcome.Samples) + r.outcome.SamplesFailed
			samplesFailed += r.outcome.SamplesFailed
			continue
		}
		failures = append(failures, *r.failure)
	}

	// §5 determinism: floating-point reduction order is fixed by
	// satellite-sorted aggregation, not by goroutine completion order.
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].NoradID < outcomes[j].NoradID })
	sort.Slice(failures, func(i, j int) bool { return failures[i].NoradID < failures[j].NoradID })

	plans := o.planAll(outcomes, ts)

	report := Report{
		GeneratedAtUTC:  time.Now().UTC(),
		Observer:        o.cfg.Observer,
		Configuration: ConfigSnapshot{
			SampleCount:          o.cfg.Sampling.SampleCount,
			StepS:                o.cfg.Sampling.StepS,
			ElevationMaskDeg:     o.cfg.ElevationMaskDeg,
			UsabilityRSRPdBm:     o.cfg.UsabilityRSRPdBm,
			PlanningEverySamples: o.cfg.PlanningEverySamples,
		},
		TotalSatellites: len(records),
		SucceededCount:  len(outcomes),
		FailedCount:     len(failures),
		Grade:           grade(len(outcomes), len(records)),
		Failures:        failures,
		Windows:         allWindows(outcomes),
		Plans:           plans,
		Validation: ValidationSnapshot{
			SamplesAttempted:     samplesAttempted,
			SamplesFailed:        samplesFailed,
			SamplingRateAchieved: samplingRate(samplesAttempted, samplesFailed),
		},
	}
	return report, nil
}

func samplingRate(attempted, failed int) float64 {
	if attempted == 0 {
		return 0
	}
	return 1.0 - float64(failed)/float64(attempted)
}

func watchdogTimeout(cfg Config) time.Duration {
	if cfg.WatchdogTimeout > 0 {
		return cfg.WatchdogTimeout
	}
	return 30 * time.Second
}

// runWithWatchdog bounds one satellite's C3->C6 chain to the §5 per-
// satellite CPU watchdog: if it has not returned within timeout, the
// satellite is marked failed and its worker moves on to the next job
// (the stray goroutine is abandoned, not killed — Go has no
// forced-preemption primitive for a single goroutine, so the watchdog's
// guarantee is "the worker stops waiting", not "the computation stops").
func runWithWatchdog(deps *workerDeps, rec tle.Record, timeout time.Duration) (SatelliteOutcome, *FailureRecord, error) {
	type out struct {
		outcome SatelliteOutcome
		failure *FailureRecord
		err     error
	}
	done := make(chan out, 1)
	go func() {
		outcome, failure, err := runSatellite(deps, rec)
		done <- out{outcome, failure, err}
	}()

	select {
	case o := <-done:
		return o.outcome, o.failure, o.err
	case <-time.After(timeout):
		return SatelliteOutcome{}, &FailureRecord{NoradID: rec.NoradID, Stage: "watchdog", Reason: "cpu_time_exceeded"}, nil
	}
}

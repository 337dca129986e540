// Package linkbudget evaluates the per-sample RF link budget (free-space,
// atmospheric, and rain loss; RSRP/RSRQ/SINR) and the 3GPP NTN measurement
// events (A4, A5, D2) derived from it, in the small-pure-function style
// package coord uses for its own standard-formula helpers (see
// coord.Refraction).
package linkbudget

import "math"

// EIRP is a per-constellation effective isotropic radiated power reference,
// in dBm.
type EIRP map[string]float64

// DefaultEIRPdBm is the reference table named in §4.4.
var DefaultEIRPdBm = EIRP{
	"starlink": 37.0,
	"oneweb":   35.0,
}

// Environment is a fixed loss-multiplier class for the observer's
// surroundings.
type Environment string

const (
	EnvClear       Environment = "clear"
	EnvUrban       Environment = "urban"
	EnvSuburban    Environment = "suburban"
	EnvRural       Environment = "rural"
	EnvMountainous Environment = "mountainous"
	EnvHeavyRain   Environment = "heavy_rain"
)

// environmentLossMultiplier scales the combined atmospheric+rain loss for
// the observer's surroundings; clear sky is the unscaled reference.
var environmentLossMultiplier = map[Environment]float64{
	EnvClear:       1.0,
	EnvRural:       1.05,
	EnvSuburban:    1.15,
	EnvUrban:       1.35,
	EnvMountainous: 1.5,
	EnvHeavyRain:   2.0,
}

// Params configures the link budget formulas; all fields have the §4.4/§6
// defaults when zero-valued via NewParams.
type Params struct {
	AntennaGainDB     float64
	ImplementationLossDB float64
	BodyLossDB        float64
	BandwidthMHz      float64
	NoiseFigureDB     float64
	RainRate001mmPerH float64 // R_001, 0.01%-availability rain rate
	Environment       Environment
}

// NewParams returns the §4.4 documented defaults.
func NewParams() Params {
	return Params{
		ImplementationLossDB: 2.0,
		BodyLossDB:           3.0,
		BandwidthMHz:         20.0,
		NoiseFigureDB:        7.0,
		RainRate001mmPerH:    22.0,
		Environment:          EnvClear,
	}
}

const noiseDensityDBmPerHz = -174.0

// FSPLdB computes Friis free-space path loss (ITU-R P.525), distance in
// km and frequency in GHz.
func FSPLdB(distanceKm, freqGHz float64) float64 {
	return 20*math.Log10(distanceKm) + 20*math.Log10(freqGHz) + 92.45
}

// p676Coefficients is the linearized (single-coefficient) oxygen/water-vapour
// specific attenuation this core uses in place of the full ITU-R P.676
// per-line spectrum (§9 Open Question: full P.676 parity is not required).
// a_h, b_h are drawn from the ITU-R P.838 rain-coefficient convention
// reused here as the ITU-R P.676 zenith-attenuation stand-in the spec
// names; values are representative Ku-band (12 GHz) zenith figures.
type p676Coefficients struct {
	zenithOxygenDB     float64
	zenithWaterVapourDB float64
}

func p676For(freqGHz float64) p676Coefficients {
	// Coefficients scale roughly with frequency squared below the 22 GHz
	// water-vapour line; a single representative pair is used per the
	// linearized-model decision.
	scale := (freqGHz / 12.0) * (freqGHz / 12.0)
	return p676Coefficients{
		zenithOxygenDB:      0.03 * scale,
		zenithWaterVapourDB: 0.05 * scale,
	}
}

// AtmosphericLossDB returns the ITU-R P.676-style gaseous-absorption loss
// for a slant path at the given elevation, linearized per §9's Open
// Question decision: zenith attenuation divided by sin(elevation), capped
// at the 1-degree grazing geometry to avoid a divide-by-zero blowup.
func AtmosphericLossDB(elevationDeg, freqGHz float64) float64 {
	c := p676For(freqGHz)
	zenith := c.zenithOxygenDB + c.zenithWaterVapourDB
	e := elevationDeg
	if e < 1.0 {
		e = 1.0
	}
	return zenith / math.Sin(e*math.Pi/180.0)
}

// RainLossDB returns the ITU-R P.618 rain attenuation for a slant path,
// using the 0.01%-availability rain rate R_001 (mm/h) and the
// ITU-R P.838 power-law specific attenuation γ_R = k·R^α. k and alpha
// below are representative Ku-band values; elevation scales the
// effective path length through the rain cell.
func RainLossDB(elevationDeg, freqGHz, rainRate001mmPerH float64) float64 {
	const k = 0.0188
	const alpha = 1.217
	specificAttenDBPerKm := k * math.Pow(rainRate001mmPerH, alpha)

	e := elevationDeg
	if e < 1.0 {
		e = 1.0
	}
	const effectiveRainHeightKm = 4.0
	slantPathKm := effectiveRainHeightKm / math.Sin(e*math.Pi/180.0)
	freqScale := freqGHz / 12.0
	return specificAttenDBPerKm * slantPathKm * freqScale
}

// Result is one Signal Sample's computed link-budget quantities, omitting
// the event_flags bitset (EventDetector.Update in events.go is a separate
// stateful step).
type Result struct {
	FSPLdB      float64
	AtmoLossDB  float64
	RainLossDB  float64
	RSRPdBm     float64
	RSRQdB      float64
	SINRdB      float64
	LinkMarginDB float64
	Reliable    bool
}

// usabilityFloorRSRPdBm is the default usability threshold named in §4.5;
// link margin is reported against it.
const usabilityFloorRSRPdBm = -110.0

// Evaluate computes the full §4.4 link budget for one topocentric sample.
// constellation selects the EIRP reference; interferenceDBm is the
// modelled elevation-dependent interference power the caller supplies
// (e.g. from a co-channel model out of this package's scope).
func Evaluate(rangeKm, elevationDeg, freqGHz float64, constellation string, eirp EIRP, p Params, interferenceDBm float64) Result {
	if rangeKm <= 0 || math.IsNaN(rangeKm) || math.IsInf(rangeKm, 0) {
		return Result{Reliable: false}
	}

	fspl := FSPLdB(rangeKm, freqGHz)
	atmo := AtmosphericLossDB(elevationDeg, freqGHz)
	rain := RainLossDB(elevationDeg, freqGHz, p.RainRate001mmPerH)
	mult := environmentLossMultiplier[p.Environment]
	if mult == 0 {
		mult = 1.0
	}
	totalAtmoLoss := (atmo + rain) * mult

	if math.IsNaN(fspl) || math.IsInf(fspl, 0) || math.IsNaN(totalAtmoLoss) || math.IsInf(totalAtmoLoss, 0) {
		return Result{Reliable: false}
	}

	eirpDBm := eirp[constellation]
	rsrp := eirpDBm + p.AntennaGainDB - fspl - totalAtmoLoss - p.ImplementationLossDB - p.BodyLossDB

	nRB := p.BandwidthMHz * 5.0
	rssi := rsrp + 10*math.Log10(nRB)
	rsrq := rsrp - rssi

	thermalNoiseDBm := noiseDensityDBmPerHz + 10*math.Log10(p.BandwidthMHz*1e6) + p.NoiseFigureDB
	noiseLinear := dbmToLinear(thermalNoiseDBm)
	interferenceLinear := dbmToLinear(interferenceDBm)
	signalLinear := dbmToLinear(rsrp)
	sinr := linearToDB(signalLinear / (noiseLinear + interferenceLinear))

	return Result{
		FSPLdB:       fspl,
		AtmoLossDB:   totalAtmoLoss,
		RainLossDB:   rain * mult,
		RSRPdBm:      rsrp,
		RSRQdB:       rsrq,
		SINRdB:       sinr,
		LinkMarginDB: rsrp - usabilityFloorRSRPdBm,
		Reliable:     true,
	}
}

func dbmToLinear(dbm float64) float64 { return math.Pow(10, dbm/10.0) }
func linearToDB(ratio float64) float64 { return 10 * math.Log10(ratio) }

// ElevationDependentInterferenceDBm is the §4.4 "modelled interference
// (elevation-dependent)" SINR input: terrestrial and co-channel clutter is
// worst near the horizon, where the antenna's sidelobes see the most
// ground and neighbouring-beam traffic, and falls off toward zenith.
func ElevationDependentInterferenceDBm(elevationDeg float64) float64 {
	e := elevationDeg
	if e < 0 {
		e = 0
	}
	if e > 90 {
		e = 90
	}
	return -140.0 + (90.0-e)*0.3
}

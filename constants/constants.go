// Package constants loads the fixed physical and standards parameters the
// core needs: IAU 2012 Resolution B2 astronomical constants, NIMA TR 8350.2
// WGS-84(G1150) ellipsoid parameters, and the presence of a JPL planetary
// ephemeris. All three are read-only, fail fast if the backing file is
// missing or malformed, and never fall back to a fabricated default.
package constants

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/ntn-leo/satpool/spk"
	"github.com/ntn-leo/satpool/units"
)

// WGS84 holds the NIMA TR 8350.2 WGS-84(G1150) defining ellipsoid
// parameters plus the gravity-field and atmospheric parameters the same
// official data file carries alongside them. MeanEquatorialGravityMPerS2,
// MeanPolarGravityMPerS2, and AtmosphericScaleHeightM are validated as
// present on load (the official file's external-interface contract
// requires them) but are not yet consumed by any orbital computation in
// this core — GM/omega alone drive SGP4 and the coordinate chain.
type WGS84 struct {
	SemiMajorAxisKm             float64 // a
	InverseFlattening           float64 // 1/f
	GMKm3PerS2                  float64 // GM, Earth's gravitational parameter
	OmegaRadPerSec              float64 // ω, nominal mean angular velocity
	MeanEquatorialGravityMPerS2 float64 // g_e
	MeanPolarGravityMPerS2      float64 // g_p
	AtmosphericScaleHeightM     float64
}

// Flattening returns f = 1/InverseFlattening.
func (w WGS84) Flattening() float64 { return 1.0 / w.InverseFlattening }

// Eccentricity2 returns the ellipsoid's first eccentricity squared,
// e² = f(2-f).
func (w WGS84) Eccentricity2() float64 {
	f := w.Flattening()
	return f * (2 - f)
}

// IAU holds the IAU 2012 Resolution B2 constants this core consumes.
type IAU struct {
	AUKm float64 // astronomical unit, exactly 149597870.7 km by definition
}

// AU returns the astronomical unit as a units.Distance.
func (i IAU) AU() units.Distance { return units.NewDistance(i.AUKm) }

// Provider is a memoising, file-backed loader for the three required
// reference inputs. Build one with NewProvider; the files are read once, on
// the first accessor call.
type Provider struct {
	once sync.Once
	err  error

	wgs84File string
	iauFile   string
	ephemPath string

	wgs84    WGS84
	iau      IAU
	ephemHdr *spk.Header
}

// NewProvider returns a Provider that will read wgs84Path (the official
// NIMA TR 8350.2 G1150 JSON document, e.g.
// data/wgs84_cache/nima_tr8350_2_official.json), iauPath (the IAU 2012 B2
// JSON document, e.g. data/astronomical_constants/iau_constants.json), and
// ephemPath (a DAF/SPK planetary ephemeris, e.g. de421.bsp) on first use.
func NewProvider(wgs84Path, iauPath, ephemPath string) *Provider {
	return &Provider{wgs84File: wgs84Path, iauFile: iauPath, ephemPath: ephemPath}
}

func (p *Provider) load() {
	p.once.Do(func() {
		wgs84, err := loadWGS84(p.wgs84File)
		if err != nil {
			p.err = fmt.Errorf("constants: %w", err)
			return
		}
		iau, err := loadIAU(p.iauFile)
		if err != nil {
			p.err = fmt.Errorf("constants: %w", err)
			return
		}
		hdr, err := spk.Open(p.ephemPath)
		if err != nil {
			p.err = fmt.Errorf("constants: ephemeris: %w", err)
			return
		}
		p.wgs84 = wgs84
		p.iau = iau
		p.ephemHdr = hdr
	})
}

// WGS84 returns the loaded WGS-84 ellipsoid parameters, or an error if any
// required reference file was missing or malformed.
func (p *Provider) WGS84() (WGS84, error) {
	p.load()
	if p.err != nil {
		return WGS84{}, p.err
	}
	return p.wgs84, nil
}

// IAU returns the loaded IAU 2012 B2 constants, or an error if any required
// reference file was missing or malformed.
func (p *Provider) IAU() (IAU, error) {
	p.load()
	if p.err != nil {
		return IAU{}, p.err
	}
	return p.iau, nil
}

// EphemerisPresent reports whether the configured planetary ephemeris file
// exists and parses as a structurally valid DAF/SPK file, and the segment
// count found. C4's accuracy estimate treats this as a binary floor-reduction
// input — no planetary position is ever evaluated from it, since this core
// only propagates Earth-orbiting satellites.
func (p *Provider) EphemerisPresent() (segmentCount int, err error) {
	p.load()
	if p.err != nil {
		return 0, p.err
	}
	return p.ephemHdr.SegmentCount, nil
}

// jsonScalar is the official data files' "value [+ unit/uncertainty
// metadata]" wrapper around every leaf constant; this core only reads the
// value.
type jsonScalar struct {
	Value float64 `json:"value"`
}

// wgs84Document mirrors data/wgs84_cache/nima_tr8350_2_official.json's
// nesting: a single top-level "wgs84_g1150_2004" object grouping defining,
// gravitational, gravity-field, and atmospheric parameter blocks.
type wgs84Document struct {
	WGS84G1150 struct {
		DefiningParameters struct {
			SemiMajorAxisM    jsonScalar `json:"semi_major_axis_m"`
			InverseFlattening jsonScalar `json:"inverse_flattening"`
		} `json:"defining_parameters"`
		GravitationalParameters struct {
			GeocentricGravitationalConstant jsonScalar `json:"geocentric_gravitational_constant"`
			AngularVelocity                 jsonScalar `json:"angular_velocity"`
		} `json:"gravitational_parameters"`
		GravityFieldParameters struct {
			MeanEquatorialGravity jsonScalar `json:"mean_equatorial_gravity"`
			MeanPolarGravity      jsonScalar `json:"mean_polar_gravity"`
		} `json:"gravity_field_parameters"`
		AtmosphericParameters struct {
			ScaleHeightM jsonScalar `json:"scale_height_m"`
		} `json:"atmospheric_parameters"`
	} `json:"wgs84_g1150_2004"`
}

// iauDocument mirrors data/astronomical_constants/iau_constants.json's
// single required entry.
type iauDocument struct {
	AstronomicalUnit struct {
		ValueKilometers float64 `json:"value_kilometers"`
	} `json:"astronomical_unit"`
}

func loadWGS84(path string) (WGS84, error) {
	var doc wgs84Document
	if err := readJSONFile(path, &doc); err != nil {
		return WGS84{}, fmt.Errorf("wgs84: %w", err)
	}
	g := doc.WGS84G1150

	required := []struct {
		key   string
		value float64
	}{
		{"wgs84_g1150_2004.defining_parameters.semi_major_axis_m.value", g.DefiningParameters.SemiMajorAxisM.Value},
		{"wgs84_g1150_2004.defining_parameters.inverse_flattening.value", g.DefiningParameters.InverseFlattening.Value},
		{"wgs84_g1150_2004.gravitational_parameters.geocentric_gravitational_constant.value", g.GravitationalParameters.GeocentricGravitationalConstant.Value},
		{"wgs84_g1150_2004.gravitational_parameters.angular_velocity.value", g.GravitationalParameters.AngularVelocity.Value},
		{"wgs84_g1150_2004.gravity_field_parameters.mean_equatorial_gravity.value", g.GravityFieldParameters.MeanEquatorialGravity.Value},
		{"wgs84_g1150_2004.gravity_field_parameters.mean_polar_gravity.value", g.GravityFieldParameters.MeanPolarGravity.Value},
		{"wgs84_g1150_2004.atmospheric_parameters.scale_height_m.value", g.AtmosphericParameters.ScaleHeightM.Value},
	}
	for _, r := range required {
		if r.value == 0 {
			return WGS84{}, fmt.Errorf("wgs84: missing required key %q", r.key)
		}
	}

	const (
		mPerKm   = 1000.0
		m3PerKm3 = 1e9
	)
	return WGS84{
		SemiMajorAxisKm:             g.DefiningParameters.SemiMajorAxisM.Value / mPerKm,
		InverseFlattening:           g.DefiningParameters.InverseFlattening.Value,
		GMKm3PerS2:                  g.GravitationalParameters.GeocentricGravitationalConstant.Value / m3PerKm3,
		OmegaRadPerSec:              g.GravitationalParameters.AngularVelocity.Value,
		MeanEquatorialGravityMPerS2: g.GravityFieldParameters.MeanEquatorialGravity.Value,
		MeanPolarGravityMPerS2:      g.GravityFieldParameters.MeanPolarGravity.Value,
		AtmosphericScaleHeightM:     g.AtmosphericParameters.ScaleHeightM.Value,
	}, nil
}

func loadIAU(path string) (IAU, error) {
	var doc iauDocument
	if err := readJSONFile(path, &doc); err != nil {
		return IAU{}, fmt.Errorf("iau: %w", err)
	}
	if doc.AstronomicalUnit.ValueKilometers == 0 {
		return IAU{}, fmt.Errorf("iau: missing required key %q", "astronomical_unit.value_kilometers")
	}
	return IAU{AUKm: doc.AstronomicalUnit.ValueKilometers}, nil
}

func readJSONFile(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

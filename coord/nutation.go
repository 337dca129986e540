package coord

// NutationPrecision historically selected between a truncated and a full
// IAU 2000A nutation series. Only the truncated 30-term luni-solar series
// (~1 arcsec precision) is implemented here — the full 1365-term series
// needs coefficient tables that aren't part of this module, and 1 arcsec
// is already well inside the topocentric accuracy budget this core targets
// (see coord/topocentric.go).
type NutationPrecision int

// NutationStandard is the only supported precision: the 30 largest
// luni-solar terms of the IAU 2000A series.
const NutationStandard NutationPrecision = iota

// Package tle parses and validates two-line element sets: the fixed-width
// NORAD format used to hand a satellite's orbital state to an SGP4
// propagator.
package tle

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ChecksumMode selects how the modulo-10 line checksum treats the '+'
// character. The official NORAD definition counts only '-' as 1 and every
// other non-digit (including '+') as 0; a number of widely deployed TLE
// generators instead count '+' as 1 too. Both are accepted on input; which
// one is used to repair a bad checksum is caller-selected.
type ChecksumMode int

const (
	// ChecksumOfficial counts '-' as 1, everything else non-digit as 0.
	ChecksumOfficial ChecksumMode = iota
	// ChecksumLegacy additionally counts '+' as 1.
	ChecksumLegacy
)

const lineLen = 69

// Record is an immutable, validated two-line element set plus the fields
// Stage 1 attaches (norad_id, name, constellation tag). Once constructed it
// is never mutated by the core.
type Record struct {
	NoradID              int
	Name                 string
	Constellation        string
	Line1                string
	Line2                string
	EpochUTC             time.Time
	MeanMotionRevPerDay  float64
}

// Checksum computes the modulo-10 checksum of a 69-character TLE line's
// first 68 characters, under the given mode. Digits contribute their value;
// '-' contributes 1 (both modes); '+' contributes 1 only under
// ChecksumLegacy; every other character (letters, '.', ' ') contributes 0.
func Checksum(line string, mode ChecksumMode) (int, error) {
	if len(line) < lineLen-1 {
		return 0, fmt.Errorf("tle: line too short for checksum: got %d chars, want at least %d", len(line), lineLen-1)
	}
	sum := 0
	for _, c := range line[:lineLen-1] {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		case c == '+' && mode == ChecksumLegacy:
			sum++
		}
	}
	return sum % 10, nil
}

// VerifyChecksum reports whether line's trailing checksum digit matches the
// modulo-10 sum of its first 68 characters, under the given mode.
func VerifyChecksum(line string, mode ChecksumMode) (bool, error) {
	if len(line) != lineLen {
		return false, fmt.Errorf("tle: line length %d, want %d", len(line), lineLen)
	}
	want, err := Checksum(line, mode)
	if err != nil {
		return false, err
	}
	got, err := strconv.Atoi(line[lineLen-1:])
	if err != nil {
		return false, fmt.Errorf("tle: trailing checksum digit %q is not numeric: %w", line[lineLen-1:], err)
	}
	return got == want, nil
}

// Repair returns line with its trailing checksum digit corrected to the
// modulo-10 sum of its first 68 characters under the given mode. It does
// not otherwise validate or alter the line.
func Repair(line string, mode ChecksumMode) (string, error) {
	if len(line) != lineLen {
		return "", fmt.Errorf("tle: line length %d, want %d", len(line), lineLen)
	}
	sum, err := Checksum(line, mode)
	if err != nil {
		return "", err
	}
	return line[:lineLen-1] + strconv.Itoa(sum), nil
}

// Parse builds a Record from a name, constellation tag, and the two raw
// TLE lines. Both lines must be exactly 69 ASCII characters and carry a
// valid checksum under mode; their embedded NORAD IDs must agree. On a
// checksum mismatch Parse does NOT repair the line itself — call Repair
// first if repair-before-validate is the desired policy (§4.1's invariant
// is checked post-repair, not pre-repair).
func Parse(name, constellation, line1, line2 string, mode ChecksumMode) (Record, error) {
	if len(line1) != lineLen {
		return Record{}, fmt.Errorf("tle: line1 length %d, want %d", len(line1), lineLen)
	}
	if len(line2) != lineLen {
		return Record{}, fmt.Errorf("tle: line2 length %d, want %d", len(line2), lineLen)
	}
	if ok, err := VerifyChecksum(line1, mode); err != nil {
		return Record{}, fmt.Errorf("tle: line1 checksum: %w", err)
	} else if !ok {
		return Record{}, fmt.Errorf("tle: line1 checksum mismatch")
	}
	if ok, err := VerifyChecksum(line2, mode); err != nil {
		return Record{}, fmt.Errorf("tle: line2 checksum: %w", err)
	} else if !ok {
		return Record{}, fmt.Errorf("tle: line2 checksum mismatch")
	}

	id1, err := noradID(line1[2:7])
	if err != nil {
		return Record{}, fmt.Errorf("tle: line1 NORAD id: %w", err)
	}
	id2, err := noradID(line2[2:7])
	if err != nil {
		return Record{}, fmt.Errorf("tle: line2 NORAD id: %w", err)
	}
	if id1 != id2 {
		return Record{}, fmt.Errorf("tle: NORAD id mismatch: line1=%d line2=%d", id1, id2)
	}

	epoch, err := parseEpoch(line1[18:32])
	if err != nil {
		return Record{}, fmt.Errorf("tle: epoch: %w", err)
	}

	meanMotion, err := strconv.ParseFloat(strings.TrimSpace(line2[52:63]), 64)
	if err != nil {
		return Record{}, fmt.Errorf("tle: mean motion: %w", err)
	}

	return Record{
		NoradID:             id1,
		Name:                name,
		Constellation:       constellation,
		Line1:               line1,
		Line2:               line2,
		EpochUTC:            epoch,
		MeanMotionRevPerDay: meanMotion,
	}, nil
}

func noradID(field string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(field))
}

// parseEpoch decodes a TLE epoch field YYDDD.DDDDDDDD (columns 19-32 of
// line 1) into a UTC time.Time at microsecond precision. Years 57-99 are
// 1957-1999; years 00-56 are 2000-2056 (the NORAD two-digit-year rollover
// convention, unchanged since the format predates four-digit years).
func parseEpoch(field string) (time.Time, error) {
	field = strings.TrimSpace(field)
	if len(field) < 6 {
		return time.Time{}, fmt.Errorf("epoch field %q too short", field)
	}
	yy, err := strconv.Atoi(field[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("epoch year: %w", err)
	}
	dayFrac, err := strconv.ParseFloat(field[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("epoch day-of-year: %w", err)
	}
	year := 1900 + yy
	if yy < 57 {
		year = 2000 + yy
	}
	startOfYear := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	offset := time.Duration((dayFrac - 1.0) * 24.0 * float64(time.Hour))
	return startOfYear.Add(offset), nil
}

// PeriodMinutes returns the orbital period implied by the TLE's own mean
// motion field, in minutes. This is the basis for the deep-space switch-over
// decision (period >= 225 min), computed from the TLE data the core already
// has rather than from a propagator library's internal state.
func (r Record) PeriodMinutes() float64 {
	if r.MeanMotionRevPerDay <= 0 {
		return 0
	}
	return 1440.0 / r.MeanMotionRevPerDay
}

// IsDeepSpace reports whether this record's orbital period meets or exceeds
// the 225-minute SGP4/SDP4 switch-over threshold.
func (r Record) IsDeepSpace() bool {
	return r.PeriodMinutes() >= 225.0
}

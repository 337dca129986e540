package linkbudget

import "time"

// EventFlags is the bitset attached to each evaluated sample.
type EventFlags uint8

const (
	EventA4        EventFlags = 1 << iota // neighbour RSRP exceeds threshold
	EventA5Entering                       // serving below thresh1 AND neighbour above thresh2
	EventA5Leaving                        // A5 condition reversed
	EventD2                               // serving range too far AND candidate range close enough
)

func (f EventFlags) Has(flag EventFlags) bool { return f&flag != 0 }

// EventThresholds holds the 3GPP TS 38.331/38.133 configurable thresholds.
type EventThresholds struct {
	A4ThreshDBm    float64
	A5Thresh1DBm   float64 // serving below this
	A5Thresh2DBm   float64 // neighbour above this
	D2FarKm        float64
	D2NearKm       float64
	HysteresisDB   float64
	TimeToTrigger  time.Duration
}

// DefaultThresholds reflects the §4.4 defaults (3 dB hysteresis, 160 ms TTT).
func DefaultThresholds() EventThresholds {
	return EventThresholds{
		A4ThreshDBm:   -100.0,
		A5Thresh1DBm:  -110.0,
		A5Thresh2DBm:  -100.0,
		D2FarKm:       1500.0,
		D2NearKm:      1000.0,
		HysteresisDB:  3.0,
		TimeToTrigger: 160 * time.Millisecond,
	}
}

// conditionState tracks a single sustained-condition timer: when the
// condition first became true, and whether the event has already fired for
// the current sustained region.
type conditionState struct {
	sinceTrue time.Time
	sinceFalse time.Time
	fired     bool
}

func (c *conditionState) update(t time.Time, condition bool, ttt time.Duration) (fires, clears bool) {
	if condition {
		c.sinceFalse = time.Time{}
		if c.sinceTrue.IsZero() {
			c.sinceTrue = t
		}
		if !c.fired && t.Sub(c.sinceTrue) >= ttt {
			c.fired = true
			return true, false
		}
		return false, false
	}

	c.sinceTrue = time.Time{}
	if c.sinceFalse.IsZero() {
		c.sinceFalse = t
	}
	if c.fired && t.Sub(c.sinceFalse) >= ttt {
		c.fired = false
		return false, true
	}
	return false, false
}

// EventDetector evaluates A4/A5/D2 across a satellite's ordered sample
// sequence, maintaining the sustained-condition timers independently per
// event. A single EventDetector is meant for one serving/neighbour (or
// serving/candidate) pair; the caller re-keys per neighbour.
type EventDetector struct {
	th EventThresholds
	a4 conditionState
	a5 conditionState
	d2 conditionState
}

// NewEventDetector builds a detector for one serving/neighbour pair.
func NewEventDetector(th EventThresholds) *EventDetector {
	return &EventDetector{th: th}
}

// Update evaluates the event conditions at sample time t, given the
// neighbour's RSRP (for A4/A5) and the serving/candidate ranges (for D2).
// Returns the flags that FIRE at this instant; A5Leaving fires when the
// sustained A5 condition clears, mirroring the "clears when the condition
// reverses for >= TTT" rule in §4.4.
func (d *EventDetector) Update(t time.Time, servingRSRPdBm, neighbourRSRPdBm, servingRangeKm, candidateRangeKm float64) EventFlags {
	var flags EventFlags

	a4Cond := neighbourRSRPdBm > d.th.A4ThreshDBm+d.th.HysteresisDB
	if fires, _ := d.a4.update(t, a4Cond, d.th.TimeToTrigger); fires {
		flags |= EventA4
	}

	a5Cond := servingRSRPdBm < d.th.A5Thresh1DBm-d.th.HysteresisDB && neighbourRSRPdBm > d.th.A5Thresh2DBm+d.th.HysteresisDB
	if fires, clears := d.a5.update(t, a5Cond, d.th.TimeToTrigger); fires {
		flags |= EventA5Entering
	} else if clears {
		flags |= EventA5Leaving
	}

	d2Cond := servingRangeKm > d.th.D2FarKm && candidateRangeKm < d.th.D2NearKm
	if fires, _ := d.d2.update(t, d2Cond, d.th.TimeToTrigger); fires {
		flags |= EventD2
	}

	return flags
}

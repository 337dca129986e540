package pool

import (
	"testing"
	"time"
)

func mkCandidates(n int, constellation string, rsrpBase float64) []Candidate {
	out := make([]Candidate, n)
	for i := 0; i < n; i++ {
		out[i] = Candidate{
			SatelliteID:   1000 + i,
			Constellation: constellation,
			RSRPdBm:       rsrpBase - float64(i),
			AzimuthDeg:    float64(i*37) + 0,
			ElevationDeg:  10 + float64(i%70),
		}
	}
	return out
}

func TestObjectiveO1_MapsRSRPToUnitInterval(t *testing.T) {
	s := mkCandidates(5, "starlink", -90)
	o1 := ObjectiveO1(s)
	if o1 < 0 || o1 > 1 {
		t.Errorf("O1 = %v, want in [0,1]", o1)
	}
}

func TestObjectiveO1_Empty(t *testing.T) {
	if ObjectiveO1(nil) != 0 {
		t.Error("O1 of empty pool should be 0")
	}
}

func TestObjectiveO2_HigherForSpreadAzimuths(t *testing.T) {
	spread := []Candidate{
		{AzimuthDeg: 0, ElevationDeg: 30},
		{AzimuthDeg: 90, ElevationDeg: 30},
		{AzimuthDeg: 180, ElevationDeg: 30},
		{AzimuthDeg: 270, ElevationDeg: 30},
	}
	clustered := []Candidate{
		{AzimuthDeg: 0, ElevationDeg: 30},
		{AzimuthDeg: 1, ElevationDeg: 30},
		{AzimuthDeg: 2, ElevationDeg: 30},
		{AzimuthDeg: 3, ElevationDeg: 30},
	}
	if ObjectiveO2(spread) <= ObjectiveO2(clustered) {
		t.Errorf("spread diversity (%v) should exceed clustered diversity (%v)", ObjectiveO2(spread), ObjectiveO2(clustered))
	}
}

func TestObjectiveO3_PenalizesImminentWindowEnds(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	soon := []Candidate{
		{SatelliteID: 1, WindowEndUTC: now.Add(5 * time.Second)},
		{SatelliteID: 2, WindowEndUTC: now.Add(5 * time.Second)},
	}
	later := []Candidate{
		{SatelliteID: 1, WindowEndUTC: now.Add(time.Hour)},
		{SatelliteID: 2, WindowEndUTC: now.Add(time.Hour)},
	}
	if ObjectiveO3(soon, now, 30*time.Second) >= ObjectiveO3(later, now, 30*time.Second) {
		t.Error("imminent window ends should reduce O3 relative to distant ones")
	}
}

func TestSatisfiesConstraints_CardinalityBounds(t *testing.T) {
	c := DefaultConstraints()
	tooFew := mkCandidates(3, "starlink", -90)
	if SatisfiesConstraints(tooFew, c) {
		t.Error("pool below NMin should fail constraints")
	}
}

func TestSatisfiesConstraints_StarlinkShareBounds(t *testing.T) {
	c := DefaultConstraints()
	// 1 starlink, 9 oneweb: starlink share 0.1, below 0.3 floor.
	s := append(mkCandidates(1, "starlink", -90), mkCandidates(9, "oneweb", -95)...)
	if SatisfiesConstraints(s, c) {
		t.Error("pool with starlink share below floor should fail constraints")
	}
}

func TestSatisfiesConstraints_RejectsBelowUsabilityThreshold(t *testing.T) {
	c := DefaultConstraints()
	s := mkCandidates(10, "starlink", -200)
	if SatisfiesConstraints(s, c) {
		t.Error("pool with sub-usability RSRP should fail constraints")
	}
}

func TestHighQuality_PicksTopRSRP(t *testing.T) {
	s := mkCandidates(15, "starlink", -90)
	pool := HighQuality(s, 5, DefaultRLWeights())
	if len(pool) != 5 {
		t.Fatalf("len = %d, want 5", len(pool))
	}
	if pool[0].RSRPdBm != -90 {
		t.Errorf("top candidate RSRP = %v, want -90", pool[0].RSRPdBm)
	}
}

func TestBalanced_RespectsConstellationProportion(t *testing.T) {
	s := append(mkCandidates(8, "starlink", -90), mkCandidates(2, "oneweb", -95)...)
	p := Balanced(s, 10, DefaultRLWeights())
	var starlink, oneweb int
	for _, c := range p {
		if c.Constellation == "starlink" {
			starlink++
		} else {
			oneweb++
		}
	}
	if starlink == 0 || oneweb == 0 {
		t.Errorf("balanced strategy dropped a constellation entirely: starlink=%d oneweb=%d", starlink, oneweb)
	}
}

func TestPlan_InsufficientCandidatesIsCoverageGap(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := DefaultConstraints()
	s := mkCandidates(3, "starlink", -90)
	result := Plan(now, s, c, DefaultRLWeights(), nil, time.Minute)
	if !result.CoverageGap {
		t.Fatal("expected coverage gap for too-few candidates")
	}
}

func TestPlan_ProducesFeasibleSelection(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := DefaultConstraints()
	s := append(mkCandidates(12, "starlink", -85), mkCandidates(4, "oneweb", -95)...)
	result := Plan(now, s, c, DefaultRLWeights(), nil, time.Minute)
	if result.CoverageGap {
		t.Fatalf("unexpected coverage gap: %s", result.GapReason)
	}
	if len(result.Selected) < c.NMin || len(result.Selected) > c.NMax {
		t.Errorf("selected pool size %d outside [%d,%d]", len(result.Selected), c.NMin, c.NMax)
	}
	if !SatisfiesConstraints(result.Selected, c) {
		t.Error("selected pool should satisfy hard constraints")
	}
}

func TestParetoFront_ExcludesDominatedPools(t *testing.T) {
	pools := []ScoredPool{
		{O1: 0.9, O2: 0.9, O3: 0.9},
		{O1: 0.5, O2: 0.5, O3: 0.5}, // dominated by the first
		{O1: 0.9, O2: 0.1, O3: 1.0}, // not dominated (higher O3, lower O2)
	}
	front := ParetoFront(pools)
	if len(front) != 2 {
		t.Fatalf("len(front) = %d, want 2", len(front))
	}
}

func TestPlan_TemporalCoherencePrefersOverlap(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := DefaultConstraints()
	s := append(mkCandidates(12, "starlink", -85), mkCandidates(4, "oneweb", -95)...)
	prev := HighQuality(s, c.NMax, DefaultRLWeights())

	result := Plan(now, s, c, DefaultRLWeights(), prev, time.Minute)
	if result.CoverageGap {
		t.Fatalf("unexpected coverage gap: %s", result.GapReason)
	}
	overlap := temporalOverlap(result.Selected, prev)
	if overlap < 0.5 {
		t.Errorf("expected high overlap with prev pool, got %v", overlap)
	}
}

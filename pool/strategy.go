package pool

import "sort"

// Strategy generates one candidate pool of size up to k from the full
// visible set. §4.6 names four concrete strategies; each is a Strategy
// value, not an interface implementation, since every one is a pure
// function of (candidates, k, weights) with no internal state to hide
// behind dynamic dispatch.
type Strategy func(candidates []Candidate, k int, w RLWeights) []Candidate

// HighQuality is strategy (a): top-K by RSRP.
func HighQuality(candidates []Candidate, k int, _ RLWeights) []Candidate {
	sorted := sortedCopy(candidates, func(a, b Candidate) bool { return a.RSRPdBm > b.RSRPdBm })
	return topK(sorted, k)
}

// GapFilling is strategy (b): greedy angular-spread maximisation starting
// from the highest-RSRP candidate, then repeatedly adding whichever
// remaining candidate increases ObjectiveO2 the most.
func GapFilling(candidates []Candidate, k int, _ RLWeights) []Candidate {
	if len(candidates) == 0 || k <= 0 {
		return nil
	}
	remaining := sortedCopy(candidates, func(a, b Candidate) bool { return a.RSRPdBm > b.RSRPdBm })
	pool := []Candidate{remaining[0]}
	remaining = remaining[1:]

	for len(pool) < k && len(remaining) > 0 {
		bestIdx := -1
		bestScore := -1.0
		for i, cand := range remaining {
			trial := append(append([]Candidate{}, pool...), cand)
			score := ObjectiveO2(trial)
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}
		pool = append(pool, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return pool
}

// Balanced is strategy (c): constellation-balanced, proportional to each
// constellation's population among the candidates, top-K by RSRP within
// each constellation's allotted share.
func Balanced(candidates []Candidate, k int, _ RLWeights) []Candidate {
	byConstellation := make(map[string][]Candidate)
	var order []string
	for _, c := range candidates {
		if _, ok := byConstellation[c.Constellation]; !ok {
			order = append(order, c.Constellation)
		}
		byConstellation[c.Constellation] = append(byConstellation[c.Constellation], c)
	}
	for _, group := range byConstellation {
		sort.Slice(group, func(i, j int) bool { return group[i].RSRPdBm > group[j].RSRPdBm })
	}

	var pool []Candidate
	for _, name := range order {
		share := float64(len(byConstellation[name])) / float64(len(candidates))
		quota := int(share*float64(k) + 0.5)
		pool = append(pool, topK(byConstellation[name], quota)...)
	}
	if len(pool) > k {
		sort.Slice(pool, func(i, j int) bool { return pool[i].RSRPdBm > pool[j].RSRPdBm })
		pool = pool[:k]
	}
	return pool
}

// RLDriven is strategy (d): top-K by a learnt composite score. The
// "learning" is out of scope (§9 Open Question); the composite score is
// w.O1 times the candidate's own O1 term (its RSRP mapped as in
// ObjectiveO1) plus a fixed 0.5 for each of the O2 and O3 terms, so with
// w.O1 > 0 the ranking follows RSRP.
func RLDriven(candidates []Candidate, k int, w RLWeights) []Candidate {
	type scored struct {
		c     Candidate
		score float64
	}
	scoredList := make([]scored, len(candidates))
	for i, c := range candidates {
		o1 := clamp01((c.RSRPdBm + 110.0) / 50.0)
		scoredList[i] = scored{c: c, score: w.O1*o1 + w.O2*0.5 + w.O3*0.5}
	}
	sort.Slice(scoredList, func(i, j int) bool { return scoredList[i].score > scoredList[j].score })

	out := make([]Candidate, 0, k)
	for i := 0; i < len(scoredList) && i < k; i++ {
		out = append(out, scoredList[i].c)
	}
	return out
}

// AllStrategies is the fixed ordered set §4.6 names.
var AllStrategies = []Strategy{HighQuality, GapFilling, Balanced, RLDriven}

func sortedCopy(c []Candidate, less func(a, b Candidate) bool) []Candidate {
	out := append([]Candidate{}, c...)
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func topK(c []Candidate, k int) []Candidate {
	if k > len(c) {
		k = len(c)
	}
	if k < 0 {
		k = 0
	}
	return append([]Candidate{}, c[:k]...)
}

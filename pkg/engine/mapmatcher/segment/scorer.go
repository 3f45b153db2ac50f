package segment

import (
	"math"

	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
)

// Match. matched segment of one trajectory segment.
type Match struct {
	Segment datastructure.Segment // projection of the input segment on the road
	RoadID  uint64
	Cost    float64
}

// scoreCandidate. cost of matching seg to road, ok is false when either endpoint projection is indeterminate.
func scoreCandidate(seg datastructure.Segment, road *datastructure.Road, cfg Config) (float64, bool) {
	cs, ok := road.ClosestPoint(seg.Start).Point()
	if !ok {
		return 0, false
	}
	ce, ok := road.ClosestPoint(seg.End).Point()
	if !ok {
		return 0, false
	}

	fDist := cs.Distance(seg.Start)
	lDist := ce.Distance(seg.End)

	w := 1.0
	if datastructure.PointEqual(cs, ce) {
		// both endpoints collapsed onto one point of the road
		w = cfg.CoincidentWeight
	}
	cost := (fDist + lDist) * w

	if cfg.DirectionWeight > 0 {
		cost += cfg.DirectionWeight * datastructure.LineSimilarity(seg, datastructure.NewSegment(cs, ce))
	}
	return cost, true
}

/*
SelectBest. picks the candidate road with the minimum cost for seg.

candidates whose projection is indeterminate for either endpoint are skipped. on equal cost the earlier
candidate wins. the matched points are recomputed against the selected road.
returns false if no candidate could be scored.
*/
func SelectBest(seg datastructure.Segment, cands []Candidate, cfg Config) (Match, bool) {
	var best *datastructure.Road
	bestCost := math.Inf(1)

	for _, c := range cands {
		cost, ok := scoreCandidate(seg, c.Road, cfg)
		if !ok {
			continue
		}
		if cost < bestCost {
			best = c.Road
			bestCost = cost
		}
	}

	if best == nil {
		return Match{}, false
	}

	cs, okStart := best.ClosestPoint(seg.Start).Point()
	ce, okEnd := best.ClosestPoint(seg.End).Point()
	if !okStart || !okEnd {
		return Match{}, false
	}

	return Match{
		Segment: datastructure.NewSegment(cs, ce),
		RoadID:  best.ID,
		Cost:    bestCost,
	}, true
}

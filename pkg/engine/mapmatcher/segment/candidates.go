package segment

import (
	"iter"
	"sort"

	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
)

// RoadIndex. read-only view of the spatial index used while matching.
type RoadIndex interface {
	NearestNeighbors(q datastructure.Point) iter.Seq2[*datastructure.Road, float64]
	IsEmpty() bool
}

type Candidate struct {
	Road   *datastructure.Road
	DistSq float64 // squared distance from the nearer segment endpoint
}

/*
Candidates. candidate roads for one trajectory segment.

takes the first maxCandidates nearest roads to seg.Start and, independently, the first maxCandidates
nearest roads to seg.End. a road found from both endpoints appears once with the smaller distance.
the result is ordered by (distance, road id).
*/
func Candidates(seg datastructure.Segment, index RoadIndex, maxCandidates int) ([]Candidate, error) {
	if maxCandidates <= 0 || index.IsEmpty() {
		return nil, ErrNoCandidates
	}

	byID := make(map[uint64]int, 2*maxCandidates)
	cands := make([]Candidate, 0, 2*maxCandidates)

	collect := func(q datastructure.Point) {
		taken := 0
		for road, distSq := range index.NearestNeighbors(q) {
			if pos, ok := byID[road.ID]; ok {
				if distSq < cands[pos].DistSq {
					cands[pos].DistSq = distSq
				}
			} else {
				byID[road.ID] = len(cands)
				cands = append(cands, Candidate{Road: road, DistSq: distSq})
			}
			taken++
			if taken >= maxCandidates {
				break
			}
		}
	}

	collect(seg.Start)
	collect(seg.End)

	if len(cands) == 0 {
		return nil, ErrNoCandidates
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].DistSq != cands[j].DistSq {
			return cands[i].DistSq < cands[j].DistSq
		}
		return cands[i].Road.ID < cands[j].Road.ID
	})
	return cands, nil
}

package geo

import (
	"math"

	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
)

/*
FrechetDistance. discrete frechet distance between two polylines (Eiter & Mannila 1994).

the smallest leash length needed to walk both vertex sequences from start to end, each walker only
moving forward. 0 for identical polylines, +Inf if either polyline is empty.
uses O(min(n, m)) memory.
*/
func FrechetDistance(a, b datastructure.Polyline) float64 {
	if len(a) == 0 || len(b) == 0 {
		return math.Inf(1)
	}
	if len(b) > len(a) {
		a, b = b, a
	}

	prev := make([]float64, len(b))
	curr := make([]float64, len(b))

	for i := range a {
		for j := range b {
			d := a[i].Distance(b[j])
			switch {
			case i == 0 && j == 0:
				curr[j] = d
			case i == 0:
				curr[j] = math.Max(curr[j-1], d)
			case j == 0:
				curr[j] = math.Max(prev[0], d)
			default:
				curr[j] = math.Max(math.Min(math.Min(prev[j], prev[j-1]), curr[j-1]), d)
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)-1]
}

package segment

import (
	"errors"
	"fmt"

	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
)

var (
	ErrNoCandidates = errors.New("no candidate roads for the query: the road index is empty or max candidates is not positive")
	ErrTooFewPoints = errors.New("trajectory needs at least 2 points to form a segment")
)

// MatchFailure. the segment at Index had no candidate road with a unique projection for both endpoints.
type MatchFailure struct {
	Index   int
	Segment datastructure.Segment
}

func (e *MatchFailure) Error() string {
	return fmt.Sprintf("failed to match segment %d ((%g, %g) -> (%g, %g)): every candidate road has an indeterminate projection",
		e.Index, e.Segment.Start.X, e.Segment.Start.Y, e.Segment.End.X, e.Segment.End.Y)
}

func newMatchFailure(index int, seg datastructure.Segment) *MatchFailure {
	return &MatchFailure{Index: index, Segment: seg}
}

package segment

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	MAX_CANDIDATES    = 20
	COINCIDENT_WEIGHT = 2.0
)

type Config struct {
	// nearest roads taken from each segment endpoint
	MaxCandidates int `mapstructure:"max_candidates"`
	// cost multiplier when both endpoints project onto the same road point
	CoincidentWeight float64 `mapstructure:"coincident_weight"`
	// weight of the LineSimilarity term, 0 disables it
	DirectionWeight float64 `mapstructure:"direction_weight"`
}

func DefaultConfig() Config {
	return Config{
		MaxCandidates:    MAX_CANDIDATES,
		CoincidentWeight: COINCIDENT_WEIGHT,
		DirectionWeight:  0,
	}
}

// SegmentMatcher. matches every segment of a trajectory independently to its best road.
// safe for concurrent use as long as the index is not mutated.
type SegmentMatcher struct {
	index RoadIndex
	cfg   Config
	log   *zap.Logger
}

func NewSegmentMatcher(index RoadIndex, cfg Config, log *zap.Logger) *SegmentMatcher {
	return &SegmentMatcher{
		index: index,
		cfg:   cfg,
		log:   log,
	}
}

func (sm *SegmentMatcher) Config() Config {
	return sm.cfg
}

func (sm *SegmentMatcher) checkPrecondition() error {
	if sm.index.IsEmpty() {
		return fmt.Errorf("segment match: %w", ErrNoCandidates)
	}
	if sm.cfg.MaxCandidates <= 0 {
		return fmt.Errorf("segment match: max candidates %d: %w", sm.cfg.MaxCandidates, ErrNoCandidates)
	}
	return nil
}

func (sm *SegmentMatcher) matchOne(i int, seg datastructure.Segment) (Match, error) {
	cands, err := Candidates(seg, sm.index, sm.cfg.MaxCandidates)
	if err != nil {
		return Match{}, fmt.Errorf("segment %d: %w", i, err)
	}
	m, ok := SelectBest(seg, cands, sm.cfg)
	if !ok {
		return Match{}, newMatchFailure(i, seg)
	}
	return m, nil
}

/*
SegmentMatch. matches segments in order.

the output has one Match per input segment, in input order. the first segment that cannot be matched
aborts the whole call with a *MatchFailure carrying its index and the original segment; no partial
output is returned. ctx is checked before every segment.
*/
func (sm *SegmentMatcher) SegmentMatch(ctx context.Context, segments []datastructure.Segment) ([]Match, error) {
	if err := sm.checkPrecondition(); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(segments))
	for i, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := sm.matchOne(i, seg)
		if err != nil {
			sm.log.Debug("segment match failed", zap.Int("index", i), zap.Error(err))
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, nil
}

/*
SegmentMatchParallel. same result as SegmentMatch, computed on up to numWorkers goroutines (one per cpu when numWorkers <= 0).

segments are split into contiguous chunks. a chunk stops early once a lower segment index has failed,
the failure with the lowest segment index is returned like the sequential version does.
*/
func (sm *SegmentMatcher) SegmentMatchParallel(ctx context.Context, segments []datastructure.Segment, numWorkers int) ([]Match, error) {
	if err := sm.checkPrecondition(); err != nil {
		return nil, err
	}
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers <= 1 || len(segments) < 2 {
		return sm.SegmentMatch(ctx, segments)
	}

	chunkSize := (len(segments) + numWorkers - 1) / numWorkers
	numChunks := (len(segments) + chunkSize - 1) / chunkSize
	matches := make([]Match, len(segments))
	chunkErrs := make([]error, numChunks)

	// lowest failing segment index seen so far, chunks stop once they pass it
	var firstFail atomic.Int64
	firstFail.Store(int64(len(segments)))

	g, gctx := errgroup.WithContext(ctx)
	for c := 0; c < numChunks; c++ {
		start := c * chunkSize
		end := min(start+chunkSize, len(segments))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				if int64(i) > firstFail.Load() {
					return nil
				}
				m, err := sm.matchOne(i, segments[i])
				if err != nil {
					chunkErrs[c] = err
					for {
						cur := firstFail.Load()
						if int64(i) >= cur || firstFail.CompareAndSwap(cur, int64(i)) {
							break
						}
					}
					return nil
				}
				matches[i] = m
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, err := range chunkErrs {
		if err != nil {
			sm.log.Debug("segment match failed", zap.Error(err))
			return nil, err
		}
	}
	return matches, nil
}

// MatchTrajectory. matches the segments of traj and rebuilds the matched point sequence.
// a trajectory with fewer than 2 points has no segment and fails with ErrTooFewPoints.
func (sm *SegmentMatcher) MatchTrajectory(ctx context.Context, traj datastructure.Trajectory) (datastructure.MatchedTrajectory, error) {
	if traj.Len() < 2 {
		return datastructure.MatchedTrajectory{}, fmt.Errorf("trajectory %d has %d points: %w", traj.ID, traj.Len(), ErrTooFewPoints)
	}
	matches, err := sm.SegmentMatch(ctx, traj.Segments())
	if err != nil {
		return datastructure.MatchedTrajectory{}, err
	}
	mt := NewMatchedTrajectory(traj.ID, matches)
	mt.Input = traj.Points
	return mt, nil
}

func NewMatchedTrajectory(id uint64, matches []Match) datastructure.MatchedTrajectory {
	mt := datastructure.MatchedTrajectory{
		ID:       id,
		Segments: make([]datastructure.Segment, len(matches)),
		RoadIDs:  make([]uint64, len(matches)),
	}
	for i, m := range matches {
		mt.Segments[i] = m.Segment
		mt.RoadIDs[i] = m.RoadID
		mt.Cost += m.Cost
	}
	return mt
}

// AsMatchFailure. unwraps a *MatchFailure from err.
func AsMatchFailure(err error) (*MatchFailure, bool) {
	var mf *MatchFailure
	if errors.As(err, &mf) {
		return mf, true
	}
	return nil, false
}

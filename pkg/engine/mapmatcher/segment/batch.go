package segment

import (
	"context"
	"runtime"
	"time"

	"github.com/lintang-b-s/roadsnap/pkg/concurrent"
	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
	"go.uber.org/zap"
)

// BatchResult. outcome of matching one trajectory, exactly one of Matched or Err is meaningful.
type BatchResult struct {
	TrajectoryID uint64
	Matched      datastructure.MatchedTrajectory
	Err          error
}

func (r BatchResult) Failed() bool {
	return r.Err != nil
}

// BatchMatcher. matches many trajectories concurrently against one index snapshot.
type BatchMatcher struct {
	matcher    *SegmentMatcher
	numWorkers int
	log        *zap.Logger
}

func NewBatchMatcher(matcher *SegmentMatcher, numWorkers int, log *zap.Logger) *BatchMatcher {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &BatchMatcher{
		matcher:    matcher,
		numWorkers: numWorkers,
		log:        log,
	}
}

// MatchAll. results[i] belongs to trajectories[i]. a failing trajectory does not stop the others.
func (bm *BatchMatcher) MatchAll(ctx context.Context, trajectories []datastructure.Trajectory) []BatchResult {
	bm.log.Info("matching trajectories...", zap.Int("trajectories", len(trajectories)), zap.Int("workers", bm.numWorkers))
	start := time.Now()

	results := concurrent.Map(ctx, bm.numWorkers, trajectories,
		func(ctx context.Context, traj datastructure.Trajectory) BatchResult {
			matched, err := bm.matcher.MatchTrajectory(ctx, traj)
			return BatchResult{TrajectoryID: traj.ID, Matched: matched, Err: err}
		})

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	bm.log.Info("matching trajectories done.", zap.Int("matched", len(results)-failed), zap.Int("failed", failed),
		zap.Duration("took", time.Since(start)))
	return results
}

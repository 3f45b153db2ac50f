package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v3"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
	"github.com/lintang-b-s/roadsnap/pkg/engine/mapmatcher/segment"
	"github.com/lintang-b-s/roadsnap/pkg/spatialindex"
	"github.com/lintang-b-s/roadsnap/pkg/storage"
	"github.com/lintang-b-s/roadsnap/pkg/util"
	"go.uber.org/zap"
)

const (
	MATCH_CACHE_SIZE  = 1 << 12
	FETCH_MAX_RETRIES = 3
)

// matchCacheKey. a cached match is only valid for the index snapshot it was computed on.
type matchCacheKey struct {
	index        *spatialindex.Rtree
	trajectoryID uint64
}

type MapMatcherService struct {
	log          *zap.Logger
	engine       MapMatcherEngine
	roads        RoadRepository
	trajectories TrajectoryRepository
	cache        *lru.Cache[matchCacheKey, datastructure.MatchedTrajectory]
	// segments handled by the parallel matcher, 0 keeps every request sequential
	parallelThreshold int
	numWorkers        int
	retryInterval     time.Duration
}

func NewMapMatcherService(log *zap.Logger, engine MapMatcherEngine, roads RoadRepository,
	trajectories TrajectoryRepository, parallelThreshold, numWorkers int) (*MapMatcherService, error) {
	cache, err := lru.New[matchCacheKey, datastructure.MatchedTrajectory](MATCH_CACHE_SIZE)
	if err != nil {
		return nil, err
	}
	return &MapMatcherService{
		log:               log,
		engine:            engine,
		roads:             roads,
		trajectories:      trajectories,
		cache:             cache,
		parallelThreshold: parallelThreshold,
		numWorkers:        numWorkers,
		retryInterval:     100 * time.Millisecond,
	}, nil
}

func (ms *MapMatcherService) match(ctx context.Context, index *spatialindex.Rtree,
	traj datastructure.Trajectory) (datastructure.MatchedTrajectory, error) {
	matcher := segment.NewSegmentMatcher(index, ms.engine.GetConfig(), ms.log)

	if ms.parallelThreshold > 0 && traj.Len()-1 >= ms.parallelThreshold {
		matches, err := matcher.SegmentMatchParallel(ctx, traj.Segments(), ms.numWorkers)
		if err != nil {
			return datastructure.MatchedTrajectory{}, ms.wrapMatchError(traj.ID, err)
		}
		matched := segment.NewMatchedTrajectory(traj.ID, matches)
		matched.Input = traj.Points
		return matched, nil
	}

	matched, err := matcher.MatchTrajectory(ctx, traj)
	if err != nil {
		return datastructure.MatchedTrajectory{}, ms.wrapMatchError(traj.ID, err)
	}
	return matched, nil
}

func (ms *MapMatcherService) wrapMatchError(id uint64, err error) error {
	if mf, ok := segment.AsMatchFailure(err); ok {
		return util.WrapErrorf(mf, util.ErrUnprocessable, "segment %d can not be matched to any road", mf.Index)
	}
	if errors.Is(err, segment.ErrTooFewPoints) {
		return util.WrapErrorf(err, util.ErrUnprocessable, "trajectory %d has fewer than 2 points", id)
	}
	if cerr := wrapContextError(err); cerr != nil {
		return cerr
	}
	return util.WrapErrorf(err, util.ErrInternalServerError, "%s", util.MessageInternalServerError)
}

// wrapContextError. nil when err is not a cancellation or deadline error.
func wrapContextError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return util.WrapErrorf(err, util.ErrRequestCanceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return util.WrapErrorf(err, util.ErrRequestTimeout, "request timed out")
	}
	return nil
}

// MapMatch. snaps every segment of traj onto its best road.
func (ms *MapMatcherService) MapMatch(ctx context.Context, traj datastructure.Trajectory) (datastructure.MatchedTrajectory, error) {
	if traj.Len() < 2 {
		return datastructure.MatchedTrajectory{}, util.WrapErrorf(segment.ErrTooFewPoints, util.ErrBadParamInput,
			"trajectory needs at least 2 points, got %d", traj.Len())
	}
	return ms.match(ctx, ms.engine.Snapshot(), traj)
}

// MatchStoredTrajectory. fetches trajectory id from the repository and matches it.
// the bool is true when the result came from the cache.
func (ms *MapMatcherService) MatchStoredTrajectory(ctx context.Context, id uint64) (datastructure.MatchedTrajectory, bool, error) {
	index := ms.engine.Snapshot()
	key := matchCacheKey{index: index, trajectoryID: id}
	if matched, ok := ms.cache.Get(key); ok {
		return matched, true, nil
	}

	traj, err := ms.fetchTrajectory(ctx, id)
	if err != nil {
		return datastructure.MatchedTrajectory{}, false, err
	}
	matched, err := ms.match(ctx, index, traj)
	if err != nil {
		return datastructure.MatchedTrajectory{}, false, err
	}
	ms.cache.Add(key, matched)
	return matched, false, nil
}

// fetchTrajectory. retries transient repository errors with exponential backoff, not found is final.
func (ms *MapMatcherService) fetchTrajectory(ctx context.Context, id uint64) (datastructure.Trajectory, error) {
	var traj datastructure.Trajectory
	operation := func() error {
		var err error
		traj, err = ms.trajectories.Trajectory(ctx, id)
		if errors.Is(err, storage.ErrTrajectoryNotFound) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = ms.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, FETCH_MAX_RETRIES), ctx)

	err := backoff.RetryNotify(operation, policy, func(err error, next time.Duration) {
		ms.log.Warn("fetch trajectory failed, retrying", zap.Uint64("trajectoryID", id), zap.Error(err),
			zap.Duration("next", next))
	})
	if err != nil {
		if errors.Is(err, storage.ErrTrajectoryNotFound) {
			return traj, util.WrapErrorf(err, util.ErrNotFound, "trajectory %d not found", id)
		}
		if ctx.Err() != nil {
			return traj, wrapContextError(ctx.Err())
		}
		return traj, util.WrapErrorf(err, util.ErrInternalServerError, "%s", util.MessageInternalServerError)
	}
	return traj, nil
}

func (ms *MapMatcherService) RoadsInBoundingBox(ctx context.Context, bb datastructure.BoundingBox, limit int) ([]*datastructure.Road, error) {
	roads, err := ms.roads.RoadsInBoundingBox(ctx, bb, storage.QueryOptions{Limit: limit})
	if err != nil {
		if cerr := wrapContextError(err); cerr != nil {
			return nil, cerr
		}
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "fetch roads: %s", util.MessageInternalServerError)
	}
	return roads, nil
}

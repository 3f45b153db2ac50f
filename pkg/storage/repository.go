package storage

import (
	"context"
	"errors"

	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
)

var ErrTrajectoryNotFound = errors.New("trajectory not found")

// QueryOptions. Limit <= 0 means no limit.
type QueryOptions struct {
	Limit      int
	ExcludeIDs []uint64
}

// TrajectoryQuery. ids in [FromID, ToID], ToID == 0 means no upper bound.
type TrajectoryQuery struct {
	FromID     uint64
	ToID       uint64
	Limit      int
	ExcludeIDs []uint64
}

type RoadRepository interface {
	RoadsInBoundingBox(ctx context.Context, bb datastructure.BoundingBox, opts QueryOptions) ([]*datastructure.Road, error)
}

type TrajectoryRepository interface {
	Trajectories(ctx context.Context, q TrajectoryQuery) ([]datastructure.Trajectory, error)
	Trajectory(ctx context.Context, id uint64) (datastructure.Trajectory, error)
}

func excludeSet(ids []uint64) map[uint64]struct{} {
	set := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

package usecases

import (
	"context"

	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
	"github.com/lintang-b-s/roadsnap/pkg/engine/mapmatcher/segment"
	"github.com/lintang-b-s/roadsnap/pkg/spatialindex"
	"github.com/lintang-b-s/roadsnap/pkg/storage"
)

type MapMatcherEngine interface {
	Snapshot() *spatialindex.Rtree
	GetConfig() segment.Config
}

type RoadRepository interface {
	RoadsInBoundingBox(ctx context.Context, bb datastructure.BoundingBox, opts storage.QueryOptions) ([]*datastructure.Road, error)
}

type TrajectoryRepository interface {
	Trajectory(ctx context.Context, id uint64) (datastructure.Trajectory, error)
}

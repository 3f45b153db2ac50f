package controllers

import (
	"context"

	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
)

type MapMatcherService interface {
	MapMatch(ctx context.Context, traj datastructure.Trajectory) (datastructure.MatchedTrajectory, error)
	MatchStoredTrajectory(ctx context.Context, id uint64) (datastructure.MatchedTrajectory, bool, error)
	RoadsInBoundingBox(ctx context.Context, bb datastructure.BoundingBox, limit int) ([]*datastructure.Road, error)
}

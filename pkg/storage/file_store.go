package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
	"github.com/lintang-b-s/roadsnap/pkg/spatialindex"
	"github.com/lintang-b-s/roadsnap/pkg/table"
	"go.uber.org/zap"
)

// IndexSnapshotter. source of the current road index, the engine is one.
type IndexSnapshotter interface {
	Snapshot() *spatialindex.Rtree
}

type staticIndex struct {
	rt *spatialindex.Rtree
}

func (s staticIndex) Snapshot() *spatialindex.Rtree {
	return s.rt
}

/*
FileStore. read-only repository over the road and trajectory tables.

roads are served from the snapshot of an r-tree, trajectories from a slice sorted by id.
*/
type FileStore struct {
	roads        IndexSnapshotter
	trajectories []datastructure.Trajectory
	log          *zap.Logger
}

// NewFileStore. builds its own r-tree over roads.
func NewFileStore(roads []*datastructure.Road, trajectories []datastructure.Trajectory, log *zap.Logger) (*FileStore, error) {
	rt := spatialindex.NewRtree()
	if err := rt.BuildRoads(roads, log); err != nil {
		return nil, err
	}
	return NewFileStoreOnIndex(staticIndex{rt: rt}, trajectories, log)
}

// NewFileStoreOnIndex. shares index instead of building one, road queries see every snapshot it publishes.
func NewFileStoreOnIndex(index IndexSnapshotter, trajectories []datastructure.Trajectory, log *zap.Logger) (*FileStore, error) {
	sorted := make([]datastructure.Trajectory, len(trajectories))
	copy(sorted, trajectories)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].ID == sorted[i-1].ID {
			return nil, fmt.Errorf("duplicate trajectory id %d", sorted[i].ID)
		}
	}

	return &FileStore{
		roads:        index,
		trajectories: sorted,
		log:          log,
	}, nil
}

// OpenTrajectoryStore. loads only the trajectory table and serves roads from index.
func OpenTrajectoryStore(index IndexSnapshotter, trajectoriesPath string, log *zap.Logger) (*FileStore, error) {
	var (
		trajectories []datastructure.Trajectory
		err          error
	)
	if trajectoriesPath != "" {
		trajectories, err = table.ReadTrajectoriesFile(trajectoriesPath)
		if err != nil {
			return nil, err
		}
	}
	log.Info("trajectory store opened.", zap.Int("roads", index.Snapshot().Len()), zap.Int("trajectories", len(trajectories)))
	return NewFileStoreOnIndex(index, trajectories, log)
}

// RoadsInBoundingBox. roads whose geometry touches bb, ordered by id.
func (fs *FileStore) RoadsInBoundingBox(ctx context.Context, bb datastructure.BoundingBox, opts QueryOptions) ([]*datastructure.Road, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	found := fs.roads.Snapshot().SearchBoundingBox(bb)
	sort.Slice(found, func(i, j int) bool {
		return found[i].ID < found[j].ID
	})

	exclude := excludeSet(opts.ExcludeIDs)
	roads := make([]*datastructure.Road, 0, len(found))
	for _, r := range found {
		if _, ok := exclude[r.ID]; ok {
			continue
		}
		if opts.Limit > 0 && len(roads) >= opts.Limit {
			break
		}
		roads = append(roads, r.Clone())
	}
	return roads, nil
}

func (fs *FileStore) Trajectories(ctx context.Context, q TrajectoryQuery) ([]datastructure.Trajectory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := sort.Search(len(fs.trajectories), func(i int) bool {
		return fs.trajectories[i].ID >= q.FromID
	})

	exclude := excludeSet(q.ExcludeIDs)
	trajectories := make([]datastructure.Trajectory, 0)
	for _, t := range fs.trajectories[start:] {
		if q.ToID != 0 && t.ID > q.ToID {
			break
		}
		if _, ok := exclude[t.ID]; ok {
			continue
		}
		if q.Limit > 0 && len(trajectories) >= q.Limit {
			break
		}
		trajectories = append(trajectories, datastructure.NewTrajectory(t.ID, t.Points.Clone()))
	}
	return trajectories, nil
}

func (fs *FileStore) Trajectory(ctx context.Context, id uint64) (datastructure.Trajectory, error) {
	found, err := fs.Trajectories(ctx, TrajectoryQuery{FromID: id, ToID: id, Limit: 1})
	if err != nil {
		return datastructure.Trajectory{}, err
	}
	if len(found) == 0 || found[0].ID != id {
		return datastructure.Trajectory{}, fmt.Errorf("%w: %d", ErrTrajectoryNotFound, id)
	}
	return found[0], nil
}

func (fs *FileStore) Roads() []*datastructure.Road {
	return fs.roads.Snapshot().Roads()
}

package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
	"github.com/lintang-b-s/roadsnap/pkg/spatialindex"
	"github.com/lintang-b-s/roadsnap/pkg/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func pt(x, y float64) datastructure.Point {
	return datastructure.NewPoint(x, y)
}

func roadIDs(roads []*datastructure.Road) []uint64 {
	ids := make([]uint64, len(roads))
	for i, r := range roads {
		ids[i] = r.ID
	}
	return ids
}

func trajectoryIDs(trajs []datastructure.Trajectory) []uint64 {
	ids := make([]uint64, len(trajs))
	for i, t := range trajs {
		ids[i] = t.ID
	}
	return ids
}

func newStore(t *testing.T) *FileStore {
	t.Helper()
	roads := []*datastructure.Road{
		datastructure.NewRoad(3, datastructure.NewPolyline(pt(0, 0), pt(10, 0))),
		datastructure.NewRoad(1, datastructure.NewPolyline(pt(0, 1), pt(10, 1))),
		datastructure.NewRoad(2, datastructure.NewPolyline(pt(0, 2), pt(10, 2))),
		// bounding box overlaps the query box but the geometry does not
		datastructure.NewRoad(4, datastructure.NewPolyline(pt(0, 5), pt(7, 5), pt(7, -1))),
		datastructure.NewRoad(5, datastructure.NewPolyline(pt(50, 50), pt(60, 60))),
	}
	trajs := []datastructure.Trajectory{
		datastructure.NewTrajectory(30, datastructure.NewPolyline(pt(0, 0), pt(1, 1))),
		datastructure.NewTrajectory(10, datastructure.NewPolyline(pt(0, 0), pt(1, 1))),
		datastructure.NewTrajectory(20, datastructure.NewPolyline(pt(0, 0), pt(1, 1))),
		datastructure.NewTrajectory(40, datastructure.NewPolyline(pt(0, 0), pt(1, 1))),
	}
	fs, err := NewFileStore(roads, trajs, zap.NewNop())
	require.NoError(t, err)
	return fs
}

func TestRoadsInBoundingBox(t *testing.T) {
	fs := newStore(t)
	bb := datastructure.NewBoundingBox(4, -1, 6, 3)

	testCases := []struct {
		name string
		opts QueryOptions
		want []uint64
	}{
		{name: "all", opts: QueryOptions{}, want: []uint64{1, 2, 3}},
		{name: "limit", opts: QueryOptions{Limit: 2}, want: []uint64{1, 2}},
		{name: "exclude", opts: QueryOptions{ExcludeIDs: []uint64{1}}, want: []uint64{2, 3}},
		{name: "exclude and limit", opts: QueryOptions{Limit: 1, ExcludeIDs: []uint64{1, 2}}, want: []uint64{3}},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			roads, err := fs.RoadsInBoundingBox(context.Background(), bb, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, roadIDs(roads))
		})
	}

	roads, err := fs.RoadsInBoundingBox(context.Background(), datastructure.NewBoundingBox(100, 100, 101, 101), QueryOptions{})
	require.NoError(t, err)
	assert.Empty(t, roads)
}

func TestTrajectories(t *testing.T) {
	fs := newStore(t)

	testCases := []struct {
		name  string
		query TrajectoryQuery
		want  []uint64
	}{
		{name: "all", query: TrajectoryQuery{}, want: []uint64{10, 20, 30, 40}},
		{name: "range", query: TrajectoryQuery{FromID: 15, ToID: 30}, want: []uint64{20, 30}},
		{name: "open upper bound", query: TrajectoryQuery{FromID: 25}, want: []uint64{30, 40}},
		{name: "limit and exclude", query: TrajectoryQuery{Limit: 2, ExcludeIDs: []uint64{10}}, want: []uint64{20, 30}},
		{name: "empty range", query: TrajectoryQuery{FromID: 41}, want: []uint64{}},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			trajs, err := fs.Trajectories(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, trajectoryIDs(trajs))
		})
	}

	traj, err := fs.Trajectory(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), traj.ID)

	_, err = fs.Trajectory(context.Background(), 21)
	assert.ErrorIs(t, err, ErrTrajectoryNotFound)
}

func TestCancelledQuery(t *testing.T) {
	fs := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fs.RoadsInBoundingBox(ctx, datastructure.NewBoundingBox(0, 0, 1, 1), QueryOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = fs.Trajectories(ctx, TrajectoryQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewFileStoreDuplicateTrajectory(t *testing.T) {
	trajs := []datastructure.Trajectory{
		datastructure.NewTrajectory(1, datastructure.NewPolyline(pt(0, 0), pt(1, 1))),
		datastructure.NewTrajectory(1, datastructure.NewPolyline(pt(0, 0), pt(1, 1))),
	}
	_, err := NewFileStore(nil, trajs, zap.NewNop())
	assert.Error(t, err)
}

type swappableIndex struct {
	rt *spatialindex.Rtree
}

func (s *swappableIndex) Snapshot() *spatialindex.Rtree {
	return s.rt
}

func buildIndex(t *testing.T, roads ...*datastructure.Road) *spatialindex.Rtree {
	t.Helper()
	rt := spatialindex.NewRtree()
	require.NoError(t, rt.BuildRoads(roads, zap.NewNop()))
	return rt
}

func TestOpenTrajectoryStore(t *testing.T) {
	dir := t.TempDir()
	trajsPath := filepath.Join(dir, "trajectories.arrow.bz2")
	require.NoError(t, table.WriteTrajectoriesFile(trajsPath, []datastructure.Trajectory{
		datastructure.NewTrajectory(7, datastructure.NewPolyline(pt(0, 0), pt(1, 1))),
	}))

	index := &swappableIndex{rt: buildIndex(t, datastructure.NewRoad(1, datastructure.NewPolyline(pt(0, 0), pt(1, 0))))}
	fs, err := OpenTrajectoryStore(index, trajsPath, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, fs.Roads(), 1)
	traj, err := fs.Trajectory(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, traj.Points, 2)

	// road queries follow the snapshot published by the index owner
	index.rt = buildIndex(t,
		datastructure.NewRoad(1, datastructure.NewPolyline(pt(0, 0), pt(1, 0))),
		datastructure.NewRoad(2, datastructure.NewPolyline(pt(0, 0.5), pt(1, 0.5))),
	)
	roads, err := fs.RoadsInBoundingBox(context.Background(), datastructure.NewBoundingBox(-1, -1, 2, 2), QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, roadIDs(roads))

	fs, err = OpenTrajectoryStore(index, "", zap.NewNop())
	require.NoError(t, err)
	_, err = fs.Trajectory(context.Background(), 7)
	assert.ErrorIs(t, err, ErrTrajectoryNotFound)

	_, err = OpenTrajectoryStore(index, filepath.Join(dir, "missing.arrow.bz2"), zap.NewNop())
	assert.Error(t, err)
}

func TestParseRoadsWKT(t *testing.T) {
	roads, err := ParseRoadsWKT("MULTILINESTRING((0.5 2.0, 2.0 3.0, 3.0 4.0, 4.0 5.0),(50.0 100.0, 100.0 200.0))")
	require.NoError(t, err)
	require.Len(t, roads, 2)
	assert.Equal(t, uint64(0), roads[0].ID)
	assert.Equal(t, uint64(1), roads[1].ID)
	assert.Equal(t, datastructure.NewPolyline(pt(50, 100), pt(100, 200)), roads[1].Geometry)

	roads, err = ReadRoadsWKT(strings.NewReader("LINESTRING(1 0, 2 0)\n"))
	require.NoError(t, err)
	require.Len(t, roads, 1)

	_, err = ParseRoadsWKT("POINT(1 2)")
	assert.ErrorIs(t, err, ErrUnsupportedWKT)

	_, err = ParseRoadsWKT("MULTILINESTRING((1 2,")
	assert.Error(t, err)
}

func TestTrajectoryWKT(t *testing.T) {
	traj, err := ReadTrajectoryWKT(5, strings.NewReader("LINESTRING(1.0 2.0, 2.0 3.0, 3.0 4.0)"))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), traj.ID)
	assert.Len(t, traj.Segments(), 2)
	assert.Equal(t, "LINESTRING(1 2,2 3,3 4)", FormatTrajectoryWKT(traj.Points))

	_, err = ParseTrajectoryWKT(1, "MULTILINESTRING((1 2, 3 4))")
	assert.Error(t, err)
}

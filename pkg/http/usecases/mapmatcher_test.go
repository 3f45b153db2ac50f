package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
	"github.com/lintang-b-s/roadsnap/pkg/engine"
	"github.com/lintang-b-s/roadsnap/pkg/engine/mapmatcher/segment"
	"github.com/lintang-b-s/roadsnap/pkg/storage"
	"github.com/lintang-b-s/roadsnap/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func pt(x, y float64) datastructure.Point {
	return datastructure.NewPoint(x, y)
}

type flakyRepository struct {
	failures int
	calls    int
	traj     map[uint64]datastructure.Trajectory
}

func (f *flakyRepository) Trajectory(ctx context.Context, id uint64) (datastructure.Trajectory, error) {
	f.calls++
	if f.calls <= f.failures {
		return datastructure.Trajectory{}, errors.New("connection reset")
	}
	t, ok := f.traj[id]
	if !ok {
		return datastructure.Trajectory{}, storage.ErrTrajectoryNotFound
	}
	return t, nil
}

func newService(t *testing.T, repo TrajectoryRepository) (*MapMatcherService, *engine.Engine) {
	t.Helper()
	roads := []*datastructure.Road{
		datastructure.NewRoad(1, datastructure.NewPolyline(pt(0, 0), pt(10, 0))),
		datastructure.NewRoad(2, datastructure.NewPolyline(pt(0, 10), pt(10, 10))),
	}
	e, err := engine.NewEngine(roads, segment.DefaultConfig(), zap.NewNop())
	require.NoError(t, err)
	store, err := storage.NewFileStore(roads, nil, zap.NewNop())
	require.NoError(t, err)

	ms, err := NewMapMatcherService(zap.NewNop(), e, store, repo, 0, 2)
	require.NoError(t, err)
	ms.retryInterval = time.Millisecond
	return ms, e
}

func codeOf(t *testing.T, err error) error {
	t.Helper()
	var ierr *util.Error
	require.True(t, errors.As(err, &ierr), "expected *util.Error, got %v", err)
	return ierr.Code()
}

func TestMapMatch(t *testing.T) {
	ms, _ := newService(t, &flakyRepository{})

	traj := datastructure.NewTrajectory(1, datastructure.NewPolyline(pt(1, 1), pt(2, 1), pt(3, 9.5)))
	matched, err := ms.MapMatch(context.Background(), traj)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, matched.RoadIDs)
	assert.Len(t, matched.Points(), 3)

	_, err = ms.MapMatch(context.Background(), datastructure.NewTrajectory(2, datastructure.NewPolyline(pt(1, 1))))
	assert.Equal(t, util.ErrBadParamInput, codeOf(t, err))
	assert.ErrorIs(t, err, segment.ErrTooFewPoints)
}

func TestMapMatchParallelThreshold(t *testing.T) {
	ms, _ := newService(t, &flakyRepository{})
	ms.parallelThreshold = 2

	pts := make(datastructure.Polyline, 0)
	for i := 0; i < 50; i++ {
		pts = append(pts, pt(float64(i%10), 1))
	}
	matched, err := ms.MapMatch(context.Background(), datastructure.NewTrajectory(1, pts))
	require.NoError(t, err)
	assert.Len(t, matched.Segments, 49)
	for _, id := range matched.RoadIDs {
		assert.Equal(t, uint64(1), id)
	}
}

func TestMatchStoredTrajectory(t *testing.T) {
	repo := &flakyRepository{
		failures: 2,
		traj: map[uint64]datastructure.Trajectory{
			7: datastructure.NewTrajectory(7, datastructure.NewPolyline(pt(1, 1), pt(5, 1))),
			8: datastructure.NewTrajectory(8, datastructure.NewPolyline(pt(1, 1))),
		},
	}
	ms, e := newService(t, repo)

	matched, cached, err := ms.MatchStoredTrajectory(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 3, repo.calls)
	assert.Equal(t, []uint64{1}, matched.RoadIDs)

	_, cached, err = ms.MatchStoredTrajectory(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 3, repo.calls)

	// a new index snapshot invalidates the cached result
	require.NoError(t, e.InsertRoads([]*datastructure.Road{
		datastructure.NewRoad(3, datastructure.NewPolyline(pt(0, 1), pt(10, 1))),
	}))
	matched, cached, err = ms.MatchStoredTrajectory(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, []uint64{3}, matched.RoadIDs)

	_, _, err = ms.MatchStoredTrajectory(context.Background(), 99)
	assert.Equal(t, util.ErrNotFound, codeOf(t, err))

	_, _, err = ms.MatchStoredTrajectory(context.Background(), 8)
	assert.Equal(t, util.ErrUnprocessable, codeOf(t, err))
	assert.ErrorIs(t, err, segment.ErrTooFewPoints)
}

func TestMatchStoredTrajectoryRetriesExhausted(t *testing.T) {
	repo := &flakyRepository{failures: 100}
	ms, _ := newService(t, repo)

	_, _, err := ms.MatchStoredTrajectory(context.Background(), 7)
	assert.Equal(t, util.ErrInternalServerError, codeOf(t, err))
	assert.Equal(t, FETCH_MAX_RETRIES+1, repo.calls)
}

func TestMatchFailureIsUnprocessable(t *testing.T) {
	roads := []*datastructure.Road{
		// V shape, points on the bisector x = 2 have two closest points
		datastructure.NewRoad(1, datastructure.NewPolyline(pt(0, 2), pt(2, 0), pt(4, 2))),
	}
	e, err := engine.NewEngine(roads, segment.DefaultConfig(), zap.NewNop())
	require.NoError(t, err)
	ms, err := NewMapMatcherService(zap.NewNop(), e, nil, &flakyRepository{}, 0, 1)
	require.NoError(t, err)

	_, err = ms.MapMatch(context.Background(), datastructure.NewTrajectory(1, datastructure.NewPolyline(pt(2, 3), pt(2, 2))))
	assert.Equal(t, util.ErrUnprocessable, codeOf(t, err))
	mf, ok := segment.AsMatchFailure(err)
	require.True(t, ok)
	assert.Equal(t, 0, mf.Index)
}

func TestRoadsInBoundingBox(t *testing.T) {
	ms, _ := newService(t, &flakyRepository{})
	roads, err := ms.RoadsInBoundingBox(context.Background(), datastructure.NewBoundingBox(-1, -1, 11, 1), 0)
	require.NoError(t, err)
	require.Len(t, roads, 1)
	assert.Equal(t, uint64(1), roads[0].ID)
}

func TestContextErrors(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()

	testCases := []struct {
		name     string
		ctx      context.Context
		wantCode error
		wantErr  error
	}{
		{name: "canceled", ctx: canceled, wantCode: util.ErrRequestCanceled, wantErr: context.Canceled},
		{name: "deadline exceeded", ctx: expired, wantCode: util.ErrRequestTimeout, wantErr: context.DeadlineExceeded},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			repo := &flakyRepository{failures: 100}
			ms, _ := newService(t, repo)

			traj := datastructure.NewTrajectory(1, datastructure.NewPolyline(pt(1, 1), pt(2, 1)))
			_, err := ms.MapMatch(tt.ctx, traj)
			assert.Equal(t, tt.wantCode, codeOf(t, err))
			assert.ErrorIs(t, err, tt.wantErr)

			// a transient failure is not retried once the request is gone
			_, _, err = ms.MatchStoredTrajectory(tt.ctx, 7)
			assert.Equal(t, tt.wantCode, codeOf(t, err))
			assert.Equal(t, 1, repo.calls)

			_, err = ms.RoadsInBoundingBox(tt.ctx, datastructure.NewBoundingBox(-1, -1, 11, 1), 0)
			assert.Equal(t, tt.wantCode, codeOf(t, err))
		})
	}
}

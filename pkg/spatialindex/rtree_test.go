package spatialindex

import (
	"errors"
	"math"
	"testing"

	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

func pt(x, y float64) datastructure.Point {
	return datastructure.NewPoint(x, y)
}

func TestEmptyIndex(t *testing.T) {
	rt := NewRtree()
	assert.True(t, rt.IsEmpty())

	count := 0
	for range rt.NearestNeighbors(pt(1, 1)) {
		count++
	}
	assert.Equal(t, 0, count)
	assert.Empty(t, rt.KNearestNeighbors(pt(1, 1), 5))
	assert.Empty(t, rt.SearchBoundingBox(datastructure.NewBoundingBox(-10, -10, 10, 10)))
	assert.Empty(t, rt.SearchWithinRadius(pt(0, 0), 100))
	assert.Nil(t, rt.Road(1))
	assert.Empty(t, rt.Roads())
}

func TestNearestNeighborsOrder(t *testing.T) {
	rt, err := Build(
		[]uint64{1, 2, 3},
		[]datastructure.Polyline{
			datastructure.NewPolyline(pt(0, 0), pt(1, 1)),
			datastructure.NewPolyline(pt(3, 4), pt(5, 6)),
			datastructure.NewPolyline(pt(10, 10), pt(20, 20)),
		},
		zap.NewNop(),
	)
	require.NoError(t, err)

	ids := make([]uint64, 0, 3)
	for road, distSq := range rt.NearestNeighbors(pt(2, 2)) {
		ids = append(ids, road.ID)
		assert.InDelta(t, road.Geometry.DistanceSquaredToPoint(pt(2, 2)), distSq, 1e-12)
	}
	assert.Equal(t, []uint64{1, 2, 3}, ids)

	// each call starts a fresh traversal
	knn := rt.KNearestNeighbors(pt(2, 2), 2)
	require.Len(t, knn, 2)
	assert.Equal(t, uint64(1), knn[0].Road.ID)
	assert.InDelta(t, 2.0, knn[0].DistSq, 1e-12)
	assert.Equal(t, uint64(2), knn[1].Road.ID)
	assert.InDelta(t, 5.0, knn[1].DistSq, 1e-12)

	assert.Len(t, rt.KNearestNeighbors(pt(2, 2), 10), 3)
	assert.Empty(t, rt.KNearestNeighbors(pt(2, 2), 0))
}

func TestNearestNeighborsRandomized(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	roads := make([]*datastructure.Road, 0, 500)
	for i := 0; i < 500; i++ {
		x, y := rnd.Float64()*1000, rnd.Float64()*1000
		roads = append(roads, datastructure.NewRoad(uint64(i+1), datastructure.NewPolyline(
			pt(x, y), pt(x+rnd.Float64()*10, y+rnd.Float64()*10), pt(x+rnd.Float64()*20, y-rnd.Float64()*10),
		)))
	}
	rt := NewRtree()
	require.NoError(t, rt.BuildRoads(roads, zap.NewNop()))
	assert.Equal(t, 500, rt.Len())

	for q := 0; q < 20; q++ {
		query := pt(rnd.Float64()*1000, rnd.Float64()*1000)

		bruteBest := math.Inf(1)
		for _, r := range roads {
			bruteBest = math.Min(bruteBest, r.Geometry.DistanceSquaredToPoint(query))
		}

		prev := -1.0
		n := 0
		for _, distSq := range rt.NearestNeighbors(query) {
			if n == 0 {
				assert.InDelta(t, bruteBest, distSq, 1e-9)
			}
			assert.GreaterOrEqual(t, distSq, prev)
			prev = distSq
			n++
		}
		assert.Equal(t, len(roads), n)
	}
}

func TestBuildErrors(t *testing.T) {
	testCases := []struct {
		name    string
		ids     []uint64
		geoms   []datastructure.Polyline
		wantErr error
	}{
		{
			name:    "length mismatch",
			ids:     []uint64{1, 2},
			geoms:   []datastructure.Polyline{datastructure.NewPolyline(pt(0, 0), pt(1, 1))},
			wantErr: ErrLengthMismatch,
		},
		{
			name:    "single point road",
			ids:     []uint64{1},
			geoms:   []datastructure.Polyline{datastructure.NewPolyline(pt(0, 0))},
			wantErr: ErrMalformedGeometry,
		},
		{
			name: "duplicate id",
			ids:  []uint64{7, 7},
			geoms: []datastructure.Polyline{
				datastructure.NewPolyline(pt(0, 0), pt(1, 1)),
				datastructure.NewPolyline(pt(2, 2), pt(3, 3)),
			},
			wantErr: ErrDuplicateRoadID,
		},
		{
			name:    "non finite coordinate",
			ids:     []uint64{1},
			geoms:   []datastructure.Polyline{datastructure.NewPolyline(pt(0, 0), pt(math.NaN(), 1))},
			wantErr: ErrNonFiniteGeometry,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.ids, tt.geoms, zap.NewNop())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), err.Error())
		})
	}
}

func TestInsertAndCopy(t *testing.T) {
	rt := NewRtree()
	require.NoError(t, rt.Insert(datastructure.NewRoad(1, datastructure.NewPolyline(pt(0, 0), pt(1, 0)))))
	assert.ErrorIs(t, rt.Insert(datastructure.NewRoad(1, datastructure.NewPolyline(pt(5, 5), pt(6, 5)))), ErrDuplicateRoadID)

	cp := rt.Copy()
	require.NoError(t, cp.Insert(datastructure.NewRoad(2, datastructure.NewPolyline(pt(5, 5), pt(6, 5)))))

	assert.Equal(t, 1, rt.Len())
	assert.Nil(t, rt.Road(2))
	assert.Equal(t, 2, cp.Len())
	assert.NotNil(t, cp.Road(2))

	assert.ErrorIs(t, rt.Remove(1), ErrRemoveUnsupported)
}

func TestIndexOwnsGeometry(t *testing.T) {
	geom := datastructure.NewPolyline(pt(0, 0), pt(1, 0))
	rt := NewRtree()
	require.NoError(t, rt.Insert(datastructure.NewRoad(1, geom)))
	geom[0] = pt(100, 100)
	assert.Equal(t, pt(0, 0), rt.Road(1).Geometry[0])
}

func TestSearchBoundingBox(t *testing.T) {
	rt, err := Build(
		[]uint64{1, 2, 3},
		[]datastructure.Polyline{
			datastructure.NewPolyline(pt(0, 0), pt(10, 0)),
			// bounding box overlaps the query but the diagonal never enters it
			datastructure.NewPolyline(pt(4, 10), pt(10, 4)),
			datastructure.NewPolyline(pt(50, 50), pt(60, 60)),
		},
		zap.NewNop(),
	)
	require.NoError(t, err)

	got := rt.SearchBoundingBox(datastructure.NewBoundingBox(2, -1, 5, 5))
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].ID)

	within := rt.SearchWithinRadius(pt(5, 1), 2)
	require.Len(t, within, 1)
	assert.Equal(t, uint64(1), within[0].Road.ID)

	ids := make([]uint64, 0, rt.Len())
	for _, r := range rt.Roads() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []uint64{1, 2, 3}, ids)
}

package datastructure

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentClosestPoint(t *testing.T) {
	seg := NewSegment(NewPoint(0, 0), NewPoint(2, 0))

	testCases := []struct {
		name      string
		query     Point
		wantKind  ClosestKind
		wantPoint Point
	}{
		{
			name:      "projection inside segment",
			query:     NewPoint(1, 1),
			wantKind:  SinglePoint,
			wantPoint: NewPoint(1, 0),
		},
		{
			name:      "projection clamped to start",
			query:     NewPoint(-1, 1),
			wantKind:  SinglePoint,
			wantPoint: NewPoint(0, 0),
		},
		{
			name:      "projection clamped to end",
			query:     NewPoint(5, -3),
			wantKind:  SinglePoint,
			wantPoint: NewPoint(2, 0),
		},
		{
			name:      "query on segment",
			query:     NewPoint(0.5, 0),
			wantKind:  Intersection,
			wantPoint: NewPoint(0.5, 0),
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			got := seg.ClosestPoint(tt.query)
			assert.Equal(t, tt.wantKind, got.Kind())
			p, ok := got.Point()
			require.True(t, ok)
			assert.InDelta(t, tt.wantPoint.X, p.X, 1e-12)
			assert.InDelta(t, tt.wantPoint.Y, p.Y, 1e-12)
		})
	}

	zero := NewSegment(NewPoint(1, 1), NewPoint(1, 1))
	assert.True(t, zero.ClosestPoint(NewPoint(0, 0)).IsIndeterminate())
}

func TestPolylineClosestPointIdentity(t *testing.T) {
	road := NewPolyline(NewPoint(1, 2), NewPoint(3, 4), NewPoint(5, 6))

	for _, p := range road {
		got := road.ClosestPoint(p)
		assert.Equal(t, Intersection, got.Kind())
		matched, ok := got.Point()
		require.True(t, ok)
		assert.Equal(t, 0.0, matched.Distance(p))
	}

	// midpoint of the second segment
	got := road.ClosestPoint(NewPoint(4, 5))
	assert.Equal(t, Intersection, got.Kind())
}

func TestPolylineClosestPointIndeterminate(t *testing.T) {
	testCases := []struct {
		name  string
		road  Polyline
		query Point
	}{
		{
			name:  "empty polyline",
			road:  Polyline{},
			query: NewPoint(0, 0),
		},
		{
			name:  "single point polyline",
			road:  NewPolyline(NewPoint(1, 1)),
			query: NewPoint(0, 0),
		},
		{
			name:  "all points coincide",
			road:  NewPolyline(NewPoint(1, 1), NewPoint(1, 1), NewPoint(1, 1)),
			query: NewPoint(0, 0),
		},
		{
			name:  "query on the symmetry axis of a v-shaped road",
			road:  NewPolyline(NewPoint(0, 2), NewPoint(2, 0), NewPoint(4, 2)),
			query: NewPoint(2, 2),
		},
		{
			name:  "query equidistant from two parallel strokes of a hairpin",
			road:  NewPolyline(NewPoint(0, 0), NewPoint(4, 0), NewPoint(4, 2), NewPoint(0, 2)),
			query: NewPoint(2, 1),
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.road.ClosestPoint(tt.query)
			assert.True(t, got.IsIndeterminate(), "got %v", got.Kind())
			_, ok := got.Point()
			assert.False(t, ok)
		})
	}
}

func TestPolylineClosestPointBisectorOfStraightRoad(t *testing.T) {
	// the perpendicular bisector of a straight road projects onto its midpoint, which is unique.
	road := NewPolyline(NewPoint(0, 0), NewPoint(2, 0))
	got := road.ClosestPoint(NewPoint(1, 1))
	assert.Equal(t, SinglePoint, got.Kind())
	p, _ := got.Point()
	assert.True(t, PointEqual(p, NewPoint(1, 0)))
}

func TestPolylineClosestPointSharedVertex(t *testing.T) {
	// both segments clamp to the shared corner, that is still one point.
	road := NewPolyline(NewPoint(0, 0), NewPoint(2, 0), NewPoint(2, 2))
	got := road.ClosestPoint(NewPoint(3, -1))
	assert.Equal(t, SinglePoint, got.Kind())
	p, _ := got.Point()
	assert.True(t, PointEqual(p, NewPoint(2, 0)))
}

func TestLineSimilarity(t *testing.T) {
	testCases := []struct {
		name string
		a    Segment
		b    Segment
		want float64
	}{
		{
			name: "perpendicular",
			a:    NewSegment(NewPoint(0, 0), NewPoint(0, 1)),
			b:    NewSegment(NewPoint(0, 1), NewPoint(1, 1)),
			want: math.Sqrt(2),
		},
		{
			name: "same segment",
			a:    NewSegment(NewPoint(3, 4), NewPoint(7, 9)),
			b:    NewSegment(NewPoint(3, 4), NewPoint(7, 9)),
			want: 0,
		},
		{
			name: "parallel different length",
			a:    NewSegment(NewPoint(0, 0), NewPoint(1, 1)),
			b:    NewSegment(NewPoint(10, 10), NewPoint(15, 15)),
			want: 0,
		},
		{
			name: "opposite",
			a:    NewSegment(NewPoint(0, 0), NewPoint(2, 0)),
			b:    NewSegment(NewPoint(2, 0), NewPoint(0, 0)),
			want: 2,
		},
		{
			name: "zero length",
			a:    NewSegment(NewPoint(1, 1), NewPoint(1, 1)),
			b:    NewSegment(NewPoint(0, 0), NewPoint(1, 0)),
			want: 0,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			got := LineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, 1e-12)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 2.0)
		})
	}
}

func TestLineSimilarityBounds(t *testing.T) {
	angles := []float64{0, 0.3, 1, math.Pi / 2, 2, 3, math.Pi, 4, 5.5}
	for _, a := range angles {
		for _, b := range angles {
			sa := NewSegment(NewPoint(1, 1), NewPoint(1+math.Cos(a)*3, 1+math.Sin(a)*3))
			sb := NewSegment(NewPoint(-2, 5), NewPoint(-2+math.Cos(b)*0.5, 5+math.Sin(b)*0.5))
			got := LineSimilarity(sa, sb)
			assert.False(t, math.IsNaN(got))
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 2.0)
		}
	}
}

func TestRoadCollectionClosestPoint(t *testing.T) {
	rc := RoadCollection{
		NewRoad(1, NewPolyline(NewPoint(0, 0), NewPoint(1, 0))),
		NewRoad(2, NewPolyline(NewPoint(0, 2), NewPoint(1, 2))),
	}

	got := rc.ClosestPoint(NewPoint(0.5, 0.4))
	p, ok := got.Point()
	require.True(t, ok)
	assert.True(t, PointEqual(p, NewPoint(0.5, 0)))

	// exactly between both roads
	assert.True(t, rc.ClosestPoint(NewPoint(0.5, 1)).IsIndeterminate())
}

func TestPolylineFromSegments(t *testing.T) {
	pl := NewPolyline(NewPoint(0, 0), NewPoint(1, 0), NewPoint(1, 1), NewPoint(2, 1))
	segs := pl.Segments()
	require.Len(t, segs, 3)
	assert.Equal(t, pl, PolylineFromSegments(segs))
	assert.Empty(t, PolylineFromSegments(nil))
	assert.Empty(t, NewPolyline(NewPoint(0, 0)).Segments())
}

func TestBoundingBox(t *testing.T) {
	bb := NewPolyline(NewPoint(3, -1), NewPoint(-2, 4), NewPoint(0, 0)).Bound()
	assert.Equal(t, NewPoint(-2, -1), bb.Min)
	assert.Equal(t, NewPoint(3, 4), bb.Max)
	assert.True(t, bb.Contains(NewPoint(0, 0)))
	assert.False(t, bb.Contains(NewPoint(4, 0)))
	assert.True(t, bb.Intersects(NewBoundingBox(2, 3, 10, 10)))
	assert.False(t, bb.Intersects(NewBoundingBox(3.5, 3, 10, 10)))
}

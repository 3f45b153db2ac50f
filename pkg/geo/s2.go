package geo

import (
	"github.com/golang/geo/s2"
	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
)

func toS2Polyline(pl datastructure.Polyline) *s2.Polyline {
	lls := make([]s2.LatLng, len(pl))
	for i, p := range pl {
		lls[i] = s2.LatLngFromDegrees(p.Y, p.X)
	}
	return s2.PolylineFromLatLngs(lls)
}

// PolylineLengthMeters. geodesic length in meter of a polyline whose points are (x = lon, y = lat)
func PolylineLengthMeters(pl datastructure.Polyline) float64 {
	if len(pl) < 2 {
		return 0
	}
	return toS2Polyline(pl).Length().Radians() * earthRadiusKM * 1000
}

// PointPolylineDistanceMeters. great circle distance in meter from p to the closest point of pl.
func PointPolylineDistanceMeters(pl datastructure.Polyline, p datastructure.Point) float64 {
	if len(pl) == 0 {
		return 0
	}
	q := s2.PointFromLatLng(s2.LatLngFromDegrees(p.Y, p.X))
	if len(pl) == 1 {
		return s2.PointFromLatLng(s2.LatLngFromDegrees(pl[0].Y, pl[0].X)).Distance(q).Radians() * earthRadiusKM * 1000
	}
	projected, _ := toS2Polyline(pl).Project(q)
	return q.Distance(projected).Radians() * earthRadiusKM * 1000
}

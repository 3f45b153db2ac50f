package datastructure

import "github.com/paulmach/orb"

// LineString. the polyline as an orb geometry, x = lon and y = lat for geographic data.
func (pl Polyline) LineString() orb.LineString {
	ls := make(orb.LineString, len(pl))
	for i, p := range pl {
		ls[i] = orb.Point{p.X, p.Y}
	}
	return ls
}

func PolylineFromLineString(ls orb.LineString) Polyline {
	pl := make(Polyline, len(ls))
	for i, p := range ls {
		pl[i] = NewPoint(p.X(), p.Y())
	}
	return pl
}

package datastructure

import "math"

// Segment. straight line between two points, one edge of a trajectory or of a road geometry.
type Segment struct {
	Start Point
	End   Point
}

func NewSegment(start, end Point) Segment {
	return Segment{Start: start, End: end}
}

func (s Segment) Length() float64 {
	return s.Start.Distance(s.End)
}

// Polyline. ordered chain of connected straight segments (linestring)
type Polyline []Point

func NewPolyline(points ...Point) Polyline {
	pl := make(Polyline, len(points))
	copy(pl, points)
	return pl
}

// NewPolylineFromCoords. coords are (x, y) pairs
func NewPolylineFromCoords(coords [][2]float64) Polyline {
	pl := make(Polyline, len(coords))
	for i, c := range coords {
		pl[i] = NewPoint(c[0], c[1])
	}
	return pl
}

func (pl Polyline) Clone() Polyline {
	if pl == nil {
		return nil
	}
	cp := make(Polyline, len(pl))
	copy(cp, pl)
	return cp
}

// Segments. consecutive point pairs, len(pl)-1 segments
func (pl Polyline) Segments() []Segment {
	if len(pl) < 2 {
		return []Segment{}
	}
	segs := make([]Segment, 0, len(pl)-1)
	for i := 0; i < len(pl)-1; i++ {
		segs = append(segs, NewSegment(pl[i], pl[i+1]))
	}
	return segs
}

func (pl Polyline) Length() float64 {
	length := 0.0
	for i := 0; i < len(pl)-1; i++ {
		length += pl[i].Distance(pl[i+1])
	}
	return length
}

func (pl Polyline) Bound() BoundingBox {
	if len(pl) == 0 {
		return BoundingBox{}
	}
	bb := NewBoundingBox(pl[0].X, pl[0].Y, pl[0].X, pl[0].Y)
	for _, p := range pl[1:] {
		bb = bb.Extend(p)
	}
	return bb
}

func (pl Polyline) Coords() [][2]float64 {
	coords := make([][2]float64, len(pl))
	for i, p := range pl {
		coords[i] = [2]float64{p.X, p.Y}
	}
	return coords
}

// PolylineFromSegments. rebuilds the point sequence of a chain of segments:
// the first segment start followed by every segment end.
func PolylineFromSegments(segs []Segment) Polyline {
	if len(segs) == 0 {
		return Polyline{}
	}
	pl := make(Polyline, 0, len(segs)+1)
	pl = append(pl, segs[0].Start)
	for _, s := range segs {
		pl = append(pl, s.End)
	}
	return pl
}

type BoundingBox struct {
	Min Point
	Max Point
}

func NewBoundingBox(minX, minY, maxX, maxY float64) BoundingBox {
	return BoundingBox{
		Min: NewPoint(math.Min(minX, maxX), math.Min(minY, maxY)),
		Max: NewPoint(math.Max(minX, maxX), math.Max(minY, maxY)),
	}
}

func (b BoundingBox) GetMinCoord() [2]float64 {
	return [2]float64{b.Min.X, b.Min.Y}
}

func (b BoundingBox) GetMaxCoord() [2]float64 {
	return [2]float64{b.Max.X, b.Max.Y}
}

func (b BoundingBox) Extend(p Point) BoundingBox {
	return BoundingBox{
		Min: NewPoint(math.Min(b.Min.X, p.X), math.Min(b.Min.Y, p.Y)),
		Max: NewPoint(math.Max(b.Max.X, p.X), math.Max(b.Max.Y, p.Y)),
	}
}

func (b BoundingBox) Contains(p Point) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

func (b BoundingBox) Intersects(o BoundingBox) bool {
	return !(o.Min.X > b.Max.X || o.Max.X < b.Min.X || o.Min.Y > b.Max.Y || o.Max.Y < b.Min.Y)
}

func (b BoundingBox) Center() Point {
	return NewPoint((b.Min.X+b.Max.X)/2, (b.Min.Y+b.Max.Y)/2)
}

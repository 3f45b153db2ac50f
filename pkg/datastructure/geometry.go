package datastructure

import (
	"math"
)

const (
	EPS = 1e-9

	// relative tolerance used to decide that two squared distances are the same.
	TIE_REL_EPS = 1e-9
)

type Point struct {
	X, Y float64
}

func NewPoint(x, y float64) Point {
	return Point{X: x, Y: y}
}

// equal operator
func Eq(a, b float64) bool {
	return math.Abs(a-b) <= EPS
}

// less than operator
func Lt(a, b float64) bool {
	return a+EPS < b
}

// less than or equal operator
func Le(a, b float64) bool {
	return a <= b+EPS
}

// PointEqual. equal operator for points
func PointEqual(a, b Point) bool {
	return Eq(a.X, b.X) && Eq(a.Y, b.Y)
}

func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

func (p Point) Sub(q Point) Point {
	return Point{p.X - q.X, p.Y - q.Y}
}

func (p Point) DistanceSquared(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx*dx + dy*dy
}

// Distance. euclidean distance between p and q
func (p Point) Distance(q Point) float64 {
	return math.Sqrt(p.DistanceSquared(q))
}

type Vector struct {
	x, y float64
}

func NewVector(x, y float64) Vector {
	return Vector{x, y}
}

func toVec(a, b Point) Vector {
	return NewVector(b.X-a.X, b.Y-a.Y)
}

// return dot product of two vectors a and b
func dot(a, b Vector) float64 {
	return a.x*b.x + a.y*b.y
}

func normSq(v Vector) float64 {
	return v.x*v.x + v.y*v.y
}

// ClosestPoint. projection of p onto the segment. zero-length segment has no unique closest point.
func (s Segment) ClosestPoint(p Point) Closest {
	ab := toVec(s.Start, s.End)
	lenSq := normSq(ab)
	if lenSq == 0 {
		return NewIndeterminate()
	}

	t := dot(toVec(s.Start, p), ab) / lenSq

	var c Point
	switch {
	case t <= 0:
		c = s.Start
	case t >= 1:
		c = s.End
	default:
		c = Point{s.Start.X + t*ab.x, s.Start.Y + t*ab.y}
	}

	if c.DistanceSquared(p) <= EPS*EPS {
		return NewIntersection(p)
	}
	return NewSinglePoint(c)
}

// DistanceSquaredToPoint. squared distance from p to the nearest point of the segment
func (s Segment) DistanceSquaredToPoint(p Point) float64 {
	ab := toVec(s.Start, s.End)
	lenSq := normSq(ab)
	if lenSq == 0 {
		return s.Start.DistanceSquared(p)
	}
	t := dot(toVec(s.Start, p), ab) / lenSq
	t = math.Max(0, math.Min(1, t))
	c := Point{s.Start.X + t*ab.x, s.Start.Y + t*ab.y}
	return c.DistanceSquared(p)
}

// ClosestPoint. closest point of the polyline to p.
//
// returns Indeterminate if the polyline has fewer than 2 points, if every segment is zero-length,
// or if two different points of the polyline are at the same (minimum) distance from p.
func (pl Polyline) ClosestPoint(p Point) Closest {
	if len(pl) < 2 {
		return NewIndeterminate()
	}

	best := NewIndeterminate()
	bestDistSq := math.Inf(1)
	tie := false

	for i := 0; i < len(pl)-1; i++ {
		c := NewSegment(pl[i], pl[i+1]).ClosestPoint(p)
		switch c.Kind() {
		case Indeterminate:
			continue
		case Intersection:
			return c
		}

		dSq := c.point.DistanceSquared(p)
		if sameDistance(dSq, bestDistSq) {
			if !PointEqual(c.point, best.point) {
				tie = true
			}
			continue
		}
		if dSq < bestDistSq {
			best = c
			bestDistSq = dSq
			tie = false
		}
	}

	if tie {
		return NewIndeterminate()
	}
	return best
}

// DistanceSquaredToPoint. squared distance from p to the nearest point of the polyline.
func (pl Polyline) DistanceSquaredToPoint(p Point) float64 {
	if len(pl) == 0 {
		return math.Inf(1)
	}
	if len(pl) == 1 {
		return pl[0].DistanceSquared(p)
	}
	best := math.Inf(1)
	for i := 0; i < len(pl)-1; i++ {
		best = math.Min(best, NewSegment(pl[i], pl[i+1]).DistanceSquaredToPoint(p))
	}
	return best
}

func sameDistance(a, b float64) bool {
	if math.IsInf(a, 1) || math.IsInf(b, 1) {
		return false
	}
	return math.Abs(a-b) <= TIE_REL_EPS*math.Max(math.Max(a, b), EPS*EPS)
}

/*
LineSimilarity. compares the direction of two segments.

both segments are scaled to unit length, the result is the length of the difference of the two unit
direction vectors: 0 means identical direction, sqrt(2) a right angle and 2 opposite direction.
a zero-length segment has no direction, the result is 0 in that case.
*/
func LineSimilarity(a, b Segment) float64 {
	la := a.Length()
	lb := b.Length()
	if !isNormal(la) || !isNormal(lb) {
		return 0
	}

	ua := toVec(a.Start, a.End)
	ub := toVec(b.Start, b.End)
	ua = NewVector(ua.x/la, ua.y/la)
	ub = NewVector(ub.x/lb, ub.y/lb)

	res := math.Sqrt(normSq(NewVector(ua.x-ub.x, ua.y-ub.y)))
	if !isNormal(res) {
		return 0
	}
	return math.Min(res, 2)
}

func isNormal(x float64) bool {
	return x != 0 && !math.IsNaN(x) && !math.IsInf(x, 0) && math.Abs(x) >= 0x1p-1022
}

package datastructure

type ClosestKind uint8

const (
	Indeterminate ClosestKind = iota
	SinglePoint
	Intersection
)

func (k ClosestKind) String() string {
	switch k {
	case SinglePoint:
		return "single_point"
	case Intersection:
		return "intersection"
	default:
		return "indeterminate"
	}
}

// Closest. result of a closest point query.
// SinglePoint: unique closest point. Intersection: the query point lies on the geometry.
// Indeterminate: there is no unique closest point.
type Closest struct {
	kind  ClosestKind
	point Point
}

func NewSinglePoint(p Point) Closest {
	return Closest{kind: SinglePoint, point: p}
}

func NewIntersection(p Point) Closest {
	return Closest{kind: Intersection, point: p}
}

func NewIndeterminate() Closest {
	return Closest{kind: Indeterminate}
}

func (c Closest) Kind() ClosestKind {
	return c.kind
}

func (c Closest) IsIndeterminate() bool {
	return c.kind == Indeterminate
}

// Point. resolved closest point, ok is false for Indeterminate.
func (c Closest) Point() (Point, bool) {
	if c.kind == Indeterminate {
		return Point{}, false
	}
	return c.point, true
}

// ClosestPointer is anything that can report its closest point to a query point.
type ClosestPointer interface {
	ClosestPoint(p Point) Closest
}

var (
	_ ClosestPointer = Segment{}
	_ ClosestPointer = Polyline{}
	_ ClosestPointer = (*Road)(nil)
	_ ClosestPointer = RoadCollection{}
)

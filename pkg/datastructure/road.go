package datastructure

import (
	"math"

	"github.com/lintang-b-s/roadsnap/pkg"
)

type Direction uint8

const (
	BIDIRECTIONAL Direction = iota
	FORWARD
	BACKWARD
)

func (d Direction) String() string {
	switch d {
	case FORWARD:
		return "forward"
	case BACKWARD:
		return "backward"
	default:
		return "bidirectional"
	}
}

// Road. road entry of the road network: geometry plus a stable identifier unique within the index.
type Road struct {
	ID        uint64
	OsmID     int64
	Code      pkg.OsmHighwayType
	Direction Direction
	MaxSpeed  uint16
	Layer     int16
	Bridge    bool
	Tunnel    bool
	Geometry  Polyline
}

func NewRoad(id uint64, geometry Polyline) *Road {
	return &Road{
		ID:       id,
		Code:     pkg.UNKNOWN,
		Geometry: geometry,
	}
}

func (r *Road) ClosestPoint(p Point) Closest {
	return r.Geometry.ClosestPoint(p)
}

// Clone. deep copy, geometry included
func (r *Road) Clone() *Road {
	cp := *r
	cp.Geometry = r.Geometry.Clone()
	return &cp
}

// RoadCollection. several roads treated as one multi-linestring geometry.
type RoadCollection []*Road

func (rc RoadCollection) ClosestPoint(p Point) Closest {
	best := NewIndeterminate()
	bestDistSq := math.Inf(1)
	tie := false
	for _, r := range rc {
		c := r.ClosestPoint(p)
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
			best, bestDistSq, tie = c, dSq, false
		}
	}
	if tie {
		return NewIndeterminate()
	}
	return best
}

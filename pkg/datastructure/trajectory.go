package datastructure

// Trajectory. ordered gps observations of one trip.
type Trajectory struct {
	ID     uint64
	Points Polyline
}

func NewTrajectory(id uint64, points Polyline) Trajectory {
	return Trajectory{ID: id, Points: points}
}

func (t Trajectory) Len() int {
	return len(t.Points)
}

func (t Trajectory) Segments() []Segment {
	return t.Points.Segments()
}

func (t Trajectory) Bound() BoundingBox {
	return t.Points.Bound()
}

// MatchedTrajectory. trajectory whose points were snapped onto the road network.
// RoadIDs[i] is the road selected for segment i, Input holds the observed points when known.
type MatchedTrajectory struct {
	ID       uint64
	Input    Polyline
	Segments []Segment
	RoadIDs  []uint64
	Cost     float64
}

func (m MatchedTrajectory) Points() Polyline {
	return PolylineFromSegments(m.Segments)
}

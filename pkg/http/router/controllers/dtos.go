package controllers

import (
	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
	"github.com/lintang-b-s/roadsnap/pkg/geo"
	"github.com/twpayne/go-polyline"
)

type mapMatchRequest struct {
	ID uint64 `json:"id"`
	// [x, y] pairs, x = lon and y = lat for geographic data
	Coordinates [][2]float64 `json:"coordinates" validate:"required,min=2,max=100000"`
}

func (r mapMatchRequest) toTrajectory() datastructure.Trajectory {
	return datastructure.NewTrajectory(r.ID, datastructure.NewPolylineFromCoords(r.Coordinates))
}

type roadsRequest struct {
	MinX  float64 `json:"min_x"`
	MinY  float64 `json:"min_y"`
	MaxX  float64 `json:"max_x" validate:"gtefield=MinX"`
	MaxY  float64 `json:"max_y" validate:"gtefield=MinY"`
	Limit int     `json:"limit" validate:"min=0,max=10000"`
}

type matchSummary struct {
	Segments     int     `json:"segments"`
	Cost         float64 `json:"cost"`
	Length       float64 `json:"length"`
	LengthMeters float64 `json:"length_meters"`
	// haversine length of the observed points
	InputLengthMeters float64 `json:"input_length_m"`
	// great circle distance between each observed point and its matched point
	MeanSnapDistanceMeters float64 `json:"mean_snap_distance_m"`
	MaxSnapDistanceMeters  float64 `json:"max_snap_distance_m"`
}

type mapMatchResponse struct {
	ID       uint64          `json:"id"`
	Points   [][2]float64    `json:"points"`
	Segments [][2][2]float64 `json:"segments"`
	RoadIDs  []uint64        `json:"road_ids"`
	Polyline string          `json:"polyline"`
	Summary  matchSummary    `json:"summary"`
	Cached   bool            `json:"cached"`
}

func NewMapMatchResponse(m datastructure.MatchedTrajectory, cached bool) mapMatchResponse {
	points := m.Points()
	segs := make([][2][2]float64, len(m.Segments))
	for i, s := range m.Segments {
		segs[i] = [2][2]float64{{s.Start.X, s.Start.Y}, {s.End.X, s.End.Y}}
	}
	roadIDs := m.RoadIDs
	if roadIDs == nil {
		roadIDs = []uint64{}
	}

	summary := matchSummary{
		Segments:          len(m.Segments),
		Cost:              m.Cost,
		Length:            points.Length(),
		LengthMeters:      geo.PolylineLengthMeters(points),
		InputLengthMeters: geo.HaversineLength(m.Input) * 1000,
	}
	if len(m.Input) == len(points) && len(points) > 0 {
		for i, p := range m.Input {
			d := geo.CalculateHaversineDistance(p.Y, p.X, points[i].Y, points[i].X) * 1000
			summary.MeanSnapDistanceMeters += d
			summary.MaxSnapDistanceMeters = max(summary.MaxSnapDistanceMeters, d)
		}
		summary.MeanSnapDistanceMeters /= float64(len(points))
	}

	return mapMatchResponse{
		ID:       m.ID,
		Points:   points.Coords(),
		Segments: segs,
		RoadIDs:  roadIDs,
		Polyline: CreatePolyline(points),
		Summary:  summary,
		Cached:   cached,
	}
}

// CreatePolyline. google encoded polyline of pl read as (x = lon, y = lat).
func CreatePolyline(pl datastructure.Polyline) string {
	coords := make([][]float64, 0, len(pl))
	for _, p := range pl {
		coords = append(coords, []float64{p.Y, p.X})
	}
	return string(polyline.EncodeCoords(coords))
}

type roadResponse struct {
	ID        uint64       `json:"id"`
	OsmID     int64        `json:"osm_id"`
	Highway   string       `json:"highway"`
	Direction string       `json:"direction"`
	MaxSpeed  uint16       `json:"maxspeed"`
	Layer     int16        `json:"layer"`
	Bridge    bool         `json:"bridge"`
	Tunnel    bool         `json:"tunnel"`
	Geometry  [][2]float64 `json:"geometry"`
}

func NewRoadsResponse(roads []*datastructure.Road) []roadResponse {
	resp := make([]roadResponse, len(roads))
	for i, r := range roads {
		resp[i] = roadResponse{
			ID:        r.ID,
			OsmID:     r.OsmID,
			Highway:   r.Code.String(),
			Direction: r.Direction.String(),
			MaxSpeed:  r.MaxSpeed,
			Layer:     r.Layer,
			Bridge:    r.Bridge,
			Tunnel:    r.Tunnel,
			Geometry:  r.Geometry.Coords(),
		}
	}
	return resp
}

type errorResponse struct {
	Error struct {
		Code    string   `json:"code"`
		Message string   `json:"message"`
		Details envelope `json:"details,omitempty"`
	} `json:"error"`
}

package storage

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

var ErrUnsupportedWKT = errors.New("wkt must be a LINESTRING or MULTILINESTRING")

// ParseRoadsWKT. one road per linestring of a MULTILINESTRING (or a single LINESTRING),
// road ids are the 0 based linestring positions.
func ParseRoadsWKT(s string) ([]*datastructure.Road, error) {
	g, err := wkt.Unmarshal(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("parse road network wkt: %w", err)
	}

	var lines orb.MultiLineString
	switch geom := g.(type) {
	case orb.MultiLineString:
		lines = geom
	case orb.LineString:
		lines = orb.MultiLineString{geom}
	default:
		return nil, fmt.Errorf("%w: got %s", ErrUnsupportedWKT, g.GeoJSONType())
	}

	roads := make([]*datastructure.Road, 0, len(lines))
	for i, ls := range lines {
		roads = append(roads, datastructure.NewRoad(uint64(i), datastructure.PolylineFromLineString(ls)))
	}
	return roads, nil
}

func ReadRoadsWKT(r io.Reader) ([]*datastructure.Road, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseRoadsWKT(string(data))
}

// ParseTrajectoryWKT. trajectory from a LINESTRING.
func ParseTrajectoryWKT(id uint64, s string) (datastructure.Trajectory, error) {
	ls, err := wkt.UnmarshalLineString(strings.TrimSpace(s))
	if err != nil {
		return datastructure.Trajectory{}, fmt.Errorf("parse trajectory wkt: %w", err)
	}
	return datastructure.NewTrajectory(id, datastructure.PolylineFromLineString(ls)), nil
}

func ReadTrajectoryWKT(id uint64, r io.Reader) (datastructure.Trajectory, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return datastructure.Trajectory{}, err
	}
	return ParseTrajectoryWKT(id, string(data))
}

// FormatTrajectoryWKT. LINESTRING text of pl.
func FormatTrajectoryWKT(pl datastructure.Polyline) string {
	return wkt.MarshalString(pl.LineString())
}

package table

import (
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow/go/v15/arrow"
	"github.com/apache/arrow/go/v15/arrow/array"
	"github.com/apache/arrow/go/v15/arrow/ipc"
	"github.com/apache/arrow/go/v15/arrow/memory"
	"github.com/lintang-b-s/roadsnap/pkg"
	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
)

var (
	ErrMissingColumn = errors.New("table is missing a required column")
	ErrColumnType    = errors.New("table column has an unexpected type")
	ErrGeometryType  = errors.New("geometry column must hold LINESTRING values")
)

// road table columns
const (
	ColID        = "id"
	ColOsmID     = "osm_id"
	ColCode      = "code"
	ColDirection = "direction"
	ColMaxSpeed  = "maxspeed"
	ColLayer     = "layer"
	ColBridge    = "bridge"
	ColTunnel    = "tunnel"
	ColGeom      = "geom"
)

var RoadSchema = arrow.NewSchema([]arrow.Field{
	{Name: ColID, Type: arrow.PrimitiveTypes.Uint64},
	{Name: ColOsmID, Type: arrow.PrimitiveTypes.Int64},
	{Name: ColCode, Type: arrow.PrimitiveTypes.Uint8},
	{Name: ColDirection, Type: arrow.PrimitiveTypes.Uint8},
	{Name: ColMaxSpeed, Type: arrow.PrimitiveTypes.Uint16},
	{Name: ColLayer, Type: arrow.PrimitiveTypes.Int16},
	{Name: ColBridge, Type: arrow.FixedWidthTypes.Boolean},
	{Name: ColTunnel, Type: arrow.FixedWidthTypes.Boolean},
	{Name: ColGeom, Type: arrow.BinaryTypes.Binary},
}, nil)

var TrajectorySchema = arrow.NewSchema([]arrow.Field{
	{Name: ColID, Type: arrow.PrimitiveTypes.Uint64},
	{Name: ColGeom, Type: arrow.BinaryTypes.Binary},
}, nil)

// EncodeRoads. writes roads as one arrow ipc stream record, geometry as WKB.
func EncodeRoads(w io.Writer, roads []*datastructure.Road) error {
	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, RoadSchema)
	defer b.Release()

	ids := b.Field(0).(*array.Uint64Builder)
	osmIDs := b.Field(1).(*array.Int64Builder)
	codes := b.Field(2).(*array.Uint8Builder)
	directions := b.Field(3).(*array.Uint8Builder)
	maxSpeeds := b.Field(4).(*array.Uint16Builder)
	layers := b.Field(5).(*array.Int16Builder)
	bridges := b.Field(6).(*array.BooleanBuilder)
	tunnels := b.Field(7).(*array.BooleanBuilder)
	geoms := b.Field(8).(*array.BinaryBuilder)

	for _, r := range roads {
		geom, err := encodeGeometry(r.Geometry)
		if err != nil {
			return fmt.Errorf("road %d: %w", r.ID, err)
		}
		ids.Append(r.ID)
		osmIDs.Append(r.OsmID)
		codes.Append(uint8(r.Code))
		directions.Append(uint8(r.Direction))
		maxSpeeds.Append(r.MaxSpeed)
		layers.Append(r.Layer)
		bridges.Append(r.Bridge)
		tunnels.Append(r.Tunnel)
		geoms.Append(geom)
	}

	rec := b.NewRecord()
	defer rec.Release()
	return writeRecord(w, RoadSchema, rec, mem)
}

// DecodeRoads. reads every record of an arrow ipc stream written by EncodeRoads.
// only id and geom are required, missing attribute columns keep their zero value.
func DecodeRoads(r io.Reader) ([]*datastructure.Road, error) {
	roads := make([]*datastructure.Road, 0)
	err := readRecords(r, func(rec arrow.Record) error {
		ids, err := column[*array.Uint64](rec, ColID, true)
		if err != nil {
			return err
		}
		geoms, err := column[*array.Binary](rec, ColGeom, true)
		if err != nil {
			return err
		}
		osmIDs, err := column[*array.Int64](rec, ColOsmID, false)
		if err != nil {
			return err
		}
		codes, err := column[*array.Uint8](rec, ColCode, false)
		if err != nil {
			return err
		}
		directions, err := column[*array.Uint8](rec, ColDirection, false)
		if err != nil {
			return err
		}
		maxSpeeds, err := column[*array.Uint16](rec, ColMaxSpeed, false)
		if err != nil {
			return err
		}
		layers, err := column[*array.Int16](rec, ColLayer, false)
		if err != nil {
			return err
		}
		bridges, err := column[*array.Boolean](rec, ColBridge, false)
		if err != nil {
			return err
		}
		tunnels, err := column[*array.Boolean](rec, ColTunnel, false)
		if err != nil {
			return err
		}

		for i := 0; i < int(rec.NumRows()); i++ {
			geom, err := decodeGeometry(geoms.Value(i))
			if err != nil {
				return fmt.Errorf("road %d: %w", ids.Value(i), err)
			}
			road := datastructure.NewRoad(ids.Value(i), geom)
			if osmIDs != nil {
				road.OsmID = osmIDs.Value(i)
			}
			if codes != nil {
				road.Code = pkg.OsmHighwayType(codes.Value(i))
			}
			if directions != nil {
				road.Direction = datastructure.Direction(directions.Value(i))
			}
			if maxSpeeds != nil {
				road.MaxSpeed = maxSpeeds.Value(i)
			}
			if layers != nil {
				road.Layer = layers.Value(i)
			}
			if bridges != nil {
				road.Bridge = bridges.Value(i)
			}
			if tunnels != nil {
				road.Tunnel = tunnels.Value(i)
			}
			roads = append(roads, road)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return roads, nil
}

func EncodeTrajectories(w io.Writer, trajectories []datastructure.Trajectory) error {
	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, TrajectorySchema)
	defer b.Release()

	ids := b.Field(0).(*array.Uint64Builder)
	geoms := b.Field(1).(*array.BinaryBuilder)
	for _, t := range trajectories {
		geom, err := encodeGeometry(t.Points)
		if err != nil {
			return fmt.Errorf("trajectory %d: %w", t.ID, err)
		}
		ids.Append(t.ID)
		geoms.Append(geom)
	}

	rec := b.NewRecord()
	defer rec.Release()
	return writeRecord(w, TrajectorySchema, rec, mem)
}

func DecodeTrajectories(r io.Reader) ([]datastructure.Trajectory, error) {
	trajectories := make([]datastructure.Trajectory, 0)
	err := readRecords(r, func(rec arrow.Record) error {
		ids, err := column[*array.Uint64](rec, ColID, true)
		if err != nil {
			return err
		}
		geoms, err := column[*array.Binary](rec, ColGeom, true)
		if err != nil {
			return err
		}
		for i := 0; i < int(rec.NumRows()); i++ {
			geom, err := decodeGeometry(geoms.Value(i))
			if err != nil {
				return fmt.Errorf("trajectory %d: %w", ids.Value(i), err)
			}
			trajectories = append(trajectories, datastructure.NewTrajectory(ids.Value(i), geom))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trajectories, nil
}

func writeRecord(w io.Writer, schema *arrow.Schema, rec arrow.Record, mem memory.Allocator) error {
	iw := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err := iw.Write(rec); err != nil {
		iw.Close()
		return fmt.Errorf("write arrow record: %w", err)
	}
	if err := iw.Close(); err != nil {
		return fmt.Errorf("close arrow writer: %w", err)
	}
	return nil
}

func readRecords(r io.Reader, handle func(rec arrow.Record) error) error {
	ir, err := ipc.NewReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return fmt.Errorf("open arrow stream: %w", err)
	}
	defer ir.Release()

	for ir.Next() {
		if err := handle(ir.Record()); err != nil {
			return err
		}
	}
	if err := ir.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read arrow stream: %w", err)
	}
	return nil
}

// column. typed column by name, nil if absent and not required.
func column[A arrow.Array](rec arrow.Record, name string, required bool) (A, error) {
	var zero A
	idx := rec.Schema().FieldIndices(name)
	if len(idx) == 0 {
		if required {
			return zero, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		return zero, nil
	}
	arr, ok := rec.Column(idx[0]).(A)
	if !ok {
		return zero, fmt.Errorf("%w: %q is %s", ErrColumnType, name, rec.Column(idx[0]).DataType())
	}
	return arr, nil
}

func encodeGeometry(pl datastructure.Polyline) ([]byte, error) {
	return wkb.Marshal(pl.LineString())
}

func decodeGeometry(data []byte) (datastructure.Polyline, error) {
	g, err := wkb.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decode wkb: %w", err)
	}
	ls, ok := g.(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("%w: got %s", ErrGeometryType, g.GeoJSONType())
	}
	return datastructure.PolylineFromLineString(ls), nil
}

package spatialindex

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"sort"

	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

var (
	ErrLengthMismatch    = errors.New("ids and geometries must have the same length")
	ErrMalformedGeometry = errors.New("road geometry must have at least 2 points")
	ErrDuplicateRoadID   = errors.New("road id already exists in the index")
	ErrRemoveUnsupported = errors.New("removing a road from the index is not supported, rebuild the index instead")
	ErrNonFiniteGeometry = errors.New("road geometry contains a non finite coordinate")
)

// nodeCapacity. leaf fan-out used to tile the bulk load, same as the max entries of tidwall/rtree nodes.
const nodeCapacity = 64

// Rtree. spatial index of road geometries.
// queries are safe for concurrent use; Insert and BuildRoads must not run concurrently with queries.
type Rtree struct {
	tr    *rtree.RTreeG[*datastructure.Road]
	roads map[uint64]*datastructure.Road
}

// Neighbor. road returned by a nearest neighbor query with its squared distance to the query point.
type Neighbor struct {
	Road   *datastructure.Road
	DistSq float64
}

func NewRtree() *Rtree {
	var tr rtree.RTreeG[*datastructure.Road]
	return &Rtree{
		tr:    &tr,
		roads: make(map[uint64]*datastructure.Road),
	}
}

// Build. bulk load the index from parallel arrays of ids and geometries.
func Build(ids []uint64, geometries []datastructure.Polyline, log *zap.Logger) (*Rtree, error) {
	if len(ids) != len(geometries) {
		return nil, fmt.Errorf("%w: %d ids, %d geometries", ErrLengthMismatch, len(ids), len(geometries))
	}
	roads := make([]*datastructure.Road, len(ids))
	for i := range ids {
		roads[i] = datastructure.NewRoad(ids[i], geometries[i])
	}
	rt := NewRtree()
	if err := rt.BuildRoads(roads, log); err != nil {
		return nil, err
	}
	return rt, nil
}

/*
BuildRoads. bulk load roads into the index.

the entries are ordered with sort-tile-recursive packing (Leutenegger et al. 1997) before being inserted:
bounding box centers are sorted by x, cut into vertical slices of sqrt(n/capacity) tiles and each slice
is sorted by y, so consecutive inserts land in the same leaves.
*/
func (rt *Rtree) BuildRoads(roads []*datastructure.Road, log *zap.Logger) error {
	log.Info("Building R-tree spatial index...", zap.Int("roads", len(roads)))

	type entry struct {
		road *datastructure.Road
		bb   datastructure.BoundingBox
	}

	entries := make([]entry, 0, len(roads))
	seen := make(map[uint64]struct{}, len(roads))
	for _, road := range roads {
		if err := validateRoad(road); err != nil {
			return err
		}
		if _, ok := seen[road.ID]; ok {
			return fmt.Errorf("%w: %d", ErrDuplicateRoadID, road.ID)
		}
		if _, ok := rt.roads[road.ID]; ok {
			return fmt.Errorf("%w: %d", ErrDuplicateRoadID, road.ID)
		}
		seen[road.ID] = struct{}{}
		owned := road.Clone()
		entries = append(entries, entry{road: owned, bb: owned.Geometry.Bound()})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].bb.Center().X < entries[j].bb.Center().X
	})

	numLeaves := int(math.Ceil(float64(len(entries)) / nodeCapacity))
	numSlices := int(math.Ceil(math.Sqrt(float64(numLeaves))))
	sliceSize := numSlices * nodeCapacity
	for start := 0; start < len(entries); start += sliceSize {
		end := min(start+sliceSize, len(entries))
		slice := entries[start:end]
		sort.SliceStable(slice, func(i, j int) bool {
			return slice[i].bb.Center().Y < slice[j].bb.Center().Y
		})
	}

	for i, e := range entries {
		if (i+1)%100000 == 0 {
			log.Info("Building R-tree spatial index...", zap.Float64("progress", float64(i+1)/float64(len(entries))*100))
		}
		rt.tr.Insert(e.bb.GetMinCoord(), e.bb.GetMaxCoord(), e.road)
		rt.roads[e.road.ID] = e.road
	}

	log.Info("R-tree spatial index built.", zap.Int("size", rt.tr.Len()))
	return nil
}

// Insert. add one road to a live index. query results stay correct but the tree may be less balanced than a bulk load.
func (rt *Rtree) Insert(road *datastructure.Road) error {
	if err := validateRoad(road); err != nil {
		return err
	}
	if _, ok := rt.roads[road.ID]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateRoadID, road.ID)
	}
	owned := road.Clone()
	bb := owned.Geometry.Bound()
	rt.tr.Insert(bb.GetMinCoord(), bb.GetMaxCoord(), owned)
	rt.roads[owned.ID] = owned
	return nil
}

// Remove. not supported, callers rebuild the index (see engine.Engine.RemoveRoads).
func (rt *Rtree) Remove(id uint64) error {
	return ErrRemoveUnsupported
}

func validateRoad(road *datastructure.Road) error {
	if len(road.Geometry) < 2 {
		return fmt.Errorf("%w: road %d has %d points", ErrMalformedGeometry, road.ID, len(road.Geometry))
	}
	for _, p := range road.Geometry {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return fmt.Errorf("%w: road %d", ErrNonFiniteGeometry, road.ID)
		}
	}
	return nil
}

func (rt *Rtree) Len() int {
	return rt.tr.Len()
}

func (rt *Rtree) IsEmpty() bool {
	return rt.tr.Len() == 0
}

// Road. road with the given id, nil if absent
func (rt *Rtree) Road(id uint64) *datastructure.Road {
	return rt.roads[id]
}

// Roads. all indexed roads ordered by id
func (rt *Rtree) Roads() []*datastructure.Road {
	roads := make([]*datastructure.Road, 0, len(rt.roads))
	for _, r := range rt.roads {
		roads = append(roads, r)
	}
	sort.Slice(roads, func(i, j int) bool {
		return roads[i].ID < roads[j].ID
	})
	return roads
}

// Copy. copy-on-write copy, inserting into the copy does not affect rt.
func (rt *Rtree) Copy() *Rtree {
	roads := make(map[uint64]*datastructure.Road, len(rt.roads))
	for id, r := range rt.roads {
		roads[id] = r
	}
	return &Rtree{
		tr:    rt.tr.Copy(),
		roads: roads,
	}
}

/*
NearestNeighbors. lazy sequence of roads ordered by ascending squared euclidean distance from q to the road geometry.

every call starts a fresh best-first traversal: inner nodes are ranked by the squared distance to their
bounding box, which never exceeds the distance to any geometry inside, so the items come out in exact order.
the sequence ends after the last indexed road; an empty index yields nothing.
*/
func (rt *Rtree) NearestNeighbors(q datastructure.Point) iter.Seq2[*datastructure.Road, float64] {
	return func(yield func(*datastructure.Road, float64) bool) {
		qc := [2]float64{q.X, q.Y}
		rt.tr.Nearby(
			rtree.BoxDist[float64, *datastructure.Road](qc, qc,
				func(min, max [2]float64, road *datastructure.Road) float64 {
					return road.Geometry.DistanceSquaredToPoint(q)
				}),
			func(min, max [2]float64, road *datastructure.Road, distSq float64) bool {
				return yield(road, distSq)
			},
		)
	}
}

// KNearestNeighbors. first k roads of NearestNeighbors.
func (rt *Rtree) KNearestNeighbors(q datastructure.Point, k int) []Neighbor {
	if k <= 0 {
		return []Neighbor{}
	}
	result := make([]Neighbor, 0, min(k, rt.Len()))
	for road, distSq := range rt.NearestNeighbors(q) {
		result = append(result, Neighbor{Road: road, DistSq: distSq})
		if len(result) >= k {
			break
		}
	}
	return result
}

// SearchBoundingBox. roads whose geometry intersects bb, order unspecified.
func (rt *Rtree) SearchBoundingBox(bb datastructure.BoundingBox) []*datastructure.Road {
	results := make([]*datastructure.Road, 0, 16)
	rt.tr.Search(bb.GetMinCoord(), bb.GetMaxCoord(),
		func(min, max [2]float64, road *datastructure.Road) bool {
			if geometryIntersectsBox(road.Geometry, bb) {
				results = append(results, road)
			}
			return true
		})
	return results
}

// SearchWithinRadius. roads whose geometry is at most radius away from q, nearest first.
func (rt *Rtree) SearchWithinRadius(q datastructure.Point, radius float64) []Neighbor {
	radiusSq := radius * radius
	results := make([]Neighbor, 0, 10)
	for road, distSq := range rt.NearestNeighbors(q) {
		if distSq > radiusSq {
			break
		}
		results = append(results, Neighbor{Road: road, DistSq: distSq})
	}
	return results
}

// the bounding boxes of the road and bb overlap, check that a segment actually crosses bb.
func geometryIntersectsBox(pl datastructure.Polyline, bb datastructure.BoundingBox) bool {
	for _, p := range pl {
		if bb.Contains(p) {
			return true
		}
	}
	for _, seg := range pl.Segments() {
		if segmentIntersectsBox(seg, bb) {
			return true
		}
	}
	return false
}

// liang-barsky clipping of the segment against bb
func segmentIntersectsBox(seg datastructure.Segment, bb datastructure.BoundingBox) bool {
	t0, t1 := 0.0, 1.0
	dx := seg.End.X - seg.Start.X
	dy := seg.End.Y - seg.Start.Y

	clip := func(p, q float64) bool {
		if p == 0 {
			return q >= 0
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return false
			}
			if r > t0 {
				t0 = r
			}
		} else {
			if r < t0 {
				return false
			}
			if r < t1 {
				t1 = r
			}
		}
		return true
	}

	return clip(-dx, seg.Start.X-bb.Min.X) &&
		clip(dx, bb.Max.X-seg.Start.X) &&
		clip(-dy, seg.Start.Y-bb.Min.Y) &&
		clip(dy, bb.Max.Y-seg.Start.Y)
}

package osmparser

import (
	"context"
	"io"
	"os"

	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"go.uber.org/zap"
)

type NodeCoord struct {
	lat float64
	lon float64
}

func NewNodeCoord(lat, lon float64) NodeCoord {
	return NodeCoord{lat, lon}
}

// osmWay. accepted way kept between the two scans.
type osmWay struct {
	id    osm.WayID
	nodes []osm.NodeID
	tags  osm.Tags
}

// OsmParser. turns the highway ways of an openstreetmap pbf extract into roads (x = lon, y = lat).
type OsmParser struct {
	ways        []osmWay
	wayNodes    map[osm.NodeID]struct{}
	nodeCoords  map[osm.NodeID]NodeCoord
	skippedWays int
	nextRoadID  uint64
}

func NewOSMParser() *OsmParser {
	return &OsmParser{
		ways:       make([]osmWay, 0),
		wayNodes:   make(map[osm.NodeID]struct{}),
		nodeCoords: make(map[osm.NodeID]NodeCoord),
		nextRoadID: 1,
	}
}

/*
Parse. reads mapFile in two scans.

the first scan keeps the accepted highway ways and remembers which nodes they reference, the second scan
reads the coordinates of those nodes only. every accepted way becomes one road.
*/
func (p *OsmParser) Parse(mapFile string, logger *zap.Logger) ([]*datastructure.Road, error) {
	f, err := os.Open(mapFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ctx := context.Background()

	scanner := osmpbf.New(ctx, f, 0)
	scanner.SkipNodes = true
	scanner.SkipRelations = true
	// must not be parallel
	countWays := 0
	for scanner.Scan() {
		way, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if p.AddWay(way) {
			if (countWays+1)%50000 == 0 {
				logger.Sugar().Infof("scanning openstreetmap ways: %d...", countWays+1)
			}
			countWays++
		}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, err
	}
	scanner.Close()

	_, err = f.Seek(0, io.SeekStart)
	if err != nil {
		return nil, err
	}
	scanner = osmpbf.New(ctx, f, 0)
	scanner.SkipWays = true
	scanner.SkipRelations = true
	defer scanner.Close()

	countNodes := 0
	for scanner.Scan() {
		node, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if p.AddNode(node) {
			if (countNodes+1)%500000 == 0 {
				logger.Sugar().Infof("processing openstreetmap nodes: %d...", countNodes+1)
			}
			countNodes++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	roads := p.BuildRoads()
	logger.Info("openstreetmap parsed.", zap.Int("ways", countWays), zap.Int("nodes", countNodes),
		zap.Int("roads", len(roads)), zap.Int("skippedWays", p.skippedWays))
	return roads, nil
}

// AddWay. keeps way if it is a road, returns false otherwise.
func (p *OsmParser) AddWay(way *osm.Way) bool {
	if len(way.Nodes) < 2 || !acceptOsmWay(way) {
		return false
	}
	ids := make([]osm.NodeID, len(way.Nodes))
	for i, n := range way.Nodes {
		ids[i] = n.ID
		p.wayNodes[n.ID] = struct{}{}
	}
	p.ways = append(p.ways, osmWay{id: way.ID, nodes: ids, tags: way.Tags})
	return true
}

// AddNode. records the coordinate of node if an accepted way references it.
func (p *OsmParser) AddNode(node *osm.Node) bool {
	if _, ok := p.wayNodes[node.ID]; !ok {
		return false
	}
	p.nodeCoords[node.ID] = NewNodeCoord(node.Lat, node.Lon)
	return true
}

// BuildRoads. one road per kept way, in scan order. nodes without a coordinate are dropped and
// ways left with fewer than 2 distinct points are skipped.
func (p *OsmParser) BuildRoads() []*datastructure.Road {
	roads := make([]*datastructure.Road, 0, len(p.ways))
	for _, w := range p.ways {
		geom := make(datastructure.Polyline, 0, len(w.nodes))
		for _, id := range w.nodes {
			c, ok := p.nodeCoords[id]
			if !ok {
				continue
			}
			pt := datastructure.NewPoint(c.lon, c.lat)
			if len(geom) > 0 && datastructure.PointEqual(geom[len(geom)-1], pt) {
				continue
			}
			geom = append(geom, pt)
		}
		if len(geom) < 2 {
			p.skippedWays++
			continue
		}

		road := datastructure.NewRoad(p.nextRoadID, geom)
		p.nextRoadID++
		road.OsmID = int64(w.id)
		applyTags(road, w.tags)
		roads = append(roads, road)
	}
	return roads
}

func acceptOsmWay(way *osm.Way) bool {
	highway := way.Tags.Find("highway")
	junction := way.Tags.Find("junction")
	if highway != "" {
		if _, ok := acceptedHighway[highway]; ok {
			return true
		}
	} else if junction != "" {
		return true
	}
	return false
}

package main

import (
	"flag"
	"os"
	"strings"

	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
	"github.com/lintang-b-s/roadsnap/pkg/logger"
	"github.com/lintang-b-s/roadsnap/pkg/osmparser"
	"github.com/lintang-b-s/roadsnap/pkg/spatialindex"
	"github.com/lintang-b-s/roadsnap/pkg/storage"
	"github.com/lintang-b-s/roadsnap/pkg/table"
)

var (
	mapFile = flag.String("f", "./data/diy_solo_semarang.osm.pbf", "openstreetmap pbf file, or a .wkt file holding a MULTILINESTRING")
	outFile = flag.String("o", "./data/roads.arrow.bz2", "output road table")
)

func main() {
	flag.Parse()
	logger, err := logger.NewDevelopment()
	if err != nil {
		panic(err)
	}

	var roads []*datastructure.Road
	if strings.HasSuffix(*mapFile, ".wkt") {
		f, err := os.Open(*mapFile)
		if err != nil {
			panic(err)
		}
		roads, err = storage.ReadRoadsWKT(f)
		f.Close()
		if err != nil {
			panic(err)
		}
	} else {
		osmParser := osmparser.NewOSMParser()
		roads, err = osmParser.Parse(*mapFile, logger)
		if err != nil {
			panic(err)
		}
	}

	// rejects malformed geometry and duplicate ids before anything is written
	if err := spatialindex.NewRtree().BuildRoads(roads, logger); err != nil {
		panic(err)
	}

	if err := table.WriteRoadsFile(*outFile, roads); err != nil {
		panic(err)
	}

	logger.Sugar().Infof("Preprocessing completed successfully, %d roads written to %s.", len(roads), *outFile)
}

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
	"github.com/lintang-b-s/roadsnap/pkg/engine"
	"github.com/lintang-b-s/roadsnap/pkg/engine/mapmatcher/segment"
	"github.com/lintang-b-s/roadsnap/pkg/logger"
	"github.com/lintang-b-s/roadsnap/pkg/storage"
	"github.com/lintang-b-s/roadsnap/pkg/table"
	"github.com/lintang-b-s/roadsnap/pkg/util"
	"go.uber.org/zap"
)

var (
	configDir        = flag.String("config_dir", "./data/", "directory holding config.yaml")
	roadsFile        = flag.String("roads", "./data/roads.arrow.bz2", "road table")
	trajectoriesFile = flag.String("trajectories", "./data/trajectories.arrow.bz2", "trajectory table")
	outFile          = flag.String("o", "./data/matched.arrow.bz2", "matched trajectory table")
	wktFile          = flag.String("wkt", "", "optional text file receiving one matched LINESTRING per line")
	fromID           = flag.Uint64("from", 0, "first trajectory id")
	toID             = flag.Uint64("to", 0, "last trajectory id, 0 means no upper bound")
	limit            = flag.Int("limit", 0, "max trajectories matched, 0 means all")
	workers          = flag.Int("workers", 0, "matching workers, 0 means one per cpu")
)

func main() {
	flag.Parse()
	logger, err := logger.NewDevelopment()
	if err != nil {
		panic(err)
	}
	if err := util.ReadConfig(*configDir); err != nil {
		logger.Warn("config file not read, using defaults", zap.Error(err))
	}
	cfg, err := engine.LoadMatcherConfig()
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mapMatchEngine, err := engine.NewEngineFromFile(*roadsFile, cfg, logger)
	if err != nil {
		panic(err)
	}
	store, err := storage.OpenTrajectoryStore(mapMatchEngine, *trajectoriesFile, logger)
	if err != nil {
		panic(err)
	}
	trajectories, err := store.Trajectories(ctx, storage.TrajectoryQuery{FromID: *fromID, ToID: *toID, Limit: *limit})
	if err != nil {
		panic(err)
	}

	results := mapMatchEngine.BatchMatcher(*workers).MatchAll(ctx, trajectories)

	matched := make([]datastructure.Trajectory, 0, len(results))
	failed := 0
	for _, res := range results {
		if res.Failed() {
			failed++
			if mf, ok := segment.AsMatchFailure(res.Err); ok {
				logger.Warn("trajectory not matched", zap.Uint64("trajectoryID", res.TrajectoryID),
					zap.Int("segmentIndex", mf.Index))
			} else {
				logger.Warn("trajectory not matched", zap.Uint64("trajectoryID", res.TrajectoryID), zap.Error(res.Err))
			}
			continue
		}
		matched = append(matched, datastructure.NewTrajectory(res.TrajectoryID, res.Matched.Points()))
	}

	if err := table.WriteTrajectoriesFile(*outFile, matched); err != nil {
		panic(err)
	}
	if *wktFile != "" {
		if err := writeWKT(*wktFile, matched); err != nil {
			panic(err)
		}
	}

	logger.Sugar().Infof("Matched %d of %d trajectories (%d failed), written to %s.", len(matched), len(results), failed, *outFile)
}

func writeWKT(filename string, trajectories []datastructure.Trajectory) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, t := range trajectories {
		if _, err := fmt.Fprintf(w, "%d\t%s\n", t.ID, storage.FormatTrajectoryWKT(t.Points)); err != nil {
			return err
		}
	}
	return w.Flush()
}

package main

import (
	"context"
	"encoding/csv"
	"flag"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
	"github.com/lintang-b-s/roadsnap/pkg/engine"
	"github.com/lintang-b-s/roadsnap/pkg/geo"
	"github.com/lintang-b-s/roadsnap/pkg/logger"
	"github.com/lintang-b-s/roadsnap/pkg/storage"
	"github.com/lintang-b-s/roadsnap/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

var (
	configDir        = flag.String("config_dir", "./data/", "directory holding config.yaml")
	roadsFile        = flag.String("roads", "./data/roads.arrow.bz2", "road table")
	trajectoriesFile = flag.String("trajectories", "./data/trajectories.arrow.bz2", "trajectory table, points are (lon, lat)")
	noiseLevels      = flag.String("noise", "0,5,10,20,40", "comma separated gps noise standard deviations in meter")
	limit            = flag.Int("limit", 1000, "max trajectories evaluated")
	seed             = flag.Uint64("seed", 42, "noise seed")
	outFile          = flag.String("o", "./data/noise_eval.csv", "csv report")
)

type levelReport struct {
	sigma          float64
	matched        int
	failed         int
	meanFrechet    float64
	meanHeadingErr float64
	meanOffRouteM  float64
}

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
	levels, err := parseLevels(*noiseLevels)
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	mapMatchEngine, err := engine.NewEngineFromFile(*roadsFile, cfg, logger)
	if err != nil {
		panic(err)
	}
	store, err := storage.OpenTrajectoryStore(mapMatchEngine, *trajectoriesFile, logger)
	if err != nil {
		panic(err)
	}
	clean, err := store.Trajectories(ctx, storage.TrajectoryQuery{Limit: *limit})
	if err != nil {
		panic(err)
	}

	matcher := mapMatchEngine.BatchMatcher(0)
	rng := rand.New(rand.NewSource(*seed))

	reports := make([]levelReport, 0, len(levels))
	for _, sigma := range levels {
		noised := make([]datastructure.Trajectory, len(clean))
		for i, t := range clean {
			noised[i] = addNoise(rng, t, sigma)
		}

		report := levelReport{sigma: sigma}
		for i, res := range matcher.MatchAll(ctx, noised) {
			if res.Failed() {
				report.failed++
				continue
			}
			report.matched++
			matchedPoints := res.Matched.Points()
			report.meanFrechet += geo.FrechetDistance(clean[i].Points, matchedPoints)
			report.meanHeadingErr += meanHeadingError(clean[i].Points, matchedPoints)
			report.meanOffRouteM += meanOffRouteMeters(clean[i].Points, matchedPoints)
		}
		if report.matched > 0 {
			report.meanFrechet /= float64(report.matched)
			report.meanHeadingErr /= float64(report.matched)
			report.meanOffRouteM /= float64(report.matched)
		}
		logger.Info("noise level evaluated", zap.Float64("sigmaMeter", sigma), zap.Int("matched", report.matched),
			zap.Int("failed", report.failed), zap.Float64("meanFrechet", report.meanFrechet),
			zap.Float64("meanHeadingErrorDeg", report.meanHeadingErr), zap.Float64("meanOffRouteMeter", report.meanOffRouteM))
		reports = append(reports, report)
	}

	for i := 1; i < len(reports); i++ {
		if reports[i].meanFrechet < reports[i-1].meanFrechet {
			logger.Warn("frechet distance decreased with more noise",
				zap.Float64("sigma", reports[i].sigma), zap.Float64("previousSigma", reports[i-1].sigma))
		}
	}

	if err := writeReport(*outFile, reports); err != nil {
		panic(err)
	}
	logger.Sugar().Infof("noise evaluation written to %s", *outFile)
}

func parseLevels(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	levels := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := util.StringToFloat64(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		levels = append(levels, v)
	}
	return levels, nil
}

// addNoise. moves every point sigma-normal meters in a uniform random direction.
func addNoise(rng *rand.Rand, t datastructure.Trajectory, sigma float64) datastructure.Trajectory {
	points := make(datastructure.Polyline, len(t.Points))
	for i, p := range t.Points {
		dist := math.Abs(rng.NormFloat64()*sigma) / 1000
		bearing := rng.Float64() * 360
		lat, lon := geo.GetDestinationPoint(p.Y, p.X, bearing, dist)
		points[i] = datastructure.NewPoint(lon, lat)
	}
	return datastructure.NewTrajectory(t.ID, points)
}

// meanHeadingError. mean absolute bearing difference in degree between corresponding segments.
func meanHeadingError(clean, matched datastructure.Polyline) float64 {
	n := min(len(clean), len(matched)) - 1
	if n <= 0 {
		return 0
	}
	total := 0.0
	for i := 0; i < n; i++ {
		b1 := geo.BearingTo(clean[i].Y, clean[i].X, clean[i+1].Y, clean[i+1].X)
		b2 := geo.BearingTo(matched[i].Y, matched[i].X, matched[i+1].Y, matched[i+1].X)
		diff := math.Abs(b1 - b2)
		if diff > 180 {
			diff = 360 - diff
		}
		total += diff
	}
	return total / float64(n)
}

// meanOffRouteMeters. mean great circle distance from the matched points to the clean path.
func meanOffRouteMeters(clean, matched datastructure.Polyline) float64 {
	if len(matched) == 0 {
		return 0
	}
	total := 0.0
	for _, p := range matched {
		total += geo.PointPolylineDistanceMeters(clean, p)
	}
	return total / float64(len(matched))
}

func writeReport(filename string, reports []levelReport) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"sigma_m", "matched", "failed", "mean_frechet", "mean_heading_error_deg", "mean_off_route_m"}); err != nil {
		return err
	}
	for _, r := range reports {
		err := w.Write([]string{
			strconv.FormatFloat(r.sigma, 'f', -1, 64),
			strconv.Itoa(r.matched),
			strconv.Itoa(r.failed),
			strconv.FormatFloat(util.RoundFloat(r.meanFrechet, 9), 'f', -1, 64),
			strconv.FormatFloat(util.RoundFloat(r.meanHeadingErr, 3), 'f', -1, 64),
			strconv.FormatFloat(util.RoundFloat(r.meanOffRouteM, 3), 'f', -1, 64),
		})
		if err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

package main

import (
	"context"
	"flag"

	"github.com/lintang-b-s/roadsnap/pkg/engine"
	"github.com/lintang-b-s/roadsnap/pkg/http"
	"github.com/lintang-b-s/roadsnap/pkg/http/usecases"
	"github.com/lintang-b-s/roadsnap/pkg/logger"
	"github.com/lintang-b-s/roadsnap/pkg/storage"
	"github.com/lintang-b-s/roadsnap/pkg/util"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	configDir    = flag.String("config_dir", "./data/", "directory holding config.yaml")
	useRateLimit = flag.Bool("rate_limit", false, "enable the per client rate limiter")
)

func main() {
	flag.Parse()
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}
	if err := util.ReadConfig(*configDir); err != nil {
		logger.Warn("config file not read, using defaults", zap.Error(err))
	}
	viper.SetDefault("roads_file", "./data/roads.arrow.bz2")
	viper.SetDefault("trajectories_file", "")
	viper.SetDefault("matcher.parallel_threshold", 2000)
	viper.SetDefault("matcher.workers", 0)

	cfg, err := engine.LoadMatcherConfig()
	if err != nil {
		panic(err)
	}

	mapMatchEngine, err := engine.NewEngineFromFile(viper.GetString("roads_file"), cfg, logger)
	if err != nil {
		panic(err)
	}

	store, err := storage.OpenTrajectoryStore(mapMatchEngine, viper.GetString("trajectories_file"), logger)
	if err != nil {
		panic(err)
	}

	mapMatcherService, err := usecases.NewMapMatcherService(logger, mapMatchEngine, store, store,
		viper.GetInt("matcher.parallel_threshold"), viper.GetInt("matcher.workers"))
	if err != nil {
		panic(err)
	}

	ctx, cleanup, err := NewContext()
	if err != nil {
		panic(err)
	}

	api := http.NewServer(logger)
	api.Use(ctx, logger, *useRateLimit || viper.GetBool("USE_RATE_LIMIT"), mapMatcherService)

	signal := http.GracefulShutdown()

	cleanup()
	if err := api.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
	}
	logger.Info("Roadsnap Map Matching Server Stopped", zap.String("signal", signal.String()))
}

func NewContext() (context.Context, func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	cb := func() {
		cancel()
	}

	return ctx, cb, nil
}
